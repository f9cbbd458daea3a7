// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the custody service configuration.
//
// Configuration comes from a single file named by either the
// CUSTODY_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no discovery and no fallback search path.
// Files ending in .json or .jsonc may carry comments and trailing
// commas; everything else is parsed as YAML.
//
// The file may contain development, staging, and production sections
// that override base values when [Config].Environment matches.
// Production without an explicit section still tightens defaults:
// blobs must be encrypted at rest and logging stays at info.
//
// ${VAR} and ${VAR:-default} patterns in path fields are expanded after
// loading; ${CUSTODY_ROOT} refers to paths.root. No other environment
// variables override config values.
//
// This package depends on no other custody packages.
package config
