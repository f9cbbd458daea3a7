// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds entrypoint helpers for the custody binaries.
// [Fatal] reports errors that happen before the structured logger
// exists, or after it has been torn down.
package process
