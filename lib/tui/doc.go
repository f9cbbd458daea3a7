// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui renders custody data for terminals: evidence lists,
// custody timelines, and verification results.
//
// Rendering is styled with lipgloss when the output is a terminal and
// plain aligned text otherwise. Callers decide which by constructing a
// [Renderer] with or without color; the package never inspects file
// descriptors itself.
package tui
