// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchdog keeps the custody service's run state file. The
// service calls [Start] when it comes up and [Stop] when it shuts down
// cleanly. A state found without a stop time means the previous run
// crashed or was killed.
//
// [Stop] also records a [Seal] over the ledger journal: the number of
// events it held and their checkpoint root. The journal is append-only,
// so every later reading must begin with exactly those events.
// [VerifySeal] checks that, which catches a journal truncated or
// rewritten while the service was down. Hash chains alone cannot
// detect a dropped tail.
//
// The file is written atomically (temporary file, fsync, rename, fsync
// of the parent directory) so readers never see a partial state.
package watchdog
