// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package custody

import "fmt"

// Status is the lifecycle state of an evidence item.
type Status string

const (
	StatusRegistered  Status = "registered"
	StatusInAnalysis  Status = "in_analysis"
	StatusTransferred Status = "transferred"
	StatusVerified    Status = "verified"
	StatusArchived    Status = "archived"
)

// transitions is the set of permitted next states for each state.
// archived is terminal.
var transitions = map[Status][]Status{
	StatusRegistered:  {StatusInAnalysis, StatusTransferred, StatusVerified},
	StatusInAnalysis:  {StatusTransferred, StatusVerified},
	StatusTransferred: {StatusInAnalysis, StatusTransferred, StatusVerified},
	StatusVerified:    {StatusInAnalysis, StatusTransferred, StatusVerified, StatusArchived},
	StatusArchived:    nil,
}

// ParseStatus converts a wire string to a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return status, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether moving from s to next is permitted.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

func (s Status) String() string { return string(s) }
