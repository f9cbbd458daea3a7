// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type sampleFrame struct {
	Action   string `cbor:"action"`
	Evidence string `cbor:"evidence,omitempty"`
	Count    int    `cbor:"count"`
}

type sampleDual struct {
	Version int       `json:"version"`
	Name    string    `json:"name"`
	At      time.Time `json:"at"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleFrame{Action: "transfer", Evidence: "EVD-0A1B2C3D", Count: 2}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleFrame
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministicMapOrder(t *testing.T) {
	first, err := Marshal(map[string]any{"zeta": 1, "alpha": 2, "mid": 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 20 {
		again, err := Marshal(map[string]any{"mid": 3, "alpha": 2, "zeta": 1})
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("map encoding not deterministic: %x != %x", first, again)
		}
	}
}

func TestTimePreservesNanoseconds(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 123456789, time.UTC)
	data, err := Marshal(sampleDual{Version: 1, Name: "n", At: at})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded sampleDual
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.At.Equal(at) {
		t.Errorf("At = %v, want %v", decoded.At, at)
	}
}

func TestStreamRoundtrip(t *testing.T) {
	frames := []sampleFrame{
		{Action: "register", Count: 1},
		{Action: "verify", Evidence: "EVD-1", Count: 2},
	}
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, frame := range frames {
		if err := encoder.Encode(frame); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range frames {
		var got sampleFrame
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode[%d]: %v", i, err)
		}
		if got != want {
			t.Errorf("frame %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestDecodeAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"nested": map[string]any{"k": "v"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	top, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if _, ok := top["nested"].(map[string]any); !ok {
		t.Errorf("nested type = %T, want map[string]any", top["nested"])
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(sampleFrame{Action: "status"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"status"`) {
		t.Errorf("Diagnose = %q, want it to contain the action", diagnostic)
	}
}
