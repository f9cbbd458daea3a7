// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func newKeypair(t *testing.T) *Keypair {
	t.Helper()
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	t.Cleanup(func() { keypair.Close() })
	return keypair
}

func TestGenerateKeypair(t *testing.T) {
	keypair := newKeypair(t)
	if !strings.HasPrefix(keypair.PublicKey, "age1") {
		t.Errorf("PublicKey = %q, want age1 prefix", keypair.PublicKey)
	}
	if !strings.HasPrefix(keypair.PrivateKey.String(), "AGE-SECRET-KEY-1") {
		t.Error("PrivateKey does not have the AGE-SECRET-KEY-1 prefix")
	}
	if err := ParsePublicKey(keypair.PublicKey); err != nil {
		t.Errorf("ParsePublicKey: %v", err)
	}
	if newKeypair(t).PublicKey == keypair.PublicKey {
		t.Error("two generated keypairs share a public key")
	}
}

func TestSealOpenMultipleRecipients(t *testing.T) {
	registry := newKeypair(t)
	foreignCourt := newKeypair(t)
	plaintext := []byte("export bundle for mutual legal assistance request")

	ciphertext, err := Seal(plaintext, []string{registry.PublicKey, foreignCourt.PublicKey})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !bytes.HasPrefix(ciphertext, []byte("-----BEGIN AGE ENCRYPTED FILE-----")) {
		t.Errorf("ciphertext is not armored: %q", ciphertext[:min(40, len(ciphertext))])
	}
	if bytes.Contains(ciphertext, plaintext) {
		t.Error("ciphertext contains the plaintext")
	}

	for name, keypair := range map[string]*Keypair{"registry": registry, "court": foreignCourt} {
		opened, err := Open(ciphertext, keypair.PrivateKey)
		if err != nil {
			t.Fatalf("Open(%s): %v", name, err)
		}
		if !bytes.Equal(opened.Bytes(), plaintext) {
			t.Errorf("Open(%s) = %q, want %q", name, opened.Bytes(), plaintext)
		}
		opened.Close()
	}
}

func TestOpenWrongKey(t *testing.T) {
	ciphertext, err := Seal([]byte("secret"), []string{newKeypair(t).PublicKey})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := Open(ciphertext, newKeypair(t).PrivateKey); err == nil {
		t.Error("Open with an unrelated key succeeded")
	}
}

func TestOpenCorrupted(t *testing.T) {
	keypair := newKeypair(t)
	ciphertext, err := Seal([]byte("secret"), []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	corrupted := bytes.Replace(ciphertext, []byte("\n"), []byte("\nAAAA"), 2)
	if _, err := Open(corrupted, keypair.PrivateKey); err == nil {
		t.Error("Open of corrupted ciphertext succeeded")
	}
}

func TestSealRejectsBadRecipients(t *testing.T) {
	if _, err := Seal([]byte("x"), nil); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("Seal(no recipients) = %v, want ErrNoRecipients", err)
	}
	_, err := Seal([]byte("x"), []string{newKeypair(t).PublicKey, "not-a-key"})
	if err == nil || !strings.Contains(err.Error(), "recipient 1") {
		t.Errorf("Seal(bad recipient) = %v, want error naming recipient 1", err)
	}
}
