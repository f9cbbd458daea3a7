// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts evidence export bundles to external
// recipients with age (filippo.io/age). Recipients are x25519 public
// keys in "age1..." form. Sealed output is ASCII-armored so that it
// can travel in JSON responses and be written straight to a file.
//
// Private keys and decrypted plaintext are returned in
// [secret.Buffer] values, outside the Go heap and zeroed on Close.
package sealed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/bureau-foundation/custody/lib/secret"
)

// ErrNoRecipients is returned by Seal for an empty recipient list.
var ErrNoRecipients = errors.New("at least one recipient is required")

// Keypair is an age x25519 keypair. The caller must Close it.
type Keypair struct {
	// PrivateKey is "AGE-SECRET-KEY-1..." in guarded memory.
	PrivateKey *secret.Buffer

	// PublicKey is the "age1..." recipient string.
	PublicKey string
}

// Close releases the private key memory. Idempotent.
func (k *Keypair) Close() error {
	if k.PrivateKey != nil {
		return k.PrivateKey.Close()
	}
	return nil
}

// GenerateKeypair returns a new x25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age keypair: %w", err)
	}
	privateKey, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("protecting private key: %w", err)
	}
	return &Keypair{PrivateKey: privateKey, PublicKey: identity.Recipient().String()}, nil
}

// ParseRecipients parses age public keys. The error names the first
// invalid key by position.
func ParseRecipients(keys []string) ([]age.Recipient, error) {
	if len(keys) == 0 {
		return nil, ErrNoRecipients
	}
	recipients := make([]age.Recipient, 0, len(keys))
	for index, key := range keys {
		recipient, err := age.ParseX25519Recipient(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("recipient %d: %w", index, err)
		}
		recipients = append(recipients, recipient)
	}
	return recipients, nil
}

// Seal encrypts plaintext to every recipient and returns the armored
// ciphertext.
func Seal(plaintext []byte, recipientKeys []string) ([]byte, error) {
	recipients, err := ParseRecipients(recipientKeys)
	if err != nil {
		return nil, err
	}

	var output bytes.Buffer
	armorWriter := armor.NewWriter(&output)
	encryptor, err := age.Encrypt(armorWriter, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := encryptor.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext: %w", err)
	}
	if err := encryptor.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return nil, fmt.Errorf("finalizing armor: %w", err)
	}
	return output.Bytes(), nil
}

// Open decrypts ciphertext produced by Seal. Binary (unarmored) age
// files are accepted too. The private key is borrowed, not closed.
func Open(ciphertext []byte, privateKey *secret.Buffer) (*secret.Buffer, error) {
	identity, err := age.ParseX25519Identity(strings.TrimSpace(privateKey.String()))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	var source io.Reader = bytes.NewReader(ciphertext)
	if bytes.HasPrefix(bytes.TrimSpace(ciphertext), []byte(armor.Header)) {
		source = armor.NewReader(bytes.NewReader(ciphertext))
	}
	reader, err := age.Decrypt(source, identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("sealed payload is empty")
	}
	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("protecting decrypted plaintext: %w", err)
	}
	return buffer, nil
}

// ParsePublicKey validates one age public key.
func ParsePublicKey(publicKey string) error {
	if _, err := age.ParseX25519Recipient(publicKey); err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}
