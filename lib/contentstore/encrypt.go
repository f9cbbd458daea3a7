// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/bureau-foundation/custody/lib/secret"
)

// KeySize is the length of the master key and of every per-blob key.
const KeySize = 32

// hkdfInfoBlob prefixes the storage key in the HKDF info parameter, so
// every blob is sealed under its own key.
var hkdfInfoBlob = []byte("custody.blob.v1")

// sealer encrypts blob payloads under keys derived from a master key.
// The master key is borrowed; the caller owns and closes it.
type sealer struct {
	masterKey *secret.Buffer
}

func newSealer(masterKey *secret.Buffer) (*sealer, error) {
	if masterKey.Len() != KeySize {
		return nil, fmt.Errorf("store encryption key must be %d bytes, got %d", KeySize, masterKey.Len())
	}
	return &sealer{masterKey: masterKey}, nil
}

// seal returns nonce || ciphertext || tag. header is authenticated but
// not encrypted.
func (s *sealer) seal(key string, header, plaintext []byte) ([]byte, error) {
	blobKey, err := s.deriveBlobKey(key)
	if err != nil {
		return nil, err
	}
	defer blobKey.Close()

	aead, err := chacha20poly1305.NewX(blobKey.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	output := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, output); err != nil {
		return nil, fmt.Errorf("generating random nonce: %w", err)
	}
	return aead.Seal(output, output[:chacha20poly1305.NonceSizeX], plaintext, header), nil
}

// open reverses seal. Any tampering with the header, nonce, or
// ciphertext fails authentication.
func (s *sealer) open(key string, header, sealed []byte) ([]byte, error) {
	if len(sealed) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: sealed payload is %d bytes", ErrCorrupt, len(sealed))
	}
	blobKey, err := s.deriveBlobKey(key)
	if err != nil {
		return nil, err
	}
	defer blobKey.Close()

	aead, err := chacha20poly1305.NewX(blobKey.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	nonce := sealed[:chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, sealed[chacha20poly1305.NonceSizeX:], header)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed: %v", ErrCorrupt, err)
	}
	return plaintext, nil
}

// deriveBlobKey runs HKDF-SHA256 over the master key with info
// "custody.blob.v1" || key. The salt is nil: the master key is
// already uniformly random.
func (s *sealer) deriveBlobKey(key string) (*secret.Buffer, error) {
	info := make([]byte, 0, len(hkdfInfoBlob)+len(key))
	info = append(info, hkdfInfoBlob...)
	info = append(info, key...)

	reader := hkdf.New(sha256.New, s.masterKey.Bytes(), nil, info)
	derived := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		secret.Zero(derived)
		return nil, fmt.Errorf("HKDF key derivation failed: %w", err)
	}
	return secret.NewFromBytes(derived)
}
