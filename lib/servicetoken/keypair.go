// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// PrivateKeyFile and PublicKeyFile are the file names of the
	// signing keypair inside a key directory.
	PrivateKeyFile = "token-signing.key"
	PublicKeyFile  = "token-signing.pub"
)

// GenerateKeypair creates a new Ed25519 keypair for token signing.
func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating Ed25519 keypair: %w", err)
	}
	return public, private, nil
}

// SaveKeypair writes a keypair into keyDir, creating it if needed. The
// private key file is 0600 and the public key file 0644. Each file is
// written to a temporary name and renamed into place.
func SaveKeypair(keyDir string, public ed25519.PublicKey, private ed25519.PrivateKey) error {
	if err := os.MkdirAll(keyDir, 0o700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(keyDir, PrivateKeyFile), private, 0o600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(keyDir, PublicKeyFile), public, 0o644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}
	return nil
}

// LoadKeypair loads a keypair from keyDir and checks that the two
// halves belong together.
func LoadKeypair(keyDir string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	privateBytes, err := readKey(filepath.Join(keyDir, PrivateKeyFile), ed25519.PrivateKeySize)
	if err != nil {
		return nil, nil, fmt.Errorf("reading private key: %w", err)
	}
	public, err := LoadPublicKey(keyDir)
	if err != nil {
		return nil, nil, err
	}
	private := ed25519.PrivateKey(privateBytes)
	if !public.Equal(private.Public()) {
		return nil, nil, fmt.Errorf("public key in %s does not match the private key", keyDir)
	}
	return public, private, nil
}

// LoadPublicKey loads only the verification half from keyDir.
func LoadPublicKey(keyDir string) (ed25519.PublicKey, error) {
	publicBytes, err := readKey(filepath.Join(keyDir, PublicKeyFile), ed25519.PublicKeySize)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	return ed25519.PublicKey(publicBytes), nil
}

// LoadOrGenerateKeypair loads the keypair in keyDir, or generates and
// saves one if the private key file does not exist. The bool reports
// whether a new keypair was generated. A private key that exists but
// cannot be loaded is an error, never silently replaced.
func LoadOrGenerateKeypair(keyDir string) (ed25519.PublicKey, ed25519.PrivateKey, bool, error) {
	public, private, err := LoadKeypair(keyDir)
	if err == nil {
		return public, private, false, nil
	}
	if _, statErr := os.Stat(filepath.Join(keyDir, PrivateKeyFile)); !errors.Is(statErr, fs.ErrNotExist) {
		return nil, nil, false, err
	}

	public, private, err = GenerateKeypair()
	if err != nil {
		return nil, nil, false, err
	}
	if err := SaveKeypair(keyDir, public, private); err != nil {
		return nil, nil, false, err
	}
	return public, private, true, nil
}

func readKey(path string, size int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, fmt.Errorf("%s has %d bytes, want %d", path, len(data), size)
	}
	return data, nil
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	temp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tempPath := temp.Name()
	defer os.Remove(tempPath)
	if _, err := temp.Write(data); err != nil {
		temp.Close()
		return err
	}
	if err := temp.Chmod(mode); err != nil {
		temp.Close()
		return err
	}
	if err := temp.Sync(); err != nil {
		temp.Close()
		return err
	}
	if err := temp.Close(); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}
