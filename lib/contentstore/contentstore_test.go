// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/custody/lib/clock"
	"github.com/bureau-foundation/custody/lib/secret"
)

var epoch = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

var keyPattern = regexp.MustCompile(`^20260314_092653_[0-9a-f]{8}(\.[a-z0-9]+)?$`)

func newMasterKey(t *testing.T) *secret.Buffer {
	t.Helper()
	raw := make([]byte, KeySize)
	if _, err := rand.Read(raw); err != nil {
		t.Fatal(err)
	}
	key, err := secret.NewFromBytes(raw)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	t.Cleanup(func() { key.Close() })
	return key
}

func newFileStore(t *testing.T, options FileStoreOptions) *FileStore {
	t.Helper()
	if options.Clock == nil {
		options.Clock = clock.Fake(epoch)
	}
	store, err := NewFileStore(t.TempDir(), options)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func textContent() []byte {
	return bytes.Repeat([]byte("2026-03-14 09:26:53 suspect messaged contact: meet at dock 4\n"), 200)
}

func randomContent(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}
	return data
}

func TestHashIsStableAndHex(t *testing.T) {
	first := Hash([]byte("photo"))
	if first != Hash([]byte("photo")) {
		t.Error("Hash is not deterministic")
	}
	if len(first) != 64 {
		t.Errorf("len(Hash) = %d, want 64", len(first))
	}
	if first == Hash([]byte("photO")) {
		t.Error("different inputs produced the same hash")
	}
}

func TestNewKey(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"IMG_0001.JPG", "20260314_092653_deadbeef.jpg"},
		{"chat.log", "20260314_092653_deadbeef.log"},
		{"noextension", "20260314_092653_deadbeef"},
		{"weird.ex$t", "20260314_092653_deadbeef"},
		{"archive.tar.gz", "20260314_092653_deadbeef.gz"},
	}
	for _, test := range tests {
		if got := NewKey(epoch, "deadbeef", test.filename); got != test.want {
			t.Errorf("NewKey(%q) = %q, want %q", test.filename, got, test.want)
		}
	}
}

func TestValidateKey(t *testing.T) {
	if err := ValidateKey("20260314_092653_deadbeef.jpg"); err != nil {
		t.Errorf("ValidateKey: %v", err)
	}
	for _, bad := range []string{"", "../20260314_092653_deadbeef", "a/b", "short", "notatime_xx_deadbeef", "20260314_092653_dead..ef"} {
		if err := ValidateKey(bad); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ValidateKey(%q) = %v, want ErrInvalidKey", bad, err)
		}
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     func(t *testing.T) []byte
		mode     CompressionMode
		want     Compression
	}{
		{"text auto", "chat.txt", func(*testing.T) []byte { return textContent() }, CompressionAuto, CompressionZstd},
		{"binary forced lz4", "dump.bin", func(*testing.T) []byte { return bytes.Repeat([]byte{0, 1, 2, 3, 4, 5, 6, 7}, 4096) }, ModeLZ4, CompressionLZ4},
		{"media auto", "scene.jpg", func(t *testing.T) []byte { return randomContent(t, 4096) }, CompressionAuto, CompressionNone},
		{"random forced zstd", "noise.bin", func(t *testing.T) []byte { return randomContent(t, 4096) }, ModeZstd, CompressionNone},
		{"forced none", "chat.txt", func(*testing.T) []byte { return textContent() }, ModeNone, CompressionNone},
	}
	for _, encrypted := range []bool{false, true} {
		for _, test := range tests {
			name := test.name
			if encrypted {
				name += " encrypted"
			}
			t.Run(name, func(t *testing.T) {
				options := FileStoreOptions{Compression: test.mode}
				if encrypted {
					options.MasterKey = newMasterKey(t)
				}
				store := newFileStore(t, options)
				data := test.data(t)

				result, err := store.Put(context.Background(), data, test.filename)
				if err != nil {
					t.Fatalf("Put: %v", err)
				}
				if !keyPattern.MatchString(result.Key) {
					t.Errorf("key %q does not match %s", result.Key, keyPattern)
				}
				if result.Hash != Hash(data) {
					t.Errorf("Hash = %s, want %s", result.Hash, Hash(data))
				}
				if result.Size != int64(len(data)) {
					t.Errorf("Size = %d, want %d", result.Size, len(data))
				}

				blob, err := os.ReadFile(filepath.Join(store.blobDir, result.Key))
				if err != nil {
					t.Fatalf("reading blob: %v", err)
				}
				if got := Compression(blob[len(blobMagic)+1]); got != test.want {
					t.Errorf("compression = %s, want %s", got, test.want)
				}
				if encrypted != (blob[len(blobMagic)]&flagEncrypted != 0) {
					t.Errorf("encrypted flag = %v, want %v", !encrypted, encrypted)
				}

				got, err := store.Get(context.Background(), result.Key)
				if err != nil {
					t.Fatalf("Get: %v", err)
				}
				if !bytes.Equal(got, data) {
					t.Error("Get returned different bytes")
				}
			})
		}
	}
}

func TestFileStoreEncryptedTamperFailsGet(t *testing.T) {
	store := newFileStore(t, FileStoreOptions{MasterKey: newMasterKey(t)})
	result, err := store.Put(context.Background(), textContent(), "chat.txt")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	path := filepath.Join(store.blobDir, result.Key)
	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	blob[len(blob)-1] ^= 0xff
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(context.Background(), result.Key); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Get after tamper = %v, want ErrCorrupt", err)
	}
}

func TestFileStoreEncryptedHeaderIsAuthenticated(t *testing.T) {
	store := newFileStore(t, FileStoreOptions{MasterKey: newMasterKey(t), Compression: ModeNone})
	result, err := store.Put(context.Background(), []byte("exhibit"), "a.bin")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	path := filepath.Join(store.blobDir, result.Key)
	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	blob[len(blobMagic)+1] = byte(CompressionLZ4)
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(context.Background(), result.Key); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Get after header change = %v, want ErrCorrupt", err)
	}
}

func TestFileStoreWrongKeyFails(t *testing.T) {
	root := t.TempDir()
	writer, err := NewFileStore(root, FileStoreOptions{Clock: clock.Fake(epoch), MasterKey: newMasterKey(t)})
	if err != nil {
		t.Fatal(err)
	}
	result, err := writer.Put(context.Background(), []byte("sealed"), "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	reader, err := NewFileStore(root, FileStoreOptions{Clock: clock.Fake(epoch), MasterKey: newMasterKey(t)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reader.Get(context.Background(), result.Key); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Get with another key = %v, want ErrCorrupt", err)
	}
	plain, err := NewFileStore(root, FileStoreOptions{Clock: clock.Fake(epoch)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := plain.Get(context.Background(), result.Key); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Get without key = %v, want ErrCorrupt", err)
	}
}

func TestFileStoreUnencryptedTamperChangesBytes(t *testing.T) {
	store := newFileStore(t, FileStoreOptions{Compression: ModeNone})
	original := []byte("original evidence bytes")
	result, err := store.Put(context.Background(), original, "note.bin")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(store.blobDir, result.Key)
	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	blob[len(blob)-1] = 'X'
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(context.Background(), result.Key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if Hash(got) == result.Hash {
		t.Error("tampered bytes hash to the registered hash")
	}
}

// writeRawBlob replaces the blob under key with an unencrypted header
// declaring size, followed by payload.
func writeRawBlob(t *testing.T, store *FileStore, key string, algorithm Compression, size uint64, payload []byte) {
	t.Helper()
	blob := append([]byte("CUS1"), 0, byte(algorithm))
	blob = binary.AppendUvarint(blob, size)
	blob = append(blob, payload...)
	if err := os.WriteFile(filepath.Join(store.blobDir, key), blob, 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFileStoreTamperedSizeHeader(t *testing.T) {
	store := newFileStore(t, FileStoreOptions{})
	data := make([]byte, 64)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}
	result, err := store.Put(context.Background(), data, "capture.bin")
	if err != nil {
		t.Fatal(err)
	}

	zeros := zstdEncoder.EncodeAll(make([]byte, 4096), nil)
	tests := []struct {
		name      string
		algorithm Compression
		size      uint64
		payload   []byte
	}{
		{"zstd past limit", CompressionZstd, 1 << 34, zstdEncoder.EncodeAll(nil, nil)},
		{"lz4 past limit", CompressionLZ4, 1 << 34, make([]byte, 16)},
		{"lz4 beyond expansion", CompressionLZ4, 1 << 20, make([]byte, 16)},
		{"zstd frame larger than header", CompressionZstd, 10, zeros},
		{"none past limit", CompressionNone, DefaultMaxBlobSize + 1, data},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			writeRawBlob(t, store, result.Key, test.algorithm, test.size, test.payload)
			if _, err := store.Get(context.Background(), result.Key); !errors.Is(err, ErrCorrupt) {
				t.Errorf("Get = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestFileStoreMaxBlobSize(t *testing.T) {
	store := newFileStore(t, FileStoreOptions{MaxBlobSize: 16})
	if _, err := store.Put(context.Background(), bytes.Repeat([]byte("a"), 17), "a.txt"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Put(17 bytes) = %v, want ErrTooLarge", err)
	}
	result, err := store.Put(context.Background(), bytes.Repeat([]byte("a"), 16), "a.txt")
	if err != nil {
		t.Fatalf("Put(16 bytes): %v", err)
	}
	writeRawBlob(t, store, result.Key, CompressionNone, 17, bytes.Repeat([]byte("a"), 17))
	if _, err := store.Get(context.Background(), result.Key); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Get(declared 17 bytes) = %v, want ErrCorrupt", err)
	}
}

func TestFileStoreErrors(t *testing.T) {
	store := newFileStore(t, FileStoreOptions{})
	if _, err := store.Put(context.Background(), nil, "a.txt"); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("Put(empty) = %v, want ErrEmptyContent", err)
	}
	if _, err := store.Get(context.Background(), "20260314_092653_00000000.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
	if _, err := store.Get(context.Background(), "../../etc/passwd"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Get(traversal) = %v, want ErrInvalidKey", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, []byte("x"), "a.txt"); !errors.Is(err, context.Canceled) {
		t.Errorf("Put(cancelled) = %v, want context.Canceled", err)
	}
}

func TestFileStoreRejectsShortMasterKey(t *testing.T) {
	short, err := secret.NewFromBytes([]byte("too short"))
	if err != nil {
		t.Fatal(err)
	}
	defer short.Close()
	_, err = NewFileStore(t.TempDir(), FileStoreOptions{MasterKey: short})
	if err == nil || !strings.Contains(err.Error(), "32 bytes") {
		t.Errorf("NewFileStore(short key) = %v, want key size error", err)
	}
}

func TestFileStoreDistinctKeysForSameSecond(t *testing.T) {
	store := newFileStore(t, FileStoreOptions{})
	seen := make(map[string]bool)
	for range 50 {
		result, err := store.Put(context.Background(), []byte("same"), "a.txt")
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if seen[result.Key] {
			t.Fatalf("duplicate key %s", result.Key)
		}
		seen[result.Key] = true
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(clock.Fake(epoch))
	data := []byte("memory evidence")
	result, err := store.Put(context.Background(), data, "m.txt")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !keyPattern.MatchString(result.Key) {
		t.Errorf("key %q does not match %s", result.Key, keyPattern)
	}
	data[0] = 'X'
	got, err := store.Get(context.Background(), result.Key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "memory evidence" {
		t.Errorf("Get = %q; Put did not copy its input", got)
	}

	if err := store.Overwrite(result.Key, []byte("tampered")); err != nil {
		t.Fatalf("Overwrite: %v", err)
	}
	got, _ = store.Get(context.Background(), result.Key)
	if Hash(got) == result.Hash {
		t.Error("overwritten content still matches the original hash")
	}

	store.Remove(result.Key)
	if _, err := store.Get(context.Background(), result.Key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Remove = %v, want ErrNotFound", err)
	}
	if err := store.Overwrite(result.Key, []byte("x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Overwrite(missing) = %v, want ErrNotFound", err)
	}
	if _, err := store.Put(context.Background(), nil, "a"); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("Put(empty) = %v, want ErrEmptyContent", err)
	}
}
