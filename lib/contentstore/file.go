// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/custody/lib/clock"
	"github.com/bureau-foundation/custody/lib/secret"
)

// Blob header layout:
//
//	[magic "CUS1"][flags: 1 byte][compression: 1 byte][plaintext size: uvarint]
//
// followed by the payload: the compressed bytes, or when flagEncrypted
// is set, nonce || ciphertext || tag with the header as AAD.
var blobMagic = []byte("CUS1")

const flagEncrypted byte = 1 << 0

// DefaultMaxBlobSize bounds the plaintext of one blob when
// FileStoreOptions.MaxBlobSize is zero. It matches the socket's upload
// limit.
const DefaultMaxBlobSize = 64 << 20

// keyGenerationAttempts bounds retries when a generated key already
// exists on disk.
const keyGenerationAttempts = 8

// FileStoreOptions configures a [FileStore].
type FileStoreOptions struct {
	// Clock stamps generated keys. Defaults to clock.Real().
	Clock clock.Clock

	// Compression selects the compression policy. Defaults to
	// CompressionAuto.
	Compression CompressionMode

	// MasterKey enables at-rest encryption when non-nil. The store
	// borrows the buffer; the caller closes it after the store is no
	// longer used.
	MasterKey *secret.Buffer

	// MaxBlobSize bounds both what Put accepts and the plaintext size
	// a header may declare on Get. Defaults to DefaultMaxBlobSize.
	MaxBlobSize int64

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// FileStore keeps one blob file per key under root/blobs. Writes go to
// root/tmp first and are linked into place, so a blob is either
// complete or absent. Safe for concurrent use.
type FileStore struct {
	blobDir     string
	tmpDir      string
	clock       clock.Clock
	compression CompressionMode
	maxBlobSize int64
	sealer      *sealer
	logger      *slog.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the directory structure under root and returns
// a store writing into it.
func NewFileStore(root string, options FileStoreOptions) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("content store root is empty")
	}
	store := &FileStore{
		blobDir:     filepath.Join(root, "blobs"),
		tmpDir:      filepath.Join(root, "tmp"),
		clock:       options.Clock,
		compression: options.Compression,
		maxBlobSize: options.MaxBlobSize,
		logger:      options.Logger,
	}
	if store.clock == nil {
		store.clock = clock.Real()
	}
	if store.compression == "" {
		store.compression = CompressionAuto
	}
	if store.maxBlobSize <= 0 {
		store.maxBlobSize = DefaultMaxBlobSize
	}
	if store.logger == nil {
		store.logger = slog.New(slog.DiscardHandler)
	}
	if options.MasterKey != nil {
		sealer, err := newSealer(options.MasterKey)
		if err != nil {
			return nil, err
		}
		store.sealer = sealer
	}
	for _, directory := range []string{store.blobDir, store.tmpDir} {
		if err := os.MkdirAll(directory, 0o700); err != nil {
			return nil, fmt.Errorf("creating content store directory: %w", err)
		}
	}
	return store, nil
}

// Encrypted reports whether blobs are sealed at rest.
func (s *FileStore) Encrypted() bool { return s.sealer != nil }

// Hash returns the content hash of data.
func (s *FileStore) Hash(data []byte) string { return Hash(data) }

// Put encodes data into a new blob and returns its key and hash.
func (s *FileStore) Put(ctx context.Context, data []byte, originalFilename string) (PutResult, error) {
	if len(data) == 0 {
		return PutResult{}, ErrEmptyContent
	}
	if int64(len(data)) > s.maxBlobSize {
		return PutResult{}, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), s.maxBlobSize)
	}
	if err := ctx.Err(); err != nil {
		return PutResult{}, err
	}

	payload, algorithm, err := compress(data, originalFilename, s.compression)
	if err != nil {
		return PutResult{}, err
	}

	for range keyGenerationAttempts {
		key := NewKey(s.clock.Now(), randomSuffix(), originalFilename)
		blob, err := s.encode(key, payload, algorithm, len(data))
		if err != nil {
			return PutResult{}, err
		}
		err = s.writeBlob(key, blob)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return PutResult{}, err
		}
		s.logger.Debug("stored blob",
			"key", key,
			"size", len(data),
			"stored_size", len(blob),
			"compression", algorithm.String(),
			"encrypted", s.sealer != nil,
		)
		return PutResult{Key: key, Hash: Hash(data), Size: int64(len(data))}, nil
	}
	return PutResult{}, fmt.Errorf("could not allocate a unique content key after %d attempts", keyGenerationAttempts)
}

// Get reads and decodes the blob stored under key.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(filepath.Join(s.blobDir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", key, err)
	}
	return s.decode(key, blob)
}

func (s *FileStore) encode(key string, payload []byte, algorithm Compression, size int) ([]byte, error) {
	header := make([]byte, 0, len(blobMagic)+2+binary.MaxVarintLen64)
	header = append(header, blobMagic...)
	var flags byte
	if s.sealer != nil {
		flags |= flagEncrypted
	}
	header = append(header, flags, byte(algorithm))
	header = binary.AppendUvarint(header, uint64(size))

	if s.sealer != nil {
		sealed, err := s.sealer.seal(key, header, payload)
		if err != nil {
			return nil, err
		}
		payload = sealed
	}
	blob := make([]byte, 0, len(header)+len(payload))
	blob = append(blob, header...)
	return append(blob, payload...), nil
}

func (s *FileStore) decode(key string, blob []byte) ([]byte, error) {
	if len(blob) < len(blobMagic)+3 || !bytes.Equal(blob[:len(blobMagic)], blobMagic) {
		return nil, fmt.Errorf("%w: %s has no blob header", ErrCorrupt, key)
	}
	flags := blob[len(blobMagic)]
	algorithm := Compression(blob[len(blobMagic)+1])
	size, read := binary.Uvarint(blob[len(blobMagic)+2:])
	if read <= 0 || size == 0 {
		return nil, fmt.Errorf("%w: %s has an invalid size field", ErrCorrupt, key)
	}
	if size > uint64(s.maxBlobSize) {
		return nil, fmt.Errorf("%w: %s declares %d bytes, limit %d", ErrCorrupt, key, size, s.maxBlobSize)
	}
	headerLength := len(blobMagic) + 2 + read
	header, payload := blob[:headerLength], blob[headerLength:]

	if flags&flagEncrypted != 0 {
		if s.sealer == nil {
			return nil, fmt.Errorf("%w: %s is encrypted and no store key is configured", ErrCorrupt, key)
		}
		plaintext, err := s.sealer.open(key, header, payload)
		if err != nil {
			return nil, fmt.Errorf("blob %s: %w", key, err)
		}
		payload = plaintext
	}

	data, err := decompress(payload, algorithm, int(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return data, nil
}

// writeBlob writes blob to a temporary file and links it to its final
// name. os.Link fails with fs.ErrExist instead of replacing an
// existing blob.
func (s *FileStore) writeBlob(key string, blob []byte) error {
	temporary, err := os.CreateTemp(s.tmpDir, "put-*")
	if err != nil {
		return fmt.Errorf("creating temporary blob: %w", err)
	}
	temporaryPath := temporary.Name()
	defer os.Remove(temporaryPath)

	if _, err := temporary.Write(blob); err != nil {
		temporary.Close()
		return fmt.Errorf("writing temporary blob: %w", err)
	}
	if err := temporary.Sync(); err != nil {
		temporary.Close()
		return fmt.Errorf("syncing temporary blob: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("closing temporary blob: %w", err)
	}
	if err := os.Link(temporaryPath, filepath.Join(s.blobDir, key)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return err
		}
		return fmt.Errorf("publishing blob %s: %w", key, err)
	}
	return nil
}
