// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how a blob payload is encoded. Values are
// stored in blob headers; changing them breaks existing blobs.
type Compression uint8

const (
	// CompressionNone stores bytes as given. Used for media formats
	// that are already compressed and whenever compression would not
	// shrink the data.
	CompressionNone Compression = 0

	// CompressionLZ4 is LZ4 block compression, used for binary
	// content of unknown type.
	CompressionLZ4 Compression = 1

	// CompressionZstd is zstd at the default level, used for
	// text-like content: logs, chat exports, CSV, JSON, email.
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// CompressionMode selects the compression policy of a [FileStore].
type CompressionMode string

const (
	// CompressionAuto chooses per blob from the filename and a probe.
	CompressionAuto CompressionMode = "auto"

	ModeNone CompressionMode = "none"
	ModeLZ4  CompressionMode = "lz4"
	ModeZstd CompressionMode = "zstd"
)

// ParseCompressionMode accepts "auto", "none", "lz4", "zstd", and the
// empty string (auto).
func ParseCompressionMode(s string) (CompressionMode, error) {
	switch mode := CompressionMode(strings.ToLower(s)); mode {
	case "", CompressionAuto:
		return CompressionAuto, nil
	case ModeNone, ModeLZ4, ModeZstd:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown compression mode %q (want auto, none, lz4, or zstd)", s)
	}
}

var textExtensions = map[string]bool{
	".txt": true, ".log": true, ".csv": true, ".tsv": true, ".json": true,
	".xml": true, ".html": true, ".htm": true, ".md": true, ".eml": true,
	".mbox": true, ".sql": true, ".yaml": true, ".yml": true, ".vcf": true,
}

var compressedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".heic": true, ".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".mp3": true, ".m4a": true, ".aac": true, ".ogg": true, ".zip": true,
	".gz": true, ".7z": true, ".rar": true, ".xz": true, ".zst": true,
	".docx": true, ".xlsx": true, ".pptx": true,
}

// selectCompression picks an algorithm for data named filename. Known
// extensions short-circuit; otherwise a zstd probe decides between
// zstd, LZ4, and none by compression ratio.
func selectCompression(data []byte, filename string) Compression {
	extension := strings.ToLower(filepath.Ext(filename))
	switch {
	case textExtensions[extension]:
		return CompressionZstd
	case compressedExtensions[extension]:
		return CompressionNone
	}

	probe := data
	if len(probe) > probeSize {
		probe = probe[:probeSize]
	}
	compressed := zstdEncoder.EncodeAll(probe, nil)
	ratio := float64(len(probe)) / float64(len(compressed))
	switch {
	case ratio >= 1.5:
		return CompressionZstd
	case ratio >= 1.1:
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// probeSize is how much of a blob the compression probe examines.
const probeSize = 64 << 10

// compress encodes data with the algorithm chosen by mode and returns
// the payload and the algorithm actually used. Data that does not
// shrink is stored uncompressed.
func compress(data []byte, filename string, mode CompressionMode) ([]byte, Compression, error) {
	var algorithm Compression
	switch mode {
	case ModeNone:
		return data, CompressionNone, nil
	case ModeLZ4:
		algorithm = CompressionLZ4
	case ModeZstd:
		algorithm = CompressionZstd
	default:
		algorithm = selectCompression(data, filename)
	}

	var (
		payload []byte
		err     error
	)
	switch algorithm {
	case CompressionNone:
		return data, CompressionNone, nil
	case CompressionLZ4:
		payload, err = compressLZ4(data)
	case CompressionZstd:
		payload, err = compressZstd(data)
	}
	if errors.Is(err, errIncompressible) {
		return data, CompressionNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return payload, algorithm, nil
}

// lz4MaxExpansion bounds the output-to-input ratio of an LZ4 block.
// Each 0xFF length byte adds at most 255 bytes of output.
const lz4MaxExpansion = 255

// zstdMaxMemory caps what the shared decoder will allocate for any one
// frame, whatever its header claims. Callers bound size below this.
const zstdMaxMemory = 1 << 30

// decompress reverses compress. size is the expected plaintext length,
// already capped by the caller at the store's blob limit, and is
// checked exactly.
func decompress(payload []byte, algorithm Compression, size int) ([]byte, error) {
	switch algorithm {
	case CompressionNone:
		if len(payload) != size {
			return nil, fmt.Errorf("uncompressed payload is %d bytes, header says %d", len(payload), size)
		}
		return payload, nil
	case CompressionLZ4:
		if size > len(payload)*lz4MaxExpansion {
			return nil, fmt.Errorf("lz4 payload of %d bytes cannot expand to %d", len(payload), size)
		}
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(payload, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return destination, nil
	case CompressionZstd:
		// The decoder stops at cap(dst), so a frame claiming more
		// than size fails instead of growing the buffer.
		result, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), size)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", algorithm)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("contentstore: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(zstdMaxMemory),
		zstd.WithDecodeAllCapLimit(true),
	)
	if err != nil {
		panic("contentstore: zstd decoder initialization failed: " + err.Error())
	}
}

var errIncompressible = errors.New("data is incompressible")
