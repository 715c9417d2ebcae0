// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies how a cached body is stored. The values are
// persisted in the summaries table.
type Codec uint8

const (
	CodecNone Codec = 0
	CodecLZ4  Codec = 1
	CodecZstd Codec = 2
)

// zstdThreshold is the body size at which zstd replaces LZ4. Summaries
// are text, where zstd's better ratio pays off once there is enough of
// it.
const zstdThreshold = 4096

var errIncompressible = errors.New("incompressible")

// String returns the codec name.
func (codec Codec) String() string {
	switch codec {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", codec)
	}
}

// zstd encoders and decoders are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("content: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("content: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress picks a codec by size and compresses data with it. When the
// chosen codec does not shrink the data, the bytes are returned as-is
// with CodecNone.
func Compress(data []byte) ([]byte, Codec) {
	var (
		compressed []byte
		err        error
		codec      Codec
	)
	if len(data) >= zstdThreshold {
		codec = CodecZstd
		compressed, err = compressZstd(data)
	} else {
		codec = CodecLZ4
		compressed, err = compressLZ4(data)
	}
	if err != nil {
		return data, CodecNone
	}
	return compressed, codec
}

// Decompress reverses Compress. size is the uncompressed length, which
// LZ4 block decoding needs and every codec verifies.
func Decompress(body []byte, codec Codec, size int) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch codec {
	case CodecNone:
		data = body
	case CodecLZ4:
		data = make([]byte, size)
		var read int
		read, err = lz4.UncompressBlock(body, data)
		data = data[:max(read, 0)]
	case CodecZstd:
		data, err = zstdDecoder.DecodeAll(body, make([]byte, 0, size))
	default:
		return nil, fmt.Errorf("content: unsupported codec %d", codec)
	}
	if err != nil {
		return nil, fmt.Errorf("content: %s decompress: %w", codec, err)
	}
	if len(data) != size {
		return nil, fmt.Errorf("content: %s decompress: got %d bytes, expected %d", codec, len(data), size)
	}
	return data, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// Zero means lz4 judged the input incompressible.
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
