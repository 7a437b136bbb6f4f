package util

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	snappy "github.com/segmentio/kafka-go/compress/snappy/go-xerial-snappy"
)

// Codec is the compression codec stored in the low three bits of a record
// batch's attributes.
type Codec int8

const (
	CodecNone Codec = iota
	CodecGzip
	CodecSnappy
	CodecLZ4
	CodecZstd
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecGzip:
		return "gzip"
	case CodecSnappy:
		return "snappy"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", int8(c))
	}
}

// ParseCodec maps a compression type name to its codec.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "":
		return CodecNone, nil
	case "gzip":
		return CodecGzip, nil
	case "snappy":
		return CodecSnappy, nil
	case "lz4":
		return CodecLZ4, nil
	case "zstd":
		return CodecZstd, nil
	default:
		return CodecNone, fmt.Errorf("unsupported compression type: %s", name)
	}
}

var (
	zstdOnce sync.Once
	zstdDec  *zstd.Decoder
	zstdEnc  *zstd.Encoder
	zstdErr  error
)

func zstdCodec() (*zstd.Decoder, *zstd.Encoder, error) {
	zstdOnce.Do(func() {
		if zstdDec, zstdErr = zstd.NewReader(nil); zstdErr != nil {
			return
		}
		zstdEnc, zstdErr = zstd.NewWriter(nil)
	})
	return zstdDec, zstdEnc, zstdErr
}

// Compress compresses data with the given codec.
func Compress(data []byte, codec Codec) ([]byte, error) {
	switch codec {
	case CodecGzip:
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(data); err != nil {
			return nil, err
		}
		if err := gw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case CodecSnappy:
		return snappy.Encode(data), nil

	case CodecLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case CodecZstd:
		_, enc, err := zstdCodec()
		if err != nil {
			return nil, err
		}
		return enc.EncodeAll(data, nil), nil

	case CodecNone:
		return data, nil

	default:
		return nil, fmt.Errorf("unsupported compression codec: %s", codec)
	}
}

// DecompressInto decompresses data into dst, reusing its capacity. The
// returned slice may be a grown copy of dst.
func DecompressInto(dst, data []byte, codec Codec) ([]byte, error) {
	switch codec {
	case CodecGzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return dst, err
		}
		defer func() {
			if err := gr.Close(); err != nil {
				Error("failed to close gzip reader: %v", err)
			}
		}()
		buf := bytes.NewBuffer(dst[:0])
		if _, err := buf.ReadFrom(gr); err != nil {
			return buf.Bytes(), err
		}
		return buf.Bytes(), nil

	case CodecSnappy:
		out, err := snappy.Decode(data)
		if err != nil {
			return dst, err
		}
		return append(dst[:0], out...), nil

	case CodecLZ4:
		buf := bytes.NewBuffer(dst[:0])
		if _, err := buf.ReadFrom(lz4.NewReader(bytes.NewReader(data))); err != nil {
			return buf.Bytes(), err
		}
		return buf.Bytes(), nil

	case CodecZstd:
		dec, _, err := zstdCodec()
		if err != nil {
			return dst, err
		}
		return dec.DecodeAll(data, dst[:0])

	case CodecNone:
		return append(dst[:0], data...), nil

	default:
		return dst, fmt.Errorf("unsupported compression codec: %s", codec)
	}
}

// Decompress decompresses data into a freshly allocated slice.
func Decompress(data []byte, codec Codec) ([]byte, error) {
	return DecompressInto(nil, data, codec)
}
