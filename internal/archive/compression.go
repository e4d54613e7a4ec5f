package archive

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressor compresses and restores artifact payloads
type Compressor interface {
	Compress(data []byte, level int) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Algorithm() CompressionType
	DefaultLevel() int
}

// Compressors dispatches to a compressor by algorithm
type Compressors struct {
	byType map[CompressionType]Compressor
}

// NewCompressors registers every supported algorithm
func NewCompressors() *Compressors {
	return &Compressors{byType: map[CompressionType]Compressor{
		CompressionTypeGzip: gzipCompressor{},
		CompressionTypeLZ4:  lz4Compressor{},
		CompressionTypeZstd: zstdCompressor{},
	}}
}

// Compress compresses data; NONE returns data unchanged. An out-of-range
// level falls back to the algorithm default.
func (c *Compressors) Compress(data []byte, algorithm CompressionType, level int) ([]byte, error) {
	if algorithm == CompressionTypeNone || algorithm == "" {
		return data, nil
	}
	compressor, ok := c.byType[algorithm]
	if !ok {
		return nil, NewCompressionError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
	if lo, hi, ok := levelRange(algorithm); ok && (level < lo || level > hi) {
		level = compressor.DefaultLevel()
	}
	return compressor.Compress(data, level)
}

// Decompress reverses Compress
func (c *Compressors) Decompress(data []byte, algorithm CompressionType) ([]byte, error) {
	if algorithm == CompressionTypeNone || algorithm == "" {
		return data, nil
	}
	compressor, ok := c.byType[algorithm]
	if !ok {
		return nil, NewCompressionError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
	return compressor.Decompress(data)
}

type gzipCompressor struct{}

func (gzipCompressor) Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, NewCompressionError("failed to create gzip writer", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, NewCompressionError("failed to write data to gzip writer", err)
	}
	if err := writer.Close(); err != nil {
		return nil, NewCompressionError("failed to close gzip writer", err)
	}
	return buf.Bytes(), nil
}

func (gzipCompressor) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, NewCompressionError("failed to create gzip reader", err)
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewCompressionError("failed to decompress gzip data", err)
	}
	return out, nil
}

func (gzipCompressor) Algorithm() CompressionType { return CompressionTypeGzip }
func (gzipCompressor) DefaultLevel() int          { return gzip.DefaultCompression }

type lz4Compressor struct{}

func (lz4Compressor) Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	if level > 6 {
		if err := writer.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, NewCompressionError("failed to set LZ4 high compression", err)
		}
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, NewCompressionError("failed to write data to LZ4 writer", err)
	}
	if err := writer.Close(); err != nil {
		return nil, NewCompressionError("failed to close LZ4 writer", err)
	}
	return buf.Bytes(), nil
}

func (lz4Compressor) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, NewCompressionError("failed to decompress LZ4 data", err)
	}
	return out, nil
}

func (lz4Compressor) Algorithm() CompressionType { return CompressionTypeLZ4 }
func (lz4Compressor) DefaultLevel() int          { return 1 }

type zstdCompressor struct{}

func (zstdCompressor) Compress(data []byte, level int) ([]byte, error) {
	encoderLevel := zstd.SpeedFastest
	switch {
	case level <= 1:
		encoderLevel = zstd.SpeedFastest
	case level <= 3:
		encoderLevel = zstd.SpeedDefault
	case level <= 6:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedBestCompression
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel))
	if err != nil {
		return nil, NewCompressionError("failed to create zstd encoder", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (zstdCompressor) Decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, NewCompressionError("failed to create zstd decoder", err)
	}
	defer decoder.Close()

	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, NewCompressionError("failed to decompress zstd data", err)
	}
	return out, nil
}

func (zstdCompressor) Algorithm() CompressionType { return CompressionTypeZstd }
func (zstdCompressor) DefaultLevel() int          { return 3 }
