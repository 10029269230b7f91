package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/pierrec/lz4/v4"

	"github.com/edgecomet/preview/pkg/types"
)

// ErrDecompression is returned when a cached body cannot be decompressed.
// Use errors.Is(err, ErrDecompression) to check for it.
var ErrDecompression = errors.New("decompression failed")

// Compress compresses content with algorithm and reports the algorithm actually applied.
// Content below types.CompressionMinSize, "none" and unknown algorithms are stored raw.
func Compress(content []byte, algorithm string) ([]byte, string, error) {
	if len(content) < types.CompressionMinSize {
		return content, types.CompressionNone, nil
	}

	switch algorithm {
	case types.CompressionSnappy:
		return snappy.Encode(nil, content), types.CompressionSnappy, nil

	case types.CompressionLZ4:
		// Stream format embeds the size
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(content); err != nil {
			w.Close()
			return nil, "", fmt.Errorf("lz4 compression failed: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("lz4 compression close failed: %w", err)
		}
		return buf.Bytes(), types.CompressionLZ4, nil

	default:
		return content, types.CompressionNone, nil
	}
}

// Decompress reverses Compress for the algorithm recorded in the cache metadata
func Decompress(content []byte, algorithm string) ([]byte, error) {
	switch algorithm {
	case types.CompressionSnappy:
		decompressed, err := snappy.Decode(nil, content)
		if err != nil {
			return nil, fmt.Errorf("%w: snappy: %v", ErrDecompression, err)
		}
		return decompressed, nil

	case types.CompressionLZ4:
		decompressed, err := io.ReadAll(lz4.NewReader(bytes.NewReader(content)))
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrDecompression, err)
		}
		return decompressed, nil

	case types.CompressionNone, "":
		return content, nil

	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrDecompression, algorithm)
	}
}
