package diffemitter

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects how the already-serialized SQL patch is framed on disk.
// It never affects the SQL grammar itself, only the bytes written to the
// output file.
//
// Reference: the teacher repository's internal/compression.Type enum and
// its Compress/Decompress dispatch, repurposed here from per-block SST
// compression to a single whole-stream writer wrapper.
type Codec uint8

const (
	// CodecNone writes the SQL patch uncompressed.
	CodecNone Codec = iota
	// CodecGzip wraps the output in a gzip stream (stdlib compress/gzip;
	// the teacher's own compression set has no streaming gzip writer, so
	// this one codec reaches for the standard library — see DESIGN.md).
	CodecGzip
	// CodecSnappy wraps the output in a snappy framed stream.
	CodecSnappy
	// CodecZstd wraps the output in a zstd stream.
	CodecZstd
	// CodecLZ4 wraps the output in an lz4 frame stream.
	CodecLZ4
)

// String returns the human-readable name of the codec, matching the
// spelling accepted by ParseCodec.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecGzip:
		return "gzip"
	case CodecSnappy:
		return "snappy"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCodec parses the output_compression configuration value.
func ParseCodec(s string) (Codec, bool) {
	switch s {
	case "", "none":
		return CodecNone, true
	case "gzip":
		return CodecGzip, true
	case "snappy":
		return CodecSnappy, true
	case "zstd":
		return CodecZstd, true
	case "lz4":
		return CodecLZ4, true
	default:
		return CodecNone, false
	}
}

// wrappedWriter pairs a Write-through wrapper with the Close call needed
// to flush its trailer.
type wrappedWriter struct {
	io.Writer
	closer func() error
}

func (w *wrappedWriter) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer()
}

// NewWriter wraps w so that everything written to the result is framed
// according to c. The caller must Close the returned writer to flush any
// trailing codec state (gzip/zstd/lz4 all buffer internally).
func NewWriter(c Codec, w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CodecNone:
		return &wrappedWriter{Writer: w}, nil

	case CodecGzip:
		gw := gzip.NewWriter(w)
		return &wrappedWriter{Writer: gw, closer: gw.Close}, nil

	case CodecSnappy:
		sw := snappy.NewBufferedWriter(w)
		return &wrappedWriter{Writer: sw, closer: sw.Close}, nil

	case CodecZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("diffemitter: zstd writer: %w", err)
		}
		return &wrappedWriter{Writer: zw, closer: zw.Close}, nil

	case CodecLZ4:
		lw := lz4.NewWriter(w)
		return &wrappedWriter{Writer: lw, closer: lw.Close}, nil

	default:
		return nil, fmt.Errorf("diffemitter: unsupported codec %v", c)
	}
}
