package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression defines the stream compression applied to encoded sketches.
type Compression uint8

const (
	// CompressionNone stores plain JSON.
	CompressionNone Compression = iota
	// CompressionGzip is the default; it is what other sketch tools expect.
	CompressionGzip
	// CompressionZSTD gives a better ratio for large collections.
	CompressionZSTD
	// CompressionLZ4 is the fastest to decode.
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZSTD:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

var lz4Levels = []lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

// compress writes data to w using the given compression and level.
// Level 0 with CompressionGzip is treated as CompressionNone.
func compress(w io.Writer, data []byte, c Compression, level int) error {
	switch c {
	case CompressionNone:
		_, err := w.Write(data)
		return err

	case CompressionGzip:
		if level <= 0 {
			_, err := w.Write(data)
			return err
		}
		zw, err := gzip.NewWriterLevel(w, min(level, gzip.BestCompression))
		if err != nil {
			return err
		}
		if _, err := zw.Write(data); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()

	case CompressionZSTD:
		if level <= 0 {
			level = 3
		}
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return err
		}
		if _, err := enc.Write(data); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()

	case CompressionLZ4:
		zw := lz4.NewWriter(w)
		if err := zw.Apply(lz4.CompressionLevelOption(lz4Levels[min(max(level, 0), len(lz4Levels)-1)])); err != nil {
			return err
		}
		if _, err := zw.Write(data); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()

	default:
		return fmt.Errorf("codec: unsupported compression %s", c)
	}
}

// decompress reads r to the end, transparently undoing any supported
// compression detected from the leading magic bytes.
func decompress(r io.Reader) ([]byte, Compression, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, CompressionNone, err
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, CompressionGzip, err
		}
		defer zr.Close()
		data, err := io.ReadAll(zr)
		return data, CompressionGzip, err

	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, CompressionZSTD, err
		}
		defer dec.Close()
		data, err := io.ReadAll(dec)
		return data, CompressionZSTD, err

	case bytes.HasPrefix(head, lz4Magic):
		data, err := io.ReadAll(lz4.NewReader(br))
		return data, CompressionLZ4, err

	default:
		data, err := io.ReadAll(br)
		return data, CompressionNone, err
	}
}
