package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/sketchtree/sketch"
)

// ErrDecode is returned when a byte stream does not hold the expected sketch records.
var ErrDecode = errors.New("codec: cannot decode sketch")

const (
	signatureClass = "sketchtree_signature"
	hashFunction   = "0.xxhash64"
	recordVersion  = 0.4
)

type signatureRecord struct {
	Class        string         `json:"class"`
	HashFunction string         `json:"hash_function"`
	Name         string         `json:"name,omitempty"`
	Filename     string         `json:"filename,omitempty"`
	Signatures   []sketchRecord `json:"signatures"`
	Version      float64        `json:"version"`
}

type sketchRecord struct {
	KSize   uint32   `json:"ksize"`
	Seed    uint64   `json:"seed"`
	Num     uint32   `json:"num"`
	MaxHash uint64   `json:"max_hash"`
	Mins    []uint64 `json:"mins"`
}

// SketchCodec converts sketches to and from their persisted byte form.
type SketchCodec struct {
	codec       Codec
	compression Compression
}

// SketchOption configures a SketchCodec.
type SketchOption func(*SketchCodec)

// WithCodec sets the JSON codec used for records. Nil selects Default.
func WithCodec(c Codec) SketchOption {
	return func(sc *SketchCodec) {
		if c == nil {
			c = Default
		}
		sc.codec = c
	}
}

// WithCompression sets the compression used by Encode.
// Decode always detects the format on its own.
func WithCompression(c Compression) SketchOption {
	return func(sc *SketchCodec) {
		sc.compression = c
	}
}

// NewSketchCodec creates a SketchCodec. The default writes gzip-compressed go-json.
func NewSketchCodec(optFns ...SketchOption) *SketchCodec {
	sc := &SketchCodec{
		codec:       Default,
		compression: CompressionGzip,
	}
	for _, fn := range optFns {
		fn(sc)
	}
	return sc
}

// DefaultSketchCodec is used by the package-level helpers.
var DefaultSketchCodec = NewSketchCodec()

// Encode serializes sketches, one record per sketch, compressed at level.
func (sc *SketchCodec) Encode(sketches []*sketch.Sketch, level int) ([]byte, error) {
	records := make([]signatureRecord, 0, len(sketches))
	for _, s := range sketches {
		if s == nil {
			return nil, errors.New("codec: nil sketch")
		}
		records = append(records, toRecord(s))
	}

	payload, err := sc.codec.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal sketches: %w", err)
	}

	var buf bytes.Buffer
	if err := compress(&buf, payload, sc.compression, level); err != nil {
		return nil, fmt.Errorf("codec: compress sketches (%s): %w", sc.compression, err)
	}
	return buf.Bytes(), nil
}

// Decode reads every sketch record from r.
func (sc *SketchCodec) Decode(r io.Reader) ([]*sketch.Sketch, error) {
	payload, _, err := decompress(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	var records []signatureRecord
	if payload[0] == '{' {
		var rec signatureRecord
		if err := sc.codec.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		records = append(records, rec)
	} else if err := sc.codec.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	var out []*sketch.Sketch
	for i, rec := range records {
		if rec.HashFunction != hashFunction {
			return nil, fmt.Errorf("%w: record %d uses hash function %q", ErrDecode, i, rec.HashFunction)
		}
		for _, sr := range rec.Signatures {
			s, err := sketch.New(sketch.Params{
				Name:     rec.Name,
				Filename: rec.Filename,
				KSize:    sr.KSize,
				Seed:     sr.Seed,
				Num:      sr.Num,
				MaxHash:  sr.MaxHash,
			}, sr.Mins)
			if err != nil {
				return nil, fmt.Errorf("%w: record %d: %w", ErrDecode, i, err)
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// DecodeOne reads r and requires it to hold exactly one sketch.
func (sc *SketchCodec) DecodeOne(r io.Reader) (*sketch.Sketch, error) {
	sketches, err := sc.Decode(r)
	if err != nil {
		return nil, err
	}
	if len(sketches) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one sketch, found %d", ErrDecode, len(sketches))
	}
	return sketches[0], nil
}

// Encode serializes sketches with DefaultSketchCodec.
func Encode(sketches []*sketch.Sketch, level int) ([]byte, error) {
	return DefaultSketchCodec.Encode(sketches, level)
}

// Decode reads all sketches from r with DefaultSketchCodec.
func Decode(r io.Reader) ([]*sketch.Sketch, error) {
	return DefaultSketchCodec.Decode(r)
}

// DecodeOne reads exactly one sketch from r with DefaultSketchCodec.
func DecodeOne(r io.Reader) (*sketch.Sketch, error) {
	return DefaultSketchCodec.DecodeOne(r)
}

func toRecord(s *sketch.Sketch) signatureRecord {
	mins := s.Hashes()
	if mins == nil {
		mins = []uint64{}
	}
	return signatureRecord{
		Class:        signatureClass,
		HashFunction: hashFunction,
		Name:         s.Name(),
		Filename:     s.Filename(),
		Signatures: []sketchRecord{{
			KSize:   s.KSize(),
			Seed:    s.Seed(),
			Num:     s.Num(),
			MaxHash: s.MaxHash(),
			Mins:    mins,
		}},
		Version: recordVersion,
	}
}
