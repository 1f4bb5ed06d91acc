// Package codec centralizes sketch and descriptor encoding.
//
// Persisted sketch files are self-describing: the compression format is
// detected from its magic bytes on decode, so readers never need to know which
// setting the writer used.
package codec

import (
	"encoding/json"

	gojson "github.com/goccy/go-json"
)

// Codec turns signature records into JSON and back.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// GoJSON encodes records with github.com/goccy/go-json. It is the default.
type GoJSON struct{}

func (GoJSON) Marshal(v any) ([]byte, error)      { return gojson.Marshal(v) }
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }
func (GoJSON) Name() string                       { return "go-json" }

// JSON encodes records with encoding/json. Both codecs produce the same
// documents; JSON exists for callers that need the stdlib's exact escaping.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSON) Name() string                       { return "json" }

// Default is the codec used for sketch records and tree descriptors.
var Default Codec = GoJSON{}

// ByName looks up a record codec by the name it reports. The empty name
// selects Default.
func ByName(name string) (Codec, bool) {
	switch name {
	case "", Default.Name():
		return Default, true
	case JSON{}.Name():
		return JSON{}, true
	default:
		return nil, false
	}
}
