// Package config holds the sketchtree command configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hupe1980/sketchtree/codec"
	"gopkg.in/yaml.v3"
)

// Storage backends. Every backend outlives the process; blobstore.MemoryStore
// is library-only because a tree indexed into it is gone when the command exits.
const (
	BackendLocal  = "local"
	BackendS3     = "s3"
	BackendMinIO  = "minio"
	BackendSQLite = "sqlite"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid")

// Config holds the command configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Index   IndexConfig   `yaml:"index"`
	Search  SearchConfig  `yaml:"search"`
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
}

// StorageConfig selects where node filters and leaf sketches live. The tree
// descriptor is always a local file.
type StorageConfig struct {
	Backend string `yaml:"backend"` // local, s3, minio or sqlite; default local
	Path    string `yaml:"path"`    // sqlite database file

	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"` // minio host:port
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`

	CacheSize           int  `yaml:"cache_size"`            // blobs kept in memory, 0 disables
	ThrottleBytesPerSec int  `yaml:"throttle_bytes_per_sec"` // 0 disables
	ContentAddressed    bool `yaml:"content_addressed"`
}

// IndexConfig holds tree parameters.
type IndexConfig struct {
	BloomFilterSize uint64 `yaml:"bloom_filter_size"` // default 100000
	BranchingFactor int    `yaml:"branching_factor"`  // default 2
	CacheSize       int    `yaml:"cache_size"`        // node filters kept after load, 0 = unbounded
	Compression     string `yaml:"compression"`       // gzip, zstd, lz4 or none; default gzip
	Codec           string `yaml:"codec"`             // go-json or json; default go-json
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	Threshold float64 `yaml:"threshold"` // default 0.1
}

// LogConfig configures the command logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error; default info
	Format string `yaml:"format"` // text or json; default text
}

// ServerConfig configures the search server.
type ServerConfig struct {
	Addr string `yaml:"addr"` // default :8080
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{Backend: BackendLocal},
		Index: IndexConfig{
			BloomFilterSize: 100_000,
			BranchingFactor: 2,
			Compression:     "gzip",
		},
		Search: SearchConfig{Threshold: 0.1},
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// OrDefault returns Default if c is nil, otherwise fills unset fields of c
// with their defaults.
func (c *Config) OrDefault() *Config {
	if c == nil {
		return Default()
	}
	d := Default()
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Index.BloomFilterSize == 0 {
		c.Index.BloomFilterSize = d.Index.BloomFilterSize
	}
	if c.Index.BranchingFactor < 2 {
		c.Index.BranchingFactor = d.Index.BranchingFactor
	}
	if c.Index.Compression == "" {
		c.Index.Compression = d.Index.Compression
	}
	if c.Search.Threshold <= 0 {
		c.Search.Threshold = d.Search.Threshold
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	return c
}

// Load reads a YAML configuration file. An empty path yields Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg := c.OrDefault()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendLocal:
	case BackendS3, BackendMinIO:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("%w: storage backend %q needs a bucket", ErrInvalidConfig, c.Storage.Backend)
		}
		if c.Storage.Backend == BackendMinIO && c.Storage.Endpoint == "" {
			return fmt.Errorf("%w: storage backend minio needs an endpoint", ErrInvalidConfig)
		}
	case BackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage backend sqlite needs a path", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}

	if c.Storage.CacheSize < 0 || c.Storage.ThrottleBytesPerSec < 0 || c.Index.CacheSize < 0 {
		return fmt.Errorf("%w: sizes must not be negative", ErrInvalidConfig)
	}
	if c.Search.Threshold > 1 {
		return fmt.Errorf("%w: search threshold %v above 1", ErrInvalidConfig, c.Search.Threshold)
	}
	if _, err := c.Index.SketchCodec(); err != nil {
		return err
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// CompressionType maps Compression to the codec setting.
func (i IndexConfig) CompressionType() (codec.Compression, error) {
	switch strings.ToLower(i.Compression) {
	case "gzip", "":
		return codec.CompressionGzip, nil
	case "zstd":
		return codec.CompressionZSTD, nil
	case "lz4":
		return codec.CompressionLZ4, nil
	case "none":
		return codec.CompressionNone, nil
	default:
		return 0, fmt.Errorf("%w: compression %q", ErrInvalidConfig, i.Compression)
	}
}

// SketchCodec builds the codec leaves are written with.
func (i IndexConfig) SketchCodec() (*codec.SketchCodec, error) {
	comp, err := i.CompressionType()
	if err != nil {
		return nil, err
	}
	c, ok := codec.ByName(i.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: codec %q", ErrInvalidConfig, i.Codec)
	}
	return codec.NewSketchCodec(codec.WithCompression(comp), codec.WithCodec(c)), nil
}

// SlogLevel maps Level to a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, l.Level)
	}
	return lvl, nil
}
