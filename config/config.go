// Package config loads tool settings from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config bundles the tunable limits of the parsing and decoding layers.
type Config struct {
	Scanner ScannerConfig `yaml:"scanner"`
	Filters FilterConfig  `yaml:"filters"`
	Verbose bool          `yaml:"verbose"`
}

type ScannerConfig struct {
	// MaxStringLength caps literal and hex string payloads, in bytes.
	MaxStringLength int `yaml:"max_string_length"`
	MaxArrayDepth   int `yaml:"max_array_depth"`
	MaxDictDepth    int `yaml:"max_dict_depth"`
	// MaxStreamLength caps stream payloads, in bytes.
	MaxStreamLength int `yaml:"max_stream_length"`
	MaxInlineImage  int `yaml:"max_inline_image"`
}

type FilterConfig struct {
	// MaxDecompressedSize caps each filter stage's output, in bytes.
	MaxDecompressedSize int64 `yaml:"max_decompressed_size"`
	// MaxDecodeTime caps a whole decode pipeline run, e.g. "5s".
	MaxDecodeTime Duration `yaml:"max_decode_time"`
}

// Duration accepts time.ParseDuration strings ("5s", "2m") in YAML; bare
// integers are taken as nanoseconds, matching time.Duration's own unit.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("duration must be a string or integer: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Default returns conservative limits suitable for untrusted documents.
func Default() Config {
	return Config{
		Scanner: ScannerConfig{
			MaxStringLength: 1 << 20,
			MaxArrayDepth:   128,
			MaxDictDepth:    128,
			MaxStreamLength: 256 << 20,
			MaxInlineImage:  64 << 20,
		},
		Filters: FilterConfig{
			MaxDecompressedSize: 512 << 20,
			MaxDecodeTime:       Duration(30 * time.Second),
		},
	}
}

// Load reads a YAML config file, layering it over the defaults. Environment
// variables in the file are expanded before parsing.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Scanner.MaxStringLength < 0 || c.Scanner.MaxStreamLength < 0 ||
		c.Scanner.MaxArrayDepth < 0 || c.Scanner.MaxDictDepth < 0 ||
		c.Scanner.MaxInlineImage < 0 {
		return fmt.Errorf("scanner limits must be non-negative")
	}
	if c.Filters.MaxDecompressedSize < 0 {
		return fmt.Errorf("filter limits must be non-negative")
	}
	return nil
}
