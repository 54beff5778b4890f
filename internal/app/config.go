package app

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// Matching engines.
const (
	EngineKMP = "kmp" // one KMP scan per keyword
	EngineAho = "aho" // one Aho-Corasick scan for all keywords
)

// DefaultKeywords is the keyword list used when none is configured.
var DefaultKeywords = []string{
	"device", "internet", "thing", "node", "network", "protocol", "data", "comput", "process",
	"distributed", "smart", "automation", "system", "robot", "autonomous", "intelligen",
}

// Config controls one ranking: what to match and which documents to read.
type Config struct {
	Keywords      []string `toml:"keywords"`
	CaseSensitive bool     `toml:"case_sensitive"`

	// Extensions limits documents by file extension; empty means all files.
	Extensions []string `toml:"extensions"`
	Recursive  bool     `toml:"recursive"`

	// MaxFileSize in bytes; 0 uses the source default, negative disables.
	MaxFileSize int64 `toml:"max_file_size"`

	// Workers bounds concurrent document reads. 0 means one per CPU.
	Workers int `toml:"workers"`

	// ParallelKeywords fans the KMP scans of one document out per keyword.
	ParallelKeywords bool `toml:"parallel_keywords"`

	Engine string `toml:"engine"`
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() *Config {
	kw := make([]string, len(DefaultKeywords))
	copy(kw, DefaultKeywords)
	return &Config{
		Keywords: kw,
		Engine:   EngineKMP,
	}
}

// LoadConfig reads a TOML config file over the defaults. A missing file is
// not an error: the defaults are returned and found is false. Unknown keys
// are rejected so typos do not silently fall back to defaults.
func LoadConfig(path string) (cfg *Config, found bool, err error) {
	cfg = DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), false, nil
		}
		return nil, false, fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, true, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, true, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, true, nil
}

// SaveConfig writes cfg as TOML, creating parent directories.
func SaveConfig(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Validate checks the config and fills in derived defaults.
func (c *Config) Validate() error {
	for i, kw := range c.Keywords {
		if kw == "" {
			return fmt.Errorf("keyword %d is empty", i)
		}
	}
	switch c.Engine {
	case "":
		c.Engine = EngineKMP
	case EngineKMP, EngineAho:
	default:
		return fmt.Errorf("unknown engine %q (want %q or %q)", c.Engine, EngineKMP, EngineAho)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

// workers returns the effective worker count.
func (c *Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
