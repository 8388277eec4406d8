// Package config loads compiler settings from YAML.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/tinyrange/arrayc/internal/ast"
	"github.com/tinyrange/arrayc/internal/ir"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

const (
	// Format is the newest configuration format this build understands.
	// Files declaring the same major version are accepted.
	Format = "v1.0.0"

	LangArray = "array"
	LangLoop  = "loop"

	DefaultMaxArrayByteSize = 1 << 20
	DefaultMemoryPages      = 100

	// maxMemoryPages is the largest memory addressable with 32-bit offsets.
	maxMemoryPages = 1 << 16
)

type Config struct {
	Format           string `yaml:"format"`
	Lang             string `yaml:"lang"`
	MaxArrayByteSize int64  `yaml:"max_array_byte_size"`
	MemoryPages      uint32 `yaml:"memory_pages"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	var c Config
	c.normalize()
	return c
}

func (c *Config) normalize() {
	if c.Format == "" {
		c.Format = semver.Major(Format)
	}
	if !strings.HasPrefix(c.Format, "v") {
		c.Format = "v" + c.Format
	}
	if c.Lang == "" {
		c.Lang = LangArray
	}
	if c.MaxArrayByteSize == 0 {
		c.MaxArrayByteSize = DefaultMaxArrayByteSize
	}
	if c.MemoryPages == 0 {
		c.MemoryPages = DefaultMemoryPages
	}
}

// Tier maps the configured language onto its AST tier.
func (c Config) Tier() ast.Tier {
	if c.Lang == LangLoop {
		return ast.TierLoop
	}
	return ast.TierArray
}

// Validate rejects settings the compiler cannot honour.
func (c Config) Validate() error {
	if !semver.IsValid(c.Format) {
		return fmt.Errorf("config: invalid format version %q", c.Format)
	}
	if semver.Major(c.Format) != semver.Major(Format) {
		return fmt.Errorf("config: unsupported format %s (this build reads %s)", c.Format, semver.Major(Format))
	}
	switch c.Lang {
	case LangArray, LangLoop:
	default:
		return fmt.Errorf("config: unknown lang %q (want %s or %s)", c.Lang, LangArray, LangLoop)
	}
	if c.MaxArrayByteSize <= 0 {
		return fmt.Errorf("config: max_array_byte_size must be positive (got %d)", c.MaxArrayByteSize)
	}
	if c.MemoryPages > maxMemoryPages {
		return fmt.Errorf("config: memory_pages %d exceeds %d", c.MemoryPages, maxMemoryPages)
	}
	if c.Tier() == ast.TierArray && c.MaxArrayByteSize+4 > c.MemoryBytes() {
		return fmt.Errorf("config: %d pages cannot hold one array of %d bytes", c.MemoryPages, c.MaxArrayByteSize)
	}
	return nil
}

// MemoryBytes is the size of linear memory in bytes.
func (c Config) MemoryBytes() int64 {
	return int64(c.MemoryPages) * ir.PageSize
}

// Parse decodes, normalizes and validates a configuration document.
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads a configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
