// Package config loads btsniff settings from YAML and from the inline
// "key=value;key=value" form accepted on the command line.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rawbytedev/btsniff"
	"github.com/rawbytedev/btsniff/internal/logging"
	"github.com/rawbytedev/btsniff/pkg/bittorrent"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("config: invalid")

// Input formats for capture files.
const (
	FormatHex = "hex"
	FormatRaw = "raw"
)

type Config struct {
	// Protocols lists the enabled decoders by name, in priority order.
	// Empty enables all of them.
	Protocols []string      `yaml:"protocols"`
	Dedup     DedupConfig   `yaml:"dedup"`
	Input     InputConfig   `yaml:"input"`
	Logging   LoggingConfig `yaml:"logging"`
}

type DedupConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxEntries int  `yaml:"max_entries"`
}

// InputConfig describes how capture files are framed. In hex format each
// non-blank line not starting with '#' is one hex-encoded payload; in raw
// format a whole file is one payload.
type InputConfig struct {
	Format string `yaml:"format"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	Timestamp bool   `yaml:"timestamp"`
	NoColor   bool   `yaml:"no_color"`
}

func Default() Config {
	return Config{
		Dedup:   DedupConfig{MaxEntries: btsniff.DefaultDedupEntries},
		Input:   InputConfig{Format: FormatHex},
		Logging: LoggingConfig{Level: "info", Timestamp: true},
	}
}

// Load reads a YAML file over Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ParseInline applies settings of the form "protocols=dht,lsd;dedup=true"
// to c. Empty clauses are ignored; unknown keys are an error.
func (c *Config) ParseInline(s string) error {
	for _, clause := range strings.Split(s, ";") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		key, value, ok := strings.Cut(clause, "=")
		if !ok {
			return fmt.Errorf("%w: clause %q has no '='", ErrInvalid, clause)
		}
		if err := c.set(strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)); err != nil {
			return err
		}
	}
	return c.Validate()
}

func (c *Config) set(key, value string) error {
	switch key {
	case "protocols", "select":
		c.Protocols = nil
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				c.Protocols = append(c.Protocols, name)
			}
		}
	case "dedup":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: dedup: %w", ErrInvalid, err)
		}
		c.Dedup.Enabled = v
	case "dedup_entries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: dedup_entries: %w", ErrInvalid, err)
		}
		c.Dedup.MaxEntries = n
	case "format":
		c.Input.Format = strings.ToLower(value)
	case "log_level":
		c.Logging.Level = value
	default:
		return fmt.Errorf("%w: unknown key %q", ErrInvalid, key)
	}
	return nil
}

func (c *Config) Validate() error {
	for _, name := range c.Protocols {
		if _, ok := bittorrent.ParseProtocol(name); !ok {
			return fmt.Errorf("%w: unknown protocol %q", ErrInvalid, name)
		}
	}
	if c.Dedup.MaxEntries < 0 {
		return fmt.Errorf("%w: dedup max_entries %d", ErrInvalid, c.Dedup.MaxEntries)
	}
	switch c.Input.Format {
	case FormatHex, FormatRaw:
	default:
		return fmt.Errorf("%w: input format %q", ErrInvalid, c.Input.Format)
	}
	if c.Logging.Level != "" {
		if _, ok := logging.ParseLevel(c.Logging.Level); !ok {
			return fmt.Errorf("%w: log level %q", ErrInvalid, c.Logging.Level)
		}
	}
	return nil
}

// EngineOptions converts c for btsniff.NewEngine. Duplicate protocol
// names collapse to their first occurrence.
func (c *Config) EngineOptions() btsniff.Options {
	opts := btsniff.Options{Dedup: c.Dedup.Enabled, DedupEntries: c.Dedup.MaxEntries}
	for _, name := range c.Protocols {
		p, ok := bittorrent.ParseProtocol(name)
		if !ok || contains(opts.Protocols, p) {
			continue
		}
		opts.Protocols = append(opts.Protocols, p)
	}
	return opts
}

func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if lvl, ok := logging.ParseLevel(c.Logging.Level); ok {
		cfg.Level = lvl
	}
	cfg.Timestamp = c.Logging.Timestamp
	cfg.NoColor = c.Logging.NoColor
	return cfg
}

func contains(ps []bittorrent.Protocol, p bittorrent.Protocol) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}
