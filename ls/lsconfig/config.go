// Package lsconfig holds the settings shared by every lockstep process.
//
// Settings are layered: [Default], then an optional YAML file ([LoadFile]),
// then environment variables ([Config.ApplyEnv]), then command line flags,
// which the command package applies directly to the struct.
package lsconfig

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/gordian-engine/lockstep/ls/lsround"
	"gopkg.in/yaml.v3"
)

// WorldSizeEnv names the environment variable a launcher uses
// to declare how many processes it started.
const WorldSizeEnv = "LOCKSTEP_WORLD_SIZE"

var (
	ErrWorldSize      = errors.New("number of processes must be 3")
	ErrNegativeLength = errors.New("string length must not be negative")
	ErrInvalidSeed    = errors.New("seed must be at least 16 bytes of hex")
)

// Config is the full set of settings for one lockstep process.
type Config struct {
	// Candidate lengths for generators A and B.
	LengthOne int `yaml:"length_one"`
	LengthTwo int `yaml:"length_two"`

	Debug bool `yaml:"debug"`

	// Number of processes the launcher started. Must equal [lsround.WorldSize].
	WorldSize int `yaml:"world_size"`

	// Optional hex-encoded seed for reproducible candidates.
	Seed string `yaml:"seed"`

	// Optional. Generated when empty.
	RunName string `yaml:"run_name"`

	// Optional path for the YAML report written on acceptance.
	ReportFile string `yaml:"report_file"`

	// Optional debug HTTP listeners.
	HTTPAddr string `yaml:"http_addr"`
	HTTPUnix string `yaml:"http_unix"`

	// libp2p settings for multi-process runs.
	ListenAddrs []string `yaml:"listen_addrs"`
	Coordinator string   `yaml:"coordinator"`
}

// Default returns the settings used when nothing else is specified.
func Default() Config {
	return Config{
		LengthOne: 10,
		LengthTwo: 10,
		WorldSize: lsround.WorldSize,
	}
}

// LoadFile decodes the YAML file at path over cfg.
// Keys absent from the file leave the existing values in place;
// unknown keys are an error.
func LoadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from environment variables,
// using lookup (normally [os.LookupEnv]).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(WorldSizeEnv); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", WorldSizeEnv, v, err)
		}
		c.WorldSize = n
	}
	return nil
}

// Validate reports configuration errors that must stop the process
// before any round begins.
func (c Config) Validate() error {
	if c.WorldSize != lsround.WorldSize {
		return fmt.Errorf("%w: got %d", ErrWorldSize, c.WorldSize)
	}
	if c.LengthOne < 0 {
		return fmt.Errorf("%w: length one is %d", ErrNegativeLength, c.LengthOne)
	}
	if c.LengthTwo < 0 {
		return fmt.Errorf("%w: length two is %d", ErrNegativeLength, c.LengthTwo)
	}
	if c.Seed != "" {
		if _, err := c.SeedBytes(); err != nil {
			return err
		}
	}
	return nil
}

// Length returns the configured candidate length for generator p.
// It panics if p is not a generator.
func (c Config) Length(p lsround.Participant) int {
	switch p {
	case lsround.GeneratorA:
		return c.LengthOne
	case lsround.GeneratorB:
		return c.LengthTwo
	}
	panic(fmt.Errorf("BUG: no length for %s", p))
}

// SeedBytes decodes Seed. It returns nil, nil when no seed is set.
func (c Config) SeedBytes() ([]byte, error) {
	if c.Seed == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(c.Seed)
	if err != nil || len(b) < 16 {
		return nil, ErrInvalidSeed
	}
	return b, nil
}
