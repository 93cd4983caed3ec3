package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/math"
	"github.com/spaghettifunk/geostore/engine/renderer/geometry"
)

// Config is the whole runtime configuration, read from a TOML file.
type Config struct {
	Application ApplicationConfig `toml:"application"`
	Store       geometry.Config   `toml:"store"`
	Soak        SoakConfig        `toml:"soak"`
}

type ApplicationConfig struct {
	Name     string        `toml:"name"`
	LogLevel core.LogLevel `toml:"log_level"`
	// Renderer is "software" or "vulkan".
	Renderer string `toml:"renderer"`
	// WorkDelayMS slows the software consumer down per frame.
	WorkDelayMS int `toml:"work_delay_ms"`
	// Checksums makes the consumer verify every frame it reads.
	Checksums bool `toml:"checksums"`
}

// SoakConfig drives the randomised workload of the testbed.
type SoakConfig struct {
	// Frames to run; zero runs until interrupted.
	Frames             int    `toml:"frames"`
	Seed               uint64 `toml:"seed"`
	MaxSlots           int    `toml:"max_slots"`
	MaxVerticesPerSlot int    `toml:"max_vertices_per_slot"`
	// VerifyEvery checks every live slot against its shadow copy each n frames.
	VerifyEvery int `toml:"verify_every"`
	// StatsEvery logs store statistics each n frames.
	StatsEvery int `toml:"stats_every"`
}

const (
	DefaultName               = "geostore"
	DefaultMaxSlots           = 64
	DefaultMaxVerticesPerSlot = 512
	DefaultVerifyEvery        = 1
	DefaultStatsEvery         = 120

	// MaxWorkDelayMS caps the simulated consumer cost per frame.
	MaxWorkDelayMS = 1000
)

func Default() Config {
	return Config{}.WithDefaults()
}

// WithDefaults fills every zero field with its default.
func (c Config) WithDefaults() Config {
	if c.Application.Name == "" {
		c.Application.Name = DefaultName
	}
	if c.Application.LogLevel == "" {
		c.Application.LogLevel = core.InfoLevel
	}
	if c.Application.Renderer == "" {
		c.Application.Renderer = "software"
	}
	c.Application.WorkDelayMS = math.Clamp(c.Application.WorkDelayMS, 0, MaxWorkDelayMS)
	c.Store = c.Store.WithDefaults()

	if c.Soak.Frames < 0 {
		c.Soak.Frames = 0
	}
	if c.Soak.MaxSlots <= 0 {
		c.Soak.MaxSlots = DefaultMaxSlots
	}
	if c.Soak.MaxVerticesPerSlot <= 0 {
		c.Soak.MaxVerticesPerSlot = DefaultMaxVerticesPerSlot
	}
	if c.Soak.VerifyEvery <= 0 {
		c.Soak.VerifyEvery = DefaultVerifyEvery
	}
	if c.Soak.StatsEvery <= 0 {
		c.Soak.StatsEvery = DefaultStatsEvery
	}
	return c
}

func (c Config) WorkDelay() time.Duration {
	return time.Duration(c.Application.WorkDelayMS) * time.Millisecond
}

// Parse decodes a TOML document. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	var c Config
	if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, errors.Newf("unknown configuration keys:\n%s", strict.String())
		}
		return Config{}, errors.Wrap(err, "decoding configuration")
	}
	return c.WithDefaults(), nil
}

// Load reads the file at path. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading configuration %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "configuration %s", path)
	}
	return c, nil
}

// Encode writes the configuration as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
