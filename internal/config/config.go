package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/leandrodaf/improv/sdk/contracts"
	"github.com/leandrodaf/improv/sdk/generator"
	"gopkg.in/yaml.v3"
)

// DefaultPitchClassHistogram favors a C major scale with an emphasis on F.
const DefaultPitchClassHistogram = "[1, 0, 1, 0, 1, 2, 0, 1, 0, 1, 0, 1]"

// Config holds the application configuration.
type Config struct {
	// MIDI output
	MIDIPort   string `yaml:"midi_port"`   // substring matched against output port names
	ClientName string `yaml:"client_name"` // name announced to the MIDI system
	Channel    int    `yaml:"channel"`     // forced output channel, -1 keeps each note's channel

	// Files
	BundlePath string `yaml:"bundle"`
	PrimerPath string `yaml:"primer"`
	OutputDir  string `yaml:"output_dir"` // when set, every rendered window is saved as a MIDI file

	// Timing
	QPM        float64 `yaml:"qpm"`
	NumBars    int     `yaml:"num_bars"`
	PrimerBars int     `yaml:"primer_bars"`

	// Generation
	PrimerTemperature   float64 `yaml:"primer_temperature"`
	Temperature         float64 `yaml:"temperature"`
	NotesPerSecond      float64 `yaml:"notes_per_second"`
	PitchClassHistogram string  `yaml:"pitch_class_histogram"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Default returns the values the drum and piano demos were tuned with.
func Default() *Config {
	return &Config{
		MIDIPort:            "FLUID Synth",
		ClientName:          "improv",
		Channel:             -1,
		BundlePath:          "bundles/drum_kit.yaml",
		PrimerPath:          "primers/drums_1_bar.mid",
		QPM:                 120,
		NumBars:             3,
		PrimerBars:          1,
		PrimerTemperature:   1.1,
		Temperature:         1.3,
		NotesPerSecond:      5,
		PitchClassHistogram: DefaultPitchClassHistogram,
		LogLevel:            "info",
	}
}

// DefaultUI returns the control panel defaults: the performance model with
// a piano primer, so both panel sliders shape the generation.
func DefaultUI() *Config {
	cfg := Default()
	cfg.BundlePath = "bundles/performance.yaml"
	cfg.PrimerPath = "primers/piano_1_bar.mid"
	return cfg
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then IMPROV_* environment variables, reading a .env
// file first when one exists.
func Load(path string) (*Config, error) {
	return LoadOver(Default(), path)
}

// LoadOver is Load starting from base instead of Default. base is modified.
func LoadOver(base *Config, path string) (*Config, error) {
	cfg := base
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.MIDIPort = getEnv("IMPROV_MIDI_PORT", c.MIDIPort)
	c.ClientName = getEnv("IMPROV_CLIENT_NAME", c.ClientName)
	c.BundlePath = getEnv("IMPROV_BUNDLE", c.BundlePath)
	c.PrimerPath = getEnv("IMPROV_PRIMER", c.PrimerPath)
	c.OutputDir = getEnv("IMPROV_OUTPUT_DIR", c.OutputDir)
	c.PitchClassHistogram = getEnv("IMPROV_PITCH_CLASS_HISTOGRAM", c.PitchClassHistogram)
	c.LogLevel = getEnv("IMPROV_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("IMPROV_LOG_FILE", c.LogFile)

	var err error
	if c.Channel, err = getEnvInt("IMPROV_CHANNEL", c.Channel); err != nil {
		return err
	}
	if c.NumBars, err = getEnvInt("IMPROV_NUM_BARS", c.NumBars); err != nil {
		return err
	}
	if c.PrimerBars, err = getEnvInt("IMPROV_PRIMER_BARS", c.PrimerBars); err != nil {
		return err
	}
	if c.QPM, err = getEnvFloat("IMPROV_QPM", c.QPM); err != nil {
		return err
	}
	if c.PrimerTemperature, err = getEnvFloat("IMPROV_PRIMER_TEMPERATURE", c.PrimerTemperature); err != nil {
		return err
	}
	if c.Temperature, err = getEnvFloat("IMPROV_TEMPERATURE", c.Temperature); err != nil {
		return err
	}
	if c.NotesPerSecond, err = getEnvFloat("IMPROV_NOTES_PER_SECOND", c.NotesPerSecond); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.MIDIPort == "":
		return errors.New("midi_port must not be empty")
	case c.Channel < -1 || c.Channel > 15:
		return fmt.Errorf("channel %d out of range [-1, 15]", c.Channel)
	case c.BundlePath == "":
		return errors.New("bundle path must not be empty")
	case c.PrimerPath == "":
		return errors.New("primer path must not be empty")
	case c.QPM <= 0:
		return fmt.Errorf("qpm must be positive, got %v", c.QPM)
	case c.NumBars < 1:
		return fmt.Errorf("num_bars must be at least 1, got %d", c.NumBars)
	case c.PrimerBars < 1:
		return fmt.Errorf("primer_bars must be at least 1, got %d", c.PrimerBars)
	case c.PrimerTemperature <= 0 || c.Temperature <= 0:
		return errors.New("temperatures must be positive")
	case c.NotesPerSecond < 0:
		return fmt.Errorf("notes_per_second must not be negative, got %v", c.NotesPerSecond)
	}
	if _, err := c.Histogram(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Histogram parses PitchClassHistogram.
func (c *Config) Histogram() (generator.Histogram, error) {
	return generator.ParseHistogram(c.PitchClassHistogram)
}

// Level parses LogLevel.
func (c *Config) Level() (contracts.LogLevel, error) {
	return contracts.ParseLogLevel(c.LogLevel)
}

// ForcedChannel returns the channel to force and whether forcing applies.
func (c *Config) ForcedChannel() (uint8, bool) {
	if c.Channel < 0 {
		return 0, false
	}
	return uint8(c.Channel), true
}
