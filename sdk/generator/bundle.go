package generator

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidBundle is returned when a bundle file cannot serve any generator.
var ErrInvalidBundle = errors.New("invalid bundle")

// DefaultStepsPerQuarter is the sixteenth-note grid used by both models.
const DefaultStepsPerQuarter = 4

// Bundle is the serialized model artifact: the generator id plus the
// parameters it is built from.
type Bundle struct {
	Generator       string            `yaml:"generator"`
	Description     string            `yaml:"description,omitempty"`
	StepsPerQuarter int               `yaml:"steps_per_quarter,omitempty"`
	Seed            uint64            `yaml:"seed,omitempty"`
	Drums           DrumKitConfig     `yaml:"drums,omitempty"`
	Performance     PerformanceConfig `yaml:"performance,omitempty"`
}

// DrumClass groups the MIDI pitches treated as the same instrument.
// Generated hits use the first pitch.
type DrumClass struct {
	Name    string  `yaml:"name"`
	Pitches []uint8 `yaml:"pitches"`
}

// DrumKitConfig parameterizes the drum step model.
type DrumKitConfig struct {
	Classes   []DrumClass `yaml:"classes,omitempty"`
	Velocity  uint8       `yaml:"velocity,omitempty"`
	Smoothing float64     `yaml:"smoothing,omitempty"`
}

// PerformanceConfig parameterizes the polyphonic Markov model.
type PerformanceConfig struct {
	MinPitch     uint8   `yaml:"min_pitch,omitempty"`
	MaxPitch     uint8   `yaml:"max_pitch,omitempty"`
	MaxInterval  int     `yaml:"max_interval,omitempty"`
	MaxSteps     int     `yaml:"max_duration_steps,omitempty"`
	MaxPolyphony int     `yaml:"max_polyphony,omitempty"`
	Smoothing    float64 `yaml:"smoothing,omitempty"`
	Channel      uint8   `yaml:"channel,omitempty"`
}

// ReadBundleFile reads and validates a bundle from path.
func ReadBundleFile(path string) (Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return Bundle{}, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()

	b, err := ReadBundle(f)
	if err != nil {
		return Bundle{}, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// ReadBundle decodes a YAML bundle and fills defaults.
func ReadBundle(r io.Reader) (Bundle, error) {
	var b Bundle
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	if b.Generator == "" {
		return Bundle{}, fmt.Errorf("%w: missing generator id", ErrInvalidBundle)
	}
	if b.StepsPerQuarter < 0 {
		return Bundle{}, fmt.Errorf("%w: steps_per_quarter %d", ErrInvalidBundle, b.StepsPerQuarter)
	}
	if b.StepsPerQuarter == 0 {
		b.StepsPerQuarter = DefaultStepsPerQuarter
	}
	return b, nil
}

// WriteBundle encodes b as YAML.
func WriteBundle(w io.Writer, b Bundle) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return enc.Close()
}
