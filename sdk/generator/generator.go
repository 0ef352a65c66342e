// Package generator continues note sequences with probabilistic models
// loaded from bundle files.
package generator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/leandrodaf/improv/internal/logger"
	"github.com/leandrodaf/improv/sdk/contracts"
	"github.com/leandrodaf/improv/sdk/sequence"
)

var (
	ErrUnknownGenerator   = errors.New("unknown generator")
	ErrInvalidSection     = errors.New("invalid generate section")
	ErrInvalidTemperature = errors.New("temperature must be positive")
)

// Section is a time window to fill, relative to the primer origin.
type Section struct {
	Start time.Duration
	End   time.Duration
}

// Options are the per-call generation arguments.
type Options struct {
	Temperature         float64
	NotesPerSecond      float64 // zero keeps the density learned from the primer
	PitchClassHistogram Histogram
	Sections            []Section
}

func (o Options) validate() error {
	if o.Temperature <= 0 || math.IsNaN(o.Temperature) {
		return fmt.Errorf("%w: %v", ErrInvalidTemperature, o.Temperature)
	}
	if len(o.Sections) == 0 {
		return fmt.Errorf("%w: none given", ErrInvalidSection)
	}
	for _, s := range o.Sections {
		if s.Start < 0 || s.End <= s.Start {
			return fmt.Errorf("%w: [%v, %v)", ErrInvalidSection, s.Start, s.End)
		}
	}
	return nil
}

// Generator continues a primer into the requested sections. The result holds
// the primer notes that precede the first section followed by the new notes.
// The step grid is derived from primer.Tempo, so callers set it to the
// playback tempo.
type Generator interface {
	ID() string
	StepsPerQuarter() int
	Generate(ctx context.Context, primer sequence.NoteSequence, opts Options) (sequence.NoteSequence, error)
}

// Option configures a generator at construction.
type Option func(*settings)

type settings struct {
	rng    *rand.Rand
	logger contracts.Logger
}

// WithRand fixes the random source, mostly for reproducible tests.
func WithRand(r *rand.Rand) Option {
	return func(s *settings) { s.rng = r }
}

// WithLogger sets the logger used for generation diagnostics.
func WithLogger(l contracts.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func applySettings(b Bundle, opts ...Option) settings {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.rng == nil {
		seed := b.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	}
	if s.logger == nil {
		s.logger = logger.NewNopLogger()
	}
	return s
}

// Constructor builds a generator from a bundle.
type Constructor func(b Bundle, opts ...Option) (Generator, error)

var generatorMap = map[string]Constructor{
	DrumKitID:     NewDrumKit,
	PerformanceID: NewPerformance,
	"multiconditioned_performance_with_dynamics": NewPerformance,
}

// New returns the generator registered for b.Generator.
func New(b Bundle, opts ...Option) (Generator, error) {
	ctor, ok := generatorMap[b.Generator]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownGenerator, b.Generator, Available())
	}
	return ctor(b, opts...)
}

// Available lists the registered generator ids.
func Available() []string {
	ids := make([]string, 0, len(generatorMap))
	for id := range generatorMap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// contextNotes returns the primer notes that start before t.
func contextNotes(primer sequence.NoteSequence, t time.Duration) []sequence.Note {
	var notes []sequence.Note
	for _, n := range primer.Notes {
		if n.Start < t {
			notes = append(notes, n)
		}
	}
	return notes
}

// firstStep returns the index of the first grid step at or after t.
func firstStep(t, step time.Duration) int64 {
	return int64((t + step - 1) / step)
}
