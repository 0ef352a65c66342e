// Package improv runs the generate-and-play loop: every tick it hands the
// last rendered window to the player and renders the next one.
package improv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leandrodaf/improv/internal/logger"
	"github.com/leandrodaf/improv/sdk/contracts"
	"github.com/leandrodaf/improv/sdk/generator"
	"github.com/leandrodaf/improv/sdk/schedule"
	"github.com/leandrodaf/improv/sdk/sequence"
)

// Sink receives sequences with absolute note times.
type Sink interface {
	Update(seq sequence.NoteSequence, startTime time.Time)
}

// Config holds the loop's fixed values.
type Config struct {
	QPM               float64
	NumBars           int
	PrimerBars        int
	PrimerTemperature float64 // temperature of the first generation from the primer
}

// Loop drives a generator on a fixed tick schedule.
type Loop struct {
	cfg        Config
	schedule   schedule.Schedule
	generator  generator.Generator
	sink       Sink
	params     *Parameters
	sleeper    schedule.Sleeper
	log        contracts.Logger
	now        func() time.Time
	onSequence func(tick schedule.Tick, seq sequence.NoteSequence)
}

// Option configures a Loop.
type Option func(*Loop)

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s schedule.Sleeper) Option {
	return func(l *Loop) { l.sleeper = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// WithLogger sets the logger.
func WithLogger(log contracts.Logger) Option {
	return func(l *Loop) { l.log = log }
}

// WithSequenceHook is called with each window right after it is pushed to the sink.
func WithSequenceHook(fn func(tick schedule.Tick, seq sequence.NoteSequence)) Option {
	return func(l *Loop) { l.onSequence = fn }
}

// NewLoop validates cfg and builds a loop.
func NewLoop(cfg Config, gen generator.Generator, sink Sink, params *Parameters, opts ...Option) (*Loop, error) {
	if gen == nil || sink == nil || params == nil {
		return nil, errors.New("improv: generator, sink and parameters are required")
	}
	sch, err := schedule.NewSchedule(cfg.QPM, cfg.NumBars)
	if err != nil {
		return nil, err
	}
	if cfg.PrimerBars <= 0 {
		cfg.PrimerBars = 1
	}
	if cfg.PrimerTemperature <= 0 {
		cfg.PrimerTemperature = params.Snapshot().Temperature
	}
	l := &Loop{
		cfg:       cfg,
		schedule:  sch,
		generator: gen,
		sink:      sink,
		params:    params,
		sleeper:   schedule.WallSleeper{},
		log:       logger.NewNopLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Schedule returns the tick schedule in use.
func (l *Loop) Schedule() schedule.Schedule { return l.schedule }

func (l *Loop) options(s Settings, temperature float64, sec generator.Section) generator.Options {
	return generator.Options{
		Temperature:         temperature,
		NotesPerSecond:      s.NotesPerSecond,
		PitchClassHistogram: s.PitchClassHistogram,
		Sections:            []generator.Section{sec},
	}
}

// Prime trims the primer to its first PrimerBars bars and generates the
// remaining NumBars bars of the first period after it.
func (l *Loop) Prime(ctx context.Context, primer sequence.NoteSequence) (sequence.NoteSequence, error) {
	primerEnd := l.schedule.Bar * time.Duration(l.cfg.PrimerBars)
	primer = primer.Trim(0, primerEnd)
	primer.Tempo = l.cfg.QPM
	sec := generator.Section{Start: primerEnd, End: primerEnd + l.schedule.Bar*time.Duration(l.cfg.NumBars)}

	l.log.Info("generating from primer",
		l.log.Field().Duration("primerEnd", primerEnd),
		l.log.Field().Duration("generationStart", sec.Start),
		l.log.Field().Duration("generationEnd", sec.End),
		l.log.Field().Int("primerNotes", len(primer.Notes)))

	seq, err := l.generator.Generate(ctx, primer, l.options(l.params.Snapshot(), l.cfg.PrimerTemperature, sec))
	if err != nil {
		return sequence.NoteSequence{}, fmt.Errorf("generate from primer: %w", err)
	}
	return seq, nil
}

// Step pushes seq at the current tick and renders the window for the next
// one. The returned sequence starts at zero and spans exactly one period.
func (l *Loop) Step(ctx context.Context, seq sequence.NoteSequence) (sequence.NoteSequence, schedule.Tick, error) {
	tick := l.schedule.At(l.now())

	l.sink.Update(seq.Shift(tick.Offset()), tick.Time)
	if l.onSequence != nil {
		l.onSequence(tick, seq)
	}

	settings := l.params.Snapshot()
	period := l.schedule.Period
	sec := generator.Section{Start: period, End: 2 * period}
	l.log.Debug("tick",
		l.log.Field().Int64("number", tick.Number),
		l.log.Field().Time("time", tick.Time),
		l.log.Field().Float64("temperature", settings.Temperature),
		l.log.Field().Float64("notesPerSecond", settings.NotesPerSecond))

	seq.Tempo = l.cfg.QPM
	next, err := l.generator.Generate(ctx, seq, l.options(settings, settings.Temperature, sec))
	if err != nil {
		return sequence.NoteSequence{}, tick, fmt.Errorf("generate tick %d: %w", tick.Number, err)
	}
	next = next.Trim(sec.Start, sec.End).Shift(-period)
	next.TotalTime = period
	return next, tick, nil
}

// Run repeats Step and sleeps to each next tick until ctx is cancelled.
// Cancellation is a clean stop and returns nil.
func (l *Loop) Run(ctx context.Context, seq sequence.NoteSequence) error {
	for {
		next, tick, err := l.Step(ctx, seq)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if late := l.now().Sub(tick.Next); late > 0 {
			l.log.Warn("generation overran the tick",
				l.log.Field().Int64("tick", tick.Number),
				l.log.Field().Duration("late", late))
		}
		if err := l.sleeper.SleepUntil(ctx, tick.Next); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		seq = next
	}
}
