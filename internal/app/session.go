// Package app wires configuration, generator, MIDI output, player and loop
// into a runnable session shared by the command line and UI programs.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/leandrodaf/improv/internal/config"
	"github.com/leandrodaf/improv/sdk/contracts"
	"github.com/leandrodaf/improv/sdk/generator"
	"github.com/leandrodaf/improv/sdk/improv"
	"github.com/leandrodaf/improv/sdk/midi"
	"github.com/leandrodaf/improv/sdk/playback"
	"github.com/leandrodaf/improv/sdk/schedule"
	"github.com/leandrodaf/improv/sdk/sequence"
	"go.uber.org/multierr"
)

// OutputFactory builds an unopened MIDI output.
type OutputFactory func(opts ...contracts.Option) (contracts.OutputMIDI, error)

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	newOutput   OutputFactory
	loopOptions []improv.Option
}

// WithOutputFactory replaces midi.NewMIDIOutput.
func WithOutputFactory(f OutputFactory) Option {
	return func(o *openOptions) { o.newOutput = f }
}

// WithLoopOptions passes extra options to the loop.
func WithLoopOptions(opts ...improv.Option) Option {
	return func(o *openOptions) { o.loopOptions = append(o.loopOptions, opts...) }
}

// Session owns everything a running improvisation needs.
type Session struct {
	Config    *config.Config
	Bundle    generator.Bundle
	Generator generator.Generator
	Params    *improv.Parameters
	Ports     []contracts.PortInfo
	Output    contracts.OutputMIDI
	Player    *playback.Player
	Loop      *improv.Loop

	primer sequence.NoteSequence
	log    contracts.Logger
	opened time.Time
}

// Open validates cfg, loads the bundle and primer, opens the first matching
// MIDI output and starts an idle player on it.
func Open(ctx context.Context, cfg *config.Config, log contracts.Logger, opts ...Option) (*Session, error) {
	o := openOptions{newOutput: midi.NewMIDIOutput}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	hist, _ := cfg.Histogram()
	level, _ := cfg.Level()
	log.SetLevel(level)

	bundle, err := generator.ReadBundleFile(cfg.BundlePath)
	if err != nil {
		return nil, err
	}
	gen, err := generator.New(bundle, generator.WithLogger(log))
	if err != nil {
		return nil, err
	}
	log.Info("loaded bundle",
		log.Field().String("generator", gen.ID()),
		log.Field().String("path", cfg.BundlePath))

	primer, err := sequence.ReadMIDIFile(cfg.PrimerPath)
	if err != nil {
		return nil, err
	}

	out, err := o.newOutput(
		contracts.WithLogger(log),
		contracts.WithLogLevel(level),
		contracts.WithClientName(cfg.ClientName),
	)
	if err != nil {
		return nil, fmt.Errorf("create MIDI output: %w", err)
	}
	ports, err := midi.OpenMatching(out, cfg.MIDIPort)
	if err != nil {
		return nil, multierr.Append(err, out.Close())
	}

	params := improv.NewParameters(improv.Settings{
		Temperature:         cfg.Temperature,
		NotesPerSecond:      cfg.NotesPerSecond,
		PitchClassHistogram: hist,
	})

	s := &Session{
		Config:    cfg,
		Bundle:    bundle,
		Generator: gen,
		Params:    params,
		Ports:     ports,
		Output:    out,
		primer:    primer,
		log:       log,
		opened:    time.Now(),
	}
	s.Player = playback.Start(ctx, out,
		playback.WithChannel(s.channel()),
		playback.WithLogger(log))

	loopOpts := []improv.Option{improv.WithLogger(log)}
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return nil, multierr.Append(fmt.Errorf("create output dir: %w", err), s.Close())
		}
		loopOpts = append(loopOpts, improv.WithSequenceHook(s.saveWindow))
	}
	loopOpts = append(loopOpts, o.loopOptions...)

	s.Loop, err = improv.NewLoop(improv.Config{
		QPM:               cfg.QPM,
		NumBars:           cfg.NumBars,
		PrimerBars:        cfg.PrimerBars,
		PrimerTemperature: cfg.PrimerTemperature,
	}, gen, s.Player, params, loopOpts...)
	if err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	return s, nil
}

// channel is the configured channel, or 9 for drum bundles and the bundle's
// performance channel otherwise.
func (s *Session) channel() uint8 {
	if ch, ok := s.Config.ForcedChannel(); ok {
		return ch
	}
	if s.Bundle.Generator == generator.DrumKitID {
		return contracts.DrumChannel
	}
	return s.Bundle.Performance.Channel
}

// Run primes the generator and loops until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	seq, err := s.Loop.Prime(ctx, s.primer)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	sch := s.Loop.Schedule()
	s.log.Info("starting loop",
		s.log.Field().Float64("qpm", sch.QPM),
		s.log.Field().Duration("period", sch.Period),
		s.log.Field().Int("notes", len(seq.Notes)))
	return s.Loop.Run(ctx, seq)
}

func (s *Session) saveWindow(tick schedule.Tick, seq sequence.NoteSequence) {
	name := filepath.Join(s.Config.OutputDir, fmt.Sprintf("%d.mid", tick.Number))
	if err := sequence.WriteMIDIFile(name, seq); err != nil {
		s.log.Warn("could not save window",
			s.log.Field().String("path", name),
			s.log.Field().Error("error", err))
		return
	}
	s.log.Debug("saved window",
		s.log.Field().String("path", name),
		s.log.Field().Time("tick", tick.Time))
}

// Close stops the player and closes the output.
func (s *Session) Close() error {
	var err error
	if s.Player != nil {
		err = multierr.Append(err, s.Player.Stop())
	}
	if s.Output != nil {
		err = multierr.Append(err, s.Output.Close())
	}
	s.log.Info("session closed", s.log.Field().Duration("uptime", time.Since(s.opened)))
	return err
}
