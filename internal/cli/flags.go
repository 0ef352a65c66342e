// Package cli parses the flags shared by the improv programs and layers
// them over the file and environment configuration.
package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/leandrodaf/improv/internal/config"
	"github.com/leandrodaf/improv/sdk/contracts"
)

// Parse reads args (without the program name) over the command line
// program defaults.
func Parse(name string, args []string, stderr io.Writer) (*config.Config, error) {
	return ParseOver(name, config.Default(), args, stderr)
}

// ParseOver reads args starting from def, loads the configuration named by
// --config and applies every flag given explicitly.
func ParseOver(name string, def *config.Config, args []string, stderr io.Writer) (*config.Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "YAML configuration file")
	port := fs.String("midi_port", def.MIDIPort, "substring of the MIDI output port name")
	bundle := fs.String("bundle", def.BundlePath, "generator bundle file")
	primer := fs.String("primer", def.PrimerPath, "primer MIDI file")
	output := fs.String("output", "", "directory receiving every generated window as MIDI")
	logLevel := fs.String("log_level", def.LogLevel, "debug, info, warn, error or fatal")
	logFile := fs.String("log_file", "", "write logs to this file instead of the console")
	qpm := fs.Float64("qpm", def.QPM, "tempo in quarter notes per minute")
	bars := fs.Int("num_bars", def.NumBars, "bars generated per tick")
	channel := fs.Int("channel", def.Channel, "force every note onto this channel, -1 keeps the bundle default")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %q", fs.Args())
	}

	cfg, err := config.LoadOver(def, *configPath)
	if err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "midi_port":
			cfg.MIDIPort = *port
		case "bundle":
			cfg.BundlePath = *bundle
		case "primer":
			cfg.PrimerPath = *primer
		case "output":
			cfg.OutputDir = *output
		case "log_level":
			cfg.LogLevel = *logLevel
		case "log_file":
			cfg.LogFile = *logFile
		case "qpm":
			cfg.QPM = *qpm
		case "num_bars":
			cfg.NumBars = *bars
		case "channel":
			cfg.Channel = *channel
		}
	})
	return cfg, nil
}

// ConfigureLogger applies the configured level and destination.
func ConfigureLogger(log contracts.Logger, cfg *config.Config) error {
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	log.SetLevel(level)
	if cfg.LogFile != "" {
		return log.SetDestination(contracts.FileLog, cfg.LogFile)
	}
	return nil
}
