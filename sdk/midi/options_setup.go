package midi

import (
	"github.com/leandrodaf/improv/internal/logger"
	"github.com/leandrodaf/improv/sdk/contracts"
)

// DefaultClientName is announced to the MIDI system when none is configured.
const DefaultClientName = "improv"

// applyDefaultOptions sets default values for ClientOptions if not explicitly provided.
func applyDefaultOptions(opts ...contracts.Option) (contracts.ClientOptions, error) {
	options := &contracts.ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if !options.LogLevelSet {
		options.LogLevel = contracts.InfoLevel
	}

	if options.CoreMIDIConfig == nil {
		options.CoreMIDIConfig = &contracts.CoreMIDIConfig{}
	}
	if options.CoreMIDIConfig.ClientName == "" {
		options.CoreMIDIConfig.ClientName = DefaultClientName
	}
	if options.CoreMIDIConfig.PortName == "" {
		options.CoreMIDIConfig.PortName = "Output Port"
	}

	options.Logger.SetLevel(options.LogLevel)
	return *options, nil
}
