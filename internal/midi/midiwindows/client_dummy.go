//go:build !windows
// +build !windows

package midiwindows

import (
	"fmt"

	"github.com/leandrodaf/improv/sdk/contracts"
)

type dummyMIDIClient struct {
	logger contracts.Logger
}

// NewMIDIClient initializes a dummy MIDI output client for non-Windows systems.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.OutputMIDI, error) {
	options.Logger.Info("Using dummy MIDI client for non-Windows system")
	return &dummyMIDIClient{
		logger: options.Logger,
	}, nil
}

// ListPorts reports that winmm output is unavailable on this platform.
func (m *dummyMIDIClient) ListPorts() ([]contracts.PortInfo, error) {
	m.logger.Warn("ListPorts called on dummy MIDI client")
	return nil, fmt.Errorf("winmm MIDI output is not available on this platform")
}

// OpenPort reports that winmm output is unavailable on this platform.
func (m *dummyMIDIClient) OpenPort(portID int) error {
	m.logger.Warn("OpenPort called on dummy MIDI client")
	return fmt.Errorf("winmm MIDI output is not available on this platform")
}

// Send always fails on the dummy client.
func (m *dummyMIDIClient) Send(msg contracts.MIDI) error {
	return fmt.Errorf("winmm MIDI output is not available on this platform")
}

// Close is a no-op.
func (m *dummyMIDIClient) Close() error {
	return nil
}
