//go:build !darwin
// +build !darwin

package mididarwin

import (
	"fmt"

	"github.com/leandrodaf/improv/sdk/contracts"
)

type DummyMIDIClient struct {
	logger contracts.Logger
}

func NewMIDIClient(options *contracts.ClientOptions) (contracts.OutputMIDI, error) {
	options.Logger.Info("Using dummy MIDI client for non-macOS system")
	return &DummyMIDIClient{
		logger: options.Logger,
	}, nil
}

func (m *DummyMIDIClient) ListPorts() ([]contracts.PortInfo, error) {
	m.logger.Warn("ListPorts called on dummy MIDI client")
	return nil, fmt.Errorf("CoreMIDI is not available on this platform")
}

func (m *DummyMIDIClient) OpenPort(portID int) error {
	m.logger.Warn("OpenPort called on dummy MIDI client")
	return fmt.Errorf("CoreMIDI is not available on this platform")
}

func (m *DummyMIDIClient) Send(msg contracts.MIDI) error {
	return fmt.Errorf("CoreMIDI is not available on this platform")
}

func (m *DummyMIDIClient) Close() error {
	m.logger.Warn("Close called on dummy MIDI client")
	return nil
}
