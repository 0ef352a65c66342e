//go:build !cgo || darwin || windows

package midirtmidi

import (
	"fmt"

	"github.com/leandrodaf/improv/sdk/contracts"
)

type dummyMIDIClient struct {
	logger contracts.Logger
}

// NewMIDIClient initializes a dummy client where rtmidi is not compiled in.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.OutputMIDI, error) {
	options.Logger.Info("Using dummy MIDI client, rtmidi requires cgo")
	return &dummyMIDIClient{logger: options.Logger}, nil
}

func (m *dummyMIDIClient) ListPorts() ([]contracts.PortInfo, error) {
	m.logger.Warn("ListPorts called on dummy MIDI client")
	return nil, fmt.Errorf("rtmidi output is not available in this build")
}

func (m *dummyMIDIClient) OpenPort(portID int) error {
	m.logger.Warn("OpenPort called on dummy MIDI client")
	return fmt.Errorf("rtmidi output is not available in this build")
}

func (m *dummyMIDIClient) Send(msg contracts.MIDI) error {
	return fmt.Errorf("rtmidi output is not available in this build")
}

func (m *dummyMIDIClient) Close() error {
	return nil
}
