//go:build cgo && !darwin && !windows

// Package midirtmidi sends MIDI through rtmidi (ALSA/JACK on Linux).
package midirtmidi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/improv/sdk/contracts"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var (
	ErrNoMIDIPorts     = errors.New("no MIDI output ports found")
	ErrInvalidMIDIPort = errors.New("invalid MIDI output port")
	ErrPortNotOpen     = errors.New("no MIDI output port open")
)

// ClientMid wraps an rtmidi driver and at most one open output.
type ClientMid struct {
	logger contracts.Logger
	drv    *rtmididrv.Driver
	out    drivers.Out
	mu     sync.Mutex
}

// NewMIDIClient initialises the rtmidi driver. Call Close() when done.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.OutputMIDI, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	options.Logger.Info("rtmidi MIDI client created")
	return &ClientMid{logger: options.Logger, drv: drv}, nil
}

// ListPorts lists the rtmidi outputs.
func (m *ClientMid) ListPorts() ([]contracts.PortInfo, error) {
	outs, err := m.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}
	if len(outs) == 0 {
		m.logger.Warn(ErrNoMIDIPorts.Error())
		return nil, ErrNoMIDIPorts
	}
	ports := make([]contracts.PortInfo, len(outs))
	for i, out := range outs {
		ports[i] = contracts.PortInfo{ID: i, Name: out.String(), EntityName: out.String()}
	}
	return ports, nil
}

// OpenPort opens an output by index while closing the currently open one if necessary.
func (m *ClientMid) OpenPort(portID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	outs, err := m.drv.Outs()
	if err != nil {
		return fmt.Errorf("list outputs: %w", err)
	}
	if portID < 0 || portID >= len(outs) {
		m.logger.Error(ErrInvalidMIDIPort.Error(), m.logger.Field().Int("portID", portID))
		return ErrInvalidMIDIPort
	}

	if m.out != nil && m.out.IsOpen() {
		_ = m.out.Close()
	}
	out := outs[portID]
	if err := out.Open(); err != nil {
		m.out = nil
		return fmt.Errorf("open %q: %w", out.String(), err)
	}
	m.out = out
	m.logger.Info("MIDI output port opened",
		m.logger.Field().Int("portID", portID),
		m.logger.Field().String("portName", out.String()))
	return nil
}

// Send writes one message to the open output.
func (m *ClientMid) Send(msg contracts.MIDI) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.out == nil {
		return ErrPortNotOpen
	}
	if err := m.out.Send(msg.Bytes()); err != nil {
		return fmt.Errorf("send %s: %w", msg, err)
	}
	return nil
}

// Close shuts down the open output and the rtmidi driver.
func (m *ClientMid) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.out != nil && m.out.IsOpen() {
		err = m.out.Close()
		m.out = nil
	}
	if cerr := m.drv.Close(); err == nil {
		err = cerr
	}
	m.logger.Info("rtmidi MIDI client closed")
	return err
}
