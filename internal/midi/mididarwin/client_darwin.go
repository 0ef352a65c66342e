//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/improv/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for MIDI connection and handling issues.
var (
	ErrNoMIDIPorts      = errors.New("no MIDI output ports found")
	ErrInvalidMIDIPort  = errors.New("invalid MIDI output port")
	ErrCreateOutputPort = errors.New("error creating output port")
	ErrPortNotOpen      = errors.New("no MIDI output port open")
	ErrSendMIDIMessage  = errors.New("error sending MIDI message")
	ErrListDestinations = errors.New("error listing MIDI destinations")
)

// ClientMid sends MIDI messages to CoreMIDI destinations on Darwin (macOS).
type ClientMid struct {
	logger      contracts.Logger
	client      coremidi.Client
	outputPort  coremidi.OutputPort
	destination *coremidi.Destination
	config      *contracts.CoreMIDIConfig
	mu          sync.Mutex
	portCreated bool
	closeOnce   sync.Once
}

// NewMIDIClient initializes a CoreMIDI client for sending MIDI messages on macOS.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.OutputMIDI, error) {
	client, err := coremidi.NewClient(options.CoreMIDIConfig.ClientName)
	if err != nil {
		return nil, err
	}
	options.Logger.Info("MIDI client successfully created",
		options.Logger.Field().String("clientName", options.CoreMIDIConfig.ClientName))

	return &ClientMid{
		logger: options.Logger,
		client: client,
		config: options.CoreMIDIConfig,
	}, nil
}

// ListPorts returns the CoreMIDI destinations, which are the outputs from our side.
func (m *ClientMid) ListPorts() ([]contracts.PortInfo, error) {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrListDestinations, err)
	}
	if len(destinations) == 0 {
		m.logger.Warn(ErrNoMIDIPorts.Error())
		return nil, ErrNoMIDIPorts
	}

	ports := make([]contracts.PortInfo, len(destinations))
	for i, destination := range destinations {
		entity := destination.Entity()
		ports[i] = contracts.PortInfo{
			ID:           i,
			Name:         destination.Name(),
			EntityName:   entity.Name(),
			Manufacturer: entity.Manufacturer(),
		}
	}
	return ports, nil
}

// OpenPort selects a destination by ID, creating the client's output port on first use.
func (m *ClientMid) OpenPort(portID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrListDestinations, err)
	}
	if portID < 0 || portID >= len(destinations) {
		m.logger.Error(ErrInvalidMIDIPort.Error(), m.logger.Field().Int("portID", portID))
		return ErrInvalidMIDIPort
	}

	if !m.portCreated {
		m.outputPort, err = coremidi.NewOutputPort(m.client, m.config.PortName)
		if err != nil {
			m.logger.Error(ErrCreateOutputPort.Error(), m.logger.Field().Error("error", err))
			return fmt.Errorf("%w: %v", ErrCreateOutputPort, err)
		}
		m.portCreated = true
	}

	destination := destinations[portID]
	m.destination = &destination
	m.logger.Info("MIDI output port selected",
		m.logger.Field().Int("portID", portID),
		m.logger.Field().String("portName", destination.Name()))
	return nil
}

// Send writes one message to the selected destination, timestamped for immediate delivery.
func (m *ClientMid) Send(msg contracts.MIDI) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destination == nil {
		return ErrPortNotOpen
	}
	packet := coremidi.NewPacket(msg.Bytes(), 0)
	if err := packet.Send(&m.outputPort, m.destination); err != nil {
		return fmt.Errorf("%w: %v", ErrSendMIDIMessage, err)
	}
	return nil
}

// Close forgets the destination. It runs only once.
func (m *ClientMid) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.destination = nil
		m.logger.Info("MIDI output closed")
	})
	return nil
}
