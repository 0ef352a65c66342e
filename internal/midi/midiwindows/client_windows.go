//go:build windows
// +build windows

package midiwindows

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/leandrodaf/improv/sdk/contracts"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type HMIDIOUT windows.Handle

// CALLBACK_NULL opens the device without a status callback.
const CALLBACK_NULL = 0x00000000

// ErrPortNotOpen is returned by Send before OpenPort succeeded.
var ErrPortNotOpen = errors.New("no MIDI output port open")

// Struct representing MIDI output device capabilities (MIDIOUTCAPSW)
type midiOutCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	wTechnology    uint16
	wVoices        uint16
	wNotes         uint16
	wChannelMask   uint16
	dwSupport      uint32
}

// ClientMid manages MIDI output on Windows
type ClientMid struct {
	logger contracts.Logger
	handle HMIDIOUT
	open   bool
	mu     sync.Mutex
}

// Load the winmm.dll library and required functions
var (
	winmm                 = windows.NewLazySystemDLL("winmm.dll")
	procMidiOutGetNumDevs = winmm.NewProc("midiOutGetNumDevs")
	procMidiOutGetDevCaps = winmm.NewProc("midiOutGetDevCapsW")
	procMidiOutOpen       = winmm.NewProc("midiOutOpen")
	procMidiOutShortMsg   = winmm.NewProc("midiOutShortMsg")
	procMidiOutReset      = winmm.NewProc("midiOutReset")
	procMidiOutClose      = winmm.NewProc("midiOutClose")
)

// NewMIDIClient creates a MIDI output client for Windows
func NewMIDIClient(options *contracts.ClientOptions) (contracts.OutputMIDI, error) {
	options.Logger.Info("MIDI output client created for Windows")

	return &ClientMid{
		logger: options.Logger,
	}, nil
}

// ListPorts lists the available MIDI output devices
func (m *ClientMid) ListPorts() ([]contracts.PortInfo, error) {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		m.logger.Warn("No MIDI output devices found")
		return nil, errors.New("no MIDI output devices found")
	}

	ports := make([]contracts.PortInfo, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			m.logger.Warn(fmt.Sprintf("Failed to get information for MIDI output device %d", i))
			continue
		}
		name := windows.UTF16ToString(caps.szPname[:])
		ports = append(ports, contracts.PortInfo{
			ID:           int(i),
			Name:         name,
			EntityName:   name,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		})
	}
	return ports, nil
}

// OpenPort opens a MIDI output device, closing the previous one first
func (m *ClientMid) OpenPort(portID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open {
		if err := m.closeDevice(); err != nil {
			return fmt.Errorf("failed to close previous MIDI output: %w", err)
		}
	}

	r1, _, err := procMidiOutOpen.Call(
		uintptr(unsafe.Pointer(&m.handle)),
		uintptr(portID),
		0,
		0,
		uintptr(CALLBACK_NULL),
	)
	if r1 != 0 {
		m.logger.Error(fmt.Sprintf("Failed to open MIDI output %d: %v", portID, err))
		return fmt.Errorf("failed to open MIDI output %d: %v", portID, err)
	}

	m.open = true
	m.logger.Info(fmt.Sprintf("MIDI output %d opened", portID))
	return nil
}

// Send writes a short message to the open device
func (m *ClientMid) Send(msg contracts.MIDI) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return ErrPortNotOpen
	}
	r1, _, err := procMidiOutShortMsg.Call(uintptr(m.handle), uintptr(msg.Uint32()))
	if r1 != 0 {
		return fmt.Errorf("midiOutShortMsg %s: %v", msg, err)
	}
	return nil
}

// Close resets and closes the device
func (m *ClientMid) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return nil
	}
	if err := m.closeDevice(); err != nil {
		return fmt.Errorf("failed to close MIDI output: %w", err)
	}
	m.logger.Info("MIDI output closed")
	return nil
}

// closeDevice silences and releases the handle
func (m *ClientMid) closeDevice() error {
	if m.handle == 0 {
		return fmt.Errorf("invalid MIDI device handle")
	}

	r1, _, err := procMidiOutReset.Call(uintptr(m.handle))
	if r1 != 0 {
		m.logger.Error(fmt.Sprintf("Failed to reset MIDI output: %v", err))
		return err
	}

	r1, _, err = procMidiOutClose.Call(uintptr(m.handle))
	if r1 != 0 {
		m.logger.Error(fmt.Sprintf("Failed to close MIDI output: %v", err))
		return err
	}

	m.open = false
	m.handle = 0
	return nil
}
