package contracts

import "fmt"

// MIDICommand is the status nibble of a channel voice message.
type MIDICommand byte

const (
	// NoteOff is the MIDI command for a Note Off event (0x80).
	NoteOff MIDICommand = 0x80
	// NoteOn is the MIDI command for a Note On event (0x90).
	NoteOn MIDICommand = 0x90
	// ControlChange is the MIDI command for a Control Change event (0xB0).
	ControlChange MIDICommand = 0xB0
)

// AllNotesOffController is the channel mode controller that silences a channel.
const AllNotesOffController byte = 123

// DrumChannel is the zero-based General MIDI percussion channel.
const DrumChannel uint8 = 9

// MIDI is a three-byte channel voice message.
type MIDI struct {
	Command  MIDICommand // Command specifies the type of MIDI event (e.g., Note On, Note Off).
	Channel  uint8       // Zero-based channel (0-15).
	Note     uint8       // Note number, or controller number for ControlChange.
	Velocity uint8       // Velocity, or controller value for ControlChange.
}

// NewNoteOn builds a Note On message.
func NewNoteOn(channel, note, velocity uint8) MIDI {
	return MIDI{Command: NoteOn, Channel: channel, Note: note, Velocity: velocity}
}

// NewNoteOff builds a Note Off message.
func NewNoteOff(channel, note uint8) MIDI {
	return MIDI{Command: NoteOff, Channel: channel, Note: note}
}

// NewAllNotesOff builds the channel mode message that releases every note on a channel.
func NewAllNotesOff(channel uint8) MIDI {
	return MIDI{Command: ControlChange, Channel: channel, Note: AllNotesOffController}
}

// Status returns the status byte (command | channel).
func (m MIDI) Status() byte {
	return byte(m.Command) | (m.Channel & 0x0F)
}

// Bytes returns the wire representation of the message.
func (m MIDI) Bytes() []byte {
	return []byte{m.Status(), m.Note & 0x7F, m.Velocity & 0x7F}
}

// Uint32 packs the message the way winmm's midiOutShortMsg expects it.
func (m MIDI) Uint32() uint32 {
	return uint32(m.Status()) | uint32(m.Note&0x7F)<<8 | uint32(m.Velocity&0x7F)<<16
}

func (m MIDI) String() string {
	switch m.Command {
	case NoteOn:
		return fmt.Sprintf("NoteOn ch=%d key=%d vel=%d", m.Channel, m.Note, m.Velocity)
	case NoteOff:
		return fmt.Sprintf("NoteOff ch=%d key=%d", m.Channel, m.Note)
	case ControlChange:
		return fmt.Sprintf("CC ch=%d ctl=%d val=%d", m.Channel, m.Note, m.Velocity)
	}
	return fmt.Sprintf("MIDI 0x%02X %d %d", m.Status(), m.Note, m.Velocity)
}

// OutputMIDI defines an interface for MIDI output operations.
type OutputMIDI interface {
	ListPorts() ([]PortInfo, error) // Lists all available MIDI output ports.
	OpenPort(portID int) error      // Opens an output port by its ID for sending.
	Send(msg MIDI) error            // Sends one message to the open port.
	Close() error                   // Closes the port and releases resources.
}
