package midi

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/leandrodaf/improv/internal/midi/mididarwin"
	"github.com/leandrodaf/improv/internal/midi/midirtmidi"
	"github.com/leandrodaf/improv/internal/midi/midiwindows"
	"github.com/leandrodaf/improv/sdk/contracts"
)

// ErrUnsupportedOS is returned when the operating system is not supported by the MIDI client.
var ErrUnsupportedOS = errors.New("unsupported operating system")

type clientInitializer func(*contracts.ClientOptions) (contracts.OutputMIDI, error)

// clientInitializers maps OS names to corresponding MIDI output initializers.
var clientInitializers = map[string]clientInitializer{
	"darwin":  mididarwin.NewMIDIClient,  // macOS (Darwin) CoreMIDI output.
	"windows": midiwindows.NewMIDIClient, // Windows winmm output.
	"linux":   midirtmidi.NewMIDIClient,  // ALSA/JACK through rtmidi.
	"freebsd": midirtmidi.NewMIDIClient,
}

// NewClient initializes a MIDI output client based on the current operating system.
// It returns ErrUnsupportedOS when no initializer is registered for runtime.GOOS.
func NewClient(opts *contracts.ClientOptions) (contracts.OutputMIDI, error) {
	return newClientFor(runtime.GOOS, opts)
}

func newClientFor(goos string, opts *contracts.ClientOptions) (contracts.OutputMIDI, error) {
	if initializer, exists := clientInitializers[goos]; exists {
		return initializer(opts)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, goos)
}
