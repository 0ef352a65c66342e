// Package panel holds the control surface state of the improv UI: two
// sliders and an Exit button, laid out in window coordinates and writing
// into shared improv parameters. Drawing lives in cmd/improv_ui.
package panel

import (
	"fmt"
	"image"
	"math"

	"github.com/leandrodaf/improv/sdk/improv"
)

const (
	WindowW = 640
	WindowH = 260

	pad       = 20
	rowH      = 56
	labelW    = 260
	buttonW   = 120
	buttonH   = 44
	trackPadX = 16
)

// Slider is a horizontal value control snapped to Resolution.
type Slider struct {
	Label      string
	Min, Max   float64
	Resolution float64
	Value      float64
	Format     string
}

// Set clamps v into [Min, Max], snaps it to the resolution grid and returns
// the stored value.
func (s *Slider) Set(v float64) float64 {
	if s.Resolution > 0 {
		v = s.Min + math.Round((v-s.Min)/s.Resolution)*s.Resolution
	}
	s.Value = clamp(v, s.Min, s.Max)
	return s.Value
}

// SetFromPosition maps a cursor x coordinate on a track starting at trackX
// and trackW pixels wide to a value.
func (s *Slider) SetFromPosition(x, trackX, trackW int) float64 {
	if trackW <= 0 {
		return s.Value
	}
	frac := clamp(float64(x-trackX)/float64(trackW), 0, 1)
	return s.Set(s.Min + frac*(s.Max-s.Min))
}

// Fraction is the knob position in [0, 1].
func (s *Slider) Fraction() float64 {
	if s.Max <= s.Min {
		return 0
	}
	return clamp((s.Value-s.Min)/(s.Max-s.Min), 0, 1)
}

// Text is the label rendered next to the track.
func (s *Slider) Text() string {
	f := s.Format
	if f == "" {
		f = "%g"
	}
	return s.Label + ": " + fmt.Sprintf(f, s.Value)
}

// Layout is the set of hit and draw rectangles for one window size.
type Layout struct {
	Density, DensityTrack         image.Rectangle
	Temperature, TemperatureTrack image.Rectangle
	Exit                          image.Rectangle
}

type dragTarget int

const (
	dragNone dragTarget = iota
	dragDensity
	dragTemperature
)

// Panel routes pointer input to its controls.
type Panel struct {
	Density     Slider
	Temperature Slider

	params   *improv.Parameters
	dragging dragTarget
	exit     bool
	width    int
	height   int
}

// New builds the panel with the knobs initialized from params.
func New(params *improv.Parameters) *Panel {
	s := params.Snapshot()
	p := &Panel{
		Density: Slider{
			Label: "Notes per second", Min: 1, Max: 50, Resolution: 1, Format: "%.0f",
		},
		Temperature: Slider{
			Label: "Temperature", Min: 0.1, Max: 10, Resolution: 0.1, Format: "%.1f",
		},
		params: params,
		width:  WindowW,
		height: WindowH,
	}
	p.Density.Set(s.NotesPerSecond)
	p.Temperature.Set(s.Temperature)
	return p
}

// Resize records the current window size used by Layout.
func (p *Panel) Resize(w, h int) {
	p.width = max(w, WindowW)
	p.height = max(h, WindowH)
}

// Layout computes the rectangles for the current size.
func (p *Panel) Layout() Layout {
	rowW := p.width - 2*pad
	density := image.Rect(pad, pad, pad+rowW, pad+rowH)
	temp := image.Rect(pad, density.Max.Y+12, pad+rowW, density.Max.Y+12+rowH)
	exitY := p.height - pad - buttonH
	exit := image.Rect(p.width-pad-buttonW, exitY, p.width-pad, exitY+buttonH)
	return Layout{
		Density:          density,
		DensityTrack:     track(density),
		Temperature:      temp,
		TemperatureTrack: track(temp),
		Exit:             exit,
	}
}

func track(row image.Rectangle) image.Rectangle {
	x0 := row.Min.X + labelW
	x1 := row.Max.X - trackPadX
	cy := row.Min.Y + row.Dy()/2
	return image.Rect(x0, cy-4, x1, cy+4)
}

// Press handles a button-down at (x, y).
func (p *Panel) Press(x, y int) {
	l := p.Layout()
	switch {
	case pointInRect(x, y, l.Exit):
		p.exit = true
	case pointInRect(x, y, l.Density):
		p.dragging = dragDensity
		p.Drag(x)
	case pointInRect(x, y, l.Temperature):
		p.dragging = dragTemperature
		p.Drag(x)
	}
}

// Drag moves the slider grabbed by the last Press.
func (p *Panel) Drag(x int) {
	l := p.Layout()
	switch p.dragging {
	case dragDensity:
		old := p.Density.Value
		v := p.Density.SetFromPosition(x, l.DensityTrack.Min.X, l.DensityTrack.Dx())
		if v != old {
			p.params.SetNotesPerSecond(v)
		}
	case dragTemperature:
		old := p.Temperature.Value
		v := p.Temperature.SetFromPosition(x, l.TemperatureTrack.Min.X, l.TemperatureTrack.Dx())
		if v != old {
			p.params.SetTemperature(v)
		}
	}
}

// Release ends a drag.
func (p *Panel) Release() { p.dragging = dragNone }

// Dragging reports whether a slider is grabbed.
func (p *Panel) Dragging() bool { return p.dragging != dragNone }

// RequestExit marks the panel closed, as the window close button does.
func (p *Panel) RequestExit() { p.exit = true }

// ExitRequested reports whether Exit was pressed.
func (p *Panel) ExitRequested() bool { return p.exit }

func pointInRect(x, y int, rect image.Rectangle) bool {
	return x >= rect.Min.X && x < rect.Max.X && y >= rect.Min.Y && y < rect.Max.Y
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
