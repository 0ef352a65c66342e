package improv

import (
	"sync"

	"github.com/leandrodaf/improv/sdk/generator"
)

// Settings is a consistent view of the generation knobs.
type Settings struct {
	Temperature         float64
	NotesPerSecond      float64
	PitchClassHistogram generator.Histogram
}

// Parameters is the shared, mutable set of knobs the control panel writes
// and the loop reads once per tick.
type Parameters struct {
	mu       sync.RWMutex
	settings Settings
	version  uint64
}

// NewParameters starts from s.
func NewParameters(s Settings) *Parameters {
	s.PitchClassHistogram = s.PitchClassHistogram.Clone()
	return &Parameters{settings: s}
}

// Snapshot returns every field read under one lock.
func (p *Parameters) Snapshot() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.settings
	s.PitchClassHistogram = s.PitchClassHistogram.Clone()
	return s
}

// Version increases on every write.
func (p *Parameters) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// SetTemperature updates the sampling temperature.
func (p *Parameters) SetTemperature(v float64) {
	p.update(func(s *Settings) { s.Temperature = v })
}

// SetNotesPerSecond updates the onset density target.
func (p *Parameters) SetNotesPerSecond(v float64) {
	p.update(func(s *Settings) { s.NotesPerSecond = v })
}

// SetPitchClassHistogram updates the pitch class conditioning.
func (p *Parameters) SetPitchClassHistogram(h generator.Histogram) {
	h = h.Clone()
	p.update(func(s *Settings) { s.PitchClassHistogram = h })
}

// Set replaces all settings at once.
func (p *Parameters) Set(s Settings) {
	s.PitchClassHistogram = s.PitchClassHistogram.Clone()
	p.update(func(cur *Settings) { *cur = s })
}

func (p *Parameters) update(fn func(*Settings)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.settings)
	p.version++
}
