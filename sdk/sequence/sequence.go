// Package sequence models timed note sequences and the time arithmetic the
// generation loop applies to them between rounds.
package sequence

import (
	"sort"
	"time"
)

// DefaultQPM is the tempo assumed when a sequence carries none.
const DefaultQPM = 120.0

// Note is one sounding pitch. Start and End are offsets from the sequence
// origin, or from the Unix epoch once a sequence is shifted for playback.
type Note struct {
	Pitch    uint8
	Velocity uint8
	Start    time.Duration
	End      time.Duration
	Channel  uint8
	IsDrum   bool
}

// Duration returns End - Start.
func (n Note) Duration() time.Duration {
	return n.End - n.Start
}

// NoteSequence is an ordered collection of notes plus an overall duration.
type NoteSequence struct {
	Notes     []Note
	TotalTime time.Duration
	Tempo     float64 // quarter notes per minute
}

// QPM returns the sequence tempo, falling back to DefaultQPM.
func (s NoteSequence) QPM() float64 {
	if s.Tempo <= 0 {
		return DefaultQPM
	}
	return s.Tempo
}

// Copy returns a deep copy of the sequence.
func (s NoteSequence) Copy() NoteSequence {
	out := s
	if s.Notes != nil {
		out.Notes = make([]Note, len(s.Notes))
		copy(out.Notes, s.Notes)
	}
	return out
}

// Shift returns a copy with every note and the total time offset by delta.
func (s NoteSequence) Shift(delta time.Duration) NoteSequence {
	out := s.Copy()
	for i := range out.Notes {
		out.Notes[i].Start += delta
		out.Notes[i].End += delta
	}
	out.TotalTime += delta
	return out
}

// Trim returns a copy holding the notes that start inside [start, end).
// Notes ringing past end are cut at end. Note times are not rebased.
func (s NoteSequence) Trim(start, end time.Duration) NoteSequence {
	out := NoteSequence{Tempo: s.Tempo}
	for _, n := range s.Notes {
		if n.Start < start || n.Start >= end {
			continue
		}
		if n.End > end {
			n.End = end
		}
		out.Notes = append(out.Notes, n)
	}
	out.TotalTime = s.TotalTime
	if out.TotalTime > end {
		out.TotalTime = end
	}
	return out
}

// Sort orders notes by start time, then pitch.
func (s NoteSequence) Sort() {
	sort.SliceStable(s.Notes, func(i, j int) bool {
		if s.Notes[i].Start != s.Notes[j].Start {
			return s.Notes[i].Start < s.Notes[j].Start
		}
		return s.Notes[i].Pitch < s.Notes[j].Pitch
	})
}

// LastEnd returns the latest note end, or zero for an empty sequence.
func (s NoteSequence) LastEnd() time.Duration {
	var last time.Duration
	for _, n := range s.Notes {
		if n.End > last {
			last = n.End
		}
	}
	return last
}

// QuantizedEnd rounds TotalTime up to the next multiple of step.
func (s NoteSequence) QuantizedEnd(step time.Duration) time.Duration {
	if step <= 0 || s.TotalTime <= 0 {
		return s.TotalTime
	}
	steps := (s.TotalTime + step - 1) / step
	return steps * step
}

// SetChannel returns a copy with every note on channel ch.
func (s NoteSequence) SetChannel(ch uint8) NoteSequence {
	out := s.Copy()
	for i := range out.Notes {
		out.Notes[i].Channel = ch
	}
	return out
}
