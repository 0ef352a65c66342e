package sequence

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ErrUnsupportedTimeFormat is returned for SMPTE-timed files.
var ErrUnsupportedTimeFormat = errors.New("only metric (ticks per quarter) MIDI files are supported")

// writeResolution is the ticks-per-quarter used when writing files.
const writeResolution = 960

// ReadMIDIFile parses a Standard MIDI File into a sequence.
func ReadMIDIFile(path string) (NoteSequence, error) {
	mf, err := smf.ReadFile(path)
	if err != nil {
		return NoteSequence{}, fmt.Errorf("read midi file %s: %w", path, err)
	}
	return FromSMF(mf)
}

// ReadMIDI parses a Standard MIDI File from r.
func ReadMIDI(r io.Reader) (NoteSequence, error) {
	mf, err := smf.ReadFrom(r)
	if err != nil {
		return NoteSequence{}, fmt.Errorf("read midi: %w", err)
	}
	return FromSMF(mf)
}

type tempoChange struct {
	tick int64
	bpm  float64
}

// tempoMap converts absolute ticks to wall time across tempo changes.
type tempoMap struct {
	resolution float64
	changes    []tempoChange
}

func (m tempoMap) duration(tick int64) time.Duration {
	var (
		seconds  float64
		lastTick int64
		bpm      = DefaultQPM
	)
	for _, c := range m.changes {
		if c.tick >= tick {
			break
		}
		seconds += float64(c.tick-lastTick) * 60 / bpm / m.resolution
		lastTick, bpm = c.tick, c.bpm
	}
	seconds += float64(tick-lastTick) * 60 / bpm / m.resolution
	return time.Duration(math.Round(seconds * float64(time.Second)))
}

type noteKey struct {
	channel, pitch uint8
}

type pendingNote struct {
	tick     int64
	velocity uint8
}

// FromSMF converts a parsed MIDI file into a sequence, honoring the tempo map.
func FromSMF(mf *smf.SMF) (NoteSequence, error) {
	metric, ok := mf.TimeFormat.(smf.MetricTicks)
	if !ok {
		return NoteSequence{}, ErrUnsupportedTimeFormat
	}

	tm := tempoMap{resolution: float64(metric)}
	for _, track := range mf.Tracks {
		var abs int64
		for _, ev := range track {
			abs += int64(ev.Delta)
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) && bpm > 0 {
				tm.changes = append(tm.changes, tempoChange{tick: abs, bpm: bpm})
			}
		}
	}
	sort.SliceStable(tm.changes, func(i, j int) bool { return tm.changes[i].tick < tm.changes[j].tick })

	seq := NoteSequence{Tempo: DefaultQPM}
	if len(tm.changes) > 0 {
		seq.Tempo = tm.changes[0].bpm
	}

	for _, track := range mf.Tracks {
		var abs int64
		pending := map[noteKey][]pendingNote{}
		emit := func(k noteKey, p pendingNote, endTick int64) {
			seq.Notes = append(seq.Notes, Note{
				Pitch:    k.pitch,
				Velocity: p.velocity,
				Start:    tm.duration(p.tick),
				End:      tm.duration(endTick),
				Channel:  k.channel,
				IsDrum:   k.channel == 9,
			})
		}

		for _, ev := range track {
			abs += int64(ev.Delta)
			msg := midi.Message(ev.Message)
			var ch, key, vel uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				k := noteKey{ch, key}
				pending[k] = append(pending[k], pendingNote{tick: abs, velocity: vel})
			case msg.GetNoteEnd(&ch, &key):
				k := noteKey{ch, key}
				if q := pending[k]; len(q) > 0 {
					emit(k, q[0], abs)
					pending[k] = q[1:]
				}
			}
		}
		// Notes never released end with their track.
		for k, q := range pending {
			for _, p := range q {
				emit(k, p, abs)
			}
		}
	}

	seq.Sort()
	seq.TotalTime = seq.LastEnd()
	return seq, nil
}

type fileEvent struct {
	tick int64
	off  bool
	msg  midi.Message
}

// ToSMF renders the sequence as a single-track file at the sequence tempo.
func ToSMF(seq NoteSequence) (*smf.SMF, error) {
	qpm := seq.QPM()
	toTick := func(d time.Duration) int64 {
		if d < 0 {
			d = 0
		}
		return int64(math.Round(d.Seconds() * qpm / 60 * writeResolution))
	}

	events := make([]fileEvent, 0, 2*len(seq.Notes))
	for _, n := range seq.Notes {
		events = append(events,
			fileEvent{tick: toTick(n.Start), msg: midi.NoteOn(n.Channel, n.Pitch, n.Velocity)},
			fileEvent{tick: toTick(n.End), off: true, msg: midi.NoteOff(n.Channel, n.Pitch)},
		)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(qpm))
	var last int64
	for _, ev := range events {
		tr.Add(uint32(ev.tick-last), ev.msg)
		last = ev.tick
	}
	tr.Close(0)

	mf := smf.New()
	mf.TimeFormat = smf.MetricTicks(writeResolution)
	if err := mf.Add(tr); err != nil {
		return nil, fmt.Errorf("add track: %w", err)
	}
	return mf, nil
}

// WriteMIDI writes the sequence as a Standard MIDI File to w.
func WriteMIDI(w io.Writer, seq NoteSequence) error {
	mf, err := ToSMF(seq)
	if err != nil {
		return err
	}
	if _, err := mf.WriteTo(w); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}

// WriteMIDIFile writes the sequence to path.
func WriteMIDIFile(path string, seq NoteSequence) error {
	mf, err := ToSMF(seq)
	if err != nil {
		return err
	}
	if err := mf.WriteFile(path); err != nil {
		return fmt.Errorf("write midi file %s: %w", path, err)
	}
	return nil
}
