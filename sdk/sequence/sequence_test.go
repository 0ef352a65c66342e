package sequence

import (
	"bytes"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func sampleSequence() NoteSequence {
	return NoteSequence{
		Tempo: 120,
		Notes: []Note{
			{Pitch: 60, Velocity: 80, Start: ms(0), End: ms(400)},
			{Pitch: 64, Velocity: 90, Start: ms(1500), End: ms(2500)},
			{Pitch: 67, Velocity: 70, Start: ms(3900), End: ms(4600)},
			{Pitch: 72, Velocity: 60, Start: ms(4000), End: ms(4200)},
		},
		TotalTime: ms(4600),
	}
}

func TestCopyIsIndependent(t *testing.T) {
	seq := sampleSequence()
	cp := seq.Copy()
	cp.Notes[0].Pitch = 1

	assert.Equal(t, uint8(60), seq.Notes[0].Pitch)
}

func TestShift(t *testing.T) {
	seq := sampleSequence()
	shifted := seq.Shift(8 * time.Second)

	require.Len(t, shifted.Notes, 4)
	assert.Equal(t, 8*time.Second, shifted.Notes[0].Start)
	assert.Equal(t, 8*time.Second+ms(400), shifted.Notes[0].End)
	assert.Equal(t, 8*time.Second+ms(4600), shifted.TotalTime)
	assert.Equal(t, ms(0), seq.Notes[0].Start, "receiver untouched")
}

func TestTrim(t *testing.T) {
	seq := sampleSequence()
	trimmed := seq.Trim(ms(1000), ms(4000))

	require.Len(t, trimmed.Notes, 2)
	assert.Equal(t, uint8(64), trimmed.Notes[0].Pitch)
	assert.Equal(t, uint8(67), trimmed.Notes[1].Pitch)
	assert.Equal(t, ms(4000), trimmed.Notes[1].End, "clipped at window end")
	assert.Equal(t, ms(4000), trimmed.TotalTime)
	assert.Len(t, seq.Notes, 4, "receiver untouched")
	assert.Equal(t, ms(4600), seq.Notes[2].End)
}

func TestTrimThenShiftStaysInsideWindow(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 200; round++ {
		var seq NoteSequence
		for i := 0; i < 30; i++ {
			start := time.Duration(r.Int64N(int64(20 * time.Second)))
			seq.Notes = append(seq.Notes, Note{
				Pitch: uint8(r.IntN(128)),
				Start: start,
				End:   start + time.Duration(r.Int64N(int64(3*time.Second))),
			})
		}
		seq.TotalTime = seq.LastEnd()

		a := time.Duration(r.Int64N(int64(10 * time.Second)))
		b := a + time.Duration(1+r.Int64N(int64(10*time.Second)))
		out := seq.Trim(a, b).Shift(-a)

		for _, n := range out.Notes {
			assert.GreaterOrEqual(t, n.Start, time.Duration(0))
			assert.LessOrEqual(t, n.Start, b-a)
			assert.LessOrEqual(t, n.End, b-a)
		}
	}
}

func TestQuantizedEnd(t *testing.T) {
	step := ms(125)
	tests := []struct {
		total time.Duration
		want  time.Duration
	}{
		{0, 0},
		{ms(125), ms(125)},
		{ms(126), ms(250)},
		{ms(1999), ms(2000)},
	}
	for _, tt := range tests {
		seq := NoteSequence{TotalTime: tt.total}
		assert.Equal(t, tt.want, seq.QuantizedEnd(step), "total %v", tt.total)
	}
}

func TestSortAndChannel(t *testing.T) {
	seq := NoteSequence{Notes: []Note{
		{Pitch: 50, Start: ms(10)},
		{Pitch: 40, Start: ms(10)},
		{Pitch: 30, Start: ms(0)},
	}}
	seq.Sort()
	assert.Equal(t, []uint8{30, 40, 50}, []uint8{seq.Notes[0].Pitch, seq.Notes[1].Pitch, seq.Notes[2].Pitch})

	drums := seq.SetChannel(9)
	for _, n := range drums.Notes {
		assert.Equal(t, uint8(9), n.Channel)
	}
	assert.Equal(t, uint8(0), seq.Notes[0].Channel)
}

func TestMIDIRoundTrip(t *testing.T) {
	seq := sampleSequence()
	seq.Notes[3].Channel = 9
	seq.Notes[3].IsDrum = true

	var buf bytes.Buffer
	require.NoError(t, WriteMIDI(&buf, seq))

	got, err := ReadMIDI(&buf)
	require.NoError(t, err)
	assert.InDelta(t, 120.0, got.Tempo, 0.001)
	require.Len(t, got.Notes, len(seq.Notes))
	for i, n := range seq.Notes {
		assert.Equal(t, n.Pitch, got.Notes[i].Pitch)
		assert.Equal(t, n.Velocity, got.Notes[i].Velocity)
		assert.Equal(t, n.Channel, got.Notes[i].Channel)
		assert.Equal(t, n.IsDrum, got.Notes[i].IsDrum)
		assert.InDelta(t, n.Start.Seconds(), got.Notes[i].Start.Seconds(), 0.001)
		assert.InDelta(t, n.End.Seconds(), got.Notes[i].End.Seconds(), 0.001)
	}
	assert.InDelta(t, seq.TotalTime.Seconds(), got.TotalTime.Seconds(), 0.001)
}

func TestTempoMap(t *testing.T) {
	tm := tempoMap{resolution: 480, changes: []tempoChange{{tick: 0, bpm: 120}, {tick: 960, bpm: 60}}}

	assert.Equal(t, time.Second, tm.duration(960))
	assert.Equal(t, 2*time.Second, tm.duration(1440))
}

func TestReadMIDIFile_ShippedPrimer(t *testing.T) {
	seq, err := ReadMIDIFile("../../primers/drums_1_bar.mid")
	require.NoError(t, err)

	assert.Equal(t, 120.0, seq.QPM())
	assert.Len(t, seq.Notes, 13)
	// the last hi-hat closes the bar one sixteenth early
	assert.Equal(t, 1875*time.Millisecond, seq.TotalTime)
	assert.Equal(t, seq.LastEnd(), seq.TotalTime)
	for _, n := range seq.Notes {
		assert.True(t, n.IsDrum)
	}
}
