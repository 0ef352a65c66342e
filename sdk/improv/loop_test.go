package improv

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/improv/sdk/generator"
	"github.com/leandrodaf/improv/sdk/schedule"
	"github.com/leandrodaf/improv/sdk/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoGenerator keeps the primer and adds one note at the start of each
// section plus one that rings past its end.
type echoGenerator struct {
	calls []generator.Options
	err   error
}

func (g *echoGenerator) ID() string           { return "echo" }
func (g *echoGenerator) StepsPerQuarter() int { return 4 }

func (g *echoGenerator) Generate(_ context.Context, primer sequence.NoteSequence, opts generator.Options) (sequence.NoteSequence, error) {
	g.calls = append(g.calls, opts)
	if g.err != nil {
		return sequence.NoteSequence{}, g.err
	}
	out := primer.Copy()
	for _, s := range opts.Sections {
		out.Notes = append(out.Notes,
			sequence.Note{Pitch: 60, Velocity: 100, Start: s.Start, End: s.Start + time.Second},
			sequence.Note{Pitch: 72, Velocity: 100, Start: s.End - time.Second, End: s.End + time.Second},
		)
		out.TotalTime = s.End + time.Second
	}
	return out, nil
}

type update struct {
	seq   sequence.NoteSequence
	start time.Time
}

type recordingSink struct {
	mu      sync.Mutex
	updates []update
}

func (s *recordingSink) Update(seq sequence.NoteSequence, start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update{seq, start})
}

// fakeClock advances when the loop sleeps and cancels after a number of ticks.
type fakeClock struct {
	now    time.Time
	sleeps int
	limit  int
	cancel context.CancelFunc
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) SleepUntil(ctx context.Context, t time.Time) error {
	c.sleeps++
	c.now = t.Add(time.Millisecond)
	if c.sleeps >= c.limit {
		c.cancel()
	}
	return ctx.Err()
}

func defaultSettings() Settings {
	return Settings{Temperature: 1.3, NotesPerSecond: 5}
}

func newTestLoop(t *testing.T, gen generator.Generator, sink Sink, opts ...Option) *Loop {
	t.Helper()
	l, err := NewLoop(Config{QPM: 120, NumBars: 3, PrimerBars: 1, PrimerTemperature: 1.1}, gen, sink, NewParameters(defaultSettings()), opts...)
	require.NoError(t, err)
	return l
}

func TestPrime(t *testing.T) {
	gen := &echoGenerator{}
	l := newTestLoop(t, gen, &recordingSink{})

	primer := sequence.NoteSequence{Notes: []sequence.Note{
		{Pitch: 40, Start: 0, End: time.Second},
		{Pitch: 41, Start: 3 * time.Second, End: 4 * time.Second},
	}}
	seq, err := l.Prime(context.Background(), primer)
	require.NoError(t, err)

	require.Len(t, gen.calls, 1)
	opts := gen.calls[0]
	assert.Equal(t, 1.1, opts.Temperature)
	assert.Equal(t, 5.0, opts.NotesPerSecond)
	assert.Equal(t, []generator.Section{{Start: 2 * time.Second, End: 8 * time.Second}}, opts.Sections)
	assert.Equal(t, uint8(40), seq.Notes[0].Pitch, "primer trimmed to one bar")
	assert.Len(t, seq.Notes, 3)
}

func TestStep_ShiftsToTickAndRendersNextWindow(t *testing.T) {
	gen := &echoGenerator{}
	sink := &recordingSink{}
	clock := &fakeClock{now: time.Unix(1_000_003, 0)}
	l := newTestLoop(t, gen, sink, WithClock(clock.Now))

	seq := sequence.NoteSequence{Notes: []sequence.Note{{Pitch: 50, Start: time.Second, End: 2 * time.Second}}, TotalTime: 8 * time.Second}
	next, tick, err := l.Step(context.Background(), seq)
	require.NoError(t, err)

	// 1_000_003 s falls in the tick starting at 1_000_000 s (8 s period).
	assert.True(t, tick.Time.Equal(time.Unix(1_000_000, 0)))
	assert.True(t, tick.Next.Equal(time.Unix(1_000_008, 0)))

	require.Len(t, sink.updates, 1)
	assert.True(t, sink.updates[0].start.Equal(tick.Time))
	assert.Equal(t, tick.Offset()+time.Second, sink.updates[0].seq.Notes[0].Start)

	require.Len(t, gen.calls, 1)
	assert.Equal(t, []generator.Section{{Start: 8 * time.Second, End: 16 * time.Second}}, gen.calls[0].Sections)
	assert.Equal(t, 1.3, gen.calls[0].Temperature)

	// Only the two new notes survive the trim, rebased to zero and clipped.
	require.Len(t, next.Notes, 2)
	assert.Equal(t, time.Duration(0), next.Notes[0].Start)
	assert.Equal(t, 7*time.Second, next.Notes[1].Start)
	assert.Equal(t, 8*time.Second, next.Notes[1].End)
	assert.Equal(t, 8*time.Second, next.TotalTime)
	for _, n := range next.Notes {
		assert.GreaterOrEqual(t, n.Start, time.Duration(0))
		assert.LessOrEqual(t, n.End, l.Schedule().Period)
	}
}

func TestStep_ReadsParametersEachTick(t *testing.T) {
	gen := &echoGenerator{}
	params := NewParameters(defaultSettings())
	l, err := NewLoop(Config{QPM: 120, NumBars: 3}, gen, &recordingSink{}, params)
	require.NoError(t, err)

	_, _, err = l.Step(context.Background(), sequence.NoteSequence{})
	require.NoError(t, err)
	params.SetTemperature(4.2)
	params.SetNotesPerSecond(20)
	_, _, err = l.Step(context.Background(), sequence.NoteSequence{})
	require.NoError(t, err)

	require.Len(t, gen.calls, 2)
	assert.Equal(t, 1.3, gen.calls[0].Temperature)
	assert.Equal(t, 4.2, gen.calls[1].Temperature)
	assert.Equal(t, 20.0, gen.calls[1].NotesPerSecond)
}

func TestRun_StopsCleanlyOnCancel(t *testing.T) {
	gen := &echoGenerator{}
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	clock := &fakeClock{now: time.Unix(800, 0), limit: 3, cancel: cancel}
	l := newTestLoop(t, gen, sink, WithClock(clock.Now), WithSleeper(clock))

	var hooked []int64
	l.onSequence = func(tick schedule.Tick, _ sequence.NoteSequence) { hooked = append(hooked, tick.Number) }

	require.NoError(t, l.Run(ctx, sequence.NoteSequence{}))

	require.Len(t, sink.updates, 3)
	assert.Equal(t, []int64{100, 101, 102}, hooked, "one window per consecutive tick")
	for i := 1; i < len(sink.updates); i++ {
		gap := sink.updates[i].start.Sub(sink.updates[i-1].start)
		assert.Equal(t, l.Schedule().Period, gap)
	}
	// The window pushed on the second tick is the one rendered on the first.
	assert.Equal(t, time.Unix(808, 0).UnixNano(), int64(sink.updates[1].seq.Notes[0].Start))
}

func TestRun_PropagatesGenerationErrors(t *testing.T) {
	boom := errors.New("model exploded")
	gen := &echoGenerator{err: boom}
	l := newTestLoop(t, gen, &recordingSink{}, WithSleeper(&fakeClock{limit: 100, cancel: func() {}}))

	err := l.Run(context.Background(), sequence.NoteSequence{})
	assert.ErrorIs(t, err, boom)
}

func TestNewLoop_Validation(t *testing.T) {
	_, err := NewLoop(Config{QPM: 0, NumBars: 3}, &echoGenerator{}, &recordingSink{}, NewParameters(defaultSettings()))
	assert.ErrorIs(t, err, schedule.ErrInvalidTempo)

	_, err = NewLoop(Config{QPM: 120}, nil, &recordingSink{}, NewParameters(defaultSettings()))
	assert.Error(t, err)
}
