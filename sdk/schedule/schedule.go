// Package schedule computes playback ticks on a fixed bar grid.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidTempo = errors.New("tempo must be positive")
	ErrInvalidBars  = errors.New("bar count must not be negative")
)

// BeatsPerBar is fixed at four: every bar is 4/4.
const BeatsPerBar = 4

// Schedule is a fixed period derived from a tempo and a bar count.
// A period spans numBars+1 bars: one bar of context plus the bars generated.
type Schedule struct {
	QPM     float64
	NumBars int
	Bar     time.Duration
	Period  time.Duration
}

// Tick is one playback boundary.
type Tick struct {
	Number int64
	Time   time.Time
	Next   time.Time
}

// NewSchedule builds a schedule for qpm quarter notes per minute.
func NewSchedule(qpm float64, numBars int) (Schedule, error) {
	if qpm <= 0 {
		return Schedule{}, fmt.Errorf("%w: %v", ErrInvalidTempo, qpm)
	}
	if numBars < 0 {
		return Schedule{}, fmt.Errorf("%w: %d", ErrInvalidBars, numBars)
	}
	bar := time.Duration(float64(BeatsPerBar) * 60 / qpm * float64(time.Second))
	return Schedule{
		QPM:     qpm,
		NumBars: numBars,
		Bar:     bar,
		Period:  bar * time.Duration(numBars+1),
	}, nil
}

// StepDuration is the length of one step when a quarter is split into stepsPerQuarter.
func (s Schedule) StepDuration(stepsPerQuarter int) time.Duration {
	if stepsPerQuarter <= 0 {
		return 0
	}
	return time.Duration(60 / s.QPM / float64(stepsPerQuarter) * float64(time.Second))
}

// At returns the tick containing t: Number = floor(t/Period).
func (s Schedule) At(t time.Time) Tick {
	return TickAt(t, s.Period)
}

// TickAt computes the tick containing t for period p, counted from the Unix epoch.
func TickAt(t time.Time, p time.Duration) Tick {
	ns := t.UnixNano()
	n := ns / int64(p)
	if ns%int64(p) < 0 {
		n--
	}
	start := n * int64(p)
	return Tick{
		Number: n,
		Time:   time.Unix(0, start),
		Next:   time.Unix(0, start+int64(p)),
	}
}

// Offset returns the tick time as a duration since the Unix epoch, the
// origin used for sequences handed to the player.
func (t Tick) Offset() time.Duration {
	return time.Duration(t.Time.UnixNano())
}

// Sleeper blocks until a wall-clock deadline.
type Sleeper interface {
	SleepUntil(ctx context.Context, t time.Time) error
}

// WallSleeper sleeps on real timers.
type WallSleeper struct{}

// SleepUntil returns nil at t, or the context error if ctx ends first.
func (WallSleeper) SleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
