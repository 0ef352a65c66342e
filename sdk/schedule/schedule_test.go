package schedule

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedule(t *testing.T) {
	s, err := NewSchedule(120, 3)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, s.Bar)
	assert.Equal(t, 8*time.Second, s.Period)
	assert.Equal(t, 125*time.Millisecond, s.StepDuration(4))

	s, err = NewSchedule(90, 0)
	require.NoError(t, err)
	assert.Equal(t, s.Bar, s.Period)
}

func TestNewScheduleRejectsBadInput(t *testing.T) {
	_, err := NewSchedule(0, 3)
	assert.ErrorIs(t, err, ErrInvalidTempo)

	_, err = NewSchedule(120, -1)
	assert.ErrorIs(t, err, ErrInvalidBars)
}

func TestTickAt(t *testing.T) {
	p := 8 * time.Second
	tick := TickAt(time.Unix(17, 500), p)

	assert.Equal(t, int64(2), tick.Number)
	assert.True(t, tick.Time.Equal(time.Unix(16, 0)))
	assert.True(t, tick.Next.Equal(time.Unix(24, 0)))
	assert.Equal(t, 16*time.Second, tick.Offset())
}

func TestTickAtBoundary(t *testing.T) {
	p := 8 * time.Second
	tick := TickAt(time.Unix(24, 0), p)
	assert.Equal(t, int64(3), tick.Number)
	assert.True(t, tick.Time.Equal(time.Unix(24, 0)))
}

func TestTickContainsTime(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 1000; i++ {
		p := time.Duration(1 + r.Int64N(int64(30*time.Second)))
		now := time.Unix(0, r.Int64N(1<<62))
		tick := TickAt(now, p)

		assert.False(t, tick.Time.After(now), "tick time <= t")
		assert.True(t, now.Before(tick.Time.Add(p)), "t < tick time + P")
		assert.True(t, tick.Next.Equal(tick.Time.Add(p)))
		assert.Equal(t, now.UnixNano()/int64(p), tick.Number)
	}
}

func TestWallSleeper(t *testing.T) {
	start := time.Now()
	require.NoError(t, WallSleeper{}.SleepUntil(context.Background(), start.Add(20*time.Millisecond)))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	require.NoError(t, WallSleeper{}.SleepUntil(context.Background(), start.Add(-time.Second)))
}

func TestWallSleeperCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WallSleeper{}.SleepUntil(ctx, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}
