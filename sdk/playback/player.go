// Package playback schedules note sequences onto a MIDI output in wall-clock time.
package playback

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leandrodaf/improv/internal/logger"
	"github.com/leandrodaf/improv/sdk/contracts"
	"github.com/leandrodaf/improv/sdk/sequence"
	"go.uber.org/multierr"
)

// Option configures a Player.
type Option func(*Player)

// WithChannel forces every note onto channel ch.
func WithChannel(ch uint8) Option {
	return func(p *Player) {
		p.channel = ch
		p.forceChannel = true
	}
}

// WithLogger sets the player's logger.
func WithLogger(l contracts.Logger) Option {
	return func(p *Player) { p.log = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Player) { p.now = now }
}

type event struct {
	at  time.Time
	id  uint64
	on  bool
	msg contracts.MIDI
}

// Player plays sequences whose note times are offsets from the Unix epoch.
// The queue can be replaced while playing; see Update.
type Player struct {
	out          contracts.OutputMIDI
	log          contracts.Logger
	now          func() time.Time
	channel      uint8
	forceChannel bool

	mu       sync.Mutex
	events   []event
	sounding map[uint64]contracts.MIDI
	channels map[uint8]bool
	nextID   uint64
	failures int

	wake     chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	stopErr  error
}

// Start begins playback of an empty sequence on out.
func Start(ctx context.Context, out contracts.OutputMIDI, opts ...Option) *Player {
	p := &Player{
		out:      out,
		now:      time.Now,
		sounding: make(map[uint64]contracts.MIDI),
		channels: make(map[uint8]bool),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.NewNopLogger()
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
	return p
}

// Update replaces everything queued at or after startTime with the notes of
// seq that start at or after startTime. Notes already sounding keep their
// note-off, so a new window never cuts the tail of the previous one.
func (p *Player) Update(seq sequence.NoteSequence, startTime time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	keepOn := make(map[uint64]bool, len(p.sounding))
	for id := range p.sounding {
		keepOn[id] = true
	}
	kept := p.events[:0]
	for _, e := range p.events {
		if e.on && e.at.Before(startTime) {
			keepOn[e.id] = true
		}
	}
	for _, e := range p.events {
		if e.on && e.at.Before(startTime) || !e.on && keepOn[e.id] {
			kept = append(kept, e)
		}
	}
	p.events = kept

	added := 0
	for _, n := range seq.Notes {
		on := time.Unix(0, int64(n.Start))
		if on.Before(startTime) {
			continue
		}
		ch := n.Channel
		if p.forceChannel {
			ch = p.channel
		}
		p.nextID++
		p.events = append(p.events,
			event{at: on, id: p.nextID, on: true, msg: contracts.NewNoteOn(ch, n.Pitch, n.Velocity)},
			event{at: time.Unix(0, int64(n.End)), id: p.nextID, msg: contracts.NewNoteOff(ch, n.Pitch)},
		)
		added++
	}
	sort.SliceStable(p.events, func(i, j int) bool {
		if !p.events[i].at.Equal(p.events[j].at) {
			return p.events[i].at.Before(p.events[j].at)
		}
		return !p.events[i].on && p.events[j].on
	})

	p.log.Debug("playback sequence updated",
		p.log.Field().Time("startTime", startTime),
		p.log.Field().Int("notes", added),
		p.log.Field().Int("queued", len(p.events)))

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued MIDI events.
func (p *Player) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// Sounding returns the number of notes whose note-off has not been sent.
func (p *Player) Sounding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sounding)
}

func (p *Player) run(ctx context.Context) {
	defer close(p.done)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		p.mu.Lock()
		var wait time.Duration = -1
		var due []event
		now := p.now()
		for len(p.events) > 0 && !p.events[0].at.After(now) {
			e := p.events[0]
			p.events = p.events[1:]
			if e.on {
				p.sounding[e.id] = e.msg
				p.channels[e.msg.Channel] = true
			} else {
				delete(p.sounding, e.id)
			}
			due = append(due, e)
		}
		if len(p.events) > 0 {
			wait = p.events[0].at.Sub(now)
		}
		p.mu.Unlock()

		for _, e := range due {
			p.send(e.msg)
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if wait >= 0 {
			timer.Reset(wait)
		}

		select {
		case <-ctx.Done():
			return
		case <-p.wake:
		case <-timer.C:
		}
	}
}

func (p *Player) send(msg contracts.MIDI) {
	if err := p.out.Send(msg); err != nil {
		p.mu.Lock()
		p.failures++
		failures := p.failures
		p.mu.Unlock()
		p.log.Warn("failed to send MIDI message",
			p.log.Field().String("message", msg.String()),
			p.log.Field().Int("failures", failures),
			p.log.Field().Error("error", err))
	}
}

// Stop halts playback, releases every sounding note and sends all-notes-off
// on each channel used. It runs only once; later calls return the same error.
func (p *Player) Stop() error {
	p.stopOnce.Do(func() {
		p.cancel()
		<-p.done

		p.mu.Lock()
		defer p.mu.Unlock()

		var err error
		for id, on := range p.sounding {
			err = multierr.Append(err, p.out.Send(contracts.NewNoteOff(on.Channel, on.Note)))
			delete(p.sounding, id)
		}
		for ch := range p.channels {
			err = multierr.Append(err, p.out.Send(contracts.NewAllNotesOff(ch)))
		}
		p.events = nil
		p.stopErr = err
		p.log.Info("playback stopped")
	})
	return p.stopErr
}
