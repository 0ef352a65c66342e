package generator

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/leandrodaf/improv/sdk/contracts"
	"github.com/leandrodaf/improv/sdk/sequence"
)

// PerformanceID is the bundle id of the polyphonic Markov model.
const PerformanceID = "performance"

const (
	defaultMinPitch     = 21
	defaultMaxPitch     = 108
	defaultMaxInterval  = 12
	defaultMaxSteps     = 16
	defaultMaxPolyphony = 4
	defaultSmoothing    = 0.1
	defaultPitch        = 60
	defaultVelocity     = 80
	velocityBin         = 8
)

// Performance models a piano-like performance as first-order transitions of
// pitch intervals together with distributions of duration, velocity and
// onset gaps, all learned from the primer ahead of each section.
type Performance struct {
	mu              sync.Mutex
	rng             *rand.Rand
	log             contracts.Logger
	stepsPerQuarter int
	cfg             PerformanceConfig
}

// NewPerformance builds the performance model from a bundle.
func NewPerformance(b Bundle, opts ...Option) (Generator, error) {
	s := applySettings(b, opts...)
	cfg := b.Performance
	if cfg.MinPitch == 0 {
		cfg.MinPitch = defaultMinPitch
	}
	if cfg.MaxPitch == 0 {
		cfg.MaxPitch = defaultMaxPitch
	}
	if cfg.MaxPitch > 127 {
		cfg.MaxPitch = 127
	}
	if cfg.MinPitch > cfg.MaxPitch {
		return nil, ErrInvalidBundle
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = defaultMaxInterval
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	if cfg.MaxPolyphony <= 0 {
		cfg.MaxPolyphony = defaultMaxPolyphony
	}
	if cfg.Smoothing <= 0 {
		cfg.Smoothing = defaultSmoothing
	}
	return &Performance{
		rng:             s.rng,
		log:             s.logger,
		stepsPerQuarter: stepsOrDefault(b.StepsPerQuarter),
		cfg:             cfg,
	}, nil
}

// ID implements Generator.
func (p *Performance) ID() string { return PerformanceID }

// StepsPerQuarter implements Generator.
func (p *Performance) StepsPerQuarter() int { return p.stepsPerQuarter }

type performanceModel struct {
	intervals *counter
	durations *counter
	velocity  *counter
	chord     float64 // probability that an onset joins the previous one
	density   float64 // observed onsets per second
	lastPitch int
}

func (p *Performance) learn(notes []sequence.Note, step time.Duration, span time.Duration) performanceModel {
	m := performanceModel{
		intervals: newCounter(-p.cfg.MaxInterval, p.cfg.MaxInterval),
		durations: newCounter(1, p.cfg.MaxSteps),
		velocity:  newCounter(0, 127/velocityBin),
		lastPitch: defaultPitch,
	}

	var (
		prev     *sequence.Note
		together float64
		onsets   float64
	)
	for i := range notes {
		n := notes[i]
		if n.IsDrum {
			continue
		}
		m.durations.add(int((n.Duration() + step/2) / step))
		m.velocity.add(int(n.Velocity) / velocityBin)
		if prev != nil {
			m.intervals.add(int(n.Pitch) - int(prev.Pitch))
			if n.Start-prev.Start < step/2 {
				together++
			}
		}
		onsets++
		prev = &notes[i]
		m.lastPitch = int(n.Pitch)
	}

	if m.velocity.total() == 0 {
		m.velocity.add(defaultVelocity / velocityBin)
	}
	if m.durations.total() == 0 {
		m.durations.add(2)
	}
	if onsets > 1 {
		m.chord = together / (onsets - 1)
	}
	if span > 0 {
		m.density = onsets / span.Seconds()
	}
	return m
}

// nextPitch samples a pitch reachable from last by a learned interval,
// weighted by the histogram and confined to the configured range.
func (p *Performance) nextPitch(m performanceModel, last int, temperature float64, hist Histogram, exclude map[int]bool) (int, bool) {
	base := temper(m.intervals.weights(p.cfg.Smoothing), temperature)
	weights := make([]float64, len(base))
	for i, w := range base {
		pitch := last + m.intervals.lo + i
		if pitch < int(p.cfg.MinPitch) || pitch > int(p.cfg.MaxPitch) || exclude[pitch] {
			continue
		}
		weights[i] = w * hist.Weight(pitch%12)
	}
	i := sampleIndex(p.rng, weights)
	if i < 0 {
		return p.nearestAllowed(last, hist, exclude)
	}
	return last + m.intervals.lo + i, true
}

// nearestAllowed finds the closest in-range pitch with a non-zero histogram weight.
func (p *Performance) nearestAllowed(last int, hist Histogram, exclude map[int]bool) (int, bool) {
	for d := 0; d <= int(p.cfg.MaxPitch-p.cfg.MinPitch); d++ {
		for _, pitch := range []int{last - d, last + d} {
			if pitch < int(p.cfg.MinPitch) || pitch > int(p.cfg.MaxPitch) || exclude[pitch] {
				continue
			}
			if hist.Weight(pitch%12) > 0 {
				return pitch, true
			}
		}
	}
	return 0, false
}

// Generate implements Generator.
func (p *Performance) Generate(ctx context.Context, primer sequence.NoteSequence, opts Options) (sequence.NoteSequence, error) {
	if err := opts.validate(); err != nil {
		return sequence.NoteSequence{}, err
	}
	if err := opts.PitchClassHistogram.Validate(); err != nil {
		return sequence.NoteSequence{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	step := time.Duration(60 / primer.QPM() / float64(p.stepsPerQuarter) * float64(time.Second))
	first := opts.Sections[0]
	notes := contextNotes(primer, first.Start)
	model := p.learn(notes, step, first.Start)

	density := opts.NotesPerSecond
	if density <= 0 {
		density = model.density
	}
	if density <= 0 {
		density = 1
	}
	perStep := density * step.Seconds()

	out := sequence.NoteSequence{Tempo: primer.QPM(), Notes: notes}
	last := model.lastPitch
	generated := 0
	for _, sec := range opts.Sections {
		for i := firstStep(sec.Start, step); ; i++ {
			if err := ctx.Err(); err != nil {
				return sequence.NoteSequence{}, err
			}
			start := time.Duration(i) * step
			if start >= sec.End {
				break
			}

			onsets := int(math.Floor(perStep))
			if p.rng.Float64() < perStep-math.Floor(perStep) {
				onsets++
			}
			if onsets > 0 && p.rng.Float64() < temperProbability(model.chord, opts.Temperature) {
				onsets++
			}
			sounding := map[int]bool{}
			for k := 0; k < onsets && len(sounding) < p.cfg.MaxPolyphony; k++ {
				pitch, ok := p.nextPitch(model, last, opts.Temperature, opts.PitchClassHistogram, sounding)
				if !ok {
					break
				}
				dur := time.Duration(model.durations.sample(p.rng, opts.Temperature, p.cfg.Smoothing)) * step
				end := start + dur
				if end > sec.End {
					end = sec.End
				}
				vel := model.velocity.sample(p.rng, opts.Temperature, p.cfg.Smoothing)*velocityBin + velocityBin/2
				if vel > 127 {
					vel = 127
				}
				out.Notes = append(out.Notes, sequence.Note{
					Pitch:    uint8(pitch),
					Velocity: uint8(vel),
					Start:    start,
					End:      end,
					Channel:  p.cfg.Channel,
				})
				sounding[pitch] = true
				last = pitch
				generated++
			}
		}
		if sec.End > out.TotalTime {
			out.TotalTime = sec.End
		}
	}
	out.Sort()

	p.log.Debug("performance sequence generated",
		p.log.Field().Int("contextNotes", len(notes)),
		p.log.Field().Int("generatedNotes", generated),
		p.log.Field().Float64("notesPerSecond", density),
		p.log.Field().Float64("temperature", opts.Temperature))
	return out, nil
}
