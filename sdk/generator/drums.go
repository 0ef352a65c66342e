package generator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/leandrodaf/improv/sdk/contracts"
	"github.com/leandrodaf/improv/sdk/sequence"
)

// DrumKitID is the bundle id of the drum step model.
const DrumKitID = "drum_kit"

// DefaultDrumClasses is the nine-piece General MIDI reduction.
var DefaultDrumClasses = []DrumClass{
	{Name: "kick", Pitches: []uint8{36, 35}},
	{Name: "snare", Pitches: []uint8{38, 27, 28, 31, 32, 33, 34, 37, 39, 40, 56, 65, 66, 75, 85}},
	{Name: "closed hi-hat", Pitches: []uint8{42, 44, 54, 68, 69, 70, 71, 73, 78, 80}},
	{Name: "open hi-hat", Pitches: []uint8{46, 67, 72, 74, 79, 81}},
	{Name: "low tom", Pitches: []uint8{45, 29, 41, 61, 64, 84}},
	{Name: "mid tom", Pitches: []uint8{48, 47, 60, 63, 77, 86, 87}},
	{Name: "high tom", Pitches: []uint8{50, 30, 43, 62, 76, 83}},
	{Name: "crash", Pitches: []uint8{49, 55, 57, 58}},
	{Name: "ride", Pitches: []uint8{51, 52, 53, 59, 82}},
}

const (
	defaultDrumVelocity  = 100
	defaultDrumSmoothing = 0.05
)

// DrumKit learns, for every drum class, how often it hits on each step of
// the bar in the primer and samples new bars from those rates.
type DrumKit struct {
	mu              sync.Mutex
	rng             *rand.Rand
	log             contracts.Logger
	stepsPerQuarter int
	classes         []DrumClass
	classOf         map[uint8]int
	velocity        uint8
	smoothing       float64
}

// NewDrumKit builds the drum model from a bundle.
func NewDrumKit(b Bundle, opts ...Option) (Generator, error) {
	s := applySettings(b, opts...)
	classes := b.Drums.Classes
	if len(classes) == 0 {
		classes = DefaultDrumClasses
	}
	classOf := make(map[uint8]int)
	for i, c := range classes {
		if len(c.Pitches) == 0 {
			return nil, fmt.Errorf("%w: drum class %q has no pitches", ErrInvalidBundle, c.Name)
		}
		for _, p := range c.Pitches {
			if _, dup := classOf[p]; !dup {
				classOf[p] = i
			}
		}
	}
	d := &DrumKit{
		rng:             s.rng,
		log:             s.logger,
		stepsPerQuarter: stepsOrDefault(b.StepsPerQuarter),
		classes:         classes,
		classOf:         classOf,
		velocity:        b.Drums.Velocity,
		smoothing:       b.Drums.Smoothing,
	}
	if d.velocity == 0 {
		d.velocity = defaultDrumVelocity
	}
	if d.smoothing <= 0 {
		d.smoothing = defaultDrumSmoothing
	}
	return d, nil
}

func stepsOrDefault(n int) int {
	if n <= 0 {
		return DefaultStepsPerQuarter
	}
	return n
}

// ID implements Generator.
func (d *DrumKit) ID() string { return DrumKitID }

// StepsPerQuarter implements Generator.
func (d *DrumKit) StepsPerQuarter() int { return d.stepsPerQuarter }

// drumModel holds per-class, per-step hit probabilities and mean velocities.
type drumModel struct {
	prob     [][]float64
	velocity []uint8
}

func (d *DrumKit) learn(notes []sequence.Note, step time.Duration, bars int) drumModel {
	stepsPerBar := d.stepsPerQuarter * 4
	hits := make([][]float64, len(d.classes))
	for i := range hits {
		hits[i] = make([]float64, stepsPerBar)
	}
	velSum := make([]float64, len(d.classes))
	velN := make([]float64, len(d.classes))

	for _, n := range notes {
		c, ok := d.classOf[n.Pitch]
		if !ok {
			continue
		}
		pos := int((n.Start+step/2)/step) % stepsPerBar
		hits[c][pos]++
		velSum[c] += float64(n.Velocity)
		velN[c]++
	}

	m := drumModel{prob: hits, velocity: make([]uint8, len(d.classes))}
	if len(notes) == 0 {
		// Nothing to learn from: fall back to a plain rock beat.
		for pos := 0; pos < stepsPerBar; pos++ {
			if pos%(d.stepsPerQuarter*2) == 0 {
				hits[0][pos] = float64(bars)
			}
			if pos%(d.stepsPerQuarter*2) == d.stepsPerQuarter && len(d.classes) > 1 {
				hits[1][pos] = float64(bars)
			}
			if pos%2 == 0 && len(d.classes) > 2 {
				hits[2][pos] = float64(bars)
			}
		}
	}
	denom := float64(bars) + 2*d.smoothing
	for c := range hits {
		for pos := range hits[c] {
			p := (hits[c][pos] + d.smoothing) / denom
			if p > 1 {
				p = 1
			}
			hits[c][pos] = p
		}
		m.velocity[c] = d.velocity
		if velN[c] > 0 {
			m.velocity[c] = uint8(velSum[c] / velN[c])
		}
	}
	return m
}

// Generate implements Generator.
func (d *DrumKit) Generate(ctx context.Context, primer sequence.NoteSequence, opts Options) (sequence.NoteSequence, error) {
	if err := opts.validate(); err != nil {
		return sequence.NoteSequence{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	step := time.Duration(60 / primer.QPM() / float64(d.stepsPerQuarter) * float64(time.Second))
	stepsPerBar := int64(d.stepsPerQuarter * 4)
	bar := step * time.Duration(stepsPerBar)

	first := opts.Sections[0]
	notes := contextNotes(primer, first.Start)
	bars := int((first.Start + bar - 1) / bar)
	if bars < 1 {
		bars = 1
	}
	model := d.learn(notes, step, bars)

	out := sequence.NoteSequence{Tempo: primer.QPM(), Notes: notes}
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
			pos := int(i % stepsPerBar)
			for c, class := range d.classes {
				p := temperProbability(model.prob[c][pos], opts.Temperature)
				if d.rng.Float64() >= p {
					continue
				}
				out.Notes = append(out.Notes, sequence.Note{
					Pitch:    class.Pitches[0],
					Velocity: model.velocity[c],
					Start:    start,
					End:      start + step,
					Channel:  contracts.DrumChannel,
					IsDrum:   true,
				})
				generated++
			}
		}
		if sec.End > out.TotalTime {
			out.TotalTime = sec.End
		}
	}
	out.Sort()

	d.log.Debug("drum sequence generated",
		d.log.Field().Int("contextNotes", len(notes)),
		d.log.Field().Int("generatedNotes", generated),
		d.log.Field().Float64("temperature", opts.Temperature))
	return out, nil
}
