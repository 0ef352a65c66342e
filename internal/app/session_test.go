package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/improv/internal/config"
	"github.com/leandrodaf/improv/internal/logger"
	"github.com/leandrodaf/improv/sdk/contracts"
	"github.com/leandrodaf/improv/sdk/generator"
	"github.com/leandrodaf/improv/sdk/midi"
	"github.com/leandrodaf/improv/sdk/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutput struct {
	mu     sync.Mutex
	ports  []contracts.PortInfo
	opened []int
	sent   []contracts.MIDI
	closed bool
}

func (f *fakeOutput) ListPorts() ([]contracts.PortInfo, error) { return f.ports, nil }

func (f *fakeOutput) OpenPort(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, id)
	return nil
}

func (f *fakeOutput) Send(msg contracts.MIDI) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeOutput) factory() OutputFactory {
	return func(...contracts.Option) (contracts.OutputMIDI, error) { return f, nil }
}

func writeFixtures(t *testing.T, generatorID string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	bundlePath := filepath.Join(dir, "bundle.yaml")
	f, err := os.Create(bundlePath)
	require.NoError(t, err)
	require.NoError(t, generator.WriteBundle(f, generator.Bundle{Generator: generatorID, Seed: 7}))
	require.NoError(t, f.Close())

	primer := sequence.NoteSequence{Tempo: 120, TotalTime: 2 * time.Second}
	for i := 0; i < 8; i++ {
		start := time.Duration(i) * 250 * time.Millisecond
		primer.Notes = append(primer.Notes, sequence.Note{
			Pitch: 36 + uint8(i%2)*2, Velocity: 100, Start: start, End: start + 125*time.Millisecond,
			Channel: 9, IsDrum: true,
		})
	}
	primerPath := filepath.Join(dir, "primer.mid")
	require.NoError(t, sequence.WriteMIDIFile(primerPath, primer))

	cfg := config.Default()
	cfg.BundlePath = bundlePath
	cfg.PrimerPath = primerPath
	return cfg
}

var synthPorts = []contracts.PortInfo{
	{ID: 0, Name: "Midi Through Port-0"},
	{ID: 3, Name: "FLUID Synth (42):Synth input port"},
}

func TestOpen_NoMatchingPortClosesOutput(t *testing.T) {
	cfg := writeFixtures(t, generator.DrumKitID)
	out := &fakeOutput{ports: synthPorts[:1]}

	_, err := Open(context.Background(), cfg, logger.NewNopLogger(), WithOutputFactory(out.factory()))
	require.ErrorIs(t, err, midi.ErrNoMatchingPort)
	assert.True(t, out.closed)
}

func TestOpen_ChannelSelection(t *testing.T) {
	tests := []struct {
		name      string
		generator string
		forced    int
		want      uint8
	}{
		{"drums use the drum channel", generator.DrumKitID, -1, contracts.DrumChannel},
		{"performance uses the bundle channel", generator.PerformanceID, -1, 0},
		{"config wins", generator.DrumKitID, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := writeFixtures(t, tt.generator)
			cfg.Channel = tt.forced
			out := &fakeOutput{ports: synthPorts}

			s, err := Open(context.Background(), cfg, logger.NewNopLogger(), WithOutputFactory(out.factory()))
			require.NoError(t, err)
			defer s.Close()

			assert.Equal(t, tt.want, s.channel())
			assert.Equal(t, []int{3}, out.opened)
			require.Len(t, s.Ports, 1)
		})
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := writeFixtures(t, generator.DrumKitID)
	cfg.QPM = -1
	out := &fakeOutput{ports: synthPorts}

	_, err := Open(context.Background(), cfg, logger.NewNopLogger(), WithOutputFactory(out.factory()))
	assert.Error(t, err)
	assert.Empty(t, out.opened)
}

func TestRun_SavesWindowsUntilCancelled(t *testing.T) {
	cfg := writeFixtures(t, generator.DrumKitID)
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	out := &fakeOutput{ports: synthPorts}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, err := Open(ctx, cfg, logger.NewNopLogger(), WithOutputFactory(out.factory()))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool {
		files, _ := filepath.Glob(filepath.Join(cfg.OutputDir, "*.mid"))
		return len(files) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.NoError(t, s.Close())
	assert.True(t, out.closed)
}
