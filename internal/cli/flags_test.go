package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/leandrodaf/improv/internal/config"
	"github.com/leandrodaf/improv/internal/logger"
	"github.com/leandrodaf/improv/sdk/generator"
	"github.com/leandrodaf/improv/sdk/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse("improv", nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "FLUID Synth", cfg.MIDIPort)
	assert.Equal(t, -1, cfg.Channel)
}

func TestParse_FlagsOverrideFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "improv.yaml")
	require.NoError(t, os.WriteFile(path, []byte("midi_port: IAC\nqpm: 90\nnum_bars: 2\n"), 0o644))
	t.Setenv("IMPROV_NUM_BARS", "5")

	cfg, err := Parse("improv", []string{
		"--config", path,
		"--midi_port", "Yamaha",
		"--output", "out",
		"--channel", "9",
	}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "Yamaha", cfg.MIDIPort)
	assert.Equal(t, 90.0, cfg.QPM, "file value kept when the flag is absent")
	assert.Equal(t, 5, cfg.NumBars, "env over file")
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, 9, cfg.Channel)
}

func TestParse_Errors(t *testing.T) {
	var stderr bytes.Buffer
	_, err := Parse("improv", []string{"--nope"}, &stderr)
	assert.Error(t, err)
	assert.Contains(t, stderr.String(), "nope")

	_, err = Parse("improv", []string{"stray"}, &stderr)
	assert.ErrorContains(t, err, "stray")
}

func TestConfigureLogger(t *testing.T) {
	cfg, err := Parse("improv", []string{"--log_level", "debug", "--log_file", filepath.Join(t.TempDir(), "improv.log")}, &bytes.Buffer{})
	require.NoError(t, err)

	log := logger.NewZapLogger()
	require.NoError(t, ConfigureLogger(log, cfg))
	log.Debug("written to file")
	_ = log.Sync()

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")

	cfg.LogLevel = "loud"
	assert.Error(t, ConfigureLogger(log, cfg))
}

func TestParseOver_UIDefaultsUsePerformanceModel(t *testing.T) {
	cfg, err := ParseOver("improv_ui", config.DefaultUI(), nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "bundles/performance.yaml", cfg.BundlePath)
	assert.Equal(t, "primers/piano_1_bar.mid", cfg.PrimerPath)

	b, err := generator.ReadBundleFile(filepath.Join("..", "..", cfg.BundlePath))
	require.NoError(t, err)
	g, err := generator.New(b)
	require.NoError(t, err)
	assert.Equal(t, generator.PerformanceID, g.ID(), "density slider needs a model that reads notes per second")

	_, err = sequence.ReadMIDIFile(filepath.Join("..", "..", cfg.PrimerPath))
	require.NoError(t, err)

	over, err := ParseOver("improv_ui", config.DefaultUI(), []string{"--bundle", "bundles/drum_kit.yaml"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "bundles/drum_kit.yaml", over.BundlePath, "flags still override")
}
