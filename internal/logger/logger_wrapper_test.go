package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leandrodaf/improv/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_FieldsReachCore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)

	log.Info("tick",
		log.Field().Int64("number", 42),
		log.Field().Duration("period", 8*time.Second),
		log.Field().Error("error", errors.New("boom")),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "tick", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, int64(42), ctx["number"])
	assert.Equal(t, 8*time.Second, ctx["period"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestZapLogger_SetLevelFilters(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)
	log.SetLevel(contracts.WarnLevel)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Error("shown too")

	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, 0, logs.FilterMessage("hidden").Len())
}

func TestZapLogger_FileDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "improv.log")
	log := NewZapLogger()

	require.NoError(t, log.SetDestination(contracts.FileLog, path))
	log.Info("written to file", log.Field().String("port", "FLUID Synth"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.Contains(t, string(data), "FLUID Synth")
}

func TestZapLogger_FileDestinationNeedsPath(t *testing.T) {
	err := NewZapLogger().SetDestination(contracts.FileLog)
	assert.ErrorIs(t, err, ErrMissingLogFile)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    contracts.LogLevel
		wantErr bool
	}{
		{"debug", contracts.DebugLevel, false},
		{"INFO", contracts.InfoLevel, false},
		{"", contracts.InfoLevel, false},
		{"warning", contracts.WarnLevel, false},
		{"error", contracts.ErrorLevel, false},
		{"loud", contracts.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := contracts.ParseLogLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
