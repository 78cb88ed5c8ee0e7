package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want zerolog.Level
		ok   bool
	}{
		{"", zerolog.InfoLevel, false},
		{"trace", zerolog.TraceLevel, true},
		{" DEBUG ", zerolog.DebugLevel, true},
		{"warning", zerolog.WarnLevel, true},
		{"error", zerolog.ErrorLevel, true},
		{"off", zerolog.Disabled, true},
		{"loud", zerolog.InfoLevel, false},
	}
	for _, tt := range tests {
		got, ok := parseLevel(tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvLogLevel:     "warn",
		EnvLogTimestamp: "false",
		EnvLogNoColor:   "yes", // not a Go bool, ignored
	}
	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg, func(k string) string { return env[k] })

	assert.Equal(t, Config{Level: zerolog.WarnLevel, Timestamp: false, NoColor: false}, cfg)
}

func TestApplyWritesPlainConsole(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	apply(Config{Level: zerolog.InfoLevel, NoColor: true}, &buf)
	log.Debug().Msg("hidden")
	log.Info().Str("state", "locked").Msg("Controller ready")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "Controller ready")
	assert.Contains(t, out, "state=locked")
}
