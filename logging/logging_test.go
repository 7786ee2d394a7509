package logging

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	InitWriter("production", "warn", &buf)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Info().Msg("dropped")
	log.Warn().Str("k", "v").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "v", entry["k"])
	assert.Equal(t, "warn", entry["level"])
}

func TestInitUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWriter("production", "loud", &buf)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestIsDevelopment(t *testing.T) {
	assert.True(t, IsDevelopment(""))
	assert.True(t, IsDevelopment("Development"))
	assert.False(t, IsDevelopment("production"))
	assert.False(t, IsDevelopment("staging"))
}
