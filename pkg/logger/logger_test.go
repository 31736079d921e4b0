package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestInitSharesPackageLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	Init(&buf, zerolog.DebugLevel)

	log.Info().Str("tenant", "shop").Msg("from zerolog/log")
	assert.Contains(t, buf.String(), `"tenant":"shop"`)

	buf.Reset()
	SetLevel("warn")
	Log.Info().Msg("dropped")
	log.Info().Msg("dropped too")
	assert.Empty(t, buf.String())

	Log.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestSetLevelInvalid(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	Init(&buf, zerolog.DebugLevel)

	SetLevel("loud")
	assert.Equal(t, zerolog.InfoLevel, Log.GetLevel())
	assert.Contains(t, buf.String(), "invalid log level")
}
