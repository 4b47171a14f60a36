package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	SetLevel("debug")
	SetOutput(&buf, "json")
	t.Cleanup(func() { SetLevel("info") })

	log.Info().Str("shop_id", "S1").Msg("restock_request")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "restock_request", entry["message"])
	assert.Equal(t, "S1", entry["shop_id"])
	assert.Equal(t, "info", entry["level"])
}

func TestSetLevelFallsBackToInfo(t *testing.T) {
	SetLevel("loud")
	t.Cleanup(func() { SetLevel("info") })

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
