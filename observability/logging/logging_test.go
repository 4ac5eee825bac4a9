package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupEmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("farmctl", "test", WithWriter(&buf), WithLevel(slog.LevelDebug))
	logger.Debug("farm synced", "op", "sync_global_farm")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "DEBUG", line["severity"])
	require.Equal(t, "farm synced", line["message"])
	require.Equal(t, "farmctl", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, "sync_global_farm", line["op"])
	require.Contains(t, line, "timestamp")
}

func TestSetupFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("farmctl", "", WithWriter(&buf))
	logger.Debug("hidden")
	require.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	require.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	require.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestMaskHelpers(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("owner", "0xabc").Value.String())
	require.Equal(t, "sync", MaskField("op", "sync").Value.String())
	require.Equal(t, "", MaskValue(""))
	require.Equal(t, "7", MaskField("yieldFarmId", "7").Value.String())

	account := [20]byte{0xab, 0xcd}
	account[19] = 0xef
	require.Equal(t, "0xabcd…00ef", MaskAccount("owner", account).Value.String())
}
