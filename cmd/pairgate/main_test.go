package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopsServer(t *testing.T) {
	assert.True(t, stopsServer(domain.ResultPanic, false))
	assert.True(t, stopsServer(domain.ResultPaired, true))
	assert.False(t, stopsServer(domain.ResultPaired, false))
	assert.False(t, stopsServer(domain.ResultExhausted, true))
	assert.False(t, stopsServer(domain.ResultAuthRejected, true))
}

func TestLoadConfig_Flags(t *testing.T) {
	t.Setenv("PAIRGATE_SESSIONS_DIR", "from-env")
	t.Setenv("PAIRGATE_CONFIG", "")

	require.NoError(t, serveCmd.ParseFlags([]string{
		"--addr", ":9999",
		"--exit-on-success=false",
		"--response-timeout", "30s",
		"--log-format", "json",
	}))

	cfg, err := loadConfig(serveCmd)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.False(t, cfg.ExitOnSuccess)
	assert.Equal(t, 30*time.Second, cfg.ResponseTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "from-env", cfg.SessionsDir, "unset flags leave env values alone")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "pairgate version ")
}
