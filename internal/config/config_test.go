package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clinicboard/annotator/internal/state"
	"github.com/clinicboard/annotator/internal/store"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "annotator.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, state.DefaultColor, cfg.DefaultColor)

	st, err := cfg.Store()
	require.NoError(t, err)
	require.IsType(t, &store.FileStore{}, st)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/srv/annotations"
listen = ":9000"
advertise = true
default_color = "#00ffff"
default_width = 5
future_option = 1

[log]
level = "debug"
json = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/srv/annotations", cfg.DataDir)
	require.Equal(t, ":9000", cfg.Listen)
	require.True(t, cfg.Advertise)
	require.Equal(t, 5.0, cfg.DefaultWidth)
	require.Equal(t, Log{Level: "debug", JSON: true}, cfg.Log)

	e := state.NewEngine(state.Empty(), cfg.EngineOptions()...)
	require.Equal(t, "#00FFFF", e.Color())
	require.Equal(t, 5.0, e.Width())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvMasterKey, testKeyHex)
	t.Setenv(EnvServerURL, "http://10.0.0.5:8888")
	path := writeConfig(t, `master_key_hex = "ff"`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, testKeyHex, cfg.MasterKeyHex)

	sealer, err := cfg.Sealer()
	require.NoError(t, err)
	require.NotNil(t, sealer)

	st, err := cfg.Store()
	require.NoError(t, err)
	require.IsType(t, &store.RemoteStore{}, st)
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, `
default_color = "gold"
default_width = 0
master_key_hex = "abcd"
[log]
level = "loud"
`)
	_, err := Load(path)
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"default_color", "default_width", "32 bytes", "loud"} {
		require.True(t, strings.Contains(msg, want), "missing %q in %q", want, msg)
	}
	require.ErrorIs(t, err, store.ErrKeyLength)
}

func TestBadFile(t *testing.T) {
	_, err := Load(writeConfig(t, `listen = `))
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	require.NoError(t, Log{Level: "warn"}.SetupLogging())
	require.Error(t, Log{Level: "chatty"}.SetupLogging())
	require.NoError(t, Log{Level: "info"}.SetupLogging())
}
