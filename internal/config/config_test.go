package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ecobost/scanreader/internal/logger"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.False(t, cfg.Scan.JoinContiguous)
	require.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"scan.yaml", "scan.yml", "scan.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "conf", name)

			cfg := DefaultConfig()
			cfg.Scan.JoinContiguous = true
			cfg.Log.Level = "debug"
			cfg.Log.File = "/var/log/scaninfo.log"
			cfg.Log.MaxSize = 5
			require.NoError(t, SaveConfig(cfg, path))

			got, err := LoadConfig(path)
			require.NoError(t, err)
			require.Equal(t, cfg, got)
		})
	}
}

func TestLoadConfig_Partial(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "a.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("scan:\n  join_contiguous: true\n"), 0o600))
	cfg, err := LoadConfig(yamlPath)
	require.NoError(t, err)
	require.True(t, cfg.Scan.JoinContiguous)
	require.Equal(t, "info", cfg.Log.Level, "defaults survive")

	tomlPath := filepath.Join(dir, "a.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("[log]\nlevel = \"error\"\nmax_age = 7\n"), 0o600))
	cfg, err = LoadConfig(tomlPath)
	require.NoError(t, err)
	require.Equal(t, "error", cfg.Log.Level)
	require.Equal(t, 7, cfg.Log.MaxAge)
	require.Equal(t, 100, cfg.Log.MaxSize)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "scan.json"))
	require.Error(t, err, "unknown extension")

	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[log\n"), 0o600))
	_, err = LoadConfig(bad)
	require.Error(t, err)

	level := filepath.Join(dir, "level.yaml")
	require.NoError(t, os.WriteFile(level, []byte("log:\n  level: loud\n"), 0o600))
	_, err = LoadConfig(level)
	require.Error(t, err)
}

func TestConfig_Logger(t *testing.T) {
	cfg := DefaultConfig()
	l, closeFn, err := cfg.Logger()
	require.NoError(t, err)
	require.IsType(t, &logger.WriterLogger{}, l)
	require.NoError(t, closeFn())

	cfg.Log.File = filepath.Join(t.TempDir(), "scan.log")
	l, closeFn, err = cfg.Logger()
	require.NoError(t, err)
	l.Infof("hello")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	require.Contains(t, string(data), "INFO: hello")
}
