package pkgsetup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mongodb/grip/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewSettings(t *testing.T) {
	t.Run("MissingFileUsesDefaults", func(t *testing.T) {
		settings, err := NewSettings(filepath.Join(t.TempDir(), "missing.yml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultLogLevel, settings.Logging.Level)
		assert.Equal(t, LogFormatText, settings.Logging.Format)
		assert.Empty(t, settings.Metrics.TextfilePath)
		assert.False(t, settings.Tracer.Enabled)
	})
	t.Run("EmptyPathUsesDefaults", func(t *testing.T) {
		settings, err := NewSettings("")
		require.NoError(t, err)
		assert.Equal(t, DefaultLogLevel, settings.Logging.Level)
	})
	t.Run("ParsesAllSections", func(t *testing.T) {
		path := writeFile(t, "settings.yml", `
logging:
  level: debug
  format: json
  capture_output: true
metrics:
  textfile_path: pkgsetup.prom
tracer:
  enabled: true
  collector_endpoint: localhost:4317
  insecure: true
`)
		settings, err := NewSettings(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", settings.Logging.Level)
		assert.Equal(t, LogFormatJSON, settings.Logging.Format)
		assert.True(t, settings.Logging.CaptureOutput)
		assert.True(t, filepath.IsAbs(settings.Metrics.TextfilePath))
		assert.Equal(t, "localhost:4317", settings.Tracer.CollectorEndpoint)
		assert.True(t, settings.Tracer.Insecure)
	})
	t.Run("RejectsUnknownFields", func(t *testing.T) {
		path := writeFile(t, "settings.yml", "logging:\n  colour: true\n")
		_, err := NewSettings(path)
		assert.Error(t, err)
	})
	t.Run("RejectsInvalidSections", func(t *testing.T) {
		path := writeFile(t, "settings.yml", "logging:\n  level: chatty\n  format: xml\ntracer:\n  enabled: true\n")
		_, err := NewSettings(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chatty")
		assert.Contains(t, err.Error(), "xml")
		assert.Contains(t, err.Error(), "collector endpoint")
	})
}

func TestDefaultSettingsPath(t *testing.T) {
	t.Setenv(SettingsFileEnv, "/etc/pkgsetup.yml")
	assert.Equal(t, "/etc/pkgsetup.yml", DefaultSettingsPath())

	t.Setenv(SettingsFileEnv, "")
	assert.Equal(t, DefaultSettingsFile, filepath.Base(DefaultSettingsPath()))
}

func TestLoggingConfigMakeSender(t *testing.T) {
	t.Run("Console", func(t *testing.T) {
		conf := LoggingConfig{Level: "warning"}
		require.NoError(t, conf.ValidateAndDefault())

		sender, err := conf.MakeSender("test")
		require.NoError(t, err)
		assert.Equal(t, level.Warning, sender.Level().Threshold)
		assert.Equal(t, "test", sender.Name())
	})
	t.Run("JSONWithFile", func(t *testing.T) {
		conf := LoggingConfig{Format: LogFormatJSON, File: filepath.Join(t.TempDir(), "pkgsetup.log")}
		require.NoError(t, conf.ValidateAndDefault())

		sender, err := conf.MakeSender("test")
		require.NoError(t, err)
		require.NotNil(t, sender)
		assert.FileExists(t, conf.File)
		assert.NoError(t, sender.Close())
	})
}
