package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"shots": { "dir": "/var/lib/flotilla/shots", "keep": 5 },
		"telemetry": { "mmsi": "123456789" }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flotillawatch.cfg.json"), []byte(cfg), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "/var/lib/flotilla/shots", viper.GetString("shots.dir"))
	assert.Equal(t, 5, viper.GetInt("shots.keep"))
	assert.Equal(t, "123456789", viper.GetString("telemetry.mmsi"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flotillawatch.cfg.json"), []byte(`{}`), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, "./shots", viper.GetString("shots.dir"))
	assert.Equal(t, 10, viper.GetInt("shots.keep"))
	assert.Equal(t, "229944000", viper.GetString("telemetry.mmsi"))
	assert.Equal(t, 31.5, viper.GetFloat64("telemetry.referenceLat"))
	assert.Equal(t, 34.45, viper.GetFloat64("telemetry.referenceLon"))
	assert.Equal(t, "canvas", viper.GetString("capture.selector"))
	assert.Equal(t, 1920, viper.GetInt("capture.viewportWidth"))
	assert.Equal(t, 1080, viper.GetInt("capture.viewportHeight"))
	assert.Equal(t, "30s", viper.GetString("capture.waitTimeout"))
	assert.Equal(t, "5s", viper.GetString("capture.settleDelay"))
	assert.Equal(t, "", viper.GetString("notify.webhookUrl"))
	assert.Equal(t, "flotilla-watch", viper.GetString("notify.username"))
	assert.Equal(t, ":ship:", viper.GetString("notify.iconEmoji"))
	assert.Equal(t, "0 */6 * * *", viper.GetString("schedule.cron"))
	assert.Equal(t, true, viper.GetBool("history.enabled"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "flotillawatch", viper.GetString("otel.serviceName"))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "info", viper.GetString("logLevel"))
}

func TestLoad_MalformedFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flotillawatch.cfg.json"), []byte(`{not json`), 0644))

	err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_WebhookEnvOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("FLOTILLA_WEBHOOK_URL", "https://hooks.example.com/services/T/B/X")

	require.NoError(t, Load(t.TempDir()))
	assert.Equal(t, "https://hooks.example.com/services/T/B/X", viper.GetString("notify.webhookUrl"))
}
