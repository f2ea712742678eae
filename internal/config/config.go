package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. The webhook URL is
// additionally bound to the FLOTILLA_WEBHOOK_URL environment variable, which
// takes precedence over the file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("shots.dir", "./shots")
	viper.SetDefault("shots.keep", 10)

	viper.SetDefault("telemetry.serverUrl", "https://flotilla-orpin.vercel.app")
	viper.SetDefault("telemetry.mmsi", "229944000")
	viper.SetDefault("telemetry.referenceLat", 31.5)
	viper.SetDefault("telemetry.referenceLon", 34.45)
	viper.SetDefault("telemetry.alertZoneWkt", "")

	viper.SetDefault("capture.pageUrl", "https://flotilla-orpin.vercel.app")
	viper.SetDefault("capture.selector", "canvas")
	viper.SetDefault("capture.viewportWidth", 1920)
	viper.SetDefault("capture.viewportHeight", 1080)
	viper.SetDefault("capture.waitTimeout", "30s")
	viper.SetDefault("capture.settleDelay", "5s")
	viper.SetDefault("capture.centerOnVessel", false)

	viper.SetDefault("notify.webhookUrl", "")
	viper.SetDefault("notify.username", "flotilla-watch")
	viper.SetDefault("notify.iconEmoji", ":ship:")

	viper.SetDefault("schedule.cron", "0 */6 * * *")

	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.dbFile", "./shots/history.db")
	viper.SetDefault("history.keepRuns", 500)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "flotilla-metrics")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "flotillawatch")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	if err := viper.BindEnv("notify.webhookUrl", "FLOTILLA_WEBHOOK_URL"); err != nil {
		return fmt.Errorf("error binding webhook env var: %v", err)
	}

	viper.SetConfigName("flotillawatch.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		// Missing config file is fine, defaults plus environment variables
		// fully describe a working setup.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %v", err)
		}
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat64 returns a float64 config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}
