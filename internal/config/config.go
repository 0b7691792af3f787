package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "spscbench.cfg.json"

// BenchConfig holds the parameters of a bench session.
type BenchConfig struct {
	Backend  string
	Mode     string
	Capacity int
	Messages int
	Runs     int
	Timeout  time.Duration
	// SampleInterval is how often queue depth is sampled; zero disables it.
	SampleInterval time.Duration
}

// StorageConfig selects where run results are kept.
type StorageConfig struct {
	Type       string
	SQLitePath string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled        bool
	ServiceName    string
	BatchTimeout   time.Duration
	MetricInterval time.Duration
	Endpoint       string
	Insecure       bool
}

// SetDefaults registers default values for every known key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./benchlogs")

	viper.SetDefault("bench.backend", "spsc")
	viper.SetDefault("bench.mode", "blocking")
	viper.SetDefault("bench.capacity", 256)
	viper.SetDefault("bench.messages", 1_000_000)
	viper.SetDefault("bench.runs", 1)
	viper.SetDefault("bench.timeout", "1m")
	viper.SetDefault("bench.sampleInterval", "10ms")

	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.sqlite.path", "./spscbench.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "spscbench")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "spsc-metrics")
	viper.SetDefault("influx.bucket", "spsc_bench")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "spscbench")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.metricInterval", "10s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load sets defaults and reads the JSON config file from configDir.
// A missing file is not an error; defaults and flags still apply.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// Flags declares the command-line overrides understood by BindFlags.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", ".", "directory containing "+FileName)
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("backend", "", "channel backend (spsc, native)")
	fs.String("mode", "", "transfer mode (blocking, polling, context)")
	fs.Int("capacity", 0, "channel capacity")
	fs.Int("messages", 0, "messages per run")
	fs.Int("runs", 0, "number of runs")
	fs.String("storage", "", "result storage (sqlite, postgres, memory, none)")
}

// BindFlags maps flags onto config keys. Only flags set on the command line
// override the file and defaults.
func BindFlags(fs *pflag.FlagSet) error {
	bindings := map[string]string{
		"log-level": "logLevel",
		"backend":   "bench.backend",
		"mode":      "bench.mode",
		"capacity":  "bench.capacity",
		"messages":  "bench.messages",
		"runs":      "bench.runs",
		"storage":   "storage.type",
	}
	for flag, key := range bindings {
		f := fs.Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// GetBenchConfig returns the bench section.
func GetBenchConfig() BenchConfig {
	cfg := BenchConfig{
		Backend:  viper.GetString("bench.backend"),
		Mode:     viper.GetString("bench.mode"),
		Capacity: viper.GetInt("bench.capacity"),
		Messages: viper.GetInt("bench.messages"),
		Runs:     viper.GetInt("bench.runs"),
		Timeout:  viper.GetDuration("bench.timeout"),

		SampleInterval: viper.GetDuration("bench.sampleInterval"),
	}
	if cfg.Runs <= 0 {
		cfg.Runs = 1
	}
	return cfg
}

// GetStorageConfig returns the storage section.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:       viper.GetString("storage.type"),
		SQLitePath: viper.GetString("storage.sqlite.path"),
	}
}

// GetOTelConfig returns the otel section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
	}
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

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
