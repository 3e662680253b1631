package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envKeys are bound explicitly so they can be set from the environment
// even when no config file mentions them.
var envKeys = []string{
	"server.port",
	"logging.level",
	"logging.format",
	"ner.type",
	"embeddings.type",
	"gemini.api_key",
	"gemini.api_key_file",
	"catalog.driver",
	"catalog.database.url",
	"catalog.database.url_file",
	"compatibility.cache.enabled",
	"compatibility.cache.redis_url",
	"storage.type",
	"storage.dir",
	"storage.bucket",
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	config := GetDefaults()

	viper.SetConfigName("fairhire")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/fairhire/")
	viper.AddConfigPath("$HOME/.fairhire/")

	viper.SetEnvPrefix("FAIRHIRE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		if err := viper.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Anonymizer.Labels = normalizeLabels(config.Anonymizer.Labels)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// normalizeLabels upper-cases label keys. Viper lower-cases map keys it reads,
// so lower-case keys come from the file or environment and override defaults.
func normalizeLabels(labels map[string]string) map[string]string {
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		if k == strings.ToUpper(k) {
			out[k] = v
		}
	}
	for k, v := range labels {
		if k != strings.ToUpper(k) {
			out[strings.ToUpper(k)] = v
		}
	}
	return out
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid max upload size: %d", config.Server.MaxUploadBytes)
	}

	if config.Server.RateLimit.Enabled && (config.Server.RateLimit.RequestsPerSecond <= 0 || config.Server.RateLimit.Burst <= 0) {
		return fmt.Errorf("invalid rate limit: requests_per_second and burst must be positive")
	}

	switch config.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	if len(config.Anonymizer.Detectors) == 0 {
		return fmt.Errorf("at least one pattern detector must be enabled")
	}

	render := config.Anonymizer.Render
	if render.FontSize <= 0 || render.LineHeight <= 0 || render.Top < 0 || render.Left < 0 {
		return fmt.Errorf("invalid render geometry: font_size and line_height must be positive")
	}

	switch config.NER.Type {
	case "gazetteer", "gemini", "onnx":
	default:
		return fmt.Errorf("invalid ner type: %s (must be gazetteer, gemini, or onnx)", config.NER.Type)
	}

	switch config.Embeddings.Type {
	case "hash", "onnx", "gemini":
	default:
		return fmt.Errorf("invalid embeddings type: %s (must be hash, onnx, or gemini)", config.Embeddings.Type)
	}

	if config.Embeddings.Type == "hash" && config.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("invalid embedding dimensions: %d", config.Embeddings.Dimensions)
	}

	if config.Compatibility.CatalogConcurrency <= 0 {
		return fmt.Errorf("invalid catalog concurrency: %d", config.Compatibility.CatalogConcurrency)
	}

	switch config.Catalog.Driver {
	case "memory":
	case "postgres":
		if config.Catalog.Database.URL == "" && config.Catalog.Database.URLFile == "" {
			return fmt.Errorf("catalog driver postgres requires database.url or database.url_file")
		}
	default:
		return fmt.Errorf("invalid catalog driver: %s (must be memory or postgres)", config.Catalog.Driver)
	}

	switch config.Storage.Type {
	case "none", "local":
	case "gcs":
		if config.Storage.Bucket == "" {
			return fmt.Errorf("storage type gcs requires a bucket")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be none, local, or gcs)", config.Storage.Type)
	}

	return nil
}

// Watch calls callback with the reloaded configuration whenever the config file changes.
// Invalid reloads are reported to onError and otherwise ignored.
func Watch(callback func(*Config), onError func(error)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig := GetDefaults()
		if err := viper.Unmarshal(newConfig); err != nil {
			onError(fmt.Errorf("reloading %s: %w", e.Name, err))
			return
		}
		newConfig.Anonymizer.Labels = normalizeLabels(newConfig.Anonymizer.Labels)

		if err := validateConfig(newConfig); err != nil {
			onError(fmt.Errorf("reloading %s: %w", e.Name, err))
			return
		}

		callback(newConfig)
	})
	viper.WatchConfig()
}
