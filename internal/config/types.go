package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Logging       LoggingConfig       `yaml:"logging" mapstructure:"logging"`
	Anonymizer    AnonymizerConfig    `yaml:"anonymizer" mapstructure:"anonymizer"`
	NER           NERConfig           `yaml:"ner" mapstructure:"ner"`
	Embeddings    EmbeddingsConfig    `yaml:"embeddings" mapstructure:"embeddings"`
	Compatibility CompatibilityConfig `yaml:"compatibility" mapstructure:"compatibility"`
	Catalog       CatalogConfig       `yaml:"catalog" mapstructure:"catalog"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	Gemini        GeminiConfig        `yaml:"gemini" mapstructure:"gemini"`
	WebSocket     WebSocketConfig     `yaml:"websocket" mapstructure:"websocket"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           int             `yaml:"port" mapstructure:"port"`
	ReadTimeout    time.Duration   `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration   `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout    time.Duration   `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxUploadBytes int64           `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RateLimitConfig configures the per-client token bucket on /api routes
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	ClientTTL         time.Duration `yaml:"client_ttl" mapstructure:"client_ttl"`
	// TrustedProxies are addresses or CIDR prefixes whose X-Forwarded-For
	// and X-Real-IP headers are believed. Empty means only the peer address counts.
	TrustedProxies []string `yaml:"trusted_proxies" mapstructure:"trusted_proxies"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// AnonymizerConfig configures the redaction rules and output rendering
type AnonymizerConfig struct {
	Detectors []string `yaml:"detectors" mapstructure:"detectors"`
	// Labels maps entity labels to replacement tokens. Labels not listed are left alone.
	Labels map[string]string `yaml:"labels" mapstructure:"labels"`
	Render RenderConfig      `yaml:"render" mapstructure:"render"`
}

// RenderConfig contains re-rendering geometry, in PDF points
type RenderConfig struct {
	Paper        string  `yaml:"paper" mapstructure:"paper"`
	FontName     string  `yaml:"font_name" mapstructure:"font_name"`
	FontSize     int     `yaml:"font_size" mapstructure:"font_size"`
	Left         float64 `yaml:"left" mapstructure:"left"`
	Top          float64 `yaml:"top" mapstructure:"top"`
	LineHeight   float64 `yaml:"line_height" mapstructure:"line_height"`
	BottomMargin float64 `yaml:"bottom_margin" mapstructure:"bottom_margin"`
}

// NERConfig selects and configures the entity recognizer
type NERConfig struct {
	Type      string  `yaml:"type" mapstructure:"type"` // gazetteer, gemini or onnx
	MinScore  float64 `yaml:"min_score" mapstructure:"min_score"`
	Gazetteer struct {
		ExtraNames     []string `yaml:"extra_names" mapstructure:"extra_names"`
		ExtraLocations []string `yaml:"extra_locations" mapstructure:"extra_locations"`
	} `yaml:"gazetteer" mapstructure:"gazetteer"`
	ONNX ONNXModelConfig `yaml:"onnx" mapstructure:"onnx"`
}

// ONNXModelConfig points at an exported transformer and its WordPiece vocabulary
type ONNXModelConfig struct {
	ModelPath string   `yaml:"model_path" mapstructure:"model_path"`
	VocabPath string   `yaml:"vocab_path" mapstructure:"vocab_path"`
	MaxLength int      `yaml:"max_length" mapstructure:"max_length"`
	LowerCase bool     `yaml:"lower_case" mapstructure:"lower_case"`
	Labels    []string `yaml:"labels" mapstructure:"labels"` // token classification only
}

// EmbeddingsConfig selects the sentence encoder
type EmbeddingsConfig struct {
	Type       string          `yaml:"type" mapstructure:"type"` // hash, onnx or gemini
	Dimensions int             `yaml:"dimensions" mapstructure:"dimensions"`
	ONNX       ONNXModelConfig `yaml:"onnx" mapstructure:"onnx"`
}

// CompatibilityConfig contains scorer settings
type CompatibilityConfig struct {
	DefaultSkills      string      `yaml:"default_skills" mapstructure:"default_skills"`
	CatalogConcurrency int         `yaml:"catalog_concurrency" mapstructure:"catalog_concurrency"`
	Cache              CacheConfig `yaml:"cache" mapstructure:"cache"`
}

// CacheConfig contains the redis embedding cache settings
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	TTL            time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
}

// CatalogConfig selects where job descriptions live
type CatalogConfig struct {
	Driver       string         `yaml:"driver" mapstructure:"driver"` // memory or postgres
	SeedDefaults bool           `yaml:"seed_defaults" mapstructure:"seed_defaults"`
	Database     DatabaseConfig `yaml:"database" mapstructure:"database"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	URL             string        `yaml:"url" mapstructure:"url"`
	URLFile         string        `yaml:"url_file" mapstructure:"url_file"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// StorageConfig selects where anonymized documents are kept
type StorageConfig struct {
	Type            string `yaml:"type" mapstructure:"type"` // none, local or gcs
	Dir             string `yaml:"dir" mapstructure:"dir"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix" mapstructure:"prefix"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
}

// GeminiConfig contains Google GenAI settings shared by the gemini backends
type GeminiConfig struct {
	APIKey         string `yaml:"api_key" mapstructure:"api_key"`
	APIKeyFile     string `yaml:"api_key_file" mapstructure:"api_key_file"`
	Model          string `yaml:"model" mapstructure:"model"`
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Path     string `yaml:"path" mapstructure:"path"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Events   struct {
		BroadcastAnonymization bool `yaml:"broadcast_anonymization" mapstructure:"broadcast_anonymization"`
		BroadcastCompatibility bool `yaml:"broadcast_compatibility" mapstructure:"broadcast_compatibility"`
		BroadcastRequests      bool `yaml:"broadcast_requests" mapstructure:"broadcast_requests"`
		BroadcastConnections   bool `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
	} `yaml:"events" mapstructure:"events"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxUploadBytes: 10 << 20,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 5,
				Burst:             10,
				ClientTTL:         10 * time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Anonymizer: AnonymizerConfig{
			Detectors: []string{"all"},
			Labels: map[string]string{
				"PER": "[NAME]",
				"LOC": "[ADDRESS]",
			},
			Render: RenderConfig{
				Paper:        "A4",
				FontName:     "Helvetica",
				FontSize:     11,
				Left:         72,
				Top:          72,
				LineHeight:   15,
				BottomMargin: 36,
			},
		},
		NER: NERConfig{
			Type:     "gazetteer",
			MinScore: 0.5,
			ONNX: ONNXModelConfig{
				ModelPath: "./models/bert-base-ner.onnx",
				VocabPath: "./models/bert-base-ner-vocab.txt",
				MaxLength: 512,
				Labels:    []string{"O", "B-MISC", "I-MISC", "B-PER", "I-PER", "B-ORG", "I-ORG", "B-LOC", "I-LOC"},
			},
		},
		Embeddings: EmbeddingsConfig{
			Type:       "hash",
			Dimensions: 384,
			ONNX: ONNXModelConfig{
				ModelPath: "./models/all-MiniLM-L6-v2.onnx",
				VocabPath: "./models/all-MiniLM-L6-v2-vocab.txt",
				MaxLength: 256,
				LowerCase: true,
			},
		},
		Compatibility: CompatibilityConfig{
			DefaultSkills:      "reactJS, development",
			CatalogConcurrency: 4,
			Cache: CacheConfig{
				Enabled:        false,
				RedisURL:       "redis://localhost:6379/0",
				KeyPrefix:      "fairhire:embedding",
				TTL:            6 * time.Hour,
				MaxConnections: 10,
				MinIdleConns:   2,
			},
		},
		Catalog: CatalogConfig{
			Driver:       "memory",
			SeedDefaults: true,
			Database: DatabaseConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 30 * time.Minute,
			},
		},
		Storage: StorageConfig{
			Type:   "none",
			Prefix: "anonymized",
		},
		Gemini: GeminiConfig{
			Model:          "gemini-2.5-flash",
			EmbeddingModel: "text-embedding-004",
		},
		WebSocket: WebSocketConfig{
			Enabled: true,
			Path:    "/ws",
		},
	}

	cfg.Logging.File.Path = "logs/fairhire.log"
	cfg.WebSocket.Events.BroadcastAnonymization = true
	cfg.WebSocket.Events.BroadcastCompatibility = true
	cfg.WebSocket.Events.BroadcastRequests = false
	cfg.WebSocket.Events.BroadcastConnections = true

	return cfg
}
