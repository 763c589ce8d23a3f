package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the investigation scoring service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Patterns  PatternsConfig  `mapstructure:"patterns"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestSize  int64         `mapstructure:"max_request_size"`
}

// DatabaseConfig holds PostgreSQL configuration for assessment audit storage
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Enabled         bool          `mapstructure:"enabled"`
}

// RedisConfig holds Redis configuration for the pattern memory store
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig holds Kafka configuration for assessment event publishing
type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	EventsTopic string   `mapstructure:"events_topic"`
	AlertsTopic string   `mapstructure:"alerts_topic"`
	Enabled     bool     `mapstructure:"enabled"`
}

// ScoringConfig holds the aggregation weights and cut points. These values
// are the regulatory contract; they live in one table so rule changes stay
// auditable.
type ScoringConfig struct {
	TransactionalWeight float64 `mapstructure:"transactional_weight"`
	BehavioralWeight    float64 `mapstructure:"behavioral_weight"`
	NetworkWeight       float64 `mapstructure:"network_weight"`
	TypologyWeight      float64 `mapstructure:"typology_weight"`

	HighIndicatorThreshold float64 `mapstructure:"high_indicator_threshold"`
	TopRiskFactors         int     `mapstructure:"top_risk_factors"`

	MaxScoringLatency time.Duration `mapstructure:"max_scoring_latency"`
}

// PatternsConfig holds pattern memory configuration
type PatternsConfig struct {
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	PatternTTL          time.Duration `mapstructure:"pattern_ttl"`
	MetricsTTL          time.Duration `mapstructure:"metrics_ttl"`
	EMAAlpha            float64       `mapstructure:"ema_alpha"`
	MaxStoredQueries    int           `mapstructure:"max_stored_queries"`
	LookupTimeout       time.Duration `mapstructure:"lookup_timeout"`

	// Amount band that triggers the structuring similarity lookup
	StructuringBandLow  float64 `mapstructure:"structuring_band_low"`
	StructuringBandHigh float64 `mapstructure:"structuring_band_high"`
}

// TrackerConfig holds operation tracker configuration
type TrackerConfig struct {
	StaleTimeout    time.Duration `mapstructure:"stale_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	ServiceName   string  `mapstructure:"service_name"`
	Environment   string  `mapstructure:"environment"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
	Enabled       bool    `mapstructure:"enabled"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	JWTSecret      string   `mapstructure:"jwt_secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("ML_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/ml-service")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults + env
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_request_size", 1048576) // 1MB

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "flagflow")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.enabled", false)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 50)
	v.SetDefault("redis.min_idle_conns", 10)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "1s")
	v.SetDefault("redis.write_timeout", "1s")

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.events_topic", "flagflow.aml.events")
	v.SetDefault("kafka.alerts_topic", "flagflow.aml.alerts")
	v.SetDefault("kafka.enabled", false)

	// Scoring defaults (weights must sum to 1.0)
	v.SetDefault("scoring.transactional_weight", 0.30)
	v.SetDefault("scoring.behavioral_weight", 0.25)
	v.SetDefault("scoring.network_weight", 0.25)
	v.SetDefault("scoring.typology_weight", 0.20)
	v.SetDefault("scoring.high_indicator_threshold", 70.0)
	v.SetDefault("scoring.top_risk_factors", 5)
	v.SetDefault("scoring.max_scoring_latency", "200ms")

	// Pattern memory defaults
	v.SetDefault("patterns.confidence_threshold", 0.7)
	v.SetDefault("patterns.pattern_ttl", "720h") // 30 days
	v.SetDefault("patterns.metrics_ttl", "168h") // 7 days
	v.SetDefault("patterns.ema_alpha", 0.1)
	v.SetDefault("patterns.max_stored_queries", 20)
	v.SetDefault("patterns.lookup_timeout", "500ms")
	v.SetDefault("patterns.structuring_band_low", 9900.0)
	v.SetDefault("patterns.structuring_band_high", 10000.0)

	// Tracker defaults
	v.SetDefault("tracker.stale_timeout", "300s")
	v.SetDefault("tracker.cleanup_interval", "60s")

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "flagflow-ml")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 0.1)
	v.SetDefault("telemetry.enabled", false)

	// Security defaults
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.allowed_origins", []string{"http://localhost:3000"})
}
