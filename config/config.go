package config

import (
	"log"

	"github.com/spf13/viper"
)

type WebServerConfig struct {
	Port             string `mapstructure:"port"`
	IP               string `mapstructure:"ip"`
	ReadTimeout      int    `mapstructure:"read_timeout"`
	WriteTimeout     int    `mapstructure:"write_timeout"`
	ShutdownTimeout  int    `mapstructure:"shutdown_timeout"`
	TrustProxy       bool   `mapstructure:"trust_proxy"`
	TrustProxyHeader string `mapstructure:"trust_proxy_header"`
}

type RedisConfig struct {
	Address          string `mapstructure:"address"`
	Password         string `mapstructure:"password"`
	DB               int    `mapstructure:"db"`
	PoolSize         int    `mapstructure:"pool_size"`
	MinIdleConns     int    `mapstructure:"min_idle_conns"`
	OperationTimeout int    `mapstructure:"operation_timeout"`
	KeyPrefix        string `mapstructure:"key_prefix"`
}

type PostgresConfig struct {
	URL            string `mapstructure:"url"`
	ConnectTimeout int    `mapstructure:"connect_timeout"`
}

type GeoConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

type CooldownConfig struct {
	Enabled  bool  `mapstructure:"enabled"`
	WindowMs int64 `mapstructure:"window_ms"`
	MaxUses  int   `mapstructure:"max_uses"`
}

type RecorderConfig struct {
	QueueSize     int `mapstructure:"queue_size"`
	AppendTimeout int `mapstructure:"append_timeout"`
}

type CacheConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxSizeMB   int  `mapstructure:"max_size_mb"`
	TTLSeconds  int  `mapstructure:"ttl_seconds"`
	CounterSize int  `mapstructure:"counter_size"`
}

type InternalConfig struct {
	AppHostname       string  `mapstructure:"app_hostname"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	WebServer WebServerConfig `mapstructure:"webserver"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Geo       GeoConfig       `mapstructure:"geo"`
	Cooldown  CooldownConfig  `mapstructure:"cooldown"`
	Recorder  RecorderConfig  `mapstructure:"recorder"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Internal  InternalConfig  `mapstructure:"internal"`
	Log       LogConfig       `mapstructure:"log"`
}

func LoadConfig() (Config, error) {
	var config Config

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Enable environment variable overrides
	viper.SetEnvPrefix("STUB")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Error reading config file: %v", err)
			return config, err
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		log.Printf("Unable to decode into struct: %v", err)
		return config, err
	}

	return config, nil
}

func MustLoadConfig() Config {
	config, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return config
}

func setDefaults() {
	// WebServer defaults
	viper.SetDefault("webserver.port", "3001")
	viper.SetDefault("webserver.ip", "0.0.0.0")
	viper.SetDefault("webserver.read_timeout", 15)
	viper.SetDefault("webserver.write_timeout", 15)
	viper.SetDefault("webserver.shutdown_timeout", 30)
	viper.SetDefault("webserver.trust_proxy", false)
	viper.SetDefault("webserver.trust_proxy_header", "cf-connecting-ip")

	// Redis defaults
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 5)
	viper.SetDefault("redis.operation_timeout", 5)
	viper.SetDefault("redis.key_prefix", "")

	// Postgres defaults
	viper.SetDefault("postgres.url", "postgres://localhost:5432/stub")
	viper.SetDefault("postgres.connect_timeout", 10)

	// Geo defaults (empty path runs the resolver in placeholder-only mode)
	viper.SetDefault("geo.database_path", "")

	// Cooldown defaults
	viper.SetDefault("cooldown.enabled", true)
	viper.SetDefault("cooldown.window_ms", 60000)
	viper.SetDefault("cooldown.max_uses", 60)

	// Recorder defaults
	viper.SetDefault("recorder.queue_size", 1024)
	viper.SetDefault("recorder.append_timeout", 5)

	// Cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size_mb", 64)
	viper.SetDefault("cache.ttl_seconds", 60)
	viper.SetDefault("cache.counter_size", 100000)

	// Internal endpoint defaults
	viper.SetDefault("internal.app_hostname", "")
	viper.SetDefault("internal.requests_per_second", 10.0)
	viper.SetDefault("internal.burst", 20)

	// Log defaults
	viper.SetDefault("log.level", "info")
}
