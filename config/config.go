package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"port"`
	MongoURI            string        `mapstructure:"mongo_uri"`
	MongoDatabase       string        `mapstructure:"mongo_database"`
	RedisAddr           string        `mapstructure:"redis_addr"`
	ReadLimit           int64         `mapstructure:"read_limit"`
	PingPeriod          time.Duration `mapstructure:"ping_period"`
	EmotionSamplePeriod time.Duration `mapstructure:"emotion_sample_period"`
	ProviderTimeout     time.Duration `mapstructure:"provider_timeout"`
	LogLevel            string        `mapstructure:"log_level"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	v.SetDefault("port", "8080")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "meethub")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("read_limit", 1<<20) // frame-data frames carry image payloads
	v.SetDefault("ping_period", "54s")
	v.SetDefault("emotion_sample_period", "5s")
	v.SetDefault("provider_timeout", "10s")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("file", fileName).Msg("config file not found, using defaults")
	}

	// Deployment overrides win over file values.
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		v.Set("mongo_uri", uri)
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		v.Set("redis_addr", addr)
	}
	if port := os.Getenv("PORT"); port != "" {
		v.Set("port", port)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
