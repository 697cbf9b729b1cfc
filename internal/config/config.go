package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN         string `env:"DATABASE_DSN,required=true"`
	DBMaxOpenConns      int    `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBMaxIdleConns      int    `env:"DB_MAX_IDLE_CONNS,default=5"`
	RedisURL            string `env:"REDIS_URL,required=true"`
	VoiceGatewayURL     string `env:"VOICE_GATEWAY_URL,required=true"`
	MessengerURL        string `env:"MESSENGER_URL,required=true"`
	RateLimitPerSec     int    `env:"RATE_LIMIT_PER_SEC,default=10"`
	PollIntervalSeconds int    `env:"POLL_INTERVAL_SECONDS,default=60"`
	APIPort             int    `env:"API_PORT,default=8080"`
	LogLevel            string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
