package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file in
// the working directory is loaded first if present; real environment
// variables win over the file.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	setString("ADDRESS", &config.EndpointAddr)
	setString("DATABASE_DSN", &config.DatabaseDSN)
	setString("SECRET_KEY", &config.SecretKey)
	setString("SERVICE_TOKEN", &config.ServiceToken)
	setString("TOKEN_STRATEGY", &config.TokenStrategy)
	setString("KAFKA_BROKERS", &config.KafkaBrokers)
	setString("KAFKA_TOPIC", &config.KafkaTopic)
	setString("REDIS_ADDR", &config.RedisAddr)
	setString("REDIS_PASSWORD", &config.RedisPassword)

	if v, ok := os.LookupEnv("MAGIC_LINK_MAX_AGE"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.MagicLinkMaxAge = d
		}
	}
	if v, ok := os.LookupEnv("FREE_TIER_GRANT"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.FreeTierGrant = n
		}
	}
}
