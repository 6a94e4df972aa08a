package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/promptsalchemy/tokenbank/internal/flagx"
	"github.com/promptsalchemy/tokenbank/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr    string         `json:"endpoint_addr"`
	DatabaseDSN     string         `json:"database_dsn"`
	SecretKey       string         `json:"secret_key"`
	ServiceToken    string         `json:"service_token"`
	TokenStrategy   string         `json:"token_strategy"`
	MagicLinkMaxAge timex.Duration `json:"magic_link_max_age"`
	FreeTierGrant   int64          `json:"free_tier_grant"`
	KafkaBrokers    string         `json:"kafka_brokers"`
	KafkaTopic      string         `json:"kafka_topic"`
	RedisAddr       string         `json:"redis_addr"`
	RedisPassword   string         `json:"redis_password"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. If the file cannot be
// read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.ServiceToken = c.ServiceToken
	config.TokenStrategy = c.TokenStrategy
	config.MagicLinkMaxAge = time.Duration(c.MagicLinkMaxAge.Duration)
	config.FreeTierGrant = c.FreeTierGrant
	config.KafkaBrokers = c.KafkaBrokers
	config.KafkaTopic = c.KafkaTopic
	config.RedisAddr = c.RedisAddr
	config.RedisPassword = c.RedisPassword
}
