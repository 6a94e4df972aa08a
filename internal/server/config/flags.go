package config

import (
	"flag"
	"os"
	"time"

	"github.com/promptsalchemy/tokenbank/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8001")
//	-d string   PostgreSQL DSN
//	-s string   magic-link HMAC secret key
//	-k string   service bearer token for /v1 routes
//	-t string   token strategy ("signed" or "opaque")
//	-m int      magic-link max age, minutes
//	-g int      free-tier grant, tokens
//	-b string   Kafka brokers, comma-separated
//	-p string   Kafka topic for transaction events
//	-r string   Redis address for the balance cache
//	-w string   Redis password
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - The max-age flag is accepted as an integer in minutes and converted to
//     a time.Duration value.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-k", "-t", "-m", "-g", "-b", "-p", "-r", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.ServiceToken, "k", config.ServiceToken, "service bearer token")
	fs.StringVar(&config.TokenStrategy, "t", config.TokenStrategy, "magic-link token strategy")

	magicLinkMaxAge := fs.Int("m", int(config.MagicLinkMaxAge.Minutes()), "magic_link_max_age (in minutes)")

	fs.Int64Var(&config.FreeTierGrant, "g", config.FreeTierGrant, "free-tier grant")
	fs.StringVar(&config.KafkaBrokers, "b", config.KafkaBrokers, "Kafka brokers (comma-separated)")
	fs.StringVar(&config.KafkaTopic, "p", config.KafkaTopic, "Kafka topic")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "Redis address")
	fs.StringVar(&config.RedisPassword, "w", config.RedisPassword, "Redis password")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.MagicLinkMaxAge = time.Duration(*magicLinkMaxAge) * time.Minute
}
