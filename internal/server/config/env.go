package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix starts every environment variable read by parseEnv.
const EnvPrefix = "HRKEEPER_"

// dotEnvFile is loaded, when present, before the environment is read.
// Variables already set in the process win over the file.
var dotEnvFile = ".env"

// parseEnv overlays HRKEEPER_* environment variables onto config.
// A malformed duration panics, like malformed JSON does.
func parseEnv(config *Config) {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}

	str("GRPC_ADDR", &config.EndpointAddrGRPC)
	str("HTTP_ADDR", &config.EndpointAddrHTTP)
	str("DATABASE_DSN", &config.DatabaseDSN)
	dur("SESSION_LIFETIME", &config.SessionLifetime)
	dur("RESET_TOKEN_TTL", &config.ResetTokenTTL)
	str("KEY_STORE", &config.KeyStore)
	str("KEY_PASSPHRASE", &config.KeyPassphrase)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("S3_KEY_OBJECT", &config.S3KeyObject)
	str("AMQP_URL", &config.AMQPURL)
	str("AMQP_QUEUE", &config.AMQPQueue)
	str("LOG_LEVEL", &config.LogLevel)
}
