package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/hrkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     gRPC bind address (e.g., ":50051")
//	-w string     HTTP bind address for health and metrics
//	-d string     PostgreSQL DSN
//	-t duration   session lifetime (e.g., "1440h")
//	-r duration   reset token TTL (e.g., "1h")
//	-k string     key store, "memory" or "s3"
//	-u string     S3 root user
//	-p string     S3 root password
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-q string     AMQP URL
//	-l string     log level
//
// The key passphrase has no flag; set it through the environment or JSON.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-d", "-t", "-r", "-k", "-u", "-p", "-b", "-g", "-e", "-q", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run gRPC server")
	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "address and port for health and metrics")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.DurationVar(&config.SessionLifetime, "t", config.SessionLifetime, "session lifetime")
	fs.DurationVar(&config.ResetTokenTTL, "r", config.ResetTokenTTL, "password reset token TTL")
	fs.StringVar(&config.KeyStore, "k", config.KeyStore, "signing key store (memory|s3)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.AMQPURL, "q", config.AMQPURL, "AMQP URL for notifications")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
