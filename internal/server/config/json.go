package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/hrkeeper/internal/flagx"
	"github.com/dmitrijs2005/hrkeeper/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. Fields absent from the file leave Config untouched.
type JsonConfig struct {
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	DatabaseDSN      string         `json:"database_dsn"`
	SessionLifetime  timex.Duration `json:"session_lifetime"`
	ResetTokenTTL    timex.Duration `json:"reset_token_ttl"`
	KeyStore         string         `json:"key_store"`
	KeyPassphrase    string         `json:"key_passphrase"`
	S3RootUser       string         `json:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	S3KeyObject      string         `json:"s3_key_object"`
	AMQPURL          string         `json:"amqp_url"`
	AMQPQueue        string         `json:"amqp_queue"`
	LogLevel         string         `json:"log_level"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags, or from
// $HRKEEPER_CONFIG. If none is set, no JSON file is loaded.
//
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.ConfigFilePath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	if c.SessionLifetime.Duration != 0 {
		config.SessionLifetime = c.SessionLifetime.Duration
	}
	if c.ResetTokenTTL.Duration != 0 {
		config.ResetTokenTTL = c.ResetTokenTTL.Duration
	}
	setString(&config.KeyStore, c.KeyStore)
	setString(&config.KeyPassphrase, c.KeyPassphrase)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3KeyObject, c.S3KeyObject)
	setString(&config.AMQPURL, c.AMQPURL)
	setString(&config.AMQPQueue, c.AMQPQueue)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
