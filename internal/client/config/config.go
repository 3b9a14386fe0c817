package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for hrctl.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - RequestTimeout: deadline applied to each RPC.
//   - SessionFile: SQLite file that keeps the session token between runs.
type Config struct {
	ServerEndpointAddr string
	RequestTimeout     time.Duration
	SessionFile        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Second
	c.SessionFile = defaultSessionFile()
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "hrkeeper", "session.db")
}

// Load builds a Config from defaults and, when path is not empty, the JSON
// file at path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := loadJSON(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}
