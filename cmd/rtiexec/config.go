package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jathurchan/rtiexec/fom"
	"github.com/jathurchan/rtiexec/logger"
	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/server"
)

// fileConfig is the YAML configuration of `rtiexec serve`.
//
//	listen: 0.0.0.0:8680
//	log_level: info
//	galt_broadcast: true
//	journal: rtiexec.db
//	shutdown_timeout: 10s
//	federations:
//	  - name: traffic
//	    fom: traffic.yaml
//	    time_domain: integer64
//	rate_limit:
//	  requests: 1000
//	  burst: 2000
//	  window: 1s
type fileConfig struct {
	Listen          string             `yaml:"listen"`
	LogLevel        string             `yaml:"log_level"`
	GALTBroadcast   bool               `yaml:"galt_broadcast"`
	Journal         string             `yaml:"journal"`
	ShutdownTimeout time.Duration      `yaml:"shutdown_timeout"`
	Federations     []federationConfig `yaml:"federations"`
	RateLimit       *rateLimitConfig   `yaml:"rate_limit"`

	// dir resolves relative paths; it is the config file's directory.
	dir string
}

type federationConfig struct {
	Name       string `yaml:"name"`
	FOM        string `yaml:"fom"`
	TimeDomain string `yaml:"time_domain"`
}

type rateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Burst    int           `yaml:"burst"`
	Window   time.Duration `yaml:"window"`
}

// loadConfig reads a config file. Unknown fields are rejected.
func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := parseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

func parseConfig(data []byte) (*fileConfig, error) {
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *fileConfig) validate() error {
	if len(c.Federations) == 0 {
		return fmt.Errorf("federations: at least one federation is required")
	}
	for i, f := range c.Federations {
		if f.Name == "" {
			return fmt.Errorf("federations[%d].name is required", i)
		}
		if f.FOM == "" {
			return fmt.Errorf("federations[%d].fom is required", i)
		}
		if _, err := logicaltime.NewFactory(f.TimeDomain); err != nil {
			return fmt.Errorf("federations[%d].time_domain: %w", i, err)
		}
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must not be negative")
	}
	return nil
}

// path resolves p against the config file's directory.
func (c *fileConfig) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// builder turns the file into a server builder. Catalogs are loaded here.
func (c *fileConfig) builder(log logger.Logger) (*server.ExecutorServerBuilder, error) {
	b := server.NewExecutorServerBuilder().
		WithLogger(log).
		WithGALTBroadcast(c.GALTBroadcast).
		WithTimeouts(c.ShutdownTimeout, 0)
	if c.Listen != "" {
		b.WithListenAddress(c.Listen)
	}
	if c.RateLimit != nil {
		b.WithRateLimit(true, c.RateLimit.Requests, c.RateLimit.Burst, c.RateLimit.Window)
	}

	for _, f := range c.Federations {
		catalog, err := fom.LoadFile(c.path(f.FOM))
		if err != nil {
			return nil, fmt.Errorf("federation %q: %w", f.Name, err)
		}
		factory, err := logicaltime.NewFactory(f.TimeDomain)
		if err != nil {
			return nil, fmt.Errorf("federation %q: %w", f.Name, err)
		}
		b.WithFederation(f.Name, catalog, factory)
	}
	return b, nil
}
