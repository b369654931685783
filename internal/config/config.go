package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ecpbench/internal/ecp"
	pkgerrors "ecpbench/pkg/errors"
	"ecpbench/pkg/logger"

	"gopkg.in/yaml.v3"
)

// FileName is the config file NewConfig looks for inside a directory.
const FileName = "config.yaml"

// Default query settings applied when a caller passes none.
const (
	DEFAULT_K = 10
	DEFAULT_B = 1
)

type Config struct {
	Server ServerConfig  `yaml:"server"`
	Log    logger.Config `yaml:"log"`
	Index  IndexConfig   `yaml:"index"`
	Query  QueryConfig   `yaml:"query"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	CacheSize      int           `yaml:"cache_size"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// IndexConfig holds the build parameters applied when a request carries none.
type IndexConfig struct {
	Metric ecp.Metric      `yaml:"metric"`
	Params ecp.BuildParams `yaml:"params"`
}

// QueryConfig holds the search defaults.
type QueryConfig struct {
	K       int `yaml:"k"`
	B       int `yaml:"b"`
	Workers int `yaml:"workers"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			CacheSize:      1024,
			RequestTimeout: 30 * time.Second,
		},
		Log: logger.Config{Level: logger.InfoLevel},
		Index: IndexConfig{
			Metric: ecp.Euclidean,
			Params: ecp.DefaultBuildParams(),
		},
		Query: QueryConfig{K: DEFAULT_K, B: DEFAULT_B},
	}
}

// FromFile loads path over the defaults, so omitted keys keep their default value.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	conf := Default()
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// NewConfig loads dir/config.yaml, falling back to defaults when it does not exist.
func NewConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return FromFile(path)
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is empty", pkgerrors.ErrConfiguration)
	}
	if c.Server.RequestTimeout < 0 {
		return fmt.Errorf("%w: server.request_timeout is negative", pkgerrors.ErrConfiguration)
	}
	if c.Query.K <= 0 {
		return fmt.Errorf("%w: query.k must be positive", pkgerrors.ErrConfiguration)
	}
	return c.Index.Params.Validate()
}

// SearchParams returns the query defaults with any non-zero override applied.
// Invalid overrides are passed through for the index to reject or clamp.
func (c *Config) SearchParams(k, b int) ecp.QueryParams {
	q := ecp.QueryParams{K: c.Query.K, B: c.Query.B, Workers: c.Query.Workers}
	if k != 0 {
		q.K = k
	}
	if b != 0 {
		q.B = b
	}
	return q
}
