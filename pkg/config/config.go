package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/engine/search"
	"github.com/lintang-b-s/transitplanner/pkg/routes"
	"github.com/lintang-b-s/transitplanner/pkg/util"
	"gopkg.in/yaml.v3"
)

type NetworkConfig struct {
	File string `yaml:"file" validate:"required"`
}

type CacheConfig struct {
	Backend string `yaml:"backend" validate:"oneof=badger pebble memory"`
	Dir     string `yaml:"dir" validate:"required_unless=Backend memory"`
}

type InterchangeConfig struct {
	MaxDepth int `yaml:"maxDepth" validate:"min=1,max=16"`
	Workers  int `yaml:"workers" validate:"min=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listenAddr" validate:"required,hostname_port"`
}

type Config struct {
	Network     NetworkConfig     `yaml:"network"`
	Cache       CacheConfig       `yaml:"cache"`
	Interchange InterchangeConfig `yaml:"interchange"`
	Search      search.Options    `yaml:"search"`
	Log         LogConfig         `yaml:"log"`
	Server      ServerConfig      `yaml:"server"`
}

func Default() Config {
	return Config{
		Network:     NetworkConfig{File: "network.yaml"},
		Cache:       CacheConfig{Backend: "badger", Dir: "./data/interchange"},
		Interchange: InterchangeConfig{MaxDepth: routes.DefaultMaxDepth},
		Search:      search.DefaultOptions(),
		Log:         LogConfig{Level: "info", Format: "text"},
		Server:      ServerConfig{ListenAddr: ":6060"},
	}
}

// Load reads path over the defaults. an empty path gives the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	cfg.Search = cfg.Search.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := util.ValidateStruct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Logger handler per the log section, writing to stderr.
func (c Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
