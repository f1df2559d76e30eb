package swarmdb

import (
	"log/slog"
	"os"
	"time"

	"github.com/drpcorg/swarmdb/cache"
	"github.com/drpcorg/swarmdb/host"
	"github.com/drpcorg/swarmdb/utils"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Options struct {
	// CacheSize bounds the number of cached objects
	CacheSize int `yaml:"cache_size"`
	// Debounce delays re-resolution after notifications; zero means
	// "next turn"
	Debounce time.Duration `yaml:"debounce"`
	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	Scheduler utils.Scheduler `yaml:"-"`
	Logger    utils.Logger    `yaml:"-"`
}

func (o *Options) SetDefaults() {
	if o.CacheSize <= 0 {
		o.CacheSize = cache.DefaultSize
	}
	if o.Scheduler == nil {
		o.Scheduler = utils.WallScheduler
	}
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(o.Level())
	}
}

// Level parses LogLevel, defaults to warn
func (o *Options) Level() slog.Level {
	level := slog.LevelWarn
	if o.LogLevel != "" {
		if err := level.UnmarshalText([]byte(o.LogLevel)); err != nil {
			return slog.LevelWarn
		}
	}
	return level
}

// Config is the file form of the settings
type Config struct {
	Options Options      `yaml:"swarmdb"`
	Replica host.Options `yaml:"replica"`
}

func LoadConfig(path string) (cfg Config, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}
