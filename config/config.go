// Package config loads the engine configuration from a TOML file.
package config

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"marmot/logger"
)

// Config collects the knobs of the storage core. Page size is not configurable;
// it is compiled into the disk layer.
type Config struct {
	// DBFile is the database file path.
	DBFile string `toml:"db_file"`
	// PoolSize is the number of buffer pool frames.
	PoolSize int `toml:"pool_size"`
	// ReplacerK is the K of the LRU-K replacer.
	ReplacerK int `toml:"replacer_k"`
	// LeafMaxSize and InternalMaxSize bound b+ tree pages. Zero derives them
	// from the page size.
	LeafMaxSize     int `toml:"leaf_max_size"`
	InternalMaxSize int `toml:"internal_max_size"`

	Log logger.Config `toml:"log"`
}

func Default() Config {
	return Config{
		DBFile:    "marmot.db",
		PoolSize:  64,
		ReplacerK: 2,
		Log: logger.Config{
			Level:      "info",
			Format:     "console",
			OutputFile: "stderr",
		},
	}
}

// Load reads the TOML file over the defaults. A missing file is not an error,
// the defaults win.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return cfg, errors.Wrapf(err, "could not read config file %s", path)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "could not parse config file %s", path)
	}

	if cfg.PoolSize <= 0 || cfg.ReplacerK <= 0 {
		return cfg, errors.Errorf("pool_size and replacer_k must be positive, got %d and %d", cfg.PoolSize, cfg.ReplacerK)
	}
	return cfg, nil
}
