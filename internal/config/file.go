package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors the TOML layout of the optional configuration file.
type fileConfig struct {
	Plan struct {
		Provider string `toml:"provider"`
		Model    string `toml:"model"`
	} `toml:"plan"`
	Speech struct {
		Provider string `toml:"provider"`
		Voice    string `toml:"voice"`
		Language string `toml:"language"`
	} `toml:"speech"`
	Images struct {
		Model string `toml:"model"`
	} `toml:"images"`
	Server struct {
		Port           string `toml:"port"`
		RequestTimeout string `toml:"request_timeout"`
	} `toml:"server"`
	Cache struct {
		TTL        string `toml:"ttl"`
		MaxEntries int    `toml:"max_entries"`
	} `toml:"cache"`
	Database struct {
		Path string `toml:"path"`
	} `toml:"database"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

// LoadFile reads a TOML file, then applies environment variables on top of it.
// A missing file is not an error; credentials are only read from the environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open config: %w", err)
		default:
			var fc fileConfig
			if err := toml.Unmarshal(data, &fc); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
			if err := fc.apply(&cfg); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (fc fileConfig) apply(cfg *Config) error {
	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	overlay(&cfg.PlanProvider, fc.Plan.Provider)
	overlay(&cfg.PlanModel, fc.Plan.Model)
	overlay(&cfg.SpeechProvider, fc.Speech.Provider)
	overlay(&cfg.SpeechVoice, fc.Speech.Voice)
	overlay(&cfg.SpeechLanguage, fc.Speech.Language)
	overlay(&cfg.ImageModel, fc.Images.Model)
	overlay(&cfg.Port, fc.Server.Port)
	overlay(&cfg.DatabasePath, fc.Database.Path)
	overlay(&cfg.LogLevel, fc.Log.Level)
	overlay(&cfg.LogFormat, fc.Log.Format)

	if fc.Server.RequestTimeout != "" {
		d, err := time.ParseDuration(fc.Server.RequestTimeout)
		if err != nil {
			return fmt.Errorf("parse config: server.request_timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if fc.Cache.TTL != "" {
		d, err := time.ParseDuration(fc.Cache.TTL)
		if err != nil {
			return fmt.Errorf("parse config: cache.ttl: %w", err)
		}
		cfg.CacheTTL = d
	}
	if fc.Cache.MaxEntries > 0 {
		cfg.CacheMaxEntries = fc.Cache.MaxEntries
	}
	return nil
}
