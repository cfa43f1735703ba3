package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

const envPrefix = "PATTERND_"

// Load loads configuration from an optional YAML file, then overrides with
// environment variables.
//
// Environment variables use the PATTERND_ prefix with underscores as section
// separators on the first underscore after the prefix:
//
//	PATTERND_RETRIEVAL_MAX_HOPS  -> retrieval.max_hops
//	PATTERND_CACHE_SEARCH_TTL    -> cache.search_ttl
//
// A missing config file is not an error; defaults apply.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			content, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
			if len(content) > maxConfigFileSize {
				return nil, fmt.Errorf("config file too large: %d bytes (max %d)", len(content), maxConfigFileSize)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// PATTERND_CACHE_SEARCH_TTL -> cache.search_ttl
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
