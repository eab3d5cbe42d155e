// Package config loads fdnorm settings from defaults, an fdnorm.yaml file,
// FDNORM_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	DefaultKeyBound   = 5
	DefaultNormalForm = "3nf"
	DefaultNamePrefix = "3NF_table"
	DefaultOutput     = "text"

	envPrefix = "FDNORM_"
)

// Config holds every setting the CLI and pipeline read.
type Config struct {
	KeyBound     int    `koanf:"key_bound" validate:"gte=0,lte=64"`
	NormalForm   string `koanf:"normal_form" validate:"oneof=3nf 2nf 3nf-classify"`
	NamePrefix   string `koanf:"name_prefix" validate:"required"`
	Output       string `koanf:"output" validate:"oneof=text markdown json table"`
	OutputDir    string `koanf:"output_dir"`
	ArtifactsDir string `koanf:"artifacts_dir" validate:"excluded_with=ArtifactsDB"`
	ArtifactsDB  string `koanf:"artifacts_db"`
	DatabaseURL  string `koanf:"database_url" validate:"omitempty,startswith=postgres://|startswith=postgresql://|startswith=mysql://|startswith=sqlite://"`
	PersistURL   string `koanf:"persist_url" validate:"omitempty,startswith=postgres://|startswith=postgresql://|startswith=mysql://|startswith=sqlite://"`
	Verbose      bool   `koanf:"verbose"`
	Parallelism  int    `koanf:"parallelism" validate:"gte=0"`
}

// Load reads configuration. cfgFile may be empty, in which case fdnorm.yaml
// or fdnorm.yml in the working directory is used when present. Only flags
// the user actually set override lower layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"key_bound":   DefaultKeyBound,
		"normal_form": DefaultNormalForm,
		"name_prefix": DefaultNamePrefix,
		"output":      DefaultOutput,
		"verbose":     false,
		"parallelism": 0,
	}, "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// FDNORM_KEY_BOUND -> key_bound
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			switch key {
			case "bound":
				key = "key_bound"
			case "form":
				key = "normal_form"
			case "prefix":
				key = "name_prefix"
			case "db_url":
				key = "database_url"
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, used, nil
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"fdnorm.yaml", "fdnorm.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}
