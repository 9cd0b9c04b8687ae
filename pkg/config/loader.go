// Package config fills tagged structs from the environment and optional
// dotenv files.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Load populates cfg from the process environment using its `env`,
// `envDefault` and `envSeparator` tags.
func Load(cfg any) error {
	return parse(cfg, env.Options{})
}

// LoadFrom populates cfg from vars instead of the process environment.
func LoadFrom(cfg any, vars map[string]string) error {
	return parse(cfg, env.Options{Environment: vars})
}

func parse(cfg any, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// LoadEnvFiles copies KEY=VALUE pairs from each existing dotenv file into
// the process environment without overriding variables that are already
// set. Earlier files take precedence over later ones.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		err := godotenv.Load(p)
		switch {
		case err == nil, errors.Is(err, fs.ErrNotExist):
		default:
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}
