package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// DotEnvFile is the file Load reads before parsing the process environment.
const DotEnvFile = ".env"

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings. Values found in a
// .env file in the working directory are applied first; variables already
// present in the process environment win over the file.
//
// Example:
//
//	type Config struct {
//	    Port     int    `env:"HTTP_PORT" envDefault:"8080"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any) error {
	return LoadWithDotEnv(cfg, DotEnvFile)
}

// LoadWithDotEnv is like Load but reads the given dotenv files instead of
// the default one. Missing files are skipped.
func LoadWithDotEnv(cfg any, files ...string) error {
	for _, f := range files {
		if err := loadDotEnv(f); err != nil {
			return err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
