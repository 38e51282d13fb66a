package config

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
)

// InitEnv loads the .env file at dotenvPath into the process environment and
// then applies environment overrides to cfg. It runs at most once per config:
// cfg.EnvLoaded guards repeat calls. Variables already set are never
// overwritten, and a missing .env file is not an error.
func InitEnv(cfg *Config, dotenvPath string) error {
	if cfg.EnvLoaded {
		return nil
	}
	if dotenvPath != "" {
		if err := loadDotEnv(dotenvPath); err != nil {
			return err
		}
	}
	cfg.ApplyEnv(os.Getenv)
	cfg.EnvLoaded = true
	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	for k, v := range vars {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("setting %s: %w", k, err)
		}
	}
	return nil
}

// ParseDotEnv reads .env syntax: comments, export prefixes, quoting and
// escapes inside double quotes.
func ParseDotEnv(r io.Reader) (map[string]string, error) {
	return godotenv.Parse(r)
}
