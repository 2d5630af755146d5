package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

// LoadFile reads a YAML config file over the defaults and then applies the
// environment, so BUZZ_* variables win over the file. An empty path is the
// same as Load.
//
//	source:
//	  url: https://epicschools.agilixbuzz.com/student/gradebook/all
//	browser:
//	  cdpURL: ws://127.0.0.1:9222/devtools/browser/abc
//	poll:
//	  maxAttempts: 90
//	  interval: 2s
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadEnvFile exports the variables of a dotenv file into the process
// environment. Variables that are already set keep their value. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}
