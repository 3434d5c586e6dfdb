package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	// Storage backend: document, sqlite or memory
	DataBackend string

	// Document backend
	DocumentPath string
	BackupPath   string

	// SQLite backend
	SQLiteDBPath string

	// Optional YAML file with extra classification rules
	RulesFile string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		DataBackend:  getEnv("TALLY_BACKEND", "document"),
		DocumentPath: getEnv("TALLY_DATA_FILE", "./data/tally.json"),
		BackupPath:   getEnv("TALLY_BACKUP_FILE", ""),
		SQLiteDBPath: getEnv("TALLY_SQLITE_PATH", "./data/tally.db"),
		RulesFile:    getEnv("TALLY_RULES_FILE", ""),
		LogLevel:     getEnv("TALLY_LOG_LEVEL", "info"),
	}
	if cfg.BackupPath == "" {
		cfg.BackupPath = cfg.DocumentPath + ".bak"
	}
	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	validBackends := []string{"document", "sqlite", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "document" {
		if c.DocumentPath == "" {
			errors = append(errors, "data file path cannot be empty when using document backend")
		} else {
			if c.BackupPath == c.DocumentPath {
				errors = append(errors, "backup file path must differ from the data file path")
			}
			if dir := filepath.Dir(c.DocumentPath); dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create data directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "sqlite" && c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}

	if c.RulesFile != "" {
		if _, err := os.Stat(c.RulesFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("rules file does not exist: %s", c.RulesFile))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
