// Package cli provides initialization shared by the calorie commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"calorie/internal/config"
	applog "calorie/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads and validates the configuration.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the application logger from cfg and installs it as the
// slog default. Output goes to w, or stdout when w is nil.
func SetupLogger(cfg *config.Config, w io.Writer) (*applog.Logger, error) {
	level, err := applog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	if w == nil {
		w = os.Stdout
	}
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    applog.Format(cfg.LogFormat),
		Component: applog.ComponentApp,
		Output:    w,
	})
	applog.SetDefault(logger)
	return logger, nil
}
