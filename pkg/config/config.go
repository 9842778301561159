// Package config loads the client's bootstrap configuration.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the client bootstrap configuration. The mutable user settings
// (locale) live in the local database, not here.
type Config struct {
	// ServerURL is the backend origin, e.g. http://localhost:3000.
	ServerURL string `mapstructure:"WETTY_SERVER_URL"`
	// UserID is the placeholder identity sent as X-User-Id until real auth.
	UserID int `mapstructure:"WETTY_USER_ID"`
	// DataDir overrides where the local database and logs live. Empty means
	// the user config directory.
	DataDir string `mapstructure:"WETTY_DATA_DIR"`
}

// Load reads configuration from ./.env and the process environment.
func Load() (*Config, error) {
	viper.AddConfigPath("./")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// A missing .env is fine; the environment may carry everything.
	_ = viper.ReadInConfig()

	viper.SetDefault("WETTY_SERVER_URL", "")
	viper.SetDefault("WETTY_USER_ID", 0)
	viper.SetDefault("WETTY_DATA_DIR", "")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("WETTY_SERVER_URL is required")
	}
	if cfg.UserID == 0 {
		return nil, fmt.Errorf("WETTY_USER_ID is required")
	}
	return &cfg, nil
}
