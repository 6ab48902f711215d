// Package config loads journey settings from .journey.yaml and JOURNEY_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	KeyPath              = "path"
	KeyAppID             = "app_id"
	KeyToken             = "token"
	KeyTokenSecret       = "token_secret"
	KeyFallbackAnonymous = "fallback_anonymous"
	KeyLogFile           = "log_file"
	KeyDebug             = "debug"
	KeyEphemeral         = "ephemeral"
)

// Config is the resolved configuration.
type Config struct {
	// Path is the data root holding the store, prefs and logs.
	Path                string
	AppID               string
	Token               string
	TokenSecret         string
	FallbackToAnonymous bool
	LogFile             string
	Debug               bool
	// Ephemeral keeps local prefs in memory only.
	Ephemeral bool
}

func (c *Config) StorePath() string { return filepath.Join(c.Path, "store") }

func (c *Config) PrefsPath() string { return filepath.Join(c.Path, "prefs") }

// Defaults registers default values on v.
func Defaults(v *viper.Viper) {
	v.SetDefault(KeyPath, "~/.journey")
	v.SetDefault(KeyAppID, "default-app-id")
	v.SetDefault(KeyFallbackAnonymous, true)
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyEphemeral, false)
}

// Load reads the config file (optional) and environment.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads configuration into v and resolves it.
func LoadFrom(v *viper.Viper) (*Config, error) {
	Defaults(v)
	v.SetConfigName(".journey") // .yaml is implicit
	v.SetEnvPrefix("JOURNEY")
	v.AutomaticEnv()

	if override := os.Getenv("JOURNEY_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}
	return resolve(v)
}

func resolve(v *viper.Viper) (*Config, error) {
	path, err := homedir.Expand(v.GetString(KeyPath))
	if err != nil {
		return nil, fmt.Errorf("config: expand path: %w", err)
	}
	if path == "" {
		return nil, errors.New("config: path is empty")
	}
	c := &Config{
		Path:                path,
		AppID:               v.GetString(KeyAppID),
		Token:               v.GetString(KeyToken),
		TokenSecret:         v.GetString(KeyTokenSecret),
		FallbackToAnonymous: v.GetBool(KeyFallbackAnonymous),
		LogFile:             v.GetString(KeyLogFile),
		Debug:               v.GetBool(KeyDebug),
		Ephemeral:           v.GetBool(KeyEphemeral),
	}
	if c.AppID == "" {
		return nil, errors.New("config: app_id is empty")
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.Path, "journey.log")
	} else if c.LogFile, err = homedir.Expand(c.LogFile); err != nil {
		return nil, fmt.Errorf("config: expand log_file: %w", err)
	}
	return c, nil
}
