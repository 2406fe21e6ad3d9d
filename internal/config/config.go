// SPDX-License-Identifier: MPL-2.0

// Package config loads distpack tool configuration.
//
// Configuration is layered: built-in defaults, then an optional
// distpack.yaml config file, then environment variables. The GitHub
// credential is only ever read from the GITHUB_TOKEN environment
// variable; its absence simply disables remote publishing.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "distpack"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "distpack"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "yaml"

	// TokenEnvVar is the environment variable holding the publish credential.
	TokenEnvVar = "GITHUB_TOKEN"
)

// Config holds the resolved tool configuration.
type Config struct {
	// SourceDir is the root directory whose immediate subdirectories
	// become release components.
	SourceDir string `mapstructure:"source_dir"`
	// DistDir is the root output directory; artifacts land under
	// DistDir/<version>/.
	DistDir string `mapstructure:"dist_dir"`
	// Repo is an optional "owner/name" override for the publish target.
	// Empty means the coordinates are resolved from the git remote.
	Repo string `mapstructure:"repo"`
	// Token is the publish credential. Empty disables publishing.
	Token string `mapstructure:"token"`
}

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// WorkDir is the directory searched for a config file when no
	// explicit path is given. Empty means the current directory.
	WorkDir string
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		SourceDir: "app",
		DistDir:   "dist",
	}
}

// Load resolves configuration from defaults, an optional config file,
// and the environment. A missing config file is not an error; a present
// but malformed one is.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("source_dir", defaults.SourceDir)
	v.SetDefault("dist_dir", defaults.DistDir)
	v.SetDefault("repo", "")
	v.SetDefault("token", "")

	// The credential is taken from the environment so tokens stay out
	// of committed config files.
	if err := v.BindEnv("token", TokenEnvVar); err != nil {
		return nil, fmt.Errorf("binding %s: %w", TokenEnvVar, err)
	}

	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", opts.ConfigFilePath, err)
		}
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		workDir := opts.WorkDir
		if workDir == "" {
			workDir = "."
		}
		v.AddConfigPath(workDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}
