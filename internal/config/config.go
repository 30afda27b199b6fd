// Package config loads server configuration from environment
// variables and an optional YAML file via viper, the pack's only
// configuration library.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the HTTP dispatcher and CLI need to start.
type Config struct {
	ListenAddr     string
	CORSOrigin     string
	DefaultPBFPath string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxConcurrent  int
}

// Load reads configuration from (in increasing priority) built-in
// defaults, an optional config file named by cfgFile (or ./config.yaml
// if cfgFile is empty and the file exists), and OSMEDITOR_-prefixed
// environment variables.
func Load(cfgFile string) (Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8091")
	v.SetDefault("cors_origin", "")
	v.SetDefault("default_pbf_path", "")
	v.SetDefault("read_timeout", 5*time.Second)
	v.SetDefault("write_timeout", 30*time.Second)
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("max_concurrent", 8)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("OSMEDITOR")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return Config{
		ListenAddr:     v.GetString("listen_addr"),
		CORSOrigin:     v.GetString("cors_origin"),
		DefaultPBFPath: v.GetString("default_pbf_path"),
		ReadTimeout:    v.GetDuration("read_timeout"),
		WriteTimeout:   v.GetDuration("write_timeout"),
		RequestTimeout: v.GetDuration("request_timeout"),
		MaxConcurrent:  v.GetInt("max_concurrent"),
	}, nil
}
