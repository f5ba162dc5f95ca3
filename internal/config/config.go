// Package config loads the two configuration layers: the application config
// (flags, env, optional .gazette.yaml, read through viper) and the
// publication and destination YAML documents read from the blob store.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// App is the process-level configuration: where the publication lives, how
// the run behaves, and which model backs the judge.
type App struct {
	Dev          bool   `mapstructure:"dev"`
	LogLevel     string `mapstructure:"log_level"`
	StoreDir     string `mapstructure:"store_dir"`
	DisableJudge bool   `mapstructure:"disable_judge"`
	GeminiModel  string `mapstructure:"gemini_model"`
}

var globalApp *App

// LoadApp reads the application config: defaults, then .gazette.yaml (or the
// given file), then environment variables. A .env file is loaded first so
// secrets resolve the same way locally and in deployment.
func LoadApp(configFile string) (*App, error) {
	if globalApp != nil {
		return globalApp, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".gazette")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("dev", false)
	viper.SetDefault("log_level", "warning")
	viper.SetDefault("store_dir", "gazette_files")
	viper.SetDefault("disable_judge", false)
	viper.SetDefault("gemini_model", "")

	viper.SetEnvPrefix("GAZETTE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	app := &App{}
	if err := viper.Unmarshal(app); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Dev runs always log verbosely.
	if app.Dev {
		app.LogLevel = "debug"
	}

	globalApp = app
	return app, nil
}

// Get returns the loaded application config. It panics if LoadApp has not
// run; config access before loading is a programming error.
func Get() *App {
	if globalApp == nil {
		panic("config.Get called before config.LoadApp")
	}
	return globalApp
}
