// Package config holds the settings of the fpgaseq tools and builds their
// logger.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Config is read from a JSON file over the defaults.
type Config struct {
	LogLevel string `json:"log_level"`
	Verbose  bool   `json:"verbose"`

	// DeconvWorkers bounds the concurrent deconvolution requests. Zero
	// runs every request in its own goroutine.
	DeconvWorkers int `json:"deconv_workers"`

	NoDB   bool   `json:"no_db"`
	Host   string `json:"host"`
	User   string `json:"user"`
	Passwd string `json:"pass"`
	DBName string `json:"dbname"`

	AutoTriggerLengthNs int      `json:"autotrigger_length_ns"`
	DualBlockDelayNs    *float64 `json:"dual_block_delay_ns"`
	LoopDelayUs         *float64 `json:"loop_delay_us"`
}

// DefaultAutoTriggerLengthNs is the length of an automatic trigger pulse
// when none is given.
const DefaultAutoTriggerLengthNs = 16

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel:            "info",
		DeconvWorkers:       4,
		NoDB:                true,
		Host:                "localhost",
		User:                "fpgaseq",
		Passwd:              "readonly",
		DBName:              "registry",
		AutoTriggerLengthNs: DefaultAutoTriggerLengthNs,
	}
}

// LoadConfiguration reads filename over the defaults.
func LoadConfiguration(filename string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}

	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, fmt.Errorf("config %s: %w", filename, err)
	}

	return config, nil
}

// Level returns the configured log level.
func (c Config) Level() (slog.Level, error) {
	if c.Verbose {
		return LevelTrace, nil
	}

	return ParseLevel(c.LogLevel)
}

// Print logs the configuration.
func (c Config) Print(logger *slog.Logger) {
	logger.Info(fmt.Sprintf("Log level: %s", c.LogLevel), "module", "config")
	logger.Info(fmt.Sprintf("Deconvolution workers: %d", c.DeconvWorkers), "module", "config")
	logger.Info(fmt.Sprintf("No DB: %t", c.NoDB), "module", "config")

	if !c.NoDB {
		logger.Info(fmt.Sprintf("Host: %s", c.Host), "module", "config")
		logger.Info(fmt.Sprintf("DB name: %s", c.DBName), "module", "config")
	}

	logger.Info(fmt.Sprintf("Autotrigger length: %d ns", c.AutoTriggerLengthNs), "module", "config")
}
