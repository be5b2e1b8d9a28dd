// Package config implements the YAML-based on-disk configuration for a
// miner instance: pool sizing, the initial throttle, and the ignore/monitor
// glob lists that feed the Indexing Policy Filter.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration is the human-editable on-disk miner configuration.
type Configuration struct {
	// Pool contains parameters governing the Processing Pool.
	Pool struct {
		// Limit is the maximum number of concurrent extraction jobs.
		Limit int `yaml:"limit"`
	} `yaml:"pool"`
	// Throttle contains parameters governing scheduler pacing.
	Throttle struct {
		// Initial is the throttle value (0 to 1) applied at startup.
		Initial float64 `yaml:"initial"`
	} `yaml:"throttle"`
	// Ignore contains parameters related to the indexing ignore rules.
	Ignore struct {
		// Paths specifies glob patterns (matched against the path
		// relative to the filesystem root "/") excluded from should_check.
		Paths []string `yaml:"paths"`
		// DirectoryContents specifies base names that, if any direct
		// child of a directory has one exactly, veto the entire subtree via
		// check_directory_contents (e.g. VCS marker files).
		DirectoryContents []string `yaml:"directoryContents"`
	} `yaml:"ignore"`
	// Monitor contains parameters related to live filesystem watching.
	Monitor struct {
		// Paths specifies glob patterns identifying directories that should
		// not be subscribed to live monitoring (monitor_directory returns
		// false for a match), even though their contents are still crawled.
		Paths []string `yaml:"excludePaths"`
		// CoalesceWindow bounds how long the monitor waits to pair a remove
		// with a create into a single move notification.
		CoalesceWindow time.Duration `yaml:"coalesceWindow"`
	} `yaml:"monitor"`
	// Store contains parameters for the persistence backend.
	Store struct {
		// Driver selects the backing store: "memory" or "sqlite".
		Driver string `yaml:"driver"`
		// Path is the SQLite database path, ignored for the memory driver.
		Path string `yaml:"path"`
	} `yaml:"store"`
	// Log contains logging parameters.
	Log struct {
		// Level is one of "disabled", "error", "warn", "info", "debug", "trace".
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the configuration applied when no file is present.
func Default() *Configuration {
	c := &Configuration{}
	c.Pool.Limit = 4
	c.Throttle.Initial = 0
	c.Monitor.CoalesceWindow = 10 * time.Millisecond
	c.Store.Driver = "memory"
	c.Log.Level = "info"
	return c
}

// Load reads and strictly decodes the YAML configuration at path. A missing
// file is not an error: Default is returned unmodified so callers can treat
// "no config file" as "accept the defaults," matching the optional-config
// convention of the global configuration loader.
func Load(path string) (*Configuration, error) {
	result := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("unable to read configuration file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(result); err != nil {
		return nil, fmt.Errorf("unable to parse configuration file: %w", err)
	}

	if result.Pool.Limit < 1 {
		return nil, fmt.Errorf("pool.limit must be at least 1, got %d", result.Pool.Limit)
	}
	if result.Throttle.Initial < 0 || result.Throttle.Initial > 1 {
		return nil, fmt.Errorf("throttle.initial must be in [0, 1], got %f", result.Throttle.Initial)
	}

	return result, nil
}
