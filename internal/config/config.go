// Package config loads the optional .gitam.yaml file: a handful of
// settings a repository can pin so the driver doesn't need them
// repeated on every invocation. gopkg.in/yaml.v3 is already an
// indirect dependency of this module; this is its first direct use.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the config file, looked for at the root of
// the working tree.
const FileName = ".gitam.yaml"

// Config holds the settings a repository can pin in .gitam.yaml.
type Config struct {
	Advice struct {
		AMWorkDir bool `yaml:"amworkdir"`
	} `yaml:"advice"`
	DefaultPatchFormat string `yaml:"defaultPatchFormat"`
	ReflogAction       string `yaml:"reflogAction"`
}

// Default returns the configuration used when no .gitam.yaml is
// present: advice enabled, format auto-detected, reflog action "am".
func Default() Config {
	var c Config
	c.Advice.AMWorkDir = true
	c.ReflogAction = "am"
	return c
}

// Load reads and parses the config file at path. A missing file is
// not an error: Load returns Default() instead.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.ReflogAction == "" {
		cfg.ReflogAction = "am"
	}
	return cfg, nil
}
