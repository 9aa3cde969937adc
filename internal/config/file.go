package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSettingsFile is read when MIXPANEL_CONFIG_FILE is unset
const DefaultSettingsFile = "config.yaml"

// Settings is the optional YAML settings file
type Settings struct {
	Mixpanel struct {
		Timeout string `yaml:"timeout"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"mixpanel"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

// LoadSettings reads path. A missing file yields empty settings.
func LoadSettings(path string) (*Settings, error) {
	settings := &Settings{}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	return settings, nil
}

// Timeout parses mixpanel.timeout; empty means no timeout
func (s *Settings) Timeout() (time.Duration, error) {
	if s.Mixpanel.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Mixpanel.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid mixpanel.timeout %q: %w", s.Mixpanel.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid mixpanel.timeout %q: must not be negative", s.Mixpanel.Timeout)
	}
	return d, nil
}
