package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/markuslindenberg/cablemodem_exporter/docsis"
	"gopkg.in/yaml.v3"
)

// ModemConfig describes the single modem scraped by the exporter.
type ModemConfig struct {
	Host     string        `yaml:"host"`
	Model    string        `yaml:"model"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	SSL      bool          `yaml:"ssl"`
	Insecure bool          `yaml:"insecure_skip_verify"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Config struct {
	Modem ModemConfig `yaml:"modem"`
}

// LoadConfig reads a YAML file on top of cfg, so settings absent from the
// file keep the values given on the command line.
func LoadConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Modem.Host == "" {
		return errors.New("modem.host: required")
	}
	format, err := docsis.FormatForModel(c.Modem.Model)
	if err != nil {
		return fmt.Errorf("modem.model: %w (supported: %v)", err, docsis.SupportedModels)
	}
	if format == docsis.FormatHTML && (c.Modem.Username == "" || c.Modem.Password == "") {
		return fmt.Errorf("modem.username, modem.password: required for %s", c.Modem.Model)
	}
	if c.Modem.Timeout <= 0 {
		return errors.New("modem.timeout: must be positive")
	}
	return nil
}
