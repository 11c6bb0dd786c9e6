package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGPSBabel(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGPSBabel() error {
	binary := strings.TrimSpace(c.GPSBabel.Binary)
	if binary == "" {
		return errors.New("gpsbabel.binary must not be empty")
	}
	if strings.ContainsAny(binary, "\n\r") {
		return fmt.Errorf("gpsbabel.binary contains control characters: %q", binary)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
