package config

import (
	"fmt"
	"slices"

	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/logger"
)

var environments = []string{"development", "staging", "production"}

// ServiceConfig is the part of Config that names the process and sets up
// logging. Commands that never start a backend only need this much.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults assumes a development install, which turns on debug logging
// unless a level is set.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultServiceName
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
}

func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return errors.Validation("config.name is required")
	}
	if !slices.Contains(environments, c.Environment) {
		return errors.Validation(fmt.Sprintf("config.environment must be one of %v (got: %s)", environments, c.Environment))
	}
	if err := c.Logging.Validate(); err != nil {
		return errors.Validation("config.logging: " + err.Error())
	}
	return nil
}
