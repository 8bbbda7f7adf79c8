package config

import (
	"fmt"

	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/observability"
	"github.com/kbukum/execkit/process"
	"github.com/kbukum/execkit/validation"
)

// DefaultName is the service name used in logs and telemetry.
const DefaultName = "execkit"

var validEnvironments = []string{"development", "staging", "production"}

// Config is the complete execkit configuration.
type Config struct {
	Name          string               `yaml:"name" mapstructure:"name"`
	Environment   string               `yaml:"environment" mapstructure:"environment"`
	Logging       logger.Config        `yaml:"logging" mapstructure:"logging"`
	Process       process.RunnerConfig `yaml:"process" mapstructure:"process"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills unset fields in every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Logging.ApplyDefaults()
	c.Process.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks the configuration. Call ApplyDefaults first.
func (c *Config) Validate() error {
	v := validation.New().
		Custom(c.Name != "", "name", "is required").
		Custom(c.Environment != "", "environment", "is required").
		OneOf("environment", c.Environment, validEnvironments)
	if err := v.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
