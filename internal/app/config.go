package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProjectPath string // hcl project file, supplies defaults

	ModelPath      string   // .xml or .hcl variability model
	InfluencePath  string   // influence table
	ConfigPaths    []string // configurations to evaluate
	ComparePaths   []string // exactly two configurations to compare
	RegionPatterns []string // region files, directories or globs
	Features       []string // feature order of the region weight arrays

	Partial      bool
	OnlyPositive bool
	SolveTimeout time.Duration
	Watch        bool
	PublishURL   string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// NewConfig validates cfg. It does not consult the project file, so a model
// path may still be empty when a project path is given.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ModelPath == "" && cfg.ProjectPath == "" {
		return nil, errors.New("either a model path or a project file is required")
	}
	if len(cfg.ComparePaths) != 0 && len(cfg.ComparePaths) != 2 {
		return nil, fmt.Errorf("compare needs exactly two configurations, got %d", len(cfg.ComparePaths))
	}
	if len(cfg.ComparePaths) == 2 && cfg.Watch {
		return nil, errors.New("compare and watch cannot be combined")
	}
	if cfg.SolveTimeout < 0 {
		return nil, fmt.Errorf("solve timeout must not be negative, got %s", cfg.SolveTimeout)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck port out of range: %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}

// validate checks the configuration once the project defaults are merged in.
func (c *Config) validate() error {
	if c.ModelPath == "" {
		return errors.New("no variability model given on the command line or in the project file")
	}
	if len(c.ComparePaths) == 2 && c.InfluencePath == "" {
		return errors.New("compare needs an influence model")
	}
	if c.Watch && len(c.ConfigPaths) == 0 {
		return errors.New("watch needs at least one configuration")
	}
	return nil
}
