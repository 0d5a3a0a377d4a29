package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProjectDir   string
	Environments []string // empty selects default_envs, then every environment

	LogFormat string
	LogLevel  string
	Jobs      int

	CacheDir string // "" uses the XDG cache dir
	NoCache  bool
	Verbose  bool
	Watch    bool
	DryRun   bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProjectDir == "" {
		return nil, errors.New("ProjectDir is a required configuration field and cannot be empty")
	}
	if cfg.Jobs < 0 {
		return nil, fmt.Errorf("jobs must not be negative, got %d", cfg.Jobs)
	}
	if cfg.Watch && cfg.DryRun {
		return nil, errors.New("watch and dry-run cannot be combined")
	}
	return &cfg, nil
}
