// Package config loads run options from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/testlane/testlane/runner"
)

// File is the YAML shape of a run-options file. Optional booleans are
// pointers so an absent key keeps the engine default (multithread on,
// capture on).
type File struct {
	Multithread    *bool   `yaml:"multithread"`
	CaptureOutput  *bool   `yaml:"capture_output"`
	FailFast       bool    `yaml:"fail_fast"`
	TestWarnTimeMs float64 `yaml:"test_warn_time_ms"`
	Concurrency    int     `yaml:"concurrency"`
}

// Load reads and validates a run-options file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read options file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse options file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid options file %s: %w", path, err)
	}
	return &f, nil
}

func (f *File) validate() error {
	if f.TestWarnTimeMs < 0 {
		return fmt.Errorf("test_warn_time_ms cannot be negative")
	}
	if f.Concurrency < 0 {
		return fmt.Errorf("concurrency cannot be negative")
	}
	return nil
}

// Apply folds the file's options into a runner config. Only keys
// present in the file override cfg.
func (f *File) Apply(cfg *runner.Config) {
	if f.Multithread != nil {
		cfg.Serial = !*f.Multithread
	}
	if f.CaptureOutput != nil {
		cfg.NoCapture = !*f.CaptureOutput
	}
	if f.FailFast {
		cfg.FailFast = true
	}
	if f.TestWarnTimeMs > 0 {
		cfg.TestWarnTime = time.Duration(f.TestWarnTimeMs * float64(time.Millisecond))
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
}
