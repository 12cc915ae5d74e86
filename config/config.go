// Package config holds the settings shared by the training and alignment
// commands. Values come from defaults, an optional YAML file, and finally
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ieee0824/wordalign/align"
	"github.com/ieee0824/wordalign/ibm1"
)

// ErrResumeWithoutLoad is returned when a resume iteration is requested
// without a checkpoint to resume from.
var ErrResumeWithoutLoad = errors.New("resume iteration requires a load path")

// Corpus locates the parallel corpus: files are Prefix.Source and Prefix.Target.
type Corpus struct {
	Prefix       string `yaml:"prefix"`
	Source       string `yaml:"source"`
	Target       string `yaml:"target"`
	MaxSentences int    `yaml:"max_sentences,omitempty"`
	Lowercase    bool   `yaml:"lowercase,omitempty"`
}

// Training holds the EM parameters for newly created models.
type Training struct {
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
}

// Direction configures checkpointing and resuming for one translation
// direction.
type Direction struct {
	Save            string `yaml:"save,omitempty"`
	Load            string `yaml:"load,omitempty"`
	ResumeIteration int    `yaml:"resume_iteration,omitempty"`
}

// Alignment configures how alignments are produced and scored.
type Alignment struct {
	Mode string `yaml:"mode,omitempty"`
	Gold string `yaml:"gold,omitempty"`
}

// Config is the full configuration surface.
type Config struct {
	Corpus    Corpus    `yaml:"corpus"`
	Training  Training  `yaml:"training"`
	Forward   Direction `yaml:"forward"`
	Reverse   Direction `yaml:"reverse"`
	Alignment Alignment `yaml:"alignment"`
	Plot      string    `yaml:"plot,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	tc := ibm1.DefaultTrainingConfig()
	return Config{
		Corpus: Corpus{
			Prefix: "data/corpus",
			Source: "f",
			Target: "e",
		},
		Training: Training{
			Tolerance:     tc.Tolerance,
			MaxIterations: tc.MaxIterations,
		},
		Forward:   Direction{Save: "runs/forward"},
		Reverse:   Direction{Save: "runs/reverse"},
		Alignment: Alignment{Mode: align.Intersection.String()},
	}
}

// Parse reads YAML on top of the defaults. Keys missing from data keep
// their default values.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks preconditions that must hold before any corpus is read.
func (c Config) Validate() error {
	if c.Corpus.Prefix == "" || c.Corpus.Source == "" || c.Corpus.Target == "" {
		return fmt.Errorf("corpus prefix and both language suffixes are required")
	}
	if c.Corpus.MaxSentences < 0 {
		return fmt.Errorf("max sentences must not be negative, got %d", c.Corpus.MaxSentences)
	}
	if err := c.TrainingConfig().Validate(); err != nil {
		return err
	}
	if err := c.Forward.Validate(); err != nil {
		return fmt.Errorf("forward: %w", err)
	}
	if err := c.Reverse.Validate(); err != nil {
		return fmt.Errorf("reverse: %w", err)
	}
	if c.Alignment.Mode != "" {
		if _, err := align.ParseMode(c.Alignment.Mode); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the resume settings of one direction.
func (d Direction) Validate() error {
	if d.ResumeIteration < 0 {
		return fmt.Errorf("resume iteration must not be negative, got %d", d.ResumeIteration)
	}
	if d.ResumeIteration > 0 && d.Load == "" {
		return ErrResumeWithoutLoad
	}
	return nil
}

// SourcePath returns the path of the source-language corpus file.
func (c Config) SourcePath() string { return c.Corpus.Prefix + "." + c.Corpus.Source }

// TargetPath returns the path of the target-language corpus file.
func (c Config) TargetPath() string { return c.Corpus.Prefix + "." + c.Corpus.Target }

// TrainingConfig converts the training section for the ibm1 package.
func (c Config) TrainingConfig() ibm1.TrainingConfig {
	return ibm1.TrainingConfig{
		Tolerance:     c.Training.Tolerance,
		MaxIterations: c.Training.MaxIterations,
	}
}

// AlignMode returns the configured alignment mode, defaulting to intersection.
func (c Config) AlignMode() (align.Mode, error) {
	if c.Alignment.Mode == "" {
		return align.Intersection, nil
	}
	return align.ParseMode(c.Alignment.Mode)
}

// Encode renders the configuration as YAML.
func (c Config) Encode() ([]byte, error) {
	return yaml.Marshal(c)
}
