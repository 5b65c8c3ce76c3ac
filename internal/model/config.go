// Package model defines the data structures for forkbench's configuration and
// repository fleet.
package model

import (
	"fmt"
	"os"

	yamlv3 "gopkg.in/yaml.v3"
)

// Defaults applied by Load for fields the config file leaves unset.
const (
	DefaultDateFormat = "%Y-%m-%d %H:%M:%S"
	DefaultOutput     = "grades.csv"
	DefaultWorkDir    = "repos"
)

type Config struct {
	Fleet             FleetConfig   `yaml:"fleet"`
	RankedAllowedTags []string      `yaml:"ranked_allowed_tags"`
	Reset             bool          `yaml:"reset"`
	DateFormat        string        `yaml:"date_format"`
	PrepareCommands   []string      `yaml:"prepare_commands"`
	SeqTasks          []TaskStage   `yaml:"seq_tasks"`
	Rules             RuleSet       `yaml:"rules"`
	Report            ReportConfig  `yaml:"report"`
	Skip              SkipConfig    `yaml:"skip"`
	Logging           LoggingConfig `yaml:"logging"`
}

// FleetConfig names the repository set. Either SourceDir (every git working
// copy directly below it) or Repos (cloned under WorkDir) must be given.
type FleetConfig struct {
	SourceDir string       `yaml:"source_dir"`
	Repos     []RemoteRepo `yaml:"repos"`
	WorkDir   string       `yaml:"workdir"`
}

type RemoteRepo struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// TaskStage is one ordered unit of external commands. The `background` key
// selects concurrent launch-then-join execution for the stage's commands.
type TaskStage struct {
	DelaySeconds float64  `yaml:"delay"`
	Commands     []string `yaml:"commands"`
	Concurrent   bool     `yaml:"background"`
}

type ReportConfig struct {
	Output   string `yaml:"output"`
	Template string `yaml:"template"`
}

// SkipConfig disables whole stages. The flags cascade: skipping the rule
// checks also skips the task stages, and skipping the task stages also skips
// the prepare commands. Load normalizes the cascade.
type SkipConfig struct {
	RuleCheck       bool `yaml:"rule_check"`
	Tasks           bool `yaml:"tasks"`
	PrepareCommands bool `yaml:"prepare_commands"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the config file, applies defaults, normalizes the skip cascade
// and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yamlv3.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DateFormat == "" {
		c.DateFormat = DefaultDateFormat
	}
	if c.Report.Output == "" {
		c.Report.Output = DefaultOutput
	}
	if c.Fleet.WorkDir == "" {
		c.Fleet.WorkDir = DefaultWorkDir
	}
	if c.Skip.RuleCheck {
		c.Skip.Tasks = true
	}
	if c.Skip.Tasks {
		c.Skip.PrepareCommands = true
	}
}

// Validate rejects configurations whose errors would otherwise surface
// mid-run: a missing repository source, duplicate repository names, and
// criteria whose score denominator would be zero.
func (c Config) Validate() error {
	if c.Fleet.SourceDir == "" && len(c.Fleet.Repos) == 0 {
		return fmt.Errorf("config: fleet requires source_dir or repos")
	}
	seen := make(map[string]bool, len(c.Fleet.Repos))
	for _, r := range c.Fleet.Repos {
		if r.Name == "" {
			return fmt.Errorf("config: fleet repo with empty name")
		}
		if seen[r.Name] {
			return fmt.Errorf("config: duplicate fleet repo %q", r.Name)
		}
		seen[r.Name] = true
	}
	for _, stage := range c.SeqTasks {
		if stage.DelaySeconds < 0 {
			return fmt.Errorf("config: negative task stage delay %v", stage.DelaySeconds)
		}
	}
	for _, rule := range c.Rules {
		for _, crit := range rule.Criteria {
			if err := crit.validate(rule.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (cr Criterion) validate(rule string) error {
	if len(cr.Checks) == 0 {
		return fmt.Errorf("config: rule %q criterion %q has no checks", rule, cr.Name)
	}
	if cr.Weight < 0 {
		return fmt.Errorf("config: rule %q criterion %q has negative weight", rule, cr.Name)
	}
	var total float64
	for _, check := range cr.Checks {
		if check.PartialWeight < 0 {
			return fmt.Errorf("config: rule %q criterion %q has a negative partial weight", rule, cr.Name)
		}
		total += check.PartialWeight
	}
	if total <= 0 {
		return fmt.Errorf("config: rule %q criterion %q has zero total partial weight", rule, cr.Name)
	}
	return nil
}
