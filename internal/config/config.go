package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

// RuleConfig defines one tier of an assignment type's rule hierarchy.
type RuleConfig struct {
	Kind          string   `yaml:"kind" validate:"required,oneof=permanent preferredList seniorRequired generalPool"`
	Priority      int      `yaml:"priority"`
	WorkerID      string   `yaml:"workerId,omitempty"`
	WorkerIDs     []string `yaml:"workerIds,omitempty"`
	EffectiveFrom string   `yaml:"effectiveFrom,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EffectiveTo   string   `yaml:"effectiveTo,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// AssignmentTypeConfig defines one duty category to fill each day.
type AssignmentTypeConfig struct {
	ID             string       `yaml:"id" validate:"required"`
	Category       string       `yaml:"category" validate:"required,oneof=PriorityA PriorityB ProcessingCenter Evening Remote FrontDeskAM FrontDeskPM"`
	RequiresSenior bool         `yaml:"requiresSenior,omitempty"`
	SlotsPerDay    int          `yaml:"slotsPerDay" validate:"required,min=1"`
	Priority       int          `yaml:"priority"`
	CompTimeHours  int          `yaml:"compTimeHours,omitempty" validate:"omitempty,min=0"`
	CompTimeRRule  string       `yaml:"compTimeRRule,omitempty"`
	Rules          []RuleConfig `yaml:"rules,omitempty" validate:"dive"`
}

// EquityConfig tunes the fairness selection.
type EquityConfig struct {
	// Smoothing scales how strongly year-to-date load suppresses selection
	// weight. Zero falls back to the engine default.
	Smoothing float64 `yaml:"smoothing,omitempty" validate:"omitempty,gt=0"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL     string                 `yaml:"databaseURL" validate:"required"`
	HorizonDays     int                    `yaml:"horizonDays,omitempty" validate:"omitempty,min=1,max=35"`
	AssignmentTypes []AssignmentTypeConfig `yaml:"assignmentTypes" validate:"required,min=1,dive"`
	Equity          EquityConfig           `yaml:"equity,omitempty"`
}

// DefaultHorizonDays is used when the config leaves horizonDays unset.
const DefaultHorizonDays = 28

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from duty_roster_config.yaml,
// looking in the current directory first, then the user's home directory.
func Load() (*Config, error) {
	configPath, err := findConfigFile("duty_roster_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}
	return LoadFromPath(configPath)
}

// LoadWithEnv loads duty_roster_config.<env>.yaml for the given environment.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(fmt.Sprintf("duty_roster_config.%s.yaml", env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file for env %q: %w", env, err)
	}
	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	if cfg.HorizonDays == 0 {
		cfg.HorizonDays = DefaultHorizonDays
	}

	return &cfg, nil
}

// Validate runs struct validation plus the semantic checks yaml tags cannot
// express: rule kinds must carry their required fields, rrules must parse,
// and type IDs must be unique.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	seen := make(map[string]bool)
	for _, at := range cfg.AssignmentTypes {
		if seen[at.ID] {
			return fmt.Errorf("duplicate assignment type id %q", at.ID)
		}
		seen[at.ID] = true

		if at.CompTimeRRule != "" {
			if _, err := rrule.StrToRRule(at.CompTimeRRule); err != nil {
				return fmt.Errorf("invalid compTimeRRule for %q: %w", at.ID, err)
			}
		}

		for i, r := range at.Rules {
			switch r.Kind {
			case "permanent":
				if r.WorkerID == "" {
					return fmt.Errorf("%s: permanent rule %d requires workerId", at.ID, i)
				}
			case "preferredList":
				if len(r.WorkerIDs) == 0 {
					return fmt.Errorf("%s: preferredList rule %d requires workerIds", at.ID, i)
				}
			}
			if r.EffectiveFrom != "" && r.EffectiveTo != "" && r.EffectiveFrom > r.EffectiveTo {
				return fmt.Errorf("%s: rule %d effective range is inverted", at.ID, i)
			}
		}
	}

	return nil
}

// findConfigFile searches for the named file in the current directory and the
// user's home directory.
func findConfigFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("config file %s not found in current directory or home directory", name)
}
