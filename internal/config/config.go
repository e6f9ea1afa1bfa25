package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	DatabaseURL string `yaml:"databaseURL" validate:"required"`

	// Calendar submission. When SubmitToCalendar is false committed
	// assignments stay in sync state "pending" and nothing leaves the store.
	SubmitToCalendar bool   `yaml:"submitToCalendar,omitempty"`
	CalendarID       string `yaml:"calendarID,omitempty" validate:"required_if=SubmitToCalendar true"`

	// Engine tuning knobs. Zero values fall back to the engine defaults.
	ShortNoticeDays  int `yaml:"shortNoticeDays,omitempty" validate:"omitempty,min=1"`
	MaxBumpsPerEvent int `yaml:"maxBumpsPerEvent,omitempty" validate:"omitempty,min=1"`
	MinDaysToDueDate int `yaml:"minDaysToDueDate,omitempty" validate:"omitempty,min=1"`

	// BlackoutRules are RRULE strings naming dates placement must skip, such
	// as store closure days.
	BlackoutRules []string `yaml:"blackoutRules,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads and validates the configuration for an environment.
// For example, env="test" looks for "demoroster.test.yaml" in the current
// directory first, then in the user's home directory.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
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

	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, rule := range cfg.BlackoutRules {
		if _, err := rrule.StrToRRule(rule); err != nil {
			return fmt.Errorf("invalid rrule in blackoutRules[%d]: %w", i, err)
		}
	}

	return nil
}

// findConfigFile searches for demoroster.<env>.yaml in the current directory
// and the user's home directory
func findConfigFile(env string) (string, error) {
	configFileName := fmt.Sprintf("demoroster.%s.yaml", env)

	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file %s not found in current directory or home directory", configFileName)
}
