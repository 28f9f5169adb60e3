package config

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// WeightSumTolerance is the allowed deviation of a weight table's sum from 1
const WeightSumTolerance = 1e-6

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("weights", validateWeights)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

// ValidateStrategy validates a single strategy configuration
func (cv *CustomValidator) ValidateStrategy(sc StrategyConfig) error {
	if err := cv.validator.Struct(sc); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return validateStrategy(sc)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateWeights checks that a weight table is non-negative and sums to 1
func validateWeights(fl validator.FieldLevel) bool {
	weights, ok := fl.Field().Interface().(map[string]float64)
	if !ok || len(weights) == 0 {
		return false
	}
	return weightTableError(weights) == nil
}

func weightTableError(weights map[string]float64) error {
	sum := 0.0
	for name, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("weight for %s must be a non-negative number, got %v", name, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > WeightSumTolerance {
		return fmt.Errorf("weights must sum to 1, got %.6f", sum)
	}
	return nil
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if _, ok := cfg.Strategies[cfg.ActiveStrategy]; !ok {
		return fmt.Errorf("active_strategy %q is not defined in strategies", cfg.ActiveStrategy)
	}

	for name, sc := range cfg.Strategies {
		if err := validateStrategy(sc); err != nil {
			return fmt.Errorf("strategy %s: %w", name, err)
		}
	}

	if cfg.IsProduction() && cfg.Database.Enabled && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	return nil
}

func validateStrategy(sc StrategyConfig) error {
	if err := weightTableError(sc.Weights); err != nil {
		return err
	}

	if sc.Simulation.Trials < sc.Simulation.MinTrials {
		return fmt.Errorf("simulation trials (%d) cannot be below min_trials (%d)", sc.Simulation.Trials, sc.Simulation.MinTrials)
	}

	seen := make(map[string]bool, len(sc.Portfolio.Buckets))
	for _, b := range sc.Portfolio.Buckets {
		if seen[b.Name] {
			return fmt.Errorf("duplicate portfolio bucket %q", b.Name)
		}
		seen[b.Name] = true
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&b, "- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte", "gtfield", "gtefield":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "weights":
			fmt.Fprintf(&b, "- Field '%s' must be non-negative weights summing to 1\n", field)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if cfg.IsProduction() {
		if cfg.Database.Enabled && cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires database SSL mode to be 'require' or 'verify-full'")
		}
		if isTestCredential(cfg.Providers.APIKey) {
			return fmt.Errorf("production environment should not use test provider credentials")
		}
	}
	return nil
}

var testCredentialPattern = regexp.MustCompile(`(?i)(test|demo|example|placeholder|YOUR_)`)

// isTestCredential checks if a credential looks like a test credential
func isTestCredential(credential string) bool {
	return testCredentialPattern.MatchString(credential)
}
