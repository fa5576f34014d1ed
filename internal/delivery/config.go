package delivery

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// PolicyConfig holds the delivery thresholds and pricing constants.
// It is loaded once at startup and passed by value afterwards.
type PolicyConfig struct {
	MaxDistanceKm         float64 `yaml:"max_distance_km"`
	MinOrderCents         int64   `yaml:"min_order_cents"`
	BasePriceCents        int64   `yaml:"base_price_cents"`
	PricePerKmCents       int64   `yaml:"price_per_km_cents"`
	FreeDeliveryFromCents int64   `yaml:"free_delivery_from_cents"`
	PreparationMinutes    int     `yaml:"preparation_minutes"`
	AverageSpeedKmPerHour float64 `yaml:"average_speed_km_per_hour"`
}

// DefaultPolicyConfig returns the storefront's standard delivery policy.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		MaxDistanceKm:         10,
		MinOrderCents:         3000,
		BasePriceCents:        500,
		PricePerKmCents:       150,
		FreeDeliveryFromCents: 10000,
		PreparationMinutes:    20,
		AverageSpeedKmPerHour: 30,
	}
}

// Validate reports configuration values that would make QuoteFor meaningless.
func (c PolicyConfig) Validate() error {
	var errs []error
	if c.MaxDistanceKm <= 0 {
		errs = append(errs, fmt.Errorf("max_distance_km must be positive, got %v", c.MaxDistanceKm))
	}
	if c.AverageSpeedKmPerHour <= 0 {
		errs = append(errs, fmt.Errorf("average_speed_km_per_hour must be positive, got %v", c.AverageSpeedKmPerHour))
	}
	if c.MinOrderCents < 0 {
		errs = append(errs, fmt.Errorf("min_order_cents must be non-negative, got %d", c.MinOrderCents))
	}
	if c.BasePriceCents < 0 {
		errs = append(errs, fmt.Errorf("base_price_cents must be non-negative, got %d", c.BasePriceCents))
	}
	if c.PricePerKmCents < 0 {
		errs = append(errs, fmt.Errorf("price_per_km_cents must be non-negative, got %d", c.PricePerKmCents))
	}
	if c.FreeDeliveryFromCents < 0 {
		errs = append(errs, fmt.Errorf("free_delivery_from_cents must be non-negative, got %d", c.FreeDeliveryFromCents))
	}
	if c.PreparationMinutes < 0 {
		errs = append(errs, fmt.Errorf("preparation_minutes must be non-negative, got %d", c.PreparationMinutes))
	}
	return errors.Join(errs...)
}

// LoadPolicyConfig builds the policy from defaults, an optional YAML file and
// DELIVERY_* environment overrides, in that order. An empty path skips the file.
func LoadPolicyConfig(path string) (PolicyConfig, error) {
	cfg := DefaultPolicyConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return PolicyConfig{}, fmt.Errorf("read policy file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return PolicyConfig{}, fmt.Errorf("parse policy file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return PolicyConfig{}, err
	}

	if err := cfg.Validate(); err != nil {
		return PolicyConfig{}, fmt.Errorf("invalid delivery policy: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *PolicyConfig) error {
	floats := []struct {
		key string
		dst *float64
	}{
		{"DELIVERY_MAX_DISTANCE_KM", &cfg.MaxDistanceKm},
		{"DELIVERY_AVERAGE_SPEED_KMH", &cfg.AverageSpeedKmPerHour},
	}
	for _, f := range floats {
		raw := os.Getenv(f.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", f.key, err)
		}
		*f.dst = v
	}

	cents := []struct {
		key string
		dst *int64
	}{
		{"DELIVERY_MIN_ORDER_CENTS", &cfg.MinOrderCents},
		{"DELIVERY_BASE_PRICE_CENTS", &cfg.BasePriceCents},
		{"DELIVERY_PRICE_PER_KM_CENTS", &cfg.PricePerKmCents},
		{"DELIVERY_FREE_FROM_CENTS", &cfg.FreeDeliveryFromCents},
	}
	for _, c := range cents {
		raw := os.Getenv(c.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", c.key, err)
		}
		*c.dst = v
	}

	if raw := os.Getenv("DELIVERY_PREPARATION_MINUTES"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parse DELIVERY_PREPARATION_MINUTES: %w", err)
		}
		cfg.PreparationMinutes = v
	}
	return nil
}
