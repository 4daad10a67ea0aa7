package gosmo

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the training parameters.
//
// Zero values of Tau, MaxIterations, ShrinkingPeriod and Workers select
// defaults derived from the number of samples. If both CacheCapacity and
// CacheBytes are zero, every kernel row may be cached.
type Config struct {
	// C is the box constraint on every dual coefficient.
	C float64 `yaml:"c" validate:"gt=0"`
	// Tolerance is the KKT gap at which training stops.
	Tolerance float64 `yaml:"tolerance" validate:"gt=0"`
	// Tau floors the curvature of a working pair. Default 1e-12.
	Tau float64 `yaml:"tau" validate:"gte=0"`

	// CacheCapacity is the number of cached kernel rows; it takes precedence
	// over CacheBytes.
	CacheCapacity int `yaml:"cache_capacity" validate:"gte=0"`
	// CacheBytes is the kernel row cache budget in bytes.
	CacheBytes int64 `yaml:"cache_bytes" validate:"gte=0"`

	// MaxIterations bounds the number of coordinate steps.
	// Default max(10,000,000, 100·n).
	MaxIterations int `yaml:"max_iterations" validate:"gte=0"`
	// Shrinking enables the active-set heuristic.
	Shrinking bool `yaml:"shrinking"`
	// ShrinkingPeriod is the number of iterations between shrink passes.
	// Default min(n, 1000).
	ShrinkingPeriod int `yaml:"shrinking_period" validate:"gte=0"`
	// Workers bounds the goroutines of the parallel sweeps. Default GOMAXPROCS.
	Workers int `yaml:"workers" validate:"gte=0"`
}

// DefaultConfig returns C=1, tolerance 1e-3, a 100MB kernel cache and
// shrinking enabled.
func DefaultConfig() Config {
	return Config{
		C:          1,
		Tolerance:  1e-3,
		Tau:        1e-12,
		CacheBytes: 100 << 20,
		Shrinking:  true,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the parameter ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s=%v violates %s=%s", ErrInvalidParameter, fe.Field(), fe.Value(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	return nil
}

// LoadConfig reads a YAML document on top of DefaultConfig and validates
// the result. Unknown keys are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: decode config: %w", ErrInvalidParameter, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
