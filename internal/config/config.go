// Package config centralizes the runtime knobs that the reference
// implementation exposes as compile-time preprocessor macros (stress-testing
// the GC on every allocation, logging each collection, tuning the initial
// collection threshold). Here they are fields on a struct populated from
// environment variables via caarlos0/env, so the same binary can be tuned
// without recompilation.
package config

import "github.com/caarlos0/env/v6"

// Config holds the environment-driven settings read once at process
// startup.
type Config struct {
	// StressGC forces a garbage collection before every single heap
	// allocation, trading performance for much better odds of catching a
	// dangling reference during development. Equivalent to the reference
	// implementation's DEBUG_STRESS_GC macro.
	StressGC bool `env:"LOXVM_STRESS_GC" envDefault:"false"`

	// LogGC makes the collector emit a structured log entry for every
	// collection cycle (bytes before/after, objects swept).
	LogGC bool `env:"LOXVM_LOG_GC" envDefault:"false"`

	// InitialGCThreshold is the byte count of live heap data that must be
	// exceeded before the first collection runs. Subsequent thresholds grow
	// by GCGrowthFactor after each collection.
	InitialGCThreshold int `env:"LOXVM_GC_THRESHOLD" envDefault:"1048576"`

	// GCGrowthFactor is the multiplier applied to bytesAllocated to compute
	// the next collection threshold after a collection completes.
	GCGrowthFactor int `env:"LOXVM_GC_GROWTH_FACTOR" envDefault:"2"`

	// MaxFrames bounds the VM's call-frame stack; exceeding it is a runtime
	// stack-overflow error.
	MaxFrames int `env:"LOXVM_MAX_FRAMES" envDefault:"64"`

	// LogLevel controls the verbosity of the ambient structured logger
	// ("debug", "info", "warn", "error"); see internal/cliapp.
	LogLevel string `env:"LOXVM_LOG_LEVEL" envDefault:"warn"`
}

// Load reads configuration from the process environment, applying the
// defaults above for anything unset.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
