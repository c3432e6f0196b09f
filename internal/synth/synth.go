// Package synth provides the shared generation contract: deterministic
// per-family random streams, the date-range configuration, and the
// Generator interface implemented by both the parametric and model-based
// strategies.
package synth

import (
	"context"
	"fmt"
	"time"

	"labsynth/pkg/dataset"
)

// Config is the per-family generation configuration. The date range is
// inclusive of both endpoints: generating 2024-01-01 through 2024-01-31
// yields 31 daily rows per section.
type Config struct {
	Start time.Time
	End   time.Time
	// Seed is the family sub-seed, already combined from the root seed and
	// the family offset by the orchestrator.
	Seed int64
}

// Validate rejects empty or reversed date ranges.
func (c Config) Validate() error {
	if c.Start.IsZero() || c.End.IsZero() {
		return fmt.Errorf("%w: date range not set", dataset.ErrInvalidConfiguration)
	}
	if c.End.Before(c.Start) {
		return fmt.Errorf("%w: date range reversed (%s after %s)",
			dataset.ErrInvalidConfiguration, c.Start.Format("2006-01-02"), c.End.Format("2006-01-02"))
	}
	return nil
}

// Days returns the number of calendar days in the inclusive range.
func (c Config) Days() int {
	return int(c.End.Sub(c.Start).Hours()/24) + 1
}

// Generator produces one dataset family from a configuration.
type Generator interface {
	Family() string
	Generate(ctx context.Context, cfg Config) (dataset.Instance, error)
}
