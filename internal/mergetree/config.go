package mergetree

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// DefaultSmallRegionThreshold is the largest region size, in pixels, merged
// in the small-region pass by default.
const DefaultSmallRegionThreshold = 100

// Config controls the merge engine.
// Start with DefaultConfig and override the fields you need.
type Config struct {
	// SmallRegionThreshold is the maximal size of a region to be considered
	// small. Small regions are merged in a first pass before others are
	// considered. 0 disables the pass. Must be >= 0. Default: 100.
	SmallRegionThreshold int

	// StampBoundaries writes the id of each new region onto the boundary
	// pixels between its children. Without it, the finalized image carries
	// no hierarchy. Default: true.
	StampBoundaries bool
}

// DefaultConfig returns a Config with the engine defaults.
func DefaultConfig() Config {
	return Config{
		SmallRegionThreshold: DefaultSmallRegionThreshold,
		StampBoundaries:      true,
	}
}

// Validate checks the config and reports all problems at once.
func (c Config) Validate() error {
	var err error
	if c.SmallRegionThreshold < 0 {
		err = multierr.Append(err, errors.Errorf("mergetree: SmallRegionThreshold must be >= 0, got %d", c.SmallRegionThreshold))
	}
	return err
}
