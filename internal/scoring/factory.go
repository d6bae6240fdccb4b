package scoring

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ironsheep/image-mergetree/internal/grid"
)

// Names of the base scoring functions known to New.
const (
	Median = "median"
	Mean   = "mean"
)

// Options selects the decorators New applies around a base function. Zero
// values disable the corresponding decorator.
type Options struct {
	// PerturbationStdDev enables RandomPerturbation when > 0.
	PerturbationStdDev float64
	PerturbationSeed   uint64

	// SizeExponent enables SizeWeighted when != 0.
	SizeExponent float64

	// SmallFirstThreshold enables SmallRegionFirst when > 0.
	SmallFirstThreshold int
	SmallFirstOffset    float64
}

// Validate reports every invalid option at once.
func (o Options) Validate() error {
	var err error
	if o.PerturbationStdDev < 0 {
		err = multierr.Append(err, errors.Errorf("scoring: perturbation std-dev must be >= 0, got %f", o.PerturbationStdDev))
	}
	if o.SmallFirstThreshold < 0 {
		err = multierr.Append(err, errors.Errorf("scoring: small-first threshold must be >= 0, got %d", o.SmallFirstThreshold))
	}
	if o.SmallFirstOffset < 0 {
		err = multierr.Append(err, errors.Errorf("scoring: small-first offset must be >= 0, got %f", o.SmallFirstOffset))
	}
	return err
}

// New builds the named base function over intensities and wraps it with the
// decorators enabled in opts. Decorators are applied innermost first:
// size weighting, small-region preference, then random perturbation.
func New(name string, intensities []float64, g grid.Grid, opts Options) (Function, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var (
		fn  Function
		err error
	)
	switch name {
	case Median, "":
		fn, err = NewMedianEdgeIntensity(intensities, g)
	case Mean:
		fn, err = NewMeanEdgeIntensity(intensities, g)
	default:
		return nil, errors.Errorf("scoring: unknown scoring function %q", name)
	}
	if err != nil {
		return nil, err
	}

	if opts.SizeExponent != 0 {
		fn = NewSizeWeighted(fn, opts.SizeExponent)
	}
	if opts.SmallFirstThreshold > 0 {
		fn = NewSmallRegionFirst(fn, opts.SmallFirstThreshold, opts.SmallFirstOffset)
	}
	if opts.PerturbationStdDev > 0 {
		fn = NewRandomPerturbation(fn, opts.PerturbationStdDev, opts.PerturbationSeed)
	}
	return fn, nil
}
