// Package pipeline turns a source image into a merge tree: it loads the image,
// obtains an initial label image, builds the region adjacency graph, merges
// and finalizes. The command line and the MCP server both run through it.
package pipeline

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ironsheep/image-mergetree/internal/grid"
	"github.com/ironsheep/image-mergetree/internal/imaging"
	"github.com/ironsheep/image-mergetree/internal/mergetree"
	"github.com/ironsheep/image-mergetree/internal/rag"
	"github.com/ironsheep/image-mergetree/internal/scoring"
	"github.com/ironsheep/image-mergetree/internal/superpixel"
)

// Options configures a pipeline run.
type Options struct {
	// Source is the intensity image. Required.
	Source string

	// Labels is an optional initial label image of the same size as Source.
	// Without it, Source is oversegmented with SLIC.
	Labels string

	// Region restricts the run to a rectangle of Source (and Labels). The
	// zero Region selects the whole image.
	Region imaging.Region

	// BlurRadius smooths Source before intensities are extracted.
	BlurRadius float64

	// Invert flips intensities, for sources with dark boundaries.
	Invert bool

	// Gradient scores edges on the Sobel magnitude of Source instead of
	// Source itself, for images that are not boundary maps.
	Gradient bool

	Connectivity   grid.Connectivity
	Superpixel     superpixel.Config
	Scoring        string
	ScoringOptions scoring.Options
	Merge          mergetree.Config

	// Cache is used for image loading when set.
	Cache *imaging.ImageCache
}

// DefaultOptions returns the defaults of every stage; Source still has to be
// set.
func DefaultOptions() Options {
	return Options{
		Connectivity: grid.Direct,
		Superpixel:   superpixel.DefaultConfig(),
		Scoring:      scoring.Median,
		Merge:        mergetree.DefaultConfig(),
	}
}

// Validate checks the options of every stage and reports all problems at once.
func (o Options) Validate() error {
	var err error
	if o.Source == "" {
		err = multierr.Append(err, errors.New("pipeline: source image is required"))
	}
	if o.BlurRadius < 0 {
		err = multierr.Append(err, errors.Errorf("pipeline: blur radius must be >= 0, got %v", o.BlurRadius))
	}
	if _, cerr := grid.ParseConnectivity(int(o.Connectivity)); cerr != nil && o.Connectivity != 0 {
		err = multierr.Append(err, cerr)
	}
	if o.Labels == "" {
		err = multierr.Append(err, o.Superpixel.Validate())
	}
	err = multierr.Append(err, o.ScoringOptions.Validate())
	err = multierr.Append(err, o.Merge.Validate())
	return err
}

// Input is a loaded, cropped source with its initial labels.
type Input struct {
	Width       int
	Height      int
	Intensities []float64
	Labels      []int

	// Oversegmented is true when Labels came from SLIC rather than a file.
	Oversegmented bool
}

// Output is the result of a full run.
type Output struct {
	Input   *Input
	Graph   *rag.Graph
	Result  *mergetree.Result
	Summary mergetree.Summary
}

// Prepare loads the source and produces the initial labels, without merging.
func Prepare(opts Options, logger *zap.SugaredLogger) (*Input, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	cache := opts.Cache
	if cache == nil {
		cache = imaging.NewImageCache()
	}

	src, err := cache.Load(opts.Source)
	if err != nil {
		return nil, err
	}
	src, err = imaging.CropRegion(src, opts.Region)
	if err != nil {
		return nil, errors.Wrap(err, "source")
	}

	in := &Input{
		Width:       src.Bounds().Dx(),
		Height:      src.Bounds().Dy(),
		Intensities: imaging.Intensities(src, opts.BlurRadius),
	}
	if opts.Invert {
		imaging.Invert(in.Intensities)
	}
	logger.Infow("loaded source", "path", opts.Source, "width", in.Width, "height", in.Height)

	if opts.Labels != "" {
		img, err := cache.Load(opts.Labels)
		if err != nil {
			return nil, err
		}
		img, err = imaging.CropRegion(img, opts.Region)
		if err != nil {
			return nil, errors.Wrap(err, "labels")
		}
		if b := img.Bounds(); b.Dx() != in.Width || b.Dy() != in.Height {
			return nil, errors.Errorf("pipeline: labels are %dx%d, source is %dx%d",
				b.Dx(), b.Dy(), in.Width, in.Height)
		}
		in.Labels = imaging.DecodeLabels(img)
		logger.Infow("loaded labels", "path", opts.Labels)
		return in, nil
	}

	start := time.Now()
	seg, err := superpixel.Segment(in.Intensities, in.Width, in.Height, opts.Superpixel)
	if err != nil {
		return nil, err
	}
	in.Labels = seg.Values
	in.Oversegmented = true
	logger.Infow("oversegmented source",
		"superpixels", seg.Count,
		"region_size", opts.Superpixel.RegionSize,
		"elapsed", time.Since(start))
	return in, nil
}

// Run performs a full pipeline run.
func Run(opts Options, logger *zap.SugaredLogger) (*Output, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	in, err := Prepare(opts, logger)
	if err != nil {
		return nil, err
	}
	return Merge(in, opts, logger)
}

// Merge builds the region adjacency graph of a prepared input and merges it
// into a merge tree.
func Merge(in *Input, opts Options, logger *zap.SugaredLogger) (*Output, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	g, err := grid.New(in.Width, in.Height, opts.Connectivity)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	graph, err := rag.Build(in.Labels, g)
	if err != nil {
		return nil, err
	}
	initialEdges := graph.NumEdges()
	logger.Infow("built region adjacency graph",
		"regions", graph.NumRegions(),
		"edges", initialEdges,
		"elapsed", time.Since(start))

	scores := in.Intensities
	if opts.Gradient {
		scores = imaging.BoundaryMap(in.Intensities, in.Width, in.Height)
	}
	fn, err := scoring.New(opts.Scoring, scores, g, opts.ScoringOptions)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	merger, err := mergetree.NewMerger(graph, fn, opts.Merge, logger)
	if err != nil {
		return nil, err
	}
	res, err := merger.Run()
	if err != nil {
		return nil, err
	}
	logger.Infow("merge tree finished",
		"max_distance", res.MaxDistance,
		"elapsed", time.Since(start))

	return &Output{
		Input:   in,
		Graph:   graph,
		Result:  res,
		Summary: mergetree.Summarize(graph, res, merger.Stats(), initialEdges),
	}, nil
}
