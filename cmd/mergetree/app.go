package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ironsheep/image-mergetree/internal/grid"
	"github.com/ironsheep/image-mergetree/internal/imaging"
	"github.com/ironsheep/image-mergetree/internal/mergetree"
	"github.com/ironsheep/image-mergetree/internal/pipeline"
	"github.com/ironsheep/image-mergetree/internal/scoring"
	"github.com/ironsheep/image-mergetree/internal/server"
	"github.com/ironsheep/image-mergetree/internal/superpixel"
)

const (
	// Global flags.
	flagLogLevel = "log-level"

	// Build flags.
	flagSource               = "source"
	flagLabels               = "labels"
	flagOutput               = "output"
	flagROI                  = "roi"
	flagBlur                 = "blur"
	flagInvert               = "invert"
	flagGradient             = "gradient"
	flagConnectivity         = "connectivity"
	flagSuperpixelSize       = "superpixel-size"
	flagCompactness          = "compactness"
	flagIterations           = "iterations"
	flagSmallRegionThreshold = "small-region-threshold"
	flagNoStamp              = "no-stamp"
	flagScoring              = "scoring"
	flagPerturbationStdDev   = "perturbation-stddev"
	flagPerturbationSeed     = "perturbation-seed"
	flagSizeExponent         = "size-exponent"
	flagSmallFirstThreshold  = "small-first-threshold"
	flagSmallFirstOffset     = "small-first-offset"
	flagLabelsOut            = "labels-out"
	flagColorizeOut          = "colorize-out"
	flagLevelsOut            = "levels-out"
	flagConflictSetsOut      = "conflict-sets-out"
	flagMaxHeight            = "max-height"
)

// envVar names the environment fallback of a flag, e.g. MERGETREE_LOG_LEVEL.
func envVar(flag string) []string {
	return []string{"MERGETREE_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))}
}

func newApp() *cli.App {
	var logger *zap.SugaredLogger

	superpixelDefaults := superpixel.DefaultConfig()

	return &cli.App{
		Name:            "mergetree",
		Usage:           "build merge trees of boundary images by iterative region merging",
		Version:         Version,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagLogLevel,
				Value:   "info",
				Usage:   "log level: debug, info, warn or error",
				EnvVars: envVar(flagLogLevel),
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			logger, err = newLogger(c.String(flagLogLevel))
			return err
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				_ = logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "merge the regions of an image into a merge tree",
				UsageText: "mergetree build --source membranes.png [--labels labels.png] [--output mergetree.png]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagSource,
						Aliases:  []string{"s"},
						Required: true,
						Usage:    "boundary image `FILE`; bright pixels separate regions",
						EnvVars:  envVar(flagSource),
					},
					&cli.StringFlag{
						Name:    flagLabels,
						Aliases: []string{"l"},
						Usage:   "initial label image `FILE`; without it the source is oversegmented",
						EnvVars: envVar(flagLabels),
					},
					&cli.StringFlag{
						Name:    flagOutput,
						Aliases: []string{"o"},
						Value:   "mergetree.png",
						Usage:   "16-bit merge tree image `FILE`",
						EnvVars: envVar(flagOutput),
					},
					&cli.StringFlag{
						Name:  flagROI,
						Usage: "restrict processing to `x1,y1,x2,y2`",
					},
					&cli.Float64Flag{
						Name:    flagBlur,
						Usage:   "Gaussian blur radius applied to the source",
						EnvVars: envVar(flagBlur),
					},
					&cli.BoolFlag{
						Name:  flagInvert,
						Usage: "invert the source, for dark boundaries",
					},
					&cli.BoolFlag{
						Name:  flagGradient,
						Usage: "score edges on the Sobel magnitude of the source",
					},
					&cli.IntFlag{
						Name:    flagConnectivity,
						Value:   int(grid.Direct),
						Usage:   "pixel adjacency, 4 or 8",
						EnvVars: envVar(flagConnectivity),
					},
					&cli.IntFlag{
						Name:  flagSuperpixelSize,
						Value: superpixelDefaults.RegionSize,
						Usage: "superpixel seed spacing in pixels",
					},
					&cli.Float64Flag{
						Name:  flagCompactness,
						Value: superpixelDefaults.Compactness,
						Usage: "superpixel compactness",
					},
					&cli.IntFlag{
						Name:  flagIterations,
						Value: superpixelDefaults.Iterations,
						Usage: "superpixel refinement iterations",
					},
					&cli.IntFlag{
						Name:    flagSmallRegionThreshold,
						Value:   mergetree.DefaultSmallRegionThreshold,
						Usage:   "regions of at most this many pixels are merged first; 0 disables",
						EnvVars: envVar(flagSmallRegionThreshold),
					},
					&cli.BoolFlag{
						Name:  flagNoStamp,
						Usage: "do not stamp region boundaries into the merge tree image",
					},
					&cli.StringFlag{
						Name:    flagScoring,
						Value:   scoring.Median,
						Usage:   "edge score: median or mean boundary intensity",
						EnvVars: envVar(flagScoring),
					},
					&cli.Float64Flag{
						Name:  flagPerturbationStdDev,
						Usage: "std-dev of Gaussian noise added to edge scores",
					},
					&cli.Uint64Flag{
						Name:  flagPerturbationSeed,
						Usage: "seed of the edge score noise",
					},
					&cli.Float64Flag{
						Name:  flagSizeExponent,
						Usage: "weight scores by the smaller region size to this power",
					},
					&cli.IntFlag{
						Name:  flagSmallFirstThreshold,
						Usage: "prefer edges touching regions below this size",
					},
					&cli.Float64Flag{
						Name:  flagSmallFirstOffset,
						Value: scoring.DefaultSmallRegionOffset,
						Usage: "score offset for edges between large regions",
					},
					&cli.StringFlag{
						Name:  flagLabelsOut,
						Usage: "write the initial labels as 16-bit `FILE`",
					},
					&cli.StringFlag{
						Name:  flagColorizeOut,
						Usage: "write colorized initial labels to `FILE`",
					},
					&cli.StringFlag{
						Name:  flagLevelsOut,
						Usage: "write a colorized merge tree to `FILE`",
					},
					&cli.StringFlag{
						Name:  flagConflictSetsOut,
						Usage: "write conflict sets as JSON to `FILE`",
					},
					&cli.IntFlag{
						Name:  flagMaxHeight,
						Usage: "limit conflict sets to this leaf distance; 0 keeps whole paths",
					},
				},
				Action: func(c *cli.Context) error {
					return buildAction(c, logger)
				},
			},
			{
				Name:  "serve",
				Usage: "run the MCP server on stdin and stdout",
				Action: func(c *cli.Context) error {
					srv := server.New(logger, Version)
					logger.Infow("serving MCP on stdio", "version", Version)
					return srv.Serve(c.App.Reader, c.App.Writer)
				},
			},
		},
	}
}

// newLogger builds a console logger on stderr. stdout carries MCP traffic in
// serve mode and is never logged to.
func newLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid --%s", flagLogLevel)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	return l.Sugar().Named("mergetree"), nil
}

// buildOptions converts the flags of the build command into pipeline options
// and output paths.
func buildOptions(c *cli.Context) (pipeline.Options, pipeline.Paths, error) {
	opts := pipeline.DefaultOptions()
	opts.Source = c.String(flagSource)
	opts.Labels = c.String(flagLabels)
	opts.BlurRadius = c.Float64(flagBlur)
	opts.Invert = c.Bool(flagInvert)
	opts.Gradient = c.Bool(flagGradient)
	opts.Connectivity = grid.Connectivity(c.Int(flagConnectivity))
	opts.Superpixel = superpixel.Config{
		RegionSize:  c.Int(flagSuperpixelSize),
		Compactness: c.Float64(flagCompactness),
		Iterations:  c.Int(flagIterations),
	}
	opts.Scoring = c.String(flagScoring)
	opts.ScoringOptions = scoring.Options{
		PerturbationStdDev:  c.Float64(flagPerturbationStdDev),
		PerturbationSeed:    c.Uint64(flagPerturbationSeed),
		SizeExponent:        c.Float64(flagSizeExponent),
		SmallFirstThreshold: c.Int(flagSmallFirstThreshold),
		SmallFirstOffset:    c.Float64(flagSmallFirstOffset),
	}
	opts.Merge = mergetree.Config{
		SmallRegionThreshold: c.Int(flagSmallRegionThreshold),
		StampBoundaries:      !c.Bool(flagNoStamp),
	}
	if roi := c.String(flagROI); roi != "" {
		r, err := imaging.ParseRegion(roi)
		if err != nil {
			return opts, pipeline.Paths{}, errors.Wrapf(err, "invalid --%s", flagROI)
		}
		opts.Region = r
	}

	paths := pipeline.Paths{
		MergeTree:    c.String(flagOutput),
		Labels:       c.String(flagLabelsOut),
		Colorized:    c.String(flagColorizeOut),
		Levels:       c.String(flagLevelsOut),
		ConflictSets: c.String(flagConflictSetsOut),
		MaxHeight:    c.Int(flagMaxHeight),
	}
	return opts, paths, nil
}

func buildAction(c *cli.Context, logger *zap.SugaredLogger) error {
	opts, paths, err := buildOptions(c)
	if err != nil {
		return err
	}
	out, err := pipeline.Run(opts, logger)
	if err != nil {
		return err
	}
	if err := out.Write(paths); err != nil {
		return err
	}

	s := out.Summary
	logger.Infow("wrote merge tree",
		"path", paths.MergeTree,
		"initial_regions", s.InitialRegions,
		"regions", s.Regions,
		"roots", s.Roots,
		"max_distance", s.MaxDistance)
	fmt.Fprintf(c.App.Writer, "%s: %d regions merged into %d roots, depth %d\n",
		paths.MergeTree, s.InitialRegions, s.Roots, s.MaxDistance)
	return nil
}

func init() {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintf(c.App.Writer, "mergetree %s\n", Version)
		fmt.Fprintf(c.App.Writer, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(c.App.Writer, "  Git commit: %s\n", GitCommit)
	}
}
