package server

import (
	"encoding/json"
	"fmt"
	"image"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/ironsheep/image-mergetree/internal/grid"
	"github.com/ironsheep/image-mergetree/internal/imaging"
	"github.com/ironsheep/image-mergetree/internal/mergetree"
	"github.com/ironsheep/image-mergetree/internal/pipeline"
	"github.com/ironsheep/image-mergetree/internal/scoring"
)

// Default limits for list-valued results.
const (
	defaultRegionLimit      = 100
	defaultConflictSetLimit = 100
	defaultPreviewSide      = 512
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "merge_tree_build").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warnw("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images through the server's cache
//  4. Runs the imaging or pipeline functions
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Oversegmentation
	case "image_oversegment":
		return s.handleImageOversegment(args)

	// Merge Trees
	case "merge_tree_build":
		return s.handleMergeTreeBuild(args)
	case "merge_tree_conflict_sets":
		return s.handleMergeTreeConflictSets(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Shared Arguments ===

// regionArgs is the optional region of interest of a tool call.
type regionArgs struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// sourceArgs selects and preprocesses the source image.
type sourceArgs struct {
	Path   string      `json:"path"`
	Region *regionArgs `json:"region,omitempty"`
	Blur   float64     `json:"blur"`
	Invert bool        `json:"invert"`

	// SLIC parameters, used when no label image is given
	RegionSize  int     `json:"region_size"`
	Compactness float64 `json:"compactness"`
	Iterations  int     `json:"iterations"`
}

// buildArgs extends sourceArgs with the merge settings.
type buildArgs struct {
	sourceArgs

	Labels               string   `json:"labels"`
	Gradient             bool     `json:"gradient"`
	Connectivity         int      `json:"connectivity"`
	SmallRegionThreshold *int     `json:"small_region_threshold,omitempty"`
	Scoring              string   `json:"scoring"`
	PerturbationStdDev   float64  `json:"perturbation_stddev"`
	PerturbationSeed     uint64   `json:"perturbation_seed"`
	SizeExponent         float64  `json:"size_exponent"`
	SmallFirstThreshold  int      `json:"small_first_threshold"`
	SmallFirstOffset     *float64 `json:"small_first_offset,omitempty"`
}

// options converts source arguments into pipeline options, keeping defaults
// for everything not set.
func (a sourceArgs) options(cache *imaging.ImageCache) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Source = a.Path
	opts.BlurRadius = a.Blur
	opts.Invert = a.Invert
	opts.Cache = cache
	if a.Region != nil {
		opts.Region = imaging.Region{X1: a.Region.X1, Y1: a.Region.Y1, X2: a.Region.X2, Y2: a.Region.Y2}
	}
	if a.RegionSize != 0 {
		opts.Superpixel.RegionSize = a.RegionSize
	}
	if a.Compactness != 0 {
		opts.Superpixel.Compactness = a.Compactness
	}
	if a.Iterations != 0 {
		opts.Superpixel.Iterations = a.Iterations
	}
	return opts
}

func (a buildArgs) options(cache *imaging.ImageCache) pipeline.Options {
	opts := a.sourceArgs.options(cache)
	opts.Labels = a.Labels
	opts.Gradient = a.Gradient
	if a.Connectivity != 0 {
		opts.Connectivity = grid.Connectivity(a.Connectivity)
	}
	if a.SmallRegionThreshold != nil {
		opts.Merge.SmallRegionThreshold = *a.SmallRegionThreshold
	}
	if a.Scoring != "" {
		opts.Scoring = a.Scoring
	}
	opts.ScoringOptions = scoring.Options{
		PerturbationStdDev:  a.PerturbationStdDev,
		PerturbationSeed:    a.PerturbationSeed,
		SizeExponent:        a.SizeExponent,
		SmallFirstThreshold: a.SmallFirstThreshold,
		SmallFirstOffset:    scoring.DefaultSmallRegionOffset,
	}
	if a.SmallFirstOffset != nil {
		opts.ScoringOptions.SmallFirstOffset = *a.SmallFirstOffset
	}
	return opts
}

// === Oversegmentation Handlers ===

type imageOversegmentArgs struct {
	sourceArgs

	LabelsOut   string `json:"labels_out"`
	ColorizeOut string `json:"colorize_out"`
	OverlayOut  string `json:"overlay_out"`
	Limit       int    `json:"limit"`
	Preview     bool   `json:"preview"`
}

// OversegmentResult describes the superpixels of an image.
type OversegmentResult struct {
	Width       int                         `json:"width"`
	Height      int                         `json:"height"`
	Superpixels int                         `json:"superpixels"`
	Regions     []imaging.RegionMeasurement `json:"regions"`
	Truncated   bool                        `json:"truncated"`
	Files       []string                    `json:"files,omitempty"`
	Preview     *imaging.Preview            `json:"preview,omitempty"`
}

func (s *Server) handleImageOversegment(args json.RawMessage) (interface{}, error) {
	var a imageOversegmentArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Limit == 0 {
		a.Limit = defaultRegionLimit
	}

	in, err := pipeline.Prepare(a.options(s.cache), s.logger)
	if err != nil {
		return nil, err
	}

	regions, err := imaging.MeasureRegions(in.Labels, in.Intensities, in.Width, in.Height)
	if err != nil {
		return nil, err
	}
	result := &OversegmentResult{
		Width:       in.Width,
		Height:      in.Height,
		Superpixels: len(regions),
		Regions:     regions,
	}
	if a.Limit > 0 && len(regions) > a.Limit {
		result.Regions = regions[:a.Limit]
		result.Truncated = true
	}

	colorized, err := imaging.Colorize(in.Labels, in.Width, in.Height)
	if err != nil {
		return nil, err
	}
	if a.LabelsOut != "" {
		if err := imaging.SaveLabels(a.LabelsOut, in.Labels, in.Width, in.Height); err != nil {
			return nil, err
		}
		result.Files = append(result.Files, a.LabelsOut)
	}
	if a.ColorizeOut != "" {
		if err := imaging.Save(colorized, a.ColorizeOut); err != nil {
			return nil, err
		}
		result.Files = append(result.Files, a.ColorizeOut)
	}
	if a.OverlayOut != "" {
		src, err := s.source(a.sourceArgs)
		if err != nil {
			return nil, err
		}
		overlay, err := imaging.BoundaryOverlay(src, in.Labels, "")
		if err != nil {
			return nil, err
		}
		if err := imaging.Save(overlay, a.OverlayOut); err != nil {
			return nil, err
		}
		result.Files = append(result.Files, a.OverlayOut)
	}
	if a.Preview {
		if result.Preview, err = imaging.EncodePreview(colorized, defaultPreviewSide); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// source loads the cropped source image of a tool call.
func (s *Server) source(a sourceArgs) (image.Image, error) {
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	region := a.options(s.cache).Region
	return imaging.CropRegion(img, region)
}

// === Merge Tree Handlers ===

type mergeTreeBuildArgs struct {
	buildArgs

	Output          string `json:"output"`
	LabelsOut       string `json:"labels_out"`
	LevelsOut       string `json:"levels_out"`
	ConflictSetsOut string `json:"conflict_sets_out"`
	MaxHeight       int    `json:"max_height"`
	Preview         bool   `json:"preview"`
}

// BuildResult describes a finished merge tree.
type BuildResult struct {
	Summary mergetree.Summary `json:"summary"`
	Files   []string          `json:"files,omitempty"`
	Preview *imaging.Preview  `json:"preview,omitempty"`
}

func (s *Server) handleMergeTreeBuild(args json.RawMessage) (interface{}, error) {
	var a mergeTreeBuildArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Output == "" {
		return nil, errors.New("output path is required")
	}

	out, err := pipeline.Run(a.options(s.cache), s.logger)
	if err != nil {
		return nil, err
	}

	paths := pipeline.Paths{
		MergeTree:    a.Output,
		Labels:       a.LabelsOut,
		Levels:       a.LevelsOut,
		ConflictSets: a.ConflictSetsOut,
		MaxHeight:    a.MaxHeight,
	}
	if err := out.Write(paths); err != nil {
		return nil, err
	}

	result := &BuildResult{
		Summary: out.Summary,
		Files:   lo.Compact([]string{paths.MergeTree, paths.Labels, paths.Levels, paths.ConflictSets}),
	}
	if a.Preview {
		levels, err := imaging.ColorizeLevels(out.Result.Pixels, out.Input.Width, out.Input.Height, out.Result.MaxDistance)
		if err != nil {
			return nil, err
		}
		if result.Preview, err = imaging.EncodePreview(levels, defaultPreviewSide); err != nil {
			return nil, err
		}
	}
	return result, nil
}

type mergeTreeConflictSetsArgs struct {
	buildArgs

	MaxHeight int  `json:"max_height"`
	Label     *int `json:"label,omitempty"`
	Limit     int  `json:"limit"`
}

// ConflictSetsResult lists conflict sets of a merge tree.
type ConflictSetsResult struct {
	MaxDistance  int                     `json:"max_distance"`
	Total        int                     `json:"total"`
	ConflictSets []mergetree.ConflictSet `json:"conflict_sets"`
	Truncated    bool                    `json:"truncated"`
}

func (s *Server) handleMergeTreeConflictSets(args json.RawMessage) (interface{}, error) {
	var a mergeTreeConflictSetsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Limit == 0 {
		a.Limit = defaultConflictSetLimit
	}

	out, err := pipeline.Run(a.options(s.cache), s.logger)
	if err != nil {
		return nil, err
	}

	sets := out.Result.Forest.ConflictSets(a.MaxHeight)
	if a.Label != nil {
		sets = lo.Filter(sets, func(cs mergetree.ConflictSet, _ int) bool {
			return cs.Label == *a.Label
		})
		if len(sets) == 0 {
			return nil, errors.Errorf("no region with label %d", *a.Label)
		}
	}

	result := &ConflictSetsResult{
		MaxDistance:  out.Result.MaxDistance,
		Total:        len(sets),
		ConflictSets: sets,
	}
	if a.Limit > 0 && len(sets) > a.Limit {
		result.ConflictSets = sets[:a.Limit]
		result.Truncated = true
	}
	return result, nil
}
