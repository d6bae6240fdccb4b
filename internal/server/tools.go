package server

import "github.com/samber/lo"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// sourceProperties describe the source image and its oversegmentation.
func sourceProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": prop("string", "Absolute path to the source image (a boundary map: bright pixels separate regions)"),
		"region": map[string]interface{}{
			"type":        "object",
			"description": "Optional rectangle to restrict processing to",
			"properties": map[string]interface{}{
				"x1": prop("integer", "Left edge X coordinate (0-based)"),
				"y1": prop("integer", "Top edge Y coordinate (0-based)"),
				"x2": prop("integer", "Right edge X coordinate (exclusive)"),
				"y2": prop("integer", "Bottom edge Y coordinate (exclusive)"),
			},
			"required": []string{"x1", "y1", "x2", "y2"},
		},
		"blur":        prop("number", "Gaussian blur radius applied before processing (default: 0)"),
		"invert":      prop("boolean", "Invert intensities, for images with dark boundaries (default: false)"),
		"region_size": prop("integer", "Superpixel seed spacing in pixels (default: 10)"),
		"compactness": prop("number", "Superpixel compactness; higher values give more regular shapes (default: 10)"),
		"iterations":  prop("integer", "Superpixel refinement iterations (default: 10)"),
	}
}

// buildProperties extend sourceProperties with the merge settings.
func buildProperties() map[string]interface{} {
	return lo.Assign(sourceProperties(), map[string]interface{}{
		"labels":                 prop("string", "Optional 16-bit label image to start from instead of superpixels"),
		"gradient":               prop("boolean", "Score edges on the Sobel magnitude instead of raw intensity (default: false)"),
		"connectivity":           prop("integer", "Pixel adjacency: 4 or 8 (default: 4)"),
		"small_region_threshold": prop("integer", "Regions smaller than this many pixels are merged first (default: 100, 0 disables)"),
		"scoring":                prop("string", "Base edge score: median or mean (default: median)"),
		"perturbation_stddev":    prop("number", "Std-dev of Gaussian noise added to scores (default: 0)"),
		"perturbation_seed":      prop("integer", "Seed of the score noise (default: 0)"),
		"size_exponent":          prop("number", "Multiply scores by the smaller region size to this power (default: 0, disabled)"),
		"small_first_threshold":  prop("integer", "Prefer edges touching regions below this size (default: 0, disabled)"),
		"small_first_offset":     prop("number", "Score offset for edges between large regions (default: 1e6)"),
	})
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, color model and pixel count.",
			InputSchema: objectSchema(map[string]interface{}{
				"path": prop("string", "Absolute path to the image file"),
			}, "path"),
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: objectSchema(map[string]interface{}{
				"path": prop("string", "Absolute path to the image file"),
			}, "path"),
		},

		// Oversegmentation
		{
			Name:        "image_oversegment",
			Description: "Oversegment an image into SLIC superpixels. Returns per-region measurements and optionally writes the label image, a colorized view and a boundary overlay.",
			InputSchema: objectSchema(lo.Assign(sourceProperties(), map[string]interface{}{
				"labels_out":   prop("string", "Optional path for the 16-bit label image"),
				"colorize_out": prop("string", "Optional path for a colorized label image"),
				"overlay_out":  prop("string", "Optional path for superpixel boundaries drawn over the source"),
				"limit":        prop("integer", "Maximum regions to list (default: 100, negative for all)"),
				"preview":      prop("boolean", "Include a base64 PNG preview of the colorized labels (default: false)"),
			}), "path"),
		},

		// Merge Trees
		{
			Name:        "merge_tree_build",
			Description: "Build a merge tree by iteratively merging adjacent regions, small regions first and then by lowest boundary score. Writes a 16-bit image where each pixel holds the leaf distance of the region that absorbed it.",
			InputSchema: objectSchema(lo.Assign(buildProperties(), map[string]interface{}{
				"output":            prop("string", "Path for the 16-bit merge tree image"),
				"labels_out":        prop("string", "Optional path for the initial label image"),
				"levels_out":        prop("string", "Optional path for a colorized merge tree"),
				"conflict_sets_out": prop("string", "Optional path for conflict sets as JSON"),
				"max_height":        prop("integer", "Limit conflict sets to regions within this leaf distance (default: 0, no limit)"),
				"preview":           prop("boolean", "Include a base64 PNG preview of the colorized merge tree (default: false)"),
			}), "path", "output"),
		},
		{
			Name:        "merge_tree_conflict_sets",
			Description: "Build a merge tree and list, for each initial region, the chain of regions that contain it.",
			InputSchema: objectSchema(lo.Assign(buildProperties(), map[string]interface{}{
				"max_height": prop("integer", "Limit conflict sets to regions within this leaf distance (default: 0, no limit)"),
				"label":      prop("integer", "Only return the conflict set of this initial label"),
				"limit":      prop("integer", "Maximum conflict sets to return (default: 100, negative for all)"),
			}), "path"),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
