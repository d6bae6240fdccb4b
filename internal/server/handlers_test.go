package server

import (
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/ironsheep/image-mergetree/internal/imaging"
	"github.com/ironsheep/image-mergetree/internal/pipeline"
)

// createMembraneFile writes a dark image crossed by a bright cross and returns
// its path.
func createMembraneFile(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(20 + (x*5+y*3)%10)
			if x == width/2 || y == height/2 {
				v = 230
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	path := filepath.Join(t.TempDir(), "membranes.png")
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	return path
}

// createQuadrantLabelFile writes a label image with four quadrants labeled 1..4.
func createQuadrantLabelFile(t *testing.T, width, height int) string {
	t.Helper()
	labels := make([]int, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			labels[y*width+x] = 1 + x*2/width + 2*(y*2/height)
		}
	}
	path := filepath.Join(t.TempDir(), "labels.png")
	if err := imaging.SaveLabels(path, labels, width, height); err != nil {
		t.Fatalf("failed to write labels: %v", err)
	}
	return path
}

// callTool sends a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	paramsJSON, err := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unpacks the JSON text content of a successful tool call.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("Result should be a map, got %T", resp.Result)
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content should hold one item, got %v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v, want text", content[0]["type"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("failed to decode tool result %q: %v", text, err)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New(nil, "test")
	path := createMembraneFile(t, 30, 20)

	var info imaging.ImageInfo
	decodeResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": path}), &info)

	if info.Width != 30 || info.Height != 20 || info.Pixels != 600 {
		t.Errorf("got %dx%d (%d pixels), want 30x20 (600 pixels)", info.Width, info.Height, info.Pixels)
	}
	if !info.Grayscale {
		t.Error("Grayscale should be true")
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := New(nil, "test")
	path := createMembraneFile(t, 12, 7)

	var dims imaging.DimensionsResult
	decodeResult(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": path}), &dims)

	if dims.Width != 12 || dims.Height != 7 {
		t.Errorf("got %dx%d, want 12x7", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := New(nil, "test")
	resp := callTool(t, s, "image_load", map[string]interface{}{
		"path": filepath.Join(t.TempDir(), "missing.png"),
	})

	if resp.Error == nil {
		t.Fatal("Expected error for missing file")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := New(nil, "test")
	resp := callTool(t, s, "merge_tree_prune", map[string]interface{}{})

	if resp.Error == nil {
		t.Fatal("Expected error for unknown tool")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(nil, "test")
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})

	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestHandleToolsCall_Oversegment(t *testing.T) {
	s := New(zaptest.NewLogger(t).Sugar(), "test")
	path := createMembraneFile(t, 40, 30)
	dir := t.TempDir()
	labelsOut := filepath.Join(dir, "labels.png")
	overlayOut := filepath.Join(dir, "overlay.png")

	var result OversegmentResult
	decodeResult(t, callTool(t, s, "image_oversegment", map[string]interface{}{
		"path":        path,
		"region_size": 6,
		"limit":       2,
		"labels_out":  labelsOut,
		"overlay_out": overlayOut,
		"preview":     true,
	}), &result)

	if result.Width != 40 || result.Height != 30 {
		t.Errorf("size: got %dx%d, want 40x30", result.Width, result.Height)
	}
	if result.Superpixels < 4 {
		t.Errorf("Superpixels: got %d, want at least 4", result.Superpixels)
	}
	if len(result.Regions) != 2 || !result.Truncated {
		t.Errorf("got %d regions (truncated=%v), want 2 truncated", len(result.Regions), result.Truncated)
	}
	if result.Preview == nil || result.Preview.ImageBase64 == "" {
		t.Error("expected a preview")
	}
	for _, f := range []string{labelsOut, overlayOut} {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("missing output %s: %v", f, err)
		}
	}
}

func TestHandleToolsCall_OversegmentRegion(t *testing.T) {
	s := New(nil, "test")
	path := createMembraneFile(t, 40, 30)

	var result OversegmentResult
	decodeResult(t, callTool(t, s, "image_oversegment", map[string]interface{}{
		"path":        path,
		"region_size": 5,
		"limit":       -1,
		"region":      map[string]interface{}{"x1": 0, "y1": 0, "x2": 20, "y2": 15},
	}), &result)

	if result.Width != 20 || result.Height != 15 {
		t.Errorf("size: got %dx%d, want 20x15", result.Width, result.Height)
	}
	if result.Truncated || len(result.Regions) != result.Superpixels {
		t.Errorf("limit -1 should list all %d regions, got %d", result.Superpixels, len(result.Regions))
	}
	area := 0
	for _, r := range result.Regions {
		area += r.Area
	}
	if area != 20*15 {
		t.Errorf("region areas sum to %d, want %d", area, 20*15)
	}
}

func TestHandleToolsCall_MergeTreeBuild(t *testing.T) {
	s := New(nil, "test")
	path := createMembraneFile(t, 20, 10)
	labels := createQuadrantLabelFile(t, 20, 10)
	dir := t.TempDir()
	output := filepath.Join(dir, "tree.png")
	setsOut := filepath.Join(dir, "sets.json")

	var result BuildResult
	decodeResult(t, callTool(t, s, "merge_tree_build", map[string]interface{}{
		"path":              path,
		"labels":            labels,
		"output":            output,
		"conflict_sets_out": setsOut,
		"preview":           true,
	}), &result)

	if result.Summary.InitialRegions != 4 || result.Summary.Regions != 7 {
		t.Errorf("regions: got %d initial, %d total; want 4 and 7",
			result.Summary.InitialRegions, result.Summary.Regions)
	}
	if result.Summary.Roots != 1 {
		t.Errorf("Roots: got %d, want 1", result.Summary.Roots)
	}
	if len(result.Files) != 2 {
		t.Errorf("Files: got %v, want the merge tree and conflict sets", result.Files)
	}
	if result.Preview == nil {
		t.Error("expected a preview")
	}

	sets, err := pipeline.ReadConflictSets(setsOut)
	if err != nil {
		t.Fatalf("ReadConflictSets failed: %v", err)
	}
	if len(sets) != 4 {
		t.Errorf("got %d conflict sets, want 4", len(sets))
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("missing merge tree: %v", err)
	}
}

func TestHandleToolsCall_MergeTreeBuildRequiresOutput(t *testing.T) {
	s := New(nil, "test")
	resp := callTool(t, s, "merge_tree_build", map[string]interface{}{
		"path": createMembraneFile(t, 20, 10),
	})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("expected tool error for missing output, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_MergeTreeBuildInvalidOptions(t *testing.T) {
	s := New(nil, "test")
	resp := callTool(t, s, "merge_tree_build", map[string]interface{}{
		"path":         createMembraneFile(t, 20, 10),
		"output":       filepath.Join(t.TempDir(), "tree.png"),
		"connectivity": 6,
	})
	if resp.Error == nil {
		t.Error("expected error for connectivity 6")
	}
}

func TestHandleToolsCall_ConflictSets(t *testing.T) {
	s := New(nil, "test")
	path := createMembraneFile(t, 20, 10)
	labels := createQuadrantLabelFile(t, 20, 10)

	var all ConflictSetsResult
	decodeResult(t, callTool(t, s, "merge_tree_conflict_sets", map[string]interface{}{
		"path":   path,
		"labels": labels,
	}), &all)

	if all.Total != 4 || len(all.ConflictSets) != 4 || all.Truncated {
		t.Fatalf("got %d of %d sets (truncated=%v), want all 4", len(all.ConflictSets), all.Total, all.Truncated)
	}
	for _, cs := range all.ConflictSets {
		if len(cs.Regions) < 2 || cs.Regions[0] != cs.Leaf {
			t.Errorf("label %d: conflict set %v should start at leaf %d and reach a parent",
				cs.Label, cs.Regions, cs.Leaf)
		}
	}

	var one ConflictSetsResult
	decodeResult(t, callTool(t, s, "merge_tree_conflict_sets", map[string]interface{}{
		"path":   path,
		"labels": labels,
		"label":  3,
	}), &one)
	if len(one.ConflictSets) != 1 || one.ConflictSets[0].Label != 3 {
		t.Errorf("label filter: got %+v, want the set of label 3", one.ConflictSets)
	}

	var limited ConflictSetsResult
	decodeResult(t, callTool(t, s, "merge_tree_conflict_sets", map[string]interface{}{
		"path":   path,
		"labels": labels,
		"limit":  1,
	}), &limited)
	if len(limited.ConflictSets) != 1 || !limited.Truncated || limited.Total != 4 {
		t.Errorf("limit: got %d sets of %d (truncated=%v)", len(limited.ConflictSets), limited.Total, limited.Truncated)
	}
}

func TestHandleToolsCall_ConflictSetsUnknownLabel(t *testing.T) {
	s := New(nil, "test")
	resp := callTool(t, s, "merge_tree_conflict_sets", map[string]interface{}{
		"path":   createMembraneFile(t, 20, 10),
		"labels": createQuadrantLabelFile(t, 20, 10),
		"label":  99,
	})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("expected tool error for unknown label, got %+v", resp.Error)
	}
}

func TestExecuteTool_AllTools(t *testing.T) {
	s := New(nil, "test")
	path := createMembraneFile(t, 20, 10)
	labels := createQuadrantLabelFile(t, 20, 10)
	output := filepath.Join(t.TempDir(), "tree.png")

	args := map[string]string{
		"image_load":               `{"path":"` + path + `"}`,
		"image_dimensions":         `{"path":"` + path + `"}`,
		"image_oversegment":        `{"path":"` + path + `","region_size":5}`,
		"merge_tree_build":         `{"path":"` + path + `","labels":"` + labels + `","output":"` + output + `"}`,
		"merge_tree_conflict_sets": `{"path":"` + path + `","labels":"` + labels + `"}`,
	}

	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			a, ok := args[tool.Name]
			if !ok {
				t.Fatalf("no test arguments for %s", tool.Name)
			}
			if _, err := s.executeTool(tool.Name, json.RawMessage(a)); err != nil {
				t.Errorf("executeTool(%s) failed: %v", tool.Name, err)
			}
		})
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New(nil, "test")
	for _, tool := range GetToolDefinitions() {
		if _, err := s.executeTool(tool.Name, json.RawMessage(`{invalid}`)); err == nil {
			t.Errorf("%s: expected error for invalid JSON", tool.Name)
		}
	}
}
