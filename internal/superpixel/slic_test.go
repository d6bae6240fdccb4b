package superpixel

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func uniform(w, h int, v float64) []float64 {
	out := make([]float64, w*h)
	for i := range out {
		out[i] = v
	}
	return out
}

// halves is dark on the left half and bright on the right half.
func halves(w, h int) []float64 {
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			out[y*w+x] = 1
		}
	}
	return out
}

// checkLabels verifies labels run from 1 to Count and every label is one
// 4-connected component.
func checkLabels(t *testing.T, l *Labels) {
	t.Helper()
	seen := make(map[int]bool)
	for i, v := range l.Values {
		if v < 1 || v > l.Count {
			t.Fatalf("pixel %d: label %d outside 1..%d", i, v, l.Count)
		}
		seen[v] = true
	}
	if len(seen) != l.Count {
		t.Errorf("labels used: %d, Count: %d", len(seen), l.Count)
	}

	components := 0
	visited := make([]bool, len(l.Values))
	for start := range l.Values {
		if visited[start] {
			continue
		}
		components++
		visited[start] = true
		stack := []int{start}
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			px, py := p%l.Width, p/l.Width
			for n := 0; n < 4; n++ {
				x, y := px+dx4[n], py+dy4[n]
				if x < 0 || x >= l.Width || y < 0 || y >= l.Height {
					continue
				}
				j := y*l.Width + x
				if !visited[j] && l.Values[j] == l.Values[p] {
					visited[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	if components != l.Count {
		t.Errorf("connected components: %d, labels: %d", components, l.Count)
	}
}

func TestSegment_Uniform(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RegionSize = 5
	l, err := Segment(uniform(20, 20, 0.5), 20, 20, cfg)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	checkLabels(t, l)
	if l.Count != 16 {
		t.Errorf("Count: got %d, want 16 for a 4x4 seed grid", l.Count)
	}
}

func TestSegment_FollowsEdges(t *testing.T) {
	w, h := 24, 12
	cfg := Config{RegionSize: 6, Compactness: 1, Iterations: 10}
	l, err := Segment(halves(w, h), w, h, cfg)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	checkLabels(t, l)

	left := make(map[int]bool)
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			left[l.Values[y*w+x]] = true
		}
	}
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			if v := l.Values[y*w+x]; left[v] {
				t.Fatalf("label %d crosses the intensity edge", v)
			}
		}
	}
}

func TestSegment_Deterministic(t *testing.T) {
	img := halves(17, 13)
	for i := range img {
		img[i] += float64(i%7) * 0.01
	}
	a, err := Segment(img, 17, 13, DefaultConfig())
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	b, _ := Segment(img, 17, 13, DefaultConfig())
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("results differ (-first +second):\n%s", diff)
	}
	checkLabels(t, a)
}

func TestSegment_RegionLargerThanImage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RegionSize = 50
	l, err := Segment(uniform(7, 3, 0), 7, 3, cfg)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	if l.Count != 1 {
		t.Errorf("Count: got %d, want 1", l.Count)
	}
	checkLabels(t, l)
}

func TestSegment_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input []float64
		w, h  int
		cfg   Config
	}{
		{"size mismatch", make([]float64, 5), 2, 2, DefaultConfig()},
		{"empty", nil, 0, 0, DefaultConfig()},
		{"bad config", make([]float64, 4), 2, 2, Config{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Segment(tt.input, tt.w, tt.h, tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}
