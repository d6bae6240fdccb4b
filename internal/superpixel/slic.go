// Package superpixel oversegments a grayscale image into compact, connected
// regions using simple linear iterative clustering (SLIC). The result is the
// initial label image for region merging.
package superpixel

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/floats"
)

// intensityScale maps [0,1] intensities onto the range compactness is tuned
// for.
const intensityScale = 100

// Config controls SLIC oversegmentation.
type Config struct {
	// RegionSize is the seed spacing in pixels. Superpixels come out at
	// roughly RegionSize x RegionSize. Default: 10.
	RegionSize int

	// Compactness weighs spatial distance against intensity distance. Higher
	// values give more regular, less boundary-adherent superpixels.
	// Default: 10.
	Compactness float64

	// Iterations is the number of assignment/update rounds. Default: 10.
	Iterations int
}

// DefaultConfig returns the default oversegmentation settings.
func DefaultConfig() Config {
	return Config{
		RegionSize:  10,
		Compactness: 10,
		Iterations:  10,
	}
}

// Validate checks the config and reports all problems at once.
func (c Config) Validate() error {
	var err error
	if c.RegionSize < 1 {
		err = multierr.Append(err, errors.Errorf("superpixel: RegionSize must be >= 1, got %d", c.RegionSize))
	}
	if c.Compactness <= 0 {
		err = multierr.Append(err, errors.Errorf("superpixel: Compactness must be > 0, got %v", c.Compactness))
	}
	if c.Iterations < 1 {
		err = multierr.Append(err, errors.Errorf("superpixel: Iterations must be >= 1, got %d", c.Iterations))
	}
	return err
}

// Labels is a row-major label image. Labels run from 1 to Count and every
// label forms one 4-connected region.
type Labels struct {
	Width  int
	Height int
	Values []int
	Count  int
}

type center struct {
	i, x, y float64
}

type slic struct {
	w, h        int
	step        int
	intensities []float64
	centers     []center
	labels      []int
	dist        []float64
}

// Segment computes SLIC superpixels of a [0,1] intensity image.
func Segment(intensities []float64, width, height int, cfg Config) (*Labels, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("superpixel: invalid size %dx%d", width, height)
	}
	if len(intensities) != width*height {
		return nil, errors.Errorf("superpixel: %d intensities for a %dx%d image", len(intensities), width, height)
	}

	s := &slic{
		w:           width,
		h:           height,
		step:        cfg.RegionSize,
		intensities: floats.ScaleTo(make([]float64, len(intensities)), intensityScale, intensities),
		labels:      make([]int, len(intensities)),
		dist:        make([]float64, len(intensities)),
	}
	s.seed()

	for it := 0; it < cfg.Iterations; it++ {
		s.assign(cfg.Compactness)
		s.update()
	}

	values, count := s.enforceConnectivity()
	return &Labels{Width: width, Height: height, Values: values, Count: count}, nil
}

// seed places one center per grid cell and nudges it to the lowest-gradient
// pixel of its 3x3 neighborhood, so seeds do not start on an edge.
func (s *slic) seed() {
	xStrips := max(1, int(0.5+float64(s.w)/float64(s.step)))
	yStrips := max(1, int(0.5+float64(s.h)/float64(s.step)))

	s.centers = make([]center, 0, xStrips*yStrips)
	for ys := 0; ys < yStrips; ys++ {
		y := int((float64(ys) + 0.5) * float64(s.h) / float64(yStrips))
		for xs := 0; xs < xStrips; xs++ {
			x := int((float64(xs) + 0.5) * float64(s.w) / float64(xStrips))
			sx, sy := s.lowestGradient(x, y)
			s.centers = append(s.centers, center{
				i: s.intensities[sy*s.w+sx],
				x: float64(sx),
				y: float64(sy),
			})
		}
	}
}

func (s *slic) lowestGradient(cx, cy int) (int, int) {
	bx, by := cx, cy
	best := s.gradient(cx, cy)
	for y := cy - 1; y <= cy+1; y++ {
		for x := cx - 1; x <= cx+1; x++ {
			if g := s.gradient(x, y); g < best {
				best, bx, by = g, x, y
			}
		}
	}
	return bx, by
}

// gradient is the squared central-difference gradient at (x, y), or +Inf on
// the image border.
func (s *slic) gradient(x, y int) float64 {
	if x < 1 || y < 1 || x >= s.w-1 || y >= s.h-1 {
		return math.Inf(1)
	}
	dx := s.intensities[y*s.w+x+1] - s.intensities[y*s.w+x-1]
	dy := s.intensities[(y+1)*s.w+x] - s.intensities[(y-1)*s.w+x]
	return dx*dx + dy*dy
}

// assign labels every pixel with the nearest center within a 2S window.
func (s *slic) assign(compactness float64) {
	for i := range s.dist {
		s.dist[i] = math.MaxFloat64
		s.labels[i] = -1
	}

	fstep := float64(s.step)
	invwt := (compactness / fstep) * (compactness / fstep)

	for k, c := range s.centers {
		y1 := int(math.Max(0, c.y-fstep))
		y2 := int(math.Min(float64(s.h), c.y+fstep+1))
		x1 := int(math.Max(0, c.x-fstep))
		x2 := int(math.Min(float64(s.w), c.x+fstep+1))

		for y := y1; y < y2; y++ {
			for x := x1; x < x2; x++ {
				i := y*s.w + x
				di := s.intensities[i] - c.i
				dx, dy := float64(x)-c.x, float64(y)-c.y
				d := di*di + (dx*dx+dy*dy)*invwt
				if d < s.dist[i] {
					s.dist[i] = d
					s.labels[i] = k
				}
			}
		}
	}
}

// update moves every center to the mean of its pixels. Centers that lost all
// pixels stay where they are.
func (s *slic) update() {
	n := len(s.centers)
	sumI := make([]float64, n)
	sumX := make([]float64, n)
	sumY := make([]float64, n)
	count := make([]float64, n)

	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			i := y*s.w + x
			k := s.labels[i]
			if k < 0 {
				continue
			}
			sumI[k] += s.intensities[i]
			sumX[k] += float64(x)
			sumY[k] += float64(y)
			count[k]++
		}
	}

	for k := range s.centers {
		if count[k] == 0 {
			continue
		}
		s.centers[k] = center{
			i: sumI[k] / count[k],
			x: sumX[k] / count[k],
			y: sumY[k] / count[k],
		}
	}
}

var (
	dx4 = [4]int{-1, 0, 1, 0}
	dy4 = [4]int{0, -1, 0, 1}
)

// enforceConnectivity relabels the image into 4-connected segments numbered
// from 1 in scan order. Segments of at most a quarter of the expected
// superpixel area are absorbed into an adjacent, already numbered segment.
func (s *slic) enforceConnectivity() ([]int, int) {
	size := s.w * s.h
	minSize := (s.step * s.step) >> 2

	out := make([]int, size)
	queue := make([]int, 0, size)
	label := 0

	for start := 0; start < size; start++ {
		if out[start] != 0 {
			continue
		}
		label++
		out[start] = label

		adjacent := 0
		sx, sy := start%s.w, start/s.w
		for n := 0; n < 4; n++ {
			x, y := sx+dx4[n], sy+dy4[n]
			if x >= 0 && x < s.w && y >= 0 && y < s.h && out[y*s.w+x] != 0 && out[y*s.w+x] != label {
				adjacent = out[y*s.w+x]
			}
		}

		queue = append(queue[:0], start)
		for c := 0; c < len(queue); c++ {
			px, py := queue[c]%s.w, queue[c]/s.w
			for n := 0; n < 4; n++ {
				x, y := px+dx4[n], py+dy4[n]
				if x < 0 || x >= s.w || y < 0 || y >= s.h {
					continue
				}
				j := y*s.w + x
				if out[j] == 0 && s.labels[j] == s.labels[start] {
					out[j] = label
					queue = append(queue, j)
				}
			}
		}

		if len(queue) <= minSize && adjacent != 0 {
			for _, j := range queue {
				out[j] = adjacent
			}
			label--
		}
	}
	return out, label
}
