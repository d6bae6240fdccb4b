package imaging

import (
	"image"
	_ "image/gif" // Register GIF format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// DefaultCacheCapacity is the number of decoded images NewImageCache keeps.
const DefaultCacheCapacity = 16

// ImageCache keeps decoded images by path so that a source which is first
// oversegmented and then merged is read from disk once.
//
// An entry is reused only while the file's size and modification time are
// unchanged, so label images rewritten between two calls are decoded again.
// When more than the capacity are held, the least recently used is dropped;
// electron microscopy sections are large.
//
// ImageCache is safe for concurrent use.
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/data/section_042.tif")
//	if err != nil {
//	    return err
//	}
//	intensities := imaging.Intensities(img, 0)
type ImageCache struct {
	mu       sync.Mutex
	entries  map[string]*cacheEntry
	capacity int
	tick     uint64
}

type cacheEntry struct {
	img     image.Image
	modTime time.Time
	size    int64
	lastUse uint64
}

// NewImageCache returns an empty cache holding up to DefaultCacheCapacity
// images.
func NewImageCache() *ImageCache {
	return NewImageCacheWithCapacity(DefaultCacheCapacity)
}

// NewImageCacheWithCapacity returns an empty cache holding up to capacity
// images. A capacity <= 0 never evicts.
func NewImageCacheWithCapacity(capacity int) *ImageCache {
	return &ImageCache{
		entries:  make(map[string]*cacheEntry),
		capacity: capacity,
	}
}

// Load returns the decoded image at path, from the cache when the file has not
// changed since it was decoded. Supported formats are PNG, JPEG, GIF, TIFF and
// BMP; the concrete type follows the file (e.g. *image.Gray16 for 16-bit label
// images). Entries are keyed by the path string as given.
func (c *ImageCache) Load(path string) (image.Image, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load image %s", path)
	}

	c.mu.Lock()
	if e, ok := c.entries[path]; ok && e.size == fi.Size() && e.modTime.Equal(fi.ModTime()) {
		c.tick++
		e.lastUse = c.tick
		c.mu.Unlock()
		return e.img, nil
	}
	c.mu.Unlock()

	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load image %s", path)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick++
	c.entries[path] = &cacheEntry{
		img:     img,
		modTime: fi.ModTime(),
		size:    fi.Size(),
		lastUse: c.tick,
	}
	for c.capacity > 0 && len(c.entries) > c.capacity {
		oldest := lo.MinBy(lo.Entries(c.entries), func(a, b lo.Entry[string, *cacheEntry]) bool {
			return a.Value.lastUse < b.Value.lastUse
		})
		delete(c.entries, oldest.Key)
	}
	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every cached image.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Evict drops the image cached for path, if any.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Pixels is Width*Height, the size of every per-pixel array derived from
	// the image.
	Pixels int `json:"pixels"`

	// Format is the detected image format: "png", "jpeg", "gif", "tiff", "bmp"
	// or "unknown". Detection is based on file extension, not file contents.
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// Grayscale is true for single-channel images, the usual case for
	// microscopy sections and label images.
	Grayscale bool `json:"grayscale"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image and returns metadata about it.
//
// Parameters:
//   - cache: The image cache to use for loading. Must not be nil.
//   - path: Path to the image file.
//
// Returns:
//   - *ImageInfo: Metadata about the image.
//   - error: Non-nil if the image cannot be loaded or the file cannot be stat'd.
//
// # Color Depth Detection
//
// Color depth is determined by the Go image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat file")
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	case ".tif", ".tiff":
		format = "tiff"
	case ".bmp":
		format = "bmp"
	}

	info := &ImageInfo{
		Width:         img.Bounds().Dx(),
		Height:        img.Bounds().Dy(),
		Format:        format,
		ColorDepth:    "8-bit",
		FileSizeBytes: stat.Size(),
	}
	info.Pixels = info.Width * info.Height

	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		info.HasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		info.HasAlpha = true
		info.ColorDepth = "16-bit"
	case *image.Gray:
		info.Grayscale = true
	case *image.Gray16:
		info.Grayscale = true
		info.ColorDepth = "16-bit"
	}

	return info, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image without additional metadata.
// The image is loaded into the cache if not already present.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
