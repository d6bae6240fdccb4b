// Package imaging provides the image input and output of the merge-tree
// pipeline.
//
// It loads source images and label images, converts them into the flat,
// row-major arrays the merging engine works on, and turns results back into
// images: the 16-bit merge-tree image, colorized label maps and boundary
// overlays. All operations work with standard Go image.Image types and use a
// coordinate system where (0,0) is at the top-left corner, X increases
// rightward, and Y increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Pixel (x, y) is at index y*width + x in every flat array
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Supported Formats
//
// PNG, JPEG, GIF, TIFF and BMP can be read. 16-bit grayscale PNG and TIFF keep
// their full precision, both for intensities and for label values.
// Merge-tree images are written as 16-bit grayscale, PNG or TIFF depending on
// the file extension.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and can be called concurrently on different images.
//
// # Label Encoding
//
// Label images store one label per pixel:
//   - Gray and Gray16 images: the gray value is the label
//   - Color images: the label is r<<16 | g<<8 | b of the 8-bit channels
//
// Label 0 is treated like any other label by the merging engine.
package imaging
