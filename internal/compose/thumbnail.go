package compose

import (
	"image"

	"github.com/nfnt/resize"

	"github.com/example/beamdeck/internal/geom"
)

// Thumbnail scales src to fit inside size x size with Lanczos resampling and
// turns it by the image rotation.
func Thumbnail(src image.Image, rot geom.Rotation, size int) *image.NRGBA {
	if src == nil || src.Bounds().Empty() || size <= 0 {
		return nil
	}
	small := resize.Thumbnail(uint(size), uint(size), src, resize.Lanczos3)
	return rotate(small, rot)
}
