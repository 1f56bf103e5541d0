// Package clipboard publishes projector frames on the system clipboard.
package clipboard

import (
	"bytes"
	"errors"
	"image"
	"image/png"
)

// ErrEmpty is returned when there is no image to copy.
var ErrEmpty = errors.New("clipboard: nothing to copy")

// WriteImage encodes img as PNG and publishes it on the clipboard.
func WriteImage(img image.Image) error {
	data, err := encode(img)
	if err != nil {
		return err
	}
	return writeImage(data)
}

func encode(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmpty
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
