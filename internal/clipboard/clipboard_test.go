package clipboard

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"
)

func TestEncodeRejectsEmpty(t *testing.T) {
	if _, err := encode(nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty for nil, got %v", err)
	}
	if err := WriteImage(image.NewNRGBA(image.Rectangle{})); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty for empty bounds, got %v", err)
	}
}

func TestEncodeProducesPNG(t *testing.T) {
	data, err := encode(image.NewNRGBA(image.Rect(0, 0, 3, 2)))
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("not a PNG: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Errorf("bounds %v", img.Bounds())
	}
}
