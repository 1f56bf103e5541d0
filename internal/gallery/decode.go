package gallery

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Extensions lists the file extensions a folder scan picks up.
var Extensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".webp", ".tiff", ".tif"}

// Supported reports whether path has an image extension the gallery decodes.
func Supported(path string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(path)))
}

// Decode reads and decodes the image at path.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decode %s: empty %s image", path, format)
	}
	return img, nil
}

// Scan lists the supported images directly inside dir, sorted by file name.
func Scan(dir string) ([]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, de := range des {
		if de.IsDir() || !Supported(de.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, de.Name()))
	}
	slices.SortFunc(paths, func(a, b string) int {
		return strings.Compare(strings.ToLower(filepath.Base(a)), strings.ToLower(filepath.Base(b)))
	})
	return paths, nil
}
