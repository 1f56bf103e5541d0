package surface

import (
	"fmt"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontOnce sync.Once
	fontTTF  *truetype.Font
	fontErr  error

	facesMu sync.Mutex
	faces   = map[float64]font.Face{}
)

// Face returns the Go Regular face at the given point size. If the font
// cannot be parsed the fixed basic face is returned along with the error.
func Face(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		fontTTF, fontErr = truetype.Parse(goregular.TTF)
		if fontErr != nil {
			fontErr = fmt.Errorf("parse font: %w", fontErr)
		}
	})
	if fontErr != nil {
		return basicfont.Face7x13, fontErr
	}
	facesMu.Lock()
	defer facesMu.Unlock()
	if f, ok := faces[size]; ok {
		return f, nil
	}
	f := truetype.NewFace(fontTTF, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	faces[size] = f
	return f, nil
}
