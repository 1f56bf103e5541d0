package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

// Embedded surface themes for beamdeck.
//
//go:embed themes/*.theme
var embeddedThemes embed.FS

var (
	loadThemesOnce sync.Once
	loadThemesErr  error

	themeData = map[string][]byte{}
)

func loadThemes() {
	entries, err := fs.ReadDir(embeddedThemes, "themes")
	if err != nil {
		loadThemesErr = err
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".theme") {
			continue
		}
		data, err := embeddedThemes.ReadFile(path.Join("themes", name))
		if err != nil {
			loadThemesErr = err
			return
		}
		themeData[strings.TrimSuffix(name, ".theme")] = data
	}
}

func ensureThemes() error {
	loadThemesOnce.Do(loadThemes)
	return loadThemesErr
}

// Theme returns a copy of the embedded theme file with the given name,
// without the .theme extension.
func Theme(name string) ([]byte, error) {
	if err := ensureThemes(); err != nil {
		return nil, err
	}
	data, ok := themeData[strings.TrimSuffix(name, ".theme")]
	if !ok {
		return nil, fmt.Errorf("theme %q not embedded", name)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// ThemeNames lists the embedded themes.
func ThemeNames() []string {
	if err := ensureThemes(); err != nil {
		return nil
	}
	names := make([]string, 0, len(themeData))
	for name := range themeData {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
