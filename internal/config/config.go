package config

import (
	"fmt"
	"image/color"
	"sort"
	"strings"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/theme"
)

// Notify holds notification settings.
type Notify struct {
	Save   bool
	Export bool
	Copy   bool
}

// Config holds the application configuration.
type Config struct {
	Theme      string
	GalleryDir string
	ExportDir  string
	// Background is the initial projector background.
	Background color.NRGBA
	Aspect     float64
	LogLevel   string
	LogFormat  string
	Workers    int
	CacheSize  int

	Notify       Notify
	Pen          canvas.Style
	Highlighter  canvas.Style
	PointerStyle canvas.PointerStyle
	Themes       map[string]*theme.Theme
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Theme:        "", // Default to empty to allow fallback to Env/Default
		Background:   color.NRGBA{A: 255},
		Aspect:       canvas.DefaultAspect,
		LogLevel:     "info",
		LogFormat:    "text",
		Workers:      2,
		CacheSize:    32,
		Pen:          canvas.DefaultPen,
		Highlighter:  canvas.DefaultHighlighter,
		PointerStyle: canvas.PointerGlow,
		Themes:       make(map[string]*theme.Theme),
	}
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	// Root section
	if c.Theme != "" {
		fmt.Fprintf(&sb, "theme = %s\n", c.Theme)
	}
	if c.GalleryDir != "" {
		fmt.Fprintf(&sb, "gallery_dir = %s\n", c.GalleryDir)
	}
	if c.ExportDir != "" {
		fmt.Fprintf(&sb, "export_dir = %s\n", c.ExportDir)
	}
	fmt.Fprintf(&sb, "background = %s\n", theme.Hex(c.Background))
	fmt.Fprintf(&sb, "aspect = %g\n", c.Aspect)
	fmt.Fprintf(&sb, "log_level = %s\n", c.LogLevel)
	fmt.Fprintf(&sb, "log_format = %s\n", c.LogFormat)
	fmt.Fprintf(&sb, "workers = %d\n", c.Workers)
	fmt.Fprintf(&sb, "cache_size = %d\n", c.CacheSize)
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "save = %v\n", c.Notify.Save)
	fmt.Fprintf(&sb, "export = %v\n", c.Notify.Export)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)
	sb.WriteString("\n")

	writeStyle(&sb, "pen", c.Pen)
	writeStyle(&sb, "highlighter", c.Highlighter)

	sb.WriteString("[pointer]\n")
	fmt.Fprintf(&sb, "style = %s\n", c.PointerStyle)
	sb.WriteString("\n")

	// Sort keys for deterministic output
	var themeNames []string
	for name := range c.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	for _, name := range themeNames {
		t := c.Themes[name]
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		fmt.Fprintf(&sb, "Name: %s\n", t.Name)
		for _, nc := range theme.Fields(t) {
			fmt.Fprintf(&sb, "%s: %s\n", nc.Name, theme.Hex(nc.Color))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeStyle(sb *strings.Builder, section string, s canvas.Style) {
	fmt.Fprintf(sb, "[%s]\n", section)
	fmt.Fprintf(sb, "color = %s\n", theme.Hex(s.Color))
	fmt.Fprintf(sb, "thickness = %g\n", s.Thickness)
	sb.WriteString("\n")
}

// ResolveTheme picks the theme named by override, then the config, from
// the config's own theme blocks or the theme loader.
func (c *Config) ResolveTheme(override string) (*theme.Theme, error) {
	name := override
	if name == "" {
		name = c.Theme
	}
	if name == "" {
		return theme.Default(), nil
	}
	if t, ok := c.Themes[name]; ok {
		return t, nil
	}
	return theme.NewLoader().Load(name)
}
