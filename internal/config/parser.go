package config

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/theme"
)

// Parse reads configuration from an io.Reader.
func Parse(r io.Reader) (*Config, error) {
	cfg := New()
	scanner := bufio.NewScanner(r)

	var currentSection string
	var currentTheme *theme.Theme

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentSection = strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(line, "["), "]"))
			currentTheme = nil

			if strings.HasPrefix(currentSection, "theme.") {
				themeName := strings.TrimPrefix(currentSection, "theme.")
				// Start with defaults so missing keys are fine
				currentTheme = theme.Default()
				currentTheme.Name = themeName
				cfg.Themes[themeName] = currentTheme
			}
			continue
		}

		// Key = Value or Key: Value
		var parts []string
		if strings.Contains(line, "=") {
			parts = strings.SplitN(line, "=", 2)
		} else if strings.Contains(line, ":") {
			parts = strings.SplitN(line, ":", 2)
		} else {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") && len(value) >= 2 {
			value = value[1 : len(value)-1]
		}

		var err error
		switch {
		case currentTheme != nil:
			err = theme.SetField(currentTheme, key, value)
		case currentSection == "notify":
			err = setNotifyField(&cfg.Notify, key, value)
		case currentSection == "pen":
			err = setStyleField(&cfg.Pen, key, value)
		case currentSection == "highlighter":
			err = setStyleField(&cfg.Highlighter, key, value)
		case currentSection == "pointer":
			err = setPointerField(cfg, key, value)
		case currentSection == "":
			err = setRootField(cfg, key, value)
		}
		if err != nil {
			section := currentSection
			if section == "" {
				section = "root"
			}
			return nil, fmt.Errorf("error in section [%s]: %w", section, err)
		}
	}

	return cfg, scanner.Err()
}

func setRootField(cfg *Config, key, value string) error {
	switch strings.ToLower(key) {
	case "theme":
		cfg.Theme = value
	case "gallery_dir":
		cfg.GalleryDir = value
	case "export_dir":
		cfg.ExportDir = value
	case "background":
		c, err := ParseColor(value)
		if err != nil {
			return fmt.Errorf("invalid color for key %s: %w", key, err)
		}
		cfg.Background = c
	case "aspect":
		a, err := ParseAspect(value)
		if err != nil {
			return err
		}
		cfg.Aspect = a
	case "log_level":
		cfg.LogLevel = strings.ToLower(value)
	case "log_format":
		cfg.LogFormat = strings.ToLower(value)
	case "workers", "cache_size":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid count for key %s: %q", key, value)
		}
		if strings.EqualFold(key, "workers") {
			cfg.Workers = n
		} else {
			cfg.CacheSize = n
		}
	}
	return nil
}

func setNotifyField(n *Notify, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean for key %s: %w", key, err)
	}
	switch strings.ToLower(key) {
	case "save":
		n.Save = b
	case "export":
		n.Export = b
	case "copy":
		n.Copy = b
	}
	return nil
}

func setStyleField(s *canvas.Style, key, value string) error {
	switch strings.ToLower(key) {
	case "color", "colour":
		c, err := ParseColor(value)
		if err != nil {
			return fmt.Errorf("invalid color for key %s: %w", key, err)
		}
		s.Color = c
	case "thickness":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || !(f > 0) {
			return fmt.Errorf("invalid thickness %q", value)
		}
		s.Thickness = f
	}
	return nil
}

func setPointerField(cfg *Config, key, value string) error {
	if !strings.EqualFold(key, "style") {
		return nil
	}
	p, err := canvas.ParsePointerStyle(value)
	if err != nil {
		return err
	}
	cfg.PointerStyle = p
	return nil
}

// ParseColor accepts #RRGGBB, #RRGGBBAA or an SVG colour name.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}
	return theme.ParseColor(s)
}

// ParseAspect accepts a ratio such as "16:9" or "4/3", or a plain number.
func ParseAspect(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ":/x"); i > 0 {
		w, err1 := strconv.ParseFloat(strings.TrimSpace(s[:i]), 64)
		h, err2 := strconv.ParseFloat(strings.TrimSpace(s[i+1:]), 64)
		if err1 != nil || err2 != nil || !(w > 0) || !(h > 0) {
			return 0, fmt.Errorf("invalid aspect %q", s)
		}
		return w / h, nil
	}
	a, err := strconv.ParseFloat(s, 64)
	if err != nil || !(a > 0) {
		return 0, fmt.Errorf("invalid aspect %q", s)
	}
	return a, nil
}
