// Package monitor lists the attached displays and picks the one the
// projector window opens on.
package monitor

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Info describes an individual monitor in the display layout.
type Info struct {
	Index   int
	Name    string
	Rect    image.Rectangle
	Primary bool
}

// Aspect returns width over height, or 0 for an empty rectangle.
func (m Info) Aspect() float64 {
	if m.Rect.Empty() {
		return 0
	}
	return float64(m.Rect.Dx()) / float64(m.Rect.Dy())
}

func (m Info) String() string {
	p := ""
	if m.Primary {
		p = " primary"
	}
	return fmt.Sprintf("%d: %s %dx%d+%d+%d%s", m.Index, m.Name, m.Rect.Dx(), m.Rect.Dy(), m.Rect.Min.X, m.Rect.Min.Y, p)
}

type platformBackend interface {
	List() ([]Info, error)
}

var (
	backend = newBackend()

	// ErrNoMonitors is returned when the display layout is empty or unknown.
	ErrNoMonitors = errors.New("no monitors available")
)

// List retrieves all monitors using the platform backend.
func List() ([]Info, error) {
	return backend.List()
}

// Find resolves a selector against monitors. The selector is empty (first
// monitor), "primary", an index with optional "#" prefix, or part of the
// output name.
func Find(monitors []Info, selector string) (Info, error) {
	if len(monitors) == 0 {
		return Info{}, ErrNoMonitors
	}
	sel := strings.ToLower(strings.TrimSpace(selector))
	if sel == "" {
		return monitors[0], nil
	}
	if sel == "primary" {
		for _, mon := range monitors {
			if mon.Primary {
				return mon, nil
			}
		}
		return monitors[0], nil
	}
	if idx, err := strconv.Atoi(strings.TrimPrefix(sel, "#")); err == nil {
		if idx < 0 || idx >= len(monitors) {
			return Info{}, fmt.Errorf("monitor index %d out of range", idx)
		}
		return monitors[idx], nil
	}
	for _, mon := range monitors {
		if strings.Contains(strings.ToLower(mon.Name), sel) {
			return mon, nil
		}
	}
	return Info{}, fmt.Errorf("monitor %q not found", selector)
}

// Projector picks the projector monitor: the selector when given, otherwise
// the first monitor that is not primary, otherwise the first monitor.
func Projector(monitors []Info, selector string) (Info, error) {
	if strings.TrimSpace(selector) != "" {
		return Find(monitors, selector)
	}
	if len(monitors) == 0 {
		return Info{}, ErrNoMonitors
	}
	for _, mon := range monitors {
		if !mon.Primary {
			return mon, nil
		}
	}
	return monitors[0], nil
}
