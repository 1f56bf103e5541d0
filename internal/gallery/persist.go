package gallery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/geom"
	"github.com/example/beamdeck/internal/theme"
)

// Record is one gallery entry as stored on disk.
type Record struct {
	Path  string
	Name  string
	State canvas.State
}

type fileEntry struct {
	Path  string    `json:"path"`
	Name  string    `json:"name"`
	State fileState `json:"state"`
}

type fileState struct {
	Rotation        int               `json:"rotation"`
	Brightness      *float64          `json:"brightness,omitempty"`
	ContrastApplied bool              `json:"contrast_applied"`
	DisplayMode     string            `json:"display_mode,omitempty"`
	ZoomEnabled     bool              `json:"zoom_enabled"`
	ZoomRect        []float64         `json:"zoom_rect,omitempty"`
	LupaRotation    int               `json:"lupa_rotation"`
	Strokes         []json.RawMessage `json:"strokes"`
	Aspect          *float64          `json:"projection_aspect_ratio,omitempty"`
}

type fileStroke struct {
	Points    []filePoint `json:"points"`
	Color     string      `json:"color,omitempty"`
	Thickness *float64    `json:"thickness,omitempty"`
	Tool      string      `json:"tool,omitempty"`
}

type filePoint struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

const (
	defaultStrokeColor     = "#ff0000"
	defaultStrokeThickness = 5.0
)

// Encode writes records as an indented JSON gallery.
func Encode(w io.Writer, recs []Record) error {
	out := make([]fileEntry, 0, len(recs))
	for _, r := range recs {
		out = append(out, toFile(r))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode gallery: %w", err)
	}
	return nil
}

func toFile(r Record) fileEntry {
	st := r.State
	b, a := st.Brightness, st.Aspect
	fs := fileState{
		Rotation:        int(st.Rotation),
		Brightness:      &b,
		ContrastApplied: st.AutoContrast,
		DisplayMode:     st.DisplayMode.String(),
		ZoomEnabled:     st.ROIEnabled,
		ZoomRect:        []float64{st.ROI.X, st.ROI.Y, st.ROI.W, st.ROI.H},
		LupaRotation:    int(st.ROIRotation),
		Strokes:         make([]json.RawMessage, 0, len(st.Strokes)),
		Aspect:          &a,
	}
	for _, s := range st.Strokes {
		fsk := fileStroke{Color: theme.Hex(s.Color), Thickness: &s.Thickness}
		if s.Tool != canvas.ToolNone && s.Tool != canvas.ToolPen {
			fsk.Tool = s.Tool.String()
		}
		for _, p := range s.Points {
			x, y := p.X, p.Y
			fsk.Points = append(fsk.Points, filePoint{X: &x, Y: &y})
		}
		raw, err := json.Marshal(fsk)
		if err != nil {
			continue
		}
		fs.Strokes = append(fs.Strokes, raw)
	}
	return fileEntry{Path: r.Path, Name: r.Name, State: fs}
}

// ErrPartial marks a gallery that loaded with some pieces dropped.
var ErrPartial = errors.New("gallery partially loaded")

// DecodeRecords reads a JSON gallery. Problems confined to a single stroke
// or field drop that piece only; the records are still returned together
// with an error matching ErrPartial that lists what was dropped.
func DecodeRecords(r io.Reader) ([]Record, error) {
	var in []fileEntry
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode gallery: %w", err)
	}
	var warns []error
	recs := make([]Record, 0, len(in))
	for i, fe := range in {
		if fe.Path == "" {
			warns = append(warns, fmt.Errorf("entry %d: missing path", i))
			continue
		}
		st, ws := fromFile(fe.State)
		for _, w := range ws {
			warns = append(warns, fmt.Errorf("%s: %w", fe.Path, w))
		}
		name := fe.Name
		if name == "" {
			name = displayName(fe.Path)
		}
		recs = append(recs, Record{Path: fe.Path, Name: name, State: st})
	}
	if len(warns) > 0 {
		return recs, fmt.Errorf("%w: %w", ErrPartial, errors.Join(warns...))
	}
	return recs, nil
}

func fromFile(fs fileState) (canvas.State, []error) {
	var warns []error
	st := canvas.DefaultState()

	if r, err := geom.NormalizeRotation(fs.Rotation); err == nil {
		st.Rotation = r
	} else {
		warns = append(warns, fmt.Errorf("rotation: %w", err))
	}
	if fs.Brightness != nil {
		st.Brightness = *fs.Brightness
	}
	st.AutoContrast = fs.ContrastApplied
	if fs.DisplayMode != "" {
		if m, err := canvas.ParseDisplayMode(fs.DisplayMode); err == nil {
			st.DisplayMode = m
		} else {
			warns = append(warns, err)
		}
	}
	st.ROIEnabled = fs.ZoomEnabled
	switch {
	case len(fs.ZoomRect) == 4:
		st.ROI = canvas.NormalizedRect{X: fs.ZoomRect[0], Y: fs.ZoomRect[1], W: fs.ZoomRect[2], H: fs.ZoomRect[3]}
	case fs.ZoomRect != nil:
		warns = append(warns, fmt.Errorf("zoom_rect: want 4 values, got %d", len(fs.ZoomRect)))
	}
	if r, err := geom.NormalizeRotation(fs.LupaRotation); err == nil {
		st.ROIRotation = r
	} else {
		warns = append(warns, fmt.Errorf("lupa_rotation: %w", err))
	}
	if fs.Aspect != nil {
		st.Aspect = *fs.Aspect
	}
	for i, raw := range fs.Strokes {
		s, err := decodeStroke(raw)
		if err != nil {
			warns = append(warns, fmt.Errorf("stroke %d dropped: %w", i, err))
			continue
		}
		st.Strokes = append(st.Strokes, s)
	}
	st.Magnifier = 0
	return st, warns
}

func decodeStroke(raw json.RawMessage) (canvas.Stroke, error) {
	var fsk fileStroke
	if err := json.Unmarshal(raw, &fsk); err != nil {
		return canvas.Stroke{}, err
	}
	s := canvas.Stroke{Thickness: defaultStrokeThickness, Tool: canvas.ToolPen}
	hex := fsk.Color
	if hex == "" {
		hex = defaultStrokeColor
	}
	c, err := theme.ParseColor(hex)
	if err != nil {
		return canvas.Stroke{}, fmt.Errorf("color %q: %w", hex, err)
	}
	s.Color = c
	if fsk.Thickness != nil {
		s.Thickness = *fsk.Thickness
	}
	if fsk.Tool != "" {
		t, err := canvas.ParseTool(fsk.Tool)
		if err != nil || !t.Draws() {
			return canvas.Stroke{}, fmt.Errorf("tool %q is not a drawing tool", fsk.Tool)
		}
		s.Tool = t
	}
	for j, p := range fsk.Points {
		if p.X == nil || p.Y == nil {
			return canvas.Stroke{}, fmt.Errorf("point %d: missing coordinate", j)
		}
		x, y := *p.X, *p.Y
		if !(x >= 0 && x <= 1 && y >= 0 && y <= 1) {
			return canvas.Stroke{}, fmt.Errorf("point %d: (%v, %v) outside the image", j, x, y)
		}
		s.Points = append(s.Points, geom.Pt(x, y))
	}
	if !s.Valid() {
		switch {
		case len(s.Points) < 2:
			return canvas.Stroke{}, fmt.Errorf("%d points", len(s.Points))
		case !(s.Thickness > 0) || math.IsInf(s.Thickness, 0):
			return canvas.Stroke{}, fmt.Errorf("thickness %v", s.Thickness)
		}
		return canvas.Stroke{}, errors.New("non-finite coordinate")
	}
	return s, nil
}
