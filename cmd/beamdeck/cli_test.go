package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/beamdeck/internal/config"
	"github.com/example/beamdeck/internal/console"
	"github.com/example/beamdeck/internal/geom"
	"github.com/example/beamdeck/internal/monitor"
)

func testRoot(out io.Writer) *root {
	return &root{
		program: "beamdeck",
		config:  config.New(),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		stdout:  out,
	}
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 120, G: 80, B: 40, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func readPNGSize(t *testing.T, path string) image.Point {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return image.Pt(cfg.Width, cfg.Height)
}

func TestRenderRunDecodeError(t *testing.T) {
	original := decodeImageFn
	sentinel := errors.New("corrupt")
	decodeImageFn = func(string) (image.Image, error) { return nil, sentinel }
	t.Cleanup(func() { decodeImageFn = original })

	cmd, err := parseRenderCmd([]string{"-o", "out.png", "slide.png"}, testRoot(io.Discard))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := cmd.Run(); err == nil {
		t.Fatalf("expected error")
	} else {
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected wrapped error, got %v", err)
		}
		if want := "failed to open slide.png"; !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to contain %q, got %v", want, err)
		}
	}
}

func TestRenderMagnifierAndRotation(t *testing.T) {
	dir := t.TempDir()
	in := writePNG(t, dir, "slide.png", 100, 50)
	out := filepath.Join(dir, "out.png")

	cmd, err := parseRenderCmd([]string{"-o", out, "-magnifier", "50", "-rotate", "90", in}, testRoot(io.Discard))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("render: %v", err)
	}
	if got, want := readPNGSize(t, out), image.Pt(26, 50); got != want {
		t.Fatalf("frame size %v, want %v", got, want)
	}
}

func TestRenderShadowToStdout(t *testing.T) {
	dir := t.TempDir()
	in := writePNG(t, dir, "slide.png", 100, 50)
	var buf bytes.Buffer

	cmd, err := parseRenderCmd([]string{"-o", "-", "-shadow", in}, testRoot(&buf))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("render: %v", err)
	}
	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("decode stdout: %v", err)
	}
	if cfg.Width != 148 || cfg.Height != 98 {
		t.Fatalf("frame size %dx%d, want 148x98", cfg.Width, cfg.Height)
	}
}

func TestRenderRequiresOutput(t *testing.T) {
	_, err := parseRenderCmd([]string{"slide.png"}, testRoot(io.Discard))
	var uerr *UsageError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if want := "beamdeck render"; !strings.Contains(uerr.Error(), want) {
		t.Fatalf("expected help to mention %q, got %q", want, uerr.Error())
	}
}

func TestLookupRecord(t *testing.T) {
	const doc = `[
		{"path": "slides/a.png", "name": "Opening", "state": {"rotation": 90}},
		{"path": "/elsewhere/b.png", "state": {"zoom_enabled": true, "zoom_rect": [0.1, 0.1, 0.3, 0.3]}}
	]`
	base := t.TempDir()

	rec, err := lookupRecord(strings.NewReader(doc), base, filepath.Join(base, "slides", "a.png"))
	if err != nil {
		t.Fatalf("lookup by path: %v", err)
	}
	if rec.Name != "Opening" || rec.State.Rotation != geom.Rot90 {
		t.Fatalf("unexpected record %+v", rec)
	}

	rec, err = lookupRecord(strings.NewReader(doc), base, "b.png")
	if err != nil {
		t.Fatalf("lookup by name: %v", err)
	}
	if !rec.State.ROIEnabled {
		t.Fatalf("expected the magnifier state of b.png")
	}

	if _, err := lookupRecord(strings.NewReader(doc), base, "c.png"); err == nil {
		t.Fatalf("expected missing image error")
	}
}

func TestGallerySaveAndList(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "b.png", 4, 4)
	writePNG(t, dir, "A.png", 4, 4)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(t.TempDir(), "show.json")

	save, err := parseGalleryCmd([]string{"-o", file, "save", dir}, testRoot(io.Discard))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := save.Run(); err != nil {
		t.Fatalf("save: %v", err)
	}

	var buf bytes.Buffer
	list, err := parseGalleryCmd([]string{"list", file}, testRoot(&buf))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := list.Run(); err != nil {
		t.Fatalf("list: %v", err)
	}
	out := buf.String()
	a, b := strings.Index(out, "A.png"), strings.Index(out, "b.png")
	if a < 0 || b < 0 || a > b {
		t.Fatalf("expected A.png before b.png, got:\n%s", out)
	}
	if strings.Contains(out, "notes") {
		t.Fatalf("non-image listed:\n%s", out)
	}
}

func TestGallerySaveNeedsOutput(t *testing.T) {
	cmd, err := parseGalleryCmd([]string{"save", t.TempDir()}, testRoot(io.Discard))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	var uerr *UsageError
	if err := cmd.Run(); !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestMonitorsListing(t *testing.T) {
	original := listMonitorsFn
	listMonitorsFn = func() ([]monitor.Info, error) {
		return []monitor.Info{
			{Index: 0, Name: "eDP-1", Rect: image.Rect(0, 0, 1920, 1200), Primary: true},
			{Index: 1, Name: "HDMI-1", Rect: image.Rect(1920, 0, 3200, 720)},
		}, nil
	}
	t.Cleanup(func() { listMonitorsFn = original })

	var buf bytes.Buffer
	cmd, err := parseMonitorsCmd(nil, testRoot(&buf))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("monitors: %v", err)
	}
	if want := "HDMI-1 1280x720+1920+0  aspect 1.778"; !strings.Contains(buf.String(), want) {
		t.Fatalf("expected %q in:\n%s", want, buf.String())
	}
}

func TestPresentProjectorAspect(t *testing.T) {
	original := listMonitorsFn
	listMonitorsFn = func() ([]monitor.Info, error) {
		return []monitor.Info{
			{Index: 0, Name: "eDP-1", Rect: image.Rect(0, 0, 1920, 1200), Primary: true},
			{Index: 1, Name: "HDMI-1", Rect: image.Rect(1920, 0, 2944, 768)},
		}, nil
	}
	t.Cleanup(func() { listMonitorsFn = original })

	cmd, err := parsePresentCmd([]string{t.TempDir()}, testRoot(io.Discard))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	s := consoleSettings(cmd)
	size, err := cmd.projector(cmd.log, &s)
	if err != nil {
		t.Fatalf("projector: %v", err)
	}
	if size != image.Pt(1024, 768) || s.Aspect != 1024.0/768 {
		t.Fatalf("got size %v aspect %v", size, s.Aspect)
	}

	cmd, _ = parsePresentCmd([]string{"-aspect", "16:9", "-monitor", "hdmi", t.TempDir()}, testRoot(io.Discard))
	s = consoleSettings(cmd)
	size, err = cmd.projector(cmd.log, &s)
	if err != nil {
		t.Fatalf("projector: %v", err)
	}
	if size != image.Pt(1365, 768) || s.Aspect != 16.0/9 {
		t.Fatalf("got size %v aspect %v", size, s.Aspect)
	}

	cmd, _ = parsePresentCmd([]string{"-monitor", "dp-9", t.TempDir()}, testRoot(io.Discard))
	s = consoleSettings(cmd)
	if _, err := cmd.projector(cmd.log, &s); err == nil {
		t.Fatalf("expected unknown monitor error")
	}
}

func TestPresentNeedsTarget(t *testing.T) {
	_, err := parsePresentCmd(nil, testRoot(io.Discard))
	var uerr *UsageError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestVersionOutput(t *testing.T) {
	var buf bytes.Buffer
	cmd := &versionCmd{root: testRoot(&buf)}
	if err := cmd.Run(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if got := buf.String(); got != "beamdeck version dev\n" {
		t.Fatalf("unexpected version output %q", got)
	}
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "warn", "json", false)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Fatalf("unexpected log output %q", buf.String())
	}
	if _, err := newLogger(&buf, "loud", "text", false); err == nil {
		t.Fatalf("expected bad level error")
	}
	if _, err := newLogger(&buf, "info", "xml", false); err == nil {
		t.Fatalf("expected bad format error")
	}
}

func consoleSettings(c *presentCmd) console.Settings {
	return console.SettingsFrom(c.config)
}
