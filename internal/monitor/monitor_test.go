package monitor

import (
	"errors"
	"image"
	"testing"
)

type fakeBackend struct {
	monitors []Info
	err      error
}

func (f fakeBackend) List() ([]Info, error) { return f.monitors, f.err }

var layout = []Info{
	{Index: 0, Name: "eDP-1", Rect: image.Rect(0, 0, 1920, 1080), Primary: true},
	{Index: 1, Name: "HDMI-1", Rect: image.Rect(1920, 0, 3200, 1024)},
}

func TestFind(t *testing.T) {
	cases := map[string]string{
		"":        "eDP-1",
		"primary": "eDP-1",
		"1":       "HDMI-1",
		"#1":      "HDMI-1",
		"hdmi":    "HDMI-1",
	}
	for sel, want := range cases {
		got, err := Find(layout, sel)
		if err != nil {
			t.Fatalf("Find(%q): %v", sel, err)
		}
		if got.Name != want {
			t.Errorf("Find(%q) = %s, want %s", sel, got.Name, want)
		}
	}
	if _, err := Find(layout, "7"); err == nil {
		t.Error("expected out of range error")
	}
	if _, err := Find(layout, "dp-9"); err == nil {
		t.Error("expected not found error")
	}
	if _, err := Find(nil, ""); !errors.Is(err, ErrNoMonitors) {
		t.Errorf("expected ErrNoMonitors, got %v", err)
	}
}

func TestProjectorPrefersSecondary(t *testing.T) {
	got, err := Projector(layout, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "HDMI-1" {
		t.Errorf("expected the secondary monitor, got %s", got.Name)
	}
	if a := got.Aspect(); a != 1280.0/1024.0 {
		t.Errorf("aspect %v", a)
	}
	got, _ = Projector(layout[:1], "")
	if got.Name != "eDP-1" {
		t.Errorf("single monitor should be used, got %s", got.Name)
	}
	got, _ = Projector(layout, "primary")
	if got.Name != "eDP-1" {
		t.Errorf("selector should win, got %s", got.Name)
	}
}

func TestListUsesBackend(t *testing.T) {
	orig := backend
	t.Cleanup(func() { backend = orig })

	backend = fakeBackend{monitors: layout}
	got, err := List()
	if err != nil || len(got) != 2 {
		t.Fatalf("List() = %v, %v", got, err)
	}
	want := errors.New("no X")
	backend = fakeBackend{err: want}
	if _, err := List(); !errors.Is(err, want) {
		t.Errorf("expected backend error, got %v", err)
	}
}

func TestString(t *testing.T) {
	if s := layout[1].String(); s != "1: HDMI-1 1280x1024+1920+0" {
		t.Errorf("String() = %q", s)
	}
	if (Info{}).Aspect() != 0 {
		t.Error("empty monitor should have no aspect")
	}
}
