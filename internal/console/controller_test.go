package console

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/compose"
	"github.com/example/beamdeck/internal/gallery"
	"github.com/example/beamdeck/internal/geom"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var surfaceBounds = image.Rect(0, 0, 200, 100)

func fakeDecode(path string) (image.Image, error) {
	if filepath.Base(path) == "bad.png" {
		return nil, errors.New("corrupt")
	}
	img := image.NewNRGBA(image.Rect(0, 0, 100, 50))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 200, 100, 50, 255
	}
	return img, nil
}

type clip struct {
	mu  sync.Mutex
	img image.Image
}

func (c *clip) write(img image.Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.img = img
	return nil
}

func (c *clip) get() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.img
}

func start(t *testing.T, s Settings, paths []string, opts ...Option) *Controller {
	t.Helper()
	g := gallery.New(gallery.WithDecoder(fakeDecode))
	require.NoError(t, g.Add(context.Background(), paths...))
	if s.Aspect == 0 {
		s.Aspect = 2
	}
	ctl, err := New(g, s, opts...)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- ctl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errc:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Error("controller did not stop")
		}
	})
	return ctl
}

func TestControllerComposesCurrentImage(t *testing.T) {
	ctl := start(t, Settings{}, []string{"a.png", "b.png"})
	require.Eventually(t, func() bool {
		return ctl.PreviewFrame(surfaceBounds).Composite != nil && ctl.ProjectorFrame().Composite != nil
	}, waitFor, tick)

	f := ctl.PreviewFrame(surfaceBounds)
	assert.Equal(t, geom.R(0, 0, 200, 100), f.Layout.Display)
	assert.Empty(t, f.Message)
	assert.Equal(t, image.Rect(0, 0, 100, 50), ctl.ProjectorFrame().Composite.Bounds())
}

func TestControllerDropsOvertakenComposite(t *testing.T) {
	ctl := start(t, Settings{}, []string{"a.png"})
	require.Eventually(t, func() bool { return ctl.ProjectorFrame().Composite != nil }, waitFor, tick)

	slot := compose.Slot{Image: ctl.Status().Path, Kind: compose.KindProjector}
	ctl.disp.Tracker().Request(slot, 5)

	fresh := image.NewNRGBA(image.Rect(0, 0, 7, 7))
	ctl.accept(compose.Output{Slot: slot, Result: compose.Result{Image: fresh, Kind: compose.KindProjector, Revision: 5}})
	require.Equal(t, fresh.Bounds(), ctl.ProjectorFrame().Composite.Bounds())

	old := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	ctl.accept(compose.Output{Slot: slot, Result: compose.Result{Image: old, Kind: compose.KindProjector, Revision: 3}})
	assert.Equal(t, fresh.Bounds(), ctl.ProjectorFrame().Composite.Bounds())
}

func TestControllerNavigationWraps(t *testing.T) {
	ctl := start(t, Settings{}, []string{"a.png", "b.png"})
	require.Eventually(t, func() bool { return ctl.Status().Path == "a.png" }, waitFor, tick)

	ctl.Send(Action{Op: OpNext})
	require.Eventually(t, func() bool { return ctl.Status().Path == "b.png" }, waitFor, tick)
	ctl.Send(Action{Op: OpNext})
	require.Eventually(t, func() bool { return ctl.Status().Path == "a.png" }, waitFor, tick)
	ctl.Send(Action{Op: OpPrev})
	require.Eventually(t, func() bool { return ctl.Status().Path == "b.png" }, waitFor, tick)
	ctl.Send(Action{Op: OpSelect, Index: 0})
	require.Eventually(t, func() bool { return ctl.Status().Path == "a.png" }, waitFor, tick)
}

func TestControllerROIRecomposesProjector(t *testing.T) {
	ctl := start(t, Settings{}, []string{"a.png"})
	ctl.Send(Action{Op: OpToggleROI})
	require.Eventually(t, func() bool {
		img := ctl.ProjectorFrame().Composite
		return img != nil && img.Bounds() == image.Rect(0, 0, 50, 26)
	}, waitFor, tick)

	ctl.Send(Action{Op: OpRotate})
	require.Eventually(t, func() bool {
		st := ctl.Status().State
		img := ctl.ProjectorFrame().Composite
		return st.Rotation == geom.Rot90 && img != nil && img.Bounds() == image.Rect(0, 0, 26, 50)
	}, waitFor, tick)
}

func TestControllerToneActions(t *testing.T) {
	ctl := start(t, Settings{}, []string{"a.png"})
	ctl.Send(Action{Op: OpBrightnessStep, Value: 0.5})
	ctl.Send(Action{Op: OpAutoContrast})
	ctl.Send(Action{Op: OpDisplayMode})
	ctl.Send(Action{Op: OpMagnifier, Value: 30})
	require.Eventually(t, func() bool {
		st := ctl.Status().State
		return st.Brightness == 1.5 && st.AutoContrast && st.DisplayMode == canvas.DisplayFill && st.Magnifier == 30
	}, waitFor, tick)
}

func TestControllerWithoutImageReportsError(t *testing.T) {
	ctl := start(t, Settings{}, nil, WithClock(func() time.Time { return time.Unix(0, 0) }))
	assert.Equal(t, "No image loaded", ctl.PreviewFrame(surfaceBounds).Message)
	ctl.Send(Action{Op: OpRotate})
	require.Eventually(t, func() bool { return ctl.Status().Message == ErrNoImage.Error() }, waitFor, tick)
	assert.Equal(t, ErrNoImage.Error(), ctl.PreviewFrame(surfaceBounds).Toast)
}

func TestControllerUndecodableImage(t *testing.T) {
	ctl := start(t, Settings{}, []string{"bad.png"})
	require.Eventually(t, func() bool { return ctl.Status().Path == "bad.png" }, waitFor, tick)
	f := ctl.PreviewFrame(surfaceBounds)
	assert.Nil(t, f.Composite)
	assert.Equal(t, "Cannot open bad", f.Message)
	assert.False(t, ctl.Status().Loaded)
}

func TestControllerExportAndCopy(t *testing.T) {
	dir := t.TempDir()
	c := &clip{}
	ctl := start(t, Settings{ExportDir: dir}, []string{"a.png"}, WithClipboard(c.write))

	ctl.Send(Action{Op: OpExport})
	require.Eventually(t, func() bool {
		m, _ := filepath.Glob(filepath.Join(dir, "a-*.png"))
		return len(m) == 1
	}, waitFor, tick)

	ctl.Send(Action{Op: OpCopy})
	require.Eventually(t, func() bool { return c.get() != nil }, waitFor, tick)
	assert.Equal(t, image.Rect(0, 0, 100, 50), c.get().Bounds())
}

func TestControllerSaveGallery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show.json")
	ctl := start(t, Settings{}, []string{"a.png"})
	ctl.Send(Action{Op: OpRotate})
	ctl.Send(Action{Op: OpSaveGallery, Arg: path})
	require.Eventually(t, func() bool { return ctl.Status().Message == "saved show.json" }, waitFor, tick)
}

func TestControllerBackgroundAndAspect(t *testing.T) {
	ctl := start(t, Settings{}, []string{"a.png"})
	ctl.Send(Action{Op: OpBackground, Arg: "white"})
	ctl.Send(Action{Op: OpAspect, Value: 4.0 / 3})
	require.Eventually(t, func() bool {
		st := ctl.Status()
		return st.Background == color.NRGBA{255, 255, 255, 255} && st.State.Aspect == 4.0/3
	}, waitFor, tick)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, ctl.ProjectorFrame().Background)
}

func TestControllerPenStroke(t *testing.T) {
	ctl := start(t, Settings{}, []string{"a.png"})
	ctl.Send(Action{Op: OpTool, Arg: "pen"})
	require.Eventually(t, func() bool { return ctl.Status().State.Tool == canvas.ToolPen }, waitFor, tick)

	ctl.Pointer(PointerEvent{Kind: PointerPress, Pos: geom.Pt(20, 20), Bounds: surfaceBounds})
	ctl.Pointer(PointerEvent{Kind: PointerMove, Pos: geom.Pt(100, 50), Bounds: surfaceBounds})
	require.Eventually(t, func() bool { return len(ctl.PreviewFrame(surfaceBounds).Live) == 2 }, waitFor, tick)
	ctl.Pointer(PointerEvent{Kind: PointerRelease, Pos: geom.Pt(180, 80), Bounds: surfaceBounds})

	require.Eventually(t, func() bool { return len(ctl.Status().State.Strokes) == 1 }, waitFor, tick)
	s := ctl.Status().State.Strokes[0]
	assert.Equal(t, canvas.ToolPen, s.Tool)
	require.Len(t, s.Points, 3)
	assert.InDelta(t, 0.1, s.Points[0].X, 1e-9)
	assert.InDelta(t, 0.9, s.Points[2].X, 1e-9)
}

func TestControllerDragsROI(t *testing.T) {
	ctl := start(t, Settings{}, []string{"a.png"})
	ctl.Send(Action{Op: OpToggleROI})
	require.Eventually(t, func() bool { return ctl.Status().State.ROIEnabled }, waitFor, tick)

	ctl.Pointer(PointerEvent{Kind: PointerPress, Pos: geom.Pt(100, 50), Bounds: surfaceBounds})
	ctl.Pointer(PointerEvent{Kind: PointerMove, Pos: geom.Pt(120, 60), Bounds: surfaceBounds})
	ctl.Pointer(PointerEvent{Kind: PointerRelease, Pos: geom.Pt(120, 60), Bounds: surfaceBounds})
	require.Eventually(t, func() bool {
		r := ctl.Status().State.ROI
		return r.X > 0.349 && r.X < 0.351 && r.Y > 0.349 && r.Y < 0.351
	}, waitFor, tick)
}

func TestControllerLaserFollowsPointer(t *testing.T) {
	ctl := start(t, Settings{}, []string{"a.png"})
	ctl.Send(Action{Op: OpTool, Arg: "laser"})
	require.Eventually(t, func() bool { return ctl.Status().State.Tool == canvas.ToolLaser }, waitFor, tick)

	ctl.Pointer(PointerEvent{Kind: PointerMove, Pos: geom.Pt(50, 25), Bounds: surfaceBounds})
	require.Eventually(t, func() bool {
		st := ctl.Status().State
		return st.PointerActive() && st.Pointer == geom.Pt(0.25, 0.25)
	}, waitFor, tick)

	ctl.Pointer(PointerEvent{Kind: PointerLeave, Bounds: surfaceBounds})
	require.Eventually(t, func() bool { return !ctl.Status().State.PointerVisible }, waitFor, tick)
}

func TestControllerQuit(t *testing.T) {
	g := gallery.New(gallery.WithDecoder(fakeDecode))
	ctl, err := New(g, Settings{})
	require.NoError(t, err)
	errc := make(chan error, 1)
	go func() { errc <- ctl.Run(context.Background()) }()

	ctl.Send(Action{Op: OpQuit})
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("quit did not stop the controller")
	}
	<-ctl.Done()
	assert.False(t, ctl.Send(Action{Op: OpNext}))
}

func TestControllerPublishesStatus(t *testing.T) {
	got := make(chan Status, 64)
	ctl := start(t, Settings{}, []string{"a.png", "b.png"}, WithStatus(func(s Status) {
		select {
		case got <- s:
		default:
		}
	}))
	ctl.Send(Action{Op: OpRename, Arg: "Opening slide", Index: -1})
	require.Eventually(t, func() bool {
		for {
			select {
			case s := <-got:
				if s.Count == 2 && len(s.Names) == 2 && s.Names[0] == "Opening slide" {
					return true
				}
			default:
				return false
			}
		}
	}, waitFor, tick)
}

func TestControllerPublishesThumbnail(t *testing.T) {
	got := make(chan Status, 64)
	ctl := start(t, Settings{}, []string{"a.png"}, WithStatus(func(s Status) {
		select {
		case got <- s:
		default:
		}
	}))
	thumbnailIs := func(want image.Rectangle) func() bool {
		return func() bool {
			for {
				select {
				case s := <-got:
					if s.Thumbnail != nil && s.Thumbnail.Bounds() == want {
						return true
					}
				default:
					return false
				}
			}
		}
	}
	ctl.Send(Action{Op: OpToggleROI})
	require.Eventually(t, thumbnailIs(image.Rect(0, 0, ThumbnailSize, ThumbnailSize/2)), waitFor, tick)

	ctl.Send(Action{Op: OpRotate})
	require.Eventually(t, thumbnailIs(image.Rect(0, 0, ThumbnailSize/2, ThumbnailSize)), waitFor, tick)
}
