package compose

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/geom"
	"github.com/example/beamdeck/internal/roi"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestEmptySource(t *testing.T) {
	st := canvas.DefaultState()
	assert.True(t, Preview(nil, st).Empty())
	assert.True(t, Projector(nil, st, nil).Empty())
	assert.True(t, Projector(image.NewNRGBA(image.Rect(0, 0, 0, 0)), st, nil).Empty())
}

func TestRotationIsClockwise(t *testing.T) {
	src := solid(4, 2, color.NRGBA{A: 255})
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	st := canvas.DefaultState()
	st.Rotation = geom.Rot90
	res := Preview(src, st)
	require.False(t, res.Empty())
	assert.Equal(t, image.Rect(0, 0, 2, 4), res.Image.Bounds())
	// Top-left moves to top-right when turned clockwise.
	assert.Equal(t, uint8(255), res.Image.NRGBAAt(1, 0).R)
}

func TestStrokeStaysOnContentAcrossRotation(t *testing.T) {
	src := solid(100, 50, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	st := canvas.DefaultState()
	st.Strokes = []canvas.Stroke{{
		Points:    []geom.Point{{X: 0.45, Y: 0.5}, {X: 0.55, Y: 0.5}},
		Color:     color.NRGBA{A: 255},
		Thickness: 6,
		Tool:      canvas.ToolPen,
	}}
	for _, rot := range []geom.Rotation{geom.Rot0, geom.Rot90, geom.Rot180, geom.Rot270} {
		st.Rotation = rot
		res := Projector(src, st, nil)
		require.False(t, res.Empty())
		b := res.Image.Bounds()
		c := res.Image.NRGBAAt(b.Dx()/2, b.Dy()/2)
		assert.Less(t, c.R, uint8(64), "centre should be inked at rotation %d", rot)
		corner := res.Image.NRGBAAt(0, 0)
		assert.Equal(t, uint8(255), corner.R, "corner untouched at rotation %d", rot)
	}
}

func TestPreviewSkipsStrokes(t *testing.T) {
	src := solid(20, 20, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	st := canvas.DefaultState()
	st.Strokes = []canvas.Stroke{{
		Points: []geom.Point{{X: 0, Y: 0.5}, {X: 1, Y: 0.5}}, Color: color.NRGBA{A: 255}, Thickness: 4,
	}}
	res := Preview(src, st)
	assert.Equal(t, uint8(255), res.Image.NRGBAAt(10, 10).R)
}

func TestProjectorCrop(t *testing.T) {
	src := solid(100, 50, color.NRGBA{A: 255})
	src.SetNRGBA(30, 10, color.NRGBA{G: 255, A: 255})
	st := canvas.DefaultState()
	crop := &roi.Crop{Rect: image.Rect(30, 10, 40, 30), Residual: geom.Rot90}
	res := Projector(src, st, crop)
	require.False(t, res.Empty())
	assert.Equal(t, image.Rect(0, 0, 20, 10), res.Image.Bounds())
	// (0,0) of the crop ends up top-right after a clockwise turn.
	assert.Equal(t, uint8(255), res.Image.NRGBAAt(19, 0).G)
}

func TestBrightnessKeepsAlpha(t *testing.T) {
	img := solid(2, 2, color.NRGBA{R: 100, G: 50, B: 200, A: 128})
	out := Brightness(img, 2)
	assert.Equal(t, color.NRGBA{R: 200, G: 100, B: 255, A: 128}, out.NRGBAAt(0, 0))
	assert.Same(t, img, Brightness(img, 1))
}

func TestAutoContrastStretchesAndIsIdempotent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 50, G: 50, B: 50, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 150, G: 150, B: 150, A: 40})
	once := AutoContrast(img)
	assert.Equal(t, color.NRGBA{A: 255}, once.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 40}, once.NRGBAAt(1, 0))
	twice := AutoContrast(once)
	assert.Equal(t, once.Pix, twice.Pix)
}

func TestAutoContrastFlatImageUnchanged(t *testing.T) {
	img := solid(3, 3, color.NRGBA{R: 90, G: 90, B: 90, A: 255})
	assert.Equal(t, img.Pix, AutoContrast(img).Pix)
}

func TestThumbnail(t *testing.T) {
	th := Thumbnail(solid(200, 100, color.NRGBA{A: 255}), geom.Rot90, 50)
	require.NotNil(t, th)
	assert.Equal(t, 25, th.Bounds().Dx())
	assert.Equal(t, 50, th.Bounds().Dy())
	assert.Nil(t, Thumbnail(nil, geom.Rot0, 50))
}

func TestCacheCollapsesAndStores(t *testing.T) {
	c, err := NewCache(4)
	require.NoError(t, err)
	var calls atomic.Int32
	key := Key{Image: "a", Kind: KindProjector, Revision: 3}
	fn := func() Result {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return Result{Image: solid(1, 1, color.NRGBA{A: 255}), Revision: 3}
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.False(t, c.Get(key, fn).Empty())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, c.Len())

	c.Forget("a")
	assert.Equal(t, 0, c.Len())
}

func TestCacheSkipsEmpty(t *testing.T) {
	c, err := NewCache(4)
	require.NoError(t, err)
	c.Get(Key{Image: "x"}, func() Result { return Result{} })
	assert.Equal(t, 0, c.Len())
}

func TestTracker(t *testing.T) {
	tr := NewTracker()
	s := Slot{Image: "a", Kind: KindPreview}
	assert.False(t, tr.Current(s, 1))
	tr.Request(s, 5)
	tr.Request(s, 3)
	assert.True(t, tr.Current(s, 5))
	assert.False(t, tr.Current(s, 4))
	tr.Forget("a")
	assert.False(t, tr.Current(s, 5))
}

func TestDispatcherDropsStaleResults(t *testing.T) {
	d := NewDispatcher(1, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	slot := Slot{Image: "a", Kind: KindProjector}
	release := make(chan struct{})
	started := make(chan struct{})
	d.Submit(Job{Slot: slot, Revision: 1, Run: func() Result {
		close(started)
		<-release
		return Result{Revision: 1}
	}})
	<-started
	d.Submit(Job{Slot: slot, Revision: 2, Run: func() Result { return Result{Revision: 2} }})
	close(release)

	select {
	case out := <-d.Results():
		assert.Equal(t, uint64(2), out.Result.Revision)
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}
	cancel()
	<-done
}

func TestRenderCropsToROI(t *testing.T) {
	src := solid(100, 50, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	st := canvas.DefaultState()

	res, err := Render(src, st)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 50), res.Image.Bounds())

	st.ROIEnabled = true
	st.ROI = canvas.NormalizedRect{X: 0, Y: 0, W: 0.5, H: 0.5}
	crop, err := CropFor(st, src.Bounds())
	require.NoError(t, err)
	require.NotNil(t, crop)
	assert.Equal(t, image.Rect(0, 0, 50, 25), crop.Rect)

	res, err = Render(src, st)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 25), res.Image.Bounds())
	assert.Equal(t, KindProjector, res.Kind)
}

func TestRenderNilSource(t *testing.T) {
	res, err := Render(nil, canvas.DefaultState())
	assert.ErrorIs(t, err, ErrNoSource)
	assert.True(t, res.Empty())
}

func TestKeysTellCropsApart(t *testing.T) {
	st := canvas.DefaultState()
	a := ProjectorKey("a.png", st, nil)
	b := ProjectorKey("a.png", st, &roi.Crop{Rect: image.Rect(0, 0, 5, 5)})
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, PreviewKey("a.png", st))
}

func TestPreviewKeyFollowsToneOnly(t *testing.T) {
	st := canvas.DefaultState()
	base := PreviewKey("a.png", st)

	moved := st
	moved.Revision = 9
	moved.ROIEnabled = true
	moved.ROI = canvas.NormalizedRect{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}
	moved.Tool = canvas.ToolPen
	assert.Equal(t, base, PreviewKey("a.png", moved))

	for _, change := range []func(*canvas.State){
		func(s *canvas.State) { s.Rotation = geom.Rot90 },
		func(s *canvas.State) { s.Brightness = 1.5 },
		func(s *canvas.State) { s.AutoContrast = true },
	} {
		next := st
		change(&next)
		assert.NotEqual(t, base, PreviewKey("a.png", next))
	}
}

func TestDispatcherStampsJobRevision(t *testing.T) {
	d := NewDispatcher(1, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	slot := Slot{Image: "a", Kind: KindPreview}
	d.Submit(Job{Slot: slot, Revision: 3, Run: func() Result {
		return Result{Image: solid(1, 1, color.NRGBA{A: 255}), Revision: 1}
	}})
	select {
	case out := <-d.Results():
		assert.Equal(t, uint64(3), out.Result.Revision)
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}
}
