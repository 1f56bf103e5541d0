package console

import (
	"context"
	"image"
	"log/slog"
	"sync"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/beamdeck/internal/geom"
	"github.com/example/beamdeck/internal/surface"
	"github.com/example/beamdeck/internal/theme"
)

// WindowOptions sizes the two windows. Zero sizes fall back to defaults.
type WindowOptions struct {
	Preview   image.Point
	Projector image.Point
	Theme     *theme.Theme
	Keymap    *Keymap
	Logger    *slog.Logger
}

var (
	defaultPreviewSize   = image.Pt(1024, 640)
	defaultProjectorSize = image.Pt(1280, 720)
)

// stopEvent asks a window loop to return.
type stopEvent struct{}

// Present opens the preview and projector windows and runs ctl until the
// operator quits or ctx is done. It must be called from the main goroutine.
func Present(ctx context.Context, ctl *Controller, opts WindowOptions) error {
	if opts.Preview == (image.Point{}) {
		opts.Preview = defaultPreviewSize
	}
	if opts.Projector == (image.Point{}) {
		opts.Projector = defaultProjectorSize
	}
	if opts.Keymap == nil {
		opts.Keymap = DefaultKeymap()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var runErr error
	driver.Main(func(s screen.Screen) {
		runErr = present(ctx, s, ctl, opts)
	})
	return runErr
}

func present(ctx context.Context, s screen.Screen, ctl *Controller, opts WindowOptions) error {
	log := opts.Logger
	pw, err := s.NewWindow(&screen.NewWindowOptions{Width: opts.Preview.X, Height: opts.Preview.Y, Title: "BeamDeck preview"})
	if err != nil {
		return err
	}
	defer pw.Release()
	jw, err := s.NewWindow(&screen.NewWindowOptions{Width: opts.Projector.X, Height: opts.Projector.Y, Title: "BeamDeck projector"})
	if err != nil {
		return err
	}
	defer jw.Release()

	ctl.OnRepaint(func(t Target) {
		if t&TargetPreview != 0 {
			pw.Send(paint.Event{})
		}
		if t&TargetProjector != 0 {
			jw.Send(paint.Event{})
		}
	})
	defer ctl.OnRepaint(nil)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var runErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runErr = ctl.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		<-ctl.Done()
		pw.Send(stopEvent{})
		jw.Send(stopEvent{})
	}()

	preview := surface.NewPreview(opts.Theme, log)
	projector := surface.NewProjector(opts.Theme)

	jdone := make(chan struct{})
	go func() {
		defer close(jdone)
		projectorLoop(s, jw, ctl, projector, opts)
	}()
	previewLoop(s, pw, ctl, preview, opts)
	cancel()
	<-jdone
	wg.Wait()
	return runErr
}

// painter draws frames off the event loop. A pending frame is replaced by a
// newer one so slow paints never queue up.
type painter struct {
	ch   chan func()
	done chan struct{}
}

func newPainter() *painter {
	p := &painter{ch: make(chan func(), 1), done: make(chan struct{})}
	go func() {
		defer close(p.done)
		for fn := range p.ch {
			fn()
		}
	}()
	return p
}

func (p *painter) offer(fn func()) {
	select {
	case p.ch <- fn:
	default:
		select {
		case <-p.ch:
		default:
		}
		p.ch <- fn
	}
}

// close stops the painter once the pending frame, if any, is drawn.
func (p *painter) close() {
	close(p.ch)
	<-p.done
}

// drawFrame paints into a fresh buffer and publishes it.
func drawFrame(s screen.Screen, w screen.Window, sz image.Point, log *slog.Logger, paintFn func(*image.RGBA)) {
	if sz.X <= 0 || sz.Y <= 0 {
		return
	}
	b, err := s.NewBuffer(sz)
	if err != nil {
		log.Error("new buffer", "err", err)
		return
	}
	defer b.Release()
	paintFn(b.RGBA())
	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}

func previewLoop(s screen.Screen, w screen.Window, ctl *Controller, sp *surface.Preview, opts WindowOptions) {
	log := opts.Logger
	sz := opts.Preview
	p := newPainter()
	defer p.close()
	pressed := false
	for {
		switch e := w.NextEvent().(type) {
		case stopEvent:
			return
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				ctl.Send(Action{Op: OpQuit})
				return
			}
			if e.Crosses(lifecycle.StageFocused) == lifecycle.CrossOff {
				pressed = false
				ctl.Pointer(PointerEvent{Kind: PointerLeave, Bounds: image.Rectangle{Max: sz}})
			}
		case size.Event:
			sz = e.Size()
			w.Send(paint.Event{})
		case paint.Event:
			frame := ctl.PreviewFrame(image.Rectangle{Max: sz})
			cur := sz
			p.offer(func() {
				drawFrame(s, w, cur, log, func(dst *image.RGBA) { sp.Paint(dst, frame) })
			})
		case mouse.Event:
			ev := PointerEvent{Pos: geom.Pt(float64(e.X), float64(e.Y)), Bounds: image.Rectangle{Max: sz}}
			switch {
			case e.Button == mouse.ButtonLeft && e.Direction == mouse.DirPress:
				pressed = true
				ev.Kind = PointerPress
			case e.Button == mouse.ButtonLeft && e.Direction == mouse.DirRelease:
				if !pressed {
					continue
				}
				pressed = false
				ev.Kind = PointerRelease
			case e.Direction == mouse.DirNone:
				ev.Kind = PointerMove
			default:
				continue
			}
			ctl.Pointer(ev)
		case key.Event:
			if a, ok := opts.Keymap.Lookup(e); ok {
				ctl.Send(a)
			}
		case error:
			log.Error("preview window", "err", e)
		}
	}
}

func projectorLoop(s screen.Screen, w screen.Window, ctl *Controller, sp *surface.Projector, opts WindowOptions) {
	log := opts.Logger
	sz := opts.Projector
	p := newPainter()
	defer p.close()
	for {
		switch e := w.NextEvent().(type) {
		case stopEvent:
			return
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				ctl.Send(Action{Op: OpQuit})
				return
			}
		case size.Event:
			sz = e.Size()
			if sz.X > 0 && sz.Y > 0 {
				ctl.Send(Action{Op: OpAspect, Value: float64(sz.X) / float64(sz.Y)})
			}
			w.Send(paint.Event{})
		case paint.Event:
			frame := ctl.ProjectorFrame()
			cur := sz
			p.offer(func() {
				drawFrame(s, w, cur, log, func(dst *image.RGBA) { sp.Paint(dst, frame) })
			})
		case key.Event:
			if a, ok := opts.Keymap.Lookup(e); ok {
				ctl.Send(a)
			}
		case error:
			log.Error("projector window", "err", e)
		}
	}
}
