package console

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/clipboard"
	"github.com/example/beamdeck/internal/compose"
	"github.com/example/beamdeck/internal/config"
	"github.com/example/beamdeck/internal/gallery"
	"github.com/example/beamdeck/internal/geom"
	"github.com/example/beamdeck/internal/notify"
	"github.com/example/beamdeck/internal/roi"
	"github.com/example/beamdeck/internal/surface"
)

// TickInterval is the period of the pointer animation.
const TickInterval = 33 * time.Millisecond

// MessageDuration is how long a notice stays on the preview.
const MessageDuration = 2 * time.Second

// ThumbnailSize bounds the current image's thumbnail sent to the panel.
const ThumbnailSize = 24

// ErrNoImage is returned by actions that need a current image.
var ErrNoImage = errors.New("no image selected")

// Target selects the windows to repaint.
type Target uint8

const (
	TargetPreview Target = 1 << iota
	TargetProjector
	TargetBoth = TargetPreview | TargetProjector
)

// Settings are the console's starting values.
type Settings struct {
	ExportDir    string
	GalleryPath  string
	Background   color.NRGBA
	Aspect       float64
	Pen          canvas.Style
	Highlighter  canvas.Style
	PointerStyle canvas.PointerStyle
	Workers      int
	CacheSize    int
}

// SettingsFrom maps the loaded configuration onto console settings.
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		ExportDir:    cfg.ExportDir,
		Background:   cfg.Background,
		Aspect:       cfg.Aspect,
		Pen:          cfg.Pen,
		Highlighter:  cfg.Highlighter,
		PointerStyle: cfg.PointerStyle,
		Workers:      cfg.Workers,
		CacheSize:    cfg.CacheSize,
	}
}

// Status describes the console for the operator panel.
type Status struct {
	Index   int
	Count   int
	Name    string
	Path    string
	Loaded  bool
	Names   []string
	State   canvas.State
	Aspect  float64
	Message string

	Background color.NRGBA
	// Thumbnail is the current image turned by its rotation, at most
	// ThumbnailSize on a side. Only published statuses carry it.
	Thumbnail *image.NRGBA
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithNotifier sends desktop notifications for saves, exports and copies.
func WithNotifier(n *notify.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithChanges folds folder changes into the gallery.
func WithChanges(ch <-chan gallery.Change) Option {
	return func(c *Controller) { c.changes = ch }
}

// WithClipboard replaces the clipboard writer.
func WithClipboard(fn func(image.Image) error) Option {
	return func(c *Controller) { c.copyImage = fn }
}

// WithStatus registers a callback receiving a Status after every change.
func WithStatus(fn func(Status)) Option {
	return func(c *Controller) { c.status = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(c *Controller) { c.now = fn }
}

// Controller is the control goroutine of a presentation. The gallery, the
// subscription and the input state belong to the goroutine running Run;
// other goroutines talk to it through Send and Pointer and read frames
// through PreviewFrame and ProjectorFrame.
type Controller struct {
	gallery   *gallery.Gallery
	settings  Settings
	cache     *compose.Cache
	disp      *compose.Dispatcher
	notifier  *notify.Notifier
	log       *slog.Logger
	changes   <-chan gallery.Change
	copyImage func(image.Image) error
	now       func() time.Time

	actions  chan Action
	pointers chan PointerEvent
	done     chan struct{}

	sub   *canvas.Subscription
	input Input

	thumb      *image.NRGBA
	thumbEntry *gallery.Entry
	thumbRot   geom.Rotation

	mu           sync.Mutex
	entry        *gallery.Entry
	preview      compose.Result
	projector    compose.Result
	live         []geom.Point
	background   color.NRGBA
	aspect       float64
	message      string
	messageUntil time.Time
	repaint      func(Target)
	status       func(Status)
}

// New creates a controller presenting g.
func New(g *gallery.Gallery, s Settings, opts ...Option) (*Controller, error) {
	cache, err := compose.NewCache(s.CacheSize)
	if err != nil {
		return nil, err
	}
	c := &Controller{
		gallery:    g,
		settings:   s,
		cache:      cache,
		log:        slog.Default(),
		copyImage:  clipboard.WriteImage,
		now:        time.Now,
		actions:    make(chan Action, 16),
		pointers:   make(chan PointerEvent, 64),
		done:       make(chan struct{}),
		background: s.Background,
		aspect:     s.Aspect,
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if !(c.aspect > 0) {
		c.aspect = canvas.DefaultAspect
	}
	c.disp = compose.NewDispatcher(s.Workers, nil, c.log)
	return c, nil
}

// OnRepaint registers the function asked to repaint windows.
func (c *Controller) OnRepaint(fn func(Target)) {
	c.mu.Lock()
	c.repaint = fn
	c.mu.Unlock()
}

// Send queues an action. It returns false once the controller has stopped.
func (c *Controller) Send(a Action) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.actions <- a:
		return true
	case <-c.done:
		return false
	}
}

// Pointer queues a preview pointer event.
func (c *Controller) Pointer(ev PointerEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.pointers <- ev:
		return true
	case <-c.done:
		return false
	}
}

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Run drives the presentation until ctx is done or a quit action arrives.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.disp.Run(ctx) })
	g.Go(func() error {
		defer cancel()
		return c.loop(ctx)
	})
	return g.Wait()
}

func (c *Controller) loop(ctx context.Context) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	c.follow()
	defer func() {
		if c.sub != nil {
			c.sub.Close()
			c.sub = nil
		}
	}()
	results := c.disp.Results()
	changes := c.changes
	for {
		var heavy, light <-chan canvas.Event
		if c.sub != nil {
			heavy, light = c.sub.Heavy, c.sub.Light
		}
		select {
		case <-ctx.Done():
			return nil
		case a := <-c.actions:
			if a.Op == OpQuit {
				c.log.Info("quit requested")
				return nil
			}
			if err := c.apply(ctx, a); err != nil {
				c.log.Warn("action failed", "action", a.String(), "err", err)
				c.flash(err.Error())
			}
			c.publish()
		case ev := <-c.pointers:
			c.pointer(ev)
		case out, ok := <-results:
			if !ok {
				return nil
			}
			c.accept(out)
		case _, ok := <-heavy:
			if ok {
				c.request()
				c.publish()
			}
		case _, ok := <-light:
			if ok {
				c.invalidate(TargetBoth)
			}
		case <-ticker.C:
			if e := c.current(); e != nil {
				e.Store.Tick()
			}
			c.expire()
		case ch, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			c.applyChange(ctx, ch)
		}
	}
}

func (c *Controller) current() *gallery.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry
}

// follow switches to the gallery's current entry.
func (c *Controller) follow() {
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
	c.input.Cancel()
	e := c.gallery.Current()
	c.mu.Lock()
	c.entry = e
	c.preview, c.projector = compose.Result{}, compose.Result{}
	c.live = nil
	aspect := c.aspect
	c.mu.Unlock()
	if e != nil {
		s := e.Store
		if err := s.SetAspect(aspect); err != nil {
			c.log.Warn("aspect rejected", "aspect", aspect, "err", err)
		}
		for tool, style := range map[canvas.Tool]canvas.Style{canvas.ToolPen: c.settings.Pen, canvas.ToolHighlighter: c.settings.Highlighter} {
			if style.Thickness <= 0 {
				continue
			}
			if err := s.SetStyle(tool, style); err != nil {
				c.log.Warn("style rejected", "tool", tool, "err", err)
			}
		}
		s.SetPointerStyle(c.settings.PointerStyle)
		c.sub = s.Subscribe()
		c.log.Debug("presenting", "path", e.Path, "index", c.gallery.Index())
	}
	c.request()
	c.invalidate(TargetBoth)
	c.publish()
}

// request submits the composites of the current snapshot.
func (c *Controller) request() {
	e := c.current()
	if e == nil || e.Source == nil {
		c.invalidate(TargetBoth)
		return
	}
	st := e.Store.Snapshot()
	src, id := e.Source, e.Path
	c.disp.Submit(compose.Job{
		Slot:     compose.Slot{Image: id, Kind: compose.KindPreview},
		Revision: st.Revision,
		Run: func() compose.Result {
			return c.cache.Get(compose.PreviewKey(id, st), func() compose.Result {
				return compose.Preview(src, st)
			})
		},
	})
	crop, err := compose.CropFor(st, src.Bounds())
	if err != nil {
		if errors.Is(err, roi.ErrCropUnavailable) {
			c.log.Warn("projector crop unavailable, keeping last frame", "path", id, "err", err)
			return
		}
		c.log.Error("projector crop", "path", id, "err", err)
		return
	}
	c.disp.Submit(compose.Job{
		Slot:     compose.Slot{Image: id, Kind: compose.KindProjector},
		Revision: st.Revision,
		Run: func() compose.Result {
			return c.cache.Get(compose.ProjectorKey(id, st, crop), func() compose.Result {
				return compose.Projector(src, st, crop)
			})
		},
	})
}

// accept stores a finished composite if it belongs to the current image and
// no newer revision of its slot has been requested since it was dispatched.
func (c *Controller) accept(out compose.Output) {
	if !c.disp.Tracker().Current(out.Slot, out.Result.Revision) {
		c.log.Debug("dropping overtaken composite", "image", out.Slot.Image, "kind", out.Slot.Kind, "revision", out.Result.Revision)
		return
	}
	c.mu.Lock()
	if c.entry == nil || c.entry.Path != out.Slot.Image || out.Result.Empty() {
		c.mu.Unlock()
		return
	}
	target := TargetPreview
	if out.Slot.Kind == compose.KindProjector {
		c.projector = out.Result
		target = TargetProjector
	} else {
		c.preview = out.Result
	}
	c.mu.Unlock()
	c.invalidate(target)
}

func (c *Controller) pointer(ev PointerEvent) {
	e := c.current()
	if e == nil || e.Source == nil {
		return
	}
	l := c.layout(e, ev.Bounds)
	if !c.input.Handle(e.Store, l, ev) {
		return
	}
	live := c.input.Live()
	c.mu.Lock()
	c.live = live
	c.mu.Unlock()
	c.invalidate(TargetPreview)
}

func (c *Controller) layout(e *gallery.Entry, bounds image.Rectangle) surface.Layout {
	b := e.Source.Bounds()
	c.mu.Lock()
	aspect := c.aspect
	c.mu.Unlock()
	return surface.NewLayout(bounds, aspect, b.Dx(), b.Dy(), e.Store.Snapshot().Rotation)
}

func (c *Controller) applyChange(ctx context.Context, ch gallery.Change) {
	before := c.gallery.Current()
	if err := c.gallery.Apply(ctx, ch); err != nil {
		c.log.Warn("folder change", "kind", ch.Kind, "path", ch.Path, "err", err)
		return
	}
	c.log.Info("folder changed", "kind", ch.Kind, "path", ch.Path)
	// Composites of a rewritten file are keyed like the old content.
	c.forget(ch.Path)
	if c.gallery.Current() != before {
		c.follow()
		return
	}
	c.publish()
}

func (c *Controller) forget(path string) {
	c.cache.Forget(path)
	c.disp.Tracker().Forget(path)
}

func (c *Controller) invalidate(t Target) {
	c.mu.Lock()
	fn := c.repaint
	c.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

// flash shows msg on the preview for MessageDuration.
func (c *Controller) flash(msg string) {
	c.mu.Lock()
	c.message = msg
	c.messageUntil = c.now().Add(MessageDuration)
	c.mu.Unlock()
	c.invalidate(TargetPreview)
}

func (c *Controller) expire() {
	c.mu.Lock()
	expired := c.message != "" && !c.now().Before(c.messageUntil)
	if expired {
		c.message = ""
	}
	c.mu.Unlock()
	if expired {
		c.invalidate(TargetPreview)
		c.publish()
	}
}

// Status snapshots the console.
func (c *Controller) Status() Status {
	c.mu.Lock()
	e := c.entry
	st := Status{
		Index:      -1,
		Background: c.background,
		Aspect:     c.aspect,
		Message:    c.message,
	}
	c.mu.Unlock()
	if e != nil {
		st.Name, st.Path, st.Loaded = e.Name, e.Path, e.Source != nil
		st.State = e.Store.Snapshot()
	}
	return st
}

// publish hands a Status with the gallery listing to the status callback.
// It must run on the control goroutine.
func (c *Controller) publish() {
	c.mu.Lock()
	fn := c.status
	c.mu.Unlock()
	if fn == nil {
		return
	}
	st := c.Status()
	st.Index, st.Count = c.gallery.Index(), c.gallery.Len()
	for _, e := range c.gallery.Entries() {
		st.Names = append(st.Names, e.Name)
	}
	st.Thumbnail = c.thumbnail(st.State.Rotation)
	fn(st)
}

// thumbnail returns the current image's thumbnail, scaling it again only
// when the entry or its rotation changed.
func (c *Controller) thumbnail(rot geom.Rotation) *image.NRGBA {
	e := c.gallery.Current()
	if e != c.thumbEntry || rot != c.thumbRot {
		c.thumbEntry, c.thumbRot = e, rot
		c.thumb = c.gallery.Thumbnail(c.gallery.Index(), ThumbnailSize)
	}
	return c.thumb
}

func (c *Controller) apply(ctx context.Context, a Action) error {
	switch a.Op {
	case OpNext:
		if c.gallery.Next() != nil {
			c.follow()
		}
		return nil
	case OpPrev:
		if c.gallery.Prev() != nil {
			c.follow()
		}
		return nil
	case OpSelect:
		if !c.gallery.Select(a.Index) {
			return fmt.Errorf("no image %d", a.Index+1)
		}
		c.follow()
		return nil
	case OpSort:
		key, err := gallery.ParseSortKey(a.Arg)
		if err != nil {
			return err
		}
		c.gallery.Sort(key)
		return nil
	case OpRename:
		i := a.Index
		if i < 0 {
			i = c.gallery.Index()
		}
		return c.gallery.Rename(i, a.Arg)
	case OpSaveGallery:
		return c.saveGallery(a.Arg)
	case OpOpen:
		return c.open(ctx, a.Arg)
	case OpBackground:
		col, err := config.ParseColor(a.Arg)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.background = col
		c.mu.Unlock()
		c.invalidate(TargetProjector)
		return nil
	case OpAspect:
		return c.setAspect(a.Value)
	}

	e := c.current()
	if e == nil {
		return ErrNoImage
	}
	s := e.Store
	st := s.Snapshot()
	switch a.Op {
	case OpRotate:
		s.RotateClockwise()
	case OpToggleROI:
		s.SetROIEnabled(!st.ROIEnabled)
	case OpRotateROI:
		s.ToggleROIRotation()
	case OpMagnifier:
		s.SetMagnifierSize(int(a.Value))
	case OpMagnifierStep:
		s.SetMagnifierSize(st.Magnifier + int(a.Value))
	case OpBrightness:
		s.SetBrightness(a.Value)
	case OpBrightnessStep:
		s.SetBrightness(st.Brightness + a.Value)
	case OpAutoContrast:
		s.SetAutoContrast(!st.AutoContrast)
	case OpClearStrokes:
		s.ClearStrokes()
	case OpTool:
		t, err := canvas.ParseTool(a.Arg)
		if err != nil {
			return err
		}
		if t == st.Tool {
			t = canvas.ToolNone
		}
		c.input.Cancel()
		s.SetTool(t)
		if t != canvas.ToolLaser {
			s.HidePointer()
		}
	case OpDisplayMode:
		m := nextMode(st.DisplayMode)
		if a.Arg != "" {
			var err error
			if m, err = canvas.ParseDisplayMode(a.Arg); err != nil {
				return err
			}
		}
		return s.SetDisplayMode(m)
	case OpPointerStyle:
		p := canvas.PointerSpot
		if st.PointerStyle == canvas.PointerSpot {
			p = canvas.PointerGlow
		}
		if a.Arg != "" {
			var err error
			if p, err = canvas.ParsePointerStyle(a.Arg); err != nil {
				return err
			}
		}
		c.settings.PointerStyle = p
		s.SetPointerStyle(p)
	case OpExport:
		return c.export(e)
	case OpCopy:
		return c.copy(e)
	default:
		return fmt.Errorf("unknown action %q", a.Op)
	}
	return nil
}

func nextMode(m canvas.DisplayMode) canvas.DisplayMode {
	modes := canvas.DisplayModes()
	for i, v := range modes {
		if v == m {
			return modes[(i+1)%len(modes)]
		}
	}
	return canvas.DisplayFit
}

// setAspect records the projector's aspect ratio and applies it to the
// current image.
func (c *Controller) setAspect(a float64) error {
	if !(a > 0) {
		return fmt.Errorf("invalid aspect ratio %v", a)
	}
	c.mu.Lock()
	c.aspect = a
	e := c.entry
	c.mu.Unlock()
	if e != nil {
		if err := e.Store.SetAspect(a); err != nil {
			return err
		}
	}
	c.invalidate(TargetPreview)
	return nil
}

func (c *Controller) saveGallery(path string) error {
	if path == "" {
		path = c.settings.GalleryPath
	}
	if path == "" {
		return errors.New("save: no gallery file given")
	}
	if err := c.gallery.Save(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	c.settings.GalleryPath = path
	c.log.Info("gallery saved", "path", path, "entries", c.gallery.Len())
	c.notifier.Save(path)
	c.flash("saved " + filepath.Base(path))
	return nil
}

// open loads a gallery file or a folder of images.
func (c *Controller) open(ctx context.Context, path string) error {
	for _, e := range c.gallery.Entries() {
		c.forget(e.Path)
	}
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = c.gallery.Load(ctx, path)
		if err == nil || errors.Is(err, gallery.ErrPartial) {
			c.settings.GalleryPath = path
		}
	} else {
		err = c.gallery.OpenFolder(ctx, path)
	}
	c.follow()
	if errors.Is(err, gallery.ErrPartial) {
		c.log.Warn("gallery loaded with problems", "path", path, "err", err)
		c.flash("gallery loaded with problems, see log")
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	c.log.Info("opened", "path", path, "entries", c.gallery.Len())
	return nil
}

// frame composes the projector raster of e at its current state.
func (c *Controller) frame(e *gallery.Entry) (*image.NRGBA, error) {
	if e.Source == nil {
		return nil, fmt.Errorf("%s: %w", e.Name, compose.ErrNoSource)
	}
	st := e.Store.Snapshot()
	crop, err := compose.CropFor(st, e.Source.Bounds())
	if err != nil {
		return nil, err
	}
	res := c.cache.Get(compose.ProjectorKey(e.Path, st, crop), func() compose.Result {
		return compose.Projector(e.Source, st, crop)
	})
	if res.Empty() {
		return nil, compose.ErrNoSource
	}
	return res.Image, nil
}

func (c *Controller) export(e *gallery.Entry) error {
	img, err := c.frame(e)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	dir := c.settings.ExportDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.png", e.Name, c.now().Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	c.log.Info("frame exported", "path", path)
	c.notifier.Export(path)
	c.flash("exported " + filepath.Base(path))
	return nil
}

func (c *Controller) copy(e *gallery.Entry) error {
	img, err := c.frame(e)
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if err := c.copyImage(img); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	c.log.Info("frame copied", "name", e.Name)
	c.notifier.Copy(e.Name, img)
	c.flash("image copied to clipboard")
	return nil
}

// PreviewFrame builds the preview frame for a surface of the given bounds.
func (c *Controller) PreviewFrame(bounds image.Rectangle) surface.PreviewFrame {
	c.mu.Lock()
	e := c.entry
	comp := c.preview
	live := c.live
	aspect := c.aspect
	toast := ""
	if c.message != "" && c.now().Before(c.messageUntil) {
		toast = c.message
	}
	c.mu.Unlock()

	f := surface.PreviewFrame{Toast: toast}
	if e == nil {
		f.Layout = surface.NewLayout(bounds, aspect, 0, 0, 0)
		f.Message = "No image loaded"
		return f
	}
	f.State = e.Store.Snapshot()
	if e.Source == nil {
		f.Layout = surface.NewLayout(bounds, aspect, 0, 0, 0)
		f.Message = "Cannot open " + e.Name
		return f
	}
	b := e.Source.Bounds()
	f.Layout = surface.NewLayout(bounds, aspect, b.Dx(), b.Dy(), f.State.Rotation)
	f.Composite = comp.Image
	f.Live = live
	if comp.Empty() {
		f.Message = "Loading " + e.Name
	}
	return f
}

// ProjectorFrame builds the projector frame.
func (c *Controller) ProjectorFrame() surface.ProjectorFrame {
	c.mu.Lock()
	e := c.entry
	f := surface.ProjectorFrame{Composite: c.projector.Image, Background: c.background}
	c.mu.Unlock()
	if e != nil {
		f.State = e.Store.Snapshot()
	}
	return f
}
