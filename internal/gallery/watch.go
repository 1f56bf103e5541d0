package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind says what happened to a watched image.
type ChangeKind int

const (
	Added ChangeKind = iota
	Removed
	// Modified is written content; the image is decoded again.
	Modified
)

// SettleDelay is how long a folder must stay quiet before new or rewritten
// images are reported, so files still being copied are not decoded early.
const SettleDelay = 300 * time.Millisecond

func (k ChangeKind) String() string {
	switch k {
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	}
	return "added"
}

// Change is a supported image appearing in or leaving the watched folder.
type Change struct {
	Kind ChangeKind
	Path string
}

// Watcher reports image changes in a folder.
type Watcher struct {
	w      *fsnotify.Watcher
	out    chan Change
	log    *slog.Logger
	settle time.Duration
}

// Watch starts watching dir. Changes arrive on Changes until ctx is done or
// Close is called.
func Watch(ctx context.Context, dir string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w := &Watcher{w: fw, out: make(chan Change, 16), log: logger, settle: SettleDelay}
	go w.run(ctx)
	return w, nil
}

// Changes delivers folder changes. It is closed when watching stops.
func (w *Watcher) Changes() <-chan Change { return w.out }

// Close stops watching.
func (w *Watcher) Close() error { return w.w.Close() }

func (w *Watcher) run(ctx context.Context) {
	defer close(w.out)
	defer w.w.Close()
	// Additions and writes wait in pending until the folder settles;
	// removals go out at once.
	pending := make(map[string]ChangeKind)
	timer := time.NewTimer(w.settle)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			c, ok := classify(ev)
			if !ok {
				continue
			}
			if c.Kind == Removed {
				delete(pending, c.Path)
				if !w.send(ctx, c) {
					return
				}
				continue
			}
			if k, seen := pending[c.Path]; !seen || k != Added {
				pending[c.Path] = c.Kind
			}
			timer.Reset(w.settle)
		case <-timer.C:
			for _, p := range slices.Sorted(maps.Keys(pending)) {
				if !w.send(ctx, Change{Kind: pending[p], Path: p}) {
					return
				}
			}
			clear(pending)
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.log.Warn("folder watch error", "err", err)
		}
	}
}

func (w *Watcher) send(ctx context.Context, c Change) bool {
	select {
	case w.out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func classify(ev fsnotify.Event) (Change, bool) {
	if !Supported(ev.Name) {
		return Change{}, false
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return Change{Kind: Removed, Path: ev.Name}, true
	case ev.Has(fsnotify.Create):
		return Change{Kind: Added, Path: ev.Name}, true
	case ev.Has(fsnotify.Write):
		return Change{Kind: Modified, Path: ev.Name}, true
	}
	return Change{}, false
}

// Apply folds a change into the gallery. An image already listed is decoded
// again whether it was added or modified, keeping its state.
func (g *Gallery) Apply(ctx context.Context, c Change) error {
	switch c.Kind {
	case Added, Modified:
		if g.Find(c.Path) >= 0 {
			return g.Reload(ctx, c.Path)
		}
		return g.Add(ctx, c.Path)
	case Removed:
		g.Remove(c.Path)
	}
	return nil
}
