// Package gallery holds the ordered list of images being presented, each
// with its own canvas store, and persists it as JSON.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/compose"
)

// Entry is one image of the gallery.
type Entry struct {
	Path  string
	Name  string
	Store *canvas.Store
	// Source is nil when the file could not be decoded.
	Source image.Image
	Err    error
}

// SortKey selects the ordering used by Sort.
type SortKey int

const (
	// ByName orders by display name.
	ByName SortKey = iota
	// ByFile orders by the file's base name.
	ByFile
)

// ParseSortKey accepts "name", "file" or "path".
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name", "":
		return ByName, nil
	case "file", "path":
		return ByFile, nil
	}
	return ByName, fmt.Errorf("unknown sort key %q", s)
}

// Gallery is an ordered list of entries with a current position. It is not
// safe for concurrent use; the console owns it from its control goroutine.
type Gallery struct {
	entries []*Entry
	current int
	workers int
	log     *slog.Logger
	decode  func(string) (image.Image, error)
}

// Option configures a Gallery.
type Option func(*Gallery)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gallery) { g.log = l }
}

// WithWorkers limits how many images decode in parallel.
func WithWorkers(n int) Option {
	return func(g *Gallery) { g.workers = n }
}

// WithDecoder replaces the image decoder.
func WithDecoder(fn func(string) (image.Image, error)) Option {
	return func(g *Gallery) { g.decode = fn }
}

// New returns an empty gallery.
func New(opts ...Option) *Gallery {
	g := &Gallery{current: -1, workers: 4, log: slog.Default(), decode: Decode}
	for _, o := range opts {
		o(g)
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	if g.workers < 1 {
		g.workers = 1
	}
	return g
}

// Add decodes paths in parallel and appends them with a fresh state.
// Paths already in the gallery are skipped. Decode failures are logged and
// the entry is kept without a source.
func (g *Gallery) Add(ctx context.Context, paths ...string) error {
	recs := make([]Record, 0, len(paths))
	for _, p := range paths {
		recs = append(recs, Record{Path: p, Name: displayName(p), State: canvas.DefaultState()})
	}
	return g.addRecords(ctx, recs)
}

// OpenFolder replaces the gallery with the supported images in dir.
func (g *Gallery) OpenFolder(ctx context.Context, dir string) error {
	paths, err := Scan(dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	g.Clear()
	return g.Add(ctx, paths...)
}

func (g *Gallery) addRecords(ctx context.Context, recs []Record) error {
	recs = slices.DeleteFunc(recs, func(r Record) bool { return g.Find(r.Path) >= 0 })
	entries := make([]*Entry, len(recs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, r := range recs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e := &Entry{
				Path:  r.Path,
				Name:  r.Name,
				Store: canvas.NewStore(canvas.WithState(r.State), canvas.WithLogger(g.log)),
			}
			e.Source, e.Err = g.decode(r.Path)
			if e.Err != nil {
				g.log.Warn("image decode failed", "path", r.Path, "err", e.Err)
			}
			entries[i] = e
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	g.entries = append(g.entries, entries...)
	if g.current < 0 && len(g.entries) > 0 {
		g.current = 0
	}
	g.log.Debug("gallery entries added", "count", len(entries), "total", len(g.entries))
	return nil
}

// Reload decodes the image at path again. The entry keeps its name and its
// store; it is replaced by a new Entry so readers holding the old one never
// see the source change under them. Decode failures are logged and kept on
// the entry like in Add.
func (g *Gallery) Reload(ctx context.Context, path string) error {
	i := g.Find(path)
	if i < 0 {
		return fmt.Errorf("reload %s: not in the gallery", path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	old := g.entries[i]
	e := &Entry{Path: old.Path, Name: old.Name, Store: old.Store}
	e.Source, e.Err = g.decode(path)
	if e.Err != nil {
		g.log.Warn("image decode failed", "path", path, "err", e.Err)
	}
	cur := g.Current()
	g.entries[i] = e
	if cur == old {
		cur = e
	}
	g.follow(cur)
	return nil
}

// Load replaces the gallery with the one saved at path. Entries whose image
// no longer exists are skipped. The returned error matches ErrPartial when
// the gallery loaded with pieces dropped.
func (g *Gallery) Load(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	recs, err := DecodeRecords(f)
	if err != nil && !errors.Is(err, ErrPartial) {
		return err
	}
	warns := []error{err}
	base := filepath.Dir(path)
	kept := recs[:0]
	for _, r := range recs {
		if !filepath.IsAbs(r.Path) {
			r.Path = filepath.Join(base, r.Path)
		}
		if _, statErr := os.Stat(r.Path); statErr != nil {
			g.log.Warn("gallery image missing", "path", r.Path)
			warns = append(warns, fmt.Errorf("%w: %s skipped", ErrPartial, r.Path))
			continue
		}
		kept = append(kept, r)
	}
	g.Clear()
	if err := g.addRecords(ctx, kept); err != nil {
		return err
	}
	return errors.Join(warns...)
}

// Save writes the gallery to path.
func (g *Gallery) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, g.Records()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Records snapshots every entry.
func (g *Gallery) Records() []Record {
	out := make([]Record, 0, len(g.entries))
	for _, e := range g.entries {
		out = append(out, Record{Path: e.Path, Name: e.Name, State: e.Store.Snapshot()})
	}
	return out
}

// Clear empties the gallery.
func (g *Gallery) Clear() {
	g.entries = nil
	g.current = -1
}

// Len returns the number of entries.
func (g *Gallery) Len() int { return len(g.entries) }

// Entries returns the entries in order.
func (g *Gallery) Entries() []*Entry { return slices.Clone(g.entries) }

// Index returns the current position, or -1 when empty.
func (g *Gallery) Index() int { return g.current }

// Current returns the current entry, or nil when empty.
func (g *Gallery) Current() *Entry {
	if g.current < 0 || g.current >= len(g.entries) {
		return nil
	}
	return g.entries[g.current]
}

// Find returns the index of path, or -1.
func (g *Gallery) Find(path string) int {
	return slices.IndexFunc(g.entries, func(e *Entry) bool { return e.Path == path })
}

// Select makes entry i current and resets its tool to none.
func (g *Gallery) Select(i int) bool {
	if i < 0 || i >= len(g.entries) {
		return false
	}
	g.current = i
	g.entries[i].Store.ResetTool()
	return true
}

// Next moves to the following entry, wrapping at the end.
func (g *Gallery) Next() *Entry {
	if len(g.entries) == 0 {
		return nil
	}
	g.Select((g.current + 1) % len(g.entries))
	return g.Current()
}

// Prev moves to the preceding entry, wrapping at the start.
func (g *Gallery) Prev() *Entry {
	if len(g.entries) == 0 {
		return nil
	}
	g.Select((g.current - 1 + len(g.entries)) % len(g.entries))
	return g.Current()
}

// Sort orders the entries case-insensitively. The current entry stays
// current.
func (g *Gallery) Sort(key SortKey) {
	cur := g.Current()
	slices.SortStableFunc(g.entries, func(a, b *Entry) int {
		ka, kb := a.Name, b.Name
		if key == ByFile {
			ka, kb = filepath.Base(a.Path), filepath.Base(b.Path)
		}
		return strings.Compare(strings.ToLower(ka), strings.ToLower(kb))
	})
	g.follow(cur)
}

// Reorder arranges the entries in the order of paths. Unknown paths are
// ignored and entries not named are dropped.
func (g *Gallery) Reorder(paths []string) {
	cur := g.Current()
	byPath := make(map[string]*Entry, len(g.entries))
	for _, e := range g.entries {
		byPath[e.Path] = e
	}
	out := make([]*Entry, 0, len(paths))
	for _, p := range paths {
		if e, ok := byPath[p]; ok {
			out = append(out, e)
			delete(byPath, p)
		}
	}
	g.entries = out
	g.follow(cur)
}

// Rename changes the display name of entry i.
func (g *Gallery) Rename(i int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("empty name")
	}
	if i < 0 || i >= len(g.entries) {
		return fmt.Errorf("no entry %d", i)
	}
	g.entries[i].Name = name
	return nil
}

// Remove drops the entry for path.
func (g *Gallery) Remove(path string) bool {
	i := g.Find(path)
	if i < 0 {
		return false
	}
	cur := g.Current()
	g.entries = slices.Delete(g.entries, i, i+1)
	if cur != nil && cur.Path == path {
		cur = nil
		if len(g.entries) > 0 {
			cur = g.entries[min(i, len(g.entries)-1)]
		}
	}
	g.follow(cur)
	return true
}

func (g *Gallery) follow(cur *Entry) {
	g.current = slices.Index(g.entries, cur)
	if g.current < 0 && len(g.entries) > 0 {
		g.current = 0
	}
}

// Thumbnail renders entry i at most size pixels on a side, turned by its
// rotation. It returns nil for entries without a source.
func (g *Gallery) Thumbnail(i, size int) *image.NRGBA {
	if i < 0 || i >= len(g.entries) || g.entries[i].Source == nil {
		return nil
	}
	e := g.entries[i]
	return compose.Thumbnail(e.Source, e.Store.Snapshot().Rotation, size)
}

func displayName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
