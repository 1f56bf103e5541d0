package compose

import (
	"fmt"
	"image"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/example/beamdeck/internal/geom"
)

// Key identifies a composite. For projector keys Revision covers every Heavy
// field of the snapshot, the crop and rotation are kept to tell projector
// variants apart. Preview keys leave Revision zero and name the tone inputs
// instead, since the preview ignores strokes and the ROI.
type Key struct {
	Image        string
	Kind         Kind
	Revision     uint64
	Crop         image.Rectangle
	Rotation     geom.Rotation
	Brightness   float64
	AutoContrast bool
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%d|%v|%d|%g|%t", k.Image, k.Kind, k.Revision, k.Crop, k.Rotation, k.Brightness, k.AutoContrast)
}

// Cache keeps recent composites and collapses concurrent requests for the
// same key into one computation.
type Cache struct {
	lru    *lru.Cache[Key, Result]
	group  singleflight.Group
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a cache holding up to size composites.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = 16
	}
	l, err := lru.New[Key, Result](size)
	if err != nil {
		return nil, fmt.Errorf("composite cache: %w", err)
	}
	return &Cache{lru: l}, nil
}

// Get returns the cached composite for key or computes it with fn. Empty
// results are returned but not stored.
func (c *Cache) Get(key Key, fn func() Result) Result {
	if r, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return r
	}
	v, _, _ := c.group.Do(key.String(), func() (any, error) {
		if r, ok := c.lru.Get(key); ok {
			return r, nil
		}
		c.misses.Add(1)
		r := fn()
		if !r.Empty() {
			c.lru.Add(key, r)
		}
		return r, nil
	})
	return v.(Result)
}

// Forget drops every composite of one image.
func (c *Cache) Forget(imageID string) {
	for _, k := range c.lru.Keys() {
		if k.Image == imageID {
			c.lru.Remove(k)
		}
	}
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached composites.
func (c *Cache) Len() int { return c.lru.Len() }
