package canvas

// Class separates changes that need a new composite from changes that only
// need the overlay redrawn.
type Class int

const (
	// Heavy changes alter the composite and bump the revision.
	Heavy Class = iota
	// Light changes only affect the pointer overlay.
	Light
)

func (c Class) String() string {
	if c == Light {
		return "light"
	}
	return "heavy"
}

// Field names the part of State an event refers to.
type Field string

const (
	FieldRotation     Field = "rotation"
	FieldROIEnabled   Field = "roi_enabled"
	FieldROI          Field = "roi"
	FieldROIRotation  Field = "roi_rotation"
	FieldBrightness   Field = "brightness"
	FieldAutoContrast Field = "auto_contrast"
	FieldDisplayMode  Field = "display_mode"
	FieldStrokes      Field = "strokes"
	FieldStyle        Field = "style"
	FieldTool         Field = "tool"
	FieldAspect       Field = "aspect"
	FieldPointer      Field = "pointer"
	FieldPointerStyle Field = "pointer_style"
	FieldFrame        Field = "frame"
)

// Class returns the notification class of the field.
func (f Field) Class() Class {
	switch f {
	case FieldPointer, FieldPointerStyle, FieldFrame:
		return Light
	}
	return Heavy
}

// Event is published after a change has been stored.
type Event struct {
	Class    Class
	Field    Field
	Revision uint64
}

// Subscription receives store events. Each channel holds at most one
// pending event; a newer event replaces an unread one.
type Subscription struct {
	Heavy <-chan Event
	Light <-chan Event

	heavy chan Event
	light chan Event
	store *Store
}

// Subscribe registers a new listener.
func (s *Store) Subscribe() *Subscription {
	sub := &Subscription{
		heavy: make(chan Event, 1),
		light: make(chan Event, 1),
		store: s,
	}
	sub.Heavy = sub.heavy
	sub.Light = sub.light
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()
	return sub
}

// Close unregisters the subscription and closes both channels.
func (sub *Subscription) Close() {
	s := sub.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	close(sub.heavy)
	close(sub.light)
}

// publish must be called with s.mu held.
func (s *Store) publish(ev Event) {
	for sub := range s.subs {
		ch := sub.heavy
		if ev.Class == Light {
			ch = sub.light
		}
		offer(ch, ev)
	}
}

// offer sends without blocking, replacing a stale pending value.
func offer(ch chan Event, ev Event) {
	select {
	case ch <- ev:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}
