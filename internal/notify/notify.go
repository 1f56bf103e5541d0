// Package notify turns presenter events into desktop notifications.
package notify

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/beamdeck/internal/platform"
)

// Event identifies a notification trigger.
type Event string

const (
	// EventSave fires when a gallery file is written.
	EventSave Event = "save"
	// EventExport fires when a projector frame is exported as an image.
	EventExport Event = "export"
	// EventCopy fires when a projector frame is copied to the clipboard.
	EventCopy Event = "copy"
)

// EventPreference describes formatting for a notification event.
type EventPreference struct {
	Template string
}

// Preferences describes notification behaviour loaded from configuration.
type Preferences struct {
	Title   string
	Timeout time.Duration
	Events  map[Event]EventPreference
}

// DefaultPreferences returns the default notification settings.
func DefaultPreferences() Preferences {
	return Preferences{
		Title:   "BeamDeck",
		Timeout: 5 * time.Second,
		Events: map[Event]EventPreference{
			EventSave:   {Template: "Gallery saved to %s"},
			EventExport: {Template: "Exported %s"},
			EventCopy:   {Template: "Copied %s to clipboard"},
		},
	}
}

// LoadPreferences reads overrides from environment variables.
func LoadPreferences() Preferences {
	prefs := DefaultPreferences()
	if v := strings.TrimSpace(os.Getenv("BEAMDECK_NOTIFY_TITLE")); v != "" {
		prefs.Title = v
	}
	apply := func(key string, event Event) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			eventPrefs := prefs.Events[event]
			eventPrefs.Template = v
			prefs.Events[event] = eventPrefs
		}
	}
	apply("BEAMDECK_NOTIFY_SAVE_TEXT", EventSave)
	apply("BEAMDECK_NOTIFY_EXPORT_TEXT", EventExport)
	apply("BEAMDECK_NOTIFY_COPY_TEXT", EventCopy)
	return prefs
}

// SendFunc delivers one notification.
type SendFunc func(title, body string, opts platform.Options) error

// Notifier sends OS-level notifications based on the configured preferences.
type Notifier struct {
	prefs   Preferences
	enabled map[Event]bool
	send    SendFunc
	log     *slog.Logger
}

// New creates a new Notifier using the provided preferences.
func New(prefs Preferences, logger *slog.Logger) *Notifier {
	cloned := Preferences{Title: prefs.Title, Timeout: prefs.Timeout, Events: make(map[Event]EventPreference, len(prefs.Events))}
	for k, v := range prefs.Events {
		cloned.Events[k] = v
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{prefs: cloned, enabled: make(map[Event]bool), send: platform.Notify, log: logger}
}

// WithSender replaces the platform delivery, mainly for tests.
func (n *Notifier) WithSender(fn SendFunc) *Notifier {
	n.send = fn
	return n
}

// Enable toggles the notifier for the provided event.
func (n *Notifier) Enable(event Event, enabled bool) {
	if n == nil {
		return
	}
	if n.enabled == nil {
		n.enabled = make(map[Event]bool)
	}
	n.enabled[event] = enabled
}

// Save reports a written gallery file.
func (n *Notifier) Save(path string) {
	if !n.enabledFor(EventSave) {
		return
	}
	n.dispatch(EventSave, absolute(path), platform.Options{})
}

// Export reports an exported frame, using the file itself as the icon.
func (n *Notifier) Export(path string) {
	if !n.enabledFor(EventExport) {
		return
	}
	detail := absolute(path)
	opts := platform.Options{}
	if _, err := os.Stat(detail); err == nil {
		opts.IconPath = detail
	}
	n.dispatch(EventExport, detail, opts)
}

// Copy reports a clipboard copy with an optional image preview.
func (n *Notifier) Copy(detail string, img image.Image) {
	if !n.enabledFor(EventCopy) {
		return
	}
	if strings.TrimSpace(detail) == "" {
		detail = "projector frame"
	}
	opts := platform.Options{}
	if img != nil {
		if path, cleanup, err := createPreview(img); err != nil {
			n.log.Warn("notification preview", "err", err)
		} else {
			defer cleanup()
			opts.IconPath = path
		}
	}
	n.dispatch(EventCopy, detail, opts)
}

func absolute(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return strings.TrimSpace(path)
}

func (n *Notifier) enabledFor(event Event) bool {
	if n == nil || n.enabled == nil {
		return false
	}
	return n.enabled[event]
}

func (n *Notifier) dispatch(event Event, detail string, opts platform.Options) {
	template := strings.TrimSpace(n.template(event))
	if template == "" {
		return
	}
	body := strings.TrimSpace(fmt.Sprintf(template, strings.TrimSpace(detail)))
	if body == "" {
		return
	}
	opts.Timeout = n.prefs.Timeout
	if err := n.send(n.prefs.Title, body, opts); err != nil {
		n.log.Warn("notification failed", "event", string(event), "err", err)
	}
}

func (n *Notifier) template(event Event) string {
	if pref, ok := n.prefs.Events[event]; ok {
		return pref.Template
	}
	return ""
}

func createPreview(img image.Image) (string, func(), error) {
	f, err := os.CreateTemp("", "beamdeck-preview-*.png")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, err
	}
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("remove preview", "path", path, "err", err)
		}
	}
	return path, cleanup, nil
}
