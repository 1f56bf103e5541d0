package platform

import "time"

// DefaultAppName identifies the sender to the notification service.
const DefaultAppName = "BeamDeck"

// Options configures how a notification is displayed on the host platform.
type Options struct {
	// AppName overrides DefaultAppName.
	AppName string
	// IconPath, when non-empty, points to an image file shown with the
	// notification where the platform supports it.
	IconPath string
	// Timeout is how long the notification stays up; zero leaves it to the
	// notification service.
	Timeout time.Duration
}

func (o Options) appName() string {
	if o.AppName == "" {
		return DefaultAppName
	}
	return o.AppName
}
