//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package monitor

import "fmt"

type unsupportedBackend struct{}

func newBackend() platformBackend {
	return unsupportedBackend{}
}

func (unsupportedBackend) List() ([]Info, error) {
	return nil, fmt.Errorf("monitor listing: %w on this platform", ErrNoMonitors)
}
