//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package clipboard

import "errors"

var errUnsupported = errors.New("clipboard is not supported on this platform")

func writeImage([]byte) error { return errUnsupported }
