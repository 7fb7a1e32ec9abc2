// Package audio provides the loadable asset library and the output device
// backed by the beep speaker.
package audio

import "errors"

// Errors
var (
	ErrUnknownAsset      = errors.New("unknown audio asset")
	ErrDeviceUnavailable = errors.New("audio device unavailable")
)
