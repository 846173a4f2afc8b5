//go:build !((linux && cgo) || windows || darwin)

package player

import "net/http"

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio requires CGO for native sound libraries on this platform.
const AudioAvailable = false

// NewHandle returns a silent handle; the transport and store still track position.
func NewHandle(_ *http.Client, _ int) Handle {
	return NewSilentHandle()
}
