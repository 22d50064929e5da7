//go:build !windows && !darwin && !linux

package hotkey

import "errors"

func grabChord(string, func()) (func(), error) {
	return nil, errors.New("exclusive hotkeys not supported on this platform")
}
