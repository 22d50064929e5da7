//go:build darwin

package keys

import "errors"

func newKeybdSender() (Sender, error) {
	return nil, errors.New("keybd_event backend is not used on macOS")
}
