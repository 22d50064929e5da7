//go:build !darwin && !linux

package accessibility

import "context"

// Windows selection access needs UI Automation; the clipboard fallback
// covers it instead.
func selectedText(context.Context) (string, error) {
	return "", ErrUnsupported
}

func checkPermission(context.Context) error {
	return nil
}
