//go:build !windows

package tray

import (
	"time"

	"omnikey/src/notification"
)

func showAbout(title, message string) {
	notification.Show(title, message, 4*time.Second)
}
