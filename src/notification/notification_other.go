//go:build !windows && !linux

package notification

import (
	"log"
	"time"

	"github.com/gen2brain/beeep"
)

// Notification Center owns placement and lifetime on macOS and offers no
// per-notification duration, so hold is not honoured here.
func show(title, body string, _ time.Duration) {
	go func() {
		if err := beeep.Notify(title, body, ""); err != nil {
			log.Printf("notification: desktop notification failed: %v", err)
		}
	}()
}
