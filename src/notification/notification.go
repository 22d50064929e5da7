// Package notification renders short-lived status overlays. Calls never
// block the caller and never take keyboard focus.
package notification

import (
	"log"
	"time"

	"omnikey/src/logutil"
)

const maxBodyRunes = 200

// Show queues a transient overlay with title and body, held for hold
// between its fades. On macOS Notification Center decides the lifetime and
// hold is ignored. Rendering failures are logged and swallowed.
func Show(title, body string, hold time.Duration) {
	body = logutil.Truncate(body, maxBodyRunes)
	log.Printf("notification: %s: %s", title, logutil.Preview(body, 80))
	show(title, body, hold)
}
