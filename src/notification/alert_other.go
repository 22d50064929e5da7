//go:build !windows

package notification

import (
	"log"

	"github.com/gen2brain/beeep"
)

// ShowBlockingError raises a modal alert where the desktop supports one and
// always logs the message.
func ShowBlockingError(title, message string) {
	log.Printf("%s: %s", title, message)
	if err := beeep.Alert(title, message, ""); err != nil {
		log.Printf("notification: alert failed: %v", err)
	}
}
