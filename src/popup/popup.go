package popup

import (
	"log"
	"runtime"
	"time"

	"omnikey/src/logutil"
	"omnikey/src/notification"
)

// Notifier shows a fire-and-forget status message.
type Notifier interface {
	Show(title, body string)
}

// Overlay is the Notifier backed by the notification package.
type Overlay struct {
	Hold    time.Duration
	Enabled bool
}

func New(hold time.Duration, enabled bool) *Overlay {
	return &Overlay{Hold: hold, Enabled: enabled}
}

// Show never blocks; the notification layer manages its own lifetime.
func (o *Overlay) Show(title, body string) {
	_, file, line, ok := runtime.Caller(1)
	if ok {
		log.Printf("Popup.Show called from %s:%d: %s / %s", file, line, title, logutil.Preview(body, 50))
	} else {
		log.Printf("Popup.Show: %s / %s", title, logutil.Preview(body, 50))
	}
	if !o.Enabled {
		return
	}
	notification.Show(title, body, o.Hold)
}

// Fatal shows a blocking error dialog. Only used before the event loop runs.
func Fatal(title, message string) {
	log.Printf("Popup.Fatal: %s: %s", title, message)
	notification.ShowBlockingError(title, message)
}

// Discard is a Notifier that drops everything, for headless runs.
type Discard struct{}

func (Discard) Show(string, string) {}
