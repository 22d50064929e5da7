//go:build linux

package notification

import (
	"log"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/godbus/dbus/v5"

	"omnikey/src/overlay"
)

const (
	notifyDest = "org.freedesktop.Notifications"
	notifyPath = "/org/freedesktop/Notifications"
	appName    = "OmniKey"
)

var (
	// Replaced in tests.
	sendNotify     = notifyDBus
	fallbackNotify = func(title, body string) error { return beeep.Notify(title, body, "") }

	notifyMu sync.Mutex
	// lastID is replaced by the next notification so only one is visible.
	lastID uint32
)

// expireTimeout is the daemon lifetime, in milliseconds, matching the
// overlay's fade-in, hold and fade-out.
func expireTimeout(hold time.Duration) int32 {
	return int32(overlay.DefaultTimeline(hold).Total() / time.Millisecond)
}

func show(title, body string, hold time.Duration) {
	timeout := expireTimeout(hold)
	go func() {
		err := sendNotify(title, body, timeout)
		if err == nil {
			return
		}
		log.Printf("notification: D-Bus notify failed (%v), using beeep", err)
		if err := fallbackNotify(title, body); err != nil {
			log.Printf("notification: desktop notification failed: %v", err)
		}
	}()
}

// notifyDBus calls org.freedesktop.Notifications.Notify with an explicit
// expiry. Daemons that ignore expire_timeout fall back to their default.
func notifyDBus(title, body string, timeoutMs int32) error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return err
	}

	notifyMu.Lock()
	defer notifyMu.Unlock()
	hints := map[string]dbus.Variant{"transient": dbus.MakeVariant(true)}
	call := conn.Object(notifyDest, dbus.ObjectPath(notifyPath)).Call(
		notifyDest+".Notify", 0,
		appName, lastID, "", title, body, []string{}, hints, timeoutMs,
	)
	if call.Err != nil {
		return call.Err
	}
	var id uint32
	if err := call.Store(&id); err != nil {
		return err
	}
	lastID = id
	return nil
}
