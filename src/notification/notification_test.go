package notification

import (
	"os"
	"strings"
	"testing"
	"time"
)

func interactive(t *testing.T) {
	t.Helper()
	if os.Getenv("OMNIKEY_INTERACTIVE_TESTS") != "1" {
		t.Skip("Skipping interactive test: set OMNIKEY_INTERACTIVE_TESTS=1 to show real notifications")
	}
}

func TestShowInteractive(t *testing.T) {
	interactive(t)
	Show("Fixing Grammar", "Fixing grammar of your selected text...", 1200*time.Millisecond)
	// A second notification supersedes the first one.
	time.Sleep(300 * time.Millisecond)
	Show("Success", "Text enhanced!", 1200*time.Millisecond)
	time.Sleep(2 * time.Second)
}

func TestShowLongBodyInteractive(t *testing.T) {
	interactive(t)
	Show("Error", "Failed: "+strings.Repeat("service returned 502 Bad Gateway ", 20), 1500*time.Millisecond)
	time.Sleep(2 * time.Second)
}
