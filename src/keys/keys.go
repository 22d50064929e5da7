// Package keys synthesizes the copy and paste chords into the focused
// application.
package keys

import (
	"fmt"
	"log"
	"runtime"
	"strings"
)

// Chord is a key combination the pipeline needs to send.
type Chord int

const (
	Copy Chord = iota
	Paste
)

func (c Chord) String() string {
	switch c {
	case Copy:
		return "copy"
	case Paste:
		return "paste"
	default:
		return fmt.Sprintf("chord(%d)", int(c))
	}
}

// Sender posts a chord. A nil error only means the events were queued; the
// target application may still ignore them.
type Sender interface {
	Send(c Chord) error
}

const (
	BackendRobotgo = "robotgo"
	BackendKeybd   = "keybd"
)

// New returns the sender for backend, falling back to robotgo when the
// requested backend cannot start on this machine.
func New(backend string) Sender {
	if strings.EqualFold(backend, BackendKeybd) {
		s, err := newKeybdSender()
		if err == nil {
			log.Printf("keys: using keybd_event backend")
			return s
		}
		log.Printf("keys: keybd_event backend unavailable (%v), using robotgo", err)
	}
	log.Printf("keys: using robotgo backend")
	return robotgoSender{goos: runtime.GOOS}
}

// chordKeys maps a chord to the key and modifier names robotgo expects.
func chordKeys(c Chord, goos string) (key, modifier string, err error) {
	modifier = "ctrl"
	if goos == "darwin" {
		modifier = "cmd"
	}
	switch c {
	case Copy:
		return "c", modifier, nil
	case Paste:
		return "v", modifier, nil
	default:
		return "", "", fmt.Errorf("unknown chord %v", c)
	}
}
