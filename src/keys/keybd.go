//go:build !darwin

package keys

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
)

type keybdSender struct {
	mu sync.Mutex
	kb keybd_event.KeyBonding
}

func newKeybdSender() (Sender, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, err
	}
	// The uinput device needs a moment before the compositor accepts events from it.
	if runtime.GOOS == "linux" {
		time.Sleep(2 * time.Second)
	}
	return &keybdSender{kb: kb}, nil
}

func (s *keybdSender) Send(c Chord) error {
	var vk int
	switch c {
	case Copy:
		vk = keybd_event.VK_C
	case Paste:
		vk = keybd_event.VK_V
	default:
		return fmt.Errorf("unknown chord %v", c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.kb.Clear()
	s.kb.HasCTRL(true)
	s.kb.SetKeys(vk)
	if err := s.kb.Launching(); err != nil {
		return fmt.Errorf("send %s: %w", c, err)
	}
	return nil
}
