package keys

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

type robotgoSender struct {
	goos string
}

func (s robotgoSender) Send(c Chord) error {
	key, modifier, err := chordKeys(c, s.goos)
	if err != nil {
		return err
	}
	if err := robotgo.KeyTap(key, modifier); err != nil {
		return fmt.Errorf("send %s: %w", c, err)
	}
	return nil
}
