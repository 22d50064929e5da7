//go:build windows || darwin || linux

package hotkey

import (
	"fmt"
	"log"
	"sync"

	xhotkey "golang.design/x/hotkey"
)

var keyByName = map[string]xhotkey.Key{
	"a": xhotkey.KeyA, "b": xhotkey.KeyB, "c": xhotkey.KeyC, "d": xhotkey.KeyD,
	"e": xhotkey.KeyE, "f": xhotkey.KeyF, "g": xhotkey.KeyG, "h": xhotkey.KeyH,
	"i": xhotkey.KeyI, "j": xhotkey.KeyJ, "k": xhotkey.KeyK, "l": xhotkey.KeyL,
	"m": xhotkey.KeyM, "n": xhotkey.KeyN, "o": xhotkey.KeyO, "p": xhotkey.KeyP,
	"q": xhotkey.KeyQ, "r": xhotkey.KeyR, "s": xhotkey.KeyS, "t": xhotkey.KeyT,
	"u": xhotkey.KeyU, "v": xhotkey.KeyV, "w": xhotkey.KeyW, "x": xhotkey.KeyX,
	"y": xhotkey.KeyY, "z": xhotkey.KeyZ,

	"0": xhotkey.Key0, "1": xhotkey.Key1, "2": xhotkey.Key2, "3": xhotkey.Key3,
	"4": xhotkey.Key4, "5": xhotkey.Key5, "6": xhotkey.Key6, "7": xhotkey.Key7,
	"8": xhotkey.Key8, "9": xhotkey.Key9,

	"f1": xhotkey.KeyF1, "f2": xhotkey.KeyF2, "f3": xhotkey.KeyF3, "f4": xhotkey.KeyF4,
	"f5": xhotkey.KeyF5, "f6": xhotkey.KeyF6, "f7": xhotkey.KeyF7, "f8": xhotkey.KeyF8,
	"f9": xhotkey.KeyF9, "f10": xhotkey.KeyF10, "f11": xhotkey.KeyF11, "f12": xhotkey.KeyF12,

	"space":  xhotkey.KeySpace,
	"enter":  xhotkey.KeyReturn,
	"return": xhotkey.KeyReturn,
	"esc":    xhotkey.KeyEscape,
	"escape": xhotkey.KeyEscape,
	"tab":    xhotkey.KeyTab,
	"delete": xhotkey.KeyDelete,
	"del":    xhotkey.KeyDelete,
	"left":   xhotkey.KeyLeft,
	"right":  xhotkey.KeyRight,
	"up":     xhotkey.KeyUp,
	"down":   xhotkey.KeyDown,
}

// exclusiveChord splits combo into modifiers and exactly one key.
func exclusiveChord(combo string) ([]xhotkey.Modifier, xhotkey.Key, error) {
	var (
		mods    []xhotkey.Modifier
		key     xhotkey.Key
		haveKey bool
	)
	for _, name := range parseHotkey(combo) {
		if mod, ok := modifierByName[name]; ok {
			mods = append(mods, mod)
			continue
		}
		k, ok := keyByName[name]
		if !ok {
			return nil, 0, fmt.Errorf("key %q cannot be registered with the OS", name)
		}
		if haveKey {
			return nil, 0, fmt.Errorf("%q has more than one non-modifier key", combo)
		}
		key, haveKey = k, true
	}
	if !haveKey {
		return nil, 0, fmt.Errorf("%q has no non-modifier key", combo)
	}
	return mods, key, nil
}

// grabChord registers combo with the OS, which then withholds the chord from
// the focused application, and calls fire once per press.
func grabChord(combo string, fire func()) (func(), error) {
	mods, key, err := exclusiveChord(combo)
	if err != nil {
		return nil, err
	}
	hk := xhotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("register %s: %w", combo, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case _, ok := <-hk.Keydown():
				if !ok {
					return
				}
			}
			fire()
			// Holding the chord fires once.
			select {
			case <-done:
				return
			case _, ok := <-hk.Keyup():
				if !ok {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			if err := hk.Unregister(); err != nil {
				log.Printf("Hotkey %s: unregister failed: %v", combo, err)
			}
		})
	}, nil
}
