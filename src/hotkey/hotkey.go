// Package hotkey turns global key combinations into commands.
package hotkey

import (
	"fmt"
	"log"
	"runtime"
	"sort"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"

	"omnikey/src/command"
)

// binding is one combination: every group must have at least one code held.
type binding struct {
	command command.Command
	combo   string
	groups  [][]uint16
	latched bool
}

// matcher tracks held keys and reports which binding a key press completes.
type matcher struct {
	mu       sync.Mutex
	bindings []*binding
	held     map[uint16]bool
}

func newMatcher(bindings map[command.Command]string, codesFor func(string) []uint16) (*matcher, error) {
	m := &matcher{held: make(map[uint16]bool)}
	for cmd, combo := range bindings {
		b := &binding{command: cmd, combo: combo}
		for _, name := range parseHotkey(combo) {
			codes := codesFor(name)
			if len(codes) == 0 {
				return nil, fmt.Errorf("hotkey %q for %s: unknown key %q", combo, cmd, name)
			}
			b.groups = append(b.groups, codes)
		}
		if len(b.groups) == 0 {
			return nil, fmt.Errorf("hotkey for %s is empty", cmd)
		}
		m.bindings = append(m.bindings, b)
	}
	// Longer combinations win, so Ctrl+Alt+E is not shadowed by Alt+E.
	sort.SliceStable(m.bindings, func(i, j int) bool {
		if len(m.bindings[i].groups) != len(m.bindings[j].groups) {
			return len(m.bindings[i].groups) > len(m.bindings[j].groups)
		}
		return m.bindings[i].command < m.bindings[j].command
	})
	return m, nil
}

// press records a key down and returns the command it completes, if any.
// Holding the combination does not fire again until one of its keys is
// released.
func (m *matcher) press(code uint16) (command.Command, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[code] = true
	for _, b := range m.bindings {
		if !b.contains(code) || !b.satisfied(m.held) {
			continue
		}
		if b.latched {
			return "", false
		}
		b.latched = true
		return b.command, true
	}
	return "", false
}

func (m *matcher) release(code uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, code)
	for _, b := range m.bindings {
		if b.contains(code) {
			b.latched = false
		}
	}
}

func (b *binding) contains(code uint16) bool {
	for _, group := range b.groups {
		for _, c := range group {
			if c == code {
				return true
			}
		}
	}
	return false
}

func (b *binding) satisfied(held map[uint16]bool) bool {
	for _, group := range b.groups {
		ok := false
		for _, c := range group {
			if held[c] {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

var (
	// Replaced in tests.
	registerExclusive = grabChord
	startPassive      = listenPassive
	stopPassive       = gohook.End

	activeMu sync.Mutex
	releases []func()
	hooked   bool
)

// Listen binds every combination and calls callback with its command when
// pressed. Each combination is first claimed from the OS so the chord never
// reaches the focused application; the ones the OS refuses (taken by another
// program, no X server) are watched through a passive hook instead, where
// the keys also reach the focused application. callback must not block.
func Listen(bindings map[command.Command]string, callback func(command.Command)) error {
	codesFor := platformCodes()
	// Validate everything before claiming anything.
	m, err := newMatcher(bindings, codesFor)
	if err != nil {
		return err
	}
	if len(m.bindings) == 0 {
		return fmt.Errorf("no hotkeys configured")
	}

	passive := make(map[command.Command]string)
	for _, b := range m.bindings {
		cmd, combo := b.command, b.combo
		release, err := registerExclusive(combo, func() {
			log.Printf("Hotkey activated: %s", cmd)
			if callback != nil {
				callback(cmd)
			}
		})
		if err != nil {
			log.Printf("WARNING: hotkey %s -> %s not registered exclusively (%v); falling back to a passive hook, the keys also reach the focused app", combo, cmd, err)
			passive[cmd] = combo
			continue
		}
		log.Printf("Hotkey registered: %s -> %s", combo, cmd)
		activeMu.Lock()
		releases = append(releases, release)
		activeMu.Unlock()
	}

	if len(passive) == 0 {
		return nil
	}
	pm, err := newMatcher(passive, codesFor)
	if err != nil {
		return err
	}
	activeMu.Lock()
	hooked = true
	activeMu.Unlock()
	startPassive(pm, callback)
	return nil
}

func platformCodes() func(string) []uint16 {
	if runtime.GOOS == "windows" {
		return keyNameToRawcodes
	}
	return keyNameToKeycodes
}

// listenPassive runs one gohook listener for the bindings of m.
func listenPassive(m *matcher, callback func(command.Command)) {
	codeOf := func(ev gohook.Event) uint16 { return ev.Keycode }
	if runtime.GOOS == "windows" {
		codeOf = func(ev gohook.Event) uint16 { return ev.Rawcode }
	}
	for _, b := range m.bindings {
		log.Printf("Hotkey listener configured: %s -> %s", b.combo, b.command)
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("ERROR: gohook.Start() returned nil channel")
			return
		}
		for ev := range evChan {
			switch ev.Kind {
			case gohook.KeyDown, gohook.KeyHold:
				if cmd, ok := m.press(codeOf(ev)); ok {
					log.Printf("Hotkey activated: %s", cmd)
					if callback != nil {
						callback(cmd)
					}
				}
			case gohook.KeyUp:
				m.release(codeOf(ev))
			}
		}
		log.Printf("Hotkey event channel closed")
	}()
}

// Stop releases the exclusive registrations and ends the passive hook.
func Stop() {
	activeMu.Lock()
	rs, hook := releases, hooked
	releases, hooked = nil, false
	activeMu.Unlock()

	for _, release := range rs {
		release()
	}
	if hook {
		stopPassive()
	}
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "ctrl", "control":
			keys = append(keys, "ctrl")
		case "alt", "option", "opt":
			keys = append(keys, "alt")
		case "win", "cmd", "super", "command", "meta":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

// keyNameToKeycodes maps a key name to gohook keycodes (macOS and Linux),
// including the right-hand variant of modifiers.
func keyNameToKeycodes(keyName string) []uint16 {
	names := []string{keyName}
	switch keyName {
	case "ctrl", "alt", "shift", "cmd":
		names = append(names, "r"+keyName)
	case "esc":
		names = []string{"esc", "escape"}
	case "return":
		names = []string{"enter"}
	}
	var codes []uint16
	for _, n := range names {
		if code, ok := gohook.Keycode[n]; ok {
			codes = append(codes, code)
		}
	}
	return codes
}

// keyNameToRawcodes maps a key name to its Windows virtual key code rawcodes
// Returns a slice of rawcodes (e.g., both left and right variants for modifiers)
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	if len(keyName) == 1 {
		switch c := keyName[0]; {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16('A' + c - 'a')} // VK_A..VK_Z
		case c >= '0' && c <= '9':
			return []uint16{uint16(c)} // VK_0..VK_9
		}
	}
	if len(keyName) > 1 && keyName[0] == 'f' {
		var n int
		if _, err := fmt.Sscanf(keyName[1:], "%d", &n); err == nil && n >= 1 && n <= 24 && fmt.Sprint(n) == keyName[1:] {
			return []uint16{uint16(111 + n)} // VK_F1 = 112
		}
	}

	switch keyName {
	case "ctrl":
		return []uint16{162, 163} // VK_LCONTROL, VK_RCONTROL
	case "alt":
		return []uint16{164, 165} // VK_LMENU, VK_RMENU
	case "shift":
		return []uint16{160, 161} // VK_LSHIFT, VK_RSHIFT
	case "win", "cmd", "super":
		return []uint16{91, 92} // VK_LWIN, VK_RWIN
	case "space":
		return []uint16{32}
	case "enter", "return":
		return []uint16{13}
	case "esc", "escape":
		return []uint16{27}
	case "tab":
		return []uint16{9}
	case "backspace":
		return []uint16{8}
	case "delete", "del":
		return []uint16{46}
	case "insert", "ins":
		return []uint16{45}
	case "home":
		return []uint16{36}
	case "end":
		return []uint16{35}
	case "pageup", "pgup":
		return []uint16{33}
	case "pagedown", "pgdn":
		return []uint16{34}
	case "left":
		return []uint16{37}
	case "up":
		return []uint16{38}
	case "right":
		return []uint16{39}
	case "down":
		return []uint16{40}
	default:
		log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
		return nil
	}
}
