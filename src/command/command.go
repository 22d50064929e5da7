package command

import (
	"fmt"
	"runtime"
	"strings"
)

// Command identifies one rewrite operation bound to a hotkey.
type Command string

const (
	Enhance    Command = "enhance"
	FixGrammar Command = "grammar"
	CustomTask Command = "custom-task"
)

// Spec is the data-driven description of a command. Adding a command means
// adding a row to table; the dispatcher, gateway and service read from here.
type Spec struct {
	Command Command
	// Path is the rewrite service endpoint the text is posted to.
	Path string
	// EnvVar names the configuration key holding the hotkey combination.
	EnvVar string
	// Hotkey defaults per platform family.
	DefaultHotkeyDarwin string
	DefaultHotkey       string
	// Notification shown once text has been captured.
	ProgressTitle   string
	ProgressMessage string
	MenuLabel       string
	aliases         []string
}

var table = []Spec{
	{
		Command:             Enhance,
		Path:                "/api/enhance",
		EnvVar:              "HOTKEY_ENHANCE",
		DefaultHotkeyDarwin: "Cmd+E",
		DefaultHotkey:       "Ctrl+Alt+E",
		ProgressTitle:       "Enhancing Prompt",
		ProgressMessage:     "Enhancing your selected text...",
		MenuLabel:           "Fix Prompt",
		aliases:             []string{"e", "enhancer", "prompt"},
	},
	{
		Command:             FixGrammar,
		Path:                "/api/grammar",
		EnvVar:              "HOTKEY_GRAMMAR",
		DefaultHotkeyDarwin: "Cmd+G",
		DefaultHotkey:       "Ctrl+Alt+G",
		ProgressTitle:       "Fixing Grammar",
		ProgressMessage:     "Fixing grammar of your selected text...",
		MenuLabel:           "Fix Grammar",
		aliases:             []string{"g", "fix-grammar", "fixgrammar"},
	},
	{
		Command:             CustomTask,
		Path:                "/api/custom-task",
		EnvVar:              "HOTKEY_CUSTOM_TASK",
		DefaultHotkeyDarwin: "Cmd+T",
		DefaultHotkey:       "Ctrl+Alt+K", // Ctrl+Alt+T opens a terminal on GNOME
		ProgressTitle:       "Performing Custom Task",
		ProgressMessage:     "Processing your selected text...",
		MenuLabel:           "My Custom Task",
		aliases:             []string{"t", "task", "customtask", "custom_task"},
	},
}

// All returns every known command in menu order.
func All() []Command {
	out := make([]Command, 0, len(table))
	for _, s := range table {
		out = append(out, s.Command)
	}
	return out
}

// Specs returns a copy of the command table.
func Specs() []Spec {
	out := make([]Spec, len(table))
	copy(out, table)
	return out
}

// Lookup returns the table row for c.
func Lookup(c Command) (Spec, bool) {
	for _, s := range table {
		if s.Command == c {
			return s, true
		}
	}
	return Spec{}, false
}

// Parse resolves a command name or one of its aliases, case-insensitively.
func Parse(name string) (Command, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, s := range table {
		if n == string(s.Command) {
			return s.Command, nil
		}
		for _, a := range s.aliases {
			if n == a {
				return s.Command, nil
			}
		}
	}
	return "", fmt.Errorf("unknown command %q", name)
}

// HotkeyDefault returns the platform default combination.
func (s Spec) HotkeyDefault() string {
	if runtime.GOOS == "darwin" {
		return s.DefaultHotkeyDarwin
	}
	return s.DefaultHotkey
}

func (c Command) String() string { return string(c) }

// Valid reports whether c is in the table.
func (c Command) Valid() bool {
	_, ok := Lookup(c)
	return ok
}
