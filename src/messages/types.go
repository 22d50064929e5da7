package messages

import (
	"time"

	"omnikey/src/command"
)

// Message is the base interface for everything posted into the event loop.
type Message interface {
	Type() string
}

const (
	TypeTrigger     = "Trigger"
	TypeRunComplete = "RunComplete"
	TypeUpdateTray  = "UpdateTray"
)

// Source says where a trigger came from.
type Source string

const (
	SourceHotkey    Source = "hotkey"
	SourceTray      Source = "tray"
	SourceDelegated Source = "delegated"
)

// Trigger asks the loop to run one pipeline for Command.
type Trigger struct {
	Command command.Command
	Source  Source
	At      time.Time
}

func (m Trigger) Type() string { return TypeTrigger }

// RunComplete is posted by the worker when a pipeline run terminates.
type RunComplete struct {
	RunID   uint64
	Command command.Command
	Text    string // rewritten text on success
	Err     error
	Elapsed time.Duration
}

func (m RunComplete) Type() string { return TypeRunComplete }

// UpdateTray changes the tray tooltip to reflect the loop state.
type UpdateTray struct {
	Tooltip string
	Status  string // "idle" or "processing"
}

func (m UpdateTray) Type() string { return TypeUpdateTray }
