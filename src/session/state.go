package session

import (
	"context"
	"time"

	"omnikey/src/command"
	"omnikey/src/messages"
)

// Run is the in-flight state of one trigger.
type Run struct {
	ID      uint64
	Command command.Command
	Source  messages.Source
	Started time.Time
	cancel  context.CancelFunc
}

// State is the pipeline state owned by the event loop goroutine. It is not
// safe for concurrent use; at most one Run is active at a time.
type State struct {
	accepting bool
	active    *Run
	nextID    uint64
}

// Start makes the state accept runs.
func (s *State) Start() {
	s.accepting = true
}

// Begin opens a run derived from parent. It fails with ErrBusy while another
// run is active and with ErrStopped before Start or after Stop.
func (s *State) Begin(parent context.Context, cmd command.Command, src messages.Source) (context.Context, *Run, error) {
	if !s.accepting {
		return nil, nil, ErrStopped
	}
	if s.active != nil {
		return nil, nil, ErrBusy
	}
	s.nextID++
	ctx, cancel := context.WithCancel(parent)
	run := &Run{ID: s.nextID, Command: cmd, Source: src, Started: time.Now(), cancel: cancel}
	s.active = run
	return ctx, run, nil
}

// Finish closes run if it is the active one and reports whether it was.
func (s *State) Finish(id uint64) (*Run, bool) {
	if s.active == nil || s.active.ID != id {
		return nil, false
	}
	run := s.active
	run.cancel()
	s.active = nil
	return run, true
}

// Stop refuses new runs and cancels the active one.
func (s *State) Stop() {
	s.accepting = false
	if s.active != nil {
		s.active.cancel()
	}
}

// Active returns the running run, if any.
func (s *State) Active() (*Run, bool) {
	return s.active, s.active != nil
}
