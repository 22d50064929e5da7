// Package capture acquires the user's current selection: a direct
// accessibility query first, then a synthesized copy observed through the
// clipboard.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"omnikey/src/accessibility"
	"omnikey/src/clipboard"
	"omnikey/src/keys"
	"omnikey/src/logutil"
)

// Kind classifies a capture attempt.
type Kind int

const (
	// Unavailable: nothing could be captured (no selection, or the platform
	// refused). The user sees "no text selected".
	Unavailable Kind = iota
	// Empty: the copy landed but carried only whitespace.
	Empty
	// Text: Result.Text holds the trimmed selection.
	Text
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Empty:
		return "empty"
	default:
		return "unavailable"
	}
}

// Source names the strategy that produced a Text result.
type Source string

const (
	SourceAccessibility Source = "accessibility"
	SourceClipboard     Source = "clipboard"
)

// ErrUnchanged means the synthesized copy did not alter the clipboard.
var ErrUnchanged = errors.New("clipboard unchanged after copy")

type Result struct {
	Kind   Kind
	Text   string
	Source Source
	// Err explains an Unavailable result.
	Err error
}

// Clipboard is the slice of the system clipboard acquisition needs.
type Clipboard interface {
	Snapshot() clipboard.Snapshot
	Read() (string, error)
}

// Acquirer runs one capture. The caller must hold the clipboard lease.
type Acquirer struct {
	// Selection is optional; nil skips the direct query.
	Selection accessibility.Querier
	Clipboard Clipboard
	Keys      keys.Sender
	// Settle is how long the focused app gets to service the copy.
	Settle time.Duration
	// ReleaseDelay lets the user release the hotkey modifiers before the
	// copy chord goes out, so they do not combine with it.
	ReleaseDelay time.Duration
}

func (a *Acquirer) Acquire(ctx context.Context) Result {
	if text, ok := a.querySelection(ctx); ok {
		return Result{Kind: Text, Text: text, Source: SourceAccessibility}
	}
	return a.copyAndObserve(ctx)
}

func (a *Acquirer) querySelection(ctx context.Context) (string, bool) {
	if a.Selection == nil {
		return "", false
	}
	text, err := a.Selection.SelectedText(ctx)
	switch {
	case errors.Is(err, accessibility.ErrPermissionDenied):
		log.Printf("capture: accessibility permission missing, falling back to clipboard: %v", err)
		return "", false
	case errors.Is(err, accessibility.ErrUnsupported):
		return "", false
	case err != nil:
		log.Printf("capture: selection query failed, falling back to clipboard: %v", err)
		return "", false
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	log.Printf("capture: selection via accessibility: %s", logutil.Preview(trimmed, 60))
	return trimmed, true
}

func (a *Acquirer) copyAndObserve(ctx context.Context) Result {
	if err := sleep(ctx, a.ReleaseDelay); err != nil {
		return unavailable(err)
	}

	before := a.Clipboard.Snapshot()
	if err := a.Keys.Send(keys.Copy); err != nil {
		return unavailable(fmt.Errorf("copy chord: %w", err))
	}
	if err := sleep(ctx, a.Settle); err != nil {
		return unavailable(err)
	}

	after := a.Clipboard.Snapshot()
	if !before.Changed(after) {
		log.Printf("capture: clipboard unchanged after %v settle", a.Settle)
		return unavailable(ErrUnchanged)
	}

	text, err := a.Clipboard.Read()
	if err != nil {
		return unavailable(fmt.Errorf("read clipboard: %w", err))
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		log.Printf("capture: copy produced blank text")
		return Result{Kind: Empty, Source: SourceClipboard}
	}
	log.Printf("capture: selection via clipboard: %s", logutil.Preview(trimmed, 60))
	return Result{Kind: Text, Text: trimmed, Source: SourceClipboard}
}

func unavailable(err error) Result {
	return Result{Kind: Unavailable, Err: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
