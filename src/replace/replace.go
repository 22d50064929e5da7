// Package replace puts rewritten text in place of the user's selection.
package replace

import (
	"context"
	"fmt"
	"log"
	"time"

	"omnikey/src/keys"
	"omnikey/src/logutil"
)

// Writer overwrites the clipboard.
type Writer interface {
	Write(text string) error
}

// Replacer writes text to the clipboard and pastes it over the selection.
// The previous clipboard contents are not restored. The paste is not
// verified: if focus moved meanwhile the text lands wherever focus went.
type Replacer struct {
	Clipboard Writer
	Keys      keys.Sender
	// Settle gives the clipboard owner change time to propagate before paste.
	Settle time.Duration
}

func (r *Replacer) Apply(ctx context.Context, text string) error {
	if err := r.Clipboard.Write(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	if err := sleep(ctx, r.Settle); err != nil {
		return err
	}
	if err := r.Keys.Send(keys.Paste); err != nil {
		return fmt.Errorf("paste chord: %w", err)
	}
	log.Printf("replace: pasted %s", logutil.Preview(text, 60))
	return nil
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
