//go:build linux

package accessibility

import (
	"context"
	"fmt"
	"os"
)

// primaryReaders read the PRIMARY selection. PRIMARY keeps the last highlight
// of any window, even after it was clicked away, so callers enable this only
// on explicit opt-in (ACCESSIBILITY_QUERY=true).
func primaryReaders() [][]string {
	readers := [][]string{
		{"xclip", "-o", "-selection", "primary"},
		{"xsel", "--primary", "--output"},
	}
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		readers = append([][]string{{"wl-paste", "--primary", "--no-newline"}}, readers...)
	}
	return readers
}

func selectedText(ctx context.Context) (string, error) {
	var lastErr error
	for _, reader := range primaryReaders() {
		if _, err := lookPath(reader[0]); err != nil {
			continue
		}
		out, stderr, err := runCommand(ctx, reader[0], reader[1:]...)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = fmt.Errorf("%s: %s: %w", reader[0], string(stderr), err)
			continue
		}
		return string(out), nil
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", ErrUnsupported
}

func checkPermission(context.Context) error {
	for _, reader := range primaryReaders() {
		if _, err := lookPath(reader[0]); err == nil {
			return nil
		}
	}
	return ErrUnsupported
}
