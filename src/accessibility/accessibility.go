// Package accessibility reads the selected text of the focused element
// directly, without touching the clipboard.
package accessibility

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrUnsupported means this platform offers no direct selection query.
	ErrUnsupported = errors.New("selection query not supported on this platform")
	// ErrPermissionDenied means the OS refused the query, usually because
	// accessibility consent was not granted.
	ErrPermissionDenied = errors.New("accessibility permission denied")
)

// Querier returns the selected text of the focused element. An empty string
// with a nil error means the query worked and nothing was selected.
type Querier interface {
	SelectedText(ctx context.Context) (string, error)
}

// System queries the running desktop.
type System struct{}

func (System) SelectedText(ctx context.Context) (string, error) {
	return selectedText(ctx)
}

// CheckPermission probes whether the selection query may run at all.
func CheckPermission(ctx context.Context) error {
	return checkPermission(ctx)
}

// runCommand is replaced in tests.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

var lookPath = exec.LookPath

// permissionMarkers are fragments osascript prints when System Events is
// blocked by the privacy settings.
var permissionMarkers = []string{
	"not allowed assistive access",
	"-1719",
	"-25211",
	"not authorized to send apple events",
	"-1743",
}

func classifyScriptError(stderr []byte, err error) error {
	msg := strings.ToLower(strings.TrimSpace(string(stderr)))
	for _, marker := range permissionMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
		}
	}
	if msg == "" {
		return fmt.Errorf("selection query failed: %w", err)
	}
	return fmt.Errorf("selection query failed: %s: %w", msg, err)
}
