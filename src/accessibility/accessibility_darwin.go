//go:build darwin

package accessibility

import (
	"context"
	"strings"
)

const selectedTextScript = `tell application "System Events"
	set frontProc to first application process whose frontmost is true
	set focused to value of attribute "AXFocusedUIElement" of frontProc
	return value of attribute "AXSelectedText" of focused
end tell`

const probeScript = `tell application "System Events" to get name of first application process whose frontmost is true`

func selectedText(ctx context.Context) (string, error) {
	out, stderr, err := runCommand(ctx, "osascript", "-e", selectedTextScript)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", classifyScriptError(stderr, err)
	}
	text := strings.TrimRight(string(out), "\n")
	// AppleScript prints "missing value" when the element has no selection attribute.
	if text == "missing value" {
		return "", nil
	}
	return text, nil
}

func checkPermission(ctx context.Context) error {
	_, stderr, err := runCommand(ctx, "osascript", "-e", probeScript)
	if err != nil {
		return classifyScriptError(stderr, err)
	}
	return nil
}
