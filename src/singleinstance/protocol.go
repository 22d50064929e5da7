package singleinstance

import (
	"fmt"
	"strings"

	"omnikey/src/command"
)

const (
	residentHost    = "127.0.0.1"
	pingRequest     = "PING\n"
	pongResponse    = "PONG\n"
	triggerVerb     = "TRIGGER"
	successResponse = "SUCCESS\n"
	errorResponse   = "ERROR\n"
)

func formatTrigger(cmd command.Command) string {
	return fmt.Sprintf("%s %s\n", triggerVerb, cmd)
}

// parseTrigger reads a "TRIGGER <command>" line.
func parseTrigger(line string) (Request, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != triggerVerb {
		return Request{}, fmt.Errorf("malformed request %q", strings.TrimSpace(line))
	}
	cmd, err := command.Parse(fields[1])
	if err != nil {
		return Request{}, err
	}
	return Request{Command: cmd}, nil
}
