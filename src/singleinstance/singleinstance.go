package singleinstance

// This file defines the API for single-instance ownership and delegated triggers.

import (
	"context"

	"omnikey/src/command"
)

// Server owns the TCP endpoint and answers delegated trigger requests.
type Server interface {
	// Start binds the first port of the configured range and accepts clients.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	Request() Request
	// RespondSuccess reports a pasted rewrite and echoes its text.
	RespondSuccess(text string) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	Close() error
}

// Request is a single delegated trigger.
type Request struct {
	Command command.Command
}

// Client delegates a trigger to a resident server.
type Client interface {
	// Detect returns the port of the resident answering PING, if any.
	Detect(ctx context.Context) (port int, found bool)
	// TryTrigger finds the resident and asks it to run cmd. With no resident
	// it returns delegated=false, err=nil.
	TryTrigger(ctx context.Context, cmd command.Command) (delegated bool, text string, err error)
}

// PortRange is the inclusive loopback range: the resident binds Start and
// clients scan Start through End.
type PortRange struct {
	Start, End int
}

func (r PortRange) ports() []int {
	if r.End < r.Start {
		r.Start, r.End = r.End, r.Start
	}
	out := make([]int, 0, r.End-r.Start+1)
	for p := r.Start; p <= r.End; p++ {
		out = append(out, p)
	}
	return out
}

// NewServer returns TCP implementation.
func NewServer(r PortRange) Server { return newTcpServer(r) }

// NewClient returns TCP implementation.
func NewClient(r PortRange) Client { return &tcpClient{ports: r} }
