package main

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"omnikey/src/command"
	"omnikey/src/singleinstance"
)

func TestNewRootCmdDefaults(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 50 {
		t.Fatalf("Expected default n=50, got %d", opts.n)
	}
	if opts.command != "grammar" {
		t.Fatalf("Expected default command=grammar, got %q", opts.command)
	}
	if opts.deadline != 5*time.Second {
		t.Fatalf("Expected default deadline=5s, got %v", opts.deadline)
	}
}

func TestNewRootCmdCustomFlags(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--n", "3", "--command", "enhance", "--deadline", "7s"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 3 || opts.command != "enhance" || opts.deadline != 7*time.Second {
		t.Fatalf("Unexpected options: %+v", *opts)
	}
}

// oneAtATime mimics a resident: the first caller wins, everyone else is Busy.
type oneAtATime struct {
	taken int32
}

func (o *oneAtATime) TryTrigger(ctx context.Context, cmd command.Command) (bool, string, error) {
	if atomic.CompareAndSwapInt32(&o.taken, 0, 1) {
		return true, "done", nil
	}
	return true, "", &singleinstance.RemoteError{Message: "Busy"}
}

type brokenClient struct{}

func (brokenClient) TryTrigger(ctx context.Context, cmd command.Command) (bool, string, error) {
	return false, "", errors.New("dial failed")
}

func TestStressCounts(t *testing.T) {
	res := stress(&oneAtATime{}, command.FixGrammar, stressOptions{n: 20, deadline: time.Second})
	if res.ok != 1 || res.busy != 19 || res.err != 0 {
		t.Fatalf("Expected ok=1 busy=19, got %+v", *res)
	}

	res = stress(brokenClient{}, command.Enhance, stressOptions{n: 4, deadline: time.Second})
	if res.err != 4 {
		t.Fatalf("Expected err=4, got %+v", *res)
	}

	var buf bytes.Buffer
	report(&buf, 4, res)
	if buf.String() != "launched=4 ok=0 busy=0 no-resident=0 err=4\n" {
		t.Fatalf("Unexpected report %q", buf.String())
	}
}
