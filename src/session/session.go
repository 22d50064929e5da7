// Package session runs one capture, rewrite and replace pipeline.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"omnikey/src/capture"
	"omnikey/src/command"
	"omnikey/src/gateway"
	"omnikey/src/logutil"
	"omnikey/src/popup"
)

var (
	// ErrNoSelection: nothing was selected, or the copy carried only whitespace.
	ErrNoSelection = errors.New("no text selected")
	// ErrCaptureUnavailable: the platform refused or failed the capture.
	ErrCaptureUnavailable = errors.New("capture unavailable")
	// ErrGatewayFailure wraps the *gateway.Error of a failed rewrite.
	ErrGatewayFailure = errors.New("rewrite failed")
	// ErrBusy: another run holds the clipboard.
	ErrBusy = errors.New("busy")
	// ErrStopped: the state no longer accepts runs.
	ErrStopped = errors.New("session stopped")
)

const (
	TitleNoSelection = "No Text Selected"
	BodyNoSelection  = "There is no text selected. Please select some text and try again."
	TitleError       = "Error"
	TitleSuccess     = "Success"
	BodySuccess      = "Text enhanced!"
	TitleBusy        = "Busy"
	BodyBusy         = "Still working on the previous request. Please wait."
)

type Acquirer interface {
	Acquire(ctx context.Context) capture.Result
}

type Rewriter interface {
	Submit(ctx context.Context, req gateway.Request) (string, error)
}

type Replacer interface {
	Apply(ctx context.Context, text string) error
}

// Lease is the exclusive clipboard lock of a run.
type Lease interface {
	TryAcquire(owner string) (release func(), ok bool)
}

// Runner wires the pipeline stages. Every field except Timeout is required.
type Runner struct {
	Acquirer Acquirer
	Rewriter Rewriter
	Replacer Replacer
	Notifier popup.Notifier
	Lease    Lease
	// Timeout bounds the remote call; zero leaves it to the gateway client.
	Timeout time.Duration
}

// Report describes how a run ended. Err is nil only when the rewritten text
// was pasted.
type Report struct {
	Command  command.Command
	Captured string
	Source   capture.Source
	Text     string
	Err      error
	Elapsed  time.Duration
}

// Execute runs the stages strictly in order: acquire, rewrite, replace. Each
// terminal state shows exactly one notification except ErrBusy, which the
// caller reports, and cancellation of ctx, which shows none.
func (r *Runner) Execute(ctx context.Context, cmd command.Command) Report {
	start := time.Now()
	rep := r.execute(ctx, cmd)
	rep.Command = cmd
	rep.Elapsed = time.Since(start)
	if rep.Err != nil {
		log.Printf("session: %s ended after %v: %v", cmd, rep.Elapsed.Round(time.Millisecond), rep.Err)
	} else {
		log.Printf("session: %s completed in %v", cmd, rep.Elapsed.Round(time.Millisecond))
	}
	return rep
}

func (r *Runner) execute(ctx context.Context, cmd command.Command) Report {
	spec, ok := command.Lookup(cmd)
	if !ok {
		err := fmt.Errorf("unknown command %q", cmd)
		r.notify(ctx, TitleError, "Failed: "+err.Error())
		return Report{Err: err}
	}

	release, ok := r.Lease.TryAcquire(string(cmd))
	if !ok {
		return Report{Err: ErrBusy}
	}
	defer release()

	res := r.Acquirer.Acquire(ctx)
	switch res.Kind {
	case capture.Unavailable:
		err := ErrNoSelection
		if res.Err != nil && !errors.Is(res.Err, capture.ErrUnchanged) {
			err = fmt.Errorf("%w: %w", ErrCaptureUnavailable, res.Err)
		}
		r.notify(ctx, TitleNoSelection, BodyNoSelection)
		return Report{Err: err}
	case capture.Empty:
		r.notify(ctx, TitleNoSelection, BodyNoSelection)
		return Report{Err: ErrNoSelection, Source: capture.SourceClipboard}
	}

	rep := Report{Captured: res.Text, Source: res.Source}
	log.Printf("session: %s captured %s via %s", cmd, logutil.Preview(res.Text, 60), res.Source)
	r.notify(ctx, spec.ProgressTitle, spec.ProgressMessage)

	callCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	text, err := r.Rewriter.Submit(callCtx, gateway.Request{Command: cmd, Text: res.Text})
	if err != nil {
		r.notify(ctx, TitleError, "Failed: "+Reason(err))
		rep.Err = fmt.Errorf("%w: %w", ErrGatewayFailure, err)
		return rep
	}

	if err := r.Replacer.Apply(ctx, text); err != nil {
		r.notify(ctx, TitleError, "Failed: "+Reason(err))
		rep.Err = fmt.Errorf("replace: %w", err)
		return rep
	}

	rep.Text = text
	r.notify(ctx, TitleSuccess, BodySuccess)
	return rep
}

// notify shows a terminal state unless ctx was cancelled: a run stopped by
// shutdown ends silently.
func (r *Runner) notify(ctx context.Context, title, body string) {
	if errors.Is(ctx.Err(), context.Canceled) {
		log.Printf("session: cancelled, not showing %q", title)
		return
	}
	r.Notifier.Show(title, body)
}

// Reason is the user-facing explanation of err.
func Reason(err error) string {
	var gerr *gateway.Error
	if errors.As(err, &gerr) {
		return gerr.Reason
	}
	switch {
	case errors.Is(err, ErrNoSelection), errors.Is(err, ErrCaptureUnavailable):
		return BodyNoSelection
	case errors.Is(err, ErrBusy):
		return BodyBusy
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return err.Error()
}
