package eventloop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnikey/src/command"
	"omnikey/src/messages"
	"omnikey/src/session"
	"omnikey/src/singleinstance"
)

type blockingRunner struct {
	mu      sync.Mutex
	calls   []command.Command
	started chan command.Command
	release chan session.Report
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan command.Command, 8), release: make(chan session.Report, 8)}
}

func (r *blockingRunner) Execute(ctx context.Context, cmd command.Command) session.Report {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.mu.Unlock()
	r.started <- cmd
	select {
	case rep := <-r.release:
		rep.Command = cmd
		return rep
	case <-ctx.Done():
		return session.Report{Command: cmd, Err: ctx.Err()}
	}
}

func (r *blockingRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type notes struct {
	mu     sync.Mutex
	titles []string
	seen   chan string
}

func newNotes() *notes { return &notes{seen: make(chan string, 16)} }

func (n *notes) Show(title, body string) {
	n.mu.Lock()
	n.titles = append(n.titles, title)
	n.mu.Unlock()
	select {
	case n.seen <- title:
	default:
	}
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting")
		var zero T
		return zero
	}
}

func startLoop(t *testing.T, opts Options) (*Loop, context.CancelFunc, <-chan error) {
	t.Helper()
	l := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	t.Cleanup(cancel)
	return l, cancel, errCh
}

func TestSecondTriggerIsRejectedWhileRunActive(t *testing.T) {
	runner := newBlockingRunner()
	n := newNotes()
	var statusMu sync.Mutex
	var statuses []string
	l, cancel, errCh := startLoop(t, Options{
		Runner:   runner,
		Notifier: n,
		OnStatus: func(u messages.UpdateTray) {
			statusMu.Lock()
			statuses = append(statuses, u.Status)
			statusMu.Unlock()
		},
	})

	require.True(t, l.OnTrigger(command.Enhance, messages.SourceHotkey))
	assert.Equal(t, command.Enhance, waitFor(t, runner.started))

	require.True(t, l.OnTrigger(command.FixGrammar, messages.SourceHotkey))
	assert.Equal(t, session.TitleBusy, waitFor(t, n.seen))
	assert.Equal(t, 1, runner.callCount())

	runner.release <- session.Report{}
	// The loop accepts a new run once the first has finished.
	require.Eventually(t, func() bool {
		l.OnTrigger(command.CustomTask, messages.SourceTray)
		select {
		case cmd := <-runner.started:
			return cmd == command.CustomTask
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
	runner.release <- session.Report{}

	cancel()
	assert.ErrorIs(t, waitFor(t, errCh), context.Canceled)

	statusMu.Lock()
	defer statusMu.Unlock()
	require.NotEmpty(t, statuses)
	assert.Equal(t, "processing", statuses[0])
}

func TestCancelStopsActiveRun(t *testing.T) {
	runner := newBlockingRunner()
	l, cancel, errCh := startLoop(t, Options{Runner: runner})

	l.OnTrigger(command.Enhance, messages.SourceHotkey)
	waitFor(t, runner.started)

	cancel()
	assert.ErrorIs(t, waitFor(t, errCh), context.Canceled)
}

// fakeServer feeds delegated connections into the loop.
type fakeServer struct {
	conns chan singleinstance.Conn
}

func (s *fakeServer) Start(context.Context) error { return nil }
func (s *fakeServer) Port() int                   { return 49600 }
func (s *fakeServer) Close() error                { return nil }

func (s *fakeServer) Next(ctx context.Context) (singleinstance.Conn, error) {
	select {
	case c := <-s.conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fakeConn struct {
	cmd    command.Command
	answer chan string
}

func (c *fakeConn) Request() singleinstance.Request {
	return singleinstance.Request{Command: c.cmd}
}
func (c *fakeConn) RespondSuccess(text string) error { c.answer <- "SUCCESS " + text; return nil }
func (c *fakeConn) RespondError(msg string) error    { c.answer <- "ERROR " + msg; return nil }
func (c *fakeConn) Close() error                     { return nil }

func TestDelegatedTriggers(t *testing.T) {
	runner := newBlockingRunner()
	srv := &fakeServer{conns: make(chan singleinstance.Conn, 4)}
	var port int
	startLoop(t, Options{Runner: runner, Server: srv, OnListening: func(p int) { port = p }})

	first := &fakeConn{cmd: command.FixGrammar, answer: make(chan string, 1)}
	srv.conns <- first
	assert.Equal(t, command.FixGrammar, waitFor(t, runner.started))

	second := &fakeConn{cmd: command.Enhance, answer: make(chan string, 1)}
	srv.conns <- second
	assert.Equal(t, "ERROR Busy", waitFor(t, second.answer))

	runner.release <- session.Report{Text: "Please fix this."}
	assert.Equal(t, "SUCCESS Please fix this.", waitFor(t, first.answer))

	third := &fakeConn{cmd: command.Enhance, answer: make(chan string, 1)}
	srv.conns <- third
	waitFor(t, runner.started)
	runner.release <- session.Report{Err: session.ErrNoSelection}
	assert.Equal(t, "ERROR "+session.BodyNoSelection, waitFor(t, third.answer))
	assert.Equal(t, 49600, port)
}

func TestServerStartFailure(t *testing.T) {
	l := New(Options{Runner: newBlockingRunner(), Server: failingServer{&fakeServer{}}})
	err := l.Run(context.Background())
	assert.Error(t, err)
}

type failingServer struct{ *fakeServer }

func (failingServer) Start(context.Context) error { return errors.New("port in use") }

type panickingRunner struct{ calls chan command.Command }

func (r *panickingRunner) Execute(_ context.Context, cmd command.Command) session.Report {
	r.calls <- cmd
	panic("boom")
}

func TestPanickingRunEndsAndFreesTheLoop(t *testing.T) {
	runner := &panickingRunner{calls: make(chan command.Command, 4)}
	srv := &fakeServer{conns: make(chan singleinstance.Conn, 4)}
	startLoop(t, Options{Runner: runner, Server: srv})

	first := &fakeConn{cmd: command.Enhance, answer: make(chan string, 1)}
	srv.conns <- first
	waitFor(t, runner.calls)
	assert.Equal(t, "ERROR task panic: boom", waitFor(t, first.answer))

	second := &fakeConn{cmd: command.FixGrammar, answer: make(chan string, 1)}
	srv.conns <- second
	assert.Equal(t, command.FixGrammar, waitFor(t, runner.calls))
}
