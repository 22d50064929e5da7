package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"omnikey/src/command"
	"omnikey/src/hotkey"
	"omnikey/src/messages"
	"omnikey/src/popup"
	"omnikey/src/session"
	"omnikey/src/singleinstance"
	"omnikey/src/worker"
)

const DefaultTooltip = "OmniKey"

// Runner executes one pipeline run.
type Runner interface {
	Execute(ctx context.Context, cmd command.Command) session.Report
}

type Options struct {
	Runner   Runner
	Notifier popup.Notifier
	// Server answers delegated triggers; nil runs without one.
	Server singleinstance.Server
	// OnStatus receives tray status changes; nil ignores them.
	OnStatus func(messages.UpdateTray)
	// OnListening receives the resident port once the server is bound.
	OnListening func(port int)
}

// Loop is the single goroutine that owns every pipeline state transition.
// OS callbacks only post messages into it.
type Loop struct {
	runner      Runner
	notifier    popup.Notifier
	srv         singleinstance.Server
	onStatus    func(messages.UpdateTray)
	onListening func(int)
	pool        *worker.Pool[session.Report]
	state       session.State
	triggers    chan messages.Trigger
	results     chan messages.RunComplete
	done        chan struct{}
	pending     map[uint64]singleinstance.Conn
}

func New(opts Options) *Loop {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = popup.Discard{}
	}
	return &Loop{
		runner:      opts.Runner,
		notifier:    notifier,
		srv:         opts.Server,
		onStatus:    opts.OnStatus,
		onListening: opts.OnListening,
		pool:        worker.New[session.Report](1),
		triggers:    make(chan messages.Trigger, 4),
		results:     make(chan messages.RunComplete, 1),
		done:        make(chan struct{}),
		pending:     make(map[uint64]singleinstance.Conn),
	}
}

// OnTrigger posts a trigger without blocking. It is safe to call from OS
// hook goroutines. A full queue drops the trigger.
func (l *Loop) OnTrigger(cmd command.Command, src messages.Source) bool {
	select {
	case l.triggers <- messages.Trigger{Command: cmd, Source: src, At: time.Now()}:
		return true
	default:
		log.Printf("eventloop: trigger queue full, dropping %s from %s", cmd, src)
		return false
	}
}

// StartHotkeys registers every binding with one global hook.
func (l *Loop) StartHotkeys(bindings map[command.Command]string) error {
	if len(bindings) == 0 {
		log.Printf("eventloop: no hotkeys configured")
		return nil
	}
	return hotkey.Listen(bindings, func(cmd command.Command) {
		l.OnTrigger(cmd, messages.SourceHotkey)
	})
}

// Run processes triggers until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	var reqCh <-chan singleinstance.Conn
	if l.srv != nil {
		if err := l.srv.Start(ctx); err != nil {
			return err
		}
		defer l.srv.Close()
		if p := l.srv.Port(); p > 0 {
			log.Printf("Resident listening on 127.0.0.1:%d", p)
			if l.onListening != nil {
				l.onListening(p)
			}
		}
		reqCh = l.accept(ctx)
	}

	l.state.Start()
	defer func() {
		l.state.Stop()
		l.pool.Close()
		for id, conn := range l.pending {
			_ = conn.RespondError("resident shutting down")
			_ = conn.Close()
			delete(l.pending, id)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case trig := <-l.triggers:
			l.handleTrigger(ctx, trig, nil)
		case conn, ok := <-reqCh:
			if !ok {
				reqCh = nil
				continue
			}
			l.handleTrigger(ctx, messages.Trigger{Command: conn.Request().Command, Source: messages.SourceDelegated, At: time.Now()}, conn)
		case res := <-l.results:
			l.handleResult(res)
		}
	}
}

// accept runs in the background so result handling never waits on clients.
func (l *Loop) accept(ctx context.Context) <-chan singleinstance.Conn {
	reqCh := make(chan singleinstance.Conn, 4)
	go func() {
		defer close(reqCh)
		for {
			conn, err := l.srv.Next(ctx)
			if err != nil {
				return
			}
			select {
			case reqCh <- conn:
			case <-ctx.Done():
				_ = conn.Close()
				return
			}
		}
	}()
	return reqCh
}

func (l *Loop) handleTrigger(ctx context.Context, trig messages.Trigger, conn singleinstance.Conn) {
	log.Printf("eventloop: trigger %s from %s", trig.Command, trig.Source)

	runCtx, run, err := l.state.Begin(ctx, trig.Command, trig.Source)
	if err != nil {
		l.reject(trig, conn, err)
		return
	}

	cmd := trig.Command
	id := run.ID
	submitted := l.pool.Submit(runCtx, func(c context.Context) session.Report {
		return l.runner.Execute(c, cmd)
	}, func(rep session.Report, err error) {
		if err != nil {
			rep = session.Report{Command: cmd, Err: err}
		}
		select {
		case l.results <- messages.RunComplete{RunID: id, Command: cmd, Text: rep.Text, Err: rep.Err, Elapsed: rep.Elapsed}:
		case <-l.done:
		}
	})
	if !submitted {
		l.state.Finish(id)
		l.reject(trig, conn, session.ErrBusy)
		return
	}

	if conn != nil {
		l.pending[id] = conn
	}
	l.setBusy(cmd, true)
}

// reject ends a trigger that could not start. Concurrent triggers are
// dropped, not queued.
func (l *Loop) reject(trig messages.Trigger, conn singleinstance.Conn, err error) {
	if active, ok := l.state.Active(); ok {
		log.Printf("eventloop: rejecting %s from %s: run %d (%s) still active", trig.Command, trig.Source, active.ID, active.Command)
	} else {
		log.Printf("eventloop: rejecting %s from %s: %v", trig.Command, trig.Source, err)
	}
	if errors.Is(err, session.ErrBusy) {
		l.notifier.Show(session.TitleBusy, session.BodyBusy)
	}
	if conn != nil {
		msg := session.TitleBusy
		if !errors.Is(err, session.ErrBusy) {
			msg = err.Error()
		}
		_ = conn.RespondError(msg)
		_ = conn.Close()
	}
}

func (l *Loop) handleResult(res messages.RunComplete) {
	run, ok := l.state.Finish(res.RunID)
	if !ok {
		log.Printf("eventloop: result for unknown run %d", res.RunID)
	} else {
		log.Printf("eventloop: run %d (%s from %s) finished after %v, err=%v",
			run.ID, run.Command, run.Source, time.Since(run.Started).Round(time.Millisecond), res.Err)
	}
	if errors.Is(res.Err, session.ErrBusy) {
		l.notifier.Show(session.TitleBusy, session.BodyBusy)
	}
	l.setBusy(res.Command, false)

	conn, ok := l.pending[res.RunID]
	if !ok {
		return
	}
	delete(l.pending, res.RunID)
	if res.Err != nil {
		_ = conn.RespondError(session.Reason(res.Err))
	} else {
		_ = conn.RespondSuccess(res.Text)
	}
	_ = conn.Close()
}

func (l *Loop) setBusy(cmd command.Command, busy bool) {
	if l.onStatus == nil {
		return
	}
	if busy {
		label := string(cmd)
		if spec, ok := command.Lookup(cmd); ok {
			label = spec.MenuLabel
		}
		l.onStatus(messages.UpdateTray{Tooltip: fmt.Sprintf("%s: %s...", DefaultTooltip, label), Status: "processing"})
		return
	}
	l.onStatus(messages.UpdateTray{Tooltip: DefaultTooltip, Status: "idle"})
}
