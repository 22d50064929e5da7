package singleinstance

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"omnikey/src/command"
)

// freeRange is a single free loopback port.
func freeRange(t *testing.T) PortRange {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback unavailable in this environment: %v", err)
	}
	port := lis.Addr().(*net.TCPAddr).Port
	lis.Close()
	return PortRange{Start: port, End: port}
}

func startServer(t *testing.T, ctx context.Context, r PortRange) Server {
	t.Helper()
	srv := NewServer(r)
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback unavailable in this environment: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestServerClientRoundTrip(t *testing.T) {
	r := freeRange(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startServer(t, ctx, r)

	type outcome struct {
		delegated bool
		text      string
		err       error
	}
	done := make(chan outcome, 1)
	go func() {
		delegated, text, err := NewClient(r).TryTrigger(ctx, command.FixGrammar)
		done <- outcome{delegated, text, err}
	}()

	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got := conn.Request().Command; got != command.FixGrammar {
		t.Errorf("expected grammar request, got %q", got)
	}
	if err := conn.RespondSuccess("Please fix this."); err != nil {
		t.Fatalf("respond: %v", err)
	}
	conn.Close()

	res := <-done
	if res.err != nil || !res.delegated {
		t.Fatalf("expected delegation, got delegated=%v err=%v", res.delegated, res.err)
	}
	if res.text != "Please fix this." {
		t.Errorf("unexpected text %q", res.text)
	}
}

func TestServerReportsBusy(t *testing.T) {
	r := freeRange(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startServer(t, ctx, r)

	done := make(chan error, 1)
	go func() {
		_, _, err := NewClient(r).TryTrigger(ctx, command.Enhance)
		done <- err
	}()

	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	_ = conn.RespondError("Busy")
	conn.Close()

	err = <-done
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Message != "Busy" {
		t.Fatalf("expected remote Busy error, got %v", err)
	}
}

func TestNoResident(t *testing.T) {
	r := freeRange(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	delegated, _, err := NewClient(r).TryTrigger(ctx, command.Enhance)
	if delegated || err != nil {
		t.Fatalf("expected no delegation, got delegated=%v err=%v", delegated, err)
	}
	if _, ok := NewClient(r).Detect(ctx); ok {
		t.Error("no resident should be detected")
	}
}

func TestSecondServerCannotStart(t *testing.T) {
	r := freeRange(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startServer(t, ctx, r)

	second := NewServer(r)
	if err := second.Start(ctx); err == nil {
		second.Close()
		t.Fatal("second resident must not bind the same port")
	}
}

func TestDetectFindsResidentInRange(t *testing.T) {
	r := freeRange(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	startServer(t, ctx, r)

	// A wider range whose first port is silent still finds the resident.
	wide := PortRange{Start: r.Start - 1, End: r.End}
	if r.Start <= 1024 {
		wide = r
	}
	port, ok := NewClient(wide).Detect(ctx)
	if !ok || port != r.Start {
		t.Fatalf("expected resident on %d, got port=%d found=%v", r.Start, port, ok)
	}
}

func TestPortRangeOrder(t *testing.T) {
	got := PortRange{Start: 5, End: 3}.ports()
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("ports() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ports() = %v, want %v", got, want)
		}
	}
}

func TestParseTrigger(t *testing.T) {
	tests := []struct {
		line    string
		want    command.Command
		wantErr bool
	}{
		{"TRIGGER enhance\n", command.Enhance, false},
		{"TRIGGER grammar\n", command.FixGrammar, false},
		{"TRIGGER custom-task\n", command.CustomTask, false},
		{"TRIGGER bogus\n", "", true},
		{"STDOUT\n", "", true},
		{"TRIGGER\n", "", true},
	}
	for _, tt := range tests {
		req, err := parseTrigger(tt.line)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTrigger(%q) err=%v", tt.line, err)
			continue
		}
		if req.Command != tt.want {
			t.Errorf("parseTrigger(%q) = %q, want %q", tt.line, req.Command, tt.want)
		}
	}
	if got := formatTrigger(command.CustomTask); got != "TRIGGER custom-task\n" {
		t.Errorf("formatTrigger = %q", got)
	}
}
