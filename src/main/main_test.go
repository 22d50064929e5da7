package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"omnikey/src/command"
	"omnikey/src/config"
	"omnikey/src/singleinstance"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"omnikey", "-run-once", "grammar", "-service-url", "http://x"},
			out:  []string{"omnikey", "--run-once", "grammar", "--service-url", "http://x"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"omnikey", "-run-once=enhance", "-env=/tmp/.env"},
			out:  []string{"omnikey", "--run-once=enhance", "--env=/tmp/.env"},
		},
		{
			name: "Leaves other flags unchanged",
			in:   []string{"omnikey", "--run-once", "g", "--other", "-environment"},
			out:  []string{"omnikey", "--run-once", "g", "--other", "-environment"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--run-once", "grammar", "--service-url", "http://127.0.0.1:9000", "--timeout", "5s"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.runOnce != "grammar" {
		t.Fatalf("Expected runOnce=grammar, got %q", opts.runOnce)
	}
	if opts.serviceURL != "http://127.0.0.1:9000" {
		t.Fatalf("Expected serviceURL override, got %q", opts.serviceURL)
	}
	if opts.timeout != 5*time.Second {
		t.Fatalf("Expected timeout=5s, got %v", opts.timeout)
	}
}

func TestRunOnceRejectsUnknownCommand(t *testing.T) {
	err := runWithArgs([]string{"omnikey", "--run-once", "translate"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("Expected unknown command error, got %v", err)
	}
}

type fakeClient struct {
	delegated bool
	text      string
	err       error
	called    command.Command
}

func (f *fakeClient) TryTrigger(ctx context.Context, cmd command.Command) (bool, string, error) {
	f.called = cmd
	return f.delegated, f.text, f.err
}

func TestHandleRunOnceWithDelegation(t *testing.T) {
	tests := []struct {
		name         string
		client       *fakeClient
		wantFallback bool
		wantErr      string
	}{
		{name: "Delegated", client: &fakeClient{delegated: true, text: "Please fix this."}},
		{name: "NoResidentFallback", client: &fakeClient{}, wantFallback: true},
		{name: "DelegationErrorFallback", client: &fakeClient{err: errors.New("dial refused")}, wantFallback: true},
		{
			name:    "ResidentBusyIsFinal",
			client:  &fakeClient{delegated: true, err: &singleinstance.RemoteError{Message: "Busy"}},
			wantErr: "resident: Busy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fallbackCalled := false
			err := handleRunOnceWithDelegation(context.Background(), command.FixGrammar, tt.client, func() error {
				fallbackCalled = true
				return nil
			})
			if tt.client.called != command.FixGrammar {
				t.Fatalf("Expected TryTrigger(grammar), got %q", tt.client.called)
			}
			if fallbackCalled != tt.wantFallback {
				t.Fatalf("fallbackCalled=%v, want %v", fallbackCalled, tt.wantFallback)
			}
			if tt.wantErr == "" && err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.wantErr != "" && (err == nil || err.Error() != tt.wantErr) {
				t.Fatalf("Expected error %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAboutTextListsHotkeys(t *testing.T) {
	cfg := &config.Config{
		ServiceURL: "http://localhost:7172",
		Hotkeys:    map[command.Command]string{command.Enhance: "Ctrl+Alt+E"},
	}
	text := aboutText(cfg)
	for _, want := range []string{"Fix Prompt: Ctrl+Alt+E", "Fix Grammar: disabled", "Service: http://localhost:7172"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected about text to contain %q, got:\n%s", want, text)
		}
	}
}

func TestResidentPortsFromConfig(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "50100")
	t.Setenv("SINGLEINSTANCE_PORT_END", "50105")
	got := residentPorts(config.LoadOptions{})
	want := singleinstance.PortRange{Start: 50100, End: 50105}
	if got != want {
		t.Errorf("residentPorts() = %+v, want %+v", got, want)
	}
}
