package main

import (
	"testing"
)

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &serverOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--addr", "127.0.0.1:0", "--api-key-path", "/tmp/key", "--custom-task-file", "task.txt", "-q"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.addr != "127.0.0.1:0" || opts.apiKeyPath != "/tmp/key" || opts.taskFile != "task.txt" || !opts.quiet {
		t.Fatalf("Unexpected options: %+v", *opts)
	}
}

func TestNormalizeLegacyArgs(t *testing.T) {
	got := normalizeLegacyArgs([]string{"omnikey-server", "-addr", ":7172", "-api-key-path=/tmp/key", "-q"})
	want := []string{"omnikey-server", "--addr", ":7172", "--api-key-path=/tmp/key", "-q"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("arg[%d]=%q, want %q", i, got[i], want[i])
		}
	}
}
