package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"omnikey/src/command"
	"omnikey/src/config"
	"omnikey/src/session"
	"omnikey/src/singleinstance"
)

type stressOptions struct {
	n        int
	command  string
	deadline time.Duration
	envPath  string
}

type counts struct {
	ok, busy, noResident, err int32
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-trigger",
		Short:         "Fire concurrent delegated triggers at a running OmniKey",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := command.Parse(opts.command)
			if err != nil {
				return err
			}
			cfg, err := config.LoadWithOptions(config.LoadOptions{EnvPathOverride: opts.envPath})
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			client := singleinstance.NewClient(singleinstance.PortRange{Start: cfg.PortStart, End: cfg.PortEnd})
			res := stress(client, c, *opts)
			report(cmd.OutOrStdout(), opts.n, res)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.command, "command", string(command.FixGrammar), "command each client triggers")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")
	cmd.Flags().StringVar(&opts.envPath, "env", "", "Path to a .env file (SINGLEINSTANCE_PORT_*)")

	return cmd
}

type triggerClient interface {
	TryTrigger(ctx context.Context, cmd command.Command) (bool, string, error)
}

// stress launches opts.n clients at once. With one active run allowed, a
// healthy resident answers ok for at most one of them and Busy for the rest.
func stress(client triggerClient, cmd command.Command, opts stressOptions) *counts {
	var wg sync.WaitGroup
	res := &counts{}
	start := make(chan struct{})

	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			delegated, _, err := client.TryTrigger(ctx, cmd)
			var remote *singleinstance.RemoteError
			switch {
			case err == nil && delegated:
				atomic.AddInt32(&res.ok, 1)
			case err == nil:
				atomic.AddInt32(&res.noResident, 1)
			case errors.As(err, &remote) && remote.Message == session.TitleBusy:
				atomic.AddInt32(&res.busy, 1)
			default:
				atomic.AddInt32(&res.err, 1)
			}
		}()
	}
	close(start)
	wg.Wait()
	return res
}

func report(w io.Writer, n int, res *counts) {
	fmt.Fprintf(w, "launched=%d ok=%d busy=%d no-resident=%d err=%d\n", n, res.ok, res.busy, res.noResident, res.err)
}
