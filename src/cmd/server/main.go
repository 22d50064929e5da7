package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"omnikey/src/config"
	"omnikey/src/logutil"
	"omnikey/src/runtimeinit"
	"omnikey/src/server"
)

type serverOptions struct {
	addr       string
	apiKeyPath string
	envPath    string
	taskFile   string
	quiet      bool
}

func main() {
	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"omnikey-server"}
	}
	opts := &serverOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *serverOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "omnikey-server",
		Short:         "Serve the OmniKey rewrite API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWithOptions(ctx, *opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides SERVER_ADDR)")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	cmd.Flags().StringVar(&opts.envPath, "env", "", "Path to a .env file")
	cmd.Flags().StringVar(&opts.taskFile, "custom-task-file", "", "Prompt file for /api/custom-task (overrides CUSTOM_TASK_FILE)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not log requests to stderr")

	return cmd
}

func runWithOptions(ctx context.Context, opts serverOptions) error {
	cfg, err := runtimeinit.BootstrapService(runtimeinit.Options{
		LoadOptions: config.LoadOptions{APIKeyPathOverride: opts.apiKeyPath, EnvPathOverride: opts.envPath},
		SetupLogging: func(bool) {
			logutil.SetupStderr(!opts.quiet)
		},
	})
	if err != nil {
		return err
	}

	addr := cfg.ServerAddr
	if opts.addr != "" {
		addr = opts.addr
	}
	taskFile := cfg.CustomTaskPath
	if opts.taskFile != "" {
		taskFile = opts.taskFile
	}
	log.Printf("Rewrite API: custom task prompt from %s", taskFile)

	return server.New(server.Options{Addr: addr, CustomTaskPath: taskFile}).ListenAndServe(ctx)
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"addr", "api-key-path", "env", "custom-task-file", "quiet"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}
