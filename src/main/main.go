package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"omnikey/src/command"
	"omnikey/src/config"
	"omnikey/src/eventloop"
	"omnikey/src/hotkey"
	"omnikey/src/logutil"
	"omnikey/src/messages"
	"omnikey/src/popup"
	"omnikey/src/runtimeinit"
	"omnikey/src/session"
	"omnikey/src/singleinstance"
	"omnikey/src/tray"
)

type mainOptions struct {
	runOnce    string
	serviceURL string
	envPath    string
	timeout    time.Duration
}

// triggerClient is the delegation side of singleinstance.Client.
type triggerClient interface {
	TryTrigger(ctx context.Context, cmd command.Command) (bool, string, error)
}

func main() {
	// Before any window exists.
	enableDPIAwareness()

	// systray and the overlay thread expect the main goroutine on its own OS thread.
	runtime.LockOSThread()

	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"omnikey"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "omnikey",
		Short:         "Rewrite the selected text in any application with a hotkey",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadOpts := config.LoadOptions{ServiceURLOverride: opts.serviceURL, EnvPathOverride: opts.envPath}
			if opts.runOnce != "" {
				c, err := command.Parse(opts.runOnce)
				if err != nil {
					return err
				}
				return runOnce(c, loadOpts, opts.timeout)
			}
			return runResident(loadOpts)
		},
	}

	cmd.Flags().StringVar(&opts.runOnce, "run-once", "", "Run one command (enhance, grammar, custom-task) and exit; delegates to a running instance")
	cmd.Flags().StringVar(&opts.serviceURL, "service-url", "", "Rewrite service base URL (overrides SERVICE_URL)")
	cmd.Flags().StringVar(&opts.envPath, "env", "", "Path to a .env file")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "How long --run-once waits for the result")

	return cmd
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"run-once", "service-url", "env", "timeout"} {
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

// handleRunOnceWithDelegation hands cmd to a resident when one answers and
// runs fallback otherwise. A resident that answered with an error, such as
// Busy, is final: running standalone beside it would break the single
// active run.
func handleRunOnceWithDelegation(ctx context.Context, cmd command.Command, client triggerClient, fallback func() error) error {
	delegated, text, err := client.TryTrigger(ctx, cmd)
	switch {
	case delegated && err == nil:
		log.Printf("Delegated %s to resident: %s", cmd, logutil.Preview(text, 60))
		return nil
	case delegated:
		var remote *singleinstance.RemoteError
		if errors.As(err, &remote) {
			return fmt.Errorf("resident: %s", remote.Message)
		}
		return fmt.Errorf("resident: %w", err)
	case err != nil:
		log.Printf("Delegation error: %v; running standalone", err)
	default:
		log.Printf("No resident detected, running standalone")
	}
	return fallback()
}

func runOnce(cmd command.Command, loadOpts config.LoadOptions, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := singleinstance.NewClient(residentPorts(loadOpts))
	return handleRunOnceWithDelegation(ctx, cmd, client, func() error {
		return runStandalone(ctx, cmd, loadOpts)
	})
}

// runStandalone executes one pipeline in this process.
func runStandalone(ctx context.Context, cmd command.Command, loadOpts config.LoadOptions) error {
	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  loadOpts,
		SetupLogging: setupLogging,
		SkipChecks:   true,
	})
	if err != nil {
		return err
	}

	notifier := popup.New(cfg.NotificationHold, cfg.EnableNotifications)
	rep := runtimeinit.NewRunner(cfg, notifier).Execute(ctx, cmd)

	// The overlay lives in this process; keep it visible until it fades.
	if cfg.EnableNotifications {
		time.Sleep(cfg.NotificationHold + 500*time.Millisecond)
	}
	if rep.Err != nil {
		return errors.New(session.Reason(rep.Err))
	}
	return nil
}

func runResident(loadOpts config.LoadOptions) error {
	ports := residentPorts(loadOpts)
	probeCtx, cancelProbe := context.WithTimeout(context.Background(), time.Second)
	port, found := singleinstance.NewClient(ports).Detect(probeCtx)
	cancelProbe()
	if found {
		fmt.Printf("OmniKey is already running on port %d\n", port)
		return fmt.Errorf("another instance is already running")
	}

	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  loadOpts,
		SetupLogging: setupLogging,
	})
	if err != nil {
		popup.Fatal("OmniKey", err.Error())
		return err
	}
	logMonitorConfiguration()

	notifier := popup.New(cfg.NotificationHold, cfg.EnableNotifications)
	loop := eventloop.New(eventloop.Options{
		Runner:   runtimeinit.NewRunner(cfg, notifier),
		Notifier: notifier,
		Server:   singleinstance.NewServer(portRange(cfg)),
		OnStatus: func(u messages.UpdateTray) { tray.UpdateTooltip(u.Tooltip) },
		OnListening: func(p int) {
			tray.SetAboutExtra(fmt.Sprintf("Resident port: %d", p))
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			log.Printf("Signal received, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Printf("OmniKey initialized; service %s", cfg.ServiceURL)
	for c, combo := range cfg.Hotkeys {
		log.Printf("Hotkey: %s -> %s", combo, c)
	}

	loopErr := make(chan error, 1)
	tray.Run(tray.Options{
		Items:     tray.MenuItems(cfg.Hotkeys),
		Tooltip:   eventloop.DefaultTooltip,
		About:     aboutText(cfg),
		OnCommand: func(c command.Command) { loop.OnTrigger(c, messages.SourceTray) },
		OnQuit:    cancel,
	}, func() {
		if err := loop.StartHotkeys(cfg.Hotkeys); err != nil {
			log.Printf("Hotkeys unavailable: %v", err)
			notifier.Show(session.TitleError, "Failed: "+err.Error())
		}
		err := loop.Run(ctx)
		hotkey.Stop()
		loopErr <- err
		tray.Quit()
	})

	cancel()
	select {
	case err := <-loopErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("event loop stopped: %v", err)
			return err
		}
	case <-time.After(2 * time.Second):
		log.Printf("event loop did not stop in time")
	}
	return nil
}

// residentPorts loads the range before logging is set up so an --env file
// applies to the scan.
func residentPorts(loadOpts config.LoadOptions) singleinstance.PortRange {
	cfg, err := config.LoadWithOptions(loadOpts)
	if err != nil {
		return singleinstance.PortRange{Start: config.DefaultPortStart, End: config.DefaultPortEnd}
	}
	return portRange(cfg)
}

func portRange(cfg *config.Config) singleinstance.PortRange {
	return singleinstance.PortRange{Start: cfg.PortStart, End: cfg.PortEnd}
}

func aboutText(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString("OmniKey\nRewrites the selected text in place.\n")
	for _, spec := range command.Specs() {
		combo := cfg.Hotkeys[spec.Command]
		if combo == "" {
			combo = "disabled"
		}
		fmt.Fprintf(&b, "\n%s: %s", spec.MenuLabel, combo)
	}
	fmt.Fprintf(&b, "\n\nService: %s", cfg.ServiceURL)
	return b.String()
}

func setupLogging(enableFileLogging bool) {
	logutil.Setup(enableFileLogging)
}
