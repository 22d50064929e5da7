package runtimeinit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"omnikey/src/accessibility"
	"omnikey/src/capture"
	"omnikey/src/clipboard"
	"omnikey/src/config"
	"omnikey/src/gateway"
	"omnikey/src/keys"
	"omnikey/src/llm"
	"omnikey/src/logutil"
	"omnikey/src/popup"
	"omnikey/src/replace"
	"omnikey/src/session"
)

const (
	startupProbeTimeout = 3 * time.Second

	TitlePermission = "Accessibility Permission Required"
	BodyPermission  = "Grant accessibility access in System Settings > Privacy & Security so OmniKey can read selected text. Falling back to copy and paste."
	TitleService    = "Service Unavailable"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// Notifier receives startup warnings; nil uses the overlay configured
	// by NOTIFICATION_MS and ENABLE_NOTIFICATIONS.
	Notifier popup.Notifier
	// SkipChecks disables the permission and health probes.
	SkipChecks bool
}

// Hooks replaced in tests.
var (
	initClipboard   = clipboard.Init
	checkPermission = accessibility.CheckPermission
	checkHealth     = func(ctx context.Context, cfg *config.Config) error {
		return gateway.New(cfg.ServiceURL, startupProbeTimeout).Health(ctx)
	}
)

// Bootstrap prepares the desktop side: configuration, logging, clipboard and
// the non-fatal startup probes. Only configuration and clipboard failures
// are returned.
func Bootstrap(opts Options) (*config.Config, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}
	log.Printf("Config: service=%s timeout=%v captureSettle=%v pasteSettle=%v keys=%s",
		cfg.ServiceURL, cfg.RequestTimeout, cfg.CaptureSettle, cfg.PasteSettle, cfg.KeyBackend)

	if err := initClipboard(); err != nil {
		return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
	}

	if opts.SkipChecks {
		return cfg, nil
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = popup.New(cfg.NotificationHold, cfg.EnableNotifications)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupProbeTimeout)
	defer cancel()

	if cfg.AccessibilityQuery {
		switch err := checkPermission(ctx); {
		case err == nil:
			log.Printf("Accessibility: selection query available")
		case errors.Is(err, accessibility.ErrPermissionDenied):
			log.Printf("Accessibility: %v", err)
			notifier.Show(TitlePermission, BodyPermission)
		default:
			log.Printf("Accessibility: selection query unavailable (%v); clipboard fallback only", err)
		}
	}

	if err := checkHealth(ctx, cfg); err != nil {
		log.Printf("Health: rewrite service at %s not reachable: %v", cfg.ServiceURL, err)
		notifier.Show(TitleService, fmt.Sprintf("Rewrite service at %s is not reachable: %s", cfg.ServiceURL, session.Reason(err)))
	} else {
		log.Printf("Health: rewrite service at %s ok", cfg.ServiceURL)
	}

	return cfg, nil
}

// NewRunner assembles the pipeline for cfg on the running desktop.
func NewRunner(cfg *config.Config, notifier popup.Notifier) *session.Runner {
	sender := keys.New(cfg.KeyBackend)
	acq := &capture.Acquirer{
		Clipboard:    clipboard.System{},
		Keys:         sender,
		Settle:       cfg.CaptureSettle,
		ReleaseDelay: cfg.HotkeyRelease,
	}
	if cfg.AccessibilityQuery {
		acq.Selection = accessibility.System{}
	}
	return &session.Runner{
		Acquirer: acq,
		Rewriter: gateway.New(cfg.ServiceURL, cfg.RequestTimeout),
		Replacer: &replace.Replacer{Clipboard: clipboard.System{}, Keys: sender, Settle: cfg.PasteSettle},
		Notifier: notifier,
		Lease:    clipboard.DefaultLease,
		Timeout:  cfg.RequestTimeout,
	}
}

// BootstrapService prepares the rewrite service. A missing key is not an
// error: the service then echoes the trimmed input.
func BootstrapService(opts Options) (*config.Config, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	llm.Init(&llm.Config{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		Providers: cfg.Providers,
	})
	if cfg.APIKey == "" {
		log.Printf("LLM: no API key (checked key file %s and OPENROUTER_API_KEY); requests return the original text", cfg.APIKeyPath)
		return cfg, nil
	}
	log.Printf("LLM: model=%s key=%s providers=%v", cfg.Model, logutil.RedactKey(cfg.APIKey), cfg.Providers)

	if !opts.SkipChecks {
		ctx, cancel := context.WithTimeout(context.Background(), startupProbeTimeout)
		defer cancel()
		if err := llm.Ping(ctx); err != nil {
			log.Printf("LLM: startup ping failed: %v", err)
		}
	}
	return cfg, nil
}
