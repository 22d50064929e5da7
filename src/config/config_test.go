package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"omnikey/src/command"
)

func TestLoad(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY_FILE", filepath.Join(t.TempDir(), "missing"))
	t.Setenv("OPENROUTER_API_KEY", "test_api_key")
	t.Setenv("MODEL", "test_model")
	t.Setenv("ENABLE_FILE_LOGGING", "true")
	t.Setenv("HOTKEY_GRAMMAR", "Ctrl+Shift+G")
	t.Setenv("SERVICE_URL", "http://127.0.0.1:9000/")
	t.Setenv("CAPTURE_SETTLE_MS", "450")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.APIKey != "test_api_key" {
		t.Errorf("Expected APIKey to be 'test_api_key', got '%s'", cfg.APIKey)
	}
	if cfg.Model != "test_model" {
		t.Errorf("Expected Model to be 'test_model', got '%s'", cfg.Model)
	}
	if !cfg.EnableFileLogging {
		t.Errorf("Expected EnableFileLogging to be true, got %v", cfg.EnableFileLogging)
	}
	if got := cfg.Hotkeys[command.FixGrammar]; got != "Ctrl+Shift+G" {
		t.Errorf("Expected grammar hotkey to be 'Ctrl+Shift+G', got '%s'", got)
	}
	if cfg.ServiceURL != "http://127.0.0.1:9000" {
		t.Errorf("Expected trailing slash trimmed, got '%s'", cfg.ServiceURL)
	}
	if cfg.CaptureSettle != 450*time.Millisecond {
		t.Errorf("Expected CaptureSettle 450ms, got %v", cfg.CaptureSettle)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SERVICE_URL", "REQUEST_TIMEOUT_SEC", "CAPTURE_SETTLE_MS", "PASTE_SETTLE_MS", "KEY_BACKEND", "ACCESSIBILITY_QUERY"} {
		t.Setenv(key, "")
	}
	for _, spec := range command.Specs() {
		t.Setenv(spec.EnvVar, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.ServiceURL != DefaultServiceURL {
		t.Errorf("Expected default service URL, got %q", cfg.ServiceURL)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", cfg.RequestTimeout)
	}
	if cfg.CaptureSettle != 300*time.Millisecond || cfg.PasteSettle != 100*time.Millisecond {
		t.Errorf("Unexpected settle delays: %v / %v", cfg.CaptureSettle, cfg.PasteSettle)
	}
	if cfg.KeyBackend != KeyBackendRobotgo {
		t.Errorf("Expected robotgo backend, got %q", cfg.KeyBackend)
	}
	if want := runtime.GOOS != "linux"; cfg.AccessibilityQuery != want {
		t.Errorf("Expected accessibility query %v by default on %s, got %v", want, runtime.GOOS, cfg.AccessibilityQuery)
	}
	if len(cfg.Hotkeys) != len(command.All()) {
		t.Errorf("Expected a default hotkey per command, got %v", cfg.Hotkeys)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT_SEC", "-3")
	t.Setenv("PASTE_SETTLE_MS", "abc")
	t.Setenv("HOTKEY_RELEASE_MS", "0")

	cfg, _ := Load()
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("Expected fallback timeout, got %v", cfg.RequestTimeout)
	}
	if cfg.PasteSettle != 100*time.Millisecond {
		t.Errorf("Expected fallback paste settle, got %v", cfg.PasteSettle)
	}
	if cfg.HotkeyRelease != 0 {
		t.Errorf("Expected zero hotkey release delay to be honoured, got %v", cfg.HotkeyRelease)
	}
}

func TestDisabledHotkey(t *testing.T) {
	t.Setenv("HOTKEY_CUSTOM_TASK", "off")
	cfg, _ := Load()
	if _, ok := cfg.Hotkeys[command.CustomTask]; ok {
		t.Error("Expected custom task hotkey to be disabled")
	}
}

func TestAPIKeyFromFileAndOverride(t *testing.T) {
	dir := t.TempDir()
	envFileKey := filepath.Join(dir, "env-key")
	overrideKey := filepath.Join(dir, "override-key")
	if err := os.WriteFile(envFileKey, []byte("from-env-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(overrideKey, []byte("  from-override  "), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(APIKeyPathEnvVar, envFileKey)
	t.Setenv("OPENROUTER_API_KEY", "from-env")

	cfg, _ := Load()
	if cfg.APIKey != "from-env-file" {
		t.Errorf("Expected key file to win over env var, got %q", cfg.APIKey)
	}

	cfg, _ = LoadWithOptions(LoadOptions{APIKeyPathOverride: overrideKey})
	if cfg.APIKey != "from-override" || cfg.APIKeyPath != overrideKey {
		t.Errorf("Expected override key, got %q from %q", cfg.APIKey, cfg.APIKeyPath)
	}
}

func TestEnvPathOverride(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "omnikey.env")
	if err := os.WriteFile(envFile, []byte("KEY_BACKEND=keybd\nNOTIFICATION_MS=2000\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KEY_BACKEND", "")
	t.Setenv("NOTIFICATION_MS", "")
	os.Unsetenv("KEY_BACKEND")
	os.Unsetenv("NOTIFICATION_MS")

	cfg, err := LoadWithOptions(LoadOptions{EnvPathOverride: envFile})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.KeyBackend != KeyBackendKeybd {
		t.Errorf("Expected keybd backend from env file, got %q", cfg.KeyBackend)
	}
	if cfg.NotificationHold != 2*time.Second {
		t.Errorf("Expected 2s notification hold, got %v", cfg.NotificationHold)
	}
}

func TestAccessibilityQueryOptIn(t *testing.T) {
	t.Setenv("ACCESSIBILITY_QUERY", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.AccessibilityQuery {
		t.Error("Expected ACCESSIBILITY_QUERY=true to enable the query on every platform")
	}
}

func TestPortRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantStart  int
		wantEnd    int
	}{
		{"defaults", "", "", DefaultPortStart, DefaultPortEnd},
		{"custom", "50000", "50010", 50000, 50010},
		{"swapped", "50010", "50000", 50000, 50010},
		{"privileged clamped", "80", "90", 1024, 1024},
		{"too high clamped", "65000", "70000", 65000, 65535},
		{"invalid falls back", "abc", "-1", DefaultPortStart, DefaultPortEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SINGLEINSTANCE_PORT_START", tt.start)
			t.Setenv("SINGLEINSTANCE_PORT_END", tt.end)
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Failed to load configuration: %v", err)
			}
			if cfg.PortStart != tt.wantStart || cfg.PortEnd != tt.wantEnd {
				t.Errorf("Expected range %d-%d, got %d-%d", tt.wantStart, tt.wantEnd, cfg.PortStart, cfg.PortEnd)
			}
		})
	}
}
