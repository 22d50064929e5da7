package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"omnikey/src/command"
)

const (
	DefaultAPIKeyPath = "/run/secrets/api_keys/openrouter"
	APIKeyPathEnvVar  = "OPENROUTER_API_KEY_FILE"
	EnvPathVar        = "OMNIKEY_ENV"

	DefaultServiceURL = "http://localhost:7172"
	DefaultServerAddr = "127.0.0.1:7172"

	// Loopback range the resident binds (first port) and clients scan.
	DefaultPortStart = 49600
	DefaultPortEnd   = 49650

	KeyBackendRobotgo = "robotgo"
	KeyBackendKeybd   = "keybd"
)

// defaultAccessibilityQuery is off on Linux: the only direct source there is
// the PRIMARY selection, which outlives the highlight that set it and may
// belong to a window other than the focused one.
var defaultAccessibilityQuery = runtime.GOOS != "linux"

type LoadOptions struct {
	APIKeyPathOverride string
	ServiceURLOverride string
	EnvPathOverride    string
}

type Config struct {
	// Resident side.
	ServiceURL          string
	RequestTimeout      time.Duration
	CaptureSettle       time.Duration
	PasteSettle         time.Duration
	HotkeyRelease       time.Duration
	NotificationHold    time.Duration
	Hotkeys             map[command.Command]string
	KeyBackend          string
	AccessibilityQuery  bool
	EnableFileLogging   bool
	EnableNotifications bool
	PortStart           int
	PortEnd             int

	// Rewrite service side.
	ServerAddr     string
	APIKey         string
	APIKeyPath     string
	Model          string
	Providers      []string
	CustomTaskPath string
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order: .env next to the executable, else the file
	// named by OMNIKEY_ENV (or the override), then the process environment.
	envPath := resolveEnvPath(opts)
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	var providers []string
	if providersStr := os.Getenv("PROVIDERS"); providersStr != "" {
		for _, provider := range strings.Split(providersStr, ",") {
			if trimmed := strings.TrimSpace(provider); trimmed != "" {
				providers = append(providers, trimmed)
			}
		}
	}

	apiKeyPath := resolveAPIKeyPath(opts, dotenvValues)

	serviceURL := getEnvWithDefault("SERVICE_URL", DefaultServiceURL)
	if override := strings.TrimSpace(opts.ServiceURLOverride); override != "" {
		serviceURL = override
	}

	portStart, portEnd := resolvePortRange()

	cfg := &Config{
		ServiceURL:          strings.TrimRight(serviceURL, "/"),
		RequestTimeout:      time.Duration(getPositiveInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,
		CaptureSettle:       time.Duration(getPositiveInt("CAPTURE_SETTLE_MS", 300)) * time.Millisecond,
		PasteSettle:         time.Duration(getPositiveInt("PASTE_SETTLE_MS", 100)) * time.Millisecond,
		HotkeyRelease:       time.Duration(getNonNegativeInt("HOTKEY_RELEASE_MS", 120)) * time.Millisecond,
		NotificationHold:    time.Duration(getPositiveInt("NOTIFICATION_MS", 1700)) * time.Millisecond,
		Hotkeys:             resolveHotkeys(),
		KeyBackend:          resolveKeyBackend(os.Getenv("KEY_BACKEND")),
		AccessibilityQuery:  getBool("ACCESSIBILITY_QUERY", defaultAccessibilityQuery),
		EnableFileLogging:   strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		EnableNotifications: getBool("ENABLE_NOTIFICATIONS", true),
		PortStart:           portStart,
		PortEnd:             portEnd,

		ServerAddr:     getEnvWithDefault("SERVER_ADDR", DefaultServerAddr),
		APIKey:         resolveAPIKey(apiKeyPath),
		APIKeyPath:     apiKeyPath,
		Model:          getEnvWithDefault("MODEL", "openai/gpt-4.1-mini"),
		Providers:      providers,
		CustomTaskPath: getEnvWithDefault("CUSTOM_TASK_FILE", "custom_task.txt"),
	}

	return cfg, nil
}

func resolveEnvPath(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.EnvPathOverride); override != "" {
		if _, err := os.Stat(override); err == nil {
			return override
		}
	}

	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvPathVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := DefaultAPIKeyPath

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

func resolveAPIKey(keyPath string) string {
	if data, err := os.ReadFile(keyPath); err == nil {
		if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
			return fileKey
		}
	}

	return os.Getenv("OPENROUTER_API_KEY")
}

// resolveHotkeys reads one combination per command. An explicit "off" or
// "none" disables that binding.
func resolveHotkeys() map[command.Command]string {
	out := make(map[command.Command]string)
	for _, spec := range command.Specs() {
		combo := getEnvWithDefault(spec.EnvVar, spec.HotkeyDefault())
		switch strings.ToLower(strings.TrimSpace(combo)) {
		case "off", "none", "disabled":
			continue
		}
		out[spec.Command] = combo
	}
	return out
}

// resolvePortRange reads SINGLEINSTANCE_PORT_START/END (inclusive), clamped
// to unprivileged ports.
func resolvePortRange() (int, int) {
	start := getPositiveInt("SINGLEINSTANCE_PORT_START", DefaultPortStart)
	end := getPositiveInt("SINGLEINSTANCE_PORT_END", DefaultPortEnd)
	start = min(max(start, 1024), 65535)
	end = min(max(end, 1024), 65535)
	if end < start {
		start, end = end, start
	}
	return start, end
}

func resolveKeyBackend(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case KeyBackendKeybd, "keybd_event":
		return KeyBackendKeybd
	default:
		return KeyBackendRobotgo
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getNonNegativeInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return n
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}
