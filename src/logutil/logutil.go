package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const (
	logFileName  = "omnikey.log"
	maxSizeBytes = 10 * 1024 * 1024 // 10 MB
	maxArchives  = 3
)

// Setup enables file logging with basic size-based rotation (10MB, max 3 files).
// When disabled, logs are discarded so the resident stays quiet.
func Setup(enableFileLogging bool) {
	if !enableFileLogging {
		log.SetOutput(io.Discard)
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		return
	}
	rotateIfNeeded()
	f, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return
	}
	log.SetOutput(&rotatingWriter{f: f})
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// SetupStderr routes logs to stderr; used by the command line tools and the service.
func SetupStderr(verbose bool) {
	if !verbose {
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

type rotatingWriter struct{ f *os.File }

func (w *rotatingWriter) Write(p []byte) (int, error) {
	// naive rotation check per write
	if st, err := w.f.Stat(); err == nil && st.Size()+int64(len(p)) > maxSizeBytes {
		_ = w.f.Close()
		rotateIfNeeded()
		nf, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return 0, err
		}
		w.f = nf
	}
	return w.f.Write(p)
}

func rotateIfNeeded() {
	// If base exceeds max size, rotate: .1, .2, .3 (oldest discarded)
	if st, err := os.Stat(logFileName); err == nil && st.Size() > maxSizeBytes {
		_ = os.Remove(archiveName(maxArchives))
		for i := maxArchives - 1; i >= 1; i-- {
			_ = os.Rename(archiveName(i), archiveName(i+1))
		}
		_ = os.Rename(logFileName, archiveName(1))
	}
}

func archiveName(n int) string { return filepath.Join(".", fmt.Sprintf("%s.%d", logFileName, n)) }

// RedactKey masks an API key, leaving first/last 4 chars: xxxx...yyyy
func RedactKey(k string) string {
	if len(k) <= 8 {
		return "********"
	}
	return fmt.Sprintf("%s...%s", k[:4], k[len(k)-4:])
}

// Preview returns user text in a form safe for a single log line: at most
// maxRunes runes, with newlines, tabs and other control characters escaped.
func Preview(text string, maxRunes int) string {
	runes := []rune(text)
	truncated := false
	if maxRunes > 0 && len(runes) > maxRunes {
		runes = runes[:maxRunes]
		truncated = true
	}

	var b strings.Builder
	for _, r := range runes {
		switch {
		case r == '\n' || r == '\r':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 32 || r == 127:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	if truncated {
		b.WriteString("...")
	}
	return b.String()
}

// Truncate cuts text to maxRunes runes, appending "..." when it had to cut.
func Truncate(text string, maxRunes int) string {
	runes := []rune(text)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}
