package clipboard

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"sync"

	atotto "github.com/atotto/clipboard"
	"golang.design/x/clipboard"
)

// ErrNotInitialized is returned when Read or Write run before Init.
var ErrNotInitialized = errors.New("clipboard not initialized")

// Backend is one way of reaching the system clipboard.
type Backend interface {
	Name() string
	ReadText() (string, error)
	WriteText(text string) error
}

var (
	writeMu sync.Mutex

	backendMu sync.RWMutex
	backend   Backend
)

// Init selects the native clipboard and falls back to the command-line
// helpers (pbcopy, xclip/xsel, wl-clipboard) when the native one cannot start,
// e.g. without cgo or a display connection.
func Init() error {
	err := clipboard.Init()
	if err == nil {
		SetBackend(nativeBackend{})
		return nil
	}
	log.Printf("clipboard: native backend unavailable (%v), trying command-line helpers", err)
	if atotto.Unsupported {
		return fmt.Errorf("no clipboard backend available on this system")
	}
	SetBackend(utilityBackend{})
	return nil
}

// SetBackend replaces the active backend. Tests use it to install a fake.
func SetBackend(b Backend) {
	backendMu.Lock()
	backend = b
	backendMu.Unlock()
	if b != nil {
		log.Printf("clipboard: using %s backend", b.Name())
	}
}

func current() (Backend, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if backend == nil {
		return nil, ErrNotInitialized
	}
	return backend, nil
}

// Read returns the clipboard text. An empty clipboard yields "" and no error.
func Read() (string, error) {
	b, err := current()
	if err != nil {
		return "", err
	}
	return b.ReadText()
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func Write(text string) error {
	b, err := current()
	if err != nil {
		return err
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	return b.WriteText(text)
}

// Snapshot is a comparison token for the clipboard at one instant: a content
// hash plus the platform change counter where one exists.
type Snapshot struct {
	HasText bool
	Hash    [sha256.Size]byte
	Seq     uint32
	HasSeq  bool
}

// Take reads the clipboard and returns its snapshot. A read failure is
// recorded as "no text" rather than returned, so a locked clipboard cannot
// masquerade as a fresh copy.
func Take() Snapshot {
	seq, hasSeq := sequenceNumber()
	text, err := Read()
	if err != nil {
		log.Printf("clipboard: snapshot read failed: %v", err)
		text = ""
	}
	return newSnapshot(text, seq, hasSeq)
}

// SnapshotOf builds the snapshot of a clipboard holding text, without a
// change counter.
func SnapshotOf(text string) Snapshot {
	return newSnapshot(text, 0, false)
}

func newSnapshot(text string, seq uint32, hasSeq bool) Snapshot {
	s := Snapshot{Seq: seq, HasSeq: hasSeq}
	if text != "" {
		s.HasText = true
		s.Hash = sha256.Sum256([]byte(text))
	}
	return s
}

// Changed reports whether after differs from s. The change counter wins when
// both snapshots carry one; otherwise content equality decides.
func (s Snapshot) Changed(after Snapshot) bool {
	if s.HasSeq && after.HasSeq {
		return s.Seq != after.Seq
	}
	return s.HasText != after.HasText || s.Hash != after.Hash
}

// System adapts the package-level clipboard to the capture and replace
// interfaces.
type System struct{}

func (System) Snapshot() Snapshot      { return Take() }
func (System) Read() (string, error)   { return Read() }
func (System) Write(text string) error { return Write(text) }

type nativeBackend struct{}

func (nativeBackend) Name() string { return "native" }

func (nativeBackend) ReadText() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (nativeBackend) WriteText(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

type utilityBackend struct{}

func (utilityBackend) Name() string { return "command-line" }

func (utilityBackend) ReadText() (string, error) {
	text, err := atotto.ReadAll()
	if err != nil {
		return "", fmt.Errorf("clipboard read: %w", err)
	}
	return text, nil
}

func (utilityBackend) WriteText(text string) error {
	if err := atotto.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	return nil
}
