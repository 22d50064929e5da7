//go:build windows

package clipboard

import "golang.org/x/sys/windows"

var (
	user32                         = windows.NewLazySystemDLL("user32.dll")
	procGetClipboardSequenceNumber = user32.NewProc("GetClipboardSequenceNumber")
)

// sequenceNumber returns the Windows clipboard change counter. Zero means the
// caller lacks access to the window station and the counter is unusable.
func sequenceNumber() (uint32, bool) {
	if err := procGetClipboardSequenceNumber.Find(); err != nil {
		return 0, false
	}
	r, _, _ := procGetClipboardSequenceNumber.Call()
	if r == 0 {
		return 0, false
	}
	return uint32(r), true
}
