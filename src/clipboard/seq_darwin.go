//go:build darwin

package clipboard

import (
	"log"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/ebitengine/purego/objc"
)

const appKitPath = "/System/Library/Frameworks/AppKit.framework/AppKit"

var (
	pasteboardOnce sync.Once
	pasteboard     objc.ID
	selChangeCount objc.SEL
)

func loadPasteboard() {
	if _, err := purego.Dlopen(appKitPath, purego.RTLD_NOW|purego.RTLD_GLOBAL); err != nil {
		log.Printf("clipboard: AppKit unavailable, change counter disabled: %v", err)
		return
	}
	class := objc.GetClass("NSPasteboard")
	if class == 0 {
		return
	}
	pasteboard = objc.ID(class).Send(objc.RegisterName("generalPasteboard"))
	selChangeCount = objc.RegisterName("changeCount")
}

// sequenceNumber returns NSPasteboard.changeCount of the general pasteboard.
// It moves on every write, including a copy of identical text.
func sequenceNumber() (uint32, bool) {
	pasteboardOnce.Do(loadPasteboard)
	if pasteboard == 0 {
		return 0, false
	}
	return uint32(pasteboard.Send(selChangeCount)), true
}
