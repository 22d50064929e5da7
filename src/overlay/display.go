package overlay

import (
	"image"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"
)

// ActiveDisplay returns the bounds of the display under the mouse pointer,
// which is where the user is working.
func ActiveDisplay() image.Rectangle {
	n := screenshot.NumActiveDisplays()
	displays := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		displays = append(displays, screenshot.GetDisplayBounds(i))
	}
	x, y := robotgo.Location()
	return DisplayFor(image.Pt(x, y), displays)
}

// ActivePlacement is Placement on ActiveDisplay.
func ActivePlacement() image.Rectangle {
	return Placement(ActiveDisplay())
}
