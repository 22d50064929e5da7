// Package overlay holds the geometry and timing of the transient status
// overlay. Rendering lives in the notification package.
package overlay

import (
	"image"
	"time"
)

const (
	Width     = 360
	Height    = 90
	TopMargin = 60

	// MaxAlpha is the opacity at full visibility; the overlay stays slightly
	// see-through.
	MaxAlpha = 235
)

// Placement centres a Width x Height box horizontally in display, TopMargin
// below its top edge. Displays narrower than the box get a box clamped to
// their left edge.
func Placement(display image.Rectangle) image.Rectangle {
	x := display.Min.X + (display.Dx()-Width)/2
	if x < display.Min.X {
		x = display.Min.X
	}
	y := display.Min.Y + TopMargin
	return image.Rect(x, y, x+Width, y+Height)
}

// DisplayFor returns the display containing pt, else the first display, else
// the zero rectangle.
func DisplayFor(pt image.Point, displays []image.Rectangle) image.Rectangle {
	for _, d := range displays {
		if pt.In(d) {
			return d
		}
	}
	if len(displays) > 0 {
		return displays[0]
	}
	return image.Rectangle{}
}

// Timeline is the fade-in / hold / fade-out envelope of one overlay.
type Timeline struct {
	FadeIn  time.Duration
	Hold    time.Duration
	FadeOut time.Duration
}

// DefaultTimeline returns the standard envelope around hold.
func DefaultTimeline(hold time.Duration) Timeline {
	if hold <= 0 {
		hold = 1700 * time.Millisecond
	}
	return Timeline{FadeIn: 150 * time.Millisecond, Hold: hold, FadeOut: 250 * time.Millisecond}
}

func (t Timeline) Total() time.Duration {
	return t.FadeIn + t.Hold + t.FadeOut
}

// Alpha is the opacity (0..MaxAlpha) at elapsed since the overlay appeared.
func (t Timeline) Alpha(elapsed time.Duration) uint8 {
	switch {
	case elapsed < 0:
		return 0
	case elapsed < t.FadeIn:
		return scale(elapsed, t.FadeIn)
	case elapsed < t.FadeIn+t.Hold:
		return MaxAlpha
	case elapsed < t.Total():
		return scale(t.Total()-elapsed, t.FadeOut)
	default:
		return 0
	}
}

// Done reports whether the overlay has fully faded out.
func (t Timeline) Done(elapsed time.Duration) bool {
	return elapsed >= t.Total()
}

func scale(part, whole time.Duration) uint8 {
	if whole <= 0 {
		return MaxAlpha
	}
	return uint8(int64(MaxAlpha) * int64(part) / int64(whole))
}
