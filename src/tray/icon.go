package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"runtime"
)

const iconSize = 32

var (
	iconBackground = color.NRGBA{R: 0x1f, G: 0x6f, B: 0xeb, A: 0xff}
	iconForeground = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Icon returns the tray icon in the format systray expects on this OS:
// ICO on Windows, PNG elsewhere.
func Icon() []byte {
	p := iconPNG(iconSize)
	if runtime.GOOS == "windows" {
		return wrapICO(p, iconSize)
	}
	return p
}

// iconPNG draws a rounded key cap with a text caret.
func iconPNG(size int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	r := size / 6
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if insideRounded(x, y, size, r) {
				img.Set(x, y, iconBackground)
			}
		}
	}
	// Caret: a vertical bar with serifs.
	cx := size / 2
	top, bottom := size/4, size-size/4
	for y := top; y < bottom; y++ {
		img.Set(cx, y, iconForeground)
		img.Set(cx-1, y, iconForeground)
	}
	for dx := -size / 8; dx <= size/8; dx++ {
		img.Set(cx+dx, top, iconForeground)
		img.Set(cx+dx, bottom-1, iconForeground)
	}

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func insideRounded(x, y, size, r int) bool {
	cx, cy := x, y
	switch {
	case x < r:
		cx = r
	case x >= size-r:
		cx = size - r - 1
	}
	switch {
	case y < r:
		cy = r
	case y >= size-r:
		cy = size - r - 1
	}
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= r*r
}

// wrapICO embeds one PNG image in an ICO container (Vista and later accept
// PNG-compressed entries).
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, uint16(0)) // reserved
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // type: icon
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // image count
	// ICONDIRENTRY; 0 encodes 256
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}
	buf.WriteByte(dim)
	buf.WriteByte(dim)
	buf.WriteByte(0) // palette
	buf.WriteByte(0) // reserved
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))  // color planes
	_ = binary.Write(&buf, binary.LittleEndian, uint16(32)) // bits per pixel
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(6+16))
	buf.Write(pngData)
	return buf.Bytes()
}
