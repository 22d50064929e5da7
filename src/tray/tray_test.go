package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnikey/src/command"
)

func TestIconPNGDecodes(t *testing.T) {
	img, err := png.Decode(bytes.NewReader(iconPNG(iconSize)))
	require.NoError(t, err)
	assert.Equal(t, iconSize, img.Bounds().Dx())
	assert.Equal(t, iconSize, img.Bounds().Dy())
}

func TestWrapICO(t *testing.T) {
	p := iconPNG(iconSize)
	ico := wrapICO(p, iconSize)

	require.Len(t, ico, 22+len(p))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(ico[2:4]), "type")
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(ico[4:6]), "count")
	assert.Equal(t, byte(iconSize), ico[6])
	assert.Equal(t, uint32(len(p)), binary.LittleEndian.Uint32(ico[14:18]))
	assert.Equal(t, uint32(22), binary.LittleEndian.Uint32(ico[18:22]))
	assert.Equal(t, p, ico[22:])
}

func TestMenuItems(t *testing.T) {
	items := MenuItems(map[command.Command]string{
		command.Enhance:    "Ctrl+Alt+E",
		command.FixGrammar: "Ctrl+Alt+G",
	})
	require.Len(t, items, 3)
	assert.Equal(t, "Fix Prompt (Ctrl+Alt+E)", items[0].title())
	assert.Equal(t, "Fix Grammar (Ctrl+Alt+G)", items[1].title())
	assert.Equal(t, "My Custom Task", items[2].title())
}

func TestAboutText(t *testing.T) {
	SetAboutExtra("Resident TCP port: 49600")
	defer SetAboutExtra("")
	assert.Equal(t, "OmniKey v1\n\nResident TCP port: 49600", aboutText("OmniKey v1"))
}
