package hotkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawcodesForBindingKeys(t *testing.T) {
	tests := map[string][]uint16{
		"ctrl":  {vkLCtrl, vkRCtrl},
		"alt":   {vkLAlt, 165},
		"shift": {160, 161},
		"cmd":   {91, 92},
		"win":   {91, 92},
		"e":     {vkE},
		"g":     {vkG},
		"k":     {75},
		"7":     {55},
		"f1":    {112},
		"f24":   {135},
		"space": {32},
		"esc":   {27},
		"pgdn":  {34},
		"down":  {40},
	}
	for name, want := range tests {
		assert.Equal(t, want, keyNameToRawcodes(name), name)
	}

	for _, name := range []string{"f0", "f25", "f01", "banana", ""} {
		assert.Nil(t, keyNameToRawcodes(name), name)
	}
}

func TestParseHotkeyNormalizesModifiers(t *testing.T) {
	tests := []struct {
		combo string
		want  []string
	}{
		{"Cmd+E", []string{"cmd", "e"}},
		{"Ctrl+Alt+K", []string{"ctrl", "alt", "k"}},
		{"control+option+g", []string{"ctrl", "alt", "g"}},
		{"Super+Shift+F13", []string{"cmd", "shift", "f13"}},
		{"Meta+Command+T", []string{"cmd", "cmd", "t"}},
		{" Ctrl + + G ", []string{"ctrl", "g"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseHotkey(tt.combo), tt.combo)
	}
}
