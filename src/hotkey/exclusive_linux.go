package hotkey

import xhotkey "golang.design/x/hotkey"

// Mod1 is Alt and Mod4 is Super on the common X keymaps.
var modifierByName = map[string]xhotkey.Modifier{
	"ctrl":  xhotkey.ModCtrl,
	"alt":   xhotkey.Mod1,
	"shift": xhotkey.ModShift,
	"cmd":   xhotkey.Mod4,
}
