package hotkey

import xhotkey "golang.design/x/hotkey"

var modifierByName = map[string]xhotkey.Modifier{
	"ctrl":  xhotkey.ModCtrl,
	"alt":   xhotkey.ModAlt,
	"shift": xhotkey.ModShift,
	"cmd":   xhotkey.ModWin,
}
