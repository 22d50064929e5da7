package hotkey

import xhotkey "golang.design/x/hotkey"

var modifierByName = map[string]xhotkey.Modifier{
	"ctrl":  xhotkey.ModCtrl,
	"alt":   xhotkey.ModOption,
	"shift": xhotkey.ModShift,
	"cmd":   xhotkey.ModCmd,
}
