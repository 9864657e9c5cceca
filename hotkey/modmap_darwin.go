//go:build darwin

package hotkey

import xhk "golang.design/x/hotkey"

func systemChord(c Chord) ([]xhk.Modifier, xhk.Key, error) {
	var mods []xhk.Modifier
	for _, m := range c.Mods {
		switch m {
		case ModCtrl:
			mods = append(mods, xhk.ModCtrl)
		case ModShift:
			mods = append(mods, xhk.ModShift)
		case ModAlt:
			mods = append(mods, xhk.ModOption)
		case ModSuper:
			mods = append(mods, xhk.ModCmd)
		}
	}
	key, err := systemKey(c.Key)
	return mods, key, err
}
