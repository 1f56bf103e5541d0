package console

import (
	"unicode"

	"golang.org/x/mobile/event/key"
)

// KeyShortcut describes a keyboard combination that triggers an action.
// Either Rune or Code is set.
type KeyShortcut struct {
	Rune      rune
	Code      key.Code
	Modifiers key.Modifiers
}

// KeyboardShortcuts returns the shortcuts associated with an action.
type KeyboardShortcuts interface {
	KeyboardShortcuts() []KeyShortcut
}

// shortcutList is a helper to easily satisfy the KeyboardShortcuts interface.
type shortcutList []KeyShortcut

func (s shortcutList) KeyboardShortcuts() []KeyShortcut { return []KeyShortcut(s) }

// Binding pairs an action with its keys and a label for help output.
type Binding struct {
	Keys   KeyboardShortcuts
	Action Action
	Help   string
}

// Keymap resolves key presses on either window to actions.
type Keymap struct {
	bindings []Binding
	byKey    map[KeyShortcut]Action
}

// DefaultKeymap returns the presenter's key bindings.
func DefaultKeymap() *Keymap {
	km := &Keymap{byKey: map[KeyShortcut]Action{}}
	register := func(help string, keys KeyboardShortcuts, a Action) {
		km.bindings = append(km.bindings, Binding{Keys: keys, Action: a, Help: help})
		for _, sc := range keys.KeyboardShortcuts() {
			km.byKey[sc] = a
		}
	}

	register("next image", shortcutList{{Code: key.CodeRightArrow}, {Code: key.CodePageDown}, {Rune: ' '}}, Action{Op: OpNext})
	register("previous image", shortcutList{{Code: key.CodeLeftArrow}, {Code: key.CodePageUp}, {Code: key.CodeDeleteBackspace}}, Action{Op: OpPrev})
	register("rotate 90", shortcutList{{Rune: 'r'}}, Action{Op: OpRotate})
	register("toggle magnifier", shortcutList{{Rune: 'z'}}, Action{Op: OpToggleROI})
	register("rotate magnifier", shortcutList{{Rune: 'o'}}, Action{Op: OpRotateROI})
	register("grow magnifier", shortcutList{{Rune: '+'}, {Rune: '='}}, Action{Op: OpMagnifierStep, Value: 10})
	register("shrink magnifier", shortcutList{{Rune: '-'}}, Action{Op: OpMagnifierStep, Value: -10})
	register("brighter", shortcutList{{Rune: ']'}}, Action{Op: OpBrightnessStep, Value: 0.1})
	register("darker", shortcutList{{Rune: '['}}, Action{Op: OpBrightnessStep, Value: -0.1})
	register("reset brightness", shortcutList{{Rune: '0'}}, Action{Op: OpBrightness, Value: 1})
	register("auto contrast", shortcutList{{Rune: 'a'}}, Action{Op: OpAutoContrast})
	register("pen", shortcutList{{Rune: 'p'}}, Action{Op: OpTool, Arg: "pen"})
	register("highlighter", shortcutList{{Rune: 'h'}}, Action{Op: OpTool, Arg: "highlighter"})
	register("laser pointer", shortcutList{{Rune: 'l'}}, Action{Op: OpTool, Arg: "laser"})
	register("drop tool", shortcutList{{Code: key.CodeEscape}}, Action{Op: OpTool, Arg: "none"})
	register("pointer style", shortcutList{{Rune: 'k'}}, Action{Op: OpPointerStyle})
	register("clear strokes", shortcutList{{Rune: 'c'}}, Action{Op: OpClearStrokes})
	register("display mode", shortcutList{{Rune: 'm'}}, Action{Op: OpDisplayMode})
	register("save gallery", shortcutList{{Rune: 's', Modifiers: key.ModControl}}, Action{Op: OpSaveGallery})
	register("export frame", shortcutList{{Rune: 'e', Modifiers: key.ModControl}}, Action{Op: OpExport})
	register("copy frame", shortcutList{{Rune: 'c', Modifiers: key.ModControl}}, Action{Op: OpCopy})
	register("quit", shortcutList{{Rune: 'q'}, {Rune: 'q', Modifiers: key.ModControl}}, Action{Op: OpQuit})
	return km
}

// Lookup returns the action bound to a key press. Runes are matched case
// insensitively and without the shift modifier, codes exactly.
func (km *Keymap) Lookup(e key.Event) (Action, bool) {
	if e.Direction == key.DirRelease {
		return Action{}, false
	}
	if r := e.Rune; r > 0 {
		mods := e.Modifiers &^ key.ModShift
		if r < 0x20 && mods&key.ModControl != 0 {
			r += 'a' - 1
		}
		if a, ok := km.byKey[KeyShortcut{Rune: unicode.ToLower(r), Modifiers: mods}]; ok {
			return a, true
		}
	}
	a, ok := km.byKey[KeyShortcut{Code: e.Code, Modifiers: e.Modifiers}]
	return a, ok
}

// Bindings lists the bindings in registration order.
func (km *Keymap) Bindings() []Binding { return km.bindings }
