package nge

import (
	"strings"
)

type Key int

const (
	KeyA Key = iota
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeySpace
	KeyEnter
	KeyEscape
	KeyTab
	KeyBackspace
	KeyRight
	KeyLeft
	KeyDown
	KeyUp
	KeyShift
	KeyControl
	KeyLeftAlt
	MouseButtonLeft
	MouseButtonRight
	MouseButtonMiddle

	keyCount
)

var keyNames = map[string]Key{
	"space":       KeySpace,
	"enter":       KeyEnter,
	"return":      KeyEnter,
	"escape":      KeyEscape,
	"tab":         KeyTab,
	"backspace":   KeyBackspace,
	"right":       KeyRight,
	"left":        KeyLeft,
	"down":        KeyDown,
	"up":          KeyUp,
	"lshift":      KeyShift,
	"lcontrol":    KeyControl,
	"lalt":        KeyLeftAlt,
	"mouseleft":   MouseButtonLeft,
	"mouseright":  MouseButtonRight,
	"mousemiddle": MouseButtonMiddle,
}

func init() {
	for i := 0; i < 26; i++ {
		keyNames[string(rune('a'+i))] = KeyA + Key(i)
	}
	for i := 0; i < 10; i++ {
		keyNames[string(rune('0'+i))] = Key0 + Key(i)
	}
}

// KeyByName resolves a key name from a bindings file, case-insensitively.
func KeyByName(name string) (Key, bool) {
	k, ok := keyNames[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

type resolvedAxis struct {
	pos []Key
	neg []Key
}

type Input struct {
	Pressed      [keyCount]bool
	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool

	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
	MouseCaptured            bool

	axes          map[string]resolvedAxis
	actions       map[string][]Key
	cursorKnown   bool
	appliedCursor bool
	cursorApplied bool
}

// Axis returns the value of a bound logical axis in [-1, 1]. ok is false
// when the bindings don't name the axis at all.
func (in *Input) Axis(name string) (float32, bool) {
	axis, ok := in.axes[name]
	if !ok {
		return 0, false
	}
	var v float32
	for _, k := range axis.pos {
		if in.Pressed[k] {
			v += 1
			break
		}
	}
	for _, k := range axis.neg {
		if in.Pressed[k] {
			v -= 1
			break
		}
	}
	return v, true
}

func (in *Input) ActionDown(name string) bool {
	for _, k := range in.actions[name] {
		if in.Pressed[k] {
			return true
		}
	}
	return false
}

func (in *Input) ActionJustPressed(name string) bool {
	for _, k := range in.actions[name] {
		if in.JustPressed[k] {
			return true
		}
	}
	return false
}

// InputModule turns raw window state into key states, mouse deltas and
// logical axes/actions from the bindings.
type InputModule struct {
	Bindings InputBindings
	// ReleaseCursor starts with the cursor free instead of captured.
	ReleaseCursor bool
}

func NewInputModule(bindings InputBindings) InputModule {
	return InputModule{Bindings: bindings}
}

func (mod InputModule) Install(app *App, cmd *Commands) {
	input := &Input{
		MouseCaptured: !mod.ReleaseCursor,
		axes:          make(map[string]resolvedAxis, len(mod.Bindings.Axes)),
		actions:       make(map[string][]Key, len(mod.Bindings.Actions)),
	}
	for name, axis := range mod.Bindings.Axes {
		input.axes[name] = resolvedAxis{pos: resolveKeys(axis.Pos), neg: resolveKeys(axis.Neg)}
	}
	for name, keys := range mod.Bindings.Actions {
		input.actions[name] = resolveKeys(keys)
	}

	cmd.AddResources(input)
	app.UseSystem(
		System(inputSystem).
			Named("input_system").
			InStage(PreUpdate).
			After("window_events"),
	)
}

func resolveKeys(names []string) []Key {
	keys := make([]Key, 0, len(names))
	for _, n := range names {
		if k, ok := KeyByName(n); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func inputSystem(s *WindowState, input *Input) {
	win := s.window

	// Update Keyboard and mouse buttons
	for key := Key(0); key < keyCount; key++ {
		down := win.KeyDown(key)

		input.JustPressed[key] = down && !input.Pressed[key]
		input.JustReleased[key] = !down && input.Pressed[key]
		input.Pressed[key] = down
	}

	if input.ActionJustPressed("toggle_cursor") {
		input.MouseCaptured = !input.MouseCaptured
	}

	// Update Mouse
	mx, my := win.CursorPos()
	if input.MouseCaptured && s.focused && input.cursorKnown {
		input.MouseDeltaX = mx - input.MouseX
		input.MouseDeltaY = my - input.MouseY
	} else {
		input.MouseDeltaX = 0
		input.MouseDeltaY = 0
	}
	input.MouseX = mx
	input.MouseY = my
	input.cursorKnown = true

	if !input.cursorApplied || input.appliedCursor != input.MouseCaptured {
		win.SetCursorCaptured(input.MouseCaptured)
		input.appliedCursor = input.MouseCaptured
		input.cursorApplied = true
	}
}
