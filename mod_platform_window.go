package nge

import (
	"errors"
)

var ErrNoWindow = errors.New("no window available")

// Window is the platform surface the App draws into and reads input from.
type Window interface {
	PollEvents()
	ShouldClose() bool
	KeyDown(key Key) bool
	CursorPos() (x, y float64)
	Size() (width, height int)
	Focused() bool
	SetCursorCaptured(captured bool)
	Destroy()
}

// WindowState is the shared window resource. There is exactly one per App.
type WindowState struct {
	Title string

	window        Window
	closeReported bool
	focused       bool
}

func (s *WindowState) Window() Window {
	return s.window
}

// ScreenDimensions tracks the drawable size. Dirty is set for exactly one
// tick after the size changes.
type ScreenDimensions struct {
	Width  int
	Height int
	Dirty  bool
}

func (d *ScreenDimensions) AspectRatio() float32 {
	if d.Height == 0 {
		return 1
	}
	return float32(d.Width) / float32(d.Height)
}

// PlatformWindowModule publishes an already opened Window as a resource and
// polls it at the start of every tick.
type PlatformWindowModule struct {
	Window Window
	Title  string
}

func (m PlatformWindowModule) Install(app *App, cmd *Commands) {
	if m.Window == nil {
		panic(ErrNoWindow)
	}
	w, h := m.Window.Size()
	cmd.AddResources(
		&WindowState{Title: m.Title, window: m.Window, focused: m.Window.Focused()},
		&ScreenDimensions{Width: w, Height: h, Dirty: true},
	)
	app.UseSystem(
		System(windowEventsSystem).
			Named("window_events").
			InStage(PreUpdate),
	)
	app.OnShutdown("window", m.Window.Destroy)
	app.Logger().Infof("Window '%s' (%dx%d) ready", m.Title, w, h)
}

func windowEventsSystem(state *WindowState, dims *ScreenDimensions, events *EventQueue) {
	win := state.window
	win.PollEvents()

	if win.ShouldClose() {
		if !state.closeReported {
			state.closeReported = true
			events.Push(WindowCloseRequested{})
		}
	} else {
		state.closeReported = false
	}

	if focused := win.Focused(); focused != state.focused {
		state.focused = focused
		events.Push(WindowFocusChanged{Focused: focused})
	}

	w, h := win.Size()
	dims.Dirty = false
	if w != dims.Width || h != dims.Height {
		dims.Width, dims.Height = w, h
		dims.Dirty = true
		events.Push(WindowResized{Width: w, Height: h})
	}
}

// HeadlessWindow is a scripted Window with no platform behind it. Tests and
// headless runs drive it by pressing keys, moving the cursor and resizing.
type HeadlessWindow struct {
	width, height    int
	keys             map[Key]bool
	cursorX, cursorY float64
	closeRequested   bool
	focused          bool
	captured         bool
	destroyed        bool
}

func NewHeadlessWindow(width, height int) *HeadlessWindow {
	return &HeadlessWindow{
		width:   width,
		height:  height,
		keys:    make(map[Key]bool),
		focused: true,
	}
}

func (w *HeadlessWindow) PollEvents()                     {}
func (w *HeadlessWindow) ShouldClose() bool               { return w.closeRequested }
func (w *HeadlessWindow) KeyDown(key Key) bool            { return w.keys[key] }
func (w *HeadlessWindow) CursorPos() (float64, float64)   { return w.cursorX, w.cursorY }
func (w *HeadlessWindow) Size() (int, int)                { return w.width, w.height }
func (w *HeadlessWindow) Focused() bool                   { return w.focused }
func (w *HeadlessWindow) SetCursorCaptured(captured bool) { w.captured = captured }
func (w *HeadlessWindow) Destroy()                        { w.destroyed = true }

func (w *HeadlessWindow) Press(keys ...Key) {
	for _, k := range keys {
		w.keys[k] = true
	}
}

func (w *HeadlessWindow) Release(keys ...Key) {
	for _, k := range keys {
		delete(w.keys, k)
	}
}

func (w *HeadlessWindow) MoveCursor(dx, dy float64) {
	w.cursorX += dx
	w.cursorY += dy
}

func (w *HeadlessWindow) Resize(width, height int) {
	w.width, w.height = width, height
}

func (w *HeadlessWindow) RequestClose()           { w.closeRequested = true }
func (w *HeadlessWindow) SetFocused(focused bool) { w.focused = focused }
func (w *HeadlessWindow) CursorCaptured() bool    { return w.captured }
func (w *HeadlessWindow) Destroyed() bool         { return w.destroyed }
