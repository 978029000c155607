//go:build cgo

package nge

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// GlfwWindow is the desktop Window backed by GLFW. It must be created and
// used from the main goroutine.
type GlfwWindow struct {
	win *glfw.Window
}

func OpenGlfwWindow(cfg DisplayConfig) (*GlfwWindow, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("%w: glfw init: %v", ErrNoWindow, err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Important: tell GLFW we don't want OpenGL
	glfw.WindowHint(glfw.Resizable, glfw.True)

	width, height := cfg.Width, cfg.Height
	var monitor *glfw.Monitor
	if cfg.Fullscreen {
		monitors := glfw.GetMonitors()
		if cfg.Monitor >= len(monitors) {
			glfw.Terminate()
			return nil, fmt.Errorf("%w: monitor %d requested, %d connected", ErrConfig, cfg.Monitor, len(monitors))
		}
		monitor = monitors[cfg.Monitor]
		mode := monitor.GetVideoMode()
		width, height = mode.Width, mode.Height
	}

	win, err := glfw.CreateWindow(width, height, cfg.Title, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("%w: creating window: %v", ErrNoWindow, err)
	}

	return &GlfwWindow{win: win}, nil
}

// Handle exposes the GLFW window for surface creation.
func (w *GlfwWindow) Handle() *glfw.Window {
	return w.win
}

func (w *GlfwWindow) PollEvents() {
	glfw.PollEvents()
}

func (w *GlfwWindow) ShouldClose() bool {
	return w.win.ShouldClose()
}

func (w *GlfwWindow) KeyDown(key Key) bool {
	switch key {
	case MouseButtonLeft:
		return w.win.GetMouseButton(glfw.MouseButtonLeft) == glfw.Press
	case MouseButtonRight:
		return w.win.GetMouseButton(glfw.MouseButtonRight) == glfw.Press
	case MouseButtonMiddle:
		return w.win.GetMouseButton(glfw.MouseButtonMiddle) == glfw.Press
	}
	glfwKey, ok := keyToGlfw[key]
	if !ok {
		return false
	}
	return w.win.GetKey(glfwKey) == glfw.Press
}

func (w *GlfwWindow) CursorPos() (float64, float64) {
	return w.win.GetCursorPos()
}

func (w *GlfwWindow) Size() (int, int) {
	return w.win.GetSize()
}

func (w *GlfwWindow) Focused() bool {
	return w.win.GetAttrib(glfw.Focused) == glfw.True
}

func (w *GlfwWindow) SetCursorCaptured(captured bool) {
	if captured {
		w.win.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		w.win.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
}

func (w *GlfwWindow) Destroy() {
	w.win.Destroy()
	glfw.Terminate()
}

var keyToGlfw = map[Key]glfw.Key{
	KeyA:         glfw.KeyA,
	KeyB:         glfw.KeyB,
	KeyC:         glfw.KeyC,
	KeyD:         glfw.KeyD,
	KeyE:         glfw.KeyE,
	KeyF:         glfw.KeyF,
	KeyG:         glfw.KeyG,
	KeyH:         glfw.KeyH,
	KeyI:         glfw.KeyI,
	KeyJ:         glfw.KeyJ,
	KeyK:         glfw.KeyK,
	KeyL:         glfw.KeyL,
	KeyM:         glfw.KeyM,
	KeyN:         glfw.KeyN,
	KeyO:         glfw.KeyO,
	KeyP:         glfw.KeyP,
	KeyQ:         glfw.KeyQ,
	KeyR:         glfw.KeyR,
	KeyS:         glfw.KeyS,
	KeyT:         glfw.KeyT,
	KeyU:         glfw.KeyU,
	KeyV:         glfw.KeyV,
	KeyW:         glfw.KeyW,
	KeyX:         glfw.KeyX,
	KeyY:         glfw.KeyY,
	KeyZ:         glfw.KeyZ,
	Key0:         glfw.Key0,
	Key1:         glfw.Key1,
	Key2:         glfw.Key2,
	Key3:         glfw.Key3,
	Key4:         glfw.Key4,
	Key5:         glfw.Key5,
	Key6:         glfw.Key6,
	Key7:         glfw.Key7,
	Key8:         glfw.Key8,
	Key9:         glfw.Key9,
	KeySpace:     glfw.KeySpace,
	KeyEnter:     glfw.KeyEnter,
	KeyEscape:    glfw.KeyEscape,
	KeyTab:       glfw.KeyTab,
	KeyBackspace: glfw.KeyBackspace,
	KeyRight:     glfw.KeyRight,
	KeyLeft:      glfw.KeyLeft,
	KeyDown:      glfw.KeyDown,
	KeyUp:        glfw.KeyUp,
	KeyShift:     glfw.KeyLeftShift,
	KeyControl:   glfw.KeyLeftControl,
	KeyLeftAlt:   glfw.KeyLeftAlt,
}
