//go:build cgo

package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"

	"github.com/naturalgravity/nge"
	"github.com/naturalgravity/nge/construct"
	"github.com/naturalgravity/nge/core/headlamp"
	"github.com/naturalgravity/nge/game"
)

const (
	lookSensitivity = 0.1
	flySpeed        = 8.5
)

func init() {
	// glfw and the GPU surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	os.Exit(run())
}

// run wires the application. Settings come from config/ under the
// application root and from NGE_DEBUG, NGE_LOG_LEVEL, NGE_HEADLESS and
// NGE_MAX_FRAMES.
func run() int {
	logger := nge.NewDefaultLogger("nge", os.Getenv("NGE_DEBUG") == "1")
	if s := os.Getenv("NGE_LOG_LEVEL"); s != "" {
		if level, ok := nge.ParseLevel(s); ok {
			logger.SetLevel(level)
		} else {
			logger.Warnf("Ignoring unknown NGE_LOG_LEVEL %q", s)
		}
	}

	root, err := nge.ApplicationRootDir()
	if err != nil {
		logger.Errorf("Resolving application root: %v", err)
		return 1
	}
	logger.Debugf("Application root %s", root)

	display, err := nge.LoadDisplayConfig(filepath.Join(root, "config", "display.yaml"))
	if err != nil {
		logger.Errorf("%v", err)
		return 1
	}
	bindings, err := nge.LoadInputBindings(filepath.Join(root, "config", "input.yaml"))
	if err != nil {
		logger.Errorf("%v", err)
		return 1
	}
	assetsDir := filepath.Join(root, "assets")
	scene, err := construct.LoadSceneDef(filepath.Join(assetsDir, "scene.yaml"))
	if err != nil {
		logger.Errorf("%v", err)
		return 1
	}

	assets := nge.NewAssetServer(assetsDir)

	var (
		window   nge.Window
		renderer nge.Renderer
	)
	if os.Getenv("NGE_HEADLESS") == "1" {
		window = nge.NewHeadlessWindow(display.Width, display.Height)
		renderer = &nge.NopRenderer{}
	} else {
		glfwWindow, err := nge.OpenGlfwWindow(display)
		if err != nil {
			logger.Errorf("Opening window: %v", err)
			return 1
		}
		wgpuRenderer, err := nge.NewWgpuRenderer(glfwWindow, assets, display)
		if err != nil {
			glfwWindow.Destroy()
			logger.Errorf("Creating renderer: %v", err)
			return 1
		}
		window, renderer = glfwWindow, wgpuRenderer
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := nge.NewAppBuilder().
		UseModule(
			nge.LoggingModule{Logger: logger},
			nge.TimeModule{},
			nge.PlatformWindowModule{Window: window, Title: display.Title},
			nge.AssetServerModule{Server: assets},
			nge.NewFlyControlModule("move_x", "move_y", "move_z").
				WithSensitivity(lookSensitivity, lookSensitivity).
				WithSpeed(flySpeed),
			nge.TransformModule{After: []string{"fly_movement"}},
			nge.NewInputModule(bindings),
			nge.CameraModule{},
			nge.UiModule{},
			headlamp.Module{},
			nge.RenderingModule{Renderer: renderer, ClearColor: display.ClearColor},
		).
		Build()

	if n, err := strconv.ParseUint(os.Getenv("NGE_MAX_FRAMES"), 10, 64); err == nil && n > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		app.UseSystem(
			nge.System(func(t *nge.Time) {
				if t.Frame >= n {
					cancel()
				}
			}).
				Named("frame_limit").
				InStage(nge.Finale),
		)
	}

	if err := app.RunContext(ctx, game.NewGameState(scene)); err != nil {
		logger.Errorf("%v", err)
		return 1
	}
	logger.Infof("Bye")
	return 0
}
