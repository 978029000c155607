package game

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naturalgravity/nge"
	"github.com/naturalgravity/nge/construct"
	"github.com/naturalgravity/nge/core/headlamp"
)

var (
	shippedAssets = filepath.Join("..", "assets")
	shippedInput  = filepath.Join("..", "config", "input.yaml")
)

type harness struct {
	app      *nge.App
	win      *nge.HeadlessWindow
	assets   *nge.AssetServer
	renderer *nge.NopRenderer
	lamps    *headlamp.System
}

func newHarness(t *testing.T, assetsRoot string) *harness {
	t.Helper()
	bindings, err := nge.LoadInputBindings(shippedInput)
	require.NoError(t, err)

	h := &harness{
		win:      nge.NewHeadlessWindow(nge.DefaultWindowWidth, nge.DefaultWindowHeight),
		assets:   nge.NewAssetServer(assetsRoot),
		renderer: &nge.NopRenderer{},
		lamps:    &headlamp.System{},
	}
	h.app = nge.NewAppBuilder().
		UseModule(
			nge.LoggingModule{Logger: nge.NewNopLogger()},
			nge.TimeModule{FixedDt: time.Second / 60},
			nge.PlatformWindowModule{Window: h.win, Title: nge.DefaultWindowTitle},
			nge.AssetServerModule{Server: h.assets},
			nge.NewFlyControlModule("move_x", "move_y", "move_z").WithSensitivity(0.1, 0.1).WithSpeed(8.5),
			nge.TransformModule{After: []string{"fly_movement"}},
			nge.NewInputModule(bindings),
			nge.CameraModule{},
			nge.UiModule{},
			headlamp.Module{System: h.lamps},
			nge.RenderingModule{Renderer: h.renderer},
		).
		Build()
	return h
}

func TestGameState_Lifecycle(t *testing.T) {
	h := newHarness(t, shippedAssets)
	state := NewGameState(construct.DefaultScene())

	require.NoError(t, h.app.Start(state))
	scene := state.Scene()
	require.NotNil(t, scene)
	assert.Same(t, h.assets, state.Assets, "assets come from the installed server")

	res, ok := nge.Resource[construct.Scene](h.app.Commands())
	require.True(t, ok)
	assert.Same(t, scene, res)

	h.win.Press(nge.KeyW)
	for i := 0; i < 30; i++ {
		require.NoError(t, h.app.Step())
	}
	assert.Equal(t, 30, h.renderer.Frames)
	assert.True(t, h.renderer.LastFrame.HasCamera)
	assert.Len(t, h.renderer.LastFrame.Draws, len(state.Def.Geometry))
	require.Len(t, h.renderer.LastFrame.Lights, 1, "the headlamp is the only direct light")
	assert.Equal(t, h.renderer.LastFrame.CameraPosition, h.renderer.LastFrame.Lights[0].Position)
	assert.Positive(t, h.renderer.LastUi, "the title label was drawn")
	assert.Zero(t, h.lamps.Diagnostics())

	h.win.RequestClose()
	require.NoError(t, h.app.Step())

	assert.False(t, h.app.Running())
	assert.Nil(t, state.Scene())
	assert.Zero(t, h.app.Commands().EntityCount(), "teardown removes every entity")
	assert.Zero(t, h.assets.Count(), "teardown releases every asset")
	_, ok = nge.Resource[construct.Scene](h.app.Commands())
	assert.False(t, ok)

	h.app.Shutdown()
	assert.True(t, h.renderer.Released)
	assert.True(t, h.win.Destroyed())
}

func TestGameState_RunUntilClosed(t *testing.T) {
	h := newHarness(t, shippedAssets)
	frames := 0
	h.app.UseSystem(nge.System(func() {
		frames++
		if frames == 10 {
			h.win.RequestClose()
		}
	}).Named("closer").InStage(nge.Finale))

	err := h.app.RunContext(context.Background(), NewGameState(construct.DefaultScene()))
	require.NoError(t, err)
	assert.Equal(t, 11, frames, "the close request is seen by the next tick's window poll")
	assert.Zero(t, h.assets.Count())
	assert.True(t, h.renderer.Released)
}

func TestGameState_CancelledContext(t *testing.T) {
	h := newHarness(t, shippedAssets)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.app.RunContext(ctx, NewGameState(construct.DefaultScene())))
	assert.Zero(t, h.app.Commands().EntityCount())
	assert.Zero(t, h.renderer.Frames)
}

func TestGameState_BuildFailureIsFatal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "materials"), 0o755))

	h := newHarness(t, root)
	err := h.app.RunContext(context.Background(), NewGameState(construct.DefaultScene()))
	require.Error(t, err)
	assert.ErrorIs(t, err, nge.ErrAsset)
	assert.Contains(t, err.Error(), "building scene")
	assert.Zero(t, h.app.Commands().EntityCount())
	assert.True(t, h.win.Destroyed(), "modules are shut down on the error path")
}

func TestGameState_NeedsAssetServer(t *testing.T) {
	app := nge.NewApp()
	err := NewGameState(construct.DefaultScene()).OnStart(app.Commands())
	assert.ErrorIs(t, err, nge.ErrAsset)
}

func TestGameState_IgnoresOtherEvents(t *testing.T) {
	state := NewGameState(construct.DefaultScene())
	app := nge.NewApp()
	cmd := app.Commands()

	assert.True(t, state.HandleEvent(cmd, nge.WindowResized{Width: 1, Height: 1}).IsNone())
	assert.True(t, state.HandleEvent(cmd, nge.WindowFocusChanged{}).IsNone())
	assert.True(t, state.HandleEvent(cmd, nge.WindowCloseRequested{}).IsQuit())
	assert.True(t, state.Update(cmd).IsNone())
	assert.NotPanics(t, func() { state.OnStop(cmd) })
}
