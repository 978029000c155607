package nge

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlyApp(t *testing.T, win *HeadlessWindow, bindings InputBindings) (*App, EntityId) {
	t.Helper()
	app := newTestApp(t, win, bindings,
		NewFlyControlModule("move_x", "move_y", "move_z").
			WithSensitivity(0.1, 0.1).
			WithSpeed(8.5),
		TransformModule{After: []string{"fly_movement"}},
	)
	cmd := app.Commands()
	eid := cmd.AddEntity(
		NewTransform(mgl32.Vec3{}, mgl32.QuatIdent()),
		GlobalTransform{},
		FlyControl{},
	)
	cmd.Flush()
	return app, eid
}

func transformOf(t *testing.T, app *App, eid EntityId) Transform {
	t.Helper()
	tr, ok := GetComponent[Transform](app.Commands(), eid)
	require.True(t, ok)
	return *tr
}

func TestFlyControlModule_Defaults(t *testing.T) {
	s := NewFlyControlModule("x", "y", "z").Settings()
	assert.Equal(t, float32(1), s.Speed)
	assert.Equal(t, float32(1), s.SensitivityX)
	assert.Equal(t, "z", s.AxisZ)

	s = NewFlyControlModule("x", "y", "z").WithSpeed(3).WithSensitivity(0.5, 0.25).Settings()
	assert.Equal(t, float32(3), s.Speed)
	assert.Equal(t, float32(0.25), s.SensitivityY)
}

func TestFlyMovement_OneSecondStrafe(t *testing.T) {
	win := NewHeadlessWindow(800, 600)
	app, eid := newFlyApp(t, win, testBindings())

	win.Press(KeyD)
	step(t, app, 60)

	pos := transformOf(t, app, eid).Position
	assert.InDelta(t, 8.5, pos.X(), 1e-3)
	assert.InDelta(t, 0, pos.Y(), 1e-6)
	assert.InDelta(t, 0, pos.Z(), 1e-6)

	world, _ := GetComponent[GlobalTransform](app.Commands(), eid)
	assert.Equal(t, pos, world.Position, "transform_system runs after fly_movement")
}

func TestFlyMovement_DiagonalIsNormalized(t *testing.T) {
	win := NewHeadlessWindow(800, 600)
	app, eid := newFlyApp(t, win, testBindings())

	win.Press(KeyD, KeyW)
	step(t, app, 60)

	pos := transformOf(t, app, eid).Position
	assert.InDelta(t, 8.5, pos.Len(), 1e-3)
	assert.InDelta(t, 8.5/math.Sqrt2, pos.X(), 1e-3)
	assert.InDelta(t, -8.5/math.Sqrt2, pos.Z(), 1e-3)
}

func TestFlyMovement_FollowsOrientation(t *testing.T) {
	win := NewHeadlessWindow(800, 600)
	app, eid := newFlyApp(t, win, testBindings())

	tr, _ := GetComponent[Transform](app.Commands(), eid)
	tr.Rotation = FlyRotation(90, 0)

	// Forward (-Z) after a quarter turn left points down -X.
	win.Press(KeyW)
	step(t, app, 60)

	pos := transformOf(t, app, eid).Position
	assert.InDelta(t, -8.5, pos.X(), 1e-3)
	assert.InDelta(t, 0, pos.Z(), 1e-3)
}

func TestFlyMovement_UnboundAxisIsIgnored(t *testing.T) {
	bindings := testBindings()
	delete(bindings.Axes, "move_z")

	win := NewHeadlessWindow(800, 600)
	app, eid := newFlyApp(t, win, bindings)

	win.Press(KeyW, KeyD)
	step(t, app, 30)

	pos := transformOf(t, app, eid).Position
	assert.InDelta(t, 8.5/2, pos.X(), 1e-3)
	assert.Zero(t, pos.Z())
}

func TestFreeRotation(t *testing.T) {
	win := NewHeadlessWindow(800, 600)
	app, eid := newFlyApp(t, win, testBindings())
	step(t, app, 1)

	win.MoveCursor(100, 0)
	step(t, app, 1)

	fly, ok := GetComponent[FlyControl](app.Commands(), eid)
	require.True(t, ok)
	assert.InDelta(t, -10, fly.Yaw, 1e-5)
	assert.Zero(t, fly.Pitch)

	want := FlyRotation(-10, 0)
	got := transformOf(t, app, eid).Rotation
	assert.True(t, got.ApproxEqualThreshold(want, 1e-6), "rotation %v, want %v", got, want)

	// Looking far up clamps short of the pole.
	win.MoveCursor(0, -5000)
	step(t, app, 1)
	assert.Equal(t, float32(maxPitchDegrees), fly.Pitch)

	win.MoveCursor(0, 20000)
	step(t, app, 1)
	assert.Equal(t, float32(-maxPitchDegrees), fly.Pitch)
}

func TestFlyRotation(t *testing.T) {
	assert.True(t, FlyRotation(0, 0).ApproxEqual(mgl32.QuatIdent()))

	forward := FlyRotation(0, 45).Rotate(mgl32.Vec3{0, 0, -1})
	assert.InDelta(t, math.Sqrt2/2, forward.Y(), 1e-6, "positive pitch looks up")

	forward = FlyRotation(90, 30).Rotate(mgl32.Vec3{0, 0, -1})
	assert.InDelta(t, 0.5, forward.Y(), 1e-6, "pitch is applied about the yawed axis")
	assert.InDelta(t, -math.Sqrt(3)/2, forward.X(), 1e-6)
}
