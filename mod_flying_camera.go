package nge

import (
	"github.com/go-gl/mathgl/mgl32"
)

const maxPitchDegrees = 89.0

// FlyControl marks an entity driven by the fly camera systems. Yaw and
// Pitch are in degrees and define the entity's rotation once the mouse moves.
type FlyControl struct {
	Yaw   float32
	Pitch float32
}

// FlySettings is the resource both fly systems read.
type FlySettings struct {
	Speed        float32
	SensitivityX float32
	SensitivityY float32
	AxisX        string
	AxisY        string
	AxisZ        string
}

// FlyControlModule moves FlyControl entities along their local axes from
// three logical input axes and turns them with the mouse.
type FlyControlModule struct {
	settings FlySettings
}

func NewFlyControlModule(axisX, axisY, axisZ string) FlyControlModule {
	return FlyControlModule{settings: FlySettings{
		Speed:        1,
		SensitivityX: 1,
		SensitivityY: 1,
		AxisX:        axisX,
		AxisY:        axisY,
		AxisZ:        axisZ,
	}}
}

func (m FlyControlModule) WithSensitivity(x, y float32) FlyControlModule {
	m.settings.SensitivityX = x
	m.settings.SensitivityY = y
	return m
}

func (m FlyControlModule) WithSpeed(speed float32) FlyControlModule {
	m.settings.Speed = speed
	return m
}

func (m FlyControlModule) Settings() FlySettings {
	return m.settings
}

func (m FlyControlModule) Install(app *App, cmd *Commands) {
	settings := m.settings
	cmd.AddResources(&settings)
	app.UseSystem(
		System(FreeRotationSystem).
			Named("free_rotation").
			InStage(Update).
			After("input_system"),
	)
	app.UseSystem(
		System(FlyMovementSystem).
			Named("fly_movement").
			InStage(Update).
			After("input_system", "free_rotation"),
	)
}

func FreeRotationSystem(cmd *Commands, input *Input, settings *FlySettings) {
	dx, dy := float32(input.MouseDeltaX), float32(input.MouseDeltaY)
	if dx == 0 && dy == 0 {
		return
	}

	MakeQuery2[Transform, FlyControl](cmd).Map(func(eid EntityId, tr *Transform, fly *FlyControl) bool {
		fly.Yaw -= dx * settings.SensitivityX
		fly.Pitch -= dy * settings.SensitivityY

		// Clamp pitch
		if fly.Pitch > maxPitchDegrees {
			fly.Pitch = maxPitchDegrees
		}
		if fly.Pitch < -maxPitchDegrees {
			fly.Pitch = -maxPitchDegrees
		}

		tr.Rotation = FlyRotation(fly.Yaw, fly.Pitch)
		return true
	})
}

// FlyRotation is yaw about world Y followed by pitch about local X.
func FlyRotation(yawDeg, pitchDeg float32) mgl32.Quat {
	yaw := mgl32.QuatRotate(mgl32.DegToRad(yawDeg), mgl32.Vec3{0, 1, 0})
	pitch := mgl32.QuatRotate(mgl32.DegToRad(pitchDeg), mgl32.Vec3{1, 0, 0})
	return yaw.Mul(pitch).Normalize()
}

func FlyMovementSystem(cmd *Commands, input *Input, settings *FlySettings, time *Time) {
	dt := time.DeltaSeconds()
	if dt <= 0 {
		return
	}

	// An unbound axis contributes nothing; the other axes still work.
	x, _ := input.Axis(settings.AxisX)
	y, _ := input.Axis(settings.AxisY)
	z, _ := input.Axis(settings.AxisZ)

	dir := mgl32.Vec3{x, y, z}
	if dir.Len() < 1e-6 {
		return
	}
	step := dir.Normalize().Mul(settings.Speed * dt)

	MakeQuery2[Transform, FlyControl](cmd).Map(func(eid EntityId, tr *Transform, fly *FlyControl) bool {
		tr.Position = tr.Position.Add(normalizedRotation(tr.Rotation).Rotate(step))
		return true
	})
}
