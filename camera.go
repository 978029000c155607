package nge

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a perspective projection. FovY is in radians.
type Camera struct {
	FovY   float32
	Aspect float32
	Near   float32
	Far    float32
}

func NewPerspectiveCamera(fovY, aspect, near, far float32) Camera {
	return Camera{FovY: fovY, Aspect: aspect, Near: near, Far: far}
}

func (c Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(c.FovY, c.Aspect, c.Near, c.Far)
}

// FovX derives the horizontal field of view from FovY and the aspect ratio.
func (c Camera) FovX() float32 {
	return float32(2 * math.Atan(math.Tan(float64(c.FovY)/2)*float64(c.Aspect)))
}

// VisibleHeight is the vertical world extent visible at the given depth.
func (c Camera) VisibleHeight(depth float32) float32 {
	return 2 * depth * float32(math.Tan(float64(c.FovY)/2))
}

// ActiveCamera marks the camera whose view gets rendered.
type ActiveCamera struct{}

// AutoFov marks a camera whose projection follows the viewport: the vertical
// field of view stays at BaseFovY and the aspect tracks the window.
type AutoFov struct {
	BaseFovY float32
}

type CameraModule struct{}

func (CameraModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(AutoFovSystem).
			Named("auto_fov").
			InStage(Update),
	)
}

func AutoFovSystem(cmd *Commands, dims *ScreenDimensions) {
	if dims.Width <= 0 || dims.Height <= 0 {
		return
	}
	aspect := dims.AspectRatio()
	MakeQuery2[Camera, AutoFov](cmd).Map(func(eid EntityId, cam *Camera, fov *AutoFov) bool {
		if fov.BaseFovY > 0 {
			cam.FovY = fov.BaseFovY
		}
		cam.Aspect = aspect
		return true
	})
}
