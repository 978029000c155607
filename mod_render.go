package nge

import (
	"reflect"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Renderer draws one extracted frame plus the UI overlay.
type Renderer interface {
	Render(frame *RenderFrame, canvas *UiCanvas) error
	Resize(width, height int)
	Release()
}

type RenderLight struct {
	Type      LightType
	Color     [3]float32
	Intensity float32
	Range     float32
	ConeAngle float32
	Position  mgl32.Vec3
	Direction mgl32.Vec3
}

type DrawItem struct {
	Entity   EntityId
	Mesh     AssetId
	Material AssetId
	Model    mgl32.Mat4
}

// RenderFrame is the renderer-facing snapshot of the world, rebuilt by
// render_extract every tick.
type RenderFrame struct {
	Frame      uint64
	ClearColor [4]float32

	HasCamera      bool
	View           mgl32.Mat4
	Projection     mgl32.Mat4
	CameraPosition mgl32.Vec3

	Ambient [3]float32
	Lights  []RenderLight
	Draws   []DrawItem
}

type renderState struct {
	renderer      Renderer
	width, height int
	failing       bool
}

// RenderingModule extracts the world into a RenderFrame and hands it to
// Renderer. A nil Renderer renders nothing.
type RenderingModule struct {
	Renderer   Renderer
	ClearColor [4]float32
}

func (mod RenderingModule) Install(app *App, cmd *Commands) {
	renderer := mod.Renderer
	if renderer == nil {
		renderer = &NopRenderer{}
	}
	cmd.AddResources(
		&RenderFrame{ClearColor: mod.ClearColor},
		&renderState{renderer: renderer},
		&Profiler{},
	)
	if !app.hasResource(reflect.TypeOf(UiCanvas{})) {
		cmd.AddResources(&UiCanvas{})
	}

	app.UseSystem(
		System(renderExtractSystem).
			Named("render_extract").
			InStage(PreRender),
	)
	app.UseSystem(
		System(renderSystem).
			Named("render").
			InStage(Render).
			After("render_extract"),
	)
	app.OnShutdown("renderer", renderer.Release)
}

func renderExtractSystem(cmd *Commands, frame *RenderFrame, profiler *Profiler) {
	start := time.Now()
	defer func() { profiler.ExtractTime += time.Since(start) }()

	frame.Frame++
	frame.HasCamera = false
	frame.Lights = frame.Lights[:0]
	frame.Draws = frame.Draws[:0]
	frame.Ambient = [3]float32{}

	// First active camera in iteration order, same as the headlamp.
	MakeQuery3[ActiveCamera, Camera, GlobalTransform](cmd).Map(func(eid EntityId, _ *ActiveCamera, cam *Camera, world *GlobalTransform) bool {
		frame.HasCamera = true
		frame.View = ViewMatrix(*world)
		frame.Projection = cam.Projection()
		frame.CameraPosition = world.Position
		return false
	})

	MakeQuery2[LightComponent, GlobalTransform](cmd).Map(func(eid EntityId, light *LightComponent, world *GlobalTransform) bool {
		if light.Type == LightTypeAmbient {
			for i := range frame.Ambient {
				frame.Ambient[i] += light.Color[i] * light.Intensity
			}
			return true
		}
		frame.Lights = append(frame.Lights, RenderLight{
			Type:      light.Type,
			Color:     light.Color,
			Intensity: light.Intensity,
			Range:     light.Range,
			ConeAngle: light.ConeAngle,
			Position:  world.Position,
			Direction: world.Forward(),
		})
		return true
	})

	MakeQuery1[AmbientLight](cmd).Map(func(eid EntityId, ambient *AmbientLight) bool {
		for i := range frame.Ambient {
			frame.Ambient[i] += ambient.Color[i] * ambient.Intensity
		}
		return true
	})

	MakeQuery2[MeshComponent, GlobalTransform](cmd).Map(func(eid EntityId, mesh *MeshComponent, world *GlobalTransform) bool {
		frame.Draws = append(frame.Draws, DrawItem{
			Entity:   eid,
			Mesh:     mesh.Mesh,
			Material: mesh.Material,
			Model:    world.Matrix(),
		})
		return true
	})
}

// ViewMatrix is the inverse of a camera's rigid world transform.
func ViewMatrix(world GlobalTransform) mgl32.Mat4 {
	rot := normalizedRotation(world.Rotation).Conjugate().Mat4()
	p := world.Position
	return rot.Mul4(mgl32.Translate3D(-p.X(), -p.Y(), -p.Z()))
}

func renderSystem(cmd *Commands, state *renderState, frame *RenderFrame, canvas *UiCanvas, dims *ScreenDimensions, profiler *Profiler) {
	if dims.Width != state.width || dims.Height != state.height {
		state.width, state.height = dims.Width, dims.Height
		if dims.Width > 0 && dims.Height > 0 {
			state.renderer.Resize(dims.Width, dims.Height)
		}
	}
	if dims.Width <= 0 || dims.Height <= 0 {
		// Minimised
		return
	}

	start := time.Now()
	err := state.renderer.Render(frame, canvas)
	profiler.RenderTime += time.Since(start)
	profiler.Frames++
	profiler.report(cmd.Logger())

	if err != nil {
		if !state.failing {
			cmd.Logger().Errorf("Render failed on frame %d: %v", frame.Frame, err)
		}
		state.failing = true
		return
	}
	if state.failing {
		cmd.Logger().Infof("Rendering recovered on frame %d", frame.Frame)
		state.failing = false
	}
}

// NopRenderer renders nothing and counts what it was given. It backs
// headless runs.
type NopRenderer struct {
	Frames    int
	Width     int
	Height    int
	Released  bool
	LastFrame RenderFrame
	LastUi    uint64
}

func (r *NopRenderer) Render(frame *RenderFrame, canvas *UiCanvas) error {
	r.Frames++
	r.LastFrame = *frame
	r.LastFrame.Lights = append([]RenderLight(nil), frame.Lights...)
	r.LastFrame.Draws = append([]DrawItem(nil), frame.Draws...)
	r.LastUi = canvas.Version
	return nil
}

func (r *NopRenderer) Resize(width, height int) {
	r.Width, r.Height = width, height
}

func (r *NopRenderer) Release() {
	r.Released = true
}
