// Package headlamp keeps viewer-attached lights on the active camera.
package headlamp

import (
	"github.com/naturalgravity/nge"
)

// Headlamp marks a light that follows the active camera.
type Headlamp struct{}

// System snaps every Headlamp to the active camera's world transform.
//
// Nothing is written when there is no active camera. With several active
// cameras the first in iteration order wins. Each of those conditions, and
// a camera with no headlamp at all, is logged once per contiguous run of
// frames and re-armed once the world is back to normal.
type System struct {
	missingCamera   bool
	multipleCameras bool
	missingHeadlamp bool
	diagnostics     int
}

// Diagnostics is the number of warnings logged so far.
func (s *System) Diagnostics() int {
	return s.diagnostics
}

func (s *System) Run(cmd *nge.Commands) {
	var camera nge.GlobalTransform
	var cameraId nge.EntityId
	cameras := 0
	nge.MakeQuery2[nge.ActiveCamera, nge.GlobalTransform](cmd).Map(func(eid nge.EntityId, _ *nge.ActiveCamera, world *nge.GlobalTransform) bool {
		if cameras == 0 {
			camera, cameraId = *world, eid
		}
		cameras++
		return true
	})

	if s.latch(cmd, &s.missingCamera, cameras == 0, "Headlamp: no active camera, headlamps left in place") {
		// A camera-less frame ends any run of the other conditions.
		s.multipleCameras, s.missingHeadlamp = false, false
		return
	}
	s.latch(cmd, &s.multipleCameras, cameras > 1, "Headlamp: %d active cameras, following entity %d", cameras, cameraId)

	lamps := 0
	nge.MakeQuery1[Headlamp](cmd).Map(func(eid nge.EntityId, _ *Headlamp) bool {
		lamps++
		return true
	})
	s.latch(cmd, &s.missingHeadlamp, lamps == 0, "Headlamp: active camera %d has no headlamp", cameraId)

	// Lamps lacking either transform don't match and are skipped.
	nge.MakeQuery3[Headlamp, nge.Transform, nge.GlobalTransform](cmd).Map(func(eid nge.EntityId, _ *Headlamp, local *nge.Transform, world *nge.GlobalTransform) bool {
		local.Position = camera.Position
		local.Rotation = camera.Rotation
		world.Position = camera.Position
		world.Rotation = camera.Rotation
		return true
	})
}

// latch logs when cond becomes true and re-arms when it clears. It reports
// cond back to the caller.
func (s *System) latch(cmd *nge.Commands, flag *bool, cond bool, format string, args ...any) bool {
	if !cond {
		*flag = false
		return false
	}
	if !*flag {
		*flag = true
		s.diagnostics++
		cmd.Logger().Warnf(format, args...)
	}
	return true
}

// Module registers headlamp_system after input handling and transform
// propagation, which puts it before render extraction.
type Module struct {
	System *System
	// After adds dependencies on top of input_system and transform_system.
	After []string
}

func (m Module) Install(app *nge.App, cmd *nge.Commands) {
	system := m.System
	if system == nil {
		system = &System{}
	}
	after := append([]string{"input_system", "transform_system"}, m.After...)
	app.UseSystem(
		nge.System(system.Run).
			Named("headlamp_system").
			InStage(nge.PostUpdate).
			After(after...),
	)
}
