package nge

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestTransformHierarchy(t *testing.T) {
	app := NewApp()
	app.UseModules(TransformModule{})

	cmd := app.Commands()

	// Create Parent
	parent := cmd.AddEntity(
		NewTransform(mgl32.Vec3{10, 0, 0}, mgl32.QuatIdent()),
		GlobalTransform{},
	)

	// Create Child
	child := cmd.AddEntity(
		Parent{Entity: parent},
		NewTransform(mgl32.Vec3{0, 5, 0}, mgl32.QuatIdent()),
		GlobalTransform{},
	)

	// Create Grandchild
	grandchild := cmd.AddEntity(
		Parent{Entity: child},
		NewTransform(mgl32.Vec3{0, 0, 2}, mgl32.QuatIdent()),
		GlobalTransform{},
	)

	app.FlushCommands()

	TransformHierarchySystem(cmd)

	childWorld, ok := GetComponent[GlobalTransform](cmd, child)
	if !ok {
		t.Fatal("child has no GlobalTransform")
	}
	grandchildWorld, _ := GetComponent[GlobalTransform](cmd, grandchild)

	if !childWorld.Position.ApproxEqual(mgl32.Vec3{10, 5, 0}) {
		t.Errorf("Expected child world position (10, 5, 0), got %v", childWorld.Position)
	}
	if !grandchildWorld.Position.ApproxEqual(mgl32.Vec3{10, 5, 2}) {
		t.Errorf("Expected grandchild world position (10, 5, 2), got %v", grandchildWorld.Position)
	}
}

func TestTransformHierarchy_RotationAndScale(t *testing.T) {
	app := NewApp()
	cmd := app.Commands()

	parent := cmd.AddEntity(
		Transform{
			Position: mgl32.Vec3{0, 1, 0},
			Rotation: mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}),
			Scale:    mgl32.Vec3{2, 2, 2},
		},
		GlobalTransform{},
	)
	child := cmd.AddEntity(
		Parent{Entity: parent},
		NewTransform(mgl32.Vec3{1, 0, 0}, mgl32.QuatIdent()),
		GlobalTransform{},
	)
	app.FlushCommands()

	TransformHierarchySystem(cmd)

	world, _ := GetComponent[GlobalTransform](cmd, child)
	// Local +X scaled by 2 then turned a quarter left ends up on -Z.
	assert.InDeltaSlice(t, []float32{0, 1, -2}, world.Position[:], 1e-5, "child position")
	if !world.Scale.ApproxEqual(mgl32.Vec3{2, 2, 2}) {
		t.Errorf("Expected inherited scale 2, got %v", world.Scale)
	}
	forward := world.Forward()
	assert.InDeltaSlice(t, []float32{-1, 0, 0}, forward[:], 1e-5, "child faces -X")
}

func TestTransformHierarchy_ZeroRotationIsIdentity(t *testing.T) {
	app := NewApp()
	cmd := app.Commands()

	eid := cmd.AddEntity(Transform{Position: mgl32.Vec3{1, 2, 3}, Scale: mgl32.Vec3{1, 1, 1}}, GlobalTransform{})
	app.FlushCommands()

	TransformHierarchySystem(cmd)

	world, _ := GetComponent[GlobalTransform](cmd, eid)
	if world.Rotation != mgl32.QuatIdent() {
		t.Errorf("Expected identity rotation, got %v", world.Rotation)
	}
	if world.Position != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("Expected root world position to match local, got %v", world.Position)
	}
}
