package nge

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is an entity's local position/rotation/scale. For roots it is
// also the world transform.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform(position mgl32.Vec3, rotation mgl32.Quat) Transform {
	return Transform{Position: position, Rotation: rotation, Scale: mgl32.Vec3{1, 1, 1}}
}

// GlobalTransform is the world transform computed by transform_system.
type GlobalTransform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// Forward is the world-space viewing direction (-Z in local space).
func (g GlobalTransform) Forward() mgl32.Vec3 {
	return g.Rotation.Rotate(mgl32.Vec3{0, 0, -1})
}

func (g GlobalTransform) Right() mgl32.Vec3 {
	return g.Rotation.Rotate(mgl32.Vec3{1, 0, 0})
}

func (g GlobalTransform) Up() mgl32.Vec3 {
	return g.Rotation.Rotate(mgl32.Vec3{0, 1, 0})
}

// Matrix composes translation * rotation * scale.
func (g GlobalTransform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(g.Position.X(), g.Position.Y(), g.Position.Z()).
		Mul4(g.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(g.Scale.X(), g.Scale.Y(), g.Scale.Z()))
}

type Parent struct {
	Entity EntityId
}

// TransformModule installs transform_system. After lists the systems that
// move transforms and must finish first.
type TransformModule struct {
	After []string
}

func (mod TransformModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(TransformHierarchySystem).
			Named("transform_system").
			InStage(PostUpdate).
			After(mod.After...),
	)
}

const maxHierarchyPasses = 8

func TransformHierarchySystem(cmd *Commands) {
	// Roots: world == local
	MakeQuery2[Transform, GlobalTransform](cmd).Without(Parent{}).Map(func(eid EntityId, local *Transform, world *GlobalTransform) bool {
		world.Position = local.Position
		world.Rotation = normalizedRotation(local.Rotation)
		world.Scale = local.Scale
		return true
	})

	// Children: iterate until nothing changes so deeper hierarchies settle
	// without an explicit topological sort.
PassLoop:
	for pass := 0; pass < maxHierarchyPasses; pass++ {
		changed := false
		MakeQuery3[Transform, Parent, GlobalTransform](cmd).Map(func(eid EntityId, local *Transform, parent *Parent, world *GlobalTransform) bool {
			parentWorld, ok := GetComponent[GlobalTransform](cmd, parent.Entity)
			if !ok {
				return true
			}

			// WorldPos = ParentPos + ParentRot * (ParentScale * LocalPos)
			scaledLocalPos := mgl32.Vec3{
				local.Position.X() * parentWorld.Scale.X(),
				local.Position.Y() * parentWorld.Scale.Y(),
				local.Position.Z() * parentWorld.Scale.Z(),
			}
			newPos := parentWorld.Position.Add(parentWorld.Rotation.Rotate(scaledLocalPos))

			// WorldRot = ParentRot * LocalRot
			newRot := parentWorld.Rotation.Mul(normalizedRotation(local.Rotation)).Normalize()

			// WorldScale = ParentScale * LocalScale
			newScale := mgl32.Vec3{
				parentWorld.Scale.X() * local.Scale.X(),
				parentWorld.Scale.Y() * local.Scale.Y(),
				parentWorld.Scale.Z() * local.Scale.Z(),
			}

			if newPos != world.Position || newRot != world.Rotation || newScale != world.Scale {
				world.Position = newPos
				world.Rotation = newRot
				world.Scale = newScale
				changed = true
			}
			return true
		})
		if !changed {
			break PassLoop
		}
	}
}

// normalizedRotation treats the zero quaternion as identity so a
// zero-valued Transform still yields a usable world transform.
func normalizedRotation(q mgl32.Quat) mgl32.Quat {
	if q.W == 0 && q.V == (mgl32.Vec3{}) {
		return mgl32.QuatIdent()
	}
	return q.Normalize()
}
