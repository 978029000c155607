// Package construct builds and tears down the initial world.
package construct

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/naturalgravity/nge"
	"github.com/naturalgravity/nge/core/headlamp"
)

var ErrActiveCameraExists = errors.New("world already has an active camera")

type CameraDef struct {
	Position [3]float32 `yaml:"position"`
	Yaw      float32    `yaml:"yaw"`   // degrees
	Pitch    float32    `yaml:"pitch"` // degrees
	FovY     float32    `yaml:"fov_y"` // degrees
	Near     float32    `yaml:"near"`
	Far      float32    `yaml:"far"`
}

type GeometryKind string

const (
	GeometryPlane  GeometryKind = "plane"
	GeometryCube   GeometryKind = "cube"
	GeometrySphere GeometryKind = "sphere"
)

type GeometryDef struct {
	Kind     GeometryKind `yaml:"kind"`
	Size     float32      `yaml:"size"` // edge, side or radius
	Position [3]float32   `yaml:"position"`
	Yaw      float32      `yaml:"yaw"`
	Material string       `yaml:"material"`
}

type LabelDef struct {
	Text     string     `yaml:"text"`
	Position [2]float32 `yaml:"position"`
	Color    [4]float32 `yaml:"color"`
	Scale    float32    `yaml:"scale"`
}

// SceneDef describes everything Build puts into the world.
type SceneDef struct {
	Camera   CameraDef          `yaml:"camera"`
	Headlamp nge.LightComponent `yaml:"headlamp"`
	Ambient  nge.AmbientLight   `yaml:"ambient"`
	Geometry []GeometryDef      `yaml:"geometry"`
	Labels   []LabelDef         `yaml:"labels"`
}

func DefaultScene() SceneDef {
	return SceneDef{
		Camera: CameraDef{
			Position: [3]float32{0, 1.7, 6},
			FovY:     60,
			Near:     0.1,
			Far:      500,
		},
		Headlamp: nge.LightComponent{
			Type:      nge.LightTypeSpot,
			Color:     [3]float32{1, 1, 1},
			Intensity: 8,
			Range:     40,
			ConeAngle: 45,
		},
		// Dim enough that the headlamp does the lighting.
		Ambient: nge.AmbientLight{
			Color:     [3]float32{0.6, 0.7, 1},
			Intensity: 0.02,
		},
		Geometry: []GeometryDef{
			{Kind: GeometryPlane, Size: 60, Material: "materials/floor.yaml"},
			{Kind: GeometryCube, Size: 1, Position: [3]float32{-2, 0.5, 0}, Yaw: 30, Material: "materials/stone.yaml"},
			{Kind: GeometryCube, Size: 2, Position: [3]float32{3, 1, -4}, Material: "materials/stone.yaml"},
			{Kind: GeometrySphere, Size: 0.75, Position: [3]float32{0, 0.75, -2}, Material: "materials/metal.yaml"},
		},
		Labels: []LabelDef{
			{Text: nge.DefaultWindowTitle, Position: [2]float32{10, 10}, Color: [4]float32{1, 1, 1, 1}, Scale: 2},
		},
	}
}

// LoadSceneDef reads a YAML scene over DefaultScene. A missing file yields
// the default scene.
func LoadSceneDef(path string) (SceneDef, error) {
	def := DefaultScene()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("%w: reading scene %s: %v", nge.ErrConfig, path, err)
	}
	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("%w: parsing scene %s: %v", nge.ErrConfig, path, err)
	}
	return def, nil
}

// Scene records what Build created so Teardown can undo exactly that.
type Scene struct {
	Camera   nge.EntityId
	Headlamp nge.EntityId
	Entities []nge.EntityId
	Assets   []nge.AssetId
}

// Build populates the world from def. Assets are loaded before any entity
// is spawned; on failure the ones already loaded are released and the world
// is left untouched. The scene is flushed on return.
func Build(cmd *nge.Commands, assets *nge.AssetServer, def SceneDef) (*Scene, error) {
	if hasActiveCamera(cmd) {
		return nil, ErrActiveCameraExists
	}

	scene := &Scene{}
	meshes, materials, err := loadGeometry(assets, def.Geometry, scene)
	if err != nil {
		for _, id := range scene.Assets {
			assets.Release(id)
		}
		return nil, err
	}

	spawn := func(components ...any) nge.EntityId {
		eid := cmd.AddEntity(components...)
		scene.Entities = append(scene.Entities, eid)
		return eid
	}

	cam := def.Camera
	position := mgl32.Vec3(cam.Position)
	rotation := nge.FlyRotation(cam.Yaw, cam.Pitch)
	fovY := mgl32.DegToRad(cam.FovY)
	aspect := float32(nge.DefaultWindowWidth) / nge.DefaultWindowHeight
	if dims, ok := nge.Resource[nge.ScreenDimensions](cmd); ok && dims.Height > 0 {
		aspect = dims.AspectRatio()
	}

	scene.Camera = spawn(
		nge.NewTransform(position, rotation),
		nge.GlobalTransform{Position: position, Rotation: rotation, Scale: mgl32.Vec3{1, 1, 1}},
		nge.NewPerspectiveCamera(fovY, aspect, cam.Near, cam.Far),
		nge.ActiveCamera{},
		nge.FlyControl{Yaw: cam.Yaw, Pitch: cam.Pitch},
		nge.AutoFov{BaseFovY: fovY},
	)

	// Starts where the camera is; headlamp_system keeps it there.
	scene.Headlamp = spawn(
		nge.NewTransform(position, rotation),
		nge.GlobalTransform{Position: position, Rotation: rotation, Scale: mgl32.Vec3{1, 1, 1}},
		def.Headlamp,
		headlamp.Headlamp{},
	)

	for i, g := range def.Geometry {
		pos := mgl32.Vec3(g.Position)
		rot := mgl32.QuatRotate(mgl32.DegToRad(g.Yaw), mgl32.Vec3{0, 1, 0})
		spawn(
			nge.NewTransform(pos, rot),
			nge.GlobalTransform{Position: pos, Rotation: rot, Scale: mgl32.Vec3{1, 1, 1}},
			nge.MeshComponent{Mesh: meshes[i], Material: materials[g.Material]},
		)
	}

	spawn(def.Ambient)

	for _, label := range def.Labels {
		spawn(nge.UiText{
			Text:     label.Text,
			Position: label.Position,
			Color:    label.Color,
			Scale:    label.Scale,
		})
	}

	cmd.Flush()
	cmd.Logger().Infof("Scene built: %d entities, %d assets", len(scene.Entities), len(scene.Assets))
	return scene, nil
}

func loadGeometry(assets *nge.AssetServer, geometry []GeometryDef, scene *Scene) ([]nge.AssetId, map[string]nge.AssetId, error) {
	meshes := make([]nge.AssetId, len(geometry))
	materials := make(map[string]nge.AssetId)

	for i, g := range geometry {
		var (
			id  nge.AssetId
			err error
		)
		switch g.Kind {
		case GeometryPlane:
			id, err = assets.CreatePlaneMesh(g.Size, g.Size)
		case GeometryCube:
			id, err = assets.CreateCubeMesh(g.Size)
		case GeometrySphere:
			id, err = assets.CreateSphereMesh(g.Size, 32, 16)
		default:
			err = fmt.Errorf("%w: unknown geometry kind %q", nge.ErrAsset, g.Kind)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("geometry %d: %w", i, err)
		}
		scene.Assets = append(scene.Assets, id)
		meshes[i] = id

		if g.Material == "" {
			continue
		}
		if _, ok := materials[g.Material]; ok {
			continue
		}
		mat, err := assets.LoadMaterial(g.Material)
		if err != nil {
			return nil, nil, fmt.Errorf("geometry %d: %w", i, err)
		}
		scene.Assets = append(scene.Assets, mat)
		materials[g.Material] = mat
	}
	return meshes, materials, nil
}

func hasActiveCamera(cmd *nge.Commands) bool {
	found := false
	nge.MakeQuery1[nge.ActiveCamera](cmd).Map(func(eid nge.EntityId, _ *nge.ActiveCamera) bool {
		found = true
		return false
	})
	return found
}

// Teardown removes everything Build created, in reverse order, and flushes.
func Teardown(cmd *nge.Commands, assets *nge.AssetServer, scene *Scene) {
	if scene == nil {
		return
	}
	for i := len(scene.Entities) - 1; i >= 0; i-- {
		cmd.RemoveEntity(scene.Entities[i])
	}
	cmd.Flush()
	for i := len(scene.Assets) - 1; i >= 0; i-- {
		assets.Release(scene.Assets[i])
	}
	cmd.Logger().Infof("Scene torn down: %d entities, %d assets", len(scene.Entities), len(scene.Assets))
	scene.Entities = nil
	scene.Assets = nil
}
