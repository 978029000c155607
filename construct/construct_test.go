package construct

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naturalgravity/nge"
	"github.com/naturalgravity/nge/core/headlamp"
)

var shippedAssets = filepath.Join("..", "assets")

func has[T any](cmd *nge.Commands, eid nge.EntityId) bool {
	_, ok := nge.GetComponent[T](cmd, eid)
	return ok
}

func TestBuild_DefaultScene(t *testing.T) {
	app := nge.NewApp()
	cmd := app.Commands()
	assets := nge.NewAssetServer(shippedAssets)
	def := DefaultScene()

	scene, err := Build(cmd, assets, def)
	require.NoError(t, err)

	wantEntities := 2 + len(def.Geometry) + 1 + len(def.Labels)
	assert.Len(t, scene.Entities, wantEntities)
	assert.Equal(t, wantEntities, cmd.EntityCount(), "Build flushes what it spawns")
	assert.Len(t, scene.Assets, len(def.Geometry)+3, "one mesh per shape plus each distinct material")
	assert.Equal(t, len(scene.Assets), assets.Count())

	assert.True(t, has[nge.ActiveCamera](cmd, scene.Camera))
	assert.True(t, has[nge.FlyControl](cmd, scene.Camera))
	assert.True(t, has[nge.AutoFov](cmd, scene.Camera))
	assert.False(t, has[headlamp.Headlamp](cmd, scene.Camera), "the lamp is its own entity")

	assert.True(t, has[headlamp.Headlamp](cmd, scene.Headlamp))
	light, ok := nge.GetComponent[nge.LightComponent](cmd, scene.Headlamp)
	require.True(t, ok)
	assert.Equal(t, nge.LightTypeSpot, light.Type)

	camWorld, _ := nge.GetComponent[nge.GlobalTransform](cmd, scene.Camera)
	lampWorld, _ := nge.GetComponent[nge.GlobalTransform](cmd, scene.Headlamp)
	assert.Equal(t, *camWorld, *lampWorld, "the headlamp starts on the camera")
	assert.Equal(t, mgl32.Vec3{0, 1.7, 6}, camWorld.Position)

	cam, _ := nge.GetComponent[nge.Camera](cmd, scene.Camera)
	assert.InDelta(t, mgl32.DegToRad(60), cam.FovY, 1e-6)
	assert.InDelta(t, 4.0/3.0, cam.Aspect, 1e-6)

	meshes := 0
	nge.MakeQuery2[nge.MeshComponent, nge.GlobalTransform](cmd).Map(func(eid nge.EntityId, mesh *nge.MeshComponent, _ *nge.GlobalTransform) bool {
		meshes++
		_, ok := assets.Mesh(mesh.Mesh)
		assert.True(t, ok)
		_, ok = assets.Material(mesh.Material)
		assert.True(t, ok)
		return true
	})
	assert.Equal(t, len(def.Geometry), meshes)

	Teardown(cmd, assets, scene)
	assert.Zero(t, cmd.EntityCount())
	assert.Zero(t, assets.Count())
	assert.Empty(t, scene.Entities)
}

func TestBuild_AspectFromWindow(t *testing.T) {
	app := nge.NewAppBuilder().
		UseModule(nge.PlatformWindowModule{Window: nge.NewHeadlessWindow(1600, 600)}).
		Build()
	cmd := app.Commands()

	scene, err := Build(cmd, nge.NewAssetServer(shippedAssets), DefaultScene())
	require.NoError(t, err)
	cam, _ := nge.GetComponent[nge.Camera](cmd, scene.Camera)
	assert.InDelta(t, 8.0/3.0, cam.Aspect, 1e-6)
}

func TestBuild_CameraOrientation(t *testing.T) {
	app := nge.NewApp()
	cmd := app.Commands()
	def := SceneDef{Camera: CameraDef{Yaw: 90, Pitch: -30, FovY: 70, Near: 0.1, Far: 10}}

	scene, err := Build(cmd, nge.NewAssetServer(t.TempDir()), def)
	require.NoError(t, err)

	world, _ := nge.GetComponent[nge.GlobalTransform](cmd, scene.Camera)
	forward := world.Forward()
	assert.InDelta(t, -0.5, forward.Y(), 1e-6)
	assert.Less(t, forward.X(), float32(0))

	fly, _ := nge.GetComponent[nge.FlyControl](cmd, scene.Camera)
	assert.Equal(t, nge.FlyControl{Yaw: 90, Pitch: -30}, *fly)
}

func TestBuild_RefusesSecondActiveCamera(t *testing.T) {
	app := nge.NewApp()
	cmd := app.Commands()
	assets := nge.NewAssetServer(shippedAssets)

	_, err := Build(cmd, assets, DefaultScene())
	require.NoError(t, err)
	entities, loaded := cmd.EntityCount(), assets.Count()

	_, err = Build(cmd, assets, DefaultScene())
	assert.ErrorIs(t, err, ErrActiveCameraExists)
	assert.Equal(t, entities, cmd.EntityCount())
	assert.Equal(t, loaded, assets.Count())
}

func TestBuild_MissingMaterialLeavesWorldUntouched(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "materials"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "materials", "floor.yaml"), []byte("name: floor\n"), 0o644))

	app := nge.NewApp()
	cmd := app.Commands()
	assets := nge.NewAssetServer(root)

	scene, err := Build(cmd, assets, DefaultScene())
	assert.Nil(t, scene)
	assert.ErrorIs(t, err, nge.ErrAsset)
	assert.Contains(t, err.Error(), "stone.yaml")
	assert.Zero(t, cmd.EntityCount())
	assert.Zero(t, assets.Count(), "assets loaded before the failure are released")
}

func TestBuild_UnknownGeometry(t *testing.T) {
	app := nge.NewApp()
	assets := nge.NewAssetServer(t.TempDir())
	def := SceneDef{Geometry: []GeometryDef{{Kind: "torus", Size: 1}}}

	_, err := Build(app.Commands(), assets, def)
	assert.ErrorIs(t, err, nge.ErrAsset)
	assert.Zero(t, assets.Count())
}

func TestTeardown_Nil(t *testing.T) {
	app := nge.NewApp()
	assert.NotPanics(t, func() { Teardown(app.Commands(), nge.NewAssetServer(""), nil) })
}

func TestLoadSceneDef(t *testing.T) {
	dir := t.TempDir()

	def, err := LoadSceneDef(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultScene(), def)

	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
camera:
  position: [1, 2, 3]
  fov_y: 75
  near: 0.1
  far: 50
geometry:
  - kind: cube
    size: 3
    material: materials/stone.yaml
`), 0o644))
	def, err = LoadSceneDef(path)
	require.NoError(t, err)
	assert.Equal(t, [3]float32{1, 2, 3}, def.Camera.Position)
	assert.Equal(t, float32(75), def.Camera.FovY)
	require.Len(t, def.Geometry, 1)
	assert.Equal(t, GeometryCube, def.Geometry[0].Kind)
	assert.Equal(t, DefaultScene().Headlamp, def.Headlamp, "unset sections keep their defaults")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("camera: [nope\n"), 0o644))
	_, err = LoadSceneDef(bad)
	assert.ErrorIs(t, err, nge.ErrConfig)
}
