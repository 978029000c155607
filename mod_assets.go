package nge

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"gopkg.in/yaml.v3"
)

type AssetId string

type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

type MeshAsset struct {
	Vertices []Vertex
	Indices  []uint16
}

// MaterialAsset is a PBR-ish material loaded from a YAML descriptor.
type MaterialAsset struct {
	Name      string     `yaml:"name"`
	BaseColor [4]float32 `yaml:"base_color"`
	Metallic  float32    `yaml:"metallic"`
	Roughness float32    `yaml:"roughness"`
	Emissive  [3]float32 `yaml:"emissive"`
	Texture   string     `yaml:"texture"`

	TextureId AssetId `yaml:"-"`
}

type TextureAsset struct {
	Texels []uint8
	Width  uint32
	Height uint32
}

// MeshComponent makes an entity drawable.
type MeshComponent struct {
	Mesh     AssetId
	Material AssetId
}

type AssetServer struct {
	root      string
	meshes    map[AssetId]MeshAsset
	materials map[AssetId]MaterialAsset
	textures  map[AssetId]TextureAsset
}

func NewAssetServer(root string) *AssetServer {
	return &AssetServer{
		root:      root,
		meshes:    make(map[AssetId]MeshAsset),
		materials: make(map[AssetId]MaterialAsset),
		textures:  make(map[AssetId]TextureAsset),
	}
}

func (server *AssetServer) Root() string {
	return server.root
}

// Count is the number of live assets of every kind.
func (server *AssetServer) Count() int {
	return len(server.meshes) + len(server.materials) + len(server.textures)
}

func (server *AssetServer) Mesh(id AssetId) (MeshAsset, bool) {
	m, ok := server.meshes[id]
	return m, ok
}

func (server *AssetServer) Material(id AssetId) (MaterialAsset, bool) {
	m, ok := server.materials[id]
	return m, ok
}

func (server *AssetServer) Texture(id AssetId) (TextureAsset, bool) {
	t, ok := server.textures[id]
	return t, ok
}

func (server *AssetServer) LoadMesh(vertices []Vertex, indices []uint16) (AssetId, error) {
	if len(vertices) == 0 || len(indices) == 0 || len(indices)%3 != 0 {
		return "", fmt.Errorf("%w: mesh needs vertices and whole triangles (%d vertices, %d indices)",
			ErrAsset, len(vertices), len(indices))
	}
	if len(vertices) > math.MaxUint16+1 {
		return "", fmt.Errorf("%w: mesh has %d vertices, more than 16-bit indices can address", ErrAsset, len(vertices))
	}
	for _, i := range indices {
		if int(i) >= len(vertices) {
			return "", fmt.Errorf("%w: index %d out of range for %d vertices", ErrAsset, i, len(vertices))
		}
	}

	id := makeAssetId()
	server.meshes[id] = MeshAsset{Vertices: vertices, Indices: indices}
	return id, nil
}

// CreateCubeMesh builds an axis-aligned cube centred on the origin.
func (server *AssetServer) CreateCubeMesh(size float32) (AssetId, error) {
	if size <= 0 {
		return "", fmt.Errorf("%w: cube size must be positive, got %v", ErrAsset, size)
	}
	h := size / 2
	faces := []struct {
		normal, u, v [3]float32
	}{
		{[3]float32{0, 0, 1}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},
		{[3]float32{0, 0, -1}, [3]float32{-1, 0, 0}, [3]float32{0, 1, 0}},
		{[3]float32{1, 0, 0}, [3]float32{0, 0, -1}, [3]float32{0, 1, 0}},
		{[3]float32{-1, 0, 0}, [3]float32{0, 0, 1}, [3]float32{0, 1, 0}},
		{[3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}},
		{[3]float32{0, -1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},
	}

	vertices := make([]Vertex, 0, 24)
	indices := make([]uint16, 0, 36)
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range faces {
		base := uint16(len(vertices))
		for _, c := range corners {
			var p [3]float32
			for i := 0; i < 3; i++ {
				p[i] = (f.normal[i] + c[0]*f.u[i] + c[1]*f.v[i]) * h
			}
			vertices = append(vertices, Vertex{
				Position: p,
				Normal:   f.normal,
				UV:       [2]float32{(c[0] + 1) / 2, (1 - c[1]) / 2},
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return server.LoadMesh(vertices, indices)
}

// CreatePlaneMesh builds a plane in XZ facing +Y.
func (server *AssetServer) CreatePlaneMesh(width, depth float32) (AssetId, error) {
	if width <= 0 || depth <= 0 {
		return "", fmt.Errorf("%w: plane extent must be positive, got %vx%v", ErrAsset, width, depth)
	}
	hw, hd := width/2, depth/2
	up := [3]float32{0, 1, 0}
	vertices := []Vertex{
		{Position: [3]float32{-hw, 0, hd}, Normal: up, UV: [2]float32{0, 1}},
		{Position: [3]float32{hw, 0, hd}, Normal: up, UV: [2]float32{1, 1}},
		{Position: [3]float32{hw, 0, -hd}, Normal: up, UV: [2]float32{1, 0}},
		{Position: [3]float32{-hw, 0, -hd}, Normal: up, UV: [2]float32{0, 0}},
	}
	return server.LoadMesh(vertices, []uint16{0, 1, 2, 0, 2, 3})
}

// CreateSphereMesh builds a UV sphere.
func (server *AssetServer) CreateSphereMesh(radius float32, segments, rings int) (AssetId, error) {
	if radius <= 0 || segments < 3 || rings < 2 {
		return "", fmt.Errorf("%w: invalid sphere (radius %v, %d segments, %d rings)", ErrAsset, radius, segments, rings)
	}
	if (segments+1)*(rings+1) > math.MaxUint16+1 {
		return "", fmt.Errorf("%w: sphere with %d segments and %d rings is too dense", ErrAsset, segments, rings)
	}

	vertices := make([]Vertex, 0, (segments+1)*(rings+1))
	for r := 0; r <= rings; r++ {
		phi := math.Pi * float64(r) / float64(rings)
		for s := 0; s <= segments; s++ {
			theta := 2 * math.Pi * float64(s) / float64(segments)
			n := [3]float32{
				float32(math.Sin(phi) * math.Cos(theta)),
				float32(math.Cos(phi)),
				float32(math.Sin(phi) * math.Sin(theta)),
			}
			vertices = append(vertices, Vertex{
				Position: [3]float32{n[0] * radius, n[1] * radius, n[2] * radius},
				Normal:   n,
				UV:       [2]float32{float32(s) / float32(segments), float32(r) / float32(rings)},
			})
		}
	}

	indices := make([]uint16, 0, segments*rings*6)
	stride := segments + 1
	for r := 0; r < rings; r++ {
		for s := 0; s < segments; s++ {
			a := uint16(r*stride + s)
			b := uint16((r+1)*stride + s)
			indices = append(indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return server.LoadMesh(vertices, indices)
}

// LoadMaterial reads a YAML material descriptor relative to the asset root.
// A referenced texture is loaded with it and released with it.
func (server *AssetServer) LoadMaterial(rel string) (AssetId, error) {
	path := filepath.Join(server.root, rel)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading material %s: %v", ErrAsset, rel, err)
	}

	material := MaterialAsset{BaseColor: [4]float32{1, 1, 1, 1}, Roughness: 1}
	if err := yaml.Unmarshal(data, &material); err != nil {
		return "", fmt.Errorf("%w: parsing material %s: %v", ErrAsset, rel, err)
	}
	if material.Name == "" {
		material.Name = rel
	}

	if material.Texture != "" {
		texId, err := server.LoadTexture(material.Texture)
		if err != nil {
			return "", fmt.Errorf("material %s: %w", rel, err)
		}
		material.TextureId = texId
	}

	id := makeAssetId()
	server.materials[id] = material
	return id, nil
}

// LoadTexture decodes a PNG relative to the asset root into RGBA texels.
func (server *AssetServer) LoadTexture(rel string) (AssetId, error) {
	file, err := os.Open(filepath.Join(server.root, rel))
	if err != nil {
		return "", fmt.Errorf("%w: opening texture %s: %v", ErrAsset, rel, err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return "", fmt.Errorf("%w: decoding texture %s: %v", ErrAsset, rel, err)
	}
	return server.CreateTexture(img), nil
}

func (server *AssetServer) CreateTexture(img image.Image) AssetId {
	bounds := img.Bounds()

	// Convert to RGBA if needed
	rgbaImg, ok := img.(*image.RGBA)
	if !ok || bounds.Min != (image.Point{}) {
		rgbaImg = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgbaImg, rgbaImg.Bounds(), img, bounds.Min, draw.Src)
	}

	id := makeAssetId()
	server.textures[id] = TextureAsset{
		Texels: rgbaImg.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}
	return id
}

// Release frees one asset. Releasing an unknown id is not an error.
func (server *AssetServer) Release(id AssetId) {
	if material, ok := server.materials[id]; ok && material.TextureId != "" {
		delete(server.textures, material.TextureId)
	}
	delete(server.meshes, id)
	delete(server.materials, id)
	delete(server.textures, id)
}

func (server *AssetServer) ReleaseAll() {
	clear(server.meshes)
	clear(server.materials)
	clear(server.textures)
}

// AssetServerModule publishes Server, or a new AssetServer rooted at Root
// when Server is nil.
type AssetServerModule struct {
	Root   string
	Server *AssetServer
}

func (mod AssetServerModule) Install(app *App, cmd *Commands) {
	server := mod.Server
	if server == nil {
		server = NewAssetServer(mod.Root)
	}
	cmd.AddResources(server)
	app.OnShutdown("assets", func() {
		if n := server.Count(); n > 0 {
			app.Logger().Debugf("Releasing %d assets still alive at shutdown", n)
		}
		server.ReleaseAll()
	})
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}
