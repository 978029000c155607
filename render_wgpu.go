//go:build cgo

package nge

import (
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/naturalgravity/nge/shaders"
)

const (
	maxGpuLights     = 8
	depthFormat      = wgpu.TextureFormatDepth24Plus
	overlayFormat    = wgpu.TextureFormatRGBA8Unorm
	minInstanceSlots = 64
)

type gpuLight struct {
	Position  [4]float32
	Direction [4]float32
	Color     [4]float32
	Params    [4]float32
}

// Layout matches Globals in shaders/mesh.wgsl.
type gpuGlobals struct {
	ViewProj  mgl32.Mat4
	CameraPos [4]float32
	Ambient   [4]float32
	Counts    [4]float32
	Lights    [maxGpuLights]gpuLight
}

type gpuInstance struct {
	Model     mgl32.Mat4
	BaseColor [4]float32
	Emissive  [4]float32
}

type gpuMesh struct {
	vertexBuf  *wgpu.Buffer
	indexBuf   *wgpu.Buffer
	indexCount uint32
}

func (m *gpuMesh) release() {
	m.vertexBuf.Release()
	m.indexBuf.Release()
}

// WgpuRenderer is a forward renderer on WebGPU: one lit mesh pass followed
// by the UI overlay composited on top.
type WgpuRenderer struct {
	assets *AssetServer

	surface       *wgpu.Surface
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	surfaceConfig *wgpu.SurfaceConfiguration

	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView
	sampler      *wgpu.Sampler

	meshPipeline   *wgpu.RenderPipeline
	globalsBuf     *wgpu.Buffer
	instanceBuf    *wgpu.Buffer
	instanceSlots  int
	sceneBindGroup *wgpu.BindGroup
	meshes         map[AssetId]*gpuMesh

	overlayPipeline  *wgpu.RenderPipeline
	overlayTexture   *wgpu.Texture
	overlayView      *wgpu.TextureView
	overlayBindGroup *wgpu.BindGroup
	overlayVersion   uint64

	instances []gpuInstance
	resizeErr error
}

func NewWgpuRenderer(win *GlfwWindow, assets *AssetServer, cfg DisplayConfig) (*WgpuRenderer, error) {
	r := &WgpuRenderer{
		assets: assets,
		meshes: make(map[AssetId]*gpuMesh),
	}

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	r.surface = instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win.Handle()))
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: r.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		r.Release()
		return nil, fmt.Errorf("requesting adapter: %w", err)
	}
	r.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		r.Release()
		return nil, fmt.Errorf("requesting device: %w", err)
	}
	r.device = device
	r.queue = device.GetQueue()

	presentMode := wgpu.PresentModeFifo
	if !cfg.VSync {
		presentMode = wgpu.PresentModeImmediate
	}
	caps := r.surface.GetCapabilities(adapter)
	width, height := win.Size()
	r.surfaceConfig = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: presentMode,
		AlphaMode:   caps.AlphaModes[0],
	}
	r.surface.Configure(adapter, device, r.surfaceConfig)

	if err := r.init(); err != nil {
		r.Release()
		return nil, err
	}
	return r, nil
}

func (r *WgpuRenderer) init() error {
	var err error

	if err = r.createDepth(); err != nil {
		return err
	}

	r.sampler, err = r.device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeNearest,
		MagFilter:     wgpu.FilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("creating sampler: %w", err)
	}

	r.globalsBuf, err = r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Globals",
		Size:  uint64(sizeOfGlobals),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("creating globals buffer: %w", err)
	}

	r.meshPipeline, err = r.createPipeline("Mesh", shaders.MeshWGSL, true)
	if err != nil {
		return err
	}
	r.overlayPipeline, err = r.createPipeline("Overlay", shaders.OverlayWGSL, false)
	if err != nil {
		return err
	}

	return r.ensureInstanceSlots(minInstanceSlots)
}

const (
	sizeOfGlobals  = 64 + 3*16 + maxGpuLights*64
	sizeOfInstance = 64 + 2*16
	sizeOfVertex   = 32
)

func (r *WgpuRenderer) createPipeline(name, code string, mesh bool) (*wgpu.RenderPipeline, error) {
	shader, err := r.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name + " Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s shader: %w", name, err)
	}
	defer shader.Release()

	desc := &wgpu.RenderPipelineDescriptor{
		Label: name + " Pipeline",
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    r.surfaceConfig.Format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: mesh,
			DepthCompare:      wgpu.CompareFunctionAlways,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}

	if mesh {
		desc.Vertex.Buffers = []wgpu.VertexBufferLayout{{
			ArrayStride: sizeOfVertex,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
				{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
			},
		}}
		desc.Primitive.CullMode = wgpu.CullModeBack
		desc.DepthStencil.DepthCompare = wgpu.CompareFunctionLess
	} else {
		// Canvas pixels are premultiplied
		desc.Fragment.Targets[0].Blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	}

	pipeline, err := r.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("creating %s pipeline: %w", name, err)
	}
	return pipeline, nil
}

func (r *WgpuRenderer) createDepth() error {
	tex, err := r.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth",
		Size:          wgpu.Extent3D{Width: r.surfaceConfig.Width, Height: r.surfaceConfig.Height, DepthOrArrayLayers: 1},
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("creating depth texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("creating depth view: %w", err)
	}

	if r.depthView != nil {
		r.depthView.Release()
		r.depthTexture.Release()
	}
	r.depthTexture, r.depthView = tex, view
	return nil
}

// ensureInstanceSlots grows the instance storage buffer (and the bind group
// that references it) to hold at least n instances.
func (r *WgpuRenderer) ensureInstanceSlots(n int) error {
	if n <= r.instanceSlots {
		return nil
	}
	slots := max(r.instanceSlots, minInstanceSlots)
	for slots < n {
		slots *= 2
	}

	buf, err := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Instances",
		Size:  uint64(slots * sizeOfInstance),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("creating instance buffer: %w", err)
	}

	bindGroup, err := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: r.meshPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.globalsBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: buf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		buf.Release()
		return fmt.Errorf("creating scene bind group: %w", err)
	}

	if r.sceneBindGroup != nil {
		r.sceneBindGroup.Release()
		r.instanceBuf.Release()
	}
	r.instanceBuf, r.sceneBindGroup, r.instanceSlots = buf, bindGroup, slots
	return nil
}

// syncMeshes uploads meshes the GPU hasn't seen and drops ones the asset
// server has released.
func (r *WgpuRenderer) syncMeshes(draws []DrawItem) error {
	for id, mesh := range r.meshes {
		if _, ok := r.assets.Mesh(id); !ok {
			mesh.release()
			delete(r.meshes, id)
		}
	}

	for _, draw := range draws {
		if _, ok := r.meshes[draw.Mesh]; ok {
			continue
		}
		asset, ok := r.assets.Mesh(draw.Mesh)
		if !ok {
			continue
		}

		vertexBuf, err := r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    "Vertex Buffer",
			Contents: wgpu.ToBytes(asset.Vertices),
			Usage:    wgpu.BufferUsageVertex,
		})
		if err != nil {
			return fmt.Errorf("uploading mesh %s: %w", draw.Mesh, err)
		}

		// Index buffers must be a multiple of 4 bytes.
		indices := asset.Indices
		if len(indices)%2 != 0 {
			indices = append(append([]uint16(nil), indices...), 0)
		}
		indexBuf, err := r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    "Index Buffer",
			Contents: wgpu.ToBytes(indices),
			Usage:    wgpu.BufferUsageIndex,
		})
		if err != nil {
			vertexBuf.Release()
			return fmt.Errorf("uploading mesh %s: %w", draw.Mesh, err)
		}

		r.meshes[draw.Mesh] = &gpuMesh{
			vertexBuf:  vertexBuf,
			indexBuf:   indexBuf,
			indexCount: uint32(len(asset.Indices)),
		}
	}
	return nil
}

func (r *WgpuRenderer) writeGlobals(frame *RenderFrame) error {
	var g gpuGlobals
	g.ViewProj = frame.Projection.Mul4(frame.View)
	g.CameraPos = [4]float32{frame.CameraPosition.X(), frame.CameraPosition.Y(), frame.CameraPosition.Z(), 1}
	g.Ambient = [4]float32{frame.Ambient[0], frame.Ambient[1], frame.Ambient[2], 1}

	n := min(len(frame.Lights), maxGpuLights)
	g.Counts[0] = float32(n)
	for i, light := range frame.Lights[:n] {
		cosHalf := float32(math.Cos(float64(mgl32.DegToRad(light.ConeAngle)) / 2))
		g.Lights[i] = gpuLight{
			Position:  [4]float32{light.Position.X(), light.Position.Y(), light.Position.Z(), 1},
			Direction: [4]float32{light.Direction.X(), light.Direction.Y(), light.Direction.Z(), 0},
			Color: [4]float32{
				light.Color[0] * light.Intensity,
				light.Color[1] * light.Intensity,
				light.Color[2] * light.Intensity,
				1,
			},
			Params: [4]float32{float32(light.Type), light.Range, cosHalf, 0},
		}
	}
	return r.queue.WriteBuffer(r.globalsBuf, 0, wgpu.ToBytes([]gpuGlobals{g}))
}

func (r *WgpuRenderer) writeInstances(draws []DrawItem) ([]DrawItem, error) {
	r.instances = r.instances[:0]
	visible := make([]DrawItem, 0, len(draws))
	for _, draw := range draws {
		if _, ok := r.meshes[draw.Mesh]; !ok {
			continue
		}
		inst := gpuInstance{Model: draw.Model, BaseColor: [4]float32{1, 1, 1, 1}}
		if material, ok := r.assets.Material(draw.Material); ok {
			inst.BaseColor = material.BaseColor
			inst.Emissive = [4]float32{material.Emissive[0], material.Emissive[1], material.Emissive[2], 0}
		}
		r.instances = append(r.instances, inst)
		visible = append(visible, draw)
	}
	if len(r.instances) == 0 {
		return nil, nil
	}
	if err := r.ensureInstanceSlots(len(r.instances)); err != nil {
		return nil, err
	}
	return visible, r.queue.WriteBuffer(r.instanceBuf, 0, wgpu.ToBytes(r.instances))
}

// syncOverlay uploads the UI canvas when it changed since the last frame.
func (r *WgpuRenderer) syncOverlay(canvas *UiCanvas) error {
	if canvas.Image == nil || canvas.Version == r.overlayVersion {
		return nil
	}
	w, h := uint32(canvas.Image.Bounds().Dx()), uint32(canvas.Image.Bounds().Dy())
	extent := wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	if r.overlayTexture == nil || r.overlayTexture.GetWidth() != w || r.overlayTexture.GetHeight() != h {
		tex, err := r.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         "UI Overlay",
			Size:          extent,
			Format:        overlayFormat,
			Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
			Dimension:     wgpu.TextureDimension2D,
			MipLevelCount: 1,
			SampleCount:   1,
		})
		if err != nil {
			return fmt.Errorf("creating overlay texture: %w", err)
		}
		view, err := tex.CreateView(nil)
		if err != nil {
			tex.Release()
			return fmt.Errorf("creating overlay view: %w", err)
		}
		bindGroup, err := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: r.overlayPipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: view},
				{Binding: 1, Sampler: r.sampler},
			},
		})
		if err != nil {
			view.Release()
			tex.Release()
			return fmt.Errorf("creating overlay bind group: %w", err)
		}

		r.releaseOverlay()
		r.overlayTexture, r.overlayView, r.overlayBindGroup = tex, view, bindGroup
	}

	err := r.queue.WriteTexture(r.overlayTexture.AsImageCopy(), canvas.Image.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  4 * w,
		RowsPerImage: h,
	}, &extent)
	if err != nil {
		return fmt.Errorf("uploading overlay: %w", err)
	}
	r.overlayVersion = canvas.Version
	return nil
}

func (r *WgpuRenderer) Render(frame *RenderFrame, canvas *UiCanvas) error {
	if r.resizeErr != nil {
		return r.resizeErr
	}
	if err := r.syncMeshes(frame.Draws); err != nil {
		return err
	}
	var draws []DrawItem
	if frame.HasCamera {
		if err := r.writeGlobals(frame); err != nil {
			return fmt.Errorf("writing globals: %w", err)
		}
		var err error
		if draws, err = r.writeInstances(frame.Draws); err != nil {
			return fmt.Errorf("writing instances: %w", err)
		}
	}
	if err := r.syncOverlay(canvas); err != nil {
		return err
	}

	nextTexture, err := r.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquiring surface texture: %w", err)
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("creating surface view: %w", err)
	}
	defer view.Release()

	encoder, err := r.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("creating command encoder: %w", err)
	}
	defer encoder.Release()

	cc := frame.ClearColor
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: float64(cc[0]), G: float64(cc[1]), B: float64(cc[2]), A: float64(cc[3])},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	defer pass.Release()

	if len(draws) > 0 {
		pass.SetPipeline(r.meshPipeline)
		pass.SetBindGroup(0, r.sceneBindGroup, nil)
		for i, draw := range draws {
			mesh := r.meshes[draw.Mesh]
			pass.SetVertexBuffer(0, mesh.vertexBuf, 0, wgpu.WholeSize)
			pass.SetIndexBuffer(mesh.indexBuf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
			pass.DrawIndexed(mesh.indexCount, 1, 0, 0, uint32(i))
		}
	}

	if r.overlayBindGroup != nil {
		pass.SetPipeline(r.overlayPipeline)
		pass.SetBindGroup(0, r.overlayBindGroup, nil)
		pass.Draw(3, 1, 0, 0)
	}

	if err := pass.End(); err != nil {
		return fmt.Errorf("ending render pass: %w", err)
	}

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finishing encoder: %w", err)
	}
	defer cmdBuffer.Release()

	r.queue.Submit(cmdBuffer)
	r.surface.Present()
	return nil
}

func (r *WgpuRenderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.surfaceConfig.Width = uint32(width)
	r.surfaceConfig.Height = uint32(height)
	r.surface.Configure(r.adapter, r.device, r.surfaceConfig)
	r.resizeErr = r.createDepth()
}

func (r *WgpuRenderer) releaseOverlay() {
	if r.overlayBindGroup != nil {
		r.overlayBindGroup.Release()
		r.overlayView.Release()
		r.overlayTexture.Release()
		r.overlayBindGroup, r.overlayView, r.overlayTexture = nil, nil, nil
	}
}

func (r *WgpuRenderer) Release() {
	for id, mesh := range r.meshes {
		mesh.release()
		delete(r.meshes, id)
	}
	r.releaseOverlay()
	if r.sceneBindGroup != nil {
		r.sceneBindGroup.Release()
		r.instanceBuf.Release()
		r.sceneBindGroup, r.instanceBuf = nil, nil
	}
	if r.globalsBuf != nil {
		r.globalsBuf.Release()
		r.globalsBuf = nil
	}
	if r.overlayPipeline != nil {
		r.overlayPipeline.Release()
		r.overlayPipeline = nil
	}
	if r.meshPipeline != nil {
		r.meshPipeline.Release()
		r.meshPipeline = nil
	}
	if r.sampler != nil {
		r.sampler.Release()
		r.sampler = nil
	}
	if r.depthView != nil {
		r.depthView.Release()
		r.depthTexture.Release()
		r.depthView, r.depthTexture = nil, nil
	}
	if r.queue != nil {
		r.queue.Release()
		r.queue = nil
	}
	if r.device != nil {
		r.device.Release()
		r.device = nil
	}
	if r.adapter != nil {
		r.adapter.Release()
		r.adapter = nil
	}
	if r.surface != nil {
		r.surface.Release()
		r.surface = nil
	}
}
