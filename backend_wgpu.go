package helio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgpu rendition of the backend interfaces. WebGPU has no bindless texture
// arrays and no root constants, so this backend resolves the per-draw
// texture indices at bind time and feeds the constant-buffer ring through
// dynamic bind-group offsets.

const (
	uniformAlignment = 256
	uniformPoolBytes = 8 << 20
)

func wgpuTextureFormat(f Format) wgpu.TextureFormat {
	switch f {
	case FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case FormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case FormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float
	case FormatRG16Float:
		return wgpu.TextureFormatRG16Float
	case FormatRG32Float:
		return wgpu.TextureFormatRG32Float
	case FormatRGBA32Float:
		return wgpu.TextureFormatRGBA32Float
	case FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	default:
		panic(fmt.Sprintf("no wgpu texture format for %d", f))
	}
}

func wgpuVertexFormat(f Format) wgpu.VertexFormat {
	switch f {
	case FormatRGBA8Unorm:
		return wgpu.VertexFormatUnorm8x4
	case FormatRG32Float:
		return wgpu.VertexFormatFloat32x2
	case FormatRGB32Float:
		return wgpu.VertexFormatFloat32x3
	case FormatRGBA32Float:
		return wgpu.VertexFormatFloat32x4
	default:
		panic(fmt.Sprintf("no wgpu vertex format for %d", f))
	}
}

func formatByteSize(f Format) uint32 {
	switch f {
	case FormatRGBA8Unorm, FormatRGBA8UnormSrgb, FormatRG16Float, FormatDepth32Float:
		return 4
	case FormatRGBA16Float, FormatRG32Float:
		return 8
	case FormatRGB32Float:
		return 12
	case FormatRGBA32Float:
		return 16
	default:
		panic(fmt.Sprintf("no byte size for format %d", f))
	}
}

func wgpuCompareFunction(f CompareFunc) wgpu.CompareFunction {
	switch f {
	case CompareNever:
		return wgpu.CompareFunctionNever
	case CompareLess:
		return wgpu.CompareFunctionLess
	case CompareLessEqual:
		return wgpu.CompareFunctionLessEqual
	case CompareGreater:
		return wgpu.CompareFunctionGreater
	case CompareGreaterEqual:
		return wgpu.CompareFunctionGreaterEqual
	default:
		return wgpu.CompareFunctionAlways
	}
}

func wgpuCullMode(c CullMode) wgpu.CullMode {
	switch c {
	case CullFront:
		return wgpu.CullModeFront
	case CullBack:
		return wgpu.CullModeBack
	default:
		return wgpu.CullModeNone
	}
}

func wgpuAddressMode(m AddressMode) wgpu.AddressMode {
	switch m {
	case AddressMirror:
		return wgpu.AddressModeMirrorRepeat
	case AddressClamp:
		return wgpu.AddressModeClampToEdge
	default:
		return wgpu.AddressModeRepeat
	}
}

func wgpuFilterMode(m FilterMode) wgpu.FilterMode {
	if m == FilterPoint {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

type wgpuTexture struct {
	name     string
	format   Format
	layers   uint32
	texture  *wgpu.Texture
	view     *wgpu.TextureView
	cubeView *wgpu.TextureView
}

func (t *wgpuTexture) Name() string   { return t.name }
func (t *wgpuTexture) Format() Format { return t.format }

func (t *wgpuTexture) viewFor(dim ViewDimension) *wgpu.TextureView {
	if dim == ViewDimCube {
		if t.cubeView == nil {
			view, err := t.texture.CreateView(&wgpu.TextureViewDescriptor{
				Label:           t.name,
				Format:          wgpuTextureFormat(t.format),
				Dimension:       wgpu.TextureViewDimensionCube,
				MipLevelCount:   1,
				ArrayLayerCount: t.layers,
			})
			if err != nil {
				panic(err)
			}
			t.cubeView = view
		}
		return t.cubeView
	}
	return t.view
}

type wgpuSampler struct {
	desc    SamplerDesc
	sampler *wgpu.Sampler
}

func (s *wgpuSampler) Desc() SamplerDesc { return s.desc }
func (s *wgpuSampler) Release()          { s.sampler.Release() }

type wgpuPipeline struct {
	name     string
	pipeline *wgpu.RenderPipeline
}

func (p *wgpuPipeline) Name() string { return p.name }
func (p *wgpuPipeline) Release()     { p.pipeline.Release() }

type wgpuRasterView struct {
	tex *wgpuTexture
}

func (v *wgpuRasterView) Texture() Texture { return v.tex }

// wgpuBufferPool is a per-frame linear allocator over one uniform buffer.
// It keeps a CPU mirror of every write so the parameter set can decode the
// texture-indices block when it builds bind groups.
type wgpuBufferPool struct {
	queue  *wgpu.Queue
	buffer *wgpu.Buffer
	mirror []byte
	cursor uint64
}

func newWgpuBufferPool(device *wgpu.Device, queue *wgpu.Queue) *wgpuBufferPool {
	buffer, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "UniformRing",
		Size:  uniformPoolBytes,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	return &wgpuBufferPool{
		queue:  queue,
		buffer: buffer,
		mirror: make([]byte, uniformPoolBytes),
	}
}

func alignUp(n uint64) uint64 {
	return (n + uniformAlignment - 1) &^ (uniformAlignment - 1)
}

func (p *wgpuBufferPool) reserve(size uint64) BufferAddress {
	if p.cursor+alignUp(size) > uniformPoolBytes {
		panic("uniform ring exhausted; frame allocates more constant data than the pool holds")
	}
	addr := BufferAddress{Buffer: p.buffer, Offset: p.cursor, Size: size}
	p.cursor += alignUp(size)
	return addr
}

func (p *wgpuBufferPool) AllocConstantBuffer(data []byte) BufferAddress {
	addr := p.reserve(uint64(len(data)))
	p.WriteConstantBuffer(addr, data)
	return addr
}

func (p *wgpuBufferPool) BatchAllocConstantBuffers(size uint64, count int) []BufferAddress {
	addrs := make([]BufferAddress, count)
	for i := range addrs {
		addrs[i] = p.reserve(size)
	}
	return addrs
}

func (p *wgpuBufferPool) WriteConstantBuffer(addr BufferAddress, data []byte) {
	buffer := addr.Buffer.(*wgpu.Buffer)
	if err := p.queue.WriteBuffer(buffer, addr.Offset, data); err != nil {
		panic(err)
	}
	if buffer == p.buffer {
		copy(p.mirror[addr.Offset:], data)
	}
}

func (p *wgpuBufferPool) bytesAt(addr BufferAddress) []byte {
	return p.mirror[addr.Offset : addr.Offset+addr.Size]
}

func (p *wgpuBufferPool) reset() {
	p.cursor = 0
}

type wgpuDevice struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	pool   *wgpuBufferPool

	group0Layout   *wgpu.BindGroupLayout
	group1Layout   *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout

	white      *wgpuTexture
	blackCube  *wgpuTexture
	linear     *wgpu.Sampler
	comparison *wgpu.Sampler
}

func newWgpuDevice(device *wgpu.Device, queue *wgpu.Queue, pool *wgpuBufferPool) *wgpuDevice {
	d := &wgpuDevice{device: device, queue: queue, pool: pool}

	// Group 0: the five constant-buffer slots, fed through dynamic offsets
	// into the uniform ring.
	var group0Entries []wgpu.BindGroupLayoutEntry
	for slot := uint32(0); slot <= CBSlotIBLFactor; slot++ {
		group0Entries = append(group0Entries, wgpu.BindGroupLayoutEntry{
			Binding:    slot,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
			},
		})
	}
	group0Layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "ForwardConstants",
		Entries: group0Entries,
	})
	if err != nil {
		panic(err)
	}
	d.group0Layout = group0Layout

	// Group 1: the five content texture/sampler pairs of the current draw,
	// then the fixed lookup set.
	entries := []wgpu.BindGroupLayoutEntry{}
	for binding := uint32(0); binding < 5; binding++ {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
	}
	for binding := uint32(5); binding < 10; binding++ {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
		})
	}
	entries = append(entries,
		wgpu.BindGroupLayoutEntry{
			Binding:    10,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		wgpu.BindGroupLayoutEntry{
			Binding:    11,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimensionCube,
			},
		},
		wgpu.BindGroupLayoutEntry{
			Binding:    12,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimensionCube,
			},
		},
		wgpu.BindGroupLayoutEntry{
			Binding:    13,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
	)
	for binding := uint32(14); binding < 17; binding++ {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
		})
	}
	entries = append(entries, wgpu.BindGroupLayoutEntry{
		Binding:    17,
		Visibility: wgpu.ShaderStageFragment,
		Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison},
	})
	group1Layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "ForwardResources",
		Entries: entries,
	})
	if err != nil {
		panic(err)
	}
	d.group1Layout = group1Layout

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "ForwardPipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{group0Layout, group1Layout},
	})
	if err != nil {
		panic(err)
	}
	d.pipelineLayout = pipelineLayout

	d.white = d.newTexture("FallbackWhite", 1, 1, 1, FormatRGBA8Unorm,
		[]byte{0xff, 0xff, 0xff, 0xff}, wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	d.blackCube = d.newTexture("FallbackBlackCube", 1, 1, 6, FormatRGBA8Unorm,
		bytes.Repeat([]byte{0, 0, 0, 0xff}, 6), wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)

	linear, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "FallbackLinear",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		panic(err)
	}
	d.linear = linear

	comparison, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "FallbackComparison",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		Compare:       wgpu.CompareFunctionLessEqual,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		panic(err)
	}
	d.comparison = comparison

	return d
}

func (d *wgpuDevice) newTexture(name string, width, height, layers uint32, format Format, texels []byte, usage wgpu.TextureUsage) *wgpuTexture {
	extent := wgpu.Extent3D{
		Width:              width,
		Height:             height,
		DepthOrArrayLayers: layers,
	}
	texture, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         name,
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpuTextureFormat(format),
		Usage:         usage,
	})
	if err != nil {
		panic(err)
	}
	if texels != nil {
		err = d.queue.WriteTexture(
			texture.AsImageCopy(),
			texels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  width * formatByteSize(format),
				RowsPerImage: height,
			},
			&extent,
		)
		if err != nil {
			panic(err)
		}
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		panic(err)
	}
	return &wgpuTexture{name: name, format: format, layers: layers, texture: texture, view: view}
}

func (d *wgpuDevice) CreateTexture(name string, width, height uint32, format Format, texels []byte) (Texture, error) {
	return d.newTexture(name, width, height, 1, format, texels,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst), nil
}

func (d *wgpuDevice) createGeometryBuffer(name string, data []byte, usage wgpu.BufferUsage) (BufferAddress, error) {
	buffer, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    name,
		Contents: data,
		Usage:    usage,
	})
	if err != nil {
		return BufferAddress{}, err
	}
	return BufferAddress{Buffer: buffer, Offset: 0, Size: uint64(len(data))}, nil
}

func (d *wgpuDevice) CreateVertexBuffer(name string, data []byte) (BufferAddress, error) {
	return d.createGeometryBuffer(name, data, wgpu.BufferUsageVertex)
}

func (d *wgpuDevice) CreateIndexBuffer(name string, data []byte) (BufferAddress, error) {
	return d.createGeometryBuffer(name, data, wgpu.BufferUsageIndex)
}

func (d *wgpuDevice) newRenderTarget(name string, width, height uint32, format Format) *wgpuTexture {
	return d.newTexture(name, width, height, 1, format, nil,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding)
}

func (d *wgpuDevice) CreateSampler(name string, desc SamplerDesc) (Sampler, error) {
	sd := &wgpu.SamplerDescriptor{
		Label:         name,
		AddressModeU:  wgpuAddressMode(desc.AddressU),
		AddressModeV:  wgpuAddressMode(desc.AddressV),
		AddressModeW:  wgpuAddressMode(desc.AddressW),
		MagFilter:     wgpuFilterMode(desc.Filter),
		MinFilter:     wgpuFilterMode(desc.Filter),
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	}
	if desc.MaxAnisotropy > 1 {
		sd.MaxAnisotropy = uint16(desc.MaxAnisotropy)
	}
	if desc.Filter == FilterComparisonLinear {
		sd.Compare = wgpuCompareFunction(desc.Comparison)
	}
	sampler, err := d.device.CreateSampler(sd)
	if err != nil {
		return nil, err
	}
	return &wgpuSampler{desc: desc, sampler: sampler}, nil
}

func (d *wgpuDevice) CreatePipeline(name string, desc *PipelineDesc) (PipelineObject, error) {
	shader, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: buildForwardShader(desc)},
	})
	if err != nil {
		return nil, err
	}
	defer shader.Release()

	buffers := make([]wgpu.VertexBufferLayout, 0, len(desc.InputLayout))
	for _, entry := range desc.InputLayout {
		buffers = append(buffers, wgpu.VertexBufferLayout{
			ArrayStride: uint64(formatByteSize(entry.Format)),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{
					Format:         wgpuVertexFormat(entry.Format),
					Offset:         0,
					ShaderLocation: uint32(entry.Attribute),
				},
			},
		})
	}

	targets := make([]wgpu.ColorTargetState, 0, len(desc.ColorFormats))
	for _, format := range desc.ColorFormats {
		targets = append(targets, wgpu.ColorTargetState{
			Format:    wgpuTextureFormat(format),
			WriteMask: wgpu.ColorWriteMaskAll,
		})
	}

	var depthStencil *wgpu.DepthStencilState
	if desc.DepthFormat != FormatUnknown {
		depthCompare := wgpu.CompareFunctionAlways
		if desc.Depth.TestEnable {
			depthCompare = wgpuCompareFunction(desc.Depth.Func)
		}
		depthStencil = &wgpu.DepthStencilState{
			Format:            wgpuTextureFormat(desc.DepthFormat),
			DepthWriteEnabled: desc.Depth.WriteEnable,
			DepthCompare:      depthCompare,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	pipeline, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  name,
		Layout: d.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpuCullMode(desc.CullMode),
		},
		DepthStencil: depthStencil,
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuPipeline{name: name, pipeline: pipeline}, nil
}

func (d *wgpuDevice) CreateParameterSet() ParameterSet {
	return &wgpuParameterSet{
		dev:      d,
		textures: make(map[uint32]paramTexture),
		samplers: make(map[uint32]*wgpuSampler),
	}
}

func (d *wgpuDevice) RequestRasterView(t Texture) RasterView {
	return &wgpuRasterView{tex: t.(*wgpuTexture)}
}

// VRSInfo reports nil: WebGPU exposes no variable-rate shading.
func (d *wgpuDevice) VRSInfo() VRSInfo {
	return nil
}

type paramTexture struct {
	tex *wgpuTexture
	dim ViewDimension
}

// wgpuParameterSet mirrors the slot tables the render modules maintain and
// lowers them to two bind groups per draw. Group 1 is cached per resolved
// texture-index tuple; the cache drops whenever a slot table changes.
type wgpuParameterSet struct {
	dev      *wgpuDevice
	textures map[uint32]paramTexture
	samplers map[uint32]*wgpuSampler
	cbs      [CBSlotIBLFactor + 1]BufferAddress

	group0      *wgpu.BindGroup
	group0Sizes [CBSlotIBLFactor + 1]uint64
	group1Cache map[TextureIndices]*wgpu.BindGroup
}

func (s *wgpuParameterSet) SetTextureSlot(t Texture, dim ViewDimension, slot uint32) {
	if t == nil {
		delete(s.textures, slot)
	} else {
		s.textures[slot] = paramTexture{tex: t.(*wgpuTexture), dim: dim}
	}
	s.group1Cache = nil
}

func (s *wgpuParameterSet) SetSamplerSlot(smp Sampler, slot uint32) {
	if smp == nil {
		delete(s.samplers, slot)
	} else {
		s.samplers[slot] = smp.(*wgpuSampler)
	}
	s.group1Cache = nil
}

func (s *wgpuParameterSet) UpdateRootConstantBuffer(slot uint32, addr BufferAddress) {
	s.cbs[slot] = addr
}

func (s *wgpuParameterSet) textureViewAt(slot uint32, dim ViewDimension) *wgpu.TextureView {
	if entry, ok := s.textures[slot]; ok {
		return entry.tex.viewFor(dim)
	}
	if dim == ViewDimCube {
		return s.dev.blackCube.viewFor(ViewDimCube)
	}
	return s.dev.white.view
}

func (s *wgpuParameterSet) contentViewAt(index int32) *wgpu.TextureView {
	if index < 0 {
		return s.dev.white.view
	}
	return s.textureViewAt(uint32(index), ViewDim2D)
}

func (s *wgpuParameterSet) samplerAt(slot uint32, fallback *wgpu.Sampler) *wgpu.Sampler {
	if smp, ok := s.samplers[slot]; ok {
		return smp.sampler
	}
	return fallback
}

func (s *wgpuParameterSet) contentSamplerAt(index int32) *wgpu.Sampler {
	if index < 0 {
		return s.dev.linear
	}
	return s.samplerAt(uint32(index), s.dev.linear)
}

func (s *wgpuParameterSet) Bind(cl CommandList, p PipelineObject) {
	list := cl.(*wgpuCommandList)
	if list.pass == nil {
		panic("parameter set bound outside a raster pass")
	}

	// Group 0: one bind group over the uniform ring, per-draw offsets.
	var sizes [CBSlotIBLFactor + 1]uint64
	offsets := make([]uint32, len(s.cbs))
	for slot, addr := range s.cbs {
		sizes[slot] = addr.Size
		offsets[slot] = uint32(addr.Offset)
	}
	if s.group0 == nil || sizes != s.group0Sizes {
		entries := make([]wgpu.BindGroupEntry, 0, len(s.cbs))
		for slot, addr := range s.cbs {
			buffer := s.dev.pool.buffer
			if b, ok := addr.Buffer.(*wgpu.Buffer); ok && b != nil {
				buffer = b
			}
			size := addr.Size
			if size == 0 {
				size = uniformAlignment
			}
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: uint32(slot),
				Buffer:  buffer,
				Offset:  0,
				Size:    size,
			})
		}
		group, err := s.dev.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   "ForwardConstants",
			Layout:  s.dev.group0Layout,
			Entries: entries,
		})
		if err != nil {
			panic(err)
		}
		s.group0 = group
		s.group0Sizes = sizes
	}
	list.pass.SetBindGroup(0, s.group0, offsets)

	// Group 1: resolve the draw's texture indices against the slot tables.
	var indices TextureIndices
	if addr := s.cbs[CBSlotTextureIndices]; addr.Size > 0 {
		raw := s.dev.pool.bytesAt(addr)
		if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &indices); err != nil {
			panic(err)
		}
	} else {
		indices = newTextureIndices()
	}

	if s.group1Cache == nil {
		s.group1Cache = make(map[TextureIndices]*wgpu.BindGroup)
	}
	group1, ok := s.group1Cache[indices]
	if !ok {
		contentTextures := [5]int32{
			indices.AlbedoTextureIndex,
			indices.MetalRoughSpecGlossTextureIndex,
			indices.NormalTextureIndex,
			indices.EmissiveTextureIndex,
			indices.OcclusionTextureIndex,
		}
		contentSamplers := [5]int32{
			indices.AlbedoSamplerIndex,
			indices.MetalRoughSpecGlossSamplerIndex,
			indices.NormalSamplerIndex,
			indices.EmissiveSamplerIndex,
			indices.OcclusionSamplerIndex,
		}

		entries := make([]wgpu.BindGroupEntry, 0, 18)
		for i, index := range contentTextures {
			entries = append(entries, wgpu.BindGroupEntry{
				Binding:     uint32(i),
				TextureView: s.contentViewAt(index),
				Size:        wgpu.WholeSize,
			})
		}
		for i, index := range contentSamplers {
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: uint32(i) + 5,
				Sampler: s.contentSamplerAt(index),
				Size:    wgpu.WholeSize,
			})
		}
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: 10, TextureView: s.textureViewAt(SlotBRDFLut, ViewDim2D), Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Binding: 11, TextureView: s.textureViewAt(SlotIrradianceCube, ViewDimCube), Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Binding: 12, TextureView: s.textureViewAt(SlotPrefilteredCube, ViewDimCube), Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Binding: 13, TextureView: s.textureViewAt(SlotShadowMaps, ViewDim2D), Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Binding: 14, Sampler: s.samplerAt(SlotSamplerPrefiltered, s.dev.linear), Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Binding: 15, Sampler: s.samplerAt(SlotSamplerIrradiance, s.dev.linear), Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Binding: 16, Sampler: s.samplerAt(SlotSamplerBRDF, s.dev.linear), Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Binding: 17, Sampler: s.samplerAt(SlotSamplerComparison, s.dev.comparison), Size: wgpu.WholeSize},
		)
		group, err := s.dev.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   "ForwardResources",
			Layout:  s.dev.group1Layout,
			Entries: entries,
		})
		if err != nil {
			panic(err)
		}
		s.group1Cache[indices] = group
		group1 = group
	}
	list.pass.SetBindGroup(1, group1, nil)
}

// wgpuCommandList records into one encoder per frame. Clear requests are
// held until BeginRaster because WebGPU clears through render-pass load ops.
type wgpuCommandList struct {
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder

	clearColors map[RasterView][4]float32
	clearDepths map[RasterView]float32
}

func newWgpuCommandList(encoder *wgpu.CommandEncoder) *wgpuCommandList {
	return &wgpuCommandList{
		encoder:     encoder,
		clearColors: make(map[RasterView][4]float32),
		clearDepths: make(map[RasterView]float32),
	}
}

// Markers are not surfaced by the binding; kept as no-ops so module code can
// stay annotated.
func (cl *wgpuCommandList) BeginMarker(name string) {}
func (cl *wgpuCommandList) EndMarker()              {}

// Transition is a no-op here; WebGPU tracks resource states internally.
func (cl *wgpuCommandList) Transition(barriers ...Barrier) {}

func (cl *wgpuCommandList) ClearRenderTarget(view RasterView, rgba [4]float32) {
	cl.clearColors[view] = rgba
}

func (cl *wgpuCommandList) ClearDepthStencil(view RasterView, depth float32) {
	cl.clearDepths[view] = depth
}

func (cl *wgpuCommandList) BeginRaster(colors []RasterView, depth RasterView, vrs VRSInfo) {
	attachments := make([]wgpu.RenderPassColorAttachment, 0, len(colors))
	for _, view := range colors {
		attachment := wgpu.RenderPassColorAttachment{
			View:    view.(*wgpuRasterView).tex.view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}
		if rgba, ok := cl.clearColors[view]; ok {
			attachment.LoadOp = wgpu.LoadOpClear
			attachment.ClearValue = wgpu.Color{
				R: float64(rgba[0]),
				G: float64(rgba[1]),
				B: float64(rgba[2]),
				A: float64(rgba[3]),
			}
			delete(cl.clearColors, view)
		}
		attachments = append(attachments, attachment)
	}

	desc := &wgpu.RenderPassDescriptor{ColorAttachments: attachments}
	if depth != nil {
		depthAttachment := &wgpu.RenderPassDepthStencilAttachment{
			View:         depth.(*wgpuRasterView).tex.view,
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		}
		if value, ok := cl.clearDepths[depth]; ok {
			depthAttachment.DepthLoadOp = wgpu.LoadOpClear
			depthAttachment.DepthClearValue = value
			delete(cl.clearDepths, depth)
		}
		desc.DepthStencilAttachment = depthAttachment
	}

	cl.pass = cl.encoder.BeginRenderPass(desc)
}

func (cl *wgpuCommandList) EndRaster(vrs VRSInfo) {
	if err := cl.pass.End(); err != nil {
		panic(err)
	}
	cl.pass.Release()
	cl.pass = nil
}

func (cl *wgpuCommandList) SetViewportScissor(x, y, width, height uint32, minDepth, maxDepth float32) {
	cl.pass.SetViewport(float32(x), float32(y), float32(width), float32(height), minDepth, maxDepth)
	cl.pass.SetScissorRect(x, y, width, height)
}

// Topology is baked into the pipeline on this backend.
func (cl *wgpuCommandList) SetPrimitiveTopology(topology PrimitiveTopology) {}

func (cl *wgpuCommandList) SetPipeline(p PipelineObject) {
	cl.pass.SetPipeline(p.(*wgpuPipeline).pipeline)
}

func (cl *wgpuCommandList) SetVertexBuffers(addrs []BufferAddress) {
	for i, addr := range addrs {
		if addr.Buffer == nil {
			continue
		}
		size := addr.Size
		if size == 0 {
			size = wgpu.WholeSize
		}
		cl.pass.SetVertexBuffer(uint32(i), addr.Buffer.(*wgpu.Buffer), addr.Offset, size)
	}
}

func (cl *wgpuCommandList) SetIndexBuffer(addr BufferAddress, format IndexFormat) {
	indexFormat := wgpu.IndexFormatUint16
	if format == IndexFormatUint32 {
		indexFormat = wgpu.IndexFormatUint32
	}
	size := addr.Size
	if size == 0 {
		size = wgpu.WholeSize
	}
	cl.pass.SetIndexBuffer(addr.Buffer.(*wgpu.Buffer), indexFormat, addr.Offset, size)
}

func (cl *wgpuCommandList) DrawIndexed(indexCount uint32) {
	cl.pass.DrawIndexed(indexCount, 1, 0, 0, 0)
}
