package helio

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Recording fakes for the backend interfaces. Tests assert on what the
// render modules asked the backend to do, not on GPU output.

type fakeTexture struct {
	name   string
	format Format
}

func (t *fakeTexture) Name() string   { return t.name }
func (t *fakeTexture) Format() Format { return t.format }

type fakeSampler struct {
	desc     SamplerDesc
	released bool
}

func (s *fakeSampler) Desc() SamplerDesc { return s.desc }
func (s *fakeSampler) Release()          { s.released = true }

type fakePipeline struct {
	name     string
	desc     PipelineDesc
	released bool
}

func (p *fakePipeline) Name() string { return p.name }
func (p *fakePipeline) Release()     { p.released = true }

type fakeRasterView struct {
	tex Texture
}

func (v *fakeRasterView) Texture() Texture { return v.tex }

type fakeDevice struct {
	pipelines   []*fakePipeline
	samplers    []*fakeSampler
	textures    []*fakeTexture
	failSampler bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{}
}

func (d *fakeDevice) CreatePipeline(name string, desc *PipelineDesc) (PipelineObject, error) {
	copied := *desc
	copied.Defines = make(map[string]string, len(desc.Defines))
	for k, v := range desc.Defines {
		copied.Defines[k] = v
	}
	copied.ColorFormats = append([]Format(nil), desc.ColorFormats...)
	copied.InputLayout = append([]InputLayoutEntry(nil), desc.InputLayout...)

	p := &fakePipeline{name: name, desc: copied}
	d.pipelines = append(d.pipelines, p)
	return p, nil
}

func (d *fakeDevice) CreateSampler(name string, desc SamplerDesc) (Sampler, error) {
	if d.failSampler {
		return nil, errors.New("sampler creation refused")
	}
	s := &fakeSampler{desc: desc}
	d.samplers = append(d.samplers, s)
	return s, nil
}

func (d *fakeDevice) CreateTexture(name string, width, height uint32, format Format, texels []byte) (Texture, error) {
	t := &fakeTexture{name: name, format: format}
	d.textures = append(d.textures, t)
	return t, nil
}

func (d *fakeDevice) CreateVertexBuffer(name string, data []byte) (BufferAddress, error) {
	return BufferAddress{Buffer: "vb:" + name, Size: uint64(len(data))}, nil
}

func (d *fakeDevice) CreateIndexBuffer(name string, data []byte) (BufferAddress, error) {
	return BufferAddress{Buffer: "ib:" + name, Size: uint64(len(data))}, nil
}

func (d *fakeDevice) CreateParameterSet() ParameterSet {
	return newFakeParameterSet()
}

func (d *fakeDevice) RequestRasterView(t Texture) RasterView {
	return &fakeRasterView{tex: t}
}

func (d *fakeDevice) VRSInfo() VRSInfo { return nil }

type fakePool struct {
	cursor     uint64
	allocs     int
	batchSizes []int
	writes     int
}

func (p *fakePool) alloc(size uint64) BufferAddress {
	addr := BufferAddress{Buffer: "pool", Offset: p.cursor, Size: size}
	p.cursor += size
	return addr
}

func (p *fakePool) AllocConstantBuffer(data []byte) BufferAddress {
	p.allocs++
	return p.alloc(uint64(len(data)))
}

func (p *fakePool) BatchAllocConstantBuffers(size uint64, count int) []BufferAddress {
	p.batchSizes = append(p.batchSizes, count)
	addrs := make([]BufferAddress, count)
	for i := range addrs {
		addrs[i] = p.alloc(size)
	}
	return addrs
}

func (p *fakePool) WriteConstantBuffer(addr BufferAddress, data []byte) {
	p.writes++
}

type fakeParameterSet struct {
	textures map[uint32]Texture
	samplers map[uint32]Sampler
	cbs      map[uint32]BufferAddress
	binds    int
}

func newFakeParameterSet() *fakeParameterSet {
	return &fakeParameterSet{
		textures: make(map[uint32]Texture),
		samplers: make(map[uint32]Sampler),
		cbs:      make(map[uint32]BufferAddress),
	}
}

func (s *fakeParameterSet) SetTextureSlot(t Texture, dim ViewDimension, slot uint32) {
	if t == nil {
		delete(s.textures, slot)
		return
	}
	s.textures[slot] = t
}

func (s *fakeParameterSet) SetSamplerSlot(smp Sampler, slot uint32) {
	if smp == nil {
		delete(s.samplers, slot)
		return
	}
	s.samplers[slot] = smp
}

func (s *fakeParameterSet) UpdateRootConstantBuffer(slot uint32, addr BufferAddress) {
	s.cbs[slot] = addr
}

func (s *fakeParameterSet) Bind(cl CommandList, p PipelineObject) {
	s.binds++
}

type fakeCommandList struct {
	markers      []string
	transitions  int
	colorClears  int
	depthClears  []float32
	rasterActive bool
	pipelines    []string
	vertexSets   [][]BufferAddress
	indexSets    []BufferAddress
	draws        []uint32
	viewports    [][4]uint32
}

func newFakeCommandList() *fakeCommandList {
	return &fakeCommandList{}
}

func (cl *fakeCommandList) BeginMarker(name string) {
	cl.markers = append(cl.markers, name)
}

func (cl *fakeCommandList) EndMarker() {}

func (cl *fakeCommandList) Transition(barriers ...Barrier) {
	cl.transitions += len(barriers)
}

func (cl *fakeCommandList) ClearRenderTarget(view RasterView, rgba [4]float32) {
	cl.colorClears++
}

func (cl *fakeCommandList) ClearDepthStencil(view RasterView, depth float32) {
	cl.depthClears = append(cl.depthClears, depth)
}

func (cl *fakeCommandList) BeginRaster(colors []RasterView, depth RasterView, vrs VRSInfo) {
	cl.rasterActive = true
}

func (cl *fakeCommandList) EndRaster(vrs VRSInfo) {
	cl.rasterActive = false
}

func (cl *fakeCommandList) SetViewportScissor(x, y, width, height uint32, minDepth, maxDepth float32) {
	cl.viewports = append(cl.viewports, [4]uint32{x, y, width, height})
}

func (cl *fakeCommandList) SetPrimitiveTopology(topology PrimitiveTopology) {}

func (cl *fakeCommandList) SetPipeline(p PipelineObject) {
	cl.pipelines = append(cl.pipelines, p.Name())
}

func (cl *fakeCommandList) SetVertexBuffers(addrs []BufferAddress) {
	cl.vertexSets = append(cl.vertexSets, append([]BufferAddress(nil), addrs...))
}

func (cl *fakeCommandList) SetIndexBuffer(addr BufferAddress, format IndexFormat) {
	cl.indexSets = append(cl.indexSets, addr)
}

func (cl *fakeCommandList) DrawIndexed(indexCount uint32) {
	cl.draws = append(cl.draws, indexCount)
}

// Scene/content builders shared across the forward tests.

func newTestForwardState(dev *fakeDevice, motionVectors bool) (*ForwardState, *fakePool) {
	pool := &fakePool{}
	color := &fakeTexture{name: TargetColor, format: FormatRGBA16Float}
	motion := &fakeTexture{name: TargetMotionVector, format: FormatRG16Float}
	depth := &fakeTexture{name: TargetDepth, format: FormatDepth32Float}

	s := &ForwardState{
		log:                   NewNopLogger(),
		device:                dev,
		pool:                  pool,
		params:                newFakeParameterSet(),
		content:               NewContentManager(),
		scene:                 NewScene(),
		display:               &Display{RenderWidth: 640, RenderHeight: 480, UpscaleWidth: 640, UpscaleHeight: 480},
		generateMotionVectors: motionVectors,
		colorTarget:           color,
		motionTarget:          motion,
		depthTarget:           depth,
		textures:              make([]boundTexture, 0, BindlessTextureSlots),
		samplers:              make([]Sampler, 0, BindlessSamplerSlots),
		instanceInfoSize:      uint64(len(toBufferBytes(&InstanceInformation{}))),
		textureIndicesSize:    uint64(len(toBufferBytes(&TextureIndices{}))),
	}
	s.rasterViews = append(s.rasterViews, dev.RequestRasterView(color))
	if motionVectors {
		s.rasterViews = append(s.rasterViews, dev.RequestRasterView(motion))
	}
	s.rasterViews = append(s.rasterViews, dev.RequestRasterView(depth))
	return s, pool
}

var nextTestSurfaceID uint32

func testSurface(material *Material, attrs ...VertexAttribute) *Surface {
	nextTestSurfaceID++
	s := &Surface{
		ID:       nextTestSurfaceID,
		Material: material,
		IndexBuffer: IndexBufferInfo{
			Address: BufferAddress{Buffer: "ib", Size: 36 * 2},
			Format:  IndexFormatUint16,
			Count:   36,
		},
	}
	for _, attr := range attrs {
		s.Attributes |= attr.Bit()
		format := FormatRGB32Float
		switch attr {
		case AttrTexCoord0, AttrTexCoord1:
			format = FormatRG32Float
		case AttrTangent, AttrColor0, AttrColor1:
			format = FormatRGBA32Float
		}
		s.VertexBuffers[attr] = VertexBufferInfo{
			Address: BufferAddress{Buffer: fmt.Sprintf("vb:%d:%d", s.ID, attr), Size: 24},
			Format:  format,
			Count:   24,
		}
	}
	return s
}

func opaqueMaterial(name string) *Material {
	return &Material{
		Name:         name,
		PBR:          true,
		MetalRough:   true,
		AlbedoFactor: mgl32.Vec4{1, 1, 1, 1},
	}
}

func texturedMaterial(name string, albedo Texture) *Material {
	m := opaqueMaterial(name)
	m.SetTexture(TextureAlbedo, &TextureInfo{
		Texture:     albedo,
		TexCoordSet: 0,
		SamplerDesc: SamplerDesc{Filter: FilterLinear},
	})
	return m
}

func activeEntity(name string) *Entity {
	return &Entity{Name: name, Active: true}
}

func meshBlock(owner *Entity, surfaces ...*Surface) *ContentBlock {
	block := NewContentBlock()
	block.AddEntity(owner, &MeshComponent{Mesh: &Mesh{Name: owner.Name, Surfaces: surfaces}})
	return block
}
