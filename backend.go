package helio

import "fmt"

// Fixed binding layout shared with the forward shader stage. The slot
// numbering is a bit-compatibility contract; renumbering breaks compiled
// shaders.
const (
	MaxTextureCount   = 1000
	MaxSamplerCount   = 20
	MaxShadowMapCount = 15

	// Content textures occupy the first half of the texture ceiling as a
	// contiguous bindless range, samplers likewise.
	BindlessTextureSlots = MaxTextureCount / 2
	BindlessSamplerSlots = MaxSamplerCount / 2

	SlotBRDFLut         = BindlessTextureSlots
	SlotIrradianceCube  = BindlessTextureSlots + 1
	SlotPrefilteredCube = BindlessTextureSlots + 2
	SlotShadowMaps      = BindlessTextureSlots + 3

	SlotSamplerPrefiltered = BindlessSamplerSlots
	SlotSamplerIrradiance  = BindlessSamplerSlots + 1
	SlotSamplerBRDF        = BindlessSamplerSlots + 2
	SlotSamplerComparison  = BindlessSamplerSlots + 3
)

// Root constant-buffer slots.
const (
	CBSlotFrame          = 0
	CBSlotInstance       = 1
	CBSlotTextureIndices = 2
	CBSlotSceneLighting  = 3
	CBSlotIBLFactor      = 4
)

// Well-known render target names registered by the backend module.
const (
	TargetColor        = "ColorTarget"
	TargetMotionVector = "MotionVectorTarget"
	TargetDepth        = "DepthTarget"
)

type Format uint32

const (
	FormatUnknown Format = iota
	FormatRGBA8Unorm
	FormatRGBA8UnormSrgb
	FormatRGBA16Float
	FormatRG16Float
	FormatRG32Float
	FormatRGB32Float
	FormatRGBA32Float
	FormatDepth32Float
)

type ResourceState uint32

const (
	StateShaderResource ResourceState = 1 << iota
	StateRenderTarget
	StateDepthWrite
)

// Barrier describes a resource state transition recorded on a command list.
type Barrier struct {
	Resource Texture
	Before   ResourceState
	After    ResourceState
}

type FilterMode uint32

const (
	FilterPoint FilterMode = iota
	FilterLinear
	FilterComparisonLinear
)

type AddressMode uint32

const (
	AddressWrap AddressMode = iota
	AddressMirror
	AddressClamp
)

type CompareFunc uint32

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual
	CompareAlways
)

// SamplerDesc is comparable; the bindless table deduplicates samplers by
// descriptor equality.
type SamplerDesc struct {
	Filter        FilterMode
	AddressU      AddressMode
	AddressV      AddressMode
	AddressW      AddressMode
	Comparison    CompareFunc
	MaxAnisotropy uint8
}

type CullMode uint32

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

type PrimitiveTopology uint32

const (
	TopologyTriangleList PrimitiveTopology = iota
)

type IndexFormat uint32

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

type ViewDimension uint32

const (
	ViewDim2D ViewDimension = iota
	ViewDimCube
)

// InputLayoutEntry maps one vertex attribute stream into the pipeline.
type InputLayoutEntry struct {
	Attribute VertexAttribute
	Format    Format
	Slot      uint32
}

// DepthDesc is the fixed-function depth state for a pipeline.
type DepthDesc struct {
	TestEnable  bool
	WriteEnable bool
	Func        CompareFunc
}

// PipelineDesc fully describes one graphics pipeline permutation. Defines
// feed the shader compile; the rest is fixed-function state.
type PipelineDesc struct {
	Defines      map[string]string
	ColorFormats []Format
	DepthFormat  Format
	CullMode     CullMode
	Topology     PrimitiveTopology
	InputLayout  []InputLayoutEntry
	Depth        DepthDesc
}

// Opaque backend object handles. The render modules never look inside these;
// they are created by a Device and handed back to command lists.
type (
	PipelineObject interface {
		Name() string
		Release()
	}

	Sampler interface {
		Desc() SamplerDesc
		Release()
	}

	Texture interface {
		Name() string
		Format() Format
	}

	// RasterView is a render-target view of a Texture.
	RasterView interface {
		Texture() Texture
	}

	// VRSInfo is the backend's variable-rate-shading handle; nil means
	// unsupported or disabled.
	VRSInfo any

	// GPUBuffer is an opaque GPU buffer handle.
	GPUBuffer any
)

// BufferAddress locates a range inside a GPU buffer. Zero value = unbound.
type BufferAddress struct {
	Buffer GPUBuffer
	Offset uint64
	Size   uint64
}

// Device creates long-lived GPU objects.
type Device interface {
	CreatePipeline(name string, desc *PipelineDesc) (PipelineObject, error)
	CreateSampler(name string, desc SamplerDesc) (Sampler, error)
	CreateTexture(name string, width, height uint32, format Format, texels []byte) (Texture, error)
	CreateVertexBuffer(name string, data []byte) (BufferAddress, error)
	CreateIndexBuffer(name string, data []byte) (BufferAddress, error)
	CreateParameterSet() ParameterSet
	RequestRasterView(t Texture) RasterView
	VRSInfo() VRSInfo
}

// DynamicBufferPool hands out transient per-frame constant buffer space.
// Allocations are valid for the frame they were made in.
type DynamicBufferPool interface {
	AllocConstantBuffer(data []byte) BufferAddress
	BatchAllocConstantBuffers(size uint64, count int) []BufferAddress
	WriteConstantBuffer(addr BufferAddress, data []byte)
}

// ParameterSet is the backend resource-binding table: texture/sampler slots
// plus the root constant buffers. Slot writes are cheap; the table takes
// effect at Bind.
type ParameterSet interface {
	SetTextureSlot(t Texture, dim ViewDimension, slot uint32)
	SetSamplerSlot(s Sampler, slot uint32)
	UpdateRootConstantBuffer(slot uint32, addr BufferAddress)
	Bind(cl CommandList, p PipelineObject)
}

// CommandList records GPU commands consumed by the backend at submit.
type CommandList interface {
	BeginMarker(name string)
	EndMarker()
	Transition(barriers ...Barrier)
	ClearRenderTarget(view RasterView, rgba [4]float32)
	ClearDepthStencil(view RasterView, depth float32)
	BeginRaster(colors []RasterView, depth RasterView, vrs VRSInfo)
	EndRaster(vrs VRSInfo)
	SetViewportScissor(x, y, width, height uint32, minDepth, maxDepth float32)
	SetPrimitiveTopology(topology PrimitiveTopology)
	SetPipeline(p PipelineObject)
	SetVertexBuffers(addrs []BufferAddress)
	SetIndexBuffer(addr BufferAddress, format IndexFormat)
	DrawIndexed(indexCount uint32)
}

// TargetRegistry names the shared render textures modules draw into.
type TargetRegistry struct {
	targets map[string]Texture
}

func NewTargetRegistry() *TargetRegistry {
	return &TargetRegistry{targets: make(map[string]Texture)}
}

func (r *TargetRegistry) Register(name string, t Texture) {
	if _, ok := r.targets[name]; ok {
		panic(fmt.Sprintf("render target %q is already registered", name))
	}
	r.targets[name] = t
}

// Get returns nil when the target does not exist (optional targets).
func (r *TargetRegistry) Get(name string) Texture {
	return r.targets[name]
}

// RenderResources bundles the backend objects render modules consume. The
// backend module installs it as an App resource.
type RenderResources struct {
	Device  Device
	Pool    DynamicBufferPool
	Targets *TargetRegistry
}

// FrameContext is refreshed by the backend module every frame. CmdList is
// nil when no swapchain image could be acquired; render systems skip the
// frame.
type FrameContext struct {
	CmdList CommandList
}

type UpscalerState uint32

const (
	UpscalerNone UpscalerState = iota
	UpscalerPreUpscale
	UpscalerPostUpscale
)

// Display carries the active resolution pair and the upscaler phase. Modules
// rendering before upscale use the render resolution, after it the upscale
// resolution.
type Display struct {
	RenderWidth   uint32
	RenderHeight  uint32
	UpscaleWidth  uint32
	UpscaleHeight uint32
	Upscaler      UpscalerState
}

// ActiveExtent resolves the viewport/scissor extent for the current upscaler
// phase.
func (d *Display) ActiveExtent() (uint32, uint32) {
	if d.Upscaler == UpscalerNone || d.Upscaler == UpscalerPostUpscale {
		return d.UpscaleWidth, d.UpscaleHeight
	}
	return d.RenderWidth, d.RenderHeight
}

// Config is the global render configuration, captured by modules at Install
// time rather than read through mutable globals.
type Config struct {
	// InvertedDepth selects the reversed-Z convention for depth comparisons.
	InvertedDepth bool
	// MotionVectorGeneration names the module responsible for writing the
	// motion vector target this run.
	MotionVectorGeneration string
}
