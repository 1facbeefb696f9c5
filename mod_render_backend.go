package helio

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
)

// RenderBackendModule brings up wgpu over the application window, allocates
// the offscreen render targets and publishes the backend resources render
// modules consume. Requires WindowModule.
type RenderBackendModule struct {
	InvertedDepth          bool
	MotionVectorGeneration string
}

// renderBackendState drives frame submission; render modules never touch it.
type renderBackendState struct {
	surface       *wgpu.Surface
	device        *wgpu.Device
	queue         *wgpu.Queue
	surfaceConfig *wgpu.SurfaceConfiguration

	backend *wgpuDevice
	pool    *wgpuBufferPool
	color   *wgpuTexture

	blitPipeline  *wgpu.RenderPipeline
	blitBindGroup *wgpu.BindGroup
}

func (mod RenderBackendModule) Install(app *App, cmd *Commands) {
	win := Resource[WindowState](cmd)
	if win == nil {
		panic("RenderBackendModule requires WindowModule")
	}

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win.Window))
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		panic(err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		panic(err)
	}
	queue := device.GetQueue()

	caps := surface.GetCapabilities(adapter)
	surfaceConfig := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(win.Width),
		Height:      uint32(win.Height),
		PresentMode: wgpu.PresentModeFifo, // vsync
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, &surfaceConfig)

	pool := newWgpuBufferPool(device, queue)
	backend := newWgpuDevice(device, queue, pool)

	width, height := uint32(win.Width), uint32(win.Height)
	color := backend.newRenderTarget(TargetColor, width, height, FormatRGBA16Float)
	motion := backend.newRenderTarget(TargetMotionVector, width, height, FormatRG16Float)
	depth := backend.newRenderTarget(TargetDepth, width, height, FormatDepth32Float)

	targets := NewTargetRegistry()
	targets.Register(TargetColor, color)
	targets.Register(TargetMotionVector, motion)
	targets.Register(TargetDepth, depth)

	state := &renderBackendState{
		surface:       surface,
		device:        device,
		queue:         queue,
		surfaceConfig: &surfaceConfig,
		backend:       backend,
		pool:          pool,
		color:         color,
	}
	state.createBlitPass()

	cmd.AddResources(
		state,
		&RenderResources{Device: backend, Pool: pool, Targets: targets},
		&FrameContext{},
		&Display{
			RenderWidth:   width,
			RenderHeight:  height,
			UpscaleWidth:  width,
			UpscaleHeight: height,
			Upscaler:      UpscalerNone,
		},
		&Config{
			InvertedDepth:          mod.InvertedDepth,
			MotionVectorGeneration: mod.MotionVectorGeneration,
		},
	)

	app.UseSystem(System(beginFrameSystem).InStage(PreRender))
	app.UseSystem(System(endFrameSystem).InStage(PostRender))
	app.OnShutdown(func() {
		device.Release()
		surface.Release()
	})
}

// createBlitPass builds the color-target-to-swapchain copy pipeline.
func (state *renderBackendState) createBlitPass() {
	shader, err := state.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "BlitShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: blitWGSL},
	})
	if err != nil {
		panic(err)
	}
	defer shader.Release()

	layout, err := state.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "BlitBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	pipelineLayout, err := state.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		panic(err)
	}

	pipeline, err := state.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "BlitPipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    state.surfaceConfig.Format,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	})
	if err != nil {
		panic(err)
	}
	state.blitPipeline = pipeline

	bindGroup, err := state.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "BlitBindGroup",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: state.color.view, Size: wgpu.WholeSize},
			{Binding: 1, Sampler: state.backend.linear, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(err)
	}
	state.blitBindGroup = bindGroup
}

func beginFrameSystem(state *renderBackendState, frame *FrameContext) {
	state.pool.reset()
	encoder, err := state.device.CreateCommandEncoder(nil)
	if err != nil {
		panic(err)
	}
	frame.CmdList = newWgpuCommandList(encoder)
}

func endFrameSystem(state *renderBackendState, frame *FrameContext) {
	list, ok := frame.CmdList.(*wgpuCommandList)
	if !ok {
		return
	}
	frame.CmdList = nil

	nextTexture, err := state.surface.GetCurrentTexture()
	if err != nil {
		panic(err)
	}
	view, err := nextTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}
	defer view.Release()

	renderPass := list.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})
	renderPass.SetPipeline(state.blitPipeline)
	renderPass.SetBindGroup(0, state.blitBindGroup, nil)
	renderPass.Draw(3, 1, 0, 0)
	if err := renderPass.End(); err != nil {
		panic(err)
	}
	renderPass.Release()

	cmdBuffer, err := list.encoder.Finish(nil)
	if err != nil {
		panic(err)
	}
	defer cmdBuffer.Release()
	list.encoder.Release()

	state.queue.Submit(cmdBuffer)
	state.surface.Present()
}
