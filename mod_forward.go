package helio

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// ForwardModuleName is the render-technique selector value that makes the
// forward pass emit motion vectors.
const ForwardModuleName = "Forward"

// ForwardModule renders all resident opaque geometry with the forward
// technique, optionally writing motion vectors for the frame. Translucent
// surfaces are skipped entirely; shadow maps and skinned vertex data arrive
// precomputed from their own modules.
type ForwardModule struct {
	VariableShading bool
}

// ForwardState is the module resource: the pipeline permutation groups, the
// bindless texture/sampler table and the frame submission entry point.
//
// A single mutex serializes content load/unload (which may run on a loader
// goroutine) against frame submission's traversal of the groups.
type ForwardState struct {
	log     Logger
	device  Device
	pool    DynamicBufferPool
	params  ParameterSet
	content *ContentManager
	scene   *Scene
	display *Display

	variableShading       bool
	generateMotionVectors bool
	invertedDepth         bool

	colorTarget  Texture
	motionTarget Texture
	depthTarget  Texture
	rasterViews  []RasterView

	mu       sync.Mutex
	textures []boundTexture
	samplers []Sampler
	groups   []pipelineRenderGroup

	lighting LightingCBData

	instanceInfoSize   uint64
	textureIndicesSize uint64
}

func (mod ForwardModule) Install(app *App, cmd *Commands) {
	res := Resource[RenderResources](cmd)
	cfg := Resource[Config](cmd)
	scene := Resource[Scene](cmd)
	content := Resource[ContentManager](cmd)
	display := Resource[Display](cmd)
	if res == nil || cfg == nil || scene == nil || content == nil || display == nil {
		panic("ForwardModule requires the backend, config, scene, content and display resources")
	}
	ensureSingleTechnique(app, ForwardModuleName)

	s := &ForwardState{
		log:                   app.Logger(),
		device:                res.Device,
		pool:                  res.Pool,
		content:               content,
		scene:                 scene,
		display:               display,
		variableShading:       mod.VariableShading,
		generateMotionVectors: cfg.MotionVectorGeneration == ForwardModuleName,
		invertedDepth:         cfg.InvertedDepth,
		textures:              make([]boundTexture, 0, BindlessTextureSlots),
		samplers:              make([]Sampler, 0, BindlessSamplerSlots),
		instanceInfoSize:      uint64(len(toBufferBytes(&InstanceInformation{}))),
		textureIndicesSize:    uint64(len(toBufferBytes(&TextureIndices{}))),
	}

	s.colorTarget = res.Targets.Get(TargetColor)
	s.depthTarget = res.Targets.Get(TargetDepth)
	if s.colorTarget == nil || s.depthTarget == nil {
		panic("ForwardModule requires the color and depth targets to be registered")
	}
	s.rasterViews = append(s.rasterViews, s.device.RequestRasterView(s.colorTarget))
	if s.generateMotionVectors {
		s.motionTarget = res.Targets.Get(TargetMotionVector)
		if s.motionTarget == nil {
			panic("motion vector generation enabled but no motion vector target registered")
		}
		s.rasterViews = append(s.rasterViews, s.device.RequestRasterView(s.motionTarget))
	}
	s.rasterViews = append(s.rasterViews, s.device.RequestRasterView(s.depthTarget))

	s.params = s.device.CreateParameterSet()

	// The full shadow map pool is pre-bound; Execute swaps slot 0 for the
	// screen-space shadow texture when one exists.
	for i, t := range scene.ShadowMaps() {
		s.params.SetTextureSlot(t, ViewDim2D, SlotShadowMaps+uint32(i))
	}

	content.AddListener(s)
	app.OnShutdown(s.teardown)
	app.UseSystem(System(forwardRenderSystem).InStage(Render))
	cmd.AddResources(s)
}

func forwardRenderSystem(s *ForwardState, t *Time, frame *FrameContext) {
	if frame.CmdList == nil {
		return
	}
	s.Execute(t.Dt.Seconds(), frame.CmdList)
}

// teardown unregisters from content notifications and verifies every loaded
// surface was unloaded first; leftovers mean an upstream lifecycle bug.
func (s *ForwardState) teardown() {
	s.content.RemoveListener(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.groups {
		if len(s.groups[i].surfaces) != 0 {
			panic(fmt.Sprintf("forward teardown: pipeline group %d still holds %d surfaces", i, len(s.groups[i].surfaces)))
		}
	}
	for i := range s.groups {
		s.groups[i].pipeline.Release()
	}
	for _, sampler := range s.samplers {
		sampler.Release()
	}
	s.groups = nil
	s.samplers = nil
	s.textures = nil
}

// OnContentLoaded registers every opaque surface of every newly loaded mesh
// component: resolves its bindless texture slots, assigns it to a pipeline
// render group (building the pipeline for a first-seen permutation) and
// republishes the resource table.
func (s *ForwardState) OnContentLoaded(block *ContentBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entityData := range block.Entities {
		for _, component := range entityData.Components {
			meshComp, ok := component.(*MeshComponent)
			if !ok {
				continue
			}
			for _, surface := range meshComp.Mesh.Surfaces {
				// Forward only handles opaques.
				if surface.HasTranslucency() {
					continue
				}

				material := surface.Material
				info := pipelineSurfaceRenderInfo{
					owner:          entityData.Entity,
					surface:        surface,
					textureIndices: newTextureIndices(),
				}

				if material.PBR {
					info.textureIndices.AlbedoTextureIndex, info.textureIndices.AlbedoSamplerIndex =
						s.addTexture(material, TextureAlbedo)
					if material.MetalRough {
						info.textureIndices.MetalRoughSpecGlossTextureIndex, info.textureIndices.MetalRoughSpecGlossSamplerIndex =
							s.addTexture(material, TextureMetalRough)
					} else if material.SpecGloss {
						info.textureIndices.MetalRoughSpecGlossTextureIndex, info.textureIndices.MetalRoughSpecGlossSamplerIndex =
							s.addTexture(material, TextureSpecGloss)
					}
				}
				info.textureIndices.NormalTextureIndex, info.textureIndices.NormalSamplerIndex =
					s.addTexture(material, TextureNormal)
				info.textureIndices.EmissiveTextureIndex, info.textureIndices.EmissiveSamplerIndex =
					s.addTexture(material, TextureEmissive)
				info.textureIndices.OcclusionTextureIndex, info.textureIndices.OcclusionSamplerIndex =
					s.addTexture(material, TextureOcclusion)

				group := s.pipelineGroupFor(surface)
				s.groups[group].surfaces = append(s.groups[group].surfaces, info)
			}
		}
	}

	s.publishResourceTable()
}

// OnContentUnloaded removes the surfaces of every unloaded mesh component,
// releasing their texture references. A surface lives in exactly one group;
// surfaces never registered (translucent, already removed) are ignored.
func (s *ForwardState) OnContentUnloaded(block *ContentBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entityData := range block.Entities {
		for _, component := range entityData.Components {
			meshComp, ok := component.(*MeshComponent)
			if !ok {
				continue
			}
			for _, surface := range meshComp.Mesh.Surfaces {
				s.removeSurface(entityData.Entity, surface)
			}
		}
	}

	s.publishResourceTable()
}

func (s *ForwardState) removeSurface(owner *Entity, surface *Surface) {
	for g := range s.groups {
		group := &s.groups[g]
		for i := range group.surfaces {
			entry := &group.surfaces[i]
			if entry.owner != owner || entry.surface != surface {
				continue
			}

			s.removeTexture(entry.textureIndices.AlbedoTextureIndex)
			s.removeTexture(entry.textureIndices.MetalRoughSpecGlossTextureIndex)
			s.removeTexture(entry.textureIndices.NormalTextureIndex)
			s.removeTexture(entry.textureIndices.EmissiveTextureIndex)
			s.removeTexture(entry.textureIndices.OcclusionTextureIndex)

			group.surfaces = append(group.surfaces[:i], group.surfaces[i+1:]...)
			return
		}
	}
}

// Execute submits one frame of forward draws. Target buffers arrive and
// leave in shader-read state.
func (s *ForwardState) Execute(deltaTime float64, cmdList CommandList) {
	cmdList.BeginMarker("Forward")
	defer cmdList.EndMarker()

	// Rebinding shares the parameter set with the loader-side resource
	// table publish, so it runs under the same lock.
	s.mu.Lock()
	s.bindFrameTextures()
	s.mu.Unlock()

	barriers := []Barrier{
		{Resource: s.colorTarget, Before: StateShaderResource, After: StateRenderTarget},
		{Resource: s.depthTarget, Before: StateShaderResource, After: StateDepthWrite},
	}
	if s.generateMotionVectors {
		barriers = append(barriers, Barrier{Resource: s.motionTarget, Before: StateShaderResource, After: StateRenderTarget})
	}
	cmdList.Transition(barriers...)

	clearColor := [4]float32{0, 0, 0, 0}
	cmdList.ClearRenderTarget(s.rasterViews[0], clearColor)
	if s.generateMotionVectors {
		cmdList.ClearRenderTarget(s.rasterViews[1], clearColor)
	}
	clearDepth := float32(1)
	if s.invertedDepth {
		clearDepth = 0
	}
	depthView := s.rasterViews[len(s.rasterViews)-1]
	cmdList.ClearDepthStencil(depthView, clearDepth)

	var vrs VRSInfo
	if s.variableShading {
		vrs = s.device.VRSInfo()
	}
	cmdList.BeginRaster(s.rasterViews[:len(s.rasterViews)-1], depthView, vrs)

	// Per-frame constants are uploaded once.
	s.params.UpdateRootConstantBuffer(CBSlotFrame, s.pool.AllocConstantBuffer(toBufferBytes(&s.scene.Info)))
	s.params.UpdateRootConstantBuffer(CBSlotSceneLighting, s.pool.AllocConstantBuffer(toBufferBytes(&s.scene.LightInfo)))

	s.lighting.IBLFactor = s.scene.IBLFactor
	s.lighting.SpecularIBLFactor = s.scene.SpecularIBLFactor
	s.params.UpdateRootConstantBuffer(CBSlotIBLFactor, s.pool.AllocConstantBuffer(toBufferBytes(&s.lighting)))

	width, height := s.display.ActiveExtent()
	cmdList.SetViewportScissor(0, 0, width, height, 0, 1)
	cmdList.SetPrimitiveTopology(TopologyTriangleList)

	s.mu.Lock()
	s.drawGroups(cmdList)
	s.mu.Unlock()

	cmdList.EndRaster(vrs)

	barriers = barriers[:0]
	barriers = append(barriers,
		Barrier{Resource: s.colorTarget, Before: StateRenderTarget, After: StateShaderResource},
		Barrier{Resource: s.depthTarget, Before: StateDepthWrite, After: StateShaderResource},
	)
	if s.generateMotionVectors {
		barriers = append(barriers, Barrier{Resource: s.motionTarget, Before: StateRenderTarget, After: StateShaderResource})
	}
	cmdList.Transition(barriers...)
}

// bindFrameTextures refreshes the fixed IBL slots and the shadow source.
// A screen-space shadow texture takes slot 0 of the shadow block and wins
// over the shadow map pool; absent textures are simply skipped this frame.
// Caller holds the state mutex.
func (s *ForwardState) bindFrameTextures() {
	if t := s.scene.BRDFLut; t != nil {
		s.params.SetTextureSlot(t, ViewDim2D, SlotBRDFLut)
	}
	if t := s.scene.IBLTexture(IBLIrradiance); t != nil {
		s.params.SetTextureSlot(t, ViewDimCube, SlotIrradianceCube)
	}
	if t := s.scene.IBLTexture(IBLPrefiltered); t != nil {
		s.params.SetTextureSlot(t, ViewDimCube, SlotPrefilteredCube)
	}

	if t := s.scene.ScreenSpaceShadow; t != nil {
		s.params.SetTextureSlot(t, ViewDim2D, SlotShadowMaps)
		return
	}
	shadowMaps := s.scene.ShadowMaps()
	if len(shadowMaps) == 0 {
		return
	}
	if len(shadowMaps) > MaxShadowMapCount {
		panic(fmt.Sprintf("forward pass supports up to %d shadow maps, scene has %d", MaxShadowMapCount, len(shadowMaps)))
	}
	for i, t := range shadowMaps {
		s.params.SetTextureSlot(t, ViewDim2D, SlotShadowMaps+uint32(i))
	}
}

// drawGroups walks the pipeline groups in creation order and issues one
// indexed draw per active surface. Caller holds the state mutex.
func (s *ForwardState) drawGroups(cmdList CommandList) {
	vertexBuffers := make([]BufferAddress, 0, AttrCount)

	for g := range s.groups {
		group := &s.groups[g]

		activeCount := 0
		for i := range group.surfaces {
			if group.surfaces[i].owner.IsActive() {
				activeCount++
			}
		}
		if activeCount == 0 {
			continue
		}

		cmdList.SetPipeline(group.pipeline)

		instanceSlots := s.pool.BatchAllocConstantBuffers(s.instanceInfoSize, activeCount)
		textureIndexSlots := s.pool.BatchAllocConstantBuffers(s.textureIndicesSize, activeCount)
		current := 0

		for i := range group.surfaces {
			entry := &group.surfaces[i]
			if !entry.owner.IsActive() {
				continue
			}

			surface := entry.surface
			material := surface.Material

			// Transforms are assumed unscaled; the shader does not
			// renormalize.
			instance := InstanceInformation{
				WorldTransform:     entry.owner.Transform,
				PrevWorldTransform: entry.owner.PrevTransform,
				Material: MaterialInformation{
					AlbedoFactor: mgl32.Vec4{1, 1, 1, 1},
					AlphaCutoff:  material.AlphaCutoff,
				},
			}
			if material.PBR {
				instance.Material.EmissiveFactor = material.EmissiveFactor
				instance.Material.AlbedoFactor = material.AlbedoFactor
				if material.MetalRough || material.SpecGloss {
					instance.Material.PBRParams = material.PBRParams
				}
			}

			s.pool.WriteConstantBuffer(instanceSlots[current], toBufferBytes(&instance))
			s.pool.WriteConstantBuffer(textureIndexSlots[current], toBufferBytes(&entry.textureIndices))
			s.params.UpdateRootConstantBuffer(CBSlotInstance, instanceSlots[current])
			s.params.UpdateRootConstantBuffer(CBSlotTextureIndices, textureIndexSlots[current])
			current++

			s.params.Bind(cmdList, group.pipeline)

			vertexBuffers = vertexBuffers[:0]
			for attr := VertexAttribute(0); attr < AttrCount; attr++ {
				if group.usedAttributes.Has(attr) {
					vertexBuffers = append(vertexBuffers, surface.VertexBuffer(attr).Address)
				}
			}

			// Skinned entities override the position/normal streams (layout
			// slots 0 and 1) and the trailing previous-position stream with
			// the precomputed skinned buffers for this surface.
			if skin := entry.owner.Skin; skin != nil && skin.SkinID != -1 {
				vertexBuffers[0] = skin.SkinnedPositions[surface.ID]
				vertexBuffers[1] = skin.SkinnedNormals[surface.ID]
				vertexBuffers[len(vertexBuffers)-1] = skin.SkinnedPrevPositions[surface.ID]
			}

			cmdList.SetVertexBuffers(vertexBuffers)
			cmdList.SetIndexBuffer(surface.IndexBuffer.Address, surface.IndexBuffer.Format)
			cmdList.DrawIndexed(surface.IndexBuffer.Count)
		}
	}
}
