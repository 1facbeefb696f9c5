package helio

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
)

// pipelineSurfaceRenderInfo ties a loaded surface to its owner entity and
// the bindless slots resolved for it. Owner and surface pointers are weak;
// the scene and mesh own them.
type pipelineSurfaceRenderInfo struct {
	owner          *Entity
	surface        *Surface
	textureIndices TextureIndices
}

// pipelineRenderGroup is one compiled pipeline permutation plus every
// resident surface drawn with it. Groups are append-only; an emptied group
// keeps its index until module teardown.
type pipelineRenderGroup struct {
	pipeline       PipelineObject
	hash           uint64
	usedAttributes AttributeMask
	surfaces       []pipelineSurfaceRenderInfo
}

// renderableAttributes are the streams the forward shader consumes whenever
// the geometry supplies them. Texcoord streams join the used set only when a
// texture actually samples them.
const renderableAttributes = AttributeMask(1)<<AttrPosition |
	AttributeMask(1)<<AttrNormal |
	AttributeMask(1)<<AttrTangent |
	AttributeMask(1)<<AttrColor0 |
	AttributeMask(1)<<AttrColor1 |
	AttributeMask(1)<<AttrPreviousPosition

// addTextureDefines emits the presence and texcoord-set defines for one
// texture class, and marks the texcoord stream used. A texture whose UV
// stream is missing from the surface contributes nothing.
func addTextureDefines(defines map[string]string, used *AttributeMask, surfaceAttributes AttributeMask, material *Material, class TextureClass, textureDefine, texCoordDefine string) {
	info := material.TextureInfo(class)
	if info == nil {
		return
	}
	coordAttr := TexCoordAttribute(info.TexCoordSet)
	if !surfaceAttributes.Has(coordAttr) {
		return
	}
	defines[textureDefine] = "1"
	defines[texCoordDefine] = strconv.Itoa(int(info.TexCoordSet))
	*used |= coordAttr.Bit()
}

// surfaceDefines derives the shader define set and used-attribute mask for a
// surface. The returned map is order-free; hashing sorts it.
func (s *ForwardState) surfaceDefines(surface *Surface) (map[string]string, AttributeMask) {
	used := renderableAttributes & surface.Attributes
	defines := make(map[string]string)
	material := surface.Material

	if s.generateMotionVectors {
		defines["HAS_MOTION_VECTORS"] = "1"
		defines["HAS_MOTION_VECTORS_RT"] = "1"
	}

	if material.PBR {
		if material.MetalRough {
			defines["MATERIAL_METALLICROUGHNESS"] = ""
			addTextureDefines(defines, &used, surface.Attributes, material, TextureAlbedo, "ID_albedoTexture", "ID_albedoTexCoord")
			addTextureDefines(defines, &used, surface.Attributes, material, TextureMetalRough, "ID_metallicRoughnessTexture", "ID_metallicRoughnessTexCoord")
		} else if material.SpecGloss {
			defines["MATERIAL_SPECULARGLOSSINESS"] = ""
			addTextureDefines(defines, &used, surface.Attributes, material, TextureAlbedo, "ID_albedoTexture", "ID_albedoTexCoord")
			addTextureDefines(defines, &used, surface.Attributes, material, TextureSpecGloss, "ID_specularGlossinessTexture", "ID_specularGlossinessTexCoord")
		}
	}
	addTextureDefines(defines, &used, surface.Attributes, material, TextureNormal, "ID_normalTexture", "ID_normalTexCoord")
	addTextureDefines(defines, &used, surface.Attributes, material, TextureEmissive, "ID_emissiveTexture", "ID_emissiveTexCoord")
	addTextureDefines(defines, &used, surface.Attributes, material, TextureOcclusion, "ID_occlusionTexture", "ID_occlusionTexCoord")

	if material.DoubleSided {
		defines["ID_doublesided"] = ""
	}
	if material.Blend == BlendMask {
		defines["ID_alphaMask"] = ""
	}

	AttributeDefines(used, defines)

	return defines, used
}

// permutationHash folds a define set and attribute mask into a 64-bit FNV-1a
// hash. Defines are sorted first so insertion order never changes the hash.
func permutationHash(defines map[string]string, used AttributeMask) uint64 {
	keys := make([]string, 0, len(defines))
	for k := range defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := fnv.New64a()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(defines[k]))
		h.Write([]byte{0})
	}
	var maskBytes [4]byte
	binary.LittleEndian.PutUint32(maskBytes[:], uint32(used))
	h.Write(maskBytes[:])
	return h.Sum64()
}

// pipelineGroupFor returns the index of the render group matching the
// surface's permutation, compiling a new pipeline for a never-seen hash.
// Callers hold the state mutex; the surface itself is not inserted here.
func (s *ForwardState) pipelineGroupFor(surface *Surface) int {
	defines, used := s.surfaceDefines(surface)
	hash := permutationHash(defines, used)

	for i := range s.groups {
		if s.groups[i].hash == hash {
			return i
		}
	}

	desc := &PipelineDesc{
		Defines:      defines,
		ColorFormats: []Format{s.colorTarget.Format()},
		DepthFormat:  s.depthTarget.Format(),
		CullMode:     CullFront,
		Topology:     TopologyTriangleList,
		Depth: DepthDesc{
			TestEnable:  true,
			WriteEnable: true,
			Func:        CompareLess,
		},
	}
	if s.generateMotionVectors {
		desc.ColorFormats = append(desc.ColorFormats, s.motionTarget.Format())
	}
	if surface.Material.DoubleSided {
		desc.CullMode = CullNone
	}

	// Input layout slots follow ascending attribute order over the used mask.
	for attr := VertexAttribute(0); attr < AttrCount; attr++ {
		if used.Has(attr) {
			desc.InputLayout = append(desc.InputLayout, InputLayoutEntry{
				Attribute: attr,
				Format:    surface.VertexBuffer(attr).Format,
				Slot:      uint32(len(desc.InputLayout)),
			})
		}
	}

	pipeline, err := s.device.CreatePipeline("ForwardPass_Pipeline", desc)
	if err != nil {
		panic(fmt.Sprintf("building forward pipeline permutation %016x: %v", hash, err))
	}

	s.groups = append(s.groups, pipelineRenderGroup{
		pipeline:       pipeline,
		hash:           hash,
		usedAttributes: used,
	})
	return len(s.groups) - 1
}
