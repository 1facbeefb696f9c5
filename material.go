package helio

import "github.com/go-gl/mathgl/mgl32"

// TextureClass names the material texture bindings the forward pass
// resolves. MetalRough and SpecGloss share one shader binding; which one is
// live depends on the material workflow.
type TextureClass uint32

const (
	TextureAlbedo TextureClass = iota
	TextureMetalRough
	TextureSpecGloss
	TextureNormal
	TextureEmissive
	TextureOcclusion
	TextureClassCount
)

type MaterialBlend uint32

const (
	BlendOpaque MaterialBlend = iota
	BlendMask
	BlendAlphaBlend
)

// TextureInfo pairs a content-owned texture with the texcoord set it samples
// and the sampler it wants.
type TextureInfo struct {
	Texture     Texture
	TexCoordSet uint32
	SamplerDesc SamplerDesc
}

// Material describes the shading inputs of a surface. Owned by the content
// system; the render module only reads it.
type Material struct {
	Name        string
	DoubleSided bool
	Blend       MaterialBlend

	// PBR reports the material carries factor data at all; MetalRough and
	// SpecGloss select the workflow. MetalRough wins when both are set.
	PBR        bool
	MetalRough bool
	SpecGloss  bool

	EmissiveFactor mgl32.Vec4
	AlbedoFactor   mgl32.Vec4
	// PBRParams is metallic/roughness (x,y) or specular rgb + glossiness (w)
	// depending on the workflow.
	PBRParams   mgl32.Vec4
	AlphaCutoff float32

	textures [TextureClassCount]*TextureInfo
}

func (m *Material) SetTexture(class TextureClass, info *TextureInfo) {
	m.textures[class] = info
}

// TextureInfo returns the texture bound for a class, or nil when the
// material has none.
func (m *Material) TextureInfo(class TextureClass) *TextureInfo {
	if m == nil {
		return nil
	}
	return m.textures[class]
}
