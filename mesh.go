package helio

// VertexAttribute indexes the vertex streams a surface can carry. The order
// is the input-layout slot order; PreviousPosition must stay last so skinned
// overrides can address it as the final bound stream.
type VertexAttribute uint32

const (
	AttrPosition VertexAttribute = iota
	AttrNormal
	AttrTangent
	AttrTexCoord0
	AttrTexCoord1
	AttrColor0
	AttrColor1
	AttrPreviousPosition
	AttrCount
)

// AttributeMask is a bitmask over VertexAttribute values.
type AttributeMask uint32

func (a VertexAttribute) Bit() AttributeMask {
	return AttributeMask(1) << a
}

func (m AttributeMask) Has(a VertexAttribute) bool {
	return m&a.Bit() != 0
}

// TexCoordAttribute maps a texcoord set index to its vertex attribute.
func TexCoordAttribute(set uint32) VertexAttribute {
	return AttrTexCoord0 + VertexAttribute(set)
}

var attributeDefines = [AttrCount]string{
	AttrPosition:         "HAS_POSITION",
	AttrNormal:           "HAS_NORMAL",
	AttrTangent:          "HAS_TANGENT",
	AttrTexCoord0:        "HAS_TEXCOORD0",
	AttrTexCoord1:        "HAS_TEXCOORD1",
	AttrColor0:           "HAS_COLOR0",
	AttrColor1:           "HAS_COLOR1",
	AttrPreviousPosition: "HAS_PREVIOUSPOSITION",
}

// AttributeDefines appends one shader define per set bit of the mask.
func AttributeDefines(mask AttributeMask, defines map[string]string) {
	for attr := VertexAttribute(0); attr < AttrCount; attr++ {
		if mask.Has(attr) {
			defines[attributeDefines[attr]] = "1"
		}
	}
}

// VertexBufferInfo locates one attribute stream of a surface.
type VertexBufferInfo struct {
	Address BufferAddress
	Format  Format
	Count   uint32
}

// IndexBufferInfo locates the index stream of a surface.
type IndexBufferInfo struct {
	Address BufferAddress
	Format  IndexFormat
	Count   uint32
}

// Surface is one drawable subset of a mesh with a single material. Surfaces
// are owned by their Mesh; render modules hold non-owning pointers.
type Surface struct {
	ID            uint32
	Material      *Material
	Attributes    AttributeMask
	VertexBuffers [AttrCount]VertexBufferInfo
	IndexBuffer   IndexBufferInfo
}

// HasTranslucency reports whether the surface needs blending and therefore
// falls outside the opaque pass.
func (s *Surface) HasTranslucency() bool {
	return s.Material != nil && s.Material.Blend == BlendAlphaBlend
}

// VertexBuffer returns the stream for an attribute; the zero value when the
// surface does not carry it.
func (s *Surface) VertexBuffer(attr VertexAttribute) VertexBufferInfo {
	return s.VertexBuffers[attr]
}

// Mesh groups the surfaces loaded from one model. Owned by the content
// system.
type Mesh struct {
	Name     string
	Surfaces []*Surface
}

// MeshComponent attaches a mesh to a scene entity. Carried in content block
// component lists.
type MeshComponent struct {
	Mesh *Mesh
}
