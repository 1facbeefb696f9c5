package helio

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Entity is a scene object. Entities are owned by the Scene arena; render
// modules keep non-owning pointers whose validity is bounded by content
// residency.
type Entity struct {
	Name          string
	Active        bool
	Transform     mgl32.Mat4
	PrevTransform mgl32.Mat4

	// Skin is set when the entity carries precomputed skinned vertex
	// streams. Nil for rigid geometry.
	Skin *SkinComponent
}

func (e *Entity) IsActive() bool {
	return e != nil && e.Active
}

// SkinComponent references the skinned vertex buffers produced by the
// animation system, keyed by surface ID. SkinID of -1 means no skin is
// bound this frame.
type SkinComponent struct {
	SkinID               int32
	SkinnedPositions     map[uint32]BufferAddress
	SkinnedNormals       map[uint32]BufferAddress
	SkinnedPrevPositions map[uint32]BufferAddress
}

type IBLTextureKind uint32

const (
	IBLIrradiance IBLTextureKind = iota
	IBLPrefiltered
)

// Scene owns the entity arena and the per-frame shared render inputs:
// camera/lighting constants, the IBL texture set, and the shadow sources.
type Scene struct {
	entities []*Entity

	Info      SceneInformation
	LightInfo SceneLightingInformation

	IBLFactor         float32
	SpecularIBLFactor float32

	BRDFLut           Texture
	irradianceCube    Texture
	prefilteredCube   Texture
	ScreenSpaceShadow Texture

	shadowMaps []Texture
}

func NewScene() *Scene {
	return &Scene{
		IBLFactor:         1.0,
		SpecularIBLFactor: 1.0,
	}
}

func (s *Scene) AddEntity(e *Entity) *Entity {
	s.entities = append(s.entities, e)
	return e
}

func (s *Scene) Entities() []*Entity {
	return s.entities
}

func (s *Scene) SetIBLTexture(kind IBLTextureKind, t Texture) {
	switch kind {
	case IBLIrradiance:
		s.irradianceCube = t
	case IBLPrefiltered:
		s.prefilteredCube = t
	}
}

// IBLTexture returns nil when the scene has no texture of that kind loaded;
// callers skip the binding for the frame.
func (s *Scene) IBLTexture(kind IBLTextureKind) Texture {
	switch kind {
	case IBLIrradiance:
		return s.irradianceCube
	case IBLPrefiltered:
		return s.prefilteredCube
	default:
		return nil
	}
}

func (s *Scene) AddShadowMap(t Texture) {
	s.shadowMaps = append(s.shadowMaps, t)
}

func (s *Scene) ShadowMaps() []Texture {
	return s.shadowMaps
}

// SceneModule installs an empty Scene resource.
type SceneModule struct{}

func (m SceneModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewScene())
}
