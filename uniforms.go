package helio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/go-gl/mathgl/mgl32"
)

// Constant-buffer layouts shared with the forward shader stage. Field order
// and padding are part of the binding contract; keep them bit-compatible.

const MaxLightCount = 128

// UnboundTextureIndex is the sentinel for a texture class a surface does not
// use.
const UnboundTextureIndex int32 = -1

// SceneInformation is the per-frame camera block (CB slot 0).
type SceneInformation struct {
	ViewProj     mgl32.Mat4
	PrevViewProj mgl32.Mat4
	InvViewProj  mgl32.Mat4
	CameraPos    mgl32.Vec4
	MipLODBias   float32
	Pad          [3]float32
}

// LightInformation is one packed light entry in the scene lighting block.
type LightInformation struct {
	ColorIntensity mgl32.Vec4
	DirectionRange mgl32.Vec4
	PositionType   mgl32.Vec4
	ShadowMapIndex int32
	Pad            [3]int32
}

// SceneLightingInformation is the scene lighting block (CB slot 3).
type SceneLightingInformation struct {
	LightCount int32
	Pad        [3]int32
	Lights     [MaxLightCount]LightInformation
}

// MaterialInformation carries the scalar material factors of one draw.
type MaterialInformation struct {
	EmissiveFactor mgl32.Vec4
	AlbedoFactor   mgl32.Vec4
	PBRParams      mgl32.Vec4
	AlphaCutoff    float32
	Pad            [3]float32
}

// InstanceInformation is the per-draw instance block (CB slot 1).
type InstanceInformation struct {
	WorldTransform     mgl32.Mat4
	PrevWorldTransform mgl32.Mat4
	Material           MaterialInformation
}

// TextureIndices is the per-draw resolved bindless slot block (CB slot 2).
// Unused classes hold UnboundTextureIndex.
type TextureIndices struct {
	AlbedoTextureIndex              int32
	AlbedoSamplerIndex              int32
	MetalRoughSpecGlossTextureIndex int32
	MetalRoughSpecGlossSamplerIndex int32
	NormalTextureIndex              int32
	NormalSamplerIndex              int32
	EmissiveTextureIndex            int32
	EmissiveSamplerIndex            int32
	OcclusionTextureIndex           int32
	OcclusionSamplerIndex           int32
	Pad                             [2]int32
}

func newTextureIndices() TextureIndices {
	return TextureIndices{
		AlbedoTextureIndex:              UnboundTextureIndex,
		AlbedoSamplerIndex:              UnboundTextureIndex,
		MetalRoughSpecGlossTextureIndex: UnboundTextureIndex,
		MetalRoughSpecGlossSamplerIndex: UnboundTextureIndex,
		NormalTextureIndex:              UnboundTextureIndex,
		NormalSamplerIndex:              UnboundTextureIndex,
		EmissiveTextureIndex:            UnboundTextureIndex,
		EmissiveSamplerIndex:            UnboundTextureIndex,
		OcclusionTextureIndex:           UnboundTextureIndex,
		OcclusionSamplerIndex:           UnboundTextureIndex,
	}
}

// LightingCBData is the small IBL factor block (CB slot 4).
type LightingCBData struct {
	IBLFactor         float32
	SpecularIBLFactor float32
	Pad               [2]float32
}

// toBufferBytes serializes a constant-buffer struct to little-endian bytes,
// recursing through nested structs and arrays.
func toBufferBytes(data any) []byte {
	buf := new(bytes.Buffer)
	writeUniformBytes(reflect.ValueOf(data), buf)
	return buf.Bytes()
}

func writeUniformBytes(v reflect.Value, buf *bytes.Buffer) {
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			elem := v.Index(i)
			if elem.Kind() == reflect.Struct || elem.Kind() == reflect.Array {
				writeUniformBytes(elem, buf)
			} else {
				if err := binary.Write(buf, binary.LittleEndian, elem.Interface()); err != nil {
					panic(fmt.Errorf("failed to write element: %w", err))
				}
			}
		}

	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			writeUniformBytes(v.Field(i), buf)
		}

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Float32, reflect.Float64:
		if err := binary.Write(buf, binary.LittleEndian, v.Interface()); err != nil {
			panic(fmt.Errorf("failed to write scalar field: %w", err))
		}

	default:
		panic(fmt.Errorf("unsupported uniform type: %v", v.Kind()))
	}
}
