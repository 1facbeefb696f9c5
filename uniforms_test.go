package helio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBufferBytes_blockSizes(t *testing.T) {
	// These sizes are part of the shader binding contract.
	assert.Equal(t, 224, len(toBufferBytes(&SceneInformation{})))
	assert.Equal(t, 192, len(toBufferBytes(&InstanceInformation{})))
	assert.Equal(t, 48, len(toBufferBytes(&TextureIndices{})))
	assert.Equal(t, 64, len(toBufferBytes(&LightInformation{})))
	assert.Equal(t, 16+MaxLightCount*64, len(toBufferBytes(&SceneLightingInformation{})))
	assert.Equal(t, 16, len(toBufferBytes(&LightingCBData{})))
}

func TestToBufferBytes_littleEndianLayout(t *testing.T) {
	indices := newTextureIndices()
	indices.NormalTextureIndex = 7

	raw := toBufferBytes(&indices)
	require.Len(t, raw, 48)

	// Field order follows the struct; sentinels serialize as -1.
	assert.Equal(t, uint32(0xFFFFFFFF), binary.LittleEndian.Uint32(raw[0:4]))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(raw[16:20]))
}

func TestNewTextureIndices_allUnbound(t *testing.T) {
	indices := newTextureIndices()
	assert.Equal(t, UnboundTextureIndex, indices.AlbedoTextureIndex)
	assert.Equal(t, UnboundTextureIndex, indices.OcclusionSamplerIndex)
}

func TestToBufferBytes_matrixData(t *testing.T) {
	instance := InstanceInformation{}
	instance.WorldTransform[0] = 2.5

	raw := toBufferBytes(&instance)
	bits := binary.LittleEndian.Uint32(raw[0:4])
	assert.Equal(t, float32(2.5), math.Float32frombits(bits))
}
