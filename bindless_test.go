package helio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTexture_unboundClassReturnsSentinels(t *testing.T) {
	s, _ := newTestForwardState(newFakeDevice(), false)

	texIndex, smpIndex := s.addTexture(opaqueMaterial("untextured"), TextureAlbedo)

	assert.Equal(t, UnboundTextureIndex, texIndex)
	assert.Equal(t, UnboundTextureIndex, smpIndex)
	assert.Empty(t, s.textures)
	assert.Empty(t, s.samplers)
}

func TestAddTexture_sharedTextureSharesSlot(t *testing.T) {
	s, _ := newTestForwardState(newFakeDevice(), false)
	albedo := &fakeTexture{name: "albedo"}
	m1 := texturedMaterial("a", albedo)
	m2 := texturedMaterial("b", albedo)

	i1, s1 := s.addTexture(m1, TextureAlbedo)
	i2, s2 := s.addTexture(m2, TextureAlbedo)

	assert.Equal(t, i1, i2, "same texture object must resolve to the same slot")
	assert.Equal(t, s1, s2)
	require.Len(t, s.textures, 1)
	assert.Equal(t, uint32(2), s.textures[0].count)
}

func TestAddTexture_samplerDedupByDescriptor(t *testing.T) {
	dev := newFakeDevice()
	s, _ := newTestForwardState(dev, false)

	m1 := texturedMaterial("a", &fakeTexture{name: "t1"})
	m2 := texturedMaterial("b", &fakeTexture{name: "t2"})
	m3 := texturedMaterial("c", &fakeTexture{name: "t3"})
	m3.TextureInfo(TextureAlbedo).SamplerDesc = SamplerDesc{Filter: FilterPoint}

	_, smp1 := s.addTexture(m1, TextureAlbedo)
	_, smp2 := s.addTexture(m2, TextureAlbedo)
	_, smp3 := s.addTexture(m3, TextureAlbedo)

	assert.Equal(t, smp1, smp2, "equal descriptors must share a sampler slot")
	assert.NotEqual(t, smp1, smp3)
	assert.Len(t, dev.samplers, 2)
}

func TestRemoveTexture_slotReusedAfterRelease(t *testing.T) {
	s, _ := newTestForwardState(newFakeDevice(), false)

	first, _ := s.addTexture(texturedMaterial("a", &fakeTexture{name: "t1"}), TextureAlbedo)
	second, _ := s.addTexture(texturedMaterial("b", &fakeTexture{name: "t2"}), TextureAlbedo)
	require.Equal(t, int32(0), first)
	require.Equal(t, int32(1), second)

	s.removeTexture(first)
	assert.Nil(t, s.textures[0].texture, "zero refcount clears the handle")
	assert.Len(t, s.textures, 2, "the slot itself stays in place")

	// The lowest free slot is taken before the table grows.
	reused, _ := s.addTexture(texturedMaterial("c", &fakeTexture{name: "t3"}), TextureAlbedo)
	assert.Equal(t, first, reused)
	assert.Len(t, s.textures, 2)
}

func TestRemoveTexture_sentinelIsNoop(t *testing.T) {
	s, _ := newTestForwardState(newFakeDevice(), false)
	s.removeTexture(UnboundTextureIndex)
	assert.Empty(t, s.textures)
}

func TestRemoveTexture_sharedSlotSurvivesOneRelease(t *testing.T) {
	s, _ := newTestForwardState(newFakeDevice(), false)
	albedo := &fakeTexture{name: "albedo"}

	index, _ := s.addTexture(texturedMaterial("a", albedo), TextureAlbedo)
	s.addTexture(texturedMaterial("b", albedo), TextureAlbedo)

	s.removeTexture(index)
	assert.Equal(t, uint32(1), s.textures[index].count)
	assert.NotNil(t, s.textures[index].texture)
}

func TestAddTexture_samplerFailureReturnsSentinels(t *testing.T) {
	dev := newFakeDevice()
	dev.failSampler = true
	s, _ := newTestForwardState(dev, false)

	texIndex, smpIndex := s.addTexture(texturedMaterial("a", &fakeTexture{name: "t1"}), TextureAlbedo)

	assert.Equal(t, UnboundTextureIndex, texIndex)
	assert.Equal(t, UnboundTextureIndex, smpIndex)
	assert.Empty(t, s.textures, "a surface without a sampler must not claim a texture slot")
}

func TestPublishResourceTable_rewritesClearedSlots(t *testing.T) {
	s, _ := newTestForwardState(newFakeDevice(), false)
	params := s.params.(*fakeParameterSet)

	first, _ := s.addTexture(texturedMaterial("a", &fakeTexture{name: "t1"}), TextureAlbedo)
	s.addTexture(texturedMaterial("b", &fakeTexture{name: "t2"}), TextureAlbedo)
	s.publishResourceTable()
	require.Contains(t, params.textures, uint32(first))

	s.removeTexture(first)
	s.publishResourceTable()

	assert.NotContains(t, params.textures, uint32(first), "cleared slots are published as unbound")
	assert.Contains(t, params.textures, uint32(1))
	assert.Contains(t, params.samplers, uint32(0))
}
