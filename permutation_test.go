package helio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermutationHash_orderIndependent(t *testing.T) {
	a := map[string]string{"HAS_POSITION": "1", "HAS_NORMAL": "1", "ID_albedoTexture": "1"}
	b := map[string]string{"ID_albedoTexture": "1", "HAS_POSITION": "1", "HAS_NORMAL": "1"}

	assert.Equal(t, permutationHash(a, 0b11), permutationHash(b, 0b11))
}

func TestPermutationHash_distinguishesContent(t *testing.T) {
	base := map[string]string{"HAS_POSITION": "1"}

	if permutationHash(base, 1) == permutationHash(map[string]string{"HAS_POSITION": "2"}, 1) {
		t.Error("define values must contribute to the hash")
	}
	if permutationHash(base, 1) == permutationHash(map[string]string{"HAS_NORMAL": "1"}, 1) {
		t.Error("define keys must contribute to the hash")
	}
	if permutationHash(base, 1) == permutationHash(base, 2) {
		t.Error("the attribute mask must contribute to the hash")
	}
}

func TestPermutationHash_keyValueBoundary(t *testing.T) {
	// "AB"="C" and "A"="BC" must not collide through concatenation.
	a := map[string]string{"AB": "C"}
	b := map[string]string{"A": "BC"}
	assert.NotEqual(t, permutationHash(a, 0), permutationHash(b, 0))
}

func TestSurfaceDefines_textureNeedsUVStream(t *testing.T) {
	s, _ := newTestForwardState(newFakeDevice(), false)
	material := texturedMaterial("m", &fakeTexture{name: "albedo"})

	// No texcoord stream on the geometry: the texture contributes nothing.
	bare := testSurface(material, AttrPosition, AttrNormal)
	defines, used := s.surfaceDefines(bare)
	assert.NotContains(t, defines, "ID_albedoTexture")
	assert.False(t, used.Has(AttrTexCoord0))

	// With the stream present the define appears and the stream is used.
	textured := testSurface(material, AttrPosition, AttrNormal, AttrTexCoord0)
	defines, used = s.surfaceDefines(textured)
	assert.Equal(t, "1", defines["ID_albedoTexture"])
	assert.Equal(t, "0", defines["ID_albedoTexCoord"])
	assert.True(t, used.Has(AttrTexCoord0))
}

func TestSurfaceDefines_usedAttributesIntersectGeometry(t *testing.T) {
	s, _ := newTestForwardState(newFakeDevice(), false)
	surface := testSurface(opaqueMaterial("m"), AttrPosition, AttrNormal, AttrTangent, AttrTexCoord0)

	defines, used := s.surfaceDefines(surface)

	// Untextured material: the texcoord stream exists but nothing samples
	// it, so it stays out of the permutation.
	assert.Equal(t, AttrPosition.Bit()|AttrNormal.Bit()|AttrTangent.Bit(), used)
	assert.Contains(t, defines, "HAS_POSITION")
	assert.Contains(t, defines, "HAS_TANGENT")
	assert.NotContains(t, defines, "HAS_TEXCOORD0")
}

func TestSurfaceDefines_materialModel(t *testing.T) {
	s, _ := newTestForwardState(newFakeDevice(), false)

	metalRough := opaqueMaterial("mr")
	defines, _ := s.surfaceDefines(testSurface(metalRough, AttrPosition))
	assert.Contains(t, defines, "MATERIAL_METALLICROUGHNESS")
	assert.NotContains(t, defines, "MATERIAL_SPECULARGLOSSINESS")

	// Metallic-roughness wins when a material claims both models.
	both := opaqueMaterial("both")
	both.SpecGloss = true
	defines, _ = s.surfaceDefines(testSurface(both, AttrPosition))
	assert.Contains(t, defines, "MATERIAL_METALLICROUGHNESS")
	assert.NotContains(t, defines, "MATERIAL_SPECULARGLOSSINESS")

	specGloss := opaqueMaterial("sg")
	specGloss.MetalRough = false
	specGloss.SpecGloss = true
	defines, _ = s.surfaceDefines(testSurface(specGloss, AttrPosition))
	assert.Contains(t, defines, "MATERIAL_SPECULARGLOSSINESS")

	masked := opaqueMaterial("masked")
	masked.Blend = BlendMask
	masked.DoubleSided = true
	defines, _ = s.surfaceDefines(testSurface(masked, AttrPosition))
	assert.Contains(t, defines, "ID_alphaMask")
	assert.Contains(t, defines, "ID_doublesided")
}

func TestSurfaceDefines_motionVectors(t *testing.T) {
	s, _ := newTestForwardState(newFakeDevice(), true)
	defines, _ := s.surfaceDefines(testSurface(opaqueMaterial("m"), AttrPosition))
	assert.Contains(t, defines, "HAS_MOTION_VECTORS")
	assert.Contains(t, defines, "HAS_MOTION_VECTORS_RT")
}

func TestPipelineGroupFor_oneGroupPerPermutation(t *testing.T) {
	dev := newFakeDevice()
	s, _ := newTestForwardState(dev, false)
	material := opaqueMaterial("m")

	first := s.pipelineGroupFor(testSurface(material, AttrPosition, AttrNormal))
	second := s.pipelineGroupFor(testSurface(material, AttrPosition, AttrNormal))

	assert.Equal(t, first, second)
	assert.Len(t, dev.pipelines, 1, "the second surface must reuse the compiled pipeline")
}

func TestPipelineGroupFor_unusedStreamsShareGroups(t *testing.T) {
	dev := newFakeDevice()
	s, _ := newTestForwardState(dev, false)
	material := opaqueMaterial("m")

	// The second surface carries an extra texcoord stream no texture uses;
	// its permutation is identical.
	plain := s.pipelineGroupFor(testSurface(material, AttrPosition, AttrNormal))
	extra := s.pipelineGroupFor(testSurface(material, AttrPosition, AttrNormal, AttrTexCoord0))

	assert.Equal(t, plain, extra)
	assert.Len(t, dev.pipelines, 1)
}

func TestPipelineGroupFor_pipelineStateFromSurface(t *testing.T) {
	dev := newFakeDevice()
	s, _ := newTestForwardState(dev, false)

	s.pipelineGroupFor(testSurface(opaqueMaterial("m"), AttrTangent, AttrPosition, AttrNormal))
	require.Len(t, dev.pipelines, 1)
	desc := dev.pipelines[0].desc

	assert.Equal(t, CullFront, desc.CullMode)
	assert.Equal(t, []Format{FormatRGBA16Float}, desc.ColorFormats)
	assert.Equal(t, FormatDepth32Float, desc.DepthFormat)
	assert.True(t, desc.Depth.TestEnable)
	assert.True(t, desc.Depth.WriteEnable)
	assert.Equal(t, CompareLess, desc.Depth.Func)

	// Input layout slots follow ascending attribute order regardless of how
	// the geometry listed its streams.
	require.Len(t, desc.InputLayout, 3)
	assert.Equal(t, AttrPosition, desc.InputLayout[0].Attribute)
	assert.Equal(t, AttrNormal, desc.InputLayout[1].Attribute)
	assert.Equal(t, AttrTangent, desc.InputLayout[2].Attribute)
	for i, entry := range desc.InputLayout {
		assert.Equal(t, uint32(i), entry.Slot)
	}

	doubleSided := opaqueMaterial("ds")
	doubleSided.DoubleSided = true
	s.pipelineGroupFor(testSurface(doubleSided, AttrPosition))
	require.Len(t, dev.pipelines, 2)
	assert.Equal(t, CullNone, dev.pipelines[1].desc.CullMode)
}

func TestPipelineGroupFor_motionVectorTargets(t *testing.T) {
	dev := newFakeDevice()
	s, _ := newTestForwardState(dev, true)

	s.pipelineGroupFor(testSurface(opaqueMaterial("m"), AttrPosition))

	require.Len(t, dev.pipelines, 1)
	assert.Equal(t, []Format{FormatRGBA16Float, FormatRG16Float}, dev.pipelines[0].desc.ColorFormats)
}
