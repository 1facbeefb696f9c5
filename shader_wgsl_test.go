package helio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildForwardShader_vertexInputsFollowDefines(t *testing.T) {
	desc := &PipelineDesc{
		Defines: map[string]string{
			"HAS_POSITION": "1",
			"HAS_NORMAL":   "1",
		},
	}

	source := buildForwardShader(desc)

	assert.Contains(t, source, "@location(0) position: vec3<f32>")
	assert.Contains(t, source, "@location(1) normal: vec3<f32>")
	assert.NotContains(t, source, "tangent: vec4<f32>,\n}", "tangent input absent without its define")
	assert.NotContains(t, source, "albedo_texture")
}

func TestBuildForwardShader_textureBindings(t *testing.T) {
	desc := &PipelineDesc{
		Defines: map[string]string{
			"HAS_POSITION":        "1",
			"HAS_TEXCOORD0":       "1",
			"ID_albedoTexture":    "1",
			"ID_albedoTexCoord":   "0",
			"ID_emissiveTexture":  "1",
			"ID_emissiveTexCoord": "0",
		},
	}

	source := buildForwardShader(desc)

	assert.Contains(t, source, "@group(1) @binding(0) var albedo_texture")
	assert.Contains(t, source, "@group(1) @binding(5) var albedo_sampler")
	assert.Contains(t, source, "@group(1) @binding(3) var emissive_texture")
	assert.NotContains(t, source, "normal_map_texture")
}

func TestBuildForwardShader_motionVectorOutput(t *testing.T) {
	plain := buildForwardShader(&PipelineDesc{
		Defines: map[string]string{"HAS_POSITION": "1"},
	})
	assert.NotContains(t, plain, "@location(1) motion")

	withMotion := buildForwardShader(&PipelineDesc{
		Defines: map[string]string{
			"HAS_POSITION":          "1",
			"HAS_MOTION_VECTORS":    "1",
			"HAS_MOTION_VECTORS_RT": "1",
		},
	})
	assert.Contains(t, withMotion, "@location(1) motion: vec2<f32>")
	assert.Contains(t, withMotion, "prev_view_proj")
}

func TestBuildForwardShader_texCoordSetSelection(t *testing.T) {
	desc := &PipelineDesc{
		Defines: map[string]string{
			"HAS_POSITION":      "1",
			"HAS_TEXCOORD0":     "1",
			"HAS_TEXCOORD1":     "1",
			"ID_albedoTexture":  "1",
			"ID_albedoTexCoord": "1",
		},
	}

	source := buildForwardShader(desc)

	assert.Contains(t, source, "albedo_sampler, in.uv1")
}

func TestBuildForwardShader_alphaMaskDiscards(t *testing.T) {
	source := buildForwardShader(&PipelineDesc{
		Defines: map[string]string{
			"HAS_POSITION": "1",
			"ID_alphaMask": "",
		},
	})

	assert.Contains(t, source, "discard")
	assert.True(t, strings.Contains(source, "alpha_cutoff"))
}
