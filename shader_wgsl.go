package helio

import (
	"fmt"
	"strings"
)

// WGSL generation for the forward pass. Each pipeline permutation gets its
// own shader source assembled from the define set, so vertex inputs and
// texture bindings exist only when the permutation uses them.

const forwardUniformsWGSL = `
struct SceneInformation {
    view_proj: mat4x4<f32>,
    prev_view_proj: mat4x4<f32>,
    inv_view_proj: mat4x4<f32>,
    camera_pos: vec4<f32>,
    mip_lod_bias: f32,
    pad0: f32,
    pad1: f32,
    pad2: f32,
}

struct MaterialInformation {
    emissive_factor: vec4<f32>,
    albedo_factor: vec4<f32>,
    pbr_params: vec4<f32>,
    alpha_cutoff: f32,
    pad0: f32,
    pad1: f32,
    pad2: f32,
}

struct InstanceInformation {
    world: mat4x4<f32>,
    prev_world: mat4x4<f32>,
    material: MaterialInformation,
}

struct LightInformation {
    color_intensity: vec4<f32>,
    direction_range: vec4<f32>,
    position_type: vec4<f32>,
    shadow_map_index: i32,
    pad0: i32,
    pad1: i32,
    pad2: i32,
}

struct SceneLightingInformation {
    light_count: i32,
    pad0: i32,
    pad1: i32,
    pad2: i32,
    lights: array<LightInformation, 128>,
}

struct IBLFactor {
    ibl_factor: f32,
    specular_ibl_factor: f32,
    pad0: f32,
    pad1: f32,
}

@group(0) @binding(0) var<uniform> scene: SceneInformation;
@group(0) @binding(1) var<uniform> instance: InstanceInformation;
@group(0) @binding(3) var<uniform> lighting: SceneLightingInformation;
@group(0) @binding(4) var<uniform> ibl: IBLFactor;

@group(1) @binding(10) var brdf_lut: texture_2d<f32>;
@group(1) @binding(11) var irradiance_cube: texture_cube<f32>;
@group(1) @binding(12) var prefiltered_cube: texture_cube<f32>;
@group(1) @binding(14) var prefiltered_sampler: sampler;
@group(1) @binding(15) var irradiance_sampler: sampler;
@group(1) @binding(16) var brdf_sampler: sampler;
`

// Content texture bindings 0-4 pair with sampler bindings 5-9 in the order
// the TextureIndices block lists them.
var forwardTextureBindings = []struct {
	define  string
	name    string
	binding int
}{
	{"ID_albedoTexture", "albedo", 0},
	{"ID_metallicRoughnessTexture", "metal_rough", 1},
	{"ID_specularGlossinessTexture", "spec_gloss", 1},
	{"ID_normalTexture", "normal_map", 2},
	{"ID_emissiveTexture", "emissive", 3},
	{"ID_occlusionTexture", "occlusion", 4},
}

var forwardVertexInputs = []struct {
	define   string
	name     string
	wgslType string
	location int
}{
	{"HAS_POSITION", "position", "vec3<f32>", int(AttrPosition)},
	{"HAS_NORMAL", "normal", "vec3<f32>", int(AttrNormal)},
	{"HAS_TANGENT", "tangent", "vec4<f32>", int(AttrTangent)},
	{"HAS_TEXCOORD0", "uv0", "vec2<f32>", int(AttrTexCoord0)},
	{"HAS_TEXCOORD1", "uv1", "vec2<f32>", int(AttrTexCoord1)},
	{"HAS_COLOR0", "color0", "vec4<f32>", int(AttrColor0)},
	{"HAS_COLOR1", "color1", "vec4<f32>", int(AttrColor1)},
	{"HAS_PREVIOUSPOSITION", "prev_position", "vec3<f32>", int(AttrPreviousPosition)},
}

// buildForwardShader assembles the WGSL source for one pipeline permutation.
func buildForwardShader(desc *PipelineDesc) string {
	has := func(define string) bool {
		_, ok := desc.Defines[define]
		return ok
	}
	uvName := func(texCoordDefine string) string {
		if desc.Defines[texCoordDefine] == "1" && has("HAS_TEXCOORD1") {
			return "in.uv1"
		}
		return "in.uv0"
	}

	var b strings.Builder
	b.WriteString(forwardUniformsWGSL)

	for _, tb := range forwardTextureBindings {
		if has(tb.define) {
			fmt.Fprintf(&b, "@group(1) @binding(%d) var %s_texture: texture_2d<f32>;\n", tb.binding, tb.name)
			fmt.Fprintf(&b, "@group(1) @binding(%d) var %s_sampler: sampler;\n", tb.binding+5, tb.name)
		}
	}

	// Vertex input, gated per attribute define.
	b.WriteString("\nstruct VertexInput {\n")
	for _, vi := range forwardVertexInputs {
		if has(vi.define) {
			fmt.Fprintf(&b, "    @location(%d) %s: %s,\n", vi.location, vi.name, vi.wgslType)
		}
	}
	b.WriteString("}\n")

	motion := has("HAS_MOTION_VECTORS_RT")

	b.WriteString("\nstruct VertexOutput {\n")
	b.WriteString("    @builtin(position) clip_position: vec4<f32>,\n")
	b.WriteString("    @location(0) world_position: vec3<f32>,\n")
	b.WriteString("    @location(1) normal: vec3<f32>,\n")
	b.WriteString("    @location(2) uv0: vec2<f32>,\n")
	b.WriteString("    @location(3) uv1: vec2<f32>,\n")
	b.WriteString("    @location(4) color: vec4<f32>,\n")
	if has("HAS_TANGENT") {
		b.WriteString("    @location(5) tangent: vec4<f32>,\n")
	}
	if motion {
		b.WriteString("    @location(6) cur_clip: vec4<f32>,\n")
		b.WriteString("    @location(7) prev_clip: vec4<f32>,\n")
	}
	b.WriteString("}\n")

	// Vertex stage.
	b.WriteString(`
@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    let world_pos = instance.world * vec4<f32>(in.position, 1.0);
    out.clip_position = scene.view_proj * world_pos;
    out.world_position = world_pos.xyz;
`)
	if has("HAS_NORMAL") {
		b.WriteString("    out.normal = normalize((instance.world * vec4<f32>(in.normal, 0.0)).xyz);\n")
	} else {
		b.WriteString("    out.normal = vec3<f32>(0.0, 0.0, 1.0);\n")
	}
	if has("HAS_TANGENT") {
		b.WriteString("    out.tangent = vec4<f32>(normalize((instance.world * vec4<f32>(in.tangent.xyz, 0.0)).xyz), in.tangent.w);\n")
	}
	if has("HAS_TEXCOORD0") {
		b.WriteString("    out.uv0 = in.uv0;\n")
	}
	if has("HAS_TEXCOORD1") {
		b.WriteString("    out.uv1 = in.uv1;\n")
	}
	if has("HAS_COLOR0") {
		b.WriteString("    out.color = in.color0;\n")
	} else {
		b.WriteString("    out.color = vec4<f32>(1.0);\n")
	}
	if motion {
		b.WriteString("    out.cur_clip = out.clip_position;\n")
		if has("HAS_PREVIOUSPOSITION") {
			b.WriteString("    out.prev_clip = scene.prev_view_proj * (instance.prev_world * vec4<f32>(in.prev_position, 1.0));\n")
		} else {
			b.WriteString("    out.prev_clip = scene.prev_view_proj * (instance.prev_world * vec4<f32>(in.position, 1.0));\n")
		}
	}
	b.WriteString("    return out;\n}\n")

	// Fragment stage.
	b.WriteString("\nstruct FragmentOutput {\n    @location(0) color: vec4<f32>,\n")
	if motion {
		b.WriteString("    @location(1) motion: vec2<f32>,\n")
	}
	b.WriteString("}\n")

	b.WriteString(`
@fragment
fn fs_main(in: VertexOutput) -> FragmentOutput {
    var out: FragmentOutput;
    var base_color = instance.material.albedo_factor * in.color;
`)
	if has("ID_albedoTexture") {
		fmt.Fprintf(&b, "    base_color = base_color * textureSampleBias(albedo_texture, albedo_sampler, %s, scene.mip_lod_bias);\n", uvName("ID_albedoTexCoord"))
	}
	if has("ID_alphaMask") {
		b.WriteString("    if (base_color.a < instance.material.alpha_cutoff) {\n        discard;\n    }\n")
	}

	// Surface parameters. pbr_params packs metallic/roughness (or their
	// spec-gloss equivalents) in xy.
	b.WriteString("    var metallic = instance.material.pbr_params.x;\n")
	b.WriteString("    var roughness = instance.material.pbr_params.y;\n")
	if has("ID_metallicRoughnessTexture") {
		fmt.Fprintf(&b, "    let mr_sample = textureSampleBias(metal_rough_texture, metal_rough_sampler, %s, scene.mip_lod_bias);\n", uvName("ID_metallicRoughnessTexCoord"))
		b.WriteString("    metallic = metallic * mr_sample.b;\n")
		b.WriteString("    roughness = roughness * mr_sample.g;\n")
	}
	if has("ID_specularGlossinessTexture") {
		fmt.Fprintf(&b, "    let sg_sample = textureSampleBias(spec_gloss_texture, spec_gloss_sampler, %s, scene.mip_lod_bias);\n", uvName("ID_specularGlossinessTexCoord"))
		b.WriteString("    metallic = clamp(length(sg_sample.rgb), 0.0, 1.0);\n")
		b.WriteString("    roughness = 1.0 - roughness * sg_sample.a;\n")
	}

	b.WriteString("    var shading_normal = normalize(in.normal);\n")
	if has("ID_normalTexture") && has("HAS_TANGENT") {
		fmt.Fprintf(&b, `    let tangent_sample = textureSampleBias(normal_map_texture, normal_map_sampler, %s, scene.mip_lod_bias).xyz * 2.0 - 1.0;
    let bitangent = cross(shading_normal, in.tangent.xyz) * in.tangent.w;
    let tbn = mat3x3<f32>(in.tangent.xyz, bitangent, shading_normal);
    shading_normal = normalize(tbn * tangent_sample);
`, uvName("ID_normalTexCoord"))
	}

	// Direct lighting, Lambert diffuse plus Blinn specular per light.
	b.WriteString(`
    let view_dir = normalize(scene.camera_pos.xyz - in.world_position);
    var direct = vec3<f32>(0.0);
    for (var i = 0; i < lighting.light_count; i = i + 1) {
        let light = lighting.lights[i];
        var light_dir = -normalize(light.direction_range.xyz);
        var attenuation = 1.0;
        if (light.position_type.w > 0.5) {
            let to_light = light.position_type.xyz - in.world_position;
            let dist = length(to_light);
            light_dir = to_light / max(dist, 0.0001);
            let range = max(light.direction_range.w, 0.0001);
            attenuation = clamp(1.0 - dist / range, 0.0, 1.0);
        }
        let n_dot_l = max(dot(shading_normal, light_dir), 0.0);
        let half_dir = normalize(light_dir + view_dir);
        let spec_power = mix(512.0, 2.0, roughness);
        let spec = pow(max(dot(shading_normal, half_dir), 0.0), spec_power);
        let radiance = light.color_intensity.rgb * light.color_intensity.a * attenuation;
        direct = direct + radiance * (base_color.rgb * n_dot_l + vec3<f32>(spec * (1.0 - roughness)));
    }
`)

	// Image-based ambient term.
	b.WriteString(`
    let n_dot_v = max(dot(shading_normal, view_dir), 0.0);
    let irradiance = textureSample(irradiance_cube, irradiance_sampler, shading_normal).rgb;
    let reflect_dir = reflect(-view_dir, shading_normal);
    let prefiltered = textureSampleLevel(prefiltered_cube, prefiltered_sampler, reflect_dir, roughness * 8.0).rgb;
    let env_brdf = textureSample(brdf_lut, brdf_sampler, vec2<f32>(n_dot_v, roughness)).rg;
    let diffuse_ambient = irradiance * base_color.rgb * ibl.ibl_factor;
    let f0 = mix(vec3<f32>(0.04), base_color.rgb, metallic);
    let specular_ambient = prefiltered * (f0 * env_brdf.x + env_brdf.y) * ibl.specular_ibl_factor;
    var color = direct + diffuse_ambient + specular_ambient;
`)
	if has("ID_occlusionTexture") {
		fmt.Fprintf(&b, "    color = color * textureSampleBias(occlusion_texture, occlusion_sampler, %s, scene.mip_lod_bias).r;\n", uvName("ID_occlusionTexCoord"))
	}
	b.WriteString("    color = color + instance.material.emissive_factor.rgb;\n")
	if has("ID_emissiveTexture") {
		fmt.Fprintf(&b, "    color = color + textureSampleBias(emissive_texture, emissive_sampler, %s, scene.mip_lod_bias).rgb * instance.material.emissive_factor.a;\n", uvName("ID_emissiveTexCoord"))
	}
	b.WriteString("    out.color = vec4<f32>(color, base_color.a);\n")
	if motion {
		b.WriteString("    let cur_ndc = in.cur_clip.xy / in.cur_clip.w;\n")
		b.WriteString("    let prev_ndc = in.prev_clip.xy / in.prev_clip.w;\n")
		b.WriteString("    out.motion = (prev_ndc - cur_ndc) * vec2<f32>(0.5, -0.5);\n")
	}
	b.WriteString("    return out;\n}\n")

	return b.String()
}

// blitWGSL copies the offscreen color target to the swapchain with a
// fullscreen triangle.
const blitWGSL = `
struct BlitOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@group(0) @binding(0) var source_texture: texture_2d<f32>;
@group(0) @binding(1) var source_sampler: sampler;

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> BlitOutput {
    var out: BlitOutput;
    let uv = vec2<f32>(f32((index << 1u) & 2u), f32(index & 2u));
    out.position = vec4<f32>(uv * 2.0 - 1.0, 0.0, 1.0);
    out.uv = vec2<f32>(uv.x, 1.0 - uv.y);
    return out;
}

@fragment
fn fs_main(in: BlitOutput) -> @location(0) vec4<f32> {
    return textureSample(source_texture, source_sampler, in.uv);
}
`
