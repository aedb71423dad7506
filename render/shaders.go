package render

import "fmt"

// uiShader draws tessellated UI geometry. Vertex colors and textures are
// premultiplied.
const uiShader = `
struct Viewport {
    size: vec2<f32>,
    _pad: vec2<f32>,
};

@group(0) @binding(0) var<uniform> viewport: Viewport;
@group(1) @binding(0) var ui_texture: texture_2d<f32>;
@group(1) @binding(1) var ui_sampler: sampler;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
    @location(1) color: vec4<f32>,
};

@vertex
fn vs_main(
    @location(0) pos: vec2<f32>,
    @location(1) uv: vec2<f32>,
    @location(2) color: vec4<f32>,
) -> VertexOutput {
    var out: VertexOutput;
    let ndc = pos / viewport.size * 2.0 - vec2<f32>(1.0, 1.0);
    out.position = vec4<f32>(ndc.x, -ndc.y, 0.0, 1.0);
    out.uv = uv;
    out.color = color;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return in.color * textureSample(ui_texture, ui_sampler, in.uv);
}
`

// presentShader draws a fullscreen triangle sampling one attachment.
const presentShader = `
@group(0) @binding(0) var src_texture: texture_2d<f32>;
@group(0) @binding(1) var src_sampler: sampler;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> VertexOutput {
    var out: VertexOutput;
    let uv = vec2<f32>(f32((index << 1u) & 2u), f32(index & 2u));
    out.position = vec4<f32>(uv.x * 2.0 - 1.0, 1.0 - uv.y * 2.0, 0.0, 1.0);
    out.uv = uv;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(src_texture, src_sampler, in.uv);
}
`

// mediaVertex is shared by every media fragment variant. Positions are in
// normalized device coordinates.
const mediaVertex = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@location(0) pos: vec2<f32>, @location(1) uv: vec2<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(pos, 0.0, 1.0);
    out.uv = uv;
    return out;
}

// BT.709 limited range.
fn yuv_to_rgb(y: f32, u: f32, v: f32) -> vec4<f32> {
    let yy = (y - 16.0 / 255.0) * 1.164383;
    let cb = u - 0.5;
    let cr = v - 0.5;
    let r = yy + 1.792741 * cr;
    let g = yy - 0.213249 * cb - 0.532909 * cr;
    let b = yy + 2.112402 * cb;
    return vec4<f32>(clamp(vec3<f32>(r, g, b), vec3<f32>(0.0, 0.0, 0.0), vec3<f32>(1.0, 1.0, 1.0)), 1.0);
}
`

const mediaBiplanar = `
@group(0) @binding(0) var plane_sampler: sampler;
@group(0) @binding(1) var plane_y: texture_2d<f32>;
@group(0) @binding(2) var plane_uv: texture_2d<f32>;

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let y = textureSample(plane_y, plane_sampler, in.uv).r * %[1]s;
    let uv = textureSample(plane_uv, plane_sampler, in.uv).rg * %[1]s;
    return yuv_to_rgb(y, uv.x, uv.y);
}
`

const mediaTriplanar = `
@group(0) @binding(0) var plane_sampler: sampler;
@group(0) @binding(1) var plane_y: texture_2d<f32>;
@group(0) @binding(2) var plane_u: texture_2d<f32>;
@group(0) @binding(3) var plane_v: texture_2d<f32>;

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let y = textureSample(plane_y, plane_sampler, in.uv).r * %[1]s;
    let u = textureSample(plane_u, plane_sampler, in.uv).r * %[1]s;
    let v = textureSample(plane_v, plane_sampler, in.uv).r * %[1]s;
    return yuv_to_rgb(y, u, v);
}
`

// mediaShader returns the WGSL program for a plane format. P010 keeps its
// samples in the high bits of each 16-bit word, so normalized reads need no
// scaling; planar 10-bit keeps them in the low bits.
func mediaShader(f PlaneFormat) string {
	switch f {
	case FormatNV12, FormatP010:
		return mediaVertex + fmt.Sprintf(mediaBiplanar, "1.0")
	case FormatI420:
		return mediaVertex + fmt.Sprintf(mediaTriplanar, "1.0")
	case FormatI420P10:
		return mediaVertex + fmt.Sprintf(mediaTriplanar, "(65535.0 / 1023.0)")
	}
	panic(fmt.Sprintf("render: no shader for plane format %v", f))
}
