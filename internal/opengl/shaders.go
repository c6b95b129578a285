package opengl

import (
	"fmt"
	"strings"

	"clustered-deferred/renderer"
)

// ── GLSL sources ──────────────────────────────────────────────────────────────
//
// Every program is specialised at creation time: the header generated by
// shaderHeader carries the ProgramConstants as #defines, so array sizes and
// loop bounds are compile-time constants.

const glslVersion = "#version 410 core\n"

func shaderHeader(c renderer.ProgramConstants) string {
	var b strings.Builder
	b.WriteString(glslVersion)
	fmt.Fprintf(&b, "#define NUM_LIGHTS %d\n", c.NumLights)
	fmt.Fprintf(&b, "#define NUM_GBUFFERS %d\n", c.NumGBuffers)
	fmt.Fprintf(&b, "#define X_SLICES %d\n", c.Grid.X)
	fmt.Fprintf(&b, "#define Y_SLICES %d\n", c.Grid.Y)
	fmt.Fprintf(&b, "#define Z_SLICES %d\n", c.Grid.Z)
	fmt.Fprintf(&b, "#define MAX_LIGHTS_PER_CLUSTER %d\n", c.Grid.MaxLightsPerCluster)
	fmt.Fprintf(&b, "#define SPECIAL_NEAR %s\n", glslFloat(c.Grid.SpecialNear))
	fmt.Fprintf(&b, "#define AMBIENT %s\n", glslFloat(c.Ambient))
	fmt.Fprintf(&b, "#define BRIGHT_THRESHOLD %s\n", glslFloat(c.BrightThreshold))
	fmt.Fprintf(&b, "#define BLOOM_STRENGTH %s\n", glslFloat(c.BloomStrength))
	fmt.Fprintf(&b, "#define FLARE_STRENGTH %s\n", glslFloat(c.FlareStrength))
	fmt.Fprintf(&b, "#define EXPOSURE %s\n", glslFloat(c.Exposure))
	return b.String()
}

// glslFloat always prints a decimal point so the literal is a float.
func glslFloat(v float32) string {
	s := fmt.Sprintf("%g", v)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// programSources returns the vertex and fragment source of kind.
func programSources(kind renderer.ProgramKind, c renderer.ProgramConstants) (vert, frag string, err error) {
	h := shaderHeader(c)
	switch kind {
	case renderer.ProgramGeometry:
		return h + geometryVertSrc, h + geometryFragSrc, nil
	case renderer.ProgramClusteredShading:
		return h + fullscreenVertSrc, h + shadingFragSrc, nil
	case renderer.ProgramExtractHDR:
		return h + fullscreenVertSrc, h + extractFragSrc, nil
	case renderer.ProgramBlurHorizontal:
		return h + fullscreenVertSrc, h + "#define HORIZONTAL 1\n" + blurFragSrc, nil
	case renderer.ProgramBlurVertical:
		return h + fullscreenVertSrc, h + "#define HORIZONTAL 0\n" + blurFragSrc, nil
	case renderer.ProgramComposite:
		return h + compositeVertSrc, h + compositeFragSrc, nil
	}
	return "", "", fmt.Errorf("%s: %w", kind, renderer.ErrUnknownProgram)
}

const geometryVertSrc = `
layout(location = 0) in vec3 a_position;
layout(location = 1) in vec3 a_normal;
layout(location = 2) in vec2 a_uv;

uniform mat4 u_viewProjectionMatrix;
uniform mat4 u_viewMatrix;
uniform mat4 u_model;

out vec3 v_normal;
out vec2 v_uv;

void main() {
    gl_Position = u_viewProjectionMatrix * u_model * vec4(a_position, 1.0);
    v_normal = mat3(transpose(inverse(u_model))) * a_normal;
    v_uv = a_uv;
}
`

const geometryFragSrc = `
in vec3 v_normal;
in vec2 v_uv;

uniform sampler2D u_colmap;
uniform sampler2D u_normap;
uniform vec4 u_albedo;
uniform float u_shininess;

layout(location = 0) out vec4 out_gbuffers[NUM_GBUFFERS];

vec3 applyNormalMap(vec3 geomnor, vec3 normap) {
    normap = normap * 2.0 - 1.0;
    vec3 up = normalize(vec3(0.001, 1.0, 0.001));
    vec3 surftan = cross(geomnor, up);
    if (length(surftan) < 1e-6) {
        surftan = cross(geomnor, vec3(1.0, 0.0, 0.0));
    }
    surftan = normalize(surftan);
    vec3 surfbinor = cross(geomnor, surftan);
    return normalize(normap.y * surftan + normap.x * surfbinor + normap.z * geomnor);
}

void main() {
    vec3 n = normalize(v_normal);
    n = applyNormalMap(n, texture(u_normap, v_uv).rgb);
    vec3 col = u_albedo.rgb * texture(u_colmap, v_uv).rgb;

    out_gbuffers[0] = vec4(col, 1.0);
    out_gbuffers[1] = vec4(n, u_shininess);
    for (int i = 2; i < NUM_GBUFFERS; i++) {
        out_gbuffers[i] = vec4(0.0);
    }
}
`

// One triangle covering the screen, generated from gl_VertexID.
const fullscreenVertSrc = `
out vec2 v_uv;

void main() {
    vec2 pos = vec2(float((gl_VertexID << 1) & 2), float(gl_VertexID & 2)) * 2.0 - 1.0;
    v_uv = pos * 0.5 + 0.5;
    gl_Position = vec4(pos, 0.0, 1.0);
}
`

const shadingFragSrc = `
uniform sampler2D u_lightbuffer;
uniform sampler2D u_clusterbuffer;
uniform sampler2D u_depthBuffer;
uniform sampler2D u_gbuffers[NUM_GBUFFERS];

uniform mat4 u_viewProjectionMatrix;
uniform mat4 u_viewMatrix;
uniform mat4 u_invProjectionMatrix;
uniform mat4 u_invViewProjectionMatrix;
uniform vec4 u_screenInfobuffer;

in vec2 v_uv;
out vec4 fragColor;

struct Light {
    vec3 position;
    float radius;
    vec3 color;
};

Light unpackLight(int index) {
    vec4 v1 = texelFetch(u_lightbuffer, ivec2(index, 0), 0);
    vec4 v2 = texelFetch(u_lightbuffer, ivec2(index, 1), 0);
    Light l;
    l.position = v1.xyz;
    l.radius = v1.w;
    l.color = v2.rgb;
    return l;
}

float clusterComponent(int cluster, int k) {
    int row = k / 4;
    vec4 texel = texelFetch(u_clusterbuffer, ivec2(cluster, row), 0);
    return texel[k - row * 4];
}

float falloff(float d, float r) {
    if (r <= 0.0 || d >= r) {
        return 0.0;
    }
    float x = d / r;
    float w = clamp(1.0 - x * x * x * x, 0.0, 1.0);
    return w * w / (d * d + 1.0);
}

int zSlice(float depth, float near, float far) {
    if (Z_SLICES == 1 || depth < SPECIAL_NEAR) {
        return 0;
    }
    float span = far - SPECIAL_NEAR;
    if (span <= 0.0) {
        return Z_SLICES - 1;
    }
    int z = 1 + int(floor((depth - SPECIAL_NEAR) / span * float(Z_SLICES - 1)));
    return clamp(z, 0, Z_SLICES - 1);
}

void main() {
    ivec2 px = ivec2(gl_FragCoord.xy);
    vec4 gb0 = texelFetch(u_gbuffers[0], px, 0);
    if (gb0.a == 0.0) {
        fragColor = vec4(0.0, 0.0, 0.0, 1.0);
        return;
    }
    vec4 gb1 = texelFetch(u_gbuffers[1], px, 0);
    vec3 albedo = gb0.rgb;
    vec3 normal = normalize(gb1.xyz);
    float shininess = max(gb1.w, 1.0);

    vec2 uv = gl_FragCoord.xy / u_screenInfobuffer.xy;
    float depth = texelFetch(u_depthBuffer, px, 0).r;
    vec4 world4 = u_invViewProjectionMatrix * vec4(uv * 2.0 - 1.0, depth * 2.0 - 1.0, 1.0);
    vec3 world = world4.xyz / world4.w;
    float viewDepth = -(u_viewMatrix * vec4(world, 1.0)).z;

    int cx = clamp(int(uv.x * float(X_SLICES)), 0, X_SLICES - 1);
    int cy = clamp(int(uv.y * float(Y_SLICES)), 0, Y_SLICES - 1);
    int cz = zSlice(viewDepth, u_screenInfobuffer.z, u_screenInfobuffer.w);
    int cluster = cx + cy * X_SLICES + cz * X_SLICES * Y_SLICES;
    int count = min(int(clusterComponent(cluster, 0)), MAX_LIGHTS_PER_CLUSTER);

    vec3 eye = inverse(u_viewMatrix)[3].xyz;
    vec3 toEye = normalize(eye - world);
    vec3 color = albedo * AMBIENT;

    for (int k = 1; k <= MAX_LIGHTS_PER_CLUSTER; k++) {
        if (k > count) {
            break;
        }
        int li = int(clusterComponent(cluster, k));
        if (li < 0 || li >= NUM_LIGHTS) {
            continue;
        }
        Light l = unpackLight(li);
        vec3 toLight = l.position - world;
        float dist = length(toLight);
        float atten = falloff(dist, l.radius);
        if (atten == 0.0) {
            continue;
        }
        vec3 L = toLight / dist;
        float diffuse = dot(normal, L);
        if (diffuse <= 0.0) {
            continue;
        }
        float specular = pow(max(dot(normal, normalize(L + toEye)), 0.0), shininess);
        color += l.color * atten * (albedo * diffuse + specular);
    }
    fragColor = vec4(color, 1.0);
}
`

const extractFragSrc = `
uniform sampler2D u_sceneTexture;
uniform mat4 u_viewProjectionMatrix;

in vec2 v_uv;
out vec4 fragColor;

void main() {
    vec3 c = texture(u_sceneTexture, v_uv).rgb;
    float luma = dot(c, vec3(0.2126, 0.7152, 0.0722));
    fragColor = vec4(c * step(BRIGHT_THRESHOLD, luma), 1.0);
}
`

const blurFragSrc = `
uniform sampler2D u_sceneTexture;
uniform mat4 u_viewProjectionMatrix;
uniform float u_weight[5];
uniform float u_gap[5];

in vec2 v_uv;
out vec4 fragColor;

void main() {
    vec3 sum = texture(u_sceneTexture, v_uv).rgb * u_weight[0];
    for (int i = 1; i < 5; i++) {
        vec2 off = HORIZONTAL == 1 ? vec2(u_gap[i], 0.0) : vec2(0.0, u_gap[i]);
        sum += (texture(u_sceneTexture, v_uv + off).rgb + texture(u_sceneTexture, v_uv - off).rgb) * u_weight[i];
    }
    fragColor = vec4(sum, 1.0);
}
`

// The composite program draws flare-source geometry with u_overlay set,
// then the fullscreen triangle.
const compositeVertSrc = `
layout(location = 0) in vec3 a_position;

uniform mat4 u_viewProjectionMatrix;
uniform mat4 u_model;
uniform int u_overlay;

void main() {
    if (u_overlay == 1) {
        gl_Position = u_viewProjectionMatrix * u_model * vec4(a_position, 1.0);
        return;
    }
    vec2 pos = vec2(float((gl_VertexID << 1) & 2), float(gl_VertexID & 2)) * 2.0 - 1.0;
    gl_Position = vec4(pos, 0.0, 1.0);
}
`

const compositeFragSrc = `
uniform sampler2D u_dirtTexture;
uniform sampler2D u_starburstTexture;
uniform sampler2D u_sceneTexture;
uniform sampler2D u_HDR;

uniform mat4 u_viewProjectionMatrix;
uniform mat4 u_viewMatrix;
uniform vec4 u_screenInfobuffer;
uniform vec4 u_albedo;
uniform int u_overlay;

out vec4 fragColor;

const int GHOSTS = 4;
const float GHOST_DISPERSAL = 0.37;
const float HALO_WIDTH = 0.45;
const float DISTORTION = 10.0;

vec3 lensFlare(vec2 tc) {
    vec2 centre = vec2(0.5);
    vec2 ghostVec = (centre - tc) * GHOST_DISPERSAL;
    float maxDist = length(centre);
    vec3 result = vec3(0.0);
    for (int i = 0; i < GHOSTS; i++) {
        vec2 off = fract(tc + ghostVec * float(i));
        float weight = pow(max(1.0 - length(centre - off) / maxDist, 0.0), DISTORTION);
        result += texture(u_HDR, off).rgb * weight;
    }
    if (length(ghostVec) > 0.0) {
        vec2 halo = fract(tc + normalize(ghostVec) * HALO_WIDTH);
        float weight = pow(max(1.0 - length(centre - halo) / maxDist, 0.0), 5.0);
        result += texture(u_HDR, halo).rgb * weight;
    }
    return result;
}

void main() {
    if (u_overlay == 1) {
        fragColor = vec4(u_albedo.rgb, 1.0);
        return;
    }
    vec2 uv = gl_FragCoord.xy * u_screenInfobuffer.xy;
    vec3 hdr = texture(u_sceneTexture, uv).rgb;
    hdr += texture(u_HDR, uv).rgb * BLOOM_STRENGTH;

    if (FLARE_STRENGTH > 0.0) {
        vec3 flare = lensFlare(vec2(1.0) - uv);
        float camRot = dot(u_viewMatrix[0].xyz, vec3(0.0, 0.0, 1.0)) + dot(u_viewMatrix[2].xyz, vec3(0.0, 1.0, 0.0));
        mat2 rot = mat2(cos(camRot), sin(camRot), -sin(camRot), cos(camRot));
        vec2 suv = rot * (uv - 0.5) + 0.5;
        float lens = texture(u_dirtTexture, uv).r + texture(u_starburstTexture, suv).r;
        hdr += flare * lens * FLARE_STRENGTH;
    }

    vec3 ldr = vec3(1.0) - exp(-max(hdr, 0.0) * EXPOSURE);
    fragColor = vec4(pow(ldr, vec3(1.0 / 2.2)), 1.0);
}
`
