package opengl

import (
	"errors"
	"strings"
	"testing"

	"clustered-deferred/renderer"
)

var testConsts = renderer.ProgramConstants{
	NumLights:   100,
	NumGBuffers: 2,
	Grid: renderer.ClusterGrid{
		X: 15, Y: 15, Z: 15, MaxLightsPerCluster: 100, SpecialNear: 5,
	},
	Ambient:         0.05,
	BrightThreshold: 1,
	BloomStrength:   0.8,
	FlareStrength:   0.3,
	Exposure:        1,
}

func TestGLSLFloat(t *testing.T) {
	tests := map[float32]string{
		5:     "5.0",
		0.05:  "0.05",
		1:     "1.0",
		-2:    "-2.0",
		1e-07: "1e-07",
	}
	for in, want := range tests {
		if got := glslFloat(in); got != want {
			t.Errorf("glslFloat(%v): expected %q, got %q", in, want, got)
		}
	}
}

func TestShaderHeader(t *testing.T) {
	h := shaderHeader(testConsts)
	if !strings.HasPrefix(h, "#version 410 core\n") {
		t.Errorf("header must start with the version line, got %q", h[:20])
	}
	for _, want := range []string{
		"#define NUM_LIGHTS 100\n",
		"#define NUM_GBUFFERS 2\n",
		"#define X_SLICES 15\n",
		"#define Z_SLICES 15\n",
		"#define MAX_LIGHTS_PER_CLUSTER 100\n",
		"#define SPECIAL_NEAR 5.0\n",
		"#define AMBIENT 0.05\n",
		"#define EXPOSURE 1.0\n",
	} {
		if !strings.Contains(h, want) {
			t.Errorf("header: missing %q", want)
		}
	}
}

// Every sampler and uniform the Go side binds must be declared by the GLSL
// program of the same kind.
func TestProgramSourcesDeclareInputs(t *testing.T) {
	bindings := renderer.DefaultBindings(testConsts.NumGBuffers)
	for kind, uniforms := range renderer.ProgramUniforms {
		vert, frag, err := programSources(kind, testConsts)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		src := vert + frag
		for sampler := range bindings[kind] {
			name := sampler
			if i := strings.IndexByte(name, '['); i >= 0 {
				name = name[:i]
			}
			if !strings.Contains(src, "uniform sampler2D "+name) {
				t.Errorf("%s: sampler %s not declared", kind, sampler)
			}
		}
		for _, u := range uniforms {
			if !strings.Contains(src, " "+u+";") && !strings.Contains(src, " "+u+"[") {
				t.Errorf("%s: uniform %s not declared", kind, u)
			}
		}
	}
}

func TestProgramSourcesBlurDirection(t *testing.T) {
	_, h, _ := programSources(renderer.ProgramBlurHorizontal, testConsts)
	_, v, _ := programSources(renderer.ProgramBlurVertical, testConsts)
	if !strings.Contains(h, "#define HORIZONTAL 1") || !strings.Contains(v, "#define HORIZONTAL 0") {
		t.Error("blur programs must differ only by HORIZONTAL")
	}
	if _, _, err := programSources(renderer.ProgramKind(42), testConsts); !errors.Is(err, renderer.ErrUnknownProgram) {
		t.Errorf("unknown kind: expected ErrUnknownProgram, got %v", err)
	}
}
