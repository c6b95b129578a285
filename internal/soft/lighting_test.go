package soft

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestFalloff(t *testing.T) {
	const radius = 4
	if got := Falloff(0, radius); math.Abs(float64(got)-1) > 0.0001 {
		t.Errorf("Falloff(0): expected 1, got %v", got)
	}
	for _, d := range []float32{radius, radius + 0.001, 2 * radius, 100} {
		if got := Falloff(d, radius); got != 0 {
			t.Errorf("Falloff(%v): expected 0, got %v", d, got)
		}
	}
	prev := Falloff(0, radius)
	for d := float32(0.25); d < radius; d += 0.25 {
		got := Falloff(d, radius)
		if got <= 0 || got >= prev {
			t.Errorf("Falloff(%v): expected in (0, %v), got %v", d, prev, got)
		}
		prev = got
	}
	if got := Falloff(1, 0); got != 0 {
		t.Errorf("Falloff with zero radius: expected 0, got %v", got)
	}
}

func TestBlinnPhong(t *testing.T) {
	n := mgl32.Vec3{0, 0, 1}
	diffuse, specular := BlinnPhong(n, n, n, 32)
	if math.Abs(float64(diffuse)-1) > 0.0001 || math.Abs(float64(specular)-1) > 0.0001 {
		t.Errorf("head-on: expected (1, 1), got (%v, %v)", diffuse, specular)
	}
	diffuse, specular = BlinnPhong(n, mgl32.Vec3{0, 0, -1}, n, 32)
	if diffuse != 0 || specular != 0 {
		t.Errorf("light behind surface: expected (0, 0), got (%v, %v)", diffuse, specular)
	}
	l := mgl32.Vec3{1, 0, 1}.Normalize()
	_, sharp := BlinnPhong(n, l, n, 128)
	_, broad := BlinnPhong(n, l, n, 4)
	if sharp >= broad {
		t.Errorf("specular: expected higher shininess to narrow the lobe, got %v >= %v", sharp, broad)
	}
}

func TestBrightPass(t *testing.T) {
	tests := []struct {
		in   mgl32.Vec3
		keep bool
	}{
		{mgl32.Vec3{1.2, 1.2, 1.2}, true},
		{mgl32.Vec3{4, 0, 0}, false},
		{mgl32.Vec3{0, 2, 0}, true},
		{mgl32.Vec3{0.5, 0.5, 0.5}, false},
		{mgl32.Vec3{}, false},
	}
	for _, tt := range tests {
		got := BrightPass(tt.in, 1)
		if tt.keep && got != tt.in {
			t.Errorf("BrightPass(%v): expected unchanged, got %v", tt.in, got)
		}
		if !tt.keep && got != (mgl32.Vec3{}) {
			t.Errorf("BrightPass(%v): expected black, got %v", tt.in, got)
		}
	}
	// The threshold itself passes.
	c := mgl32.Vec3{0.3, 0.6, 0.9}
	if got := BrightPass(c, Luminance(c)); got != c {
		t.Errorf("BrightPass at threshold: expected %v, got %v", c, got)
	}
}

func TestToneMap(t *testing.T) {
	if got := ToneMap(mgl32.Vec3{}, 1); got != (mgl32.Vec3{}) {
		t.Errorf("ToneMap(0): expected 0, got %v", got)
	}
	got := ToneMap(mgl32.Vec3{1, 1, 1}, 1)
	want := math.Pow(1-math.Exp(-1), 1/2.2)
	if math.Abs(float64(got[0])-want) > 0.0001 {
		t.Errorf("ToneMap(1): expected %v, got %v", want, got[0])
	}
	bright := ToneMap(mgl32.Vec3{1000, 1000, 1000}, 1)
	if bright[0] > 1 || bright[0] < 0.999 {
		t.Errorf("ToneMap(1000): expected just under 1, got %v", bright[0])
	}
	if neg := ToneMap(mgl32.Vec3{-1, 0, 0}, 1); neg[0] != 0 {
		t.Errorf("ToneMap(-1): expected 0, got %v", neg[0])
	}
}

func TestApplyNormalMap(t *testing.T) {
	n := mgl32.Vec3{0, 1, 0}
	// A flat normal map sample leaves the normal unchanged.
	got := ApplyNormalMap(n, mgl32.Vec3{0.5, 0.5, 1})
	if got.Sub(n).Len() > 0.001 {
		t.Errorf("flat sample: expected %v, got %v", n, got)
	}
	tilted := ApplyNormalMap(n, mgl32.Vec3{1, 0.5, 0.5})
	if math.Abs(float64(tilted.Len())-1) > 0.0001 {
		t.Errorf("tilted sample: expected unit length, got %v", tilted.Len())
	}
	if tilted.Dot(n) > 0.1 {
		t.Errorf("tilted sample: expected perpendicular to %v, got %v", n, tilted)
	}
}

func TestApplyNormalMapAlongUp(t *testing.T) {
	n := mgl32.Vec3{0.001, 1, 0.001}.Normalize()
	for _, sample := range []mgl32.Vec3{{0.5, 0.5, 1}, {1, 0.5, 0.5}} {
		got := ApplyNormalMap(n, sample)
		for i := 0; i < 3; i++ {
			if math.IsNaN(float64(got[i])) {
				t.Fatalf("sample %v: got NaN normal %v", sample, got)
			}
		}
		if math.Abs(float64(got.Len())-1) > 0.0001 {
			t.Errorf("sample %v: expected unit length, got %v", sample, got.Len())
		}
	}
}
