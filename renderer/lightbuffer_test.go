package renderer

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"clustered-deferred/core"
)

func testLights(n int) []core.Light {
	lights := make([]core.Light, n)
	for i := range lights {
		f := float32(i)
		lights[i] = core.Light{
			Position: mgl32.Vec3{f, -f, 2 * f},
			Radius:   1 + f,
			Color:    mgl32.Vec3{0.1 * f, 0.5, 1 - 0.01*f},
		}
	}
	return lights
}

func TestLightBufferRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100} {
		dev := newFakeDevice(4, 4)
		lb, err := NewLightBuffer(dev, n)
		if err != nil {
			t.Fatalf("NewLightBuffer(%d): %v", n, err)
		}
		w, h := lb.Size()
		if n > 0 && w != n {
			t.Errorf("N=%d width: expected %d, got %d", n, n, w)
		}
		if h != 2 {
			t.Errorf("N=%d height: expected 2, got %d", n, h)
		}

		lights := testLights(n)
		if err := lb.Update(lights); err != nil {
			t.Fatalf("N=%d Update: %v", n, err)
		}
		uploaded := dev.writes[lb.Texture()]
		if len(uploaded) != 4*w*h {
			t.Fatalf("N=%d upload: expected %d floats, got %d", n, 4*w*h, len(uploaded))
		}
		for i, want := range lights {
			got := DecodeLight(uploaded, w, i)
			if got != want {
				t.Errorf("N=%d light %d: expected %+v, got %+v", n, i, want, got)
			}
		}
	}
}

func TestLightBufferLayout(t *testing.T) {
	dev := newFakeDevice(4, 4)
	lb, err := NewLightBuffer(dev, 3)
	if err != nil {
		t.Fatal(err)
	}
	lights := testLights(3)
	if err := lb.Update(lights); err != nil {
		t.Fatal(err)
	}
	data := dev.writes[lb.Texture()]

	// Light 2: position row 0 at texel 2, colour row 1 at texel 2.
	if data[8] != lights[2].Position[0] || data[11] != lights[2].Radius {
		t.Errorf("light 2 row 0: got %v", data[8:12])
	}
	c := 4*2 + 4*3
	if data[c] != lights[2].Color[0] || data[c+3] != 0 {
		t.Errorf("light 2 row 1: got %v", data[c:c+4])
	}
}

func TestLightBufferCountMismatch(t *testing.T) {
	dev := newFakeDevice(4, 4)
	lb, err := NewLightBuffer(dev, 2)
	if err != nil {
		t.Fatal(err)
	}
	err = lb.Update(testLights(3))
	if !errors.Is(err, ErrLightCount) {
		t.Errorf("Update: expected ErrLightCount, got %v", err)
	}
}

func TestTextureBufferIndex(t *testing.T) {
	dev := newFakeDevice(4, 4)
	tb, err := NewTextureBuffer(dev, "test", 10, 9)
	if err != nil {
		t.Fatal(err)
	}
	if tb.Height != 3 {
		t.Errorf("Height: expected 3, got %d", tb.Height)
	}
	if got := tb.Index(2, 1); got != 4*2+4*10 {
		t.Errorf("Index(2,1): expected %d, got %d", 48, got)
	}

	if _, err := NewTextureBuffer(dev, "bad", -1, 4); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("negative count: expected ErrInvalidSize, got %v", err)
	}

	id := tb.Texture
	tb.Destroy()
	if _, ok := dev.textures[id]; ok || tb.Texture != 0 {
		t.Error("Destroy: texture still live")
	}
}
