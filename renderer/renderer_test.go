package renderer

import (
	"errors"
	"math"
	"testing"
)

func testOptions(lights int) Options {
	return Options{
		NumLights:       lights,
		NumGBuffers:     2,
		Grid:            testGrid,
		Ambient:         0.1,
		BrightThreshold: 1,
		BloomStrength:   0.5,
		FlareStrength:   0.1,
		Exposure:        1,
	}
}

func newTestRenderer(t *testing.T, w, h, lights int) (*Renderer, *fakeDevice, *fakeClusters) {
	t.Helper()
	dev := newFakeDevice(w, h)
	cl := newFakeClusters(dev)
	r, err := New(dev, cl, testOptions(lights))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, dev, cl
}

func indexOf(events []string, e string) int {
	for i, v := range events {
		if v == e {
			return i
		}
	}
	return -1
}

func TestRenderFramePassOrder(t *testing.T) {
	r, dev, cl := newTestRenderer(t, 800, 600, 4)
	scene := &fakeScene{lights: testLights(4)}
	dev.events = nil

	if err := r.RenderFrame(newFakeCamera(), scene); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	want := []string{
		"execute geometry",
		"write lights",
		"refresh clusters",
		"execute clustered-shading",
		"execute extract-hdr",
		"execute blur-horizontal",
		"execute blur-vertical",
		"execute composite",
	}
	if len(dev.events) != len(want) {
		t.Fatalf("events: expected %v, got %v", want, dev.events)
	}
	for i := range want {
		if dev.events[i] != want[i] {
			t.Errorf("event %d: expected %q, got %q", i, want[i], dev.events[i])
		}
	}
	if cl.refreshes != 1 {
		t.Errorf("cluster refreshes: expected 1, got %d", cl.refreshes)
	}
	if scene.draws != 1 || scene.effects != 1 {
		t.Errorf("scene draws: expected 1 and 1, got %d and %d", scene.draws, scene.effects)
	}

	stats := r.Stats()
	if stats.Frames != 1 || stats.Resizes != 0 || len(stats.LastPasses) != 6 {
		t.Errorf("Stats: got %+v", stats)
	}
}

func TestRenderFrameBindings(t *testing.T) {
	r, dev, cl := newTestRenderer(t, 800, 600, 1)
	cam := newFakeCamera()
	if err := r.RenderFrame(cam, &fakeScene{lights: testLights(1)}); err != nil {
		t.Fatal(err)
	}
	ts := r.Targets()

	for _, p := range dev.passes {
		attached := dev.framebuffers[p.Target]
		for _, read := range p.Reads() {
			for _, a := range attached {
				if a != 0 && a == read {
					t.Errorf("%s: samples texture %d it renders into", p.Name, read)
				}
			}
		}
	}

	shading := dev.pass("clustered-shading")
	reads := map[TextureID]bool{}
	for _, id := range shading.Reads() {
		reads[id] = true
	}
	for _, id := range []TextureID{r.LightBuffer().Texture(), cl.Texture(), ts.Texture(TargetDepth), ts.Texture(GBufferTarget(0)), ts.Texture(GBufferTarget(1))} {
		if !reads[id] {
			t.Errorf("shading pass does not sample texture %d", id)
		}
	}
	info := shading.Uniforms.Vec4(UniformScreenInfo)
	if info[0] != 800 || info[1] != 600 || info[2] != cam.near || info[3] != cam.far {
		t.Errorf("shading screen info: got %v", info)
	}

	if got := dev.pass("blur-horizontal").Reads(); got[0] != ts.Texture(TargetHDRExtract) {
		t.Errorf("blur-horizontal: expected to read extract target, got %v", got)
	}
	if got := dev.pass("blur-vertical").Reads(); got[0] != ts.Texture(TargetBlurH) {
		t.Errorf("blur-vertical: expected to read blur-horizontal target, got %v", got)
	}

	composite := dev.pass("composite")
	if composite.Target != DisplayFramebuffer || !composite.Additive || !composite.Fullscreen {
		t.Errorf("composite: expected additive fullscreen pass to the display, got %+v", composite)
	}
	info = composite.Uniforms.Vec4(UniformScreenInfo)
	if math.Abs(float64(info[0]-1.0/800)) > 1e-7 || math.Abs(float64(info[1]-1.0/600)) > 1e-7 {
		t.Errorf("composite screen info: got %v", info)
	}

	for _, p := range dev.passes {
		declared := map[string]bool{}
		for _, n := range ProgramUniforms[p.Kind] {
			declared[n] = true
		}
		for _, n := range p.Uniforms.Names() {
			if !declared[n] {
				t.Errorf("%s sets undeclared uniform %s", p.Name, n)
			}
		}
	}
}

func TestRenderFrameResize(t *testing.T) {
	r, dev, _ := newTestRenderer(t, 800, 600, 2)
	scene := &fakeScene{lights: testLights(2)}
	if err := r.RenderFrame(newFakeCamera(), scene); err != nil {
		t.Fatal(err)
	}

	dev.width, dev.height = 1920, 1080
	dev.events, dev.passes = nil, nil
	if err := r.RenderFrame(newFakeCamera(), scene); err != nil {
		t.Fatal(err)
	}

	created := indexOf(dev.events, "create texture "+string(TargetLighting))
	geometry := indexOf(dev.events, "execute geometry")
	if created < 0 || geometry < 0 || created > geometry {
		t.Errorf("targets must be reallocated before the geometry pass: %v", dev.events)
	}
	for _, rt := range r.Targets().Targets() {
		if rt.Width != 1920 || rt.Height != 1080 {
			t.Errorf("%s: expected 1920x1080, got %dx%d", rt.Name, rt.Width, rt.Height)
		}
	}
	if vp := dev.pass("composite").Viewport; vp.Width != 1920 || vp.Height != 1080 {
		t.Errorf("viewport: expected 1920x1080, got %+v", vp)
	}
	if got := r.Stats().Resizes; got != 1 {
		t.Errorf("Resizes: expected 1, got %d", got)
	}
}

func TestRenderFrameLightCount(t *testing.T) {
	if _, err := New(newFakeDevice(8, 8), nil, testOptions(-1)); !errors.Is(err, ErrLightCount) {
		t.Errorf("New with -1 lights: expected ErrLightCount, got %v", err)
	}

	r, _, _ := newTestRenderer(t, 8, 8, 3)
	err := r.RenderFrame(newFakeCamera(), &fakeScene{lights: testLights(2)})
	if !errors.Is(err, ErrLightCount) {
		t.Errorf("RenderFrame with 2 of 3 lights: expected ErrLightCount, got %v", err)
	}
}

func TestRenderFrameZeroLights(t *testing.T) {
	r, dev, _ := newTestRenderer(t, 8, 8, 0)
	if err := r.RenderFrame(newFakeCamera(), &fakeScene{}); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if len(dev.passes) != 6 {
		t.Errorf("passes: expected 6, got %d", len(dev.passes))
	}
}

func TestRenderFramePassError(t *testing.T) {
	r, dev, _ := newTestRenderer(t, 8, 8, 1)
	dev.failExecute = "extract-hdr"
	err := r.RenderFrame(newFakeCamera(), &fakeScene{lights: testLights(1)})
	if !errors.Is(err, ErrUnknownUniform) {
		t.Errorf("expected pass error to propagate, got %v", err)
	}
	if r.Stats().Frames != 0 {
		t.Errorf("Frames: expected 0 after a failed frame, got %d", r.Stats().Frames)
	}
}

func TestRendererDestroy(t *testing.T) {
	r, dev, _ := newTestRenderer(t, 8, 8, 1)
	r.Destroy()
	tex, fbs, progs := dev.live()
	// The cluster texture belongs to the provider.
	if tex != 1 || fbs != 0 || progs != 0 {
		t.Errorf("after Destroy: %d textures, %d framebuffers, %d programs live", tex, fbs, progs)
	}
}

func TestProgramConstantsShared(t *testing.T) {
	_, dev, _ := newTestRenderer(t, 8, 8, 5)
	if len(dev.consts) != len(allPrograms) {
		t.Fatalf("programs: expected %d, got %d", len(allPrograms), len(dev.consts))
	}
	for i, c := range dev.consts {
		if c != dev.consts[0] {
			t.Errorf("program %d constants differ: %+v", i, c)
		}
	}
	if dev.consts[0].NumLights != 5 || dev.consts[0].Grid != testGrid {
		t.Errorf("constants: got %+v", dev.consts[0])
	}
}
