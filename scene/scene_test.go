package scene

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"clustered-deferred/core"
)

// recordingDrawList remembers every submission.
type recordingDrawList struct {
	program  string
	textures map[string]*core.Texture
	colors   []core.Color
	floats   map[string]float32
	meshes   []*core.MeshData
	models   []mgl32.Mat4
}

func newRecordingDrawList(program string) *recordingDrawList {
	return &recordingDrawList{
		program:  program,
		textures: make(map[string]*core.Texture),
		floats:   make(map[string]float32),
	}
}

func (dl *recordingDrawList) Program() string { return dl.program }

func (dl *recordingDrawList) SetTexture(sampler string, tex *core.Texture) {
	dl.textures[sampler] = tex
}

func (dl *recordingDrawList) SetColor(_ string, c core.Color) { dl.colors = append(dl.colors, c) }

func (dl *recordingDrawList) SetFloat(uniform string, v float32) { dl.floats[uniform] = v }

func (dl *recordingDrawList) DrawMesh(mesh *core.MeshData, model mgl32.Mat4) {
	dl.meshes = append(dl.meshes, mesh)
	dl.models = append(dl.models, model)
}

func testSceneConfig() core.SceneConfig {
	return core.SceneConfig{
		LightMin:    [3]float32{-14, 0, -6},
		LightMax:    [3]float32{14, 20, 6},
		LightRadius: 5,
		LightSpeed:  2,
		Seed:        7,
	}
}

func TestNewSceneLights(t *testing.T) {
	cfg := testSceneConfig()
	s := New(cfg, 50)
	if len(s.Lights()) != 50 {
		t.Fatalf("Lights: expected 50, got %d", len(s.Lights()))
	}
	for i, l := range s.Lights() {
		for k := 0; k < 3; k++ {
			if l.Position[k] < cfg.LightMin[k] || l.Position[k] > cfg.LightMax[k] {
				t.Errorf("light %d: position %v outside bounds", i, l.Position)
			}
		}
		if l.Radius != cfg.LightRadius {
			t.Errorf("light %d: expected radius %v, got %v", i, cfg.LightRadius, l.Radius)
		}
	}

	again := New(cfg, 50)
	for i := range s.Lights() {
		if s.Lights()[i] != again.Lights()[i] {
			t.Fatalf("light %d: same seed gave %v and %v", i, s.Lights()[i], again.Lights()[i])
		}
	}

	if empty := New(cfg, 0); len(empty.Lights()) != 0 {
		t.Errorf("New with 0 lights: got %d", len(empty.Lights()))
	}
}

func TestSceneUpdateWrapsLights(t *testing.T) {
	cfg := testSceneConfig()
	s := New(cfg, 2)
	s.SetLight(0, core.Light{Position: mgl32.Vec3{1, 10, 1}, Radius: 5})
	s.SetLight(1, core.Light{Position: mgl32.Vec3{2, 0.5, 2}, Radius: 5})

	s.Update(1)
	if y := s.Lights()[0].Position.Y(); y != 8 {
		t.Errorf("falling light: expected y 8, got %v", y)
	}
	if y := s.Lights()[1].Position.Y(); y != 18.5 {
		t.Errorf("wrapped light: expected y 18.5, got %v", y)
	}
	if x := s.Lights()[1].Position.X(); x != 2 {
		t.Errorf("wrapped light: x changed to %v", x)
	}

	// A step longer than the whole range lands on the top.
	s.Update(100)
	for i, l := range s.Lights() {
		if l.Position.Y() < cfg.LightMin[1] || l.Position.Y() > cfg.LightMax[1] {
			t.Errorf("light %d: y %v outside bounds after long step", i, l.Position.Y())
		}
	}
	if len(s.Lights()) != 2 {
		t.Errorf("Update changed light count to %d", len(s.Lights()))
	}
}

func TestSceneDraw(t *testing.T) {
	s := New(testSceneConfig(), 3)
	s.AddDemoGeometry()

	visible := 0
	s.Root.Traverse(func(n *Node) {
		if n.Mesh != nil {
			visible++
		}
	})
	hidden := s.Root.Find("Sphere")
	hidden.Visible = false

	dl := newRecordingDrawList("geometry")
	s.Draw(dl)
	if len(dl.meshes) != visible-1 {
		t.Errorf("Draw: expected %d meshes, got %d", visible-1, len(dl.meshes))
	}
	if dl.textures[inputColorMap] == nil || dl.textures[inputNormalMap] == nil {
		t.Error("Draw: material textures not bound")
	}
	// The last mesh drawn is a polished sphere.
	if got := dl.floats[inputShininess]; got != 96 {
		t.Errorf("shininess: expected 96, got %v", got)
	}
}

func TestSceneDrawEffect(t *testing.T) {
	s := New(testSceneConfig(), 4)

	dl := newRecordingDrawList("composite")
	s.DrawEffect(dl)
	if dl.textures[inputDirt] != s.Dirt || dl.textures[inputStarburst] != s.Starburst {
		t.Error("DrawEffect: lens textures not bound")
	}
	if len(dl.meshes) != 0 {
		t.Errorf("DrawEffect without markers: expected no meshes, got %d", len(dl.meshes))
	}

	s.ShowLightMarkers = true
	dl = newRecordingDrawList("composite")
	s.DrawEffect(dl)
	if len(dl.meshes) != 4 {
		t.Fatalf("DrawEffect with markers: expected 4 meshes, got %d", len(dl.meshes))
	}
	l := s.Lights()[2]
	if pos := dl.models[2].Col(3).Vec3(); pos != l.Position {
		t.Errorf("marker 2: expected at %v, got %v", l.Position, pos)
	}
	if c := dl.colors[2]; c.R != l.Color[0] || c.B != l.Color[2] {
		t.Errorf("marker 2: expected colour %v, got %v", l.Color, c)
	}
}

func TestLensTexturesDeterministic(t *testing.T) {
	a := NewDirtTexture(32, 3)
	b := NewDirtTexture(32, 3)
	if len(a.Pixels) != 4*32*32 {
		t.Fatalf("dirt pixels: expected %d, got %d", 4*32*32, len(a.Pixels))
	}
	for i := range a.Pixels {
		if a.Pixels[i] != b.Pixels[i] {
			t.Fatalf("dirt pixel %d: same seed gave %d and %d", i, a.Pixels[i], b.Pixels[i])
		}
	}
	s := NewStarburstTexture(32, 8)
	if corner := s.Pixels[0]; corner != 0 {
		t.Errorf("starburst corner: expected 0, got %d", corner)
	}
	centre := 4 * (16*32 + 16)
	if s.Pixels[centre] == 0 {
		t.Error("starburst centre: expected bright")
	}
}

func TestLoadModelUnsupported(t *testing.T) {
	s := New(testSceneConfig(), 0)
	if err := s.LoadModel("model.fbx", nil); !errors.Is(err, ErrUnsupportedModel) {
		t.Errorf("LoadModel(.fbx): expected ErrUnsupportedModel, got %v", err)
	}
}

func TestLoadModelOBJ(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.OBJ")
	if err := os.WriteFile(path, []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(testSceneConfig(), 0)
	if err := s.LoadModel(path, nil); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if s.Root.Find("tri.OBJ") == nil {
		t.Error("LoadModel: model node not added")
	}
}
