package scene

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"clustered-deferred/core"
)

const cubeFaceOBJ = `# two groups
v -1 -1 0
v 1 -1 0
v 1 1 0
v -1 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1

o front
usemtl red
f 1/1/1 2/2/1 3/3/1 4/4/1

g back
f -1 -2 -3
`

func TestParseOBJGroups(t *testing.T) {
	root, err := parseOBJ(strings.NewReader(cubeFaceOBJ), "quad.obj", ".", nil)
	if err != nil {
		t.Fatalf("parseOBJ: %v", err)
	}
	if root.Name != "quad.obj" || len(root.Children) != 2 {
		t.Fatalf("root: expected quad.obj with 2 children, got %s with %d", root.Name, len(root.Children))
	}

	front := root.Find("front").Mesh
	if got := front.Data.TriangleCount(); got != 2 {
		t.Errorf("front triangles: expected 2, got %d", got)
	}
	if got := len(front.Data.Vertices); got != 4 {
		t.Errorf("front vertices: expected 4, got %d", got)
	}
	if uv := front.Data.Vertices[2].UV; uv != (mgl32.Vec2{1, 1}) {
		t.Errorf("front vertex 2 uv: expected (1,1), got %v", uv)
	}
	want := AABB{Min: mgl32.Vec3{-1, -1, 0}, Max: mgl32.Vec3{1, 1, 0}}
	if !front.HasLocalAABB || front.LocalAABB != want {
		t.Errorf("front AABB: expected %v, got %v", want, front.LocalAABB)
	}

	// Negative indices count back from the last vertex, and missing normals
	// are rebuilt from the faces.
	back := root.Find("back").Mesh
	v := back.Data.Vertices
	if len(v) != 3 || v[0].Position != (mgl32.Vec3{-1, 1, 0}) || v[2].Position != (mgl32.Vec3{1, -1, 0}) {
		t.Errorf("back vertices: got %v", v)
	}
	if n := v[0].Normal; !vecNear(n, mgl32.Vec3{0, 0, -1}, 0.0001) {
		t.Errorf("back normal: expected (0,0,-1), got %v", n)
	}
}

func TestParseOBJErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line string
	}{
		{"bad float", "v 0 zero 0\n", ":1:"},
		{"short vertex", "v 0 0\n", ":1:"},
		{"index out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 9\n", ":4:"},
		{"no faces", "v 0 0 0\n", "no mesh data"},
	}
	for _, tt := range tests {
		_, err := parseOBJ(strings.NewReader(tt.src), "bad.obj", ".", nil)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.line) {
			t.Errorf("%s: expected %q in error, got %v", tt.name, tt.line, err)
		}
	}
}

func TestParseMTL(t *testing.T) {
	src := `newmtl red
Kd 1 0 0
Ns 64

newmtl dull
Ns 0.2
`
	mats, err := parseMTL(strings.NewReader(src), ".", nil)
	if err != nil {
		t.Fatalf("parseMTL: %v", err)
	}
	red := mats["red"]
	if red == nil || red.Albedo != (core.Color{R: 1, G: 0, B: 0, A: 1}) || red.Shininess != 64 {
		t.Errorf("red: got %+v", red)
	}
	if dull := mats["dull"]; dull == nil || dull.Shininess != 1 || dull.Albedo != core.ColorWhite {
		t.Errorf("dull: got %+v", dull)
	}
}

func writePNG(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestLoadOBJWithMaterials(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "bricks.png"), color.RGBA{200, 100, 50, 255})
	mtl := "newmtl red\nKd 1 0 0\nmap_Kd bricks.png\nnewmtl blue\nKd 0 0 1\nmap_Kd bricks.png\nmap_Bump -bm 1 bricks.png\n"
	if err := os.WriteFile(filepath.Join(dir, "scene.mtl"), []byte(mtl), 0o644); err != nil {
		t.Fatal(err)
	}
	obj := "mtllib scene.mtl\n" + cubeFaceOBJ + "usemtl blue\nf 1 3 4\n"
	path := filepath.Join(dir, "scene.obj")
	if err := os.WriteFile(path, []byte(obj), 0o644); err != nil {
		t.Fatal(err)
	}

	root, err := LoadOBJ(path, nil)
	if err != nil {
		t.Fatalf("LoadOBJ: %v", err)
	}
	front := root.Find("front").Mesh.Material
	back := root.Find("back").Mesh.Material
	if front == nil || front.Name != "red" {
		t.Fatalf("front material: got %+v", front)
	}
	if back == nil || back.Name != "blue" || back.NormalTexture == nil {
		t.Fatalf("back material: got %+v", back)
	}
	if front.AlbedoTexture == nil || front.AlbedoTexture != back.AlbedoTexture {
		t.Error("materials naming one image should share a texture")
	}
	tex := front.AlbedoTexture
	if tex.Width != 2 || tex.Height != 2 || tex.Pixels[0] != 200 || tex.Pixels[1] != 100 {
		t.Errorf("albedo texture: got %dx%d %v", tex.Width, tex.Height, tex.Pixels[:4])
	}
}

func TestLoadOBJMissingMTL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lonely.obj")
	obj := "mtllib nowhere.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl ghost\nf 1 2 3\n"
	if err := os.WriteFile(path, []byte(obj), 0o644); err != nil {
		t.Fatal(err)
	}
	root, err := LoadOBJ(path, nil)
	if err != nil {
		t.Fatalf("LoadOBJ: %v", err)
	}
	if m := root.Children[0].Mesh.Material; m != nil {
		t.Errorf("unknown material: expected default, got %+v", m)
	}

	if _, err := LoadOBJ(filepath.Join(dir, "absent.obj"), nil); err == nil {
		t.Error("LoadOBJ of a missing file: expected error")
	}
}

func TestTextureCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writePNG(t, path, color.RGBA{1, 2, 3, 255})

	cache := NewTextureCache()
	first, err := cache.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.Load(filepath.Join(dir, ".", "a.png"))
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("Load: expected the cached texture")
	}
	if cache.Len() != 1 {
		t.Errorf("Len: expected 1, got %d", cache.Len())
	}

	if _, err := cache.Load(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Load of a missing file: expected error")
	}
	if cache.Len() != 1 {
		t.Errorf("failed load was cached: Len %d", cache.Len())
	}
}
