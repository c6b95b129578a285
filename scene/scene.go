// Package scene holds the demo world the renderer draws: a node graph of
// meshes, a fixed set of falling point lights and the lens textures used by
// the composite pass.
package scene

import (
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"clustered-deferred/core"
)

// Composite-pass inputs.
const (
	inputDirt      = "u_dirtTexture"
	inputStarburst = "u_starburstTexture"
)

const markerScale = 0.15

// ErrUnsupportedModel is returned by LoadModel for unknown file extensions.
var ErrUnsupportedModel = errors.New("unsupported model format")

// Scene manages a collection of nodes and a fixed number of point lights.
type Scene struct {
	Root *Node

	// Dirt and Starburst shape the lens-flare term of the composite pass.
	Dirt      *core.Texture
	Starburst *core.Texture
	// ShowLightMarkers draws a small sphere in each light's colour during the
	// composite pass.
	ShowLightMarkers bool

	cfg    core.SceneConfig
	lights []core.Light
	rng    *rand.Rand
	marker *Mesh
}

// New places numLights lights uniformly inside the configured bounds. The
// same seed always yields the same lights.
func New(cfg core.SceneConfig, numLights int) *Scene {
	s := &Scene{
		Root:      NewNode("Root"),
		Dirt:      NewDirtTexture(256, cfg.Seed),
		Starburst: NewStarburstTexture(256, 12),
		cfg:       cfg,
		lights:    make([]core.Light, numLights),
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		marker:    CreateSphere(1, 8, 6),
	}
	for i := range s.lights {
		s.lights[i] = s.randomLight()
	}
	return s
}

func (s *Scene) randomLight() core.Light {
	var p mgl32.Vec3
	for k := 0; k < 3; k++ {
		p[k] = s.cfg.LightMin[k] + s.rng.Float32()*(s.cfg.LightMax[k]-s.cfg.LightMin[k])
	}
	return core.Light{
		Position: p,
		Radius:   s.cfg.LightRadius,
		Color: mgl32.Vec3{
			0.5 + 0.5*s.rng.Float32(),
			0.5 + 0.5*s.rng.Float32(),
			0.5 + s.rng.Float32(),
		},
	}
}

func (s *Scene) AddNode(node *Node) {
	s.Root.AddChild(node)
}

// Lights returns the light records. The slice length is fixed for the life
// of the scene; callers must not modify it.
func (s *Scene) Lights() []core.Light { return s.lights }

// SetLight replaces light i.
func (s *Scene) SetLight(i int, l core.Light) { s.lights[i] = l }

// Update moves every light down by LightSpeed·dt. A light that falls below
// the lower bound reappears at the top.
func (s *Scene) Update(dt float32) {
	lo, hi := s.cfg.LightMin[1], s.cfg.LightMax[1]
	for i := range s.lights {
		y := s.lights[i].Position[1] - s.cfg.LightSpeed*dt
		if y < lo {
			y = hi - (lo - y)
			if y < lo {
				y = hi
			}
		}
		s.lights[i].Position[1] = y
	}
}

// Draw submits every visible mesh for the geometry pass.
func (s *Scene) Draw(dl core.DrawList) {
	s.Root.Traverse(func(n *Node) {
		if n.Visible && n.Mesh != nil {
			n.Mesh.Draw(dl, n.WorldMatrix())
		}
	})
}

// DrawEffect binds the lens textures and, when enabled, the light markers for
// the composite pass.
func (s *Scene) DrawEffect(dl core.DrawList) {
	if s.Dirt != nil {
		dl.SetTexture(inputDirt, s.Dirt)
	}
	if s.Starburst != nil {
		dl.SetTexture(inputStarburst, s.Starburst)
	}
	if !s.ShowLightMarkers {
		return
	}
	for _, l := range s.lights {
		dl.SetColor(inputAlbedo, core.Color{R: l.Color[0], G: l.Color[1], B: l.Color[2], A: 1})
		model := mgl32.Translate3D(l.Position[0], l.Position[1], l.Position[2]).
			Mul4(mgl32.Scale3D(markerScale, markerScale, markerScale))
		dl.DrawMesh(s.marker.Data, model)
	}
}

// LoadModel adds the nodes of a glTF (.gltf, .glb) or Wavefront (.obj) file
// under the root.
func (s *Scene) LoadModel(path string, log *zap.Logger) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		n, err := LoadOBJ(path, log)
		if err != nil {
			return err
		}
		s.AddNode(n)
		return nil
	case ".gltf", ".glb":
		res, err := LoadGLTF(path, log)
		if err != nil {
			return err
		}
		for _, n := range res.Roots {
			s.AddNode(n)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedModel, path)
}

// AddDemoGeometry builds a floor with rows of columns and spheres spanning
// the light volume, used when no model is configured.
func (s *Scene) AddDemoGeometry() {
	floor := NewNode("Floor")
	floor.Mesh = CreatePlane(40, 8)
	floor.Mesh.Material = NewMaterial("floor", core.Color{R: 0.8, G: 0.8, B: 0.75, A: 1})
	s.AddNode(floor)

	column := CreateCube(1)
	column.Material = NewMaterial("stone", core.Color{R: 0.7, G: 0.65, B: 0.6, A: 1})
	ball := CreateSphere(1.2, 24, 16)
	ball.Material = &Material{Name: "polished", Albedo: core.Color{R: 0.9, G: 0.9, B: 0.95, A: 1}, Shininess: 96}

	for i := -3; i <= 3; i++ {
		x := float32(i) * 4
		for _, z := range []float32{-4, 4} {
			c := NewNode("Column")
			c.Mesh = column
			c.SetPosition(mgl32.Vec3{x, 4, z})
			c.SetScale(mgl32.Vec3{1, 8, 1})
			s.AddNode(c)
		}
		b := NewNode("Sphere")
		b.Mesh = ball
		b.SetPosition(mgl32.Vec3{x, 1.2, 0})
		s.AddNode(b)
	}
}
