package scene

import "clustered-deferred/core"

// Program input names the geometry program declares.
const (
	inputColorMap  = "u_colmap"
	inputNormalMap = "u_normap"
	inputAlbedo    = "u_albedo"
	inputShininess = "u_shininess"
)

// Material describes how a mesh writes the g-buffers.
type Material struct {
	Name      string
	Albedo    core.Color // multiplied with AlbedoTexture
	Shininess float32    // Blinn-Phong exponent

	// AlbedoTexture defaults to white when nil.
	AlbedoTexture *core.Texture
	// NormalTexture perturbs the geometric normal; nil leaves it unchanged.
	NormalTexture *core.Texture
}

// DefaultMaterial returns a plain white material.
func DefaultMaterial() *Material {
	return &Material{
		Name:      "Default",
		Albedo:    core.ColorWhite,
		Shininess: 32,
	}
}

// NewMaterial creates a material with the given albedo color.
func NewMaterial(name string, albedo core.Color) *Material {
	return &Material{
		Name:      name,
		Albedo:    albedo,
		Shininess: 32,
	}
}

var (
	defaultMaterial   = DefaultMaterial()
	whiteTexture      = NewSolidTexture("white", 255, 255, 255, 255)
	flatNormalTexture = NewSolidTexture("flat-normal", 128, 128, 255, 255)
)

// Bind sets the material's inputs on dl.
func (m *Material) Bind(dl core.DrawList) {
	albedo := m.AlbedoTexture
	if albedo == nil {
		albedo = whiteTexture
	}
	normal := m.NormalTexture
	if normal == nil {
		normal = flatNormalTexture
	}
	dl.SetTexture(inputColorMap, albedo)
	dl.SetTexture(inputNormalMap, normal)
	dl.SetColor(inputAlbedo, m.Albedo)
	dl.SetFloat(inputShininess, m.Shininess)
}
