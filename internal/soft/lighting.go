package soft

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Rec. 709 luma weights used by the bright pass.
var lumaWeights = mgl32.Vec3{0.2126, 0.7152, 0.0722}

// Lens-flare shape.
const (
	flareGhosts     = 4
	ghostDispersal  = 0.37
	haloWidth       = 0.45
	displayGamma    = 2.2
	flareDistortion = 10
)

// Falloff is the windowed inverse-square attenuation of a point light at
// distance d. It reaches exactly zero at the radius and stays zero beyond.
func Falloff(d, radius float32) float32 {
	if radius <= 0 || d >= radius {
		return 0
	}
	r := d / radius
	w := mgl32.Clamp(1-r*r*r*r, 0, 1)
	return w * w / (d*d + 1)
}

// BlinnPhong returns the diffuse and specular factors for unit vectors n
// (surface normal), l (to light) and v (to eye).
func BlinnPhong(n, l, v mgl32.Vec3, shininess float32) (diffuse, specular float32) {
	diffuse = n.Dot(l)
	if diffuse <= 0 {
		return 0, 0
	}
	h := l.Add(v)
	if h.Len() == 0 {
		return diffuse, 0
	}
	ndoth := max(n.Dot(h.Normalize()), 0)
	return diffuse, float32(math.Pow(float64(ndoth), float64(max(shininess, 1))))
}

// Luminance is the Rec. 709 luma of a linear colour.
func Luminance(c mgl32.Vec3) float32 { return c.Dot(lumaWeights) }

// BrightPass keeps c when its luminance reaches threshold and returns black
// otherwise.
func BrightPass(c mgl32.Vec3, threshold float32) mgl32.Vec3 {
	if Luminance(c) >= threshold {
		return c
	}
	return mgl32.Vec3{}
}

// ToneMap applies exponential exposure and display gamma.
func ToneMap(hdr mgl32.Vec3, exposure float32) mgl32.Vec3 {
	var out mgl32.Vec3
	for i, c := range hdr {
		ldr := 1 - math.Exp(-float64(max(c, 0)*exposure))
		out[i] = float32(math.Pow(ldr, 1/displayGamma))
	}
	return out
}

// ApplyNormalMap perturbs a geometric normal by a tangent-space normal map
// sample in [0,1]³, deriving the tangent frame from the normal alone.
func ApplyNormalMap(geomNormal, normap mgl32.Vec3) mgl32.Vec3 {
	m := normap.Mul(2).Sub(mgl32.Vec3{1, 1, 1})
	up := mgl32.Vec3{0.001, 1, 0.001}.Normalize()
	tangent := geomNormal.Cross(up)
	if tangent.Len() < 1e-6 {
		tangent = geomNormal.Cross(mgl32.Vec3{1, 0, 0})
	}
	tangent = tangent.Normalize()
	binormal := geomNormal.Cross(tangent)
	n := tangent.Mul(m.Y()).Add(binormal.Mul(m.X())).Add(geomNormal.Mul(m.Z()))
	if n.Len() == 0 {
		return geomNormal
	}
	return n.Normalize()
}
