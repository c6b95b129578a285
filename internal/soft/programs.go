package soft

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"clustered-deferred/renderer"
)

// Unbound samplers read opaque white, as a default texture would.
var whiteTexel = func() *texture {
	t := newTexture(renderer.TextureDesc{Label: "white", Width: 1, Height: 1, Format: renderer.FormatRGBA32F})
	t.fill(mgl32.Vec4{1, 1, 1, 1})
	return t
}()

const rowBand = 16

func (dl *drawList) input(sampler string) *texture {
	if t, ok := dl.inputs[sampler]; ok {
		return t
	}
	return whiteTexel
}

// geometryFragment writes the g-buffer layout: albedo and coverage, then
// world normal and specular exponent. Extra g-buffers are cleared.
func (dl *drawList) geometryFragment() fragmentFunc {
	colmap := dl.input(renderer.SamplerColorMap)
	normap, hasNormap := dl.inputs[renderer.SamplerNormalMap]
	albedo := dl.color(renderer.InputAlbedo).Vec3()
	shininess := dl.float(renderer.InputShininess, 32)
	gb := dl.target.colors
	return func(x, y int, n mgl32.Vec3, uv mgl32.Vec2) {
		if n.Len() > 0 {
			n = n.Normalize()
		}
		if hasNormap {
			n = ApplyNormalMap(n, normap.sample(uv.X(), uv.Y()).Vec3())
		}
		tex := colmap.sample(uv.X(), uv.Y())
		col := mgl32.Vec3{albedo[0] * tex[0], albedo[1] * tex[1], albedo[2] * tex[2]}
		if len(gb) > 0 {
			gb[0].set(x, y, mgl32.Vec4{col[0], col[1], col[2], 1})
		}
		if len(gb) > 1 {
			gb[1].set(x, y, mgl32.Vec4{n[0], n[1], n[2], shininess})
		}
		for _, extra := range gb[min(len(gb), 2):] {
			extra.set(x, y, mgl32.Vec4{})
		}
	}
}

// overlayFragment emits the flat u_albedo colour, used for flare-source
// geometry in the composite pass.
func (dl *drawList) overlayFragment() fragmentFunc {
	c := dl.color(renderer.InputAlbedo)
	out := mgl32.Vec4{c.R, c.G, c.B, 1}
	additive := dl.pass.Additive
	tgt := dl.target.colors[0]
	return func(x, y int, _ mgl32.Vec3, _ mgl32.Vec2) {
		if additive {
			tgt.add(x, y, out)
		} else {
			tgt.set(x, y, out)
		}
	}
}

// pixelFunc returns the output colour of pixel (x, y).
type pixelFunc func(x, y int) mgl32.Vec4

// fullscreen runs a pixel program over the viewport in row bands. newFrag
// is called once per band so each band owns its scratch space.
func (d *Device) fullscreen(t *target, vp renderer.Viewport, additive bool, newFrag func() pixelFunc) error {
	if len(t.colors) == 0 {
		return nil
	}
	out := t.colors[0]
	var g errgroup.Group
	g.SetLimit(d.workers)
	for y0 := vp.Y; y0 < vp.Y+vp.Height; y0 += rowBand {
		y1 := min(y0+rowBand, vp.Y+vp.Height)
		g.Go(func() error {
			frag := newFrag()
			for y := y0; y < y1; y++ {
				for x := vp.X; x < vp.X+vp.Width; x++ {
					c := frag(x, y)
					if additive {
						out.add(x, y, c)
					} else {
						out.set(x, y, c)
					}
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (d *Device) fragmentProgram(prog *program, p *renderer.Pass, dl *drawList) (func() pixelFunc, error) {
	w, h := dl.target.width(), dl.target.height()
	switch prog.kind {
	case renderer.ProgramClusteredShading:
		return shadingProgram(prog.consts, p, dl, w, h), nil
	case renderer.ProgramExtractHDR:
		scene := dl.input(renderer.SamplerScene)
		threshold := prog.consts.BrightThreshold
		return func() pixelFunc {
			return func(x, y int) mgl32.Vec4 {
				c := scene.sample((float32(x)+0.5)/float32(w), (float32(y)+0.5)/float32(h))
				b := BrightPass(c.Vec3(), threshold)
				return b.Vec4(1)
			}
		}, nil
	case renderer.ProgramBlurHorizontal, renderer.ProgramBlurVertical:
		return blurProgram(prog.kind == renderer.ProgramBlurHorizontal, p, dl, w, h), nil
	case renderer.ProgramComposite:
		return compositeProgram(prog.consts, p, dl), nil
	}
	return nil, renderer.ErrUnknownProgram
}

// shadingProgram resolves lighting for every pixel from the g-buffers, the
// light buffer and the cluster lookup texture.
func shadingProgram(consts renderer.ProgramConstants, p *renderer.Pass, dl *drawList, w, h int) func() pixelFunc {
	depthTex := dl.input(renderer.SamplerDepth)
	gb0 := dl.input(renderer.GBufferSampler(0))
	gb1 := dl.input(renderer.GBufferSampler(1))
	lights := dl.input(renderer.SamplerLightBuffer)
	clusters := dl.input(renderer.SamplerClusterBuffer)

	view := p.Uniforms.Mat4(renderer.UniformView)
	cm := renderer.CameraMatrices{
		View:              view,
		InvViewProjection: p.Uniforms.Mat4(renderer.UniformInvViewProjection),
	}
	info := p.Uniforms.Vec4(renderer.UniformScreenInfo)
	screenW, screenH, near, far := info[0], info[1], info[2], info[3]
	if screenW <= 0 || screenH <= 0 {
		screenW, screenH = float32(w), float32(h)
	}
	eye := view.Inv().Col(3).Vec3()
	grid := consts.Grid
	ambient := consts.Ambient

	return func() pixelFunc {
		scratch := make([]int, 0, grid.MaxLightsPerCluster)
		return func(x, y int) mgl32.Vec4 {
			g0 := gb0.fetch(x, y)
			if g0[3] == 0 {
				return mgl32.Vec4{0, 0, 0, 1}
			}
			albedo := g0.Vec3()
			g1 := gb1.fetch(x, y)
			n := g1.Vec3()
			if n.Len() > 0 {
				n = n.Normalize()
			}
			shininess := g1[3]

			fx, fy := float32(x)+0.5, float32(y)+0.5
			world := cm.ReconstructWorld(fx/screenW, fy/screenH, depthTex.fetch(x, y)[0])
			viewDepth := -view.Mul4x1(world.Vec4(1)).Z()
			cx, cy, cz := grid.Cell(fx, fy, int(screenW), int(screenH), viewDepth, near, far)

			toEye := eye.Sub(world)
			if toEye.Len() > 0 {
				toEye = toEye.Normalize()
			}
			color := albedo.Mul(ambient)
			scratch = renderer.DecodeCluster(clusters.data, clusters.width(), grid.Index(cx, cy, cz), grid.MaxLightsPerCluster, scratch[:0])
			for _, li := range scratch {
				if li < 0 || li >= consts.NumLights {
					continue
				}
				l := renderer.DecodeLight(lights.data, lights.width(), li)
				toLight := l.Position.Sub(world)
				dist := toLight.Len()
				atten := Falloff(dist, l.Radius)
				if atten == 0 {
					continue
				}
				diffuse, specular := BlinnPhong(n, toLight.Mul(1/dist), toEye, shininess)
				for k := 0; k < 3; k++ {
					color[k] += l.Color[k] * atten * (albedo[k]*diffuse + specular)
				}
			}
			return color.Vec4(1)
		}
	}
}

// blurProgram is one direction of the separable Gaussian.
func blurProgram(horizontal bool, p *renderer.Pass, dl *drawList, w, h int) func() pixelFunc {
	src := dl.input(renderer.SamplerScene)
	weights := p.Uniforms.Floats(renderer.UniformBlurWeights)
	gaps := p.Uniforms.Floats(renderer.UniformBlurOffsets)
	taps := min(len(weights), len(gaps))
	return func() pixelFunc {
		return func(x, y int) mgl32.Vec4 {
			u, v := (float32(x)+0.5)/float32(w), (float32(y)+0.5)/float32(h)
			if taps == 0 {
				return src.sample(u, v)
			}
			sum := src.sample(u, v).Vec3().Mul(weights[0])
			for k := 1; k < taps; k++ {
				du, dv := gaps[k], float32(0)
				if !horizontal {
					du, dv = 0, gaps[k]
				}
				a := src.sample(u+du, v+dv).Vec3()
				b := src.sample(u-du, v-dv).Vec3()
				sum = sum.Add(a.Add(b).Mul(weights[k]))
			}
			return sum.Vec4(1)
		}
	}
}

// compositeProgram adds bloom and a ghost/halo lens flare to the lit scene
// and tone maps the result for display.
func compositeProgram(consts renderer.ProgramConstants, p *renderer.Pass, dl *drawList) func() pixelFunc {
	scene := dl.input(renderer.SamplerScene)
	bloom := dl.input(renderer.SamplerBloom)
	dirt := dl.input(renderer.SamplerDirt)
	starburst := dl.input(renderer.SamplerStarburst)

	info := p.Uniforms.Vec4(renderer.UniformScreenInfo)
	invW, invH := info[0], info[1]
	if invW <= 0 || invH <= 0 {
		invW, invH = 1/float32(dl.target.width()), 1/float32(dl.target.height())
	}
	view := p.Uniforms.Mat4(renderer.UniformView)
	// Spin the starburst with the camera.
	camRot := view.Col(0).Vec3().Dot(mgl32.Vec3{0, 0, 1}) + view.Col(2).Vec3().Dot(mgl32.Vec3{0, 1, 0})
	sinR, cosR := float32(math.Sin(float64(camRot))), float32(math.Cos(float64(camRot)))

	return func() pixelFunc {
		return func(x, y int) mgl32.Vec4 {
			u, v := (float32(x)+0.5)*invW, (float32(y)+0.5)*invH
			hdr := scene.sample(u, v).Vec3()
			hdr = hdr.Add(bloom.sample(u, v).Vec3().Mul(consts.BloomStrength))

			if consts.FlareStrength > 0 {
				flare := lensFlare(bloom, 1-u, 1-v)
				su, sv := u-0.5, v-0.5
				su, sv = cosR*su-sinR*sv+0.5, sinR*su+cosR*sv+0.5
				lens := dirt.sample(u, v)[0] + starburst.sample(su, sv)[0]
				hdr = hdr.Add(flare.Mul(lens * consts.FlareStrength))
			}
			return ToneMap(hdr, consts.Exposure).Vec4(1)
		}
	}
}

// lensFlare samples ghosts mirrored through the screen centre plus a halo
// ring from the bloom texture at flipped coordinates (u, v).
func lensFlare(bloom *texture, u, v float32) mgl32.Vec3 {
	centre := mgl32.Vec2{0.5, 0.5}
	tc := mgl32.Vec2{u, v}
	ghostVec := centre.Sub(tc).Mul(ghostDispersal)
	maxDist := centre.Len()

	var out mgl32.Vec3
	for i := 0; i < flareGhosts; i++ {
		off := tc.Add(ghostVec.Mul(float32(i)))
		off = mgl32.Vec2{fract(off.X()), fract(off.Y())}
		weight := 1 - centre.Sub(off).Len()/maxDist
		weight = float32(math.Pow(float64(max(weight, 0)), flareDistortion))
		out = out.Add(bloom.sample(off.X(), off.Y()).Vec3().Mul(weight))
	}
	if ghostVec.Len() > 0 {
		halo := tc.Add(ghostVec.Normalize().Mul(haloWidth))
		halo = mgl32.Vec2{fract(halo.X()), fract(halo.Y())}
		weight := 1 - centre.Sub(halo).Len()/maxDist
		weight = float32(math.Pow(float64(max(weight, 0)), 5))
		out = out.Add(bloom.sample(halo.X(), halo.Y()).Vec3().Mul(weight))
	}
	return out
}
