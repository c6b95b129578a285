package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Uniform names shared with the program sources.
const (
	UniformViewProjection    = "u_viewProjectionMatrix"
	UniformView              = "u_viewMatrix"
	UniformInvProjection     = "u_invProjectionMatrix"
	UniformInvViewProjection = "u_invViewProjectionMatrix"
	UniformScreenInfo        = "u_screenInfobuffer"
	UniformBlurWeights       = "u_weight"
	UniformBlurOffsets       = "u_gap"
)

// ── Geometry ──────────────────────────────────────────────────────────────────

// GeometryPass renders the scene into the g-buffers. The scene binds its own
// material textures through the draw list.
func (r *Renderer) GeometryPass(scene Scene) *Pass {
	p := &Pass{
		Name:      "geometry",
		Kind:      ProgramGeometry,
		Program:   r.programs[ProgramGeometry],
		Target:    r.targets.GBufferFramebuffer(),
		Viewport:  r.viewport,
		Clear:     ClearColor | ClearDepth,
		DepthTest: true,
		Draw:      scene.Draw,
	}
	p.Uniforms.SetMat4(UniformViewProjection, r.matrices.ViewProjection)
	p.Uniforms.SetMat4(UniformView, r.matrices.View)
	return p
}

// ── Clustered shading ─────────────────────────────────────────────────────────

// ShadingPass resolves lighting from the g-buffers, light buffer and cluster
// texture into the lighting target.
func (r *Renderer) ShadingPass() *Pass {
	slots := r.bindings[ProgramClusteredShading]
	p := &Pass{
		Name:       "clustered-shading",
		Kind:       ProgramClusteredShading,
		Program:    r.programs[ProgramClusteredShading],
		Target:     r.targets.LightingFramebuffer(),
		Viewport:   r.viewport,
		Clear:      ClearColor,
		Fullscreen: true,
	}
	p.Textures = append(p.Textures,
		slots.Bind(SamplerLightBuffer, r.lights.Texture()),
		slots.Bind(SamplerClusterBuffer, r.clusters.Texture()),
		slots.Bind(SamplerDepth, r.targets.Texture(TargetDepth)),
	)
	for i := 0; i < r.targets.NumGBuffers(); i++ {
		p.Textures = append(p.Textures, slots.Bind(GBufferSampler(i), r.targets.Texture(GBufferTarget(i))))
	}

	m := r.matrices
	p.Uniforms.SetMat4(UniformViewProjection, m.ViewProjection)
	p.Uniforms.SetMat4(UniformView, m.View)
	p.Uniforms.SetMat4(UniformInvProjection, m.InvProjection)
	p.Uniforms.SetMat4(UniformInvViewProjection, m.InvViewProjection)
	// Raw pixel size: the program divides gl_FragCoord by it.
	p.Uniforms.SetVec4(UniformScreenInfo, mgl32.Vec4{float32(r.width), float32(r.height), m.Near, m.Far})
	return p
}

// ── Post-process chain ────────────────────────────────────────────────────────

// ExtractPass keeps the pixels of the lit scene above the bright-pass threshold.
func (r *Renderer) ExtractPass() *Pass {
	p := &Pass{
		Name:       "extract-hdr",
		Kind:       ProgramExtractHDR,
		Program:    r.programs[ProgramExtractHDR],
		Target:     r.targets.ExtractFramebuffer(),
		Viewport:   r.viewport,
		Clear:      ClearColor,
		Fullscreen: true,
		Textures:   []TextureBinding{r.bindings[ProgramExtractHDR].Bind(SamplerScene, r.targets.Texture(TargetLighting))},
	}
	p.Uniforms.SetMat4(UniformViewProjection, r.matrices.ViewProjection)
	return p
}

// BlurPass is one half of the separable Gaussian: horizontal reads the
// extract target, vertical reads the horizontal result.
func (r *Renderer) BlurPass(horizontal bool) *Pass {
	kernel := NewBlurKernel(r.targets.Size())
	p := &Pass{
		Viewport:   r.viewport,
		Clear:      ClearColor,
		Fullscreen: true,
	}
	var offsets [BlurTaps]float32
	if horizontal {
		p.Name = "blur-horizontal"
		p.Kind = ProgramBlurHorizontal
		p.Target = r.targets.BlurHFramebuffer()
		p.Textures = []TextureBinding{r.bindings[p.Kind].Bind(SamplerScene, r.targets.Texture(TargetHDRExtract))}
		offsets = kernel.Horizontal
	} else {
		p.Name = "blur-vertical"
		p.Kind = ProgramBlurVertical
		p.Target = r.targets.BlurVFramebuffer()
		p.Textures = []TextureBinding{r.bindings[p.Kind].Bind(SamplerScene, r.targets.Texture(TargetBlurH))}
		offsets = kernel.Vertical
	}
	p.Program = r.programs[p.Kind]
	p.Uniforms.SetMat4(UniformViewProjection, r.matrices.ViewProjection)
	p.Uniforms.SetFloats(UniformBlurWeights, kernel.Weights[:])
	p.Uniforms.SetFloats(UniformBlurOffsets, offsets[:])
	return p
}

// CompositePass draws straight to the display: scene overlay geometry first,
// then the lit scene with bloom and lens flare, blended additively over a
// cleared target.
func (r *Renderer) CompositePass(scene Scene) *Pass {
	slots := r.bindings[ProgramComposite]
	p := &Pass{
		Name:       "composite",
		Kind:       ProgramComposite,
		Program:    r.programs[ProgramComposite],
		Target:     DisplayFramebuffer,
		Viewport:   r.viewport,
		Clear:      ClearColor | ClearDepth,
		Additive:   true,
		Draw:       scene.DrawEffect,
		Fullscreen: true,
		Textures: []TextureBinding{
			slots.Bind(SamplerScene, r.targets.Texture(TargetLighting)),
			slots.Bind(SamplerBloom, r.targets.Texture(TargetBlurV)),
		},
	}
	m := r.matrices
	p.Uniforms.SetMat4(UniformViewProjection, m.ViewProjection)
	p.Uniforms.SetMat4(UniformView, m.View)
	// Reciprocal pixel size: the program multiplies gl_FragCoord by it.
	p.Uniforms.SetVec4(UniformScreenInfo, mgl32.Vec4{1 / float32(r.width), 1 / float32(r.height), m.Near, m.Far})
	return p
}
