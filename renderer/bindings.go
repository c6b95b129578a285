package renderer

import (
	"errors"
	"fmt"
	"sort"
)

// ErrSlotCollision is returned when two samplers of one program share a
// texture slot.
var ErrSlotCollision = errors.New("texture slot collision")

// Sampler names shared between pass setup and program sources.
const (
	SamplerLightBuffer   = "u_lightbuffer"
	SamplerClusterBuffer = "u_clusterbuffer"
	SamplerDepth         = "u_depthBuffer"
	SamplerScene         = "u_sceneTexture"
	SamplerBloom         = "u_HDR"
	SamplerDirt          = "u_dirtTexture"
	SamplerStarburst     = "u_starburstTexture"
	SamplerColorMap      = "u_colmap"
	SamplerNormalMap     = "u_normap"
)

// GBufferSampler returns the sampler name of g-buffer i.
func GBufferSampler(i int) string { return fmt.Sprintf("u_gbuffers[%d]", i) }

// SlotTable maps sampler names to texture slots for one program.
type SlotTable map[string]int

// Slot returns the slot for sampler, panicking on an unknown name: every
// caller builds its bindings from the same table.
func (t SlotTable) Slot(sampler string) int {
	s, ok := t[sampler]
	if !ok {
		panic(fmt.Sprintf("renderer: sampler %q not in slot table", sampler))
	}
	return s
}

// Validate reports any two samplers sharing a slot, or negative slots.
func (t SlotTable) Validate() error {
	names := make([]string, 0, len(t))
	for n := range t {
		names = append(names, n)
	}
	sort.Strings(names)
	owner := make(map[int]string, len(t))
	for _, n := range names {
		s := t[n]
		if s < 0 {
			return fmt.Errorf("%w: %s has negative slot %d", ErrSlotCollision, n, s)
		}
		if prev, ok := owner[s]; ok {
			return fmt.Errorf("%w: %s and %s both use slot %d", ErrSlotCollision, prev, n, s)
		}
		owner[s] = n
	}
	return nil
}

// Bind builds a TextureBinding for sampler.
func (t SlotTable) Bind(sampler string, tex TextureID) TextureBinding {
	return TextureBinding{Slot: t.Slot(sampler), Sampler: sampler, Texture: tex}
}

// BindingTables is the slot assignment for every program of the pipeline.
type BindingTables map[ProgramKind]SlotTable

// firstGBufferSlot follows light buffer, cluster buffer and depth.
const firstGBufferSlot = 3

// DefaultBindings returns the slot tables for a pipeline with numGBuffers
// g-buffers.
func DefaultBindings(numGBuffers int) BindingTables {
	shading := SlotTable{
		SamplerLightBuffer:   0,
		SamplerClusterBuffer: 1,
		SamplerDepth:         2,
	}
	for i := 0; i < numGBuffers; i++ {
		shading[GBufferSampler(i)] = firstGBufferSlot + i
	}
	return BindingTables{
		ProgramGeometry:         {SamplerColorMap: 0, SamplerNormalMap: 1},
		ProgramClusteredShading: shading,
		ProgramExtractHDR:       {SamplerScene: 0},
		ProgramBlurHorizontal:   {SamplerScene: 0},
		ProgramBlurVertical:     {SamplerScene: 0},
		// Slots 0 and 1 belong to the scene's lens textures.
		ProgramComposite: {SamplerDirt: 0, SamplerStarburst: 1, SamplerScene: 2, SamplerBloom: 3},
	}
}

// Validate checks every table.
func (b BindingTables) Validate() error {
	for kind, t := range b {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
	return nil
}

// Draw-list inputs a scene may set while a pass is active.
const (
	InputAlbedo    = "u_albedo"
	InputShininess = "u_shininess"
)

// ProgramUniforms lists the non-sampler inputs each program declares. A pass
// setting any other name is rejected with ErrUnknownUniform.
var ProgramUniforms = map[ProgramKind][]string{
	ProgramGeometry: {
		UniformViewProjection, UniformView, InputAlbedo, InputShininess,
	},
	ProgramClusteredShading: {
		UniformViewProjection, UniformView, UniformInvProjection,
		UniformInvViewProjection, UniformScreenInfo,
	},
	ProgramExtractHDR:     {UniformViewProjection},
	ProgramBlurHorizontal: {UniformViewProjection, UniformBlurWeights, UniformBlurOffsets},
	ProgramBlurVertical:   {UniformViewProjection, UniformBlurWeights, UniformBlurOffsets},
	ProgramComposite: {
		UniformViewProjection, UniformView, UniformScreenInfo, InputAlbedo,
	},
}
