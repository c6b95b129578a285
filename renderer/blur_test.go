package renderer

import (
	"math"
	"testing"
)

func TestBlurKernelWeights(t *testing.T) {
	k := NewBlurKernel(800, 600)
	if sum := k.WeightSum(); math.Abs(float64(sum)-1) > 0.0001 {
		t.Errorf("WeightSum: expected 1, got %v", sum)
	}
	for i := 1; i < BlurTaps; i++ {
		if k.Weights[i] >= k.Weights[i-1] {
			t.Errorf("weight %d: expected < %v, got %v", i, k.Weights[i-1], k.Weights[i])
		}
	}
}

func TestBlurOffsets(t *testing.T) {
	k := NewBlurKernel(800, 600)
	if k.Horizontal[0] != 0 || k.Vertical[0] != 0 {
		t.Errorf("centre tap: expected 0, got %v and %v", k.Horizontal[0], k.Vertical[0])
	}
	for i := 0; i < BlurTaps; i++ {
		if got := k.Horizontal[i] * 800; math.Abs(float64(got-blurTexelOffsets[i])) > 0.0001 {
			t.Errorf("horizontal %d: expected %v texels, got %v", i, blurTexelOffsets[i], got)
		}
		if got := k.Vertical[i] * 600; math.Abs(float64(got-blurTexelOffsets[i])) > 0.0001 {
			t.Errorf("vertical %d: expected %v texels, got %v", i, blurTexelOffsets[i], got)
		}
	}

	if zero := BlurOffsets(0); zero != [BlurTaps]float32{} {
		t.Errorf("BlurOffsets(0): expected zeros, got %v", zero)
	}
}
