package renderer

// BlurTaps is the number of weights in the one-sided Gaussian kernel.
const BlurTaps = 5

// BlurWeights is a 9-tap Gaussian folded to 5 taps with linear sampling.
// The centre weight plus twice the side weights sums to 1.
var BlurWeights = [BlurTaps]float32{0.2270270270, 0.1945945946, 0.1216216216, 0.0540540541, 0.0162162162}

// blurTexelOffsets are the sample positions in texels for each tap.
var blurTexelOffsets = [BlurTaps]float32{0.0, 1.4117647, 3.2941176, 5.1764706, 7.0588235}

// BlurOffsets returns the sample offsets in UV units for a target extent of
// size texels along the blur axis.
func BlurOffsets(size int) [BlurTaps]float32 {
	var out [BlurTaps]float32
	if size <= 0 {
		return out
	}
	inv := 1 / float32(size)
	for i, o := range blurTexelOffsets {
		out[i] = o * inv
	}
	return out
}

// BlurKernel holds the weights and both direction offsets for one target size.
type BlurKernel struct {
	Weights    [BlurTaps]float32
	Horizontal [BlurTaps]float32
	Vertical   [BlurTaps]float32
}

func NewBlurKernel(width, height int) BlurKernel {
	return BlurKernel{
		Weights:    BlurWeights,
		Horizontal: BlurOffsets(width),
		Vertical:   BlurOffsets(height),
	}
}

// WeightSum is the total energy of the symmetric kernel.
func (k BlurKernel) WeightSum() float32 {
	sum := k.Weights[0]
	for _, w := range k.Weights[1:] {
		sum += 2 * w
	}
	return sum
}
