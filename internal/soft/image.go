package soft

import (
	"image"
	"image/color"
)

// Image converts the display to 8-bit RGBA with the top row first, clamping
// each channel to [0, 1].
func (d *Device) Image() *image.RGBA {
	w, h := d.OutputSize()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := d.display.fetch(x, h-1-y)
			img.SetRGBA(x, y, color.RGBA{R: to8(c[0]), G: to8(c[1]), B: to8(c[2]), A: 255})
		}
	}
	return img
}

func to8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
