package slip

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// prepare produces the grayscale variant most slips OCR best from: boosted
// contrast, sharpened, upscaled when the photo is small.
func prepare(img image.Image) *image.NRGBA {
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, 15)
	out = imaging.Sharpen(out, 0.7)
	if out.Bounds().Dy() < 900 {
		out = imaging.Resize(out, 0, 1300, imaging.Lanczos)
	}
	return out
}

// binarize applies a global threshold. Handwritten carbon-copy slips need a
// fairly high cutoff or the pen strokes wash out.
func binarize(img image.Image, threshold uint8) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := img.At(x, y).RGBA()
			gray := uint8((r + g + bb) / 3 >> 8)
			var v uint8 = 255
			if gray <= threshold {
				v = 0
			}
			out.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}
