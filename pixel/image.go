package pixel

import (
	"image"
	"image/color"
)

// All reports whether pred holds for every pixel of img.
// The scan walks the Pix slice row by row and stops at the first mismatch.
func All(img *image.RGBA, pred func(color.RGBA) bool) bool {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[img.PixOffset(bounds.Min.X, y):img.PixOffset(bounds.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			c := color.RGBA{R: row[i], G: row[i+1], B: row[i+2], A: row[i+3]}
			if !pred(c) {
				return false
			}
		}
	}
	return true
}

// Any reports whether pred holds for at least one pixel of img.
func Any(img *image.RGBA, pred func(color.RGBA) bool) bool {
	return !All(img, func(c color.RGBA) bool { return !pred(c) })
}
