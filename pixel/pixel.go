// Package pixel provides pure colour predicates used to classify and fuse tiles.
// Alpha is ignored everywhere: tiles are opaque captures.
package pixel

import (
	"image/color"
	"math"
)

var White = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// NearWhite reports whether c lies within threshold of pure white,
// measured as Euclidean distance over the inverted channels.
func NearWhite(c color.RGBA, threshold float64) bool {
	r := 255 - int(c.R)
	g := 255 - int(c.G)
	b := 255 - int(c.B)
	return float64(r*r+g*g+b*b) <= threshold*threshold
}

// Close reports whether a and b lie within threshold of each other.
func Close(a, b color.RGBA, threshold float64) bool {
	return float64(DistanceSq(a, b)) <= threshold*threshold
}

// DistanceSq returns the squared Euclidean RGB distance between a and b.
func DistanceSq(a, b color.RGBA) int {
	r := int(a.R) - int(b.R)
	g := int(a.G) - int(b.G)
	bl := int(a.B) - int(b.B)
	return r*r + g*g + bl*bl
}

// Equal reports whether a and b have identical RGB channels.
func Equal(a, b color.RGBA) bool {
	return a.R == b.R && a.G == b.G && a.B == b.B
}

// Brightness returns the perceived brightness of c,
// sqrt(0.241·R² + 0.691·G² + 0.068·B²).
func Brightness(c color.RGBA) float64 {
	r := float64(c.R)
	g := float64(c.G)
	b := float64(c.B)
	return math.Sqrt(0.241*r*r + 0.691*g*g + 0.068*b*b)
}

// Blend mixes front and back per channel: front·amount + back·(1-amount).
func Blend(front, back color.RGBA, amount float64) color.RGBA {
	mix := func(f, b uint8) uint8 {
		v := float64(f)*amount + float64(b)*(1-amount)
		return uint8(math.Round(min(max(v, 0), 255)))
	}
	return color.RGBA{
		R: mix(front.R, back.R),
		G: mix(front.G, back.G),
		B: mix(front.B, back.B),
		A: 255,
	}
}

// Darker orders two colours by brightness. Ties are broken on the packed RGB
// value so that the result does not depend on argument order.
func Darker(a, b color.RGBA) (front, back color.RGBA) {
	ba, bb := Brightness(a), Brightness(b)
	switch {
	case ba < bb:
		return a, b
	case bb < ba:
		return b, a
	case pack(a) <= pack(b):
		return a, b
	default:
		return b, a
	}
}

func pack(c color.RGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}
