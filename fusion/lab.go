package fusion

import (
	"image/color"

	"github.com/eak1mov/go-tilemerge/pixel"
	"github.com/lucasb-eyer/go-colorful"
)

// DefaultLabLikeness is a CIE76 ΔE just above the noticeable difference.
const DefaultLabLikeness = 2.3

// Lab follows the same rules as Standard but measures likeness as CIE76 ΔE
// (0..100 scale) and brightness as Lab lightness.
type Lab struct {
	params Params
}

func NewLab(params Params) *Lab {
	return &Lab{params: params}
}

func DefaultLab() *Lab {
	return NewLab(Params{
		WhiteThreshold:    DefaultWhiteThreshold,
		LikenessThreshold: DefaultLabLikeness,
		BlendAmount:       DefaultBlendAmount,
	})
}

func (l *Lab) Name() string   { return "lab" }
func (l *Lab) Params() Params { return l.params }

func (l *Lab) FusePixel(a, b color.RGBA) color.RGBA {
	p := l.params
	if pixel.NearWhite(a, p.WhiteThreshold) {
		return b
	}
	if pixel.NearWhite(b, p.WhiteThreshold) {
		return a
	}

	ca, cb := toColorful(a), toColorful(b)
	if ca.DistanceLab(cb)*100 <= p.LikenessThreshold {
		return a
	}

	la, _, _ := ca.Lab()
	lb, _, _ := cb.Lab()
	switch {
	case la < lb:
		return pixel.Blend(a, b, p.BlendAmount)
	case lb < la:
		return pixel.Blend(b, a, p.BlendAmount)
	}
	front, back := pixel.Darker(a, b)
	return pixel.Blend(front, back, p.BlendAmount)
}

func toColorful(c color.RGBA) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}
