package fusion

import (
	"image/color"

	"github.com/eak1mov/go-tilemerge/pixel"
)

const (
	DefaultWhiteThreshold    = 5
	DefaultLikenessThreshold = 10
	DefaultBlendAmount       = 0.999
)

// Standard keeps whichever pixel carries data. When both do and they disagree,
// the darker one wins almost entirely: drawn map content is darker than the
// background it was printed on.
type Standard struct {
	params Params
}

func NewStandard(params Params) *Standard {
	return &Standard{params: params}
}

func DefaultStandard() *Standard {
	return NewStandard(Params{
		WhiteThreshold:    DefaultWhiteThreshold,
		LikenessThreshold: DefaultLikenessThreshold,
		BlendAmount:       DefaultBlendAmount,
	})
}

func (s *Standard) Name() string   { return "standard" }
func (s *Standard) Params() Params { return s.params }

func (s *Standard) FusePixel(a, b color.RGBA) color.RGBA {
	p := s.params
	if pixel.NearWhite(a, p.WhiteThreshold) {
		return b
	}
	if pixel.NearWhite(b, p.WhiteThreshold) {
		return a
	}
	if pixel.Close(a, b, p.LikenessThreshold) {
		return a
	}
	front, back := pixel.Darker(a, b)
	return pixel.Blend(front, back, p.BlendAmount)
}
