package engine

import (
	"image"
	"image/color"

	"github.com/eak1mov/go-tilemerge/pixel"
	"github.com/eak1mov/go-tilemerge/tile"
)

// Sentinel is the colour the tile exporter fills empty captures with.
// It is off-white, unlike blank paper.
var Sentinel = color.RGBA{R: 253, G: 253, B: 253, A: 255}

// CompleteThreshold is the distance from pure white under which a pixel
// counts as blank background when testing completeness.
const CompleteThreshold = 5

type Class int

const (
	ClassIncomplete Class = iota
	ClassComplete
	ClassDataless
)

func (c Class) String() string {
	switch c {
	case ClassComplete:
		return "complete"
	case ClassDataless:
		return "dataless"
	default:
		return "incomplete"
	}
}

// Classifier decides whether a tile is dataless, complete or incomplete.
type Classifier struct {
	Sentinel       color.RGBA
	WhiteThreshold float64
}

func DefaultClassifier() Classifier {
	return Classifier{Sentinel: Sentinel, WhiteThreshold: CompleteThreshold}
}

// Dataless reports whether every pixel of img equals the sentinel colour.
func (c Classifier) Dataless(img *image.RGBA) bool {
	return pixel.All(img, func(p color.RGBA) bool {
		return pixel.Equal(p, c.Sentinel)
	})
}

// Complete reports whether no pixel of img is near pure white.
func (c Classifier) Complete(img *image.RGBA) bool {
	return !pixel.Any(img, func(p color.RGBA) bool {
		return pixel.NearWhite(p, c.WhiteThreshold)
	})
}

// Classify decodes t and classifies it. The decoded image stays loaded;
// releasing it is up to the caller.
func (c Classifier) Classify(t *tile.Tile) (Class, error) {
	img, err := t.Image()
	if err != nil {
		return ClassIncomplete, err
	}
	switch {
	case c.Dataless(img):
		return ClassDataless, nil
	case c.Complete(img):
		return ClassComplete, nil
	default:
		return ClassIncomplete, nil
	}
}
