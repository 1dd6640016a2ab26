// Package fusion combines two partial captures of the same tile into one image.
//
// An Algorithm decides the output colour of a single pixel position; Images and
// Parallel apply it over whole tiles.
package fusion

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/sync/errgroup"
)

var ErrSizeMismatch = errors.New("tilemerge: tile sizes differ")

// Params are the tunables every fusion algorithm exposes.
type Params struct {
	// WhiteThreshold is the distance from pure white under which a pixel is blank.
	WhiteThreshold float64
	// LikenessThreshold is the distance under which two pixels are considered equal.
	LikenessThreshold float64
	// BlendAmount is the weight of the darker pixel when two data pixels disagree.
	BlendAmount float64
}

// Algorithm fuses two pixels found at the same position of two duplicate tiles.
// Implementations must be safe for concurrent use.
type Algorithm interface {
	Name() string
	Params() Params
	FusePixel(a, b color.RGBA) color.RGBA
}

// Images fuses a and b pixel by pixel on the calling goroutine.
func Images(alg Algorithm, a, b *image.RGBA) (*image.RGBA, error) {
	dst, err := newDst(a, b)
	if err != nil {
		return nil, err
	}
	fuseRows(alg, a, b, dst, 0, dst.Bounds().Dy())
	return dst, nil
}

// Parallel fuses a and b splitting the rows into bands processed by up to
// workers goroutines. The result is identical to Images.
func Parallel(ctx context.Context, alg Algorithm, a, b *image.RGBA, workers int) (*image.RGBA, error) {
	if workers <= 1 {
		return Images(alg, a, b)
	}

	dst, err := newDst(a, b)
	if err != nil {
		return nil, err
	}

	height := dst.Bounds().Dy()
	band := max((height+workers-1)/workers, 1)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y0 := 0; y0 < height; y0 += band {
		y1 := min(y0+band, height)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fuseRows(alg, a, b, dst, y0, y1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dst, nil
}

func newDst(a, b *image.RGBA) (*image.RGBA, error) {
	sa, sb := a.Bounds().Size(), b.Bounds().Size()
	if sa != sb {
		return nil, fmt.Errorf("%w: %v vs %v", ErrSizeMismatch, sa, sb)
	}
	return image.NewRGBA(image.Rectangle{Max: sa}), nil
}

// fuseRows fuses rows [y0, y1) relative to the image origins.
func fuseRows(alg Algorithm, a, b, dst *image.RGBA, y0, y1 int) {
	ao, bo := a.Bounds().Min, b.Bounds().Min
	width := dst.Bounds().Dx()
	for y := y0; y < y1; y++ {
		ai := a.PixOffset(ao.X, ao.Y+y)
		bi := b.PixOffset(bo.X, bo.Y+y)
		di := dst.PixOffset(0, y)
		for x := 0; x < width; x++ {
			pa := color.RGBA{R: a.Pix[ai], G: a.Pix[ai+1], B: a.Pix[ai+2], A: a.Pix[ai+3]}
			pb := color.RGBA{R: b.Pix[bi], G: b.Pix[bi+1], B: b.Pix[bi+2], A: b.Pix[bi+3]}
			out := alg.FusePixel(pa, pb)
			dst.Pix[di] = out.R
			dst.Pix[di+1] = out.G
			dst.Pix[di+2] = out.B
			dst.Pix[di+3] = 255
			ai += 4
			bi += 4
			di += 4
		}
	}
}
