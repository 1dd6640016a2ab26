package tile

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"os"

	_ "golang.org/x/image/bmp"
)

var ErrDecode = errors.New("tilemerge: cannot decode tile")

func decodeFile(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return ToRGBA(img), nil
}

// ToRGBA returns img as an *image.RGBA with bounds starting at the origin.
// RGBA images already at the origin are returned as is.
func ToRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && bounds.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}
