package fusion_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/eak1mov/go-tilemerge/fusion"
	"github.com/eak1mov/go-tilemerge/pixel"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func rgb(r, g, b uint8) color.RGBA {
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func TestStandardRules(t *testing.T) {
	alg := fusion.DefaultStandard()
	data := rgb(40, 80, 120)
	blank := rgb(254, 254, 254)

	for _, tc := range []struct {
		name string
		a, b color.RGBA
		want color.RGBA
	}{
		{"a blank", blank, data, data},
		{"b blank", data, blank, data},
		{"both blank", pixel.White, blank, blank},
		{"alike keeps a", rgb(100, 100, 100), rgb(105, 100, 100), rgb(100, 100, 100)},
		{"darker wins", rgb(10, 20, 30), rgb(200, 150, 100), rgb(10, 20, 30)},
		{"darker wins swapped", rgb(200, 150, 100), rgb(10, 20, 30), rgb(10, 20, 30)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := alg.FusePixel(tc.a, tc.b); got != tc.want {
				t.Errorf("FusePixel(%v, %v) = %v, want = %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestStandardBlend(t *testing.T) {
	alg := fusion.NewStandard(fusion.Params{WhiteThreshold: 5, LikenessThreshold: 10, BlendAmount: 0.75})
	if got, want := alg.FusePixel(rgb(200, 200, 200), rgb(0, 0, 0)), rgb(50, 50, 50); got != want {
		t.Errorf("FusePixel = %v, want = %v", got, want)
	}
}

func TestFusePixelProperties(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	random := func() color.RGBA {
		return rgb(uint8(rnd.IntN(256)), uint8(rnd.IntN(256)), uint8(rnd.IntN(256)))
	}

	for _, alg := range []fusion.Algorithm{fusion.DefaultStandard(), fusion.DefaultLab()} {
		t.Run(alg.Name(), func(t *testing.T) {
			p := alg.Params()
			for range 5000 {
				a, b := random(), random()
				if pixel.NearWhite(a, p.WhiteThreshold) || pixel.NearWhite(b, p.WhiteThreshold) {
					continue
				}
				ab, ba := alg.FusePixel(a, b), alg.FusePixel(b, a)
				if alg.Name() == "standard" && pixel.Close(a, b, p.LikenessThreshold) {
					continue
				}
				if alg.Name() == "lab" && ab == a && ba == b {
					continue // alike
				}
				if ab != ba {
					t.Fatalf("FusePixel(%v, %v) = %v but swapped = %v", a, b, ab, ba)
				}
				for _, ch := range [][3]uint8{{a.R, b.R, ab.R}, {a.G, b.G, ab.G}, {a.B, b.B, ab.B}} {
					lo, hi := min(ch[0], ch[1]), max(ch[0], ch[1])
					if ch[2] < lo || ch[2] > hi {
						t.Fatalf("FusePixel(%v, %v) = %v is outside the inputs", a, b, ab)
					}
				}
			}
		})
	}
}

func TestFusePixelWhiteKeepsData(t *testing.T) {
	rnd := rand.New(rand.NewPCG(3, 4))
	for _, alg := range fusion.Builtin().All() {
		for range 1000 {
			data := rgb(uint8(rnd.IntN(200)), uint8(rnd.IntN(256)), uint8(rnd.IntN(256)))
			blank := rgb(255-uint8(rnd.IntN(3)), 255-uint8(rnd.IntN(3)), 255)
			if got := alg.FusePixel(blank, data); got != data {
				t.Fatalf("%s: FusePixel(%v, %v) = %v", alg.Name(), blank, data, got)
			}
			if got := alg.FusePixel(data, blank); got != data {
				t.Fatalf("%s: FusePixel(%v, %v) = %v", alg.Name(), data, blank, got)
			}
		}
	}
}

func TestLabRules(t *testing.T) {
	alg := fusion.DefaultLab()
	if got, want := alg.FusePixel(rgb(20, 20, 20), rgb(200, 200, 200)), rgb(20, 20, 20); got != want {
		t.Errorf("FusePixel = %v, want = %v", got, want)
	}
	if got, want := alg.FusePixel(rgb(90, 90, 90), rgb(91, 90, 90)), rgb(90, 90, 90); got != want {
		t.Errorf("FusePixel(alike) = %v, want = %v", got, want)
	}
}

func randomImage(rnd *rand.Rand, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rnd.IntN(256))
		if i%4 == 3 {
			img.Pix[i] = 255
		}
	}
	// Blank out some pixels so every rule is exercised.
	for i := 0; i < len(img.Pix); i += 4 * 3 {
		copy(img.Pix[i:i+4], []uint8{255, 255, 255, 255})
	}
	return img
}

func TestImages(t *testing.T) {
	alg := fusion.DefaultStandard()
	a := image.NewRGBA(image.Rect(0, 0, 2, 1))
	b := image.NewRGBA(image.Rect(0, 0, 2, 1))
	a.SetRGBA(0, 0, pixel.White)
	a.SetRGBA(1, 0, rgb(1, 2, 3))
	b.SetRGBA(0, 0, rgb(4, 5, 6))
	b.SetRGBA(1, 0, pixel.White)

	got, err := fusion.Images(alg, a, b)
	require.NoError(t, err)
	require.Equal(t, rgb(4, 5, 6), got.RGBAAt(0, 0))
	require.Equal(t, rgb(1, 2, 3), got.RGBAAt(1, 0))
}

func TestImagesSubImage(t *testing.T) {
	rnd := rand.New(rand.NewPCG(5, 6))
	alg := fusion.DefaultStandard()
	a := randomImage(rnd, 10, 10)
	b := randomImage(rnd, 10, 10)

	subA := a.SubImage(image.Rect(2, 3, 7, 9)).(*image.RGBA)
	subB := b.SubImage(image.Rect(1, 1, 6, 7)).(*image.RGBA)

	got, err := fusion.Images(alg, subA, subB)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 5, 6), got.Bounds())
	for y := range 6 {
		for x := range 5 {
			want := alg.FusePixel(a.RGBAAt(2+x, 3+y), b.RGBAAt(1+x, 1+y))
			want.A = 255
			require.Equal(t, want, got.RGBAAt(x, y), "pixel (%d, %d)", x, y)
		}
	}
}

func TestImagesSizeMismatch(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 4, 4))
	b := image.NewRGBA(image.Rect(0, 0, 4, 5))

	_, err := fusion.Images(fusion.DefaultStandard(), a, b)
	if !errors.Is(err, fusion.ErrSizeMismatch) {
		t.Errorf("Images() error = %v, want %v", err, fusion.ErrSizeMismatch)
	}
	_, err = fusion.Parallel(context.Background(), fusion.DefaultStandard(), a, b, 4)
	if !errors.Is(err, fusion.ErrSizeMismatch) {
		t.Errorf("Parallel() error = %v, want %v", err, fusion.ErrSizeMismatch)
	}
}

func TestParallelMatchesImages(t *testing.T) {
	rnd := rand.New(rand.NewPCG(7, 8))
	a := randomImage(rnd, 37, 23)
	b := randomImage(rnd, 37, 23)

	for _, alg := range fusion.Builtin().All() {
		want, err := fusion.Images(alg, a, b)
		require.NoError(t, err)

		for _, workers := range []int{0, 1, 2, 4, 7, 64} {
			got, err := fusion.Parallel(context.Background(), alg, a, b, workers)
			require.NoError(t, err)
			if diff := cmp.Diff(want.Pix, got.Pix); diff != "" {
				t.Errorf("%s with %d workers mismatch (-want +got):\n%s", alg.Name(), workers, diff)
			}
		}
	}
}

func TestParallelCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := image.NewRGBA(image.Rect(0, 0, 8, 8))
	_, err := fusion.Parallel(ctx, fusion.DefaultStandard(), a, a, 4)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Parallel() error = %v, want %v", err, context.Canceled)
	}
}

func TestRegistry(t *testing.T) {
	registry := fusion.Builtin()
	require.Equal(t, []string{"lab", "standard"}, registry.Names())

	alg, err := registry.Lookup(fusion.DefaultAlgorithm)
	require.NoError(t, err)
	require.Equal(t, "standard", alg.Name())

	_, err = registry.Lookup("nope")
	require.ErrorIs(t, err, fusion.ErrUnknownAlgorithm)

	custom := fusion.NewStandard(fusion.Params{WhiteThreshold: 1, LikenessThreshold: 1, BlendAmount: 1})
	registry.Register(custom)
	alg, err = registry.Lookup("standard")
	require.NoError(t, err)
	require.Equal(t, custom.Params(), alg.Params())
}
