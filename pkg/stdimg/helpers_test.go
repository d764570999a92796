package stdimg

import (
	"math/rand/v2"
	"testing"
)

// makeImage builds an image from literal bytes, failing the test on a shape
// mismatch.
func makeImage(t *testing.T, w, h, c int, pix []uint8) *Image {
	t.Helper()
	img := &Image{Width: w, Height: h, Channels: c, Pix: pix}
	if err := img.Validate(); err != nil {
		t.Fatalf("bad test image: %v", err)
	}
	return img
}

func makeRandom(w, h, c int, seed uint64) *Image {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := &Image{Width: w, Height: h, Channels: c, Pix: make([]uint8, w*h*c)}
	for i := range img.Pix {
		img.Pix[i] = uint8(r.IntN(256))
	}
	return img
}

// grid3 is the 3x3 single-channel test image
//
//	10 20 30
//	40 50 60
//	70 80 90
func grid3(t *testing.T) *Image {
	return makeImage(t, 3, 3, 1, []uint8{10, 20, 30, 40, 50, 60, 70, 80, 90})
}
