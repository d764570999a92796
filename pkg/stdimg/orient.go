package stdimg

// Orient applies an EXIF orientation (1..8) and returns a new image.
// Orientation 1 or an unknown value returns img itself.
func Orient(img *Image, orientation int) *Image {
	if img == nil || orientation <= 1 || orientation > 8 {
		return img
	}
	w, h := img.Width, img.Height
	// src maps a destination pixel to the source pixel it copies.
	var src func(x, y int) (int, int)
	outW, outH := w, h
	switch orientation {
	case 2: // flop
		src = func(x, y int) (int, int) { return w - 1 - x, y }
	case 3: // rotate 180
		src = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 4: // flip
		src = func(x, y int) (int, int) { return x, h - 1 - y }
	case 5: // transpose
		outW, outH = h, w
		src = func(x, y int) (int, int) { return y, x }
	case 6: // rotate 90 clockwise
		outW, outH = h, w
		src = func(x, y int) (int, int) { return y, h - 1 - x }
	case 7: // transverse
		outW, outH = h, w
		src = func(x, y int) (int, int) { return w - 1 - y, h - 1 - x }
	case 8: // rotate 90 counter-clockwise
		outW, outH = h, w
		src = func(x, y int) (int, int) { return w - 1 - y, x }
	}

	out := &Image{Width: outW, Height: outH, Channels: img.Channels, Pix: make([]uint8, len(img.Pix))}
	ch := img.Channels
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			sx, sy := src(x, y)
			si := img.Index(sx, sy, 0)
			di := out.Index(x, y, 0)
			copy(out.Pix[di:di+ch], img.Pix[si:si+ch])
		}
	}
	return out
}
