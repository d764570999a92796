package stdimg

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrInvalidImage is returned for images whose dimensions, channel count or
// buffer length are inconsistent.
var ErrInvalidImage = errors.New("stdimg: invalid image")

// Image is an 8-bit raster with 1 to 4 interleaved channels per pixel, stored
// row-major. len(Pix) is always Width*Height*Channels.
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// NewImage allocates a zeroed image.
func NewImage(width, height, channels int) (*Image, error) {
	if err := checkShape(width, height, channels); err != nil {
		return nil, err
	}
	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}, nil
}

func checkShape(width, height, channels int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidImage, width, height)
	}
	if channels < 1 || channels > 4 {
		return fmt.Errorf("%w: %d channels per pixel", ErrInvalidImage, channels)
	}
	return nil
}

// Validate reports whether img satisfies the buffer invariants.
func (img *Image) Validate() error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	if err := checkShape(img.Width, img.Height, img.Channels); err != nil {
		return err
	}
	if want := img.Width * img.Height * img.Channels; len(img.Pix) != want {
		return fmt.Errorf("%w: buffer holds %d bytes, want %d", ErrInvalidImage, len(img.Pix), want)
	}
	return nil
}

// Index returns the offset of channel c of pixel (x, y) in Pix. Coordinates
// are not checked; clamp them first.
func (img *Image) Index(x, y, c int) int {
	return (y*img.Width+x)*img.Channels + c
}

// At returns channel c of pixel (x, y).
func (img *Image) At(x, y, c int) uint8 {
	return img.Pix[img.Index(x, y, c)]
}

// Set stores v in channel c of pixel (x, y).
func (img *Image) Set(x, y, c int, v uint8) {
	img.Pix[img.Index(x, y, c)] = v
}

// Clone returns a deep copy of img.
func (img *Image) Clone() *Image {
	if img == nil {
		return nil
	}
	out := *img
	out.Pix = make([]uint8, len(img.Pix))
	copy(out.Pix, img.Pix)
	return &out
}

// FromImage converts any image.Image into an Image. The channel count follows
// the concrete type the decoder produced: grayscale gets one channel, colour
// types without an alpha channel (RGBA, RGBA64, YCbCr, CMYK) get three, and
// types that carry alpha (NRGBA, NRGBA64, NYCbCrA) get four even when every
// pixel is opaque. Paletted and unknown types get three when opaque and four
// otherwise. Four-channel buffers hold non-premultiplied RGBA.
func FromImage(src image.Image) *Image {
	if src == nil {
		return nil
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}

	switch s := src.(type) {
	case *image.Gray:
		out := &Image{Width: w, Height: h, Channels: 1, Pix: make([]uint8, w*h)}
		for y := 0; y < h; y++ {
			i := s.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*w:(y+1)*w], s.Pix[i:i+w])
		}
		return out
	case *image.Gray16:
		out := &Image{Width: w, Height: h, Channels: 1, Pix: make([]uint8, w*h)}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Pix[y*w+x] = uint8(s.Gray16At(b.Min.X+x, b.Min.Y+y).Y >> 8)
			}
		}
		return out
	}

	channels := colorChannels(src)
	out := &Image{Width: w, Height: h, Channels: channels, Pix: make([]uint8, w*h*channels)}
	idx := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			out.Pix[idx+0] = c.R
			out.Pix[idx+1] = c.G
			out.Pix[idx+2] = c.B
			if channels == 4 {
				out.Pix[idx+3] = c.A
			}
			idx += channels
		}
	}
	return out
}

func colorChannels(src image.Image) int {
	switch s := src.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.NYCbCrA:
		return 4
	case *image.YCbCr, *image.CMYK:
		return 3
	case *image.RGBA:
		// Decoders only produce RGBA for sources without alpha.
		if s.Opaque() {
			return 3
		}
		return 4
	case *image.RGBA64:
		if s.Opaque() {
			return 3
		}
		return 4
	}
	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		return 3
	}
	return 4
}

// ToImage converts img into a standard library image suitable for encoding.
// One channel becomes *image.Gray, three become an opaque *image.RGBA, and two
// (gray plus alpha) or four become *image.NRGBA.
func (img *Image) ToImage() image.Image {
	r := image.Rect(0, 0, img.Width, img.Height)
	if img.Channels == 1 {
		out := image.NewGray(r)
		copy(out.Pix, img.Pix)
		return out
	}
	if img.Channels == 3 {
		out := image.NewRGBA(r)
		for p, n := 0, img.Width*img.Height; p < n; p++ {
			copy(out.Pix[p*4:p*4+3], img.Pix[p*3:p*3+3])
			out.Pix[p*4+3] = 0xff
		}
		return out
	}
	out := image.NewNRGBA(r)
	n := img.Width * img.Height
	for p := 0; p < n; p++ {
		s := img.Pix[p*img.Channels : (p+1)*img.Channels]
		d := out.Pix[p*4 : p*4+4]
		switch img.Channels {
		case 2:
			d[0], d[1], d[2], d[3] = s[0], s[0], s[0], s[1]
		default:
			copy(d, s)
		}
	}
	return out
}

// clampInt clamps v to [lo,hi]
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
