package cli

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Fepozopo/convolve/pkg/stdimg"
)

// sniffFormat names the container by its magic bytes, or returns "".
func sniffFormat(b []byte) string {
	switch {
	case len(b) >= 3 && bytes.Equal(b[:3], []byte{0xFF, 0xD8, 0xFF}):
		return "jpeg"
	case len(b) >= 8 && bytes.Equal(b[:8], []byte("\x89PNG\r\n\x1a\n")):
		return "png"
	case len(b) >= 6 && (bytes.Equal(b[:6], []byte("GIF87a")) || bytes.Equal(b[:6], []byte("GIF89a"))):
		return "gif"
	case len(b) >= 2 && bytes.Equal(b[:2], []byte("BM")):
		return "bmp"
	case len(b) >= 4 && (bytes.Equal(b[:4], []byte("II*\x00")) || bytes.Equal(b[:4], []byte("MM\x00*"))):
		return "tiff"
	case len(b) >= 12 && bytes.Equal(b[:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return "webp"
	}
	return ""
}

// LoadImage reads and decodes path into an engine image. JPEG EXIF
// orientation is applied so the buffer matches what viewers display. The
// returned format is the decoder's name ("png", "jpeg", ...).
func LoadImage(path string) (*stdimg.Image, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		if sniffed := sniffFormat(b); sniffed != "" {
			return nil, sniffed, fmt.Errorf("decode %s: %w", sniffed, err)
		}
		return nil, "", fmt.Errorf("decode: %w", err)
	}
	out := stdimg.FromImage(img)
	if out == nil {
		return nil, format, fmt.Errorf("decode %s: empty image", format)
	}
	if format == "png" && out.Channels == 4 {
		if ct, ok := pngColorType(b); ok && ct == pngGrayAlpha {
			out = grayAlpha(out)
		}
	}
	if format == "jpeg" {
		if o, err := jpegOrientation(b); err == nil {
			out = stdimg.Orient(out, o)
		}
	}
	return out, format, nil
}

// pngGrayAlpha is the IHDR colour type for gray plus alpha.
const pngGrayAlpha = 4

// pngColorType returns the colour type byte of a PNG's IHDR chunk.
func pngColorType(b []byte) (byte, bool) {
	if sniffFormat(b) != "png" || len(b) < 26 || string(b[12:16]) != "IHDR" {
		return 0, false
	}
	return b[25], true
}

// grayAlpha keeps the gray and alpha samples of a decoded gray+alpha PNG,
// which image/png hands back as NRGBA with equal colour samples.
func grayAlpha(img *stdimg.Image) *stdimg.Image {
	out := &stdimg.Image{Width: img.Width, Height: img.Height, Channels: 2,
		Pix: make([]uint8, img.Width*img.Height*2)}
	for p := 0; p < img.Width*img.Height; p++ {
		out.Pix[p*2] = img.Pix[p*4]
		out.Pix[p*2+1] = img.Pix[p*4+3]
	}
	return out
}

// SaveImage writes img to path as PNG. image/png picks the colour type, so
// one channel is written as gray, and two or four channels whose alpha is
// fully opaque are written as RGB.
func SaveImage(path string, img *stdimg.Image) error {
	if err := img.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img.ToImage()); err != nil {
		f.Close()
		return fmt.Errorf("png encode failed: %w", err)
	}
	return f.Close()
}

var errNoOrientation = errors.New("orientation tag not found")

// exifTIFF returns the TIFF block of the first APP1 Exif segment in a JPEG.
func exifTIFF(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("data too short")
	}
	i := 2 // skip SOI
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			i++
			continue
		}
		marker := data[i+1]
		if marker == 0xDA { // start of scan
			break
		}
		segLen := int(data[i+2])<<8 | int(data[i+3])
		end := i + 2 + segLen
		if marker == 0xE1 && segLen >= 8 && end <= len(data) && string(data[i+4:i+10]) == "Exif\x00\x00" {
			return data[i+10 : end], nil
		}
		if segLen < 2 {
			i += 2
		} else {
			i = end
		}
	}
	return nil, fmt.Errorf("no exif segment")
}

// jpegOrientation reads the orientation tag (0x0112) from IFD0.
func jpegOrientation(data []byte) (int, error) {
	tiff, err := exifTIFF(data)
	if err != nil {
		return 0, err
	}
	if len(tiff) < 8 {
		return 0, fmt.Errorf("tiff header truncated")
	}
	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, fmt.Errorf("unknown tiff byte order")
	}
	if order.Uint16(tiff[2:4]) != 0x002A {
		return 0, fmt.Errorf("invalid tiff magic")
	}
	off := int(order.Uint32(tiff[4:8]))
	if off < 8 || off+2 > len(tiff) {
		return 0, fmt.Errorf("ifd0 out of range")
	}
	n := int(order.Uint16(tiff[off : off+2]))
	for e := 0; e < n; e++ {
		ent := off + 2 + e*12
		if ent+12 > len(tiff) {
			break
		}
		if order.Uint16(tiff[ent:ent+2]) != 0x0112 {
			continue
		}
		if typ := order.Uint16(tiff[ent+2 : ent+4]); typ != 3 {
			return 0, fmt.Errorf("orientation has tiff type %d", typ)
		}
		return int(order.Uint16(tiff[ent+8 : ent+10])), nil
	}
	return 0, errNoOrientation
}
