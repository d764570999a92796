package cli

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/bmp"

	"github.com/Fepozopo/convolve/pkg/kernel"
	"github.com/Fepozopo/convolve/pkg/stdimg"
)

// withOrientation splices a big-endian APP1 Exif segment carrying only the
// orientation tag right after the JPEG SOI marker.
func withOrientation(jpg []byte, orientation uint16) []byte {
	var tiff bytes.Buffer
	tiff.WriteString("MM\x00*")
	binary.Write(&tiff, binary.BigEndian, uint32(8))      // IFD0 offset
	binary.Write(&tiff, binary.BigEndian, uint16(1))      // one entry
	binary.Write(&tiff, binary.BigEndian, uint16(0x0112)) // orientation
	binary.Write(&tiff, binary.BigEndian, uint16(3))      // SHORT
	binary.Write(&tiff, binary.BigEndian, uint32(1))
	binary.Write(&tiff, binary.BigEndian, orientation)
	binary.Write(&tiff, binary.BigEndian, uint16(0))
	binary.Write(&tiff, binary.BigEndian, uint32(0)) // no next IFD

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	seg = append(seg, payload...)

	out := append([]byte{}, jpg[:2]...)
	out = append(out, seg...)
	return append(out, jpg[2:]...)
}

func TestLoadImageAppliesJPEGOrientation(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg encode failed: %v", err)
	}
	data := withOrientation(buf.Bytes(), 6)
	if o, err := jpegOrientation(data); err != nil || o != 6 {
		t.Fatalf("jpegOrientation = %d, %v; want 6", o, err)
	}

	path := filepath.Join(t.TempDir(), "rotated.jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	img, format, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("format %q, want jpeg", format)
	}
	if img.Width != 8 || img.Height != 16 || img.Channels != 3 {
		t.Fatalf("got %dx%dx%d, want 8x16x3 after rotation", img.Width, img.Height, img.Channels)
	}
}

// rawPNG builds an 8-bit PNG with the given IHDR colour type so tests can
// produce layouts image/png never writes, such as opaque RGBA or gray+alpha.
func rawPNG(t *testing.T, w, h int, colorType byte, pix []uint8) []byte {
	t.Helper()
	stride := len(pix) / h
	var raw bytes.Buffer
	zw := zlib.NewWriter(&raw)
	for y := 0; y < h; y++ {
		zw.Write([]byte{0}) // filter: none
		zw.Write(pix[y*stride : (y+1)*stride])
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close failed: %v", err)
	}

	var out bytes.Buffer
	out.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(typ string, data []byte) {
		binary.Write(&out, binary.BigEndian, uint32(len(data)))
		body := append([]byte(typ), data...)
		out.Write(body)
		binary.Write(&out, binary.BigEndian, crc32.ChecksumIEEE(body))
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], uint32(w))
	binary.BigEndian.PutUint32(ihdr[4:], uint32(h))
	ihdr[8] = 8 // bit depth
	ihdr[9] = colorType
	chunk("IHDR", ihdr)
	chunk("IDAT", raw.Bytes())
	chunk("IEND", nil)
	return out.Bytes()
}

func TestLoadImageKeepsOpaqueAlphaChannel(t *testing.T) {
	pix := make([]uint8, 3*3*4)
	for p := 0; p < 9; p++ {
		pix[p*4], pix[p*4+1], pix[p*4+2], pix[p*4+3] = uint8(10*p), uint8(5*p), 200, 255
	}
	dir := t.TempDir()
	in := filepath.Join(dir, "rgba.png")
	if err := os.WriteFile(in, rawPNG(t, 3, 3, 6, pix), 0o644); err != nil {
		t.Fatal(err)
	}
	img, _, err := LoadImage(in)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Channels != 4 {
		t.Fatalf("decoded channels = %d, want 4", img.Channels)
	}
	if diff := cmp.Diff(pix, img.Pix); diff != "" {
		t.Fatalf("decoded pixels (-want +got):\n%s", diff)
	}

	// edge sums to zero, so a constant alpha plane becomes fully transparent.
	out := filepath.Join(dir, "out.png")
	code, _, stderr := runCLI(t, "-env", filepath.Join(dir, "missing.env"), "-o", out, in, "edge", "1")
	if code != ExitOK {
		t.Fatalf("exit %d, stderr:\n%s", code, stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if ct, ok := pngColorType(data); !ok || ct != 6 {
		t.Fatalf("output colour type = %d (%v), want 6", ct, ok)
	}
	got := readOutput(t, out)
	want, err := stdimg.Convolve(img, kernel.Lookup("edge"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("edge output (-want +got):\n%s", diff)
	}
	for i := 3; i < len(got.Pix); i += 4 {
		if got.Pix[i] != 0 {
			t.Fatalf("alpha at byte %d = %d, want 0", i, got.Pix[i])
		}
	}
}

func TestLoadImageGrayAlpha(t *testing.T) {
	pix := []uint8{10, 255, 20, 128, 30, 0, 40, 64}
	path := filepath.Join(t.TempDir(), "ga.png")
	if err := os.WriteFile(path, rawPNG(t, 2, 2, pngGrayAlpha, pix), 0o644); err != nil {
		t.Fatal(err)
	}
	img, _, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Channels != 2 {
		t.Fatalf("decoded channels = %d, want 2", img.Channels)
	}
	if diff := cmp.Diff(pix, img.Pix); diff != "" {
		t.Fatalf("gray+alpha pixels (-want +got):\n%s", diff)
	}
}

func TestJPEGOrientationMissing(t *testing.T) {
	var buf bytes.Buffer
	jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2)), nil)
	if _, err := jpegOrientation(buf.Bytes()); err == nil {
		t.Fatalf("expected an error for a JPEG without EXIF")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, c := range []int{1, 3, 4} {
		img, _ := stdimg.NewImage(4, 3, c)
		for i := range img.Pix {
			img.Pix[i] = uint8(i*17 + 3)
		}
		if c == 4 {
			for i := 3; i < len(img.Pix); i += 4 {
				img.Pix[i] = 128
			}
		}
		path := filepath.Join(dir, "rt.png")
		if err := SaveImage(path, img); err != nil {
			t.Fatalf("%d channels: SaveImage failed: %v", c, err)
		}
		back, _, err := LoadImage(path)
		if err != nil {
			t.Fatalf("%d channels: LoadImage failed: %v", c, err)
		}
		if diff := cmp.Diff(img, back); diff != "" {
			t.Fatalf("%d channels round trip (-want +got):\n%s", c, diff)
		}
	}
}

func TestSaveImageRejectsInvalid(t *testing.T) {
	bad := &stdimg.Image{Width: 2, Height: 2, Channels: 1, Pix: []uint8{1}}
	if err := SaveImage(filepath.Join(t.TempDir(), "x.png"), bad); err == nil {
		t.Fatalf("expected an error for an inconsistent image")
	}
}

func TestLoadImageBMP(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	src.Set(2, 1, color.RGBA{R: 9, G: 8, B: 7, A: 255})
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, src); err != nil {
		t.Fatalf("bmp encode failed: %v", err)
	}
	if got := sniffFormat(buf.Bytes()); got != "bmp" {
		t.Fatalf("sniffFormat = %q, want bmp", got)
	}
	path := filepath.Join(t.TempDir(), "in.bmp")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	img, format, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if format != "bmp" || img.Width != 3 || img.Height != 2 {
		t.Fatalf("got %s %dx%d", format, img.Width, img.Height)
	}
	if img.At(2, 1, 0) != 9 || img.At(2, 1, 1) != 8 || img.At(2, 1, 2) != 7 {
		t.Fatalf("pixel (2,1) not preserved")
	}
}

func TestSniffFormat(t *testing.T) {
	cases := map[string]string{
		"\x89PNG\r\n\x1a\nrest":        "png",
		"\xFF\xD8\xFF\xE0":             "jpeg",
		"GIF89a....":                   "gif",
		"II*\x00....":                  "tiff",
		"MM\x00*....":                  "tiff",
		"RIFF\x00\x00\x00\x00WEBPVP8 ": "webp",
		"hello":                        "",
	}
	for in, want := range cases {
		if got := sniffFormat([]byte(in)); got != want {
			t.Errorf("sniffFormat(%q) = %q, want %q", in, got, want)
		}
	}
}
