package cli

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// Terminal preview for kitty-compatible terminals (kitty graphics protocol)
// and iTerm2-compatible ones (OSC 1337 inline images). The backend can be
// forced with PREVIEW_BACKEND=kitty|inline.

const (
	previewMaxW = 640
	previewMaxH = 480
	// kitty rejects escape payloads above 4096 bytes.
	kittyChunk = 4096
)

func isKitty() bool {
	if os.Getenv("KITTY_WINDOW_ID") != "" {
		return true
	}
	term := strings.ToLower(os.Getenv("TERM"))
	return strings.Contains(term, "kitty") || strings.Contains(term, "ghostty")
}

func isInlineImageCapable() bool {
	switch os.Getenv("TERM_PROGRAM") {
	case "iTerm.app", "WezTerm", "Warp", "Hyper", "vscode", "Tabby", "Bobcat":
		return true
	}
	return os.Getenv("ITERM_SESSION_ID") != ""
}

// previewBackend picks "kitty" or "inline", or "" when nothing is detected.
func previewBackend(override string) string {
	switch override {
	case "kitty":
		return "kitty"
	case "inline", "iterm", "wezterm":
		return "inline"
	}
	if isKitty() {
		return "kitty"
	}
	if isInlineImageCapable() {
		return "inline"
	}
	return ""
}

// fitPreview downscales img to fit previewMaxW x previewMaxH, keeping the
// aspect ratio. Smaller images are returned unchanged.
func fitPreview(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= previewMaxW && h <= previewMaxH {
		return img
	}
	tw, th := previewMaxW, h*previewMaxW/w
	if th > previewMaxH {
		tw, th = w*previewMaxH/h, previewMaxH
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, tw, th))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// PreviewImage renders img inline on w. backend may be "", "kitty" or
// "inline"; "" means detect from the environment.
func PreviewImage(w io.Writer, img image.Image, backend string) error {
	if img == nil {
		return fmt.Errorf("nil image")
	}
	mode := previewBackend(backend)
	if mode == "" {
		return fmt.Errorf("no supported terminal graphics protocol detected")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, fitPreview(img)); err != nil {
		return fmt.Errorf("png encode failed: %w", err)
	}
	if mode == "kitty" {
		return sendKittyImage(w, buf.Bytes())
	}
	return sendInlineImage(w, buf.Bytes())
}

// sendKittyImage transmits PNG bytes in base64 chunks; every chunk but the
// last carries m=1.
func sendKittyImage(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for pos := 0; pos < len(enc); pos += kittyChunk {
		end := min(pos+kittyChunk, len(enc))
		more := 0
		if end < len(enc) {
			more = 1
		}
		var seq string
		if pos == 0 {
			seq = fmt.Sprintf("\x1b_Ga=T,f=100,t=d,q=2,m=%d;%s\x1b\\", more, enc[pos:end])
		} else {
			seq = fmt.Sprintf("\x1b_Gm=%d;%s\x1b\\", more, enc[pos:end])
		}
		if _, err := io.WriteString(w, seq); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func sendInlineImage(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	_, err := fmt.Fprintf(w, "\x1b]1337;File=name=output.png;inline=1;size=%d:%s\a\n", len(data), enc)
	return err
}
