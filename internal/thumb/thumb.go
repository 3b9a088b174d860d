// Package thumb decodes the base64 images returned by the analysis service
// and draws them as half-block terminal thumbnails.
package thumb

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/charmbracelet/lipgloss"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	apperrors "github.com/csheth/leafscan/internal/errors"
)

// FailedText replaces a thumbnail that could not be decoded.
const FailedText = "Failed to load image"

const (
	halfBlock = "▀"
	maxRows   = 24
)

var failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Italic(true)

// Payload strips an optional data URL header and returns the raw bytes.
func Payload(encoded string) ([]byte, error) {
	const op = "thumb.Payload"
	data := strings.TrimSpace(encoded)
	if strings.HasPrefix(data, "data:") {
		comma := strings.IndexByte(data, ',')
		if comma < 0 || !strings.Contains(data[:comma], ";base64") {
			return nil, apperrors.New(apperrors.KindValidation, op, "unsupported data URL")
		}
		data = data[comma+1:]
	}
	if data == "" {
		return nil, apperrors.New(apperrors.KindValidation, op, "missing image payload")
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "="))
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, op, "decode base64", err)
	}
	return raw, nil
}

// Decode turns an encoded image into pixels. The format name comes from the
// registered decoder (png, jpeg, gif, webp or bmp).
func Decode(encoded string) (image.Image, string, error) {
	raw, err := Payload(encoded)
	if err != nil {
		return nil, "", err
	}
	return DecodeRaw(raw)
}

// DecodeRaw decodes image bytes as read from disk.
func DecodeRaw(raw []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.KindValidation, "thumb.Decode", "decode image", err)
	}
	return img, format, nil
}

// Size returns the cell grid a thumbnail of img occupies at the given width.
func Size(img image.Image, width int) (cols, rows int) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || width <= 0 {
		return 0, 0
	}
	cols = width
	if b.Dx() < cols {
		cols = b.Dx()
	}
	// Each cell holds two vertical pixels.
	rows = (b.Dy()*cols/b.Dx() + 1) / 2
	if rows > maxRows {
		rows = maxRows
		cols = rows * 2 * b.Dx() / b.Dy()
		if cols < 1 {
			cols = 1
		}
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

// Render draws img at most width cells wide.
func Render(img image.Image, width int) string {
	cols, rows := Size(img, width)
	if cols == 0 {
		return ""
	}
	dst := image.NewRGBA(image.Rect(0, 0, cols, rows*2))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var sb strings.Builder
	for y := 0; y < rows; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < cols; x++ {
			top := dst.RGBAAt(x, 2*y)
			bottom := dst.RGBAAt(x, 2*y+1)
			sb.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", top.R, top.G, top.B))).
				Background(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", bottom.R, bottom.G, bottom.B))).
				Render(halfBlock))
		}
	}
	return sb.String()
}

// RenderEncoded decodes and draws in one step. A bad payload yields the
// failure placeholder rather than an error.
func RenderEncoded(encoded string, width int) string {
	img, _, err := Decode(encoded)
	if err != nil {
		return failedStyle.Render(FailedText)
	}
	return Render(img, width)
}

// RenderRaw is RenderEncoded for undecoded file bytes.
func RenderRaw(raw []byte, width int) string {
	img, _, err := DecodeRaw(raw)
	if err != nil {
		return failedStyle.Render(FailedText)
	}
	return Render(img, width)
}
