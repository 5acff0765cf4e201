// Package watermark stamps a text label onto a photo and re-encodes it as a
// JPEG data URI. Stamping is not idempotent: a second pass draws the label
// again over the first one.
package watermark

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

const (
	DefaultLabel = "BBPhotography"

	fontSize     = 48
	dpi          = 72
	bottomOffset = 50
	quality      = 90
)

// 0.8 opacity white
var labelColor = color.NRGBA{R: 255, G: 255, B: 255, A: 204}

var loadFont = sync.OnceValues(func() (*truetype.Font, error) {
	return freetype.ParseFont(gobold.TTF)
})

// Stamp draws src onto a same-sized canvas and writes label horizontally
// centred with its baseline bottomOffset pixels above the bottom edge.
func Stamp(src image.Image, label string) (*image.NRGBA, error) {
	const op = "watermark.Stamp"

	f, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	canvas := imaging.Clone(src)
	b := canvas.Bounds()

	face := truetype.NewFace(f, &truetype.Options{Size: fontSize, DPI: dpi})
	defer face.Close()
	width := font.MeasureString(face, label).Round()

	c := freetype.NewContext()
	c.SetDPI(dpi)
	c.SetFont(f)
	c.SetFontSize(fontSize)
	c.SetClip(b)
	c.SetDst(canvas)
	c.SetSrc(image.NewUniform(labelColor))

	pt := freetype.Pt(b.Min.X+(b.Dx()-width)/2, b.Max.Y-bottomOffset)
	if _, err := c.DrawString(label, pt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return canvas, nil
}

// Encode writes img as JPEG at the fixed quality.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("watermark.Encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Render decodes data, stamps label and returns the result as a data URI.
// Encoding starts only after decoding has finished.
func Render(ctx context.Context, data []byte, label string) (string, error) {
	const op = "watermark.Render"

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%s: decode: %w", op, err)
	}

	stamped, err := Stamp(src, label)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	out, err := Encode(stamped)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return EncodeDataURI("image/jpeg", out), nil
}
