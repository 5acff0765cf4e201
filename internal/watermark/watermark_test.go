package watermark

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 20, G: 40, B: 90, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeURI(t *testing.T, uri string) image.Image {
	t.Helper()
	data, mime, err := DecodeDataURI(uri)
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", mime)
	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestRender_KeepsDimensions(t *testing.T) {
	for _, size := range []image.Point{{640, 480}, {300, 800}, {120, 90}} {
		uri, err := Render(context.Background(), testPNG(t, size.X, size.Y), DefaultLabel)
		require.NoError(t, err)

		out := decodeURI(t, uri)
		assert.Equal(t, size.X, out.Bounds().Dx())
		assert.Equal(t, size.Y, out.Bounds().Dy())
	}
}

func TestRender_IsNotIdempotent(t *testing.T) {
	ctx := context.Background()

	once, err := Render(ctx, testPNG(t, 640, 480), DefaultLabel)
	require.NoError(t, err)
	first, _, err := DecodeDataURI(once)
	require.NoError(t, err)

	twice, err := Render(ctx, first, DefaultLabel)
	require.NoError(t, err)

	assert.NotEqual(t, once, twice, "stamping twice must produce a different image")
}

func TestStamp_DrawsLabelNearBottomCentre(t *testing.T) {
	src := imaging.New(640, 480, color.NRGBA{A: 255})
	out, err := Stamp(src, DefaultLabel)
	require.NoError(t, err)

	lit := func(r image.Rectangle) int {
		n := 0
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				if out.NRGBAAt(x, y).R > 100 {
					n++
				}
			}
		}
		return n
	}

	assert.Positive(t, lit(image.Rect(160, 480-100, 480, 480-50)), "label band should be lit")
	assert.Zero(t, lit(image.Rect(0, 0, 640, 200)), "top of the frame stays untouched")
	assert.Equal(t, color.NRGBA{A: 255}, src.NRGBAAt(320, 440), "source is not modified")
}

func TestRender_RejectsGarbage(t *testing.T) {
	_, err := Render(context.Background(), []byte("not an image"), DefaultLabel)
	require.Error(t, err)
}

func TestRender_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Render(ctx, testPNG(t, 10, 10), DefaultLabel)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDataURI(t *testing.T) {
	uri := EncodeDataURI("image/png", []byte{1, 2, 3})
	assert.Equal(t, "data:image/png;base64,AQID", uri)

	data, mime, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
	assert.Equal(t, "image/png", mime)

	for _, bad := range []string{"https://x", "data:image/png,raw", "data:image/png;base64", "data:;base64,%%%"} {
		_, _, err := DecodeDataURI(bad)
		assert.True(t, errors.Is(err, ErrNotDataURI), bad)
	}
}
