package face

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 11), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestRotateJPEGSwapsDimensionsOnQuarterTurn(t *testing.T) {
	src := encodeTestJPEG(t, 40, 20)

	rotated, err := RotateJPEG(src, 1)
	require.NoError(t, err)

	w, h := decodeSize(t, rotated)
	assert.Equal(t, 20, w)
	assert.Equal(t, 40, h)
}

func TestRotateJPEGHalfTurnKeepsDimensions(t *testing.T) {
	src := encodeTestJPEG(t, 40, 20)

	rotated, err := RotateJPEG(src, 2)
	require.NoError(t, err)

	w, h := decodeSize(t, rotated)
	assert.Equal(t, 40, w)
	assert.Equal(t, 20, h)
}

func TestRotateJPEGZeroTurnsRoundTrips(t *testing.T) {
	src := encodeTestJPEG(t, 16, 16)

	rotated, err := RotateJPEG(src, 0)
	require.NoError(t, err)

	w, h := decodeSize(t, rotated)
	assert.Equal(t, 16, w)
	assert.Equal(t, 16, h)
}

func TestRotateJPEGRejectsGarbage(t *testing.T) {
	_, err := RotateJPEG([]byte("not an image"), 1)
	assert.Error(t, err)
}

func TestRotateQuadrantPixelMapping(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	left := color.RGBA{R: 255, A: 255}
	right := color.RGBA{B: 255, A: 255}
	img.Set(0, 0, left)
	img.Set(1, 0, right)

	rotated := rotateQuadrant(img, 1)
	b := rotated.Bounds()
	require.Equal(t, 1, b.Dx())
	require.Equal(t, 2, b.Dy())

	// Clockwise: the leftmost pixel of the top row becomes the top of the
	// rightmost column.
	r, _, _, _ := rotated.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}
