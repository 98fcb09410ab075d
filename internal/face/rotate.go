package face

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
)

// rotateQuadrant returns the image rotated clockwise by quarter turns.
func rotateQuadrant(src image.Image, quarterTurns int) image.Image {
	quarterTurns = ((quarterTurns % 4) + 4) % 4
	if quarterTurns == 0 {
		return src
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	var dst *image.RGBA
	if quarterTurns == 2 {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.At(b.Min.X+x, b.Min.Y+y)
			switch quarterTurns {
			case 1:
				dst.Set(h-1-y, x, c)
			case 2:
				dst.Set(w-1-x, h-1-y, c)
			case 3:
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}

// RotateJPEG decodes an image, rotates it clockwise by the given number of
// quarter turns and re-encodes it as JPEG. PNG input is accepted and comes
// out as JPEG too.
func RotateJPEG(data []byte, quarterTurns int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	rotated := rotateQuadrant(img, quarterTurns)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rotated, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
