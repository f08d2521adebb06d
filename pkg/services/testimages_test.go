package services

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func solidImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}

	return img
}

func makeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer

	if err := jpeg.Encode(&buf, solidImage(width, height), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode test jpeg: %v", err)
	}

	return buf.Bytes()
}

func makePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer

	if err := png.Encode(&buf, solidImage(width, height)); err != nil {
		t.Fatalf("failed to encode test png: %v", err)
	}

	return buf.Bytes()
}

// The standard library has no webp encoder, so this is a pre-built
// 1x1 lossy webp image.
const webpFixture = "UklGRiQAAABXRUJQVlA4IBgAAAAwAQCdASoBAAEAAwA0JaQAA3AA/vuUAAA="

func makeWebP(t *testing.T) []byte {
	t.Helper()

	data, err := base64.StdEncoding.DecodeString(webpFixture)
	if err != nil {
		t.Fatalf("failed to decode webp fixture: %v", err)
	}

	return data
}

func makeGIF(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer

	if err := gif.Encode(&buf, solidImage(width, height), nil); err != nil {
		t.Fatalf("failed to encode test gif: %v", err)
	}

	return buf.Bytes()
}
