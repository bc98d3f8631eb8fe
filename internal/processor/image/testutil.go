package image

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
)

// createTestImage creates a test image with a gradient pattern.
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8(255 * x / width)
			g := uint8(255 * y / height)
			img.Set(x, y, color.RGBA{R: r, G: g, B: 128, A: 255})
		}
	}

	return img
}

// encodeTestJPEG encodes an image as JPEG and returns a reader.
func encodeTestJPEG(img image.Image, quality int) io.Reader {
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	return bytes.NewReader(buf.Bytes())
}

// encodeTestPNG encodes an image as PNG and returns a reader.
func encodeTestPNG(img image.Image) io.Reader {
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return bytes.NewReader(buf.Bytes())
}
