package upscaler

import (
	"fmt"
	"image"
	"math"
)

// imageToTensor lays out the RGB channels of img as NCHW float32 in [0,1].
// Alpha is dropped: the model works on opaque RGB.
func imageToTensor(img *image.NRGBA) []float32 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	data := make([]float32, 3*plane)

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			idx := y*w + x
			data[idx] = float32(row[x*4]) / 255
			data[plane+idx] = float32(row[x*4+1]) / 255
			data[2*plane+idx] = float32(row[x*4+2]) / 255
		}
	}
	return data
}

// tensorToImage converts NCHW float32 RGB back into an opaque image,
// clamping values outside [0,1].
func tensorToImage(data []float32, w, h int) (*image.NRGBA, error) {
	plane := w * h
	if w <= 0 || h <= 0 || len(data) != 3*plane {
		return nil, fmt.Errorf("tensor of %d values does not fit 3x%dx%d", len(data), h, w)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			p := y*img.Stride + x*4
			img.Pix[p] = toByte(data[idx])
			img.Pix[p+1] = toByte(data[plane+idx])
			img.Pix[p+2] = toByte(data[2*plane+idx])
			img.Pix[p+3] = 255
		}
	}
	return img, nil
}

func toByte(v float32) uint8 {
	switch {
	case math.IsNaN(float64(v)), v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
