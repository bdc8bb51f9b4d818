// Package imageproc provides image operations used around the upscaler:
// pre-scaling, format detection, decoding and encoding.
package imageproc

import (
	"fmt"
	"image"

	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	"github.com/disintegration/imaging"
)

// PreScale shrinks img according to the factor before the 4x model runs.
// Result dimensions are floored. Factor 4 returns img itself.
func PreScale(img image.Image, f model.ScaleFactor) (image.Image, error) {
	if img == nil {
		return nil, model.ErrNoImage
	}

	ratio := f.PreScaleRatio()
	if ratio == 1 {
		return img, nil
	}

	srcW, srcH := img.Bounds().Dx(), img.Bounds().Dy()
	w, h := ScaledSize(srcW, srcH, ratio)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d pre-scales to %dx%d", model.ErrDegenerateImage, srcW, srcH, w, h)
	}

	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}

// ScaledSize returns floor(w*ratio) x floor(h*ratio).
func ScaledSize(w, h int, ratio float64) (int, int) {
	return int(float64(w) * ratio), int(float64(h) * ratio)
}
