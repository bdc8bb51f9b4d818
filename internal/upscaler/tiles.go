package upscaler

import (
	"context"
	"fmt"
	"image"

	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

type tileFunc func(ctx context.Context, tile *image.NRGBA) (*image.NRGBA, error)

// upscaleTiled cuts img into tileSize squares, runs fn on each tile extended
// by padding pixels of its neighbours and stitches the 4x outputs back
// together with the padding cropped off. At most parallelism tiles run at
// once; the first failure cancels the remaining ones.
func upscaleTiled(ctx context.Context, img image.Image, tileSize, padding, parallelism int, fn tileFunc) (*image.NRGBA, error) {
	src := imaging.Clone(img)
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w*model.ModelScale, h*model.ModelScale))

	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}

	for y := 0; y < h; y += tileSize {
		for x := 0; x < w; x += tileSize {
			core := image.Rect(x, y, min(x+tileSize, w), min(y+tileSize, h))

			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				padded := core.Inset(-padding).Intersect(bounds)
				out, err := fn(gctx, imaging.Crop(src, padded))
				if err != nil {
					return fmt.Errorf("tile %v: %w", core, err)
				}

				wantW, wantH := padded.Dx()*model.ModelScale, padded.Dy()*model.ModelScale
				if out == nil || out.Bounds().Dx() != wantW || out.Bounds().Dy() != wantH {
					return fmt.Errorf("tile %v: model did not return a %dx%d tile", core, wantW, wantH)
				}

				// тайлы не пересекаются в dst, гонки нет
				offset := core.Min.Sub(padded.Min).Mul(model.ModelScale).Add(out.Bounds().Min)
				target := image.Rectangle{Min: core.Min.Mul(model.ModelScale), Max: core.Max.Mul(model.ModelScale)}
				draw.Draw(dst, target, out, offset, draw.Src)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dst, nil
}
