package upscaler

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"testing"

	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 11), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func nearestTile(ctx context.Context, tile *image.NRGBA) (*image.NRGBA, error) {
	b := tile.Bounds()
	return imaging.Resize(tile, b.Dx()*model.ModelScale, b.Dy()*model.ModelScale, imaging.NearestNeighbor), nil
}

func TestUpscaleTiled_MatchesWholeImage(t *testing.T) {
	src := gradient(37, 21)
	want, err := nearestTile(context.Background(), src)
	require.NoError(t, err)

	tests := []struct {
		name        string
		tileSize    int
		padding     int
		parallelism int
	}{
		{name: "single tile", tileSize: 64, padding: 0, parallelism: 1},
		{name: "small tiles no padding", tileSize: 8, padding: 0, parallelism: 1},
		{name: "small tiles with padding", tileSize: 8, padding: 3, parallelism: 4},
		{name: "1px tiles", tileSize: 1, padding: 1, parallelism: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := upscaleTiled(context.Background(), src, tt.tileSize, tt.padding, tt.parallelism, nearestTile)
			require.NoError(t, err)
			require.Equal(t, want.Bounds(), got.Bounds())
			require.Equal(t, want.Pix, got.Pix)
		})
	}
}

func TestUpscaleTiled_TileCount(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, tile *image.NRGBA) (*image.NRGBA, error) {
		calls.Add(1)
		return nearestTile(ctx, tile)
	}

	_, err := upscaleTiled(context.Background(), gradient(130, 64), 64, 0, 2, fn)
	require.NoError(t, err)
	require.Equal(t, int32(3), calls.Load())
}

func TestUpscaleTiled_NonZeroOrigin(t *testing.T) {
	full := gradient(20, 20)
	sub := full.SubImage(image.Rect(5, 5, 15, 13))

	got, err := upscaleTiled(context.Background(), sub, 4, 1, 2, nearestTile)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 40, 32), got.Bounds())
}

func TestUpscaleTiled_TileError(t *testing.T) {
	boom := errors.New("out of memory")
	fn := func(ctx context.Context, tile *image.NRGBA) (*image.NRGBA, error) {
		return nil, boom
	}

	_, err := upscaleTiled(context.Background(), gradient(16, 16), 8, 0, 1, fn)
	require.ErrorIs(t, err, boom)
}

func TestUpscaleTiled_WrongTileSize(t *testing.T) {
	fn := func(ctx context.Context, tile *image.NRGBA) (*image.NRGBA, error) {
		return tile, nil
	}

	_, err := upscaleTiled(context.Background(), gradient(16, 16), 8, 0, 1, fn)
	require.Error(t, err)
}

func TestUpscaleTiled_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := upscaleTiled(ctx, gradient(16, 16), 8, 0, 1, nearestTile)
	require.ErrorIs(t, err, context.Canceled)
}
