package upscale

import (
	"context"
	"image"
)

type mockUpscaler struct {
	upscaleFn func(ctx context.Context, img image.Image) (image.Image, error)
	calls     int
	lastInput image.Image
}

func (m *mockUpscaler) Name() string { return "mock" }

func (m *mockUpscaler) Upscale(ctx context.Context, img image.Image) (image.Image, error) {
	m.calls++
	m.lastInput = img
	return m.upscaleFn(ctx, img)
}
