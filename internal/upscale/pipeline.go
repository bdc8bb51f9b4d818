// Package upscale implements the request pipeline around the upscaling model:
// input validation, pre-scaling, the model call and result packaging.
package upscale

import (
	"context"
	"errors"
	"fmt"
	"image"
	"reflect"
	"time"

	"github.com/UnendingLoop/ImageUpscaler/internal/imageproc"
	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	"github.com/UnendingLoop/ImageUpscaler/internal/mwlogger"
)

// Upscaler is the super-resolution capability. Upscale must return an image
// exactly ModelScale times larger on both axes. Implementations are shared
// by concurrent requests and must not be mutated after construction.
type Upscaler interface {
	Name() string
	Upscale(ctx context.Context, img image.Image) (image.Image, error)
}

// Pipeline is stateless: one instance serves every request.
type Pipeline struct {
	upscaler Upscaler
	now      func() time.Time
}

type Option func(*Pipeline)

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

func NewPipeline(u Upscaler, opts ...Option) *Pipeline {
	p := &Pipeline{upscaler: u, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs validation, pre-scaling and upscaling on img. Before in the
// result is img itself; After is the upscaler output as returned.
// Errors of every stage are returned as is.
func (p *Pipeline) Process(ctx context.Context, img image.Image, f model.ScaleFactor) (*model.Result, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	if err := validateInput(img, f); err != nil {
		return nil, err
	}

	start := p.now()

	scaled, err := imageproc.PreScale(img, f)
	if err != nil {
		return nil, err
	}

	upscaled, err := p.invoke(ctx, scaled)
	if err != nil {
		logger.Warn().Err(err).Str("backend", p.upscaler.Name()).Msg("Upscaler failed")
		return nil, err
	}

	elapsed := p.now().Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}

	logger.Info().
		Str("backend", p.upscaler.Name()).
		Int("scale_factor", int(f)).
		Str("source", sizeString(img)).
		Str("prescaled", sizeString(scaled)).
		Str("result", sizeString(upscaled)).
		Dur("elapsed", elapsed).
		Msg("Image upscaled")

	return &model.Result{
		Before:         img,
		After:          upscaled,
		Scale:          f,
		Elapsed:        elapsed,
		ProcessingTime: FormatProcessingTime(elapsed),
	}, nil
}

// FormatProcessingTime renders d with two decimals of seconds.
func FormatProcessingTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("Processing time: %.2f seconds", d.Seconds())
}

func validateInput(img image.Image, f model.ScaleFactor) error {
	if isNilImage(img) {
		return model.ErrNoImage
	}
	if img.Bounds().Empty() {
		return model.ErrDegenerateImage
	}
	if !f.Valid() {
		return model.ErrIncorrectScale
	}
	return nil
}

// invoke is the only place where backend failures (errors and panics) are
// turned into UpscaleError.
func (p *Pipeline) invoke(ctx context.Context, img image.Image) (out image.Image, err error) {
	name := p.upscaler.Name()

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = model.NewUpscaleError(name, fmt.Errorf("upscaler panicked: %v", r))
		}
	}()

	res, err := p.upscaler.Upscale(ctx, img)
	if err != nil {
		var upErr *model.UpscaleError
		if errors.As(err, &upErr) {
			return nil, err
		}
		return nil, model.NewUpscaleError(name, err)
	}
	if res == nil {
		return nil, model.NewUpscaleError(name, errors.New("upscaler returned no image"))
	}

	wantW := img.Bounds().Dx() * model.ModelScale
	wantH := img.Bounds().Dy() * model.ModelScale
	if res.Bounds().Dx() != wantW || res.Bounds().Dy() != wantH {
		return nil, model.NewUpscaleError(name, fmt.Errorf("unexpected output size %s, want %dx%d", sizeString(res), wantW, wantH))
	}

	return res, nil
}

// isNilImage также ловит типизированный nil, например (*image.NRGBA)(nil)
func isNilImage(img image.Image) bool {
	if img == nil {
		return true
	}
	v := reflect.ValueOf(img)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
		return v.IsNil()
	}
	return false
}

func sizeString(img image.Image) string {
	return fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy())
}
