package model

import (
	"errors"
	"fmt"
)

var (
	ErrCommon500         error = errors.New("something went wrong. Try again later")       // 500
	ErrIncorrectQuery    error = errors.New("incorrect query parameters")                  // 400
	ErrIncorrectID       error = errors.New("incorrect job UUID")                          // 400
	ErrJobNotFound       error = errors.New("specified job UUID doesn't exist")            // 404
	ErrResultNotReady    error = errors.New("requested job is not processed yet")          // 404
	ErrIncorrectStatus   error = errors.New("incorrect status provided")                   // 400
	ErrNoImage           error = errors.New("please provide an image to upscale")          // 400
	ErrIncorrectScale    error = errors.New("scale factor must be one of 2, 3, 4")         // 400
	ErrUnsupportedFormat error = errors.New("unsupported image format")                    // 400
	ErrImageTooLarge     error = errors.New("image exceeds the allowed size")              // 413
	ErrDegenerateImage   error = errors.New("image is too small to be processed")          // 422
	ErrUpscaleFailed     error = errors.New("an error occurred during image upscaling")    // 422
)

// UpscaleError wraps any failure of the upscaling backend. Err keeps the
// original cause so its text reaches the user unchanged.
type UpscaleError struct {
	Backend string
	Err     error
}

func (e *UpscaleError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUpscaleFailed, e.Err)
}

func (e *UpscaleError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUpscaleFailed) match any UpscaleError.
func (e *UpscaleError) Is(target error) bool {
	return target == ErrUpscaleFailed
}

// NewUpscaleError returns nil for a nil cause.
func NewUpscaleError(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &UpscaleError{Backend: backend, Err: err}
}

// UserMessage - текст ошибки для пользователя. Внутренние ошибки наружу не отдаем.
func UserMessage(err error) string {
	var upErr *UpscaleError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &upErr):
		return upErr.Error()
	case errors.Is(err, ErrNoImage),
		errors.Is(err, ErrIncorrectScale),
		errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, ErrImageTooLarge),
		errors.Is(err, ErrDegenerateImage):
		return err.Error()
	default:
		return ErrCommon500.Error()
	}
}
