package transport

import (
	"context"
	"errors"
	"io"

	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	"github.com/UnendingLoop/ImageUpscaler/internal/mwlogger"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500):
		return 500
	case errors.Is(err, model.ErrJobNotFound),
		errors.Is(err, model.ErrResultNotReady):
		return 404
	case errors.Is(err, model.ErrImageTooLarge):
		return 413
	case errors.Is(err, model.ErrDegenerateImage),
		errors.Is(err, model.ErrUpscaleFailed):
		return 422
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrNoImage),
		errors.Is(err, model.ErrIncorrectScale),
		errors.Is(err, model.ErrIncorrectStatus),
		errors.Is(err, model.ErrUnsupportedFormat):
		return 400
	default:
		return 500
	}
}

func closeFileFlow(ctx context.Context, res io.Closer) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Msg("Handler failed to close fileflow")
	}
}
