// Package worker contains methods for worker to init at start, and to process upscale jobs
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	"github.com/UnendingLoop/ImageUpscaler/internal/mwlogger"
	"github.com/UnendingLoop/ImageUpscaler/internal/service"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// NoopPublisher - ЗАГЛУШКА, функциональность настоящего паблишера в очередь не нужна в рамках работы воркера
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error {
	return nil
}

type JobWorkerService interface {
	Get(ctx context.Context, id string) (*model.Job, error)
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Job) error
	MarkFailed(ctx context.Context, id string, cause error) error
	ProcessJob(ctx context.Context, job *model.Job, source []byte) (*service.JobOutput, error)
}

// Committer - подтверждение прочтения сообщения из очереди
type Committer interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

type Worker struct {
	storage      service.ImageStorage
	service      JobWorkerService
	queue        <-chan kafkago.Message
	consumer     Committer
	resultPrefix string
}

func NewWorkerInstance(strg service.ImageStorage, svc JobWorkerService, q <-chan kafkago.Message, cons Committer, resPr string) *Worker {
	return &Worker{storage: strg, service: svc, queue: q, consumer: cons, resultPrefix: resPr}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				zlog.Logger.Info().Msg("Queue channel closed, stopping worker...")
				return
			}
			id := string(msg.Key)
			logger := zlog.Logger.With().Str("job_uid", id).Logger()
			jobCtx := mwlogger.WithLogger(ctx, logger)

			if err := w.initProcessor(jobCtx, id); err != nil && !errors.Is(err, model.ErrJobNotFound) {
				logger.Error().Err(err).Msg("Job failed, message left uncommitted")
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				logger.Error().Err(err).Msg("Failed to commit queue-message")
			}
		}
	}
}

// initProcessor returns nil when the message may be committed. A failure
// of the job itself is saved on the job and committed as well.
func (w *Worker) initProcessor(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)

	// считать из базы задачу
	job, err := w.service.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("worker failed to fetch job %q from DB: %w", id, err)
	}
	// проверить статус
	switch job.Status {
	case model.StatusDone, model.StatusFailed:
		return nil
	case model.StatusInProgress:
		return fmt.Errorf("job %q is already in progress", id)
	}

	// обновить статус
	if err := w.service.UpdateStatus(ctx, id, model.StatusInProgress); err != nil {
		return fmt.Errorf("failed to update status of job %q to `in_progress` in DB: %w", id, err)
	}

	// выполняем саму операцию
	pErr := w.processJob(ctx, job)
	switch {
	case pErr == nil:
		logger.Info().Str("processing_time", job.ProcessingTime).Msg("Job done")
		return nil
	case isJobFailure(pErr):
		logger.Warn().Err(pErr).Msg("Job failed")
		if mErr := w.service.MarkFailed(ctx, id, pErr); mErr != nil {
			return fmt.Errorf("failed to mark job %q as failed: %w \nAFTER\n error while processing job: %w", id, mErr, pErr)
		}
		return nil
	default:
		// инфраструктурная ошибка - возвращаем задачу в очередь на переобработку
		if uErr := w.service.UpdateStatus(ctx, id, model.StatusCreated); uErr != nil {
			return fmt.Errorf("failed to reset status of job %q in DB: %w \nAFTER\n error while processing job: %w", id, uErr, pErr)
		}
		return fmt.Errorf("failed to process job %q: %w", id, pErr)
	}
}

func (w *Worker) processJob(ctx context.Context, job *model.Job) error {
	// достать из storage исходник
	src, _, err := w.storage.Get(ctx, job.SourceKey)
	if err != nil {
		return fmt.Errorf("worker failed to fetch source-image from storage: %w", err)
	}
	data, err := io.ReadAll(src)
	closeFileFlow(ctx, src)
	if err != nil {
		return fmt.Errorf("worker failed to read source-image: %w", err)
	}

	// прогнать пайплайн
	out, err := w.service.ProcessJob(ctx, job, data)
	if err != nil {
		return err
	}

	// положить результат в сторедж
	resKey := w.resultPrefix + job.UID.String() + model.GetImageFileExt[out.ContentType]
	if err := w.storage.Put(ctx, resKey, int64(len(out.Data)), out.ContentType, bytes.NewReader(out.Data)); err != nil {
		return fmt.Errorf("worker failed to put result image to storage: %w", err)
	}

	job.ResultKey = resKey
	job.ProcessingTime = out.ProcessingTime

	// обновить запись в БД
	if err := w.service.SaveResult(ctx, job); err != nil {
		return fmt.Errorf("worker failed to save result to DB: %w", err)
	}
	return nil
}

// isJobFailure - ошибка самой задачи, повтор не поможет
func isJobFailure(err error) bool {
	return errors.Is(err, model.ErrUpscaleFailed) ||
		errors.Is(err, model.ErrNoImage) ||
		errors.Is(err, model.ErrIncorrectScale) ||
		errors.Is(err, model.ErrUnsupportedFormat) ||
		errors.Is(err, model.ErrImageTooLarge) ||
		errors.Is(err, model.ErrDegenerateImage)
}

func closeFileFlow(ctx context.Context, res io.Closer) {
	if res == nil {
		return
	}

	if err := res.Close(); err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Msg("Worker failed to close fileflow")
	}
}
