// Package service provides business-logic for the app
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/UnendingLoop/ImageUpscaler/internal/imageproc"
	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	"github.com/UnendingLoop/ImageUpscaler/internal/mwlogger"
	"github.com/UnendingLoop/ImageUpscaler/internal/repository"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
)

type UpscaleService struct {
	repo            repository.JobRepo
	publisher       TaskPublisher
	storage         ImageStorage
	processor       Processor
	srcKeyPrefix    string
	resultKeyPrefix string
	maxUploadBytes  int64
	maxPixels       int
}

// Options - префиксы ключей в хранилище и лимиты загрузки
type Options struct {
	SourcePrefix   string
	ResultPrefix   string
	MaxUploadBytes int64
	MaxPixels      int
}

func NewUpscaleService(jobRep repository.JobRepo, pub TaskPublisher, strg ImageStorage, proc Processor, opts Options) *UpscaleService {
	return &UpscaleService{
		repo:            jobRep,
		publisher:       pub,
		storage:         strg,
		processor:       proc,
		srcKeyPrefix:    opts.SourcePrefix,
		resultKeyPrefix: opts.ResultPrefix,
		maxUploadBytes:  opts.MaxUploadBytes,
		maxPixels:       opts.MaxPixels,
	}
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// ImageStorage - контракт для работы с хранилищем
type ImageStorage interface {
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
}

// Processor - контракт пайплайна апскейла
type Processor interface {
	Process(ctx context.Context, img image.Image, f model.ScaleFactor) (*model.Result, error)
}

// Стратегия ретрая отправки в очередь - можно потом вынести значения в конфиг/env
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

// Upscale runs the pipeline right away and returns both images inline.
// Before is the upload exactly as received.
func (c UpscaleService) Upscale(ctx context.Context, req *model.UpscaleRequest) (*model.UpscaleResponse, error) {
	if req == nil || req.Img == nil {
		return nil, model.ErrNoImage
	}

	scale, err := model.ParseScaleFactor(req.Scale)
	if err != nil {
		return nil, err
	}

	raw, err := c.readUpload(req.Img, req.ImgSize)
	if err != nil {
		return nil, err
	}

	info, err := imageproc.Inspect(raw, c.maxPixels)
	if err != nil {
		return nil, err
	}

	out, res, err := c.run(ctx, raw, info, scale)
	if err != nil {
		return nil, err
	}

	return &model.UpscaleResponse{
		ScaleFactor: scale,
		NetScale:    scale.NetScale(),
		ContentType: imageproc.ContentType(info.Format),
		Before: model.ImageView{
			Width:   res.Before.Bounds().Dx(),
			Height:  res.Before.Bounds().Dy(),
			DataURI: dataURI(info.ContentType, raw),
		},
		After: model.ImageView{
			Width:   res.After.Bounds().Dx(),
			Height:  res.After.Bounds().Dy(),
			DataURI: dataURI(imageproc.ContentType(info.Format), out),
		},
		ProcessingTime: res.ProcessingTime,
	}, nil
}

// JobOutput - закодированный результат задачи
type JobOutput struct {
	Data           []byte
	ContentType    string
	ProcessingTime string
}

// ProcessJob runs the pipeline over a stored source image of a job.
func (c UpscaleService) ProcessJob(ctx context.Context, job *model.Job, source []byte) (*JobOutput, error) {
	info, err := imageproc.Inspect(source, c.maxPixels)
	if err != nil {
		return nil, err
	}

	out, res, err := c.run(ctx, source, info, job.ScaleFactor)
	if err != nil {
		return nil, err
	}

	return &JobOutput{
		Data:           out,
		ContentType:    imageproc.ContentType(info.Format),
		ProcessingTime: res.ProcessingTime,
	}, nil
}

// run - декодировать, прогнать пайплайн, закодировать результат в формат исходника
func (c UpscaleService) run(ctx context.Context, raw []byte, info imageproc.SourceInfo, scale model.ScaleFactor) ([]byte, *model.Result, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	img, err := imageproc.Decode(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", model.ErrUnsupportedFormat, err)
	}

	res, err := c.processor.Process(ctx, img, scale)
	if err != nil {
		return nil, nil, err
	}

	out, err := imageproc.Encode(res.After, info.Format)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode upscaled image")
		return nil, nil, model.ErrCommon500
	}

	return out, res, nil
}

func (c UpscaleService) Create(ctx context.Context, data *model.JobCreateData) (*model.Job, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	if data == nil || data.Img == nil {
		return nil, model.ErrNoImage
	}

	scale, err := model.ParseScaleFactor(data.Scale)
	if err != nil {
		return nil, err
	}

	raw, err := c.readUpload(data.Img, data.ImgSize)
	if err != nil {
		return nil, err
	}

	info, err := imageproc.Inspect(raw, c.maxPixels)
	if err != nil {
		return nil, err
	}

	// отсекаем заранее то, что пайплайн все равно отвергнет
	if err := checkPreScale(info, scale); err != nil {
		return nil, err
	}

	newJob := &model.Job{
		UID:         uuid.New(),
		ScaleFactor: scale,
		NetScale:    scale.NetScale(),
	}

	// кладем в хранилище сорсник
	newJob.SourceKey = c.srcKeyPrefix + newJob.UID.String() + model.GetImageFileExt[info.ContentType]
	if err := c.storage.Put(ctx, newJob.SourceKey, int64(len(raw)), info.ContentType, bytes.NewReader(raw)); err != nil {
		logger.Error().Err(err).Msg("Failed to save src-image in Storage")
		return nil, model.ErrCommon500
	}

	// ставим статус и таймстамп
	newJob.Status = model.StatusCreated
	now := time.Now().UTC()
	newJob.CreatedAt = &now
	newJob.UpdatedAt = &now

	// шлем в базу
	if err := c.repo.Create(ctx, newJob); err != nil {
		logger.Error().Err(err).Msg("Failed to create job in DB")
		return nil, model.ErrCommon500
	}

	// кладем в очередь задач(в кафку)
	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(newJob.UID.String()), nil); err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to publish job %q to task-queue", newJob.UID))
		return nil, model.ErrCommon500
	}
	return newJob, nil
}

func (c UpscaleService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch jobs list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c UpscaleService) Get(ctx context.Context, id string) (*model.Job, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return nil, err
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch job %q from DB", id))
		return nil, model.ErrCommon500
	}

	return res, nil
}

// LoadSource returns the original upload of a job - the "before" side.
func (c UpscaleService) LoadSource(ctx context.Context, id string) (io.ReadCloser, string, error) {
	res, err := c.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return c.load(ctx, id, res.SourceKey)
}

// LoadResult returns the upscaled image of a finished job - the "after" side.
func (c UpscaleService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error) {
	res, err := c.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if res.Status != model.StatusDone {
		return nil, "", model.ErrResultNotReady
	}
	return c.load(ctx, id, res.ResultKey)
}

func (c UpscaleService) load(ctx context.Context, id, key string) (io.ReadCloser, string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	// достаем из хранилища
	data, cType, err := c.storage.Get(ctx, key)
	if err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch %q of job %q from Storage", key, id))
		return nil, "", model.ErrCommon500
	}
	return data, cType, nil
}

// Delete removes the stored images first: a failed storage call leaves the
// job in place so the request can be repeated.
func (c UpscaleService) Delete(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)

	// читаем из базы
	res, err := c.Get(ctx, id)
	if err != nil {
		return err
	}

	// удаляем из хранилища сорсник и результат(если он есть)
	if err := c.storage.Delete(ctx, res.SourceKey); err != nil {
		logger.Error().Err(err).Msg("Failed to delete src-image from Storage")
		return model.ErrCommon500
	}
	if res.ResultKey != "" {
		if err := c.storage.Delete(ctx, res.ResultKey); err != nil {
			logger.Error().Err(err).Msg("Failed to delete result-image from Storage")
			return model.ErrCommon500
		}
	}

	// удаляем из базы
	if err := c.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return err
		}
		logger.Error().Err(err).Msg("Failed to delete job from DB")
		return model.ErrCommon500
	}

	return nil
}

func (c UpscaleService) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}
	if !model.StatusMap[newStat] {
		return model.ErrIncorrectStatus
	}

	logger := mwlogger.LoggerFromContext(ctx)

	if err := c.repo.UpdateStatus(ctx, id, newStat); err != nil {
		switch {
		case errors.Is(err, model.ErrJobNotFound):
			return err // 404
		default:
			logger.Error().Err(err).Msg("Failed to update job status in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

// SaveResult stores the result key and processing time and marks the job done.
func (c UpscaleService) SaveResult(ctx context.Context, input *model.Job) error {
	logger := mwlogger.LoggerFromContext(ctx)
	t := time.Now().UTC()
	input.UpdatedAt = &t
	input.Status = model.StatusDone
	if err := c.repo.SaveResult(ctx, input); err != nil {
		switch {
		case errors.Is(err, model.ErrJobNotFound):
			return err // 404
		default:
			logger.Error().Err(err).Msg("Failed to save result in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

// MarkFailed saves the user-facing text of cause on the job.
func (c UpscaleService) MarkFailed(ctx context.Context, id string, cause error) error {
	logger := mwlogger.LoggerFromContext(ctx)

	if err := c.repo.MarkFailed(ctx, id, model.UserMessage(cause)); err != nil {
		switch {
		case errors.Is(err, model.ErrJobNotFound):
			return err
		default:
			logger.Error().Err(err).Msg("Failed to mark job as failed in DB")
			return model.ErrCommon500
		}
	}
	return nil
}

// ReviveOrphans republishes jobs that got stuck in created/in_progress.
func (c UpscaleService) ReviveOrphans(ctx context.Context, limit int) {
	logger := mwlogger.LoggerFromContext(ctx)

	orphans, err := c.repo.FetchOrphans(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load orphans from DB")
		return
	}

	for _, v := range orphans {
		if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(v), nil); err != nil {
			logger.Error().Err(err).Msg("Failed to publish orphan to queue")
		}
	}
	if len(orphans) > 0 {
		logger.Info().Int("count", len(orphans)).Msg("Orphan jobs republished")
	}
}
