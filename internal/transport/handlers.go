// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"io"

	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	"github.com/UnendingLoop/ImageUpscaler/internal/mwlogger"
	"github.com/wb-go/wbf/ginext"
)

type UpscaleHandler struct {
	service UpscaleService
}

type UpscaleService interface {
	Upscale(ctx context.Context, req *model.UpscaleRequest) (*model.UpscaleResponse, error) // синхронный апскейл, ничего не сохраняем
	Create(ctx context.Context, data *model.JobCreateData) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	Delete(ctx context.Context, id string) error                              // удалить как в базе, так и в minio
	LoadSource(ctx context.Context, id string) (io.ReadCloser, string, error) // "до"
	LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error) // "после"
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
}

func NewUpscaleHandler(svc UpscaleService) *UpscaleHandler {
	return &UpscaleHandler{
		service: svc,
	}
}

func (h UpscaleHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

// Upscale handles a multipart form with "image" and an optional "scale_factor" field
// and answers with both images inline.
func (h UpscaleHandler) Upscale(ctx *ginext.Context) {
	imageFile, imageHeader, err := ctx.Request.FormFile("image")
	if err != nil {
		ctx.JSON(400, map[string]string{"error": model.ErrNoImage.Error()})
		return
	}
	defer closeFileFlow(ctx.Request.Context(), imageFile)

	req := model.UpscaleRequest{
		Scale:   ctx.PostForm("scale_factor"),
		Img:     imageFile,
		ImgSize: imageHeader.Size,
	}

	res, err := h.service.Upscale(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": model.UserMessage(err)})
		return
	}

	ctx.JSON(200, res)
}

func (h UpscaleHandler) CreateJob(ctx *ginext.Context) {
	// парсинг исходника
	imageFile, imageHeader, err := ctx.Request.FormFile("image")
	if err != nil {
		ctx.JSON(400, map[string]string{"error": model.ErrNoImage.Error()})
		return
	}
	defer closeFileFlow(ctx.Request.Context(), imageFile)

	// собираем все в структуру
	newJobRaw := model.JobCreateData{
		Scale:       ctx.PostForm("scale_factor"),
		Img:         imageFile,
		ContentType: imageHeader.Header.Get("Content-Type"),
		ImgSize:     imageHeader.Size,
	}

	// передаем в сервис
	res, err := h.service.Create(ctx.Request.Context(), &newJobRaw)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": model.UserMessage(err)})
		return
	}

	ctx.JSON(202, res)
}

func (h UpscaleHandler) GetJob(ctx *ginext.Context) {
	res, err := h.service.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h UpscaleHandler) GetAllJobs(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse query-params"})
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h UpscaleHandler) LoadSource(ctx *ginext.Context) {
	id := ctx.Param("id")
	res, cType, err := h.service.LoadSource(ctx.Request.Context(), id)
	streamFile(ctx, id, res, cType, err)
}

func (h UpscaleHandler) LoadResult(ctx *ginext.Context) {
	id := ctx.Param("id")
	res, cType, err := h.service.LoadResult(ctx.Request.Context(), id)
	streamFile(ctx, id, res, cType, err)
}

func (h UpscaleHandler) Delete(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := h.service.Delete(ctx.Request.Context(), id); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}

func streamFile(ctx *ginext.Context, id string, res io.ReadCloser, cType string, err error) {
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	defer closeFileFlow(ctx.Request.Context(), res)

	ctx.Writer.Header().Set("Content-Type", cType)
	ctx.Writer.WriteHeader(200)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		logger := mwlogger.LoggerFromContext(ctx.Request.Context())
		logger.Error().Err(err).Int64("written", n).Str("job_uid", id).Msg("Failed to write response")
	}
}
