package main

import (
	"context"
	"io"

	"github.com/UnendingLoop/ImageUpscaler/internal/model"
)

type UpscaleAPIService interface {
	Upscale(ctx context.Context, req *model.UpscaleRequest) (*model.UpscaleResponse, error)
	Create(ctx context.Context, data *model.JobCreateData) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	LoadSource(ctx context.Context, id string) (io.ReadCloser, string, error)
	LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
	Delete(ctx context.Context, id string) error
	ReviveOrphans(ctx context.Context, limit int)
}
