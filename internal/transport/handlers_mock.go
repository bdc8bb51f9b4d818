package transport

import (
	"context"
	"io"

	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	"github.com/gin-gonic/gin"
)

type mockUpscaleService struct {
	upscaleFn    func(ctx context.Context, req *model.UpscaleRequest) (*model.UpscaleResponse, error)
	createFn     func(ctx context.Context, d *model.JobCreateData) (*model.Job, error)
	getFn        func(ctx context.Context, id string) (*model.Job, error)
	deleteFn     func(ctx context.Context, id string) error
	loadSourceFn func(ctx context.Context, id string) (io.ReadCloser, string, error)
	loadResultFn func(ctx context.Context, id string) (io.ReadCloser, string, error)
	getListFn    func(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
}

func (m *mockUpscaleService) Upscale(ctx context.Context, req *model.UpscaleRequest) (*model.UpscaleResponse, error) {
	return m.upscaleFn(ctx, req)
}

func (m *mockUpscaleService) Create(ctx context.Context, d *model.JobCreateData) (*model.Job, error) {
	return m.createFn(ctx, d)
}

func (m *mockUpscaleService) Get(ctx context.Context, id string) (*model.Job, error) {
	return m.getFn(ctx, id)
}

func (m *mockUpscaleService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockUpscaleService) LoadSource(ctx context.Context, id string) (io.ReadCloser, string, error) {
	return m.loadSourceFn(ctx, id)
}

func (m *mockUpscaleService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error) {
	return m.loadResultFn(ctx, id)
}

func (m *mockUpscaleService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	return m.getListFn(ctx, req)
}

func init() {
	gin.SetMode(gin.TestMode)
}
