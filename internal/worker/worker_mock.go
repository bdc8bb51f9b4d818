package worker

import (
	"context"
	"errors"
	"io"

	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	"github.com/UnendingLoop/ImageUpscaler/internal/service"
	kafkago "github.com/segmentio/kafka-go"
)

type mockWorkerService struct {
	getFn        func(ctx context.Context, id string) (*model.Job, error)
	updateFn     func(ctx context.Context, id string, st model.Status) error
	saveResultFn func(ctx context.Context, j *model.Job) error
	markFailedFn func(ctx context.Context, id string, cause error) error
	processFn    func(ctx context.Context, j *model.Job, source []byte) (*service.JobOutput, error)
}

func (m *mockWorkerService) Get(ctx context.Context, id string) (*model.Job, error) {
	if m.getFn == nil {
		return nil, model.ErrJobNotFound
	}
	return m.getFn(ctx, id)
}

func (m *mockWorkerService) UpdateStatus(ctx context.Context, id string, st model.Status) error {
	if m.updateFn == nil {
		return nil
	}
	return m.updateFn(ctx, id, st)
}

func (m *mockWorkerService) SaveResult(ctx context.Context, j *model.Job) error {
	if m.saveResultFn == nil {
		return nil
	}
	return m.saveResultFn(ctx, j)
}

func (m *mockWorkerService) MarkFailed(ctx context.Context, id string, cause error) error {
	if m.markFailedFn == nil {
		return nil
	}
	return m.markFailedFn(ctx, id, cause)
}

func (m *mockWorkerService) ProcessJob(ctx context.Context, j *model.Job, source []byte) (*service.JobOutput, error) {
	if m.processFn == nil {
		return nil, errors.New("mock: ProcessJob is not set")
	}
	return m.processFn(ctx, j, source)
}

//----------------------------------

type mockStorage struct {
	getFn func(ctx context.Context, key string) (io.ReadCloser, string, error)
	putFn func(ctx context.Context, key string, size int64, ct string, r io.Reader) error
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if m.getFn == nil {
		return nil, "", errors.New("mock: storage Get is not set")
	}
	return m.getFn(ctx, key)
}

func (m *mockStorage) Put(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
	if m.putFn == nil {
		return nil
	}
	return m.putFn(ctx, key, size, ct, r)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return nil
}

//----------------------------------

type mockCommitter struct {
	committed []kafkago.Message
}

func (m *mockCommitter) Commit(ctx context.Context, msg kafkago.Message) error {
	m.committed = append(m.committed, msg)
	return nil
}
