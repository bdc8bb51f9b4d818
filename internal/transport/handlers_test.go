package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"
)

func TestUpscaleHandler_Ping(t *testing.T) {
	r := gin.New()
	h := NewUpscaleHandler(nil)

	r.GET("/ping", func(c *gin.Context) {
		h.SimplePinger((*ginext.Context)(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "pong", body["message"])
}

func newMultipartRequest(t *testing.T, path string, fields map[string]string, files map[string][]byte) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := w.CreateFormFile(name, name+".png")
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUpscaleHandler_Upscale(t *testing.T) {
	tests := []struct {
		name       string
		req        *http.Request
		mock       *mockUpscaleService
		wantStatus int
		wantError  string
	}{
		{
			name: "success",
			req: newMultipartRequest(t, "/upscale",
				map[string]string{"scale_factor": "2"},
				map[string][]byte{"image": []byte("img")},
			),
			mock: &mockUpscaleService{
				upscaleFn: func(ctx context.Context, req *model.UpscaleRequest) (*model.UpscaleResponse, error) {
					require.Equal(t, "2", req.Scale)
					require.NotNil(t, req.Img)
					return &model.UpscaleResponse{ScaleFactor: model.Scale2, ProcessingTime: "Processing time: 1.00 seconds"}, nil
				},
			},
			wantStatus: 200,
		},
		{
			name:       "missing image",
			req:        newMultipartRequest(t, "/upscale", map[string]string{"scale_factor": "4"}, nil),
			mock:       &mockUpscaleService{},
			wantStatus: 400,
			wantError:  model.ErrNoImage.Error(),
		},
		{
			name: "bad scale",
			req:  newMultipartRequest(t, "/upscale", map[string]string{"scale_factor": "7"}, map[string][]byte{"image": []byte("img")}),
			mock: &mockUpscaleService{
				upscaleFn: func(ctx context.Context, req *model.UpscaleRequest) (*model.UpscaleResponse, error) {
					return nil, model.ErrIncorrectScale
				},
			},
			wantStatus: 400,
			wantError:  model.ErrIncorrectScale.Error(),
		},
		{
			name: "degenerate image",
			req:  newMultipartRequest(t, "/upscale", nil, map[string][]byte{"image": []byte("img")}),
			mock: &mockUpscaleService{
				upscaleFn: func(ctx context.Context, req *model.UpscaleRequest) (*model.UpscaleResponse, error) {
					return nil, fmt.Errorf("%w: 1x1", model.ErrDegenerateImage)
				},
			},
			wantStatus: 422,
		},
		{
			name: "upscaler failure keeps message",
			req:  newMultipartRequest(t, "/upscale", nil, map[string][]byte{"image": []byte("img")}),
			mock: &mockUpscaleService{
				upscaleFn: func(ctx context.Context, req *model.UpscaleRequest) (*model.UpscaleResponse, error) {
					return nil, model.NewUpscaleError("onnx/cuda", errors.New("CUDA out of memory"))
				},
			},
			wantStatus: 422,
			wantError:  "an error occurred during image upscaling: CUDA out of memory",
		},
		{
			name: "internal error is hidden",
			req:  newMultipartRequest(t, "/upscale", nil, map[string][]byte{"image": []byte("img")}),
			mock: &mockUpscaleService{
				upscaleFn: func(ctx context.Context, req *model.UpscaleRequest) (*model.UpscaleResponse, error) {
					return nil, errors.New("minio: secret detail")
				},
			},
			wantStatus: 500,
			wantError:  model.ErrCommon500.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewUpscaleHandler(tt.mock)

			r.POST("/upscale", func(c *gin.Context) {
				h.Upscale((*ginext.Context)(c))
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, tt.req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				require.Equal(t, tt.wantError, body["error"])
			}
		})
	}
}

func TestUpscaleHandler_CreateJob(t *testing.T) {
	tests := []struct {
		name       string
		req        *http.Request
		mock       *mockUpscaleService
		wantStatus int
	}{
		{
			name: "success",
			req: newMultipartRequest(t, "/jobs",
				map[string]string{"scale_factor": "3"},
				map[string][]byte{"image": []byte("img")},
			),
			mock: &mockUpscaleService{
				createFn: func(ctx context.Context, d *model.JobCreateData) (*model.Job, error) {
					require.NotNil(t, d.Img)
					require.Equal(t, "3", d.Scale)
					return &model.Job{UID: uuid.New(), Status: model.StatusCreated}, nil
				},
			},
			wantStatus: 202,
		},
		{
			name:       "missing image",
			req:        newMultipartRequest(t, "/jobs", map[string]string{"scale_factor": "3"}, nil),
			mock:       &mockUpscaleService{},
			wantStatus: 400,
		},
		{
			name: "too large",
			req:  newMultipartRequest(t, "/jobs", nil, map[string][]byte{"image": []byte("img")}),
			mock: &mockUpscaleService{
				createFn: func(ctx context.Context, d *model.JobCreateData) (*model.Job, error) {
					return nil, model.ErrImageTooLarge
				},
			},
			wantStatus: 413,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewUpscaleHandler(tt.mock)

			r.POST("/jobs", func(c *gin.Context) {
				h.CreateJob((*ginext.Context)(c))
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, tt.req)

			require.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestUpscaleHandler_GetJob(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name       string
		mock       *mockUpscaleService
		wantStatus int
	}{
		{
			name: "success",
			mock: &mockUpscaleService{
				getFn: func(ctx context.Context, uid string) (*model.Job, error) {
					require.Equal(t, id.String(), uid)
					return &model.Job{UID: id, Status: model.StatusDone}, nil
				},
			},
			wantStatus: 200,
		},
		{
			name: "bad id",
			mock: &mockUpscaleService{
				getFn: func(ctx context.Context, uid string) (*model.Job, error) {
					return nil, model.ErrIncorrectID
				},
			},
			wantStatus: 400,
		},
		{
			name: "not found",
			mock: &mockUpscaleService{
				getFn: func(ctx context.Context, uid string) (*model.Job, error) {
					return nil, model.ErrJobNotFound
				},
			},
			wantStatus: 404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewUpscaleHandler(tt.mock)

			r.GET("/jobs/:id", func(c *gin.Context) {
				h.GetJob((*ginext.Context)(c))
			})

			req := httptest.NewRequest(http.MethodGet, "/jobs/"+id.String(), nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)
			require.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestUpscaleHandler_GetAllJobs(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		mock       *mockUpscaleService
		wantStatus int
	}{
		{
			name:  "success",
			query: "?page=1&limit=10",
			mock: &mockUpscaleService{
				getListFn: func(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
					return []model.Job{{}}, nil
				},
			},
			wantStatus: 200,
		},
		{
			name:       "bad query",
			query:      "?page=abc",
			mock:       &mockUpscaleService{},
			wantStatus: 400,
		},
		{
			name:  "service error",
			query: "",
			mock: &mockUpscaleService{
				getListFn: func(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
					return nil, model.ErrCommon500
				},
			},
			wantStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewUpscaleHandler(tt.mock)

			r.GET("/jobs", func(c *gin.Context) {
				h.GetAllJobs((*ginext.Context)(c))
			})

			req := httptest.NewRequest(http.MethodGet, "/jobs"+tt.query, nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)
			require.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestUpscaleHandler_LoadSourceAndResult(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		mock       *mockUpscaleService
		wantStatus int
		wantBody   string
	}{
		{
			name: "source",
			path: "/jobs/123/source",
			mock: &mockUpscaleService{
				loadSourceFn: func(ctx context.Context, id string) (io.ReadCloser, string, error) {
					return io.NopCloser(bytes.NewReader([]byte("before"))), "image/png", nil
				},
			},
			wantStatus: 200,
			wantBody:   "before",
		},
		{
			name: "result",
			path: "/jobs/123/result",
			mock: &mockUpscaleService{
				loadResultFn: func(ctx context.Context, id string) (io.ReadCloser, string, error) {
					return io.NopCloser(bytes.NewReader([]byte("after"))), "image/png", nil
				},
			},
			wantStatus: 200,
			wantBody:   "after",
		},
		{
			name: "result not ready",
			path: "/jobs/123/result",
			mock: &mockUpscaleService{
				loadResultFn: func(ctx context.Context, id string) (io.ReadCloser, string, error) {
					return nil, "", model.ErrResultNotReady
				},
			},
			wantStatus: 404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewUpscaleHandler(tt.mock)

			r.GET("/jobs/:id/source", func(c *gin.Context) {
				h.LoadSource((*ginext.Context)(c))
			})
			r.GET("/jobs/:id/result", func(c *gin.Context) {
				h.LoadResult((*ginext.Context)(c))
			})

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)
			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				require.Equal(t, tt.wantBody, w.Body.String())
				require.Equal(t, "image/png", w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestUpscaleHandler_Delete(t *testing.T) {
	tests := []struct {
		name       string
		mock       *mockUpscaleService
		wantStatus int
	}{
		{
			name: "success",
			mock: &mockUpscaleService{
				deleteFn: func(ctx context.Context, id string) error {
					return nil
				},
			},
			wantStatus: 204,
		},
		{
			name: "not found",
			mock: &mockUpscaleService{
				deleteFn: func(ctx context.Context, id string) error {
					return model.ErrJobNotFound
				},
			},
			wantStatus: 404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewUpscaleHandler(tt.mock)

			r.DELETE("/jobs/:id", func(c *gin.Context) {
				h.Delete((*ginext.Context)(c))
			})

			req := httptest.NewRequest(http.MethodDelete, "/jobs/123", nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)
			require.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestErrorCodeDefiner(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{model.ErrCommon500, 500},
		{model.ErrJobNotFound, 404},
		{model.ErrResultNotReady, 404},
		{model.ErrImageTooLarge, 413},
		{model.ErrDegenerateImage, 422},
		{model.NewUpscaleError("lanczos", errors.New("boom")), 422},
		{model.ErrNoImage, 400},
		{model.ErrIncorrectScale, 400},
		{fmt.Errorf("wrapped: %w", model.ErrUnsupportedFormat), 400},
		{errors.New("unknown"), 500},
	}

	for _, tc := range cases {
		require.Equal(t, tc.code, errorCodeDefiner(tc.err), tc.err.Error())
	}
}
