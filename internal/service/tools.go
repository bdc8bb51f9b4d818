package service

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/UnendingLoop/ImageUpscaler/internal/imageproc"
	"github.com/UnendingLoop/ImageUpscaler/internal/model"
)

func validateQueryParams(req *model.ListRequest) {
	// Обрабатываем пустые значения, присваиваем дефолты если надо
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}

	// Валидируем поле типа сортировки
	req.Sort = strings.TrimSpace(strings.ToLower(req.Sort))
	switch {
	case strings.Contains(req.Sort, model.ByUUID):
		req.Sort = "job_uid"
	default:
		req.Sort = "created_at" // по дефолту ставим сортировку по времени создания
	}

	// Валидируем порядок
	req.Order = strings.TrimSpace(strings.ToLower(req.Order))
	switch {
	case strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	default:
		req.Order = "DESC" // по дефолту ставим сортировку "новое-выше"
	}
}

// readUpload читает файл целиком, но не больше лимита
func (c UpscaleService) readUpload(r io.Reader, declared int64) ([]byte, error) {
	if c.maxUploadBytes > 0 && declared > c.maxUploadBytes {
		return nil, model.ErrImageTooLarge
	}

	limit := c.maxUploadBytes
	if limit <= 0 {
		limit = 1 << 62
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrNoImage, err)
	}
	if int64(len(data)) > limit {
		return nil, model.ErrImageTooLarge
	}
	if len(data) == 0 {
		return nil, model.ErrNoImage
	}
	return data, nil
}

func checkPreScale(info imageproc.SourceInfo, scale model.ScaleFactor) error {
	w, h := imageproc.ScaledSize(info.Width, info.Height, scale.PreScaleRatio())
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d pre-scales to %dx%d", model.ErrDegenerateImage, info.Width, info.Height, w, h)
	}
	return nil
}

func dataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
