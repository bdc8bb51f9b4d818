// Package model provides data-structs for internal app-usage
package model

import (
	"image"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	Status      string
	ScaleFactor int
)

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
	StatusDone       Status = "done"
)

var StatusMap = map[Status]bool{
	StatusCreated:    true,
	StatusInProgress: true,
	StatusFailed:     true,
	StatusDone:       true,
}

// ModelScale - фиксированный коэффициент апскейла модели
const ModelScale = 4

const (
	Scale2 ScaleFactor = 2
	Scale3 ScaleFactor = 3
	Scale4 ScaleFactor = 4

	DefaultScale = Scale4
)

// Valid reports whether f is one of the selectable factors.
func (f ScaleFactor) Valid() bool {
	return f == Scale2 || f == Scale3 || f == Scale4
}

// PreScaleRatio is the shrink applied before the fixed 4x model.
// Factor 2 shrinks to 50%, factor 3 to 75%, everything else is left as is.
func (f ScaleFactor) PreScaleRatio() float64 {
	switch f {
	case Scale2:
		return 0.5
	case Scale3:
		return 0.75
	default:
		return 1
	}
}

// NetScale is the effective magnification of the result relative to the
// original upload: PreScaleRatio() * ModelScale.
func (f ScaleFactor) NetScale() float64 {
	return f.PreScaleRatio() * ModelScale
}

// ParseScaleFactor parses a form value. Empty input yields DefaultScale.
func ParseScaleFactor(raw string) (ScaleFactor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultScale, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrIncorrectScale
	}
	f := ScaleFactor(v)
	if !f.Valid() {
		return 0, ErrIncorrectScale
	}
	return f, nil
}

//---------------------

// Result - результат одного прогона пайплайна
type Result struct {
	Before         image.Image
	After          image.Image
	Scale          ScaleFactor
	Elapsed        time.Duration
	ProcessingTime string
}

type Job struct {
	UID            uuid.UUID   `json:"uid"`
	SourceKey      string      `json:"-"`
	ResultKey      string      `json:"-"`
	ScaleFactor    ScaleFactor `json:"scale_factor"`
	NetScale       float64     `json:"net_scale"`
	Status         Status      `json:"status,omitempty"`
	ErrMsg         string      `json:"error,omitempty"`
	ProcessingTime string      `json:"processing_time,omitempty"`
	CreatedAt      *time.Time  `json:"created_at,omitempty"`
	UpdatedAt      *time.Time  `json:"updated_at,omitempty"`
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByUUID    = "uid"
	ByCreated = "created"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// JobCreateData - сырые данные загрузки для асинхронной задачи
type JobCreateData struct {
	Scale       string
	Img         multipart.File
	ContentType string
	ImgSize     int64
}

// UpscaleRequest - сырые данные загрузки для синхронного апскейла
type UpscaleRequest struct {
	Scale   string
	Img     multipart.File
	ImgSize int64
}

type ImageView struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	DataURI string `json:"data_uri"`
}

type UpscaleResponse struct {
	ScaleFactor    ScaleFactor `json:"scale_factor"`
	NetScale       float64     `json:"net_scale"`
	ContentType    string      `json:"content_type"`
	Before         ImageView   `json:"before"`
	After          ImageView   `json:"after"`
	ProcessingTime string      `json:"processing_time"`
}

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	WEBP = "image/webp"
)

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
	WEBP: ".webp",
}

var InImageTypeMap = map[string]bool{
	JPEG: true,
	PNG:  true,
	GIF:  true,
	WEBP: true,
}
