package imageproc

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	"github.com/disintegration/imaging"
)

// SourceInfo describes an uploaded image before it is fully decoded.
type SourceInfo struct {
	ContentType string         // тип исходника
	Format      imaging.Format // формат, в котором отдаем результат
	Width       int
	Height      int
}

var sourceTypes = map[string]SourceInfo{
	"jpeg": {ContentType: model.JPEG, Format: imaging.JPEG},
	"png":  {ContentType: model.PNG, Format: imaging.PNG},
	// палитра gif в 256 цветов съест апскейл - результат отдаем в png
	"gif":  {ContentType: model.GIF, Format: imaging.PNG},
	// imaging не умеет кодировать webp - результат тоже в png
	"webp": {ContentType: model.WEBP, Format: imaging.PNG},
}

var GetCType = map[imaging.Format]string{
	imaging.JPEG: model.JPEG,
	imaging.GIF:  model.GIF,
	imaging.PNG:  model.PNG,
}

// Inspect reads only the image header. maxPixels <= 0 disables the size guard.
func Inspect(data []byte, maxPixels int) (SourceInfo, error) {
	if len(data) == 0 {
		return SourceInfo{}, model.ErrNoImage
	}

	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return SourceInfo{}, fmt.Errorf("%w: %v", model.ErrUnsupportedFormat, err)
	}

	info, ok := sourceTypes[name]
	if !ok {
		return SourceInfo{}, model.ErrUnsupportedFormat
	}
	info.Width, info.Height = cfg.Width, cfg.Height

	if info.Width <= 0 || info.Height <= 0 {
		return SourceInfo{}, model.ErrDegenerateImage
	}
	if maxPixels > 0 && info.Width*info.Height > maxPixels {
		return SourceInfo{}, fmt.Errorf("%w: %dx%d is above %d pixels", model.ErrImageTooLarge, info.Width, info.Height, maxPixels)
	}

	return info, nil
}

// Decode decodes data applying EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to DEcode image: %w", err)
	}
	return img, nil
}

func Encode(img image.Image, format imaging.Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, fmt.Errorf("failed to ENcode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ContentType returns the MIME type produced by Encode for format.
func ContentType(format imaging.Format) string {
	if ct, ok := GetCType[format]; ok {
		return ct
	}
	return model.PNG
}
