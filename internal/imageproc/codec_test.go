package imageproc

import (
	"image"
	"image/color"
	"testing"

	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		maxPixels  int
		wantCType  string
		wantFormat imaging.Format
		wantErr    error
	}{
		{
			name:       "png",
			data:       testImageBytes(t, 30, 20, imaging.PNG),
			wantCType:  model.PNG,
			wantFormat: imaging.PNG,
		},
		{
			name:       "jpeg",
			data:       testImageBytes(t, 30, 20, imaging.JPEG),
			wantCType:  model.JPEG,
			wantFormat: imaging.JPEG,
		},
		{
			name:       "gif",
			data:       testImageBytes(t, 30, 20, imaging.GIF),
			wantCType:  model.GIF,
			wantFormat: imaging.PNG,
		},
		{
			name:    "empty payload",
			data:    nil,
			wantErr: model.ErrNoImage,
		},
		{
			name:    "not an image",
			data:    []byte("definitely not an image"),
			wantErr: model.ErrUnsupportedFormat,
		},
		{
			name:      "too many pixels",
			data:      testImageBytes(t, 30, 20, imaging.PNG),
			maxPixels: 100,
			wantErr:   model.ErrImageTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Inspect(tt.data, tt.maxPixels)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.wantCType, info.ContentType)
			require.Equal(t, tt.wantFormat, info.Format)
			require.Equal(t, 30, info.Width)
			require.Equal(t, 20, info.Height)
		})
	}
}

func TestDecodeEncode(t *testing.T) {
	img, err := Decode(testImageBytes(t, 12, 8, imaging.PNG))
	require.NoError(t, err)
	require.Equal(t, 12, img.Bounds().Dx())
	require.Equal(t, 8, img.Bounds().Dy())

	data, err := Encode(img, imaging.PNG)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	info, err := Inspect(data, 0)
	require.NoError(t, err)
	require.Equal(t, model.PNG, info.ContentType)
}

// результат для gif-исходника кодируется без палитры
func TestEncode_GIFSourceKeepsFullColour(t *testing.T) {
	info, err := Inspect(testImageBytes(t, 30, 20, imaging.GIF), 0)
	require.NoError(t, err)

	// градиент больше чем на 256 цветов
	src := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			src.Set(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: uint8((x + y) * 2), A: 255})
		}
	}

	data, err := Encode(src, info.Format)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, model.PNG, ContentType(info.Format))

	colours := map[color.NRGBA]struct{}{}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			colours[color.NRGBAModel.Convert(out.At(x, y)).(color.NRGBA)] = struct{}{}
		}
	}
	require.Greater(t, len(colours), 256)
}

func TestDecode_Broken(t *testing.T) {
	_, err := Decode([]byte("broken"))
	require.Error(t, err)
}

func TestContentType(t *testing.T) {
	require.Equal(t, model.JPEG, ContentType(imaging.JPEG))
	require.Equal(t, model.PNG, ContentType(imaging.PNG))
	require.Equal(t, model.PNG, ContentType(imaging.TIFF))
}
