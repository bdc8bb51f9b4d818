package config

import (
	"testing"

	"github.com/UnendingLoop/ImageUpscaler/internal/upscaler"
	"github.com/stretchr/testify/require"
)

type mapSource map[string]string

func (m mapSource) GetString(key string) string { return m[key] }

func TestFromSource_Defaults(t *testing.T) {
	cfg, err := FromSource(mapSource{})
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, int64(20<<20), cfg.MaxUploadBytes)
	require.Equal(t, upscaler.BackendLanczos, cfg.Upscaler.Backend)
	require.Equal(t, upscaler.DeviceCPU, cfg.Upscaler.Device)
	require.Equal(t, upscaler.DefaultTileSize, cfg.Upscaler.TileSize)
	require.Equal(t, upscaler.DefaultTilePadding, cfg.Upscaler.TilePadding)
	require.False(t, cfg.MinioSecure)
}

func TestFromSource_Values(t *testing.T) {
	cfg, err := FromSource(mapSource{
		"APP_PORT":            "9000",
		"MAX_UPLOAD_MB":       "5",
		"MINIO_SECURE":        "true",
		"UPSCALER_BACKEND":    "ONNX",
		"UPSCALER_DEVICE":     "CUDA",
		"UPSCALER_DEVICE_ID":  "1",
		"UPSCALER_MODEL_PATH": "/models/aura_sr.onnx",
		"UPSCALER_TILE_SIZE":  " 128 ",
	})
	require.NoError(t, err)

	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	require.True(t, cfg.MinioSecure)
	require.Equal(t, upscaler.BackendONNX, cfg.Upscaler.Backend)
	require.Equal(t, upscaler.DeviceCUDA, cfg.Upscaler.Device)
	require.Equal(t, 1, cfg.Upscaler.DeviceID)
	require.Equal(t, "/models/aura_sr.onnx", cfg.Upscaler.ModelPath)
	require.Equal(t, 128, cfg.Upscaler.TileSize)
}

func TestFromSource_BadValues(t *testing.T) {
	_, err := FromSource(mapSource{"UPSCALER_TILE_SIZE": "big"})
	require.ErrorContains(t, err, "UPSCALER_TILE_SIZE")

	_, err = FromSource(mapSource{"MINIO_SECURE": "maybe"})
	require.ErrorContains(t, err, "MINIO_SECURE")
}
