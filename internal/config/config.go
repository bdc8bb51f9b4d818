// Package config reads env-based settings of api and worker into typed structs
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/UnendingLoop/ImageUpscaler/internal/upscaler"
	wbfconfig "github.com/wb-go/wbf/config"
)

// Source - то, что нам нужно от wbf/config (удобно подменять в тестах)
type Source interface {
	GetString(key string) string
}

type AppConfig struct {
	Port     string
	GinMode  string
	LogLevel string

	PostgresDSN string

	MinioEndpoint string
	MinioUser     string
	MinioPass     string
	MinioSecure   bool
	Bucket        string

	KafkaBroker  string
	KafkaTopic   string
	KafkaGroupID string

	SourcePrefix string
	ResultPrefix string

	MaxUploadBytes int64
	MaxPixels      int

	Upscaler upscaler.Config
}

// Load - инициализировать конфиг/ считать энвы. Файл опционален: в контейнере энвы приходят снаружи
func Load(envFile string) (*AppConfig, error) {
	cfg := wbfconfig.New()
	cfg.EnableEnv("")
	if _, err := os.Stat(envFile); err == nil {
		if err := cfg.LoadEnvFiles(envFile); err != nil {
			return nil, fmt.Errorf("failed to load envs: %w", err)
		}
	}
	return FromSource(cfg)
}

// FromSource fills AppConfig applying defaults for empty keys.
func FromSource(src Source) (*AppConfig, error) {
	r := reader{src: src}

	app := &AppConfig{
		Port:     r.str("APP_PORT", "8080"),
		GinMode:  r.str("GIN_MODE", "release"),
		LogLevel: r.str("LOG_LEVEL", "info"),

		PostgresDSN: r.str("POSTGRES_DSN", ""),

		MinioEndpoint: r.str("MINIO_ENDPOINT", "minio:9000"),
		MinioUser:     r.str("MINIO_USER", ""),
		MinioPass:     r.str("MINIO_PASS", ""),
		MinioSecure:   r.boolean("MINIO_SECURE", false),
		Bucket:        r.str("BUCKET_NAME", "upscaler"),

		KafkaBroker:  r.str("KAFKA_BROKER", "kafka:9092"),
		KafkaTopic:   r.str("KAFKA_TOPIC", "upscale-jobs"),
		KafkaGroupID: r.str("KAFKA_GROUPID", "upscale-workers"),

		SourcePrefix: r.str("SOURCE_KEY", "source/"),
		ResultPrefix: r.str("RESULT_KEY", "result/"),

		MaxUploadBytes: int64(r.integer("MAX_UPLOAD_MB", 20)) << 20,
		MaxPixels:      r.integer("MAX_PIXELS", 4096*4096),

		Upscaler: upscaler.Config{
			Backend:        upscaler.Backend(strings.ToLower(r.str("UPSCALER_BACKEND", string(upscaler.BackendLanczos)))),
			ModelPath:      r.str("UPSCALER_MODEL_PATH", ""),
			LibraryPath:    r.str("UPSCALER_ONNX_LIB", ""),
			Device:         upscaler.Device(strings.ToLower(r.str("UPSCALER_DEVICE", string(upscaler.DeviceCPU)))),
			DeviceID:       r.integer("UPSCALER_DEVICE_ID", 0),
			InputName:      r.str("UPSCALER_INPUT_NAME", upscaler.DefaultInputName),
			OutputName:     r.str("UPSCALER_OUTPUT_NAME", upscaler.DefaultOutputName),
			TileSize:       r.integer("UPSCALER_TILE_SIZE", upscaler.DefaultTileSize),
			TilePadding:    r.integer("UPSCALER_TILE_PADDING", upscaler.DefaultTilePadding),
			Parallelism:    r.integer("UPSCALER_PARALLELISM", 1),
			IntraOpThreads: r.integer("UPSCALER_THREADS", 0),
		},
	}

	if r.err != nil {
		return nil, r.err
	}
	return app, nil
}

// reader запоминает первую ошибку парсинга, чтобы не проверять каждое поле
type reader struct {
	src Source
	err error
}

func (r *reader) str(key, def string) string {
	v := strings.TrimSpace(r.src.GetString(key))
	if v == "" {
		return def
	}
	return v
}

func (r *reader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("env %s: %q is not an integer", key, v)
	}
	return n
}

func (r *reader) boolean(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("env %s: %q is not a boolean", key, v)
	}
	return b
}
