// Package upscaler provides the 4x super-resolution backends: an ONNX Runtime
// model session and a plain Lanczos fallback.
package upscaler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
)

type (
	Backend string
	Device  string
)

const (
	BackendONNX    Backend = "onnx"
	BackendLanczos Backend = "lanczos"

	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

const (
	DefaultTileSize    = 64
	DefaultTilePadding = 8
	DefaultInputName   = "input"
	DefaultOutputName  = "output"
)

var (
	ErrUnknownBackend = errors.New("unknown upscaler backend")
	ErrUnknownDevice  = errors.New("unknown upscaler device")
	ErrNoModelPath    = errors.New("model path is required for onnx backend")
	ErrBadTiling      = errors.New("tile size must be positive and padding non-negative")
)

// Config is read once at startup. Device selects where inference runs;
// it only matters for the onnx backend.
type Config struct {
	Backend        Backend
	ModelPath      string
	LibraryPath    string
	Device         Device
	DeviceID       int
	InputName      string
	OutputName     string
	TileSize       int
	TilePadding    int
	Parallelism    int
	IntraOpThreads int
}

// Service is a loaded model. It is built once per process, shared by all
// requests and closed on shutdown.
type Service interface {
	Name() string
	Upscale(ctx context.Context, img image.Image) (image.Image, error)
	Close() error
}

func (c *Config) setDefaults() {
	if c.Backend == "" {
		c.Backend = BackendLanczos
	}
	if c.Device == "" {
		c.Device = DeviceCPU
	}
	if c.InputName == "" {
		c.InputName = DefaultInputName
	}
	if c.OutputName == "" {
		c.OutputName = DefaultOutputName
	}
	if c.TileSize == 0 {
		c.TileSize = DefaultTileSize
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 1
	}
}

func (c Config) validate() error {
	switch c.Backend {
	case BackendONNX:
		if c.ModelPath == "" {
			return ErrNoModelPath
		}
	case BackendLanczos:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}

	switch c.Device {
	case DeviceCPU, DeviceCUDA:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDevice, c.Device)
	}

	if c.TileSize <= 0 || c.TilePadding < 0 {
		return ErrBadTiling
	}
	return nil
}

// New loads the configured backend.
func New(cfg Config) (Service, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendONNX:
		log.Printf("Loading ONNX model %q on %s...", cfg.ModelPath, cfg.Device)
		u, err := newOnnxUpscaler(cfg)
		if err != nil {
			return nil, err
		}
		log.Println("ONNX model loaded")
		return u, nil
	default:
		log.Println("No model configured, using Lanczos upscaler")
		return LanczosUpscaler{}, nil
	}
}
