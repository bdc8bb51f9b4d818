package upscaler

import (
	"context"
	"fmt"
	"image"
	"strconv"

	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	ort "github.com/yalue/onnxruntime_go"
)

// OnnxUpscaler runs a 4x super-resolution ONNX model (NCHW float32 RGB in
// [0,1] in, same layout 4x larger out) tile by tile.
type OnnxUpscaler struct {
	session     *ort.DynamicAdvancedSession
	device      Device
	tileSize    int
	tilePadding int
	parallelism int
}

func newOnnxUpscaler(cfg Config) (*OnnxUpscaler, error) {
	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to init ONNX Runtime (check UPSCALER_ONNX_LIB): %w", err)
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	if cfg.IntraOpThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}

	if cfg.Device == DeviceCUDA {
		if err := appendCUDA(opts, cfg.DeviceID); err != nil {
			return nil, err
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %q: %w", cfg.ModelPath, err)
	}

	return &OnnxUpscaler{
		session:     session,
		device:      cfg.Device,
		tileSize:    cfg.TileSize,
		tilePadding: cfg.TilePadding,
		parallelism: cfg.Parallelism,
	}, nil
}

func appendCUDA(opts *ort.SessionOptions, deviceID int) error {
	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return fmt.Errorf("failed to create CUDA provider options: %w", err)
	}
	defer cudaOpts.Destroy()

	if err := cudaOpts.Update(map[string]string{"device_id": strconv.Itoa(deviceID)}); err != nil {
		return fmt.Errorf("failed to set CUDA device %d: %w", deviceID, err)
	}
	if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		return fmt.Errorf("failed to enable CUDA execution provider: %w", err)
	}
	return nil
}

func (u *OnnxUpscaler) Name() string { return string(BackendONNX) + "/" + string(u.device) }

func (u *OnnxUpscaler) Upscale(ctx context.Context, img image.Image) (image.Image, error) {
	return upscaleTiled(ctx, img, u.tileSize, u.tilePadding, u.parallelism, u.runTile)
}

func (u *OnnxUpscaler) runTile(ctx context.Context, tile *image.NRGBA) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h := tile.Bounds().Dx(), tile.Bounds().Dy()
	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(h), int64(w)), imageToTensor(tile))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	// выход аллоцирует сам рантайм
	outputs := []ort.Value{nil}
	if err := u.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("model output is %T, want float32 tensor", outputs[0])
	}

	shape := out.GetShape()
	if len(shape) != 4 || shape[0] != 1 || shape[1] != 3 {
		return nil, fmt.Errorf("unexpected model output shape %v", shape)
	}
	if shape[2] != int64(h*model.ModelScale) || shape[3] != int64(w*model.ModelScale) {
		return nil, fmt.Errorf("model output %v is not 4x of %dx%d", shape, w, h)
	}

	return tensorToImage(out.GetData(), int(shape[3]), int(shape[2]))
}

// Close releases the session and the runtime environment.
func (u *OnnxUpscaler) Close() error {
	if err := u.session.Destroy(); err != nil {
		return err
	}
	return ort.DestroyEnvironment()
}
