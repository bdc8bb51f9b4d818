package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseScaleFactor(t *testing.T) {
	tests := []struct {
		raw     string
		want    ScaleFactor
		wantErr error
	}{
		{"", Scale4, nil},
		{" 2 ", Scale2, nil},
		{"3", Scale3, nil},
		{"4", Scale4, nil},
		{"1", 0, ErrIncorrectScale},
		{"8", 0, ErrIncorrectScale},
		{"two", 0, ErrIncorrectScale},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.raw), func(t *testing.T) {
			got, err := ParseScaleFactor(tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestScaleFactor_Ratios(t *testing.T) {
	tests := []struct {
		f        ScaleFactor
		preScale float64
		net      float64
	}{
		{Scale2, 0.5, 2},
		{Scale3, 0.75, 3},
		{Scale4, 1, 4},
	}

	for _, tt := range tests {
		require.True(t, tt.f.Valid())
		require.Equal(t, tt.preScale, tt.f.PreScaleRatio())
		require.Equal(t, tt.net, tt.f.NetScale())
	}
	require.False(t, ScaleFactor(5).Valid())
}

func TestUpscaleError(t *testing.T) {
	cause := errors.New("CUDA out of memory")
	err := NewUpscaleError("onnx/cuda", cause)

	require.ErrorIs(t, err, ErrUpscaleFailed)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "an error occurred during image upscaling: CUDA out of memory", err.Error())

	var upErr *UpscaleError
	require.True(t, errors.As(fmt.Errorf("job: %w", err), &upErr))
	require.Equal(t, "onnx/cuda", upErr.Backend)

	require.NoError(t, NewUpscaleError("lanczos", nil))
}

func TestUserMessage(t *testing.T) {
	require.Equal(t, "", UserMessage(nil))
	require.Equal(t, ErrNoImage.Error(), UserMessage(ErrNoImage))
	require.Equal(t, "image exceeds the allowed size: 9000x9000", UserMessage(fmt.Errorf("%w: 9000x9000", ErrImageTooLarge)))
	require.Equal(t, "an error occurred during image upscaling: boom", UserMessage(NewUpscaleError("lanczos", errors.New("boom"))))
	require.Equal(t, ErrCommon500.Error(), UserMessage(errors.New("pq: password authentication failed")))
}
