// Package storage connects the app to the image object storage
package storage

import (
	"context"
	"log"
	"time"

	"github.com/UnendingLoop/ImageUpscaler/internal/storage/miniostorage"
)

// NewImgStorage ретраит подключение, пока хранилище не поднимется или не отменят контекст
func NewImgStorage(ctx context.Context, opts miniostorage.Options, delay time.Duration) (*miniostorage.MinioImageStorage, error) {
	for {
		log.Println("Connecting to IMG-storage...")
		client, err := miniostorage.NewMinioClient(ctx, opts)
		if err == nil {
			log.Println("Successfully connected IMG-storage!")
			return client, nil
		}
		log.Printf("Failed to init connection to IMG-storage: %v\nNext retry in %v...", err, delay)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}
