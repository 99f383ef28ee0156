package orchestrator

import (
	"context"
	"image"

	"watermark-studio/internal/domain"
	"watermark-studio/internal/export"
)

type compositor interface {
	Decode(data []byte, name string) (image.Image, error)
	Composite(ctx context.Context, source, logo image.Image, s domain.WatermarkSettings) ([]byte, error)
}

type exporter interface {
	Deliver(ctx context.Context, items []export.Deliverable) error
}
