package batch

import (
	"context"
	"image"

	"watermark-studio/internal/domain"
	"watermark-studio/internal/orchestrator"
)

type batchOrchestrator interface {
	AddItem(filename string, data []byte) domain.BatchItem
	SetLogo(name string, data []byte) error
	UpdateSettings(s domain.WatermarkSettings) error
	SelectItem(id string) error
	RemoveItem(id string) error
	Reset()
	Items() []domain.BatchItem
	Item(id string) (domain.BatchItem, error)
	Settings() domain.WatermarkSettings
	Logo() *domain.Logo
	PreviewResult() (*orchestrator.PreviewResult, bool)
	ProcessBatch(ctx context.Context, confirmed bool) (*domain.BatchReport, error)
}

type logoGenerator interface {
	FromText(text string) (image.Image, error)
}
