// Package settings defines the config-store abstraction for the persisted
// watermark settings blob. Load failures are non-fatal for callers: they log
// and fall back to domain.DefaultSettings().
package settings

import (
	"errors"

	"watermark-studio/internal/domain"
)

var ErrPersistence = errors.New("settings persistence failed")

type Store interface {
	Load() (domain.WatermarkSettings, error)
	Save(s domain.WatermarkSettings) error
}
