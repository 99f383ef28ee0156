package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"watermark-studio/internal/domain"
	"watermark-studio/internal/settings"
)

// Store persists the settings record as a JSON blob at a fixed path.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load() (domain.WatermarkSettings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return domain.WatermarkSettings{}, fmt.Errorf("%w: read %s: %v", settings.ErrPersistence, s.path, err)
	}

	var loaded domain.WatermarkSettings
	if err := json.Unmarshal(data, &loaded); err != nil {
		return domain.WatermarkSettings{}, fmt.Errorf("%w: parse %s: %v", settings.ErrPersistence, s.path, err)
	}

	return loaded, nil
}

func (s *Store) Save(st domain.WatermarkSettings) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", settings.ErrPersistence, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir for %s: %v", settings.ErrPersistence, s.path, err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", settings.ErrPersistence, s.path, err)
	}

	return nil
}
