package orchestrator

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"watermark-studio/internal/domain"
	"watermark-studio/internal/export"
	"watermark-studio/internal/settings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

// Orchestrator owns the session: the batch items, the single shared logo and
// the current settings. It drives the compositor over every item during a
// batch pass and keeps the live preview current between passes.
type Orchestrator struct {
	comp     compositor
	store    settings.Store
	exporter exporter
	validate *validator.Validate
	logger   *zlog.Zerolog

	concurrency int
	threshold   int

	mu        sync.Mutex
	items     []*domain.BatchItem
	logo      *domain.Logo
	logoImage image.Image
	settings  domain.WatermarkSettings
	activeID  string
	running   bool

	preview *Preview
}

func New(comp compositor, store settings.Store, exp exporter, concurrency int, previewQuiet time.Duration, logger *zlog.Zerolog) *Orchestrator {
	o := &Orchestrator{
		comp:        comp,
		store:       store,
		exporter:    exp,
		validate:    validator.New(),
		logger:      logger,
		concurrency: concurrency,
		threshold:   domain.ConfirmThreshold,
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}

	loaded, err := store.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load persisted settings, using defaults")
		loaded = domain.DefaultSettings()
	}
	o.settings = loaded

	o.preview = newPreview(previewQuiet, o.renderPreview, logger)
	return o
}

// AddItem registers one source photo and returns its assigned item.
func (o *Orchestrator) AddItem(filename string, data []byte) domain.BatchItem {
	item := &domain.BatchItem{
		ID:         uuid.New().String(),
		Filename:   filename,
		SourceData: data,
		Status:     domain.StatusPending,
		CreatedAt:  time.Now(),
	}

	o.mu.Lock()
	o.items = append(o.items, item)
	if o.activeID == "" {
		o.activeID = item.ID
	}
	o.mu.Unlock()

	o.logger.Info().Str("item_id", item.ID).Str("filename", filename).Msg("Item added")
	o.preview.Request()
	return *item
}

// SetLogo replaces the session logo wholesale. The raster is decoded once
// here and shared read-only by every compositing call.
func (o *Orchestrator) SetLogo(name string, data []byte) error {
	img, err := o.comp.Decode(data, name)
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.logo = &domain.Logo{Name: name, Data: data}
	o.logoImage = img
	o.mu.Unlock()

	o.logger.Info().Str("logo", name).Msg("Logo set")
	o.preview.Request()
	return nil
}

// UpdateSettings validates the new record, then stores and persists it.
// Persistence failures are logged and swallowed; they never block the update.
func (o *Orchestrator) UpdateSettings(s domain.WatermarkSettings) error {
	if err := o.validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	o.mu.Lock()
	o.settings = s
	o.mu.Unlock()

	if err := o.store.Save(s); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to persist settings")
	}

	o.preview.Request()
	return nil
}

func (o *Orchestrator) SelectItem(id string) error {
	o.mu.Lock()
	found := false
	for _, it := range o.items {
		if it.ID == id {
			found = true
			break
		}
	}
	if !found {
		o.mu.Unlock()
		return ErrItemNotFound
	}
	o.activeID = id
	o.mu.Unlock()

	o.preview.Request()
	return nil
}

func (o *Orchestrator) RemoveItem(id string) error {
	o.mu.Lock()
	removed := false
	wasActive := false
	for i, it := range o.items {
		if it.ID == id {
			removed = true
			o.items = append(o.items[:i], o.items[i+1:]...)
			if o.activeID == id {
				wasActive = true
				o.activeID = ""
				if len(o.items) > 0 {
					o.activeID = o.items[0].ID
				}
			}
			break
		}
	}
	remaining := len(o.items)
	o.mu.Unlock()

	if !removed {
		return ErrItemNotFound
	}

	// The removed item's frame must not stay visible.
	if wasActive {
		if remaining == 0 {
			o.preview.Invalidate()
		} else {
			o.preview.Request()
		}
	}
	return nil
}

// Reset drops all items, the logo and the active selection. Settings are kept.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.items = nil
	o.logo = nil
	o.logoImage = nil
	o.activeID = ""
	o.mu.Unlock()

	o.preview.Invalidate()
	o.logger.Info().Msg("Session reset")
}

func (o *Orchestrator) Items() []domain.BatchItem {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]domain.BatchItem, 0, len(o.items))
	for _, it := range o.items {
		out = append(out, *it)
	}
	return out
}

func (o *Orchestrator) Item(id string) (domain.BatchItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, it := range o.items {
		if it.ID == id {
			return *it, nil
		}
	}
	return domain.BatchItem{}, ErrItemNotFound
}

func (o *Orchestrator) Settings() domain.WatermarkSettings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settings
}

func (o *Orchestrator) Logo() *domain.Logo {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.logo == nil {
		return nil
	}
	l := *o.logo
	return &l
}

func (o *Orchestrator) PreviewResult() (*PreviewResult, bool) {
	return o.preview.Latest()
}

type outcome struct {
	data []byte
	err  error
}

// ProcessBatch runs one full pass over every current item. Items are
// composited independently; one failure never aborts a sibling. A report is
// returned only when at least one item failed.
func (o *Orchestrator) ProcessBatch(ctx context.Context, confirmed bool) (*domain.BatchReport, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrBatchRunning
	}
	if o.logoImage == nil {
		o.mu.Unlock()
		return nil, ErrNoLogo
	}
	if len(o.items) == 0 {
		o.mu.Unlock()
		return nil, ErrNoItems
	}
	if len(o.items) > o.threshold && !confirmed {
		o.mu.Unlock()
		return nil, ErrConfirmationRequired
	}

	o.running = true
	logoImg := o.logoImage
	current := o.settings
	items := make([]*domain.BatchItem, len(o.items))
	copy(items, o.items)
	for _, it := range items {
		it.Status = domain.StatusProcessing
		it.Error = ""
		it.OutputPath = ""
		it.OutputFormat = ""
	}
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	start := time.Now()
	o.logger.Info().Int("items", len(items)).Msg("Batch pass started")

	results := o.runPass(ctx, items, logoImg, current)

	report := &domain.BatchReport{Total: len(items)}
	var deliverables []export.Deliverable

	o.mu.Lock()
	for i, it := range items {
		if results[i].err != nil {
			it.Status = domain.StatusError
			it.Error = results[i].err.Error()
			report.Failures = append(report.Failures, domain.ItemFailure{
				ID:    it.ID,
				Name:  it.Filename,
				Error: it.Error,
			})
			continue
		}

		name := domain.DeliverableName(it.Filename, current.OutputFormat)
		it.Status = domain.StatusDone
		it.OutputPath = fmt.Sprintf("watermarked/%s/%s", it.ID, name)
		it.OutputFormat = current.OutputFormat
		it.Error = ""
		report.Success++

		deliverables = append(deliverables, export.Deliverable{
			Path:        it.OutputPath,
			Filename:    name,
			Data:        results[i].data,
			ContentType: current.OutputFormat.ContentType(),
		})
	}
	o.mu.Unlock()

	if err := o.exporter.Deliver(ctx, deliverables); err != nil {
		o.logger.Error().Err(err).Msg("Export interrupted")
	}

	o.logger.Info().
		Int("total", report.Total).
		Int("success", report.Success).
		Int("failures", len(report.Failures)).
		Dur("duration", time.Since(start)).
		Msg("Batch pass completed")

	if len(report.Failures) == 0 {
		return nil, nil
	}
	return report, nil
}

// runPass fans the items out over a fixed worker pool and waits for every
// outcome. No fail-fast: each index settles with its own result.
func (o *Orchestrator) runPass(ctx context.Context, items []*domain.BatchItem, logo image.Image, s domain.WatermarkSettings) []outcome {
	results := make([]outcome, len(items))
	jobs := make(chan int)

	workers := o.concurrency
	if workers > len(items) {
		workers = len(items)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = o.processItem(ctx, items[idx], logo, s)
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (o *Orchestrator) processItem(ctx context.Context, item *domain.BatchItem, logo image.Image, s domain.WatermarkSettings) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Interface("panic", r).
				Str("item_id", item.ID).
				Msg("Panic recovered while compositing item")
			out = outcome{err: fmt.Errorf("panic: %v", r)}
		}
	}()

	src, err := o.comp.Decode(item.SourceData, item.Filename)
	if err != nil {
		return outcome{err: err}
	}

	data, err := o.comp.Composite(ctx, src, logo, s)
	if err != nil {
		return outcome{err: fmt.Errorf("%s: %w", item.Filename, err)}
	}

	return outcome{data: data}
}

// renderPreview composites the active item with the current logo and
// settings. It runs after the preview quiet period, so it snapshots state at
// execution time and therefore always reflects the final edit of a burst.
// The snapshot includes the output format, so the served frame keeps its
// render-time content type even if the settings change afterwards.
func (o *Orchestrator) renderPreview(ctx context.Context) PreviewResult {
	o.mu.Lock()
	var item *domain.BatchItem
	for _, it := range o.items {
		if it.ID == o.activeID {
			item = it
			break
		}
	}
	logo := o.logoImage
	s := o.settings
	o.mu.Unlock()

	if item == nil {
		return PreviewResult{Err: ErrNoActiveItem}
	}
	if logo == nil {
		return PreviewResult{ItemID: item.ID, Err: ErrNoLogo}
	}

	src, err := o.comp.Decode(item.SourceData, item.Filename)
	if err != nil {
		return PreviewResult{ItemID: item.ID, Format: s.OutputFormat, Err: err}
	}

	data, err := o.comp.Composite(ctx, src, logo, s)
	if err != nil {
		return PreviewResult{ItemID: item.ID, Format: s.OutputFormat, Err: err}
	}

	return PreviewResult{ItemID: item.ID, Format: s.OutputFormat, Data: data}
}
