package orchestrator

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"watermark-studio/internal/domain"
	"watermark-studio/internal/export"
)

func TestPreviewCoalescesRapidRequests(t *testing.T) {
	var calls int64
	render := func(ctx context.Context) PreviewResult {
		atomic.AddInt64(&calls, 1)
		return PreviewResult{ItemID: "item-1", Data: []byte("frame")}
	}

	p := newPreview(40*time.Millisecond, render, testLogger())

	// Five updates well inside one quiet period.
	for i := 0; i < 5; i++ {
		p.Request()
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(120 * time.Millisecond)

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("render ran %d times, want exactly 1", got)
	}

	result, pending := p.Latest()
	if result == nil || pending {
		t.Fatalf("latest = %v pending = %v, want applied result", result, pending)
	}
	if string(result.Data) != "frame" {
		t.Errorf("unexpected preview payload %q", result.Data)
	}
}

func TestPreviewDiscardsStaleResult(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	started := 0

	render := func(ctx context.Context) PreviewResult {
		mu.Lock()
		started++
		first := started == 1
		mu.Unlock()
		if first {
			<-release // hold the first render in flight
			return PreviewResult{ItemID: "item-1", Data: []byte("stale")}
		}
		return PreviewResult{ItemID: "item-1", Data: []byte("fresh")}
	}

	p := newPreview(time.Millisecond, render, testLogger())

	p.Request()
	time.Sleep(20 * time.Millisecond) // first render now blocked in flight

	p.Request() // supersedes it
	time.Sleep(20 * time.Millisecond)
	close(release)
	time.Sleep(20 * time.Millisecond)

	result, _ := p.Latest()
	if result == nil {
		t.Fatal("no preview applied")
	}
	if string(result.Data) != "fresh" {
		t.Errorf("stale in-flight result was applied: %q", result.Data)
	}
}

func TestPreviewSurfacesRenderErrors(t *testing.T) {
	renderErr := errors.New("decode exploded")
	render := func(ctx context.Context) PreviewResult {
		return PreviewResult{ItemID: "item-9", Err: renderErr}
	}

	p := newPreview(time.Millisecond, render, testLogger())
	p.Request()
	time.Sleep(30 * time.Millisecond)

	result, pending := p.Latest()
	if result == nil || pending {
		t.Fatal("expected an applied error result")
	}
	if !errors.Is(result.Err, renderErr) {
		t.Errorf("result error = %v", result.Err)
	}
}

// countingCompositor counts Composite invocations and records the last
// settings it saw.
type countingCompositor struct {
	mu       sync.Mutex
	calls    int
	lastSeen domain.WatermarkSettings
}

func (c *countingCompositor) Decode(data []byte, name string) (image.Image, error) {
	return image.NewNRGBA(image.Rect(0, 0, 8, 8)), nil
}

func (c *countingCompositor) Composite(ctx context.Context, source, logo image.Image, s domain.WatermarkSettings) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.lastSeen = s
	return []byte("composited"), nil
}

type noopExporter struct{}

func (noopExporter) Deliver(ctx context.Context, items []export.Deliverable) error { return nil }

func TestSettingsBurstYieldsOneRecomposite(t *testing.T) {
	comp := &countingCompositor{}
	o := New(comp, &memSettings{}, noopExporter{}, 1, 50*time.Millisecond, testLogger())

	if err := o.SetLogo("logo.png", []byte("fake")); err != nil {
		t.Fatal(err)
	}
	o.AddItem("photo.png", []byte("fake"))
	time.Sleep(150 * time.Millisecond) // drain the add/set-logo preview

	comp.mu.Lock()
	comp.calls = 0
	comp.mu.Unlock()

	// Slider drag: five settings updates within 100ms.
	s := domain.DefaultSettings()
	for i := 0; i < 5; i++ {
		s.Opacity = float64(50 + i*10)
		if err := o.UpdateSettings(s); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)

	comp.mu.Lock()
	calls, last := comp.calls, comp.lastSeen
	comp.mu.Unlock()

	if calls != 1 {
		t.Errorf("composite ran %d times during the burst, want 1", calls)
	}
	if last.Opacity != 90 {
		t.Errorf("preview rendered opacity %v, want the final value 90", last.Opacity)
	}
}

func TestResetClearsPreview(t *testing.T) {
	comp := &countingCompositor{}
	o := New(comp, &memSettings{}, noopExporter{}, 1, time.Millisecond, testLogger())

	if err := o.SetLogo("logo.png", []byte("fake")); err != nil {
		t.Fatal(err)
	}
	o.AddItem("photo.png", []byte("fake"))
	time.Sleep(50 * time.Millisecond)

	if result, _ := o.PreviewResult(); result == nil {
		t.Fatal("no preview applied before reset")
	}

	o.Reset()

	result, pending := o.PreviewResult()
	if result != nil || pending {
		t.Errorf("preview survived reset: result=%v pending=%v", result, pending)
	}
}

func TestRemovingPreviewedItemDropsItsFrame(t *testing.T) {
	comp := &countingCompositor{}
	o := New(comp, &memSettings{}, noopExporter{}, 1, time.Millisecond, testLogger())

	if err := o.SetLogo("logo.png", []byte("fake")); err != nil {
		t.Fatal(err)
	}
	first := o.AddItem("first.png", []byte("fake"))
	second := o.AddItem("second.png", []byte("fake"))
	time.Sleep(50 * time.Millisecond)

	// Removing the active item recomputes against the next one.
	if err := o.RemoveItem(first.ID); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	result, _ := o.PreviewResult()
	if result == nil || result.ItemID != second.ID {
		t.Fatalf("preview still shows the removed item: %+v", result)
	}

	// Removing the last item leaves nothing to preview.
	if err := o.RemoveItem(second.ID); err != nil {
		t.Fatal(err)
	}
	result, pending := o.PreviewResult()
	if result != nil || pending {
		t.Errorf("preview survived removing every item: result=%v pending=%v", result, pending)
	}
}
