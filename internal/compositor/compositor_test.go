package compositor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"watermark-studio/internal/domain"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"
)

var logOnce sync.Once

func testCompositor() *Compositor {
	logOnce.Do(zlog.Init)
	return New(&zlog.Logger)
}

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func pngSettings() domain.WatermarkSettings {
	s := domain.DefaultSettings()
	s.OutputFormat = domain.FormatPNG
	return s
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	return img
}

func TestCompositeKeepsCanvasSize(t *testing.T) {
	c := testCompositor()
	source := solidImage(320, 240, color.NRGBA{255, 255, 255, 255})
	logo := solidImage(64, 32, color.NRGBA{255, 0, 0, 255})

	positions := []domain.Position{
		domain.PositionCenter,
		domain.PositionTopLeft,
		domain.PositionTopRight,
		domain.PositionBottomLeft,
		domain.PositionBottomRight,
		domain.PositionTiled,
	}

	for _, pos := range positions {
		s := pngSettings()
		s.Position = pos
		s.Shadow = true

		out, err := c.Composite(context.Background(), source, logo, s)
		if err != nil {
			t.Fatalf("position %s: %v", pos, err)
		}

		decoded := decodePNG(t, out)
		if decoded.Bounds().Dx() != 320 || decoded.Bounds().Dy() != 240 {
			t.Errorf("position %s: output is %dx%d, want 320x240",
				pos, decoded.Bounds().Dx(), decoded.Bounds().Dy())
		}
	}
}

func TestCenterPlacement(t *testing.T) {
	c := testCompositor()
	source := solidImage(200, 100, color.NRGBA{255, 255, 255, 255})
	logo := solidImage(50, 50, color.NRGBA{255, 0, 0, 255})

	s := pngSettings()
	s.Position = domain.PositionCenter
	s.Opacity = 100
	s.Scale = 20 // draw width 40px, centered at (80..120, 30..70)

	out, err := c.Composite(context.Background(), source, logo, s)
	if err != nil {
		t.Fatal(err)
	}

	decoded := decodePNG(t, out)
	r, g, b, _ := decoded.At(100, 50).RGBA()
	if r>>8 < 200 || g>>8 > 60 || b>>8 > 60 {
		t.Errorf("center pixel is not logo red: r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}

	// Corners stay untouched source.
	r, g, b, _ = decoded.At(2, 2).RGBA()
	if r>>8 < 250 || g>>8 < 250 || b>>8 < 250 {
		t.Errorf("corner pixel not white: r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
}

func TestCornerPlacementRespectsMargin(t *testing.T) {
	c := testCompositor()
	source := solidImage(100, 100, color.NRGBA{255, 255, 255, 255})
	logo := solidImage(40, 40, color.NRGBA{0, 0, 255, 255})

	s := pngSettings()
	s.Position = domain.PositionTopLeft
	s.Opacity = 100
	s.Scale = 20 // draw width 20px
	s.Margin = 10

	out, err := c.Composite(context.Background(), source, logo, s)
	if err != nil {
		t.Fatal(err)
	}

	decoded := decodePNG(t, out)
	if _, _, b, _ := decoded.At(15, 15).RGBA(); b>>8 < 200 {
		t.Errorf("expected logo at margin offset, got b=%d", b>>8)
	}
	if r, g, b, _ := decoded.At(2, 2).RGBA(); r>>8 < 250 || g>>8 < 250 || b>>8 < 250 {
		t.Errorf("pixel inside margin should be source white, got r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
}

func TestTiledPlacementIgnoresMargin(t *testing.T) {
	c := testCompositor()
	source := solidImage(300, 200, color.NRGBA{255, 255, 255, 255})
	logo := solidImage(30, 20, color.NRGBA{0, 128, 0, 255})

	base := pngSettings()
	base.Position = domain.PositionTiled

	withZero := base
	withZero.Margin = 0
	withMax := base
	withMax.Margin = 20

	outZero, err := c.Composite(context.Background(), source, logo, withZero)
	if err != nil {
		t.Fatal(err)
	}
	outMax, err := c.Composite(context.Background(), source, logo, withMax)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(outZero, outMax) {
		t.Error("tiled output changed with margin; margin must be ignored in tiled mode")
	}
}

func TestTiledDrawsMultipleInstances(t *testing.T) {
	c := testCompositor()
	source := solidImage(400, 400, color.NRGBA{255, 255, 255, 255})
	logo := solidImage(20, 20, color.NRGBA{255, 0, 0, 255})

	s := pngSettings()
	s.Position = domain.PositionTiled
	s.Opacity = 100
	s.Scale = 10 // draw width 40, step 60

	out, err := c.Composite(context.Background(), source, logo, s)
	if err != nil {
		t.Fatal(err)
	}

	decoded := decodePNG(t, out)
	// Grid steps at 60px: instances start at x=0,60,120... each 40px wide.
	for _, x := range []int{10, 70, 130} {
		if r, _, _, _ := decoded.At(x, 10).RGBA(); r>>8 < 200 {
			t.Errorf("expected tiled logo at x=%d", x)
		}
	}
}

func TestZeroOpacityLeavesEnhancedSourceOnly(t *testing.T) {
	c := testCompositor()
	source := solidImage(120, 80, color.NRGBA{100, 150, 200, 255})
	logo := solidImage(30, 30, color.NRGBA{255, 0, 0, 255})

	s := pngSettings()
	s.Opacity = 0
	s.Shadow = true

	out, err := c.Composite(context.Background(), source, logo, s)
	if err != nil {
		t.Fatal(err)
	}

	want := new(bytes.Buffer)
	if err := png.Encode(want, imaging.Clone(source)); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(out, want.Bytes()) {
		t.Error("opacity=0 output differs from bare enhanced source")
	}
}

func TestIdentityEnhancementIsDeterministicNoOp(t *testing.T) {
	c := testCompositor()
	source := solidImage(100, 100, color.NRGBA{90, 90, 90, 255})
	logo := solidImage(20, 20, color.NRGBA{0, 0, 0, 255})

	s := pngSettings()
	first, err := c.Composite(context.Background(), source, logo, s)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Composite(context.Background(), source, logo, s)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("identical inputs produced different outputs")
	}

	brighter := s
	brighter.Brightness = 150
	third, err := c.Composite(context.Background(), source, logo, brighter)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(first, third) {
		t.Error("brightness adjustment had no effect")
	}
}

func TestEnhancementsDoNotTouchLogo(t *testing.T) {
	c := testCompositor()
	source := solidImage(100, 100, color.NRGBA{0, 0, 0, 255})
	logo := solidImage(40, 40, color.NRGBA{200, 200, 200, 255})

	s := pngSettings()
	s.Position = domain.PositionCenter
	s.Opacity = 100
	s.Scale = 40
	s.Brightness = 50 // darkens the base photo only

	out, err := c.Composite(context.Background(), source, logo, s)
	if err != nil {
		t.Fatal(err)
	}

	decoded := decodePNG(t, out)
	if r, _, _, _ := decoded.At(50, 50).RGBA(); r>>8 < 150 {
		t.Errorf("logo was darkened by the enhancement filter: r=%d", r>>8)
	}
}

func TestDimensionValidation(t *testing.T) {
	c := testCompositor()
	logo := solidImage(10, 10, color.NRGBA{255, 0, 0, 255})
	s := pngSettings()

	tests := []struct {
		name    string
		source  *image.NRGBA
		wantErr error
	}{
		{"zero width", image.NewNRGBA(image.Rect(0, 0, 0, 100)), ErrInvalidDimensions},
		{"zero height", image.NewNRGBA(image.Rect(0, 0, 100, 0)), ErrInvalidDimensions},
		{"too wide", image.NewNRGBA(image.Rect(0, 0, MaxDimension+1, 1)), ErrImageTooLarge},
		{"too tall", image.NewNRGBA(image.Rect(0, 0, 1, MaxDimension+1)), ErrImageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Composite(context.Background(), tt.source, logo, s)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestZeroAreaLogoRejected(t *testing.T) {
	c := testCompositor()
	source := solidImage(100, 100, color.NRGBA{255, 255, 255, 255})

	_, err := c.Composite(context.Background(), source, image.NewNRGBA(image.Rect(0, 0, 0, 0)), pngSettings())
	if !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("got %v, want ErrInvalidDimensions", err)
	}
}

func TestDecodeErrorNamesFile(t *testing.T) {
	c := testCompositor()

	_, err := c.Decode([]byte("not an image"), "holiday.jpg")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("got %v, want ErrDecode", err)
	}
	if !bytes.Contains([]byte(err.Error()), []byte("holiday.jpg")) {
		t.Errorf("error %q does not name the file", err)
	}
}

func TestOutOfRangeSettingsRejected(t *testing.T) {
	c := testCompositor()
	source := solidImage(50, 50, color.NRGBA{255, 255, 255, 255})
	logo := solidImage(10, 10, color.NRGBA{255, 0, 0, 255})

	tests := []struct {
		name   string
		mutate func(*domain.WatermarkSettings)
	}{
		{"opacity above range", func(s *domain.WatermarkSettings) { s.Opacity = 101 }},
		{"scale below range", func(s *domain.WatermarkSettings) { s.Scale = 4 }},
		{"margin above range", func(s *domain.WatermarkSettings) { s.Margin = 21 }},
		{"brightness below range", func(s *domain.WatermarkSettings) { s.Brightness = 49 }},
		{"saturation above range", func(s *domain.WatermarkSettings) { s.Saturation = 201 }},
		{"unknown position", func(s *domain.WatermarkSettings) { s.Position = "middle" }},
		{"unknown format", func(s *domain.WatermarkSettings) { s.OutputFormat = "image/tiff" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := pngSettings()
			tt.mutate(&s)
			_, err := c.Composite(context.Background(), source, logo, s)
			if !errors.Is(err, ErrInvalidSettings) {
				t.Errorf("got %v, want ErrInvalidSettings", err)
			}
		})
	}
}
