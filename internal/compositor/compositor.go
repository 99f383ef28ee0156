package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"watermark-studio/internal/domain"

	"github.com/disintegration/imaging"
	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/zlog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	shadowOpacity     = 0.6
	shadowBlurRatio   = 0.01
	shadowOffsetRatio = 0.003
	tiledStepFactor   = 1.5
)

// Compositor draws a logo raster onto source photos. It holds no mutable
// state, so a single instance is safe for concurrent use with a shared logo.
type Compositor struct {
	validate *validator.Validate
	logger   *zlog.Zerolog
}

func New(logger *zlog.Zerolog) *Compositor {
	return &Compositor{
		validate: validator.New(),
		logger:   logger,
	}
}

// Decode parses raw image bytes. The filename is only used to attribute
// decode failures to the offending file.
func (c *Compositor) Decode(data []byte, name string) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrDecode, name, err)
	}
	return img, nil
}

// Composite renders source with the given enhancements, draws the logo per
// the placement/opacity/shadow settings and encodes the result. The output
// canvas always has exactly the source dimensions.
func (c *Compositor) Composite(ctx context.Context, source, logo image.Image, s domain.WatermarkSettings) ([]byte, error) {
	if err := c.validate.Struct(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	srcW := source.Bounds().Dx()
	srcH := source.Bounds().Dy()
	if err := checkDimensions(srcW, srcH); err != nil {
		return nil, err
	}

	logoW := logo.Bounds().Dx()
	logoH := logo.Bounds().Dy()
	if logoW == 0 || logoH == 0 {
		return nil, fmt.Errorf("%w: logo is %dx%d", ErrInvalidDimensions, logoW, logoH)
	}

	base := imaging.Clone(source)
	base = enhance(base, s)

	// Logo width follows the source width; height keeps the logo's aspect.
	drawWidth := int(math.Round(float64(srcW) * s.Scale / 100))
	if drawWidth < 1 {
		drawWidth = 1
	}
	scaled := imaging.Resize(logo, drawWidth, 0, imaging.Lanczos)
	drawHeight := scaled.Bounds().Dy()

	if s.Opacity > 0 {
		points := placements(s.Position, srcW, srcH, drawWidth, drawHeight, s.Margin, float64(logoH)/float64(logoW))

		if s.Shadow {
			base = drawShadow(base, scaled, points, srcW, srcH)
		}
		for _, pt := range points {
			base = imaging.Overlay(base, scaled, pt, s.Opacity/100)
		}
	}

	out, err := encode(base, s.OutputFormat)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("width", srcW).
		Int("height", srcH).
		Str("position", string(s.Position)).
		Int("size", len(out)).
		Msg("Composite rendered")
	return out, nil
}

func checkDimensions(w, h int) error {
	if w == 0 || h == 0 {
		return fmt.Errorf("%w: source is %dx%d", ErrInvalidDimensions, w, h)
	}
	if w > MaxDimension || h > MaxDimension {
		return fmt.Errorf("%w: source is %dx%d, limit is %d per axis", ErrImageTooLarge, w, h, MaxDimension)
	}
	return nil
}

// enhance applies the brightness/contrast/saturation adjustments to the base
// photo only. Identity values skip the pass entirely so a run with all
// adjustments at 100 is byte-identical to a run with no filter at all.
func enhance(img *image.NRGBA, s domain.WatermarkSettings) *image.NRGBA {
	if s.Brightness != 100 {
		img = imaging.AdjustBrightness(img, s.Brightness-100)
	}
	if s.Contrast != 100 {
		img = imaging.AdjustContrast(img, s.Contrast-100)
	}
	if s.Saturation != 100 {
		img = imaging.AdjustSaturation(img, s.Saturation-100)
	}
	return img
}

// placements computes the top-left draw coordinate for every logo instance.
// Tiled placement ignores margin and walks a grid stepped by drawWidth*1.5
// horizontally and drawWidth*1.5*aspect vertically.
func placements(pos domain.Position, srcW, srcH, dw, dh int, marginPct, aspect float64) []image.Point {
	if pos == domain.PositionTiled {
		stepX := float64(dw) * tiledStepFactor
		stepY := float64(dw) * tiledStepFactor * aspect
		var pts []image.Point
		for y := 0.0; y < float64(srcH); y += stepY {
			for x := 0.0; x < float64(srcW); x += stepX {
				pts = append(pts, image.Pt(int(math.Round(x)), int(math.Round(y))))
			}
		}
		return pts
	}

	marginX := int(math.Round(float64(srcW) * marginPct / 100))
	marginY := int(math.Round(float64(srcH) * marginPct / 100))

	var pt image.Point
	switch pos {
	case domain.PositionTopLeft:
		pt = image.Pt(marginX, marginY)
	case domain.PositionTopRight:
		pt = image.Pt(srcW-dw-marginX, marginY)
	case domain.PositionBottomLeft:
		pt = image.Pt(marginX, srcH-dh-marginY)
	case domain.PositionCenter:
		pt = image.Pt((srcW-dw)/2, (srcH-dh)/2)
	default:
		pt = image.Pt(srcW-dw-marginX, srcH-dh-marginY)
	}
	return []image.Point{pt}
}

// drawShadow composites a blurred black silhouette of the scaled logo under
// every placement. Blur sigma is 1% of the larger source axis, the offset
// 0.3% of it in both directions, at 60% opacity.
func drawShadow(base *image.NRGBA, scaled *image.NRGBA, points []image.Point, srcW, srcH int) *image.NRGBA {
	maxDim := float64(srcW)
	if srcH > srcW {
		maxDim = float64(srcH)
	}
	sigma := maxDim * shadowBlurRatio
	offset := int(math.Round(maxDim * shadowOffsetRatio))

	// Pad the silhouette canvas so the blur is not clipped at the edges.
	pad := int(math.Ceil(sigma * 3))
	dw := scaled.Bounds().Dx()
	dh := scaled.Bounds().Dy()

	silhouette := image.NewNRGBA(image.Rect(0, 0, dw+2*pad, dh+2*pad))
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			a := scaled.NRGBAAt(x, y).A
			if a == 0 {
				continue
			}
			silhouette.SetNRGBA(x+pad, y+pad, color.NRGBA{A: uint8(float64(a) * shadowOpacity)})
		}
	}

	blurred := imaging.Blur(silhouette, sigma)
	for _, pt := range points {
		base = imaging.Overlay(base, blurred, image.Pt(pt.X-pad+offset, pt.Y-pad+offset), 1.0)
	}
	return base
}
