package domain

type Position string

const (
	PositionCenter      Position = "center"
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionBottomRight Position = "bottom-right"
	PositionTiled       Position = "tiled"
)

type OutputFormat string

const (
	FormatJPEG OutputFormat = "image/jpeg"
	FormatPNG  OutputFormat = "image/png"
	FormatWebP OutputFormat = "image/webp"
)

// WatermarkSettings is immutable per compositing call. Brightness, contrast
// and saturation use 100 as identity; margin is ignored for tiled placement.
type WatermarkSettings struct {
	Opacity      float64      `json:"opacity" validate:"gte=0,lte=100"`
	Scale        float64      `json:"scale" validate:"gte=5,lte=100"`
	Position     Position     `json:"position" validate:"oneof=center top-left top-right bottom-left bottom-right tiled"`
	Margin       float64      `json:"margin" validate:"gte=0,lte=20"`
	OutputFormat OutputFormat `json:"output_format" validate:"oneof=image/jpeg image/png image/webp"`
	Shadow       bool         `json:"shadow"`
	Brightness   float64      `json:"brightness" validate:"gte=50,lte=150"`
	Contrast     float64      `json:"contrast" validate:"gte=50,lte=150"`
	Saturation   float64      `json:"saturation" validate:"gte=0,lte=200"`
}

func DefaultSettings() WatermarkSettings {
	return WatermarkSettings{
		Opacity:      80,
		Scale:        20,
		Position:     PositionBottomRight,
		Margin:       3,
		OutputFormat: FormatJPEG,
		Shadow:       false,
		Brightness:   100,
		Contrast:     100,
		Saturation:   100,
	}
}

// Extension returns the file extension for a deliverable in this format.
func (f OutputFormat) Extension() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatWebP:
		return "webp"
	default:
		return "jpg"
	}
}

func (f OutputFormat) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
