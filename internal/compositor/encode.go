package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"watermark-studio/internal/domain"

	"github.com/chai2010/webp"
)

// Lossy formats encode at a fixed high-quality factor.
const encodeQuality = 95

func encode(img image.Image, format domain.OutputFormat) ([]byte, error) {
	buf := new(bytes.Buffer)
	var err error

	switch format {
	case domain.FormatPNG:
		err = png.Encode(buf, img)
	case domain.FormatWebP:
		err = webp.Encode(buf, img, &webp.Options{Quality: encodeQuality})
	default:
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: encodeQuality})
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncode, format, err)
	}
	return buf.Bytes(), nil
}
