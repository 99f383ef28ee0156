// Package logogen renders a text mark onto a transparent raster so a batch
// can be watermarked without uploading a logo file.
package logogen

import (
	"fmt"
	"image"
	"image/color"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	defaultFontSize = 96
	padding         = 24
)

type Generator struct {
	font *truetype.Font
}

func New() (*Generator, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &Generator{font: f}, nil
}

// FromText renders white text with a dark offset pass behind it, on a fully
// transparent ground sized to the text.
func (g *Generator) FromText(text string) (image.Image, error) {
	if text == "" {
		return nil, fmt.Errorf("logo text is empty")
	}

	// Rough glyph metrics; goregular averages ~0.55em advance per rune.
	width := int(float64(len([]rune(text)))*defaultFontSize*0.55) + 2*padding
	fontSize := float64(defaultFontSize)
	height := int(fontSize*1.3) + 2*padding

	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(g.font)
	c.SetFontSize(defaultFontSize)
	c.SetClip(canvas.Bounds())
	c.SetDst(canvas)
	c.SetHinting(font.HintingFull)

	baseline := padding + defaultFontSize

	c.SetSrc(image.NewUniform(color.NRGBA{R: 20, G: 20, B: 20, A: 180}))
	if _, err := c.DrawString(text, freetype.Pt(padding+2, baseline+2)); err != nil {
		return nil, fmt.Errorf("failed to draw text outline: %w", err)
	}

	c.SetSrc(image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 255}))
	if _, err := c.DrawString(text, freetype.Pt(padding, baseline)); err != nil {
		return nil, fmt.Errorf("failed to draw text: %w", err)
	}

	return canvas, nil
}
