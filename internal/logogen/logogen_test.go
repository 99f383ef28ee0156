package logogen

import (
	"image"
	"testing"
)

func TestFromText(t *testing.T) {
	g, err := New()
	if err != nil {
		t.Fatal(err)
	}

	img, err := g.FromText("studio")
	if err != nil {
		t.Fatal(err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		t.Fatalf("empty raster %dx%d", b.Dx(), b.Dy())
	}

	// The text pass must leave visible pixels on the transparent ground.
	opaque := 0
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		t.Fatalf("unexpected raster type %T", img)
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if nrgba.NRGBAAt(x, y).A > 0 {
				opaque++
			}
		}
	}
	if opaque == 0 {
		t.Error("no glyphs rendered")
	}
}

func TestFromTextRejectsEmpty(t *testing.T) {
	g, err := New()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := g.FromText(""); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestLongerTextWidensCanvas(t *testing.T) {
	g, err := New()
	if err != nil {
		t.Fatal(err)
	}

	short, err := g.FromText("ab")
	if err != nil {
		t.Fatal(err)
	}
	long, err := g.FromText("a considerably longer mark")
	if err != nil {
		t.Fatal(err)
	}

	if long.Bounds().Dx() <= short.Bounds().Dx() {
		t.Error("canvas width did not grow with text length")
	}
}
