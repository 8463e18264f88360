package screenshot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/openjab/jab-cli/internal/model"
)

// Annotate draws each element's bounding box and id label onto a capture of
// the window, so a vision model can point back at elements by id. origin is
// the window's top-left in screen coordinates; element bounds are
// screen-absolute.
func Annotate(img image.Image, elements []model.FlatElement, origin image.Point) *image.RGBA {
	rgba := toRGBA(img)
	boxColor := color.RGBA{R: 255, G: 0, B: 0, A: 255}
	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor := color.RGBA{R: 0, G: 0, B: 0, A: 255}

	for _, el := range elements {
		x := el.Bounds[0] - origin.X
		y := el.Bounds[1] - origin.Y
		w, h := el.Bounds[2], el.Bounds[3]
		if w <= 0 || h <= 0 {
			continue
		}
		drawBox(rgba, x, y, x+w, y+h, boxColor)
		drawLabel(rgba, fmt.Sprintf("[%d]", el.ID), x+w/2, y+h/2, textColor, outlineColor)
	}
	return rgba
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba
}

func drawBox(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	b := img.Bounds()
	if x1 < b.Min.X {
		x1 = b.Min.X
	}
	if y1 < b.Min.Y {
		y1 = b.Min.Y
	}
	if x2 > b.Max.X {
		x2 = b.Max.X
	}
	if y2 > b.Max.Y {
		y2 = b.Max.Y
	}
	if x2 <= x1 || y2 <= y1 {
		return
	}
	for x := x1; x < x2; x++ {
		img.Set(x, y1, c)
		img.Set(x, y2-1, c)
	}
	for y := y1; y < y2; y++ {
		img.Set(x1, y, c)
		img.Set(x2-1, y, c)
	}
}

// drawLabel renders text centered at (x, y) with a one-pixel outline so it
// stays readable over any background.
func drawLabel(img *image.RGBA, text string, x, y int, textColor, outlineColor color.Color) {
	textWidth := len(text) * 7 // basicfont.Face7x13 glyph width
	offsetX := x - textWidth/2
	offsetY := y + 13/2

	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			drawString(img, text, offsetX+dx, offsetY+dy, outlineColor)
		}
	}
	drawString(img, text, offsetX, offsetY, textColor)
}

func drawString(img *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
