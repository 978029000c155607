package nge

import (
	"image"
	"image/color"
	"reflect"
	"slices"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// UiText is a label drawn over the 3D view.
type UiText struct {
	Text     string
	Position [2]float32 // Screen pixels, top-left
	Color    [4]float32
	Scale    float32 // Optional scale multiplier (default 1.0)

	// Bounds is filled in by ui_layout.
	Bounds image.Rectangle
}

// UiCanvas is the RGBA overlay the renderer composites over the frame.
// Version changes whenever the pixels do.
type UiCanvas struct {
	Image   *image.RGBA
	Version uint64

	drawn []uiDrawItem
}

type uiDrawItem struct {
	text  string
	rect  image.Rectangle
	color [4]float32
	scale int
}

type UiModule struct{}

func (UiModule) Install(app *App, cmd *Commands) {
	if !app.hasResource(reflect.TypeOf(UiCanvas{})) {
		cmd.AddResources(&UiCanvas{})
	}
	app.UseSystem(
		System(uiLayoutSystem).
			Named("ui_layout").
			InStage(PostUpdate),
	)
	app.UseSystem(
		System(uiRasterSystem).
			Named("ui_raster").
			InStage(PreRender),
	)
}

var uiFace = basicfont.Face7x13

func uiScale(s float32) int {
	if s < 1 {
		return 1
	}
	return int(s + 0.5)
}

// MeasureText returns the unscaled pixel size of a single line of text.
func MeasureText(text string) (int, int) {
	w := font.MeasureString(uiFace, text).Ceil()
	m := uiFace.Metrics()
	return w, (m.Ascent + m.Descent).Ceil()
}

func uiLayoutSystem(cmd *Commands) {
	MakeQuery1[UiText](cmd).Map(func(eid EntityId, t *UiText) bool {
		w, h := MeasureText(t.Text)
		s := uiScale(t.Scale)
		x, y := int(t.Position[0]), int(t.Position[1])
		t.Bounds = image.Rect(x, y, x+w*s, y+h*s)
		return true
	})
}

func uiRasterSystem(cmd *Commands, canvas *UiCanvas, dims *ScreenDimensions) {
	if dims.Width <= 0 || dims.Height <= 0 {
		return
	}

	var items []uiDrawItem
	MakeQuery1[UiText](cmd).Map(func(eid EntityId, t *UiText) bool {
		if t.Text == "" {
			return true
		}
		items = append(items, uiDrawItem{text: t.Text, rect: t.Bounds, color: t.Color, scale: uiScale(t.Scale)})
		return true
	})

	resized := canvas.Image == nil || canvas.Image.Bounds().Dx() != dims.Width || canvas.Image.Bounds().Dy() != dims.Height
	if !resized && slices.Equal(items, canvas.drawn) {
		return
	}

	if resized {
		canvas.Image = image.NewRGBA(image.Rect(0, 0, dims.Width, dims.Height))
	} else {
		clear(canvas.Image.Pix)
	}
	for _, item := range items {
		rasterText(canvas.Image, item)
	}
	canvas.drawn = items
	canvas.Version++
}

func rasterText(dst *image.RGBA, item uiDrawItem) {
	w, h := MeasureText(item.text)
	if w == 0 || h == 0 {
		return
	}

	c := color.NRGBA{
		R: uint8(clamp01(item.color[0]) * 255),
		G: uint8(clamp01(item.color[1]) * 255),
		B: uint8(clamp01(item.color[2]) * 255),
		A: uint8(clamp01(item.color[3]) * 255),
	}

	glyphs := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(c),
		Face: uiFace,
		Dot:  fixed.P(0, uiFace.Metrics().Ascent.Ceil()),
	}
	d.DrawString(item.text)

	target := image.Rect(item.rect.Min.X, item.rect.Min.Y, item.rect.Min.X+w*item.scale, item.rect.Min.Y+h*item.scale)
	draw.NearestNeighbor.Scale(dst, target, glyphs, glyphs.Bounds(), draw.Over, nil)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
