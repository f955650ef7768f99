package components

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"thermo-gui/internal/models"
)

const (
	PanelWidth  = 320
	PanelHeight = 240
)

// Panel shows one engine output, or its caption while empty
type Panel struct {
	kind       models.FrameKind
	image      *canvas.Image
	caption    *widget.Label
	background *canvas.Rectangle
	container  *fyne.Container
	hasImage   bool
}

// NewPanel creates an empty panel for kind
func NewPanel(kind models.FrameKind) *Panel {
	p := &Panel{
		kind:       kind,
		caption:    widget.NewLabelWithStyle(kind.Caption(), fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		background: canvas.NewRectangle(color.RGBA{R: 240, G: 240, B: 240, A: 255}),
	}

	// Frames arrive pre-scaled, so the canvas shows them pixel for pixel.
	p.image = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	p.image.FillMode = canvas.ImageFillOriginal
	p.image.ScaleMode = canvas.ImageScaleFastest
	p.image.Hide()

	p.background.SetMinSize(fyne.NewSize(PanelWidth, PanelHeight))
	p.container = container.NewStack(p.background, container.NewCenter(p.caption), container.NewCenter(p.image))
	return p
}

// Paint replaces the panel's image
func (p *Panel) Paint(img image.Image) {
	if img == nil {
		return
	}
	p.image.Image = img
	p.image.Show()
	p.caption.Hide()
	p.hasImage = true
	p.image.Refresh()
}

// Clear drops the image and shows caption instead
func (p *Panel) Clear(caption string) {
	p.image.Image = image.NewRGBA(image.Rect(0, 0, 1, 1))
	p.image.Hide()
	p.caption.SetText(caption)
	p.caption.Show()
	p.hasImage = false
	p.container.Refresh()
}

// Resize fixes the panel's drawing area to width x height pixels
func (p *Panel) Resize(width, height int) {
	p.background.SetMinSize(fyne.NewSize(float32(width), float32(height)))
	p.container.Refresh()
}

// Size is the drawing area in pixels. Before the first layout it is the minimum size.
func (p *Panel) Size() (int, int) {
	size := p.background.Size()
	if size.Width <= 0 || size.Height <= 0 {
		size = p.background.MinSize()
	}
	return int(size.Width), int(size.Height)
}

// HasImage reports whether a frame is shown
func (p *Panel) HasImage() bool {
	return p.hasImage
}

// GetContainer returns the panel's container
func (p *Panel) GetContainer() *fyne.Container {
	return p.container
}

// PanelGrid holds one panel per output kind
type PanelGrid struct {
	panels    map[models.FrameKind]*Panel
	container *fyne.Container
}

// NewPanelGrid lays the panels out in rows of columns
func NewPanelGrid(columns int) *PanelGrid {
	g := &PanelGrid{panels: make(map[models.FrameKind]*Panel, len(models.FrameKinds))}

	objects := make([]fyne.CanvasObject, 0, len(models.FrameKinds))
	for _, kind := range models.FrameKinds {
		panel := NewPanel(kind)
		g.panels[kind] = panel
		objects = append(objects, panel.GetContainer())
	}
	g.container = container.NewGridWithColumns(columns, objects...)
	return g
}

// Panel returns the panel for kind
func (g *PanelGrid) Panel(kind models.FrameKind) *Panel {
	return g.panels[kind]
}

// GetContainer returns the grid container
func (g *PanelGrid) GetContainer() *fyne.Container {
	return g.container
}
