//go:build !headless

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"sunstock-dashboard/internal/ui/headless/health"
)

const (
	badgeDotSize     = float32(12)
	badgeHoverTarget = float32(24)
)

var (
	statusIdleColor       = color.NRGBA{R: 145, G: 145, B: 145, A: 255}
	statusConnectingColor = color.NRGBA{R: 219, G: 167, B: 74, A: 255}
	statusRunningColor    = color.NRGBA{R: 72, G: 189, B: 109, A: 255}
	statusStoppingColor   = color.NRGBA{R: 232, G: 145, B: 77, A: 255}
	statusErrorColor      = color.NRGBA{R: 220, G: 84, B: 84, A: 255}
	priceUpColor          = color.NRGBA{R: 72, G: 189, B: 109, A: 255}
	priceDownColor        = color.NRGBA{R: 220, G: 84, B: 84, A: 255}
)

// statusBadge is a colored dot that shows its reason in a popup on hover.
type statusBadge struct {
	widget.BaseWidget

	tooltip string
	dot     *canvas.Circle
	popup   *widget.PopUp
	canvas  func() fyne.Canvas
}

var _ desktop.Hoverable = (*statusBadge)(nil)

func newStatusBadge(canvasFn func() fyne.Canvas) *statusBadge {
	b := &statusBadge{
		dot:    canvas.NewCircle(statusIdleColor),
		canvas: canvasFn,
	}
	b.ExtendBaseWidget(b)
	return b
}

func (b *statusBadge) SetStatus(fill color.NRGBA, tooltip string) {
	b.tooltip = tooltip
	b.dot.FillColor = fill
	b.dot.Refresh()
	if tooltip == "" {
		b.hideTooltip()
	}
}

func (b *statusBadge) MinSize() fyne.Size {
	return fyne.NewSize(badgeHoverTarget, badgeHoverTarget)
}

func (b *statusBadge) CreateRenderer() fyne.WidgetRenderer {
	anchor := canvas.NewRectangle(color.Transparent)
	anchor.SetMinSize(b.MinSize())
	dot := container.NewGridWrap(fyne.NewSize(badgeDotSize, badgeDotSize), b.dot)
	return widget.NewSimpleRenderer(container.NewStack(anchor, container.NewCenter(dot)))
}

func (b *statusBadge) MouseIn(ev *desktop.MouseEvent) {
	if b.tooltip == "" || b.canvas == nil {
		return
	}
	c := b.canvas()
	if c == nil {
		return
	}
	if b.popup == nil {
		b.popup = widget.NewPopUp(widget.NewLabel(b.tooltip), c)
	} else {
		b.popup.Content.(*widget.Label).SetText(b.tooltip)
	}
	b.popup.ShowAtPosition(ev.AbsolutePosition.AddXY(badgeHoverTarget/2, badgeHoverTarget/2))
}

func (b *statusBadge) MouseMoved(*desktop.MouseEvent) {}

func (b *statusBadge) MouseOut() {
	b.hideTooltip()
}

func (b *statusBadge) hideTooltip() {
	if b.popup != nil {
		b.popup.Hide()
	}
}

func feedColor(kind health.Kind) color.NRGBA {
	switch kind {
	case health.Active:
		return statusRunningColor
	case health.Warn:
		return statusConnectingColor
	case health.Stale:
		return statusStoppingColor
	default:
		return statusIdleColor
	}
}

func changeColor(value float64) color.Color {
	switch {
	case value > 0:
		return priceUpColor
	case value < 0:
		return priceDownColor
	default:
		return statusIdleColor
	}
}
