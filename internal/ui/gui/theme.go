//go:build !headless

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

var dashboardPrimaryColor = color.NRGBA{R: 250, G: 176, B: 5, A: 255}

// dashboardTheme is the default theme with the dashboard's amber accent.
type dashboardTheme struct {
	base fyne.Theme
}

func newDashboardTheme() fyne.Theme {
	return &dashboardTheme{base: theme.DefaultTheme()}
}

func (t *dashboardTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return dashboardPrimaryColor
	case theme.ColorNameForegroundOnPrimary:
		return color.Black
	}
	return t.base.Color(name, variant)
}

func (t *dashboardTheme) Font(style fyne.TextStyle) fyne.Resource {
	return t.base.Font(style)
}

func (t *dashboardTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.base.Icon(name)
}

func (t *dashboardTheme) Size(name fyne.ThemeSizeName) float32 {
	return t.base.Size(name)
}
