//go:build !headless

package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"sunstock-dashboard/internal/ui/icon"
)

func dashboardIconResource() fyne.Resource {
	data, err := icon.PNG()
	if err != nil {
		return theme.ComputerIcon()
	}
	return fyne.NewStaticResource("sunstock-icon.png", data)
}

func AppIconResource() fyne.Resource {
	return dashboardIconResource()
}
