package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// DefaultWindowSize fits the controls next to a 1280x720 game window
var DefaultWindowSize = fyne.NewSize(720, 560)

var (
	colorPrimary    = color.NRGBA{R: 176, G: 128, B: 48, A: 255}
	colorBackground = color.NRGBA{R: 20, G: 16, B: 14, A: 255}
	colorSuccess    = color.NRGBA{R: 76, G: 175, B: 80, A: 255}
	colorWarning    = color.NRGBA{R: 255, G: 152, B: 0, A: 255}
	colorError      = color.NRGBA{R: 200, G: 40, B: 30, A: 255}
)

// BotTheme is a dark theme with gold accents
type BotTheme struct{}

var _ fyne.Theme = (*BotTheme)(nil)

func (t *BotTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return colorPrimary
	case theme.ColorNameBackground:
		return colorBackground
	case theme.ColorNameSuccess:
		return colorSuccess
	case theme.ColorNameWarning:
		return colorWarning
	case theme.ColorNameError:
		return colorError
	default:
		return theme.DefaultTheme().Color(name, theme.VariantDark)
	}
}

func (t *BotTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *BotTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *BotTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText {
		return 13
	}
	return theme.DefaultTheme().Size(name)
}
