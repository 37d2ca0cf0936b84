package ui

import "github.com/charmbracelet/lipgloss"

type palette struct {
	title          lipgloss.Style
	userLabel      lipgloss.Style
	assistantLabel lipgloss.Style
	status         lipgloss.Style
	errorText      lipgloss.Style
	typing         lipgloss.Style
	searchMatch    lipgloss.Style
	border         lipgloss.Color
	activeBorder   lipgloss.Color
}

var (
	lightPalette = palette{
		title:          lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("24")),
		userLabel:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("25")),
		assistantLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("29")),
		status:         lipgloss.NewStyle().Foreground(lipgloss.Color("236")).Background(lipgloss.Color("153")).Padding(0, 1),
		errorText:      lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
		typing:         lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		searchMatch:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("16")).Background(lipgloss.Color("220")),
		border:         lipgloss.Color("250"),
		activeBorder:   lipgloss.Color("33"),
	}
	darkPalette = palette{
		title:          lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("117")),
		userLabel:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111")),
		assistantLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114")),
		status:         lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("24")).Padding(0, 1),
		errorText:      lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		typing:         lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		searchMatch:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("16")).Background(lipgloss.Color("220")),
		border:         lipgloss.Color("240"),
		activeBorder:   lipgloss.Color("39"),
	}
)

func paletteFor(dark bool) palette {
	if dark {
		return darkPalette
	}
	return lightPalette
}

func (p palette) panel(active bool) lipgloss.Style {
	color := p.border
	if active {
		color = p.activeBorder
	}
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true).
		BorderForeground(color).
		Padding(0, 1)
}
