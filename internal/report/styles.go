package report

import "charm.land/lipgloss/v2"

var (
	colorPass = lipgloss.Color("#22C55E") // Green
	colorFail = lipgloss.Color("#F43F5E") // Rose
	colorWarn = lipgloss.Color("#F97316") // Orange
	colorDim  = lipgloss.Color("#94A3B8") // Slate
)

// styles holds the renderers for one report. With color disabled every
// style is a no-op so output stays byte-stable for pipes and tests.
type styles struct {
	pass    lipgloss.Style
	fail    lipgloss.Style
	loadErr lipgloss.Style
	dim     lipgloss.Style
	rule    lipgloss.Style
	summary lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}
	return styles{
		pass:    lipgloss.NewStyle().Foreground(colorPass).Bold(true),
		fail:    lipgloss.NewStyle().Foreground(colorFail).Bold(true),
		loadErr: lipgloss.NewStyle().Foreground(colorWarn).Bold(true),
		dim:     lipgloss.NewStyle().Foreground(colorDim),
		rule:    lipgloss.NewStyle().Foreground(colorWarn),
		summary: lipgloss.NewStyle().Bold(true),
	}
}
