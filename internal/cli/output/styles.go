package output

import "github.com/charmbracelet/lipgloss"

// Styles is the bundle of lipgloss styles commands render with.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	// StatusSuccess and StatusFailed render fixed icons; use String() to
	// get the icon itself or Render(s) to style other text the same way.
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
}

// newStyles builds the bundle. Without color every style is a plain
// passthrough, keeping markdown and piped output free of escape codes.
func newStyles(color bool) *Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return &Styles{
			Header1:       plain,
			Header2:       plain,
			Bold:          plain,
			Muted:         plain,
			Success:       plain,
			Warning:       plain,
			Error:         plain,
			Info:          plain,
			StatusSuccess: plain.SetString("✓"),
			StatusFailed:  plain.SetString("✗"),
		}
	}

	success := lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failure := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	return &Styles{
		Header1:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		Header2:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
		Bold:          lipgloss.NewStyle().Bold(true),
		Muted:         lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Success:       success,
		Warning:       lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Error:         failure,
		Info:          lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		StatusSuccess: success.SetString("✓"),
		StatusFailed:  failure.SetString("✗"),
	}
}
