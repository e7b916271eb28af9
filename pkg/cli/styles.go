package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for terminal output.
type Theme struct {
	Accept lipgloss.Color
	Reject lipgloss.Color
	Dim    lipgloss.Color
}

// DefaultTheme is the default theme.
var DefaultTheme = Theme{
	Accept: lipgloss.Color("#00ff9f"),
	Reject: lipgloss.Color("#ff5f5f"),
	Dim:    lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme. The zero value renders
// unstyled text.
type Styles struct {
	Accept lipgloss.Style
	Reject lipgloss.Style
	Label  lipgloss.Style
	Dim    lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Accept: lipgloss.NewStyle().Bold(true).Foreground(t.Accept),
		Reject: lipgloss.NewStyle().Bold(true).Foreground(t.Reject),
		Label:  lipgloss.NewStyle().Bold(true),
		Dim:    lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// PlainStyles renders without colors or emphasis.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Accept: s, Reject: s, Label: s, Dim: s}
}

// Verdict renders a same/different speaker marker.
func (s Styles) Verdict(same bool) string {
	if same {
		return s.Accept.Render("✓ same speaker")
	}
	return s.Reject.Render("✗ different speaker")
}
