// Package ui renders normalized segments in the terminal: bordered code blocks
// with a copy action, inline links that navigate, prose optionally passed
// through glamour.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light Mode Colors (Default)
	LightForeground = lipgloss.Color("#101F38")
	LightPrimary    = lipgloss.Color("#101F38")
	LightAccent     = lipgloss.Color("#558B2F")
	LightMuted      = lipgloss.Color("#6b7280")
	LightBorder     = lipgloss.Color("#c5cad3")
	LightLink       = lipgloss.Color("#1565C0")

	// Dark Mode Colors
	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkPrimary    = lipgloss.Color("#8BC34A")
	DarkAccent     = lipgloss.Color("#8BC34A")
	DarkMuted      = lipgloss.Color("#8a94a6")
	DarkBorder     = lipgloss.Color("#2a3850")
	DarkLink       = lipgloss.Color("#64B5F6")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#8BC34A")
)

// Theme holds the current color scheme
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Link       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
		Link:       LightLink,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Link:       DarkLink,
		IsDark:     true,
	}
}

// ThemeByName resolves the render.theme setting: "dark", "light" or "auto".
func ThemeByName(name string) Theme {
	switch strings.ToLower(name) {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	default:
		return DetectTheme()
	}
}

// DetectTheme auto-detects based on terminal or returns light mode
func DetectTheme() Theme {
	// COLORFGBG is "foreground;background"; background 0-6 or 8 is dark.
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
			if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
				return DarkTheme()
			}
		}
	}

	if os.Getenv("REPLYKIT_DARK_MODE") == "1" {
		return DarkTheme()
	}

	return LightTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Code
	CodeBlock        lipgloss.Style
	CodeBlockFocused lipgloss.Style
	CodeHeader       lipgloss.Style
	CopyHint         lipgloss.Style

	// Text
	Prose       lipgloss.Style
	Link        lipgloss.Style
	LinkFocused lipgloss.Style
	LinkTarget  lipgloss.Style
	Muted       lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		CodeBlock: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		CodeBlockFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Accent).
			Padding(0, 1),

		CodeHeader: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		CopyHint: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Prose: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Link: lipgloss.NewStyle().
			Foreground(theme.Link).
			Underline(true),

		LinkFocused: lipgloss.NewStyle().
			Foreground(theme.Link).
			Underline(true).
			Reverse(true),

		LinkTarget: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),
	}
}
