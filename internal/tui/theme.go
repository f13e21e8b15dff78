package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// The grid must stay readable on light and dark backgrounds, so chrome uses
// adaptive colors and event blocks pick a foreground by luminance.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorMuted      lipgloss.TerminalColor = ac("240", "243")
	colorGridLine   lipgloss.TerminalColor = ac("252", "237")
	colorSurfaceFg  lipgloss.TerminalColor = ac("235", "252")
	colorAccent     lipgloss.TerminalColor = ac("27", "62")
	colorNow        lipgloss.TerminalColor = ac("160", "203")
	colorSelectedFg lipgloss.TerminalColor = ac("232", "255")
	colorStatusErr  lipgloss.TerminalColor = ac("160", "203")

	defaultEventBg = "#5b8def"
)

// theme holds the styles derived from the active preference; "mono" drops
// calendar colors entirely.
type theme struct {
	mono bool
}

func (t theme) header() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg)
}

func (t theme) muted() lipgloss.Style {
	st := lipgloss.NewStyle().Foreground(colorMuted)
	if lipgloss.HasDarkBackground() {
		st = st.Faint(true)
	}
	return st
}

func (t theme) gridLine() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorGridLine)
}

func (t theme) nowLine() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorNow).Bold(true)
}

func (t theme) status(isErr bool) lipgloss.Style {
	if isErr {
		return lipgloss.NewStyle().Foreground(colorStatusErr)
	}
	return lipgloss.NewStyle().Foreground(colorAccent)
}

// event styles one block. Selected blocks are bold and underlined; the block
// being dragged is drawn reversed.
func (t theme) event(hex string, selected, dragging bool) lipgloss.Style {
	st := lipgloss.NewStyle()
	if t.mono {
		st = st.Reverse(true)
	} else {
		if strings.TrimSpace(hex) == "" {
			hex = defaultEventBg
		}
		st = st.Background(lipgloss.Color(hex)).Foreground(lipgloss.Color(readableOn(hex)))
	}
	if selected {
		st = st.Bold(true).Underline(true)
	}
	if dragging {
		st = st.Reverse(!t.mono).Foreground(colorSelectedFg)
	}
	return st
}

// readableOn returns black or white, whichever contrasts with a #rrggbb background.
func readableOn(hex string) string {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) != 6 {
		return "#ffffff"
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return "#ffffff"
	}
	r, g, b := float64(v>>16&0xff), float64(v>>8&0xff), float64(v&0xff)
	if 0.299*r+0.587*g+0.114*b > 150 {
		return "#000000"
	}
	return "#ffffff"
}

// applyColorProfilePreference honors NO_COLOR and otherwise trusts TERM and
// COLORTERM over termenv's probe, which under-reports on some terminals.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	term := strings.ToLower(os.Getenv("TERM"))
	colorterm := strings.ToLower(os.Getenv("COLORTERM"))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	case strings.Contains(term, "256color"):
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference resolves the background and palette. Priority:
// DAYGRID_TUI_THEME, then the configured theme, then COLORFGBG.
func applyThemePreference(configured string) theme {
	pref := strings.ToLower(strings.TrimSpace(os.Getenv("DAYGRID_TUI_THEME")))
	if pref == "" {
		pref = strings.ToLower(strings.TrimSpace(configured))
	}
	switch pref {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return theme{}
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return theme{}
	case "mono":
		return theme{mono: true}
	}
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
		}
	}
	return theme{}
}
