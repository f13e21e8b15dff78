package publish

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	rendererMu sync.Mutex
	// Keyed by style and wrap width. Fixed styles avoid the terminal
	// background query WithAutoStyle performs, which can block.
	renderers = map[string]*glamour.TermRenderer{}
)

// RenderTerminal renders markdown for a terminal of the given width. On any
// renderer error the markdown is returned as is.
func RenderTerminal(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}
	style := MarkdownStyle()
	key := style + ":" + strconv.Itoa(width)

	rendererMu.Lock()
	r := renderers[key]
	if r == nil {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			rendererMu.Unlock()
			return md
		}
		renderers[key] = r
	}
	rendererMu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// MarkdownStyle picks "dark", "light" or "notty" for glamour.
// DAYGRID_MD_STYLE overrides detection; NO_COLOR forces plain output.
func MarkdownStyle() string {
	switch v := strings.ToLower(strings.TrimSpace(os.Getenv("DAYGRID_MD_STYLE"))); v {
	case "dark", "light", "notty":
		return v
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return "notty"
	}
	// COLORFGBG is "fg;bg"; xterm palette entries 7-15 are light.
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
			if bg >= 7 {
				return "light"
			}
			return "dark"
		}
	}
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}
