package web

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"daygrid/internal/publish"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		emoji.Emoji,
	),
	goldmark.WithRendererOptions(
		// Raw HTML stays escaped.
		html.WithHardWraps(),
	),
)

func renderMarkdownHTML(src string) template.HTML {
	src = strings.TrimSpace(src)
	if src == "" {
		return template.HTML("")
	}
	var b bytes.Buffer
	if err := markdownRenderer.Convert([]byte(src), &b); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(b.String())
}

type agendaVM struct {
	Date string
	Prev string
	Next string
	Body template.HTML
}

// handleAgenda serves the same Markdown agenda `daygrid agenda` prints.
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	day, err := s.dayParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	db, err := s.store().Load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	md, err := publish.RenderDayMarkdown(db, day, publish.RenderOptions{Location: s.location(), Clock24: true})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeHTMLTemplate(w, "agenda.html", agendaVM{
		Date: day.Format("2006-01-02"),
		Prev: day.AddDate(0, 0, -1).Format("2006-01-02"),
		Next: day.AddDate(0, 0, 1).Format("2006-01-02"),
		Body: renderMarkdownHTML(md),
	})
}
