// ABOUTME: Markdown-authored HTML pages for the OAuth authorization flow
// ABOUTME: Pages are text templates rendered through goldmark into a shared HTML layout

package gateway

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"
	texttemplate "text/template"

	"github.com/yuin/goldmark"
)

//go:embed pages
var pagesFS embed.FS

// Page names, relative to the pages directory.
const (
	authPage            = "auth.md"
	callbackErrorPage   = "callback_error.md"
	callbackFailedPage  = "callback_failed.md"
	callbackSuccessPage = "callback_success.md"
)

var (
	pageTemplates = texttemplate.Must(
		texttemplate.New("pages").Funcs(texttemplate.FuncMap{"esc": escapeMarkdown}).ParseFS(pagesFS, "pages/*.md"),
	)
	layoutTemplate = template.Must(template.ParseFS(pagesFS, "pages/layout.html"))
)

type pageData struct {
	Title       string
	URL         string
	Error       string
	Description string
}

// escapeMarkdown backslash-escapes ASCII punctuation so request-supplied text
// renders literally, including any HTML it contains.
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x80 && strings.ContainsRune("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// renderPage writes the named page with the given status.
func (g *Gateway) renderPage(w http.ResponseWriter, status int, name string, data pageData) {
	var md bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&md, name, data); err != nil {
		g.logger.Error("failed to render page template", "page", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var body bytes.Buffer
	if err := goldmark.Convert(md.Bytes(), &body); err != nil {
		g.logger.Error("failed to convert markdown", "page", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var out bytes.Buffer
	err := layoutTemplate.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{
		Title: data.Title,
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		g.logger.Error("failed to render page layout", "page", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(out.Bytes())
}
