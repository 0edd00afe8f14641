package template

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	stdtemplate "html/template"

	humanize "github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
	blackfriday "gopkg.in/russross/blackfriday.v2"
)

//go:embed views/*.html
var views embed.FS

const snippetLength = 180

type Template struct {
	templates *stdtemplate.Template
	ugc       *bluemonday.Policy
	strict    *bluemonday.Policy
}

func NewTemplate() *Template {
	t := &Template{
		ugc:    bluemonday.UGCPolicy(),
		strict: bluemonday.StrictPolicy(),
	}
	funcMap := stdtemplate.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"humantime": humanize.Time,
		"humannumber": func(n int) string {
			return humanize.Comma(int64(n))
		},
		"humanduration": func(d time.Duration) string {
			return d.Round(time.Millisecond).String()
		},
		"markdown": t.MarkdownToHTML,
		"snippet":  t.Snippet,
		"money": func(amount int64, currency string) string {
			return fmt.Sprintf("%s %.2f", strings.ToUpper(currency), float64(amount)/100)
		},
		"pluralize": func(n int, singular, plural string) string {
			if n == 1 {
				return singular
			}
			return plural
		},
	}
	t.templates = stdtemplate.Must(stdtemplate.New("stdtmpl").Funcs(funcMap).ParseFS(views, "views/*.html"))
	return t
}

func (t *Template) Render(w io.Writer, name string, data interface{}) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

// RenderString renders a view into a string, ready to be used as an email body.
func (t *Template) RenderString(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (t *Template) MarkdownToHTML(s string) stdtemplate.HTML {
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.Safelink |
			blackfriday.NofollowLinks |
			blackfriday.NoreferrerLinks |
			blackfriday.HrefTargetBlank,
	})
	unsafe := blackfriday.Run([]byte(s), blackfriday.WithRenderer(renderer))
	return stdtemplate.HTML(t.ugc.SanitizeBytes(unsafe))
}

// Snippet renders markdown, strips every tag and truncates on a rune boundary.
func (t *Template) Snippet(s string) string {
	rendered := blackfriday.Run([]byte(s))
	text := strings.Join(strings.Fields(html.UnescapeString(t.strict.Sanitize(string(rendered)))), " ")
	if utf8.RuneCountInString(text) <= snippetLength {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:snippetLength])) + "…"
}
