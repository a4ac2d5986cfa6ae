package markdown

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// Markdown wraps markdown source and renders it to sanitized HTML. Only the
// source is ever stored; rendering happens on the way out.
type Markdown struct {
	// Source is the markdown source code.
	Source string
	// renderedHTML caches the HTML rendered from the markdown source.
	renderedHTML *template.HTML
}

var (
	bfRenderer = blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.Safelink | blackfriday.NofollowLinks | blackfriday.HrefTargetBlank | blackfriday.Smartypants | blackfriday.SmartypantsFractions | blackfriday.SmartypantsDashes,
	})
	bfExtensions = blackfriday.NoIntraEmphasis | blackfriday.Tables | blackfriday.FencedCode | blackfriday.Autolink | blackfriday.Strikethrough | blackfriday.SpaceHeadings
	policy       = bluemonday.UGCPolicy()
)

func NewMarkdown(source string) (*Markdown, error) {
	if source == "" {
		return &Markdown{Source: ""}, nil
	}
	md := &Markdown{Source: source}

	md.Render()
	return md, nil
}

// Render converts the Markdown Source into sanitized HTML.
func (m *Markdown) Render() template.HTML {
	if m.renderedHTML != nil {
		return *m.renderedHTML
	}

	unsafe := blackfriday.Run([]byte(m.Source),
		blackfriday.WithRenderer(bfRenderer),
		blackfriday.WithExtensions(bfExtensions),
	)
	safe := policy.SanitizeBytes(unsafe)
	html := template.HTML(bytes.TrimSpace(safe))
	m.renderedHTML = &html
	return html
}

// String returns the raw markdown source.
func (m *Markdown) String() string {
	return m.Source
}
