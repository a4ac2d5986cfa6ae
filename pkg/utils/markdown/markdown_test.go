package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMarkdown_Empty(t *testing.T) {
	md, err := NewMarkdown("")
	require.NoError(t, err)
	require.NotNil(t, md)
	require.Equal(t, "", md.Source)
	require.Equal(t, "", strings.TrimSpace(string(md.Render())))
}

func TestMarkdown_Render_Sanitizes(t *testing.T) {
	md, err := NewMarkdown("hello <script>alert(1)</script> **world**")
	require.NoError(t, err)

	html := string(md.Render())
	require.NotContains(t, strings.ToLower(html), "<script")
	require.Contains(t, html, "world")

	// caching path
	html2 := string(md.Render())
	require.Equal(t, html, html2)
}

func TestMarkdown_Render_Formats(t *testing.T) {
	md, err := NewMarkdown("refine the **checkout** story")
	require.NoError(t, err)

	html := string(md.Render())
	require.Contains(t, html, "<strong>checkout</strong>")
}

func TestMarkdown_LinksAreSafe(t *testing.T) {
	md, err := NewMarkdown("[ticket](https://tracker.example/T-42)")
	require.NoError(t, err)

	html := string(md.Render())
	require.Contains(t, html, `href="https://tracker.example/T-42"`)
	require.Contains(t, html, "nofollow")
}
