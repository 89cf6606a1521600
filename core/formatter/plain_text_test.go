package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NikGor/archie-backend/internal/model/entity"
)

func TestToPlainText_Passthrough(t *testing.T) {
	body := "  **not touched** <b>at all</b>  "
	assert.Equal(t, body, ToPlainText(body, entity.TextFormatPlain))
	assert.Equal(t, body, ToPlainText(body, entity.TextFormatVoice))
	assert.Equal(t, body, ToPlainText(body, entity.TextFormat("unknown")))
}

func TestToPlainText_HTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "paragraph with entity", input: "<p>Hi &amp; bye</p>", expected: "Hi & bye"},
		{name: "standard entities", input: "&lt;tag&gt; &quot;q&quot; &#39;s&#39;", expected: `<tag> "q" 's'`},
		{name: "nbsp", input: "a&nbsp;&nbsp;b", expected: "a b"},
		{name: "blocks are separated", input: "<div>one</div><div>two</div><ul><li>x</li><li>y</li></ul>", expected: "one two x y"},
		{name: "inline elements join", input: "<b>bo</b><i>ld</i>", expected: "bold"},
		{name: "whitespace collapsed", input: "  <p>\n\tlots   of\n\n space </p>  ", expected: "lots of space"},
		{name: "script and style dropped", input: "<style>p{}</style><p>text</p><script>alert(1)</script>", expected: "text"},
		{name: "malformed markup", input: "<p>unclosed <b>bold", expected: "unclosed bold"},
		{name: "stray bracket", input: "a < b and c > d", expected: "a < b and c > d"},
		{name: "empty", input: "", expected: ""},
		{name: "comment", input: "x<!-- hidden -->y", expected: "xy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToPlainText(tt.input, entity.TextFormatHTML))
		})
	}
}

func TestToPlainText_Markdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bold and link", input: "**bold** and [link](http://x)", expected: "bold and link"},
		{name: "headings", input: "# Title\n\n## Sub", expected: "Title\n\nSub"},
		{name: "italic variants", input: "*a* _b_ __c__", expected: "a b c"},
		{name: "autolink", input: "see <http://example.com>", expected: "see http://example.com"},
		{name: "image dropped", input: "before ![alt text](img.png) after", expected: "before after"},
		{name: "inline code kept", input: "run `go test` now", expected: "run go test now"},
		{name: "fenced code content kept", input: "```go\nfmt.Println(1)\n```", expected: "fmt.Println(1)"},
		{name: "horizontal rule dropped", input: "a\n\n---\n\nb", expected: "a\n\nb"},
		{name: "blockquote marker", input: "> quoted text", expected: "quoted text"},
		{name: "list markers", input: "- one\n- two\n1. three", expected: "one\ntwo\n\nthree"},
		{name: "blank lines collapsed", input: "a\n\n\n\n\nb", expected: "a\n\nb"},
		{name: "spaces collapsed", input: "a    b\t\tc", expected: "a b c"},
		{name: "escaped marker", input: `\*literal\*`, expected: "*literal*"},
		{name: "entity", input: "fish &amp; chips", expected: "fish & chips"},
		{name: "empty", input: "", expected: ""},
		{name: "unterminated fence", input: "```\ncode", expected: "code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToPlainText(tt.input, entity.TextFormatMarkdown))
		})
	}
}

func TestFallbackStrip(t *testing.T) {
	assert.Equal(t, "Hi & bye", fallbackStrip("<p>Hi &amp;   bye</p>"))
}
