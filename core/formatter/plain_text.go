package formatter

import (
	"context"
	"html"
	"regexp"

	"github.com/gogf/gf/v2/frame/g"

	"github.com/NikGor/archie-backend/core/common"
	"github.com/NikGor/archie-backend/internal/model/entity"
)

// tagRe crude tag matcher used only when a parser gives up
var tagRe = regexp.MustCompile(`(?s)<[^>]*>`)

// ToPlainText converts a message body of the given format to plain text.
// plain and voice bodies (and unknown formats) are returned unchanged.
// It never panics: a failing parser falls back to regex stripping.
func ToPlainText(text string, format entity.TextFormat) (plain string) {
	switch format {
	case entity.TextFormatHTML, entity.TextFormatMarkdown:
	default:
		return text
	}

	defer func() {
		if r := recover(); r != nil {
			g.Log().Warningf(context.Background(), "plain text conversion of %s body panicked, falling back: %v", format, r)
			plain = fallbackStrip(text)
		}
	}()

	if format == entity.TextFormatHTML {
		return htmlToPlain(text)
	}
	return markdownToPlain(text)
}

func fallbackStrip(text string) string {
	return common.CollapseSpaces(common.CleanText(html.UnescapeString(tagRe.ReplaceAllString(text, " "))))
}
