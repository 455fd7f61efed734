package document

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// Excerpt runs the Readability algorithm over the page and returns its
// excerpt, or "" when readability cannot find main content.
func (d *Document) Excerpt() (excerpt string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("document: readability panicked", "url", d.pageURL, "panic", r)
			excerpt = ""
		}
	}()

	parsedURL, err := nurl.Parse(d.pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(d.raw), parsedURL)
	if err != nil {
		slog.Debug("document: readability failed", "url", d.pageURL, "error", err)
		return ""
	}
	return collapseSpace(article.Excerpt)
}
