// Package document wraps a fetched HTML body for CSS-selector lookups and
// regular-expression scans over the raw markup.
//
// Every query is best-effort: malformed markup is parsed the way a browser
// would, and a query that cannot be evaluated reports no match.
package document

import (
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrNoMatch is returned when a query matched nothing or matched only
// empty content.
var ErrNoMatch = errors.New("document: no match")

// Document is a parsed page plus its raw body. It is read-only and safe for
// concurrent queries.
type Document struct {
	raw     string
	pageURL string
	doc     *goquery.Document
}

// Parse wraps raw. It never fails: if the HTML parser gives up, the
// document falls back to an empty tree and raw scans still work.
func Parse(raw, pageURL string) *Document {
	d := &Document{raw: raw, pageURL: pageURL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		slog.Debug("document: parse failed, using empty tree", "url", pageURL, "error", err)
		doc = goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	}
	d.doc = doc
	return d
}

// Raw returns the unparsed body.
func (d *Document) Raw() string { return d.raw }

// URL returns the page URL the document was fetched from.
func (d *Document) URL() string { return d.pageURL }

// Text returns the trimmed, whitespace-collapsed text of the first element
// matching selector.
func (d *Document) Text(selector string) (text string, err error) {
	defer recoverQuery(&err)

	sel, err := d.first(selector)
	if err != nil {
		return "", err
	}
	text = collapseSpace(sel.Text())
	if text == "" {
		return "", ErrNoMatch
	}
	return text, nil
}

// Attr returns the trimmed value of attribute name on the first element
// matching selector.
func (d *Document) Attr(selector, name string) (value string, err error) {
	defer recoverQuery(&err)

	sel, err := d.first(selector)
	if err != nil {
		return "", err
	}
	value = strings.TrimSpace(sel.AttrOr(name, ""))
	if value == "" {
		return "", ErrNoMatch
	}
	return value, nil
}

// Exists reports whether any element matches selector. An invalid selector
// matches nothing.
func (d *Document) Exists(selector string) bool {
	_, err := d.first(selector)
	return err == nil
}

// Meta returns the content of a <meta> tag addressed by property
// (Open Graph style) or, failing that, by name.
func (d *Document) Meta(key string) (string, error) {
	if v, err := d.Attr(`meta[property="`+key+`"]`, "content"); err == nil {
		return v, nil
	}
	return d.Attr(`meta[name="`+key+`"]`, "content")
}

// Match runs re over the raw body and returns the first match with its
// capture groups.
func (d *Document) Match(re *regexp.Regexp) ([]string, bool) {
	if re == nil {
		return nil, false
	}
	m := re.FindStringSubmatch(d.raw)
	return m, m != nil
}

// MatchIn runs re over s, which is typically an attribute value already read
// from the document.
func MatchIn(re *regexp.Regexp, s string) ([]string, bool) {
	if re == nil || s == "" {
		return nil, false
	}
	m := re.FindStringSubmatch(s)
	return m, m != nil
}

func (d *Document) first(selector string) (*goquery.Selection, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	sel := d.doc.FindMatcher(m).First()
	if sel.Length() == 0 {
		return nil, ErrNoMatch
	}
	return sel, nil
}

// recoverQuery turns a panic inside a query into ErrNoMatch.
func recoverQuery(err *error) {
	if r := recover(); r != nil {
		slog.Debug("document: query panicked", "panic", r)
		*err = ErrNoMatch
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
