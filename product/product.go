// Package product extracts title, price and related signals from e-commerce
// product pages.
package product

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/use-agent/signalscrape/document"
	"github.com/use-agent/signalscrape/models"
)

// Candidate is one way of reading a field. Exactly one of Selector, JSONLD,
// OfferPrice, Readability or Const drives it.
type Candidate struct {
	// Selector is a CSS selector; Attr, if set, reads that attribute of the
	// first match instead of its text.
	Selector string
	Attr     string

	// Equals, if set, accepts the value only when it matches case-insensitively.
	Equals string

	// JSONLD yields Const when a JSON-LD node declares this @type.
	JSONLD string

	// OfferPrice yields the offers.price of a JSON-LD Product node.
	OfferPrice bool

	// Readability yields the readability excerpt of the page.
	Readability bool

	// Const is returned when Selector matches an element (even an empty one)
	// or the JSONLD type is present.
	Const string
}

// Field is a named, ordered candidate list.
type Field struct {
	Name       string
	Candidates []Candidate
}

// Structured markup (itemprop, Open Graph, schema.org) comes before generic
// class names for every field.
var (
	titleField = Field{Name: "title", Candidates: []Candidate{
		{Selector: `meta[property="og:title"]`, Attr: "content"},
		{Selector: "title"},
		{Selector: `[itemprop="name"]`},
	}}

	descriptionField = Field{Name: "description", Candidates: []Candidate{
		{Selector: `[itemprop="description"]`, Attr: "content"},
		{Selector: `[itemprop="description"]`},
		{Selector: `meta[property="og:description"]`, Attr: "content"},
		{Selector: ".product-description"},
		{Selector: ".product__description"},
		{Selector: ".product-single__description"},
		{Selector: "#description"},
		{Selector: ".description"},
		{Readability: true},
	}}

	priceField = Field{Name: "price", Candidates: []Candidate{
		{Selector: `[itemprop="price"]`},
		{Selector: `[itemprop="price"]`, Attr: "content"},
		{Selector: `meta[property="product:price:amount"]`, Attr: "content"},
		{Selector: `meta[property="og:price:amount"]`, Attr: "content"},
		{OfferPrice: true},
		{Selector: "[data-product-price]"},
		{Selector: ".product-price"},
		{Selector: ".product__price"},
		{Selector: ".price"},
		{Selector: ".money"},
	}}

	categoryField = Field{Name: "category", Candidates: []Candidate{
		{Selector: ".breadcrumb"},
		{Selector: ".breadcrumbs"},
		{Selector: `[aria-label="breadcrumb"]`},
		{Selector: `meta[property="product:category"]`, Attr: "content"},
	}}

	metaDescriptionField = Field{Name: "meta_description", Candidates: []Candidate{
		{Selector: `meta[name="description"]`, Attr: "content"},
		{Selector: `meta[property="og:description"]`, Attr: "content"},
	}}

	headingField = Field{Name: "h1", Candidates: []Candidate{
		{Selector: "h1"},
	}}

	productTypeField = Field{Name: "product_type", Candidates: []Candidate{
		{Selector: `meta[property="product:type"]`, Attr: "content"},
		{Selector: `meta[property="og:type"]`, Attr: "content", Equals: "product"},
		{Selector: `[itemtype*="schema.org/Product"]`, Const: "Product"},
		{JSONLD: "Product", Const: "Product"},
	}}
)

// Extractor reads ProductSignals from parsed pages.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger.With("component", "product")}
}

// Extract reads every field from doc. Fields that cannot be found are nil.
func (x *Extractor) Extract(doc *document.Document) models.ProductSignals {
	if doc == nil {
		return models.ProductSignals{}
	}
	return models.ProductSignals{
		Title:           x.Field(doc, titleField),
		Description:     x.Field(doc, descriptionField),
		Price:           x.Field(doc, priceField),
		Category:        x.Field(doc, categoryField),
		MetaDescription: x.Field(doc, metaDescriptionField),
		Heading:         x.Field(doc, headingField),
		ProductType:     x.Field(doc, productTypeField),
	}
}

// Field tries each candidate in order and returns the first non-empty
// value. A candidate that errors or panics is skipped.
func (x *Extractor) Field(doc *document.Document, f Field) *string {
	for i, c := range f.Candidates {
		v, err := x.try(doc, c)
		if err != nil {
			if errors.Is(err, document.ErrBadSelector) {
				x.logger.Debug("skipping candidate", "field", f.Name, "candidate", i, "error", err)
			}
			continue
		}
		return &v
	}
	return nil
}

func (x *Extractor) try(doc *document.Document, c Candidate) (v string, err error) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Debug("candidate panicked", "selector", c.Selector, "panic", r)
			v, err = "", document.ErrNoMatch
		}
	}()

	switch {
	case c.Readability:
		v = doc.Excerpt()
	case c.OfferPrice:
		v, _ = doc.JSONLDOfferPrice()
	case c.JSONLD != "":
		if doc.HasJSONLDType(c.JSONLD) {
			v = c.Const
		}
	case c.Const != "":
		if err := document.ValidSelector(c.Selector); err != nil {
			return "", err
		}
		if doc.Exists(c.Selector) {
			v = c.Const
		}
	case c.Attr != "":
		v, err = doc.Attr(c.Selector, c.Attr)
	default:
		v, err = doc.Text(c.Selector)
	}
	if err != nil {
		return "", err
	}

	v = strings.TrimSpace(v)
	if v == "" {
		return "", document.ErrNoMatch
	}
	if c.Equals != "" && !strings.EqualFold(v, c.Equals) {
		return "", document.ErrNoMatch
	}
	return v, nil
}
