package document

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// jsonLDBlocks decodes every JSON-LD script and calls fn with each block.
// Blocks that fail to decode are skipped. Numbers decode as json.Number.
func (d *Document) jsonLDBlocks(fn func(v any)) {
	d.doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(s.Text())))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return
		}
		fn(v)
	})
}

// JSONLDTypes returns every @type declared in the page's JSON-LD blocks,
// including nodes nested under @graph. Blocks that fail to decode are
// skipped.
func (d *Document) JSONLDTypes() []string {
	var types []string
	d.jsonLDBlocks(func(v any) {
		types = collectTypes(v, types)
	})
	return types
}

// HasJSONLDType reports whether any JSON-LD node declares typ
// (case-insensitive, "schema:" and URL prefixes ignored).
func (d *Document) HasJSONLDType(typ string) bool {
	for _, t := range d.JSONLDTypes() {
		if typeMatches(t, typ) {
			return true
		}
	}
	return false
}

// JSONLDOfferPrice returns the offers.price of the first JSON-LD Product
// node that carries one, as written (a number is returned in its literal
// form). An AggregateOffer falls back to lowPrice. The second result is
// false when no Product offers a price.
func (d *Document) JSONLDOfferPrice() (string, bool) {
	var price string
	d.jsonLDBlocks(func(v any) {
		if price == "" {
			price = findOfferPrice(v)
		}
	})
	return price, price != ""
}

func typeMatches(t, typ string) bool {
	if i := strings.LastIndexAny(t, "/:"); i >= 0 {
		t = t[i+1:]
	}
	return strings.EqualFold(t, typ)
}

func nodeTypes(node map[string]any) []string {
	switch t := node["@type"].(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func collectTypes(v any, acc []string) []string {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			acc = collectTypes(item, acc)
		}
	case map[string]any:
		acc = append(acc, nodeTypes(node)...)
		if graph, ok := node["@graph"]; ok {
			acc = collectTypes(graph, acc)
		}
	}
	return acc
}

func findOfferPrice(v any) string {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			if p := findOfferPrice(item); p != "" {
				return p
			}
		}
	case map[string]any:
		for _, t := range nodeTypes(node) {
			if typeMatches(t, "Product") {
				if p := offerPrice(node["offers"]); p != "" {
					return p
				}
				break
			}
		}
		if graph, ok := node["@graph"]; ok {
			return findOfferPrice(graph)
		}
	}
	return ""
}

func offerPrice(offers any) string {
	switch o := offers.(type) {
	case []any:
		for _, item := range o {
			if p := offerPrice(item); p != "" {
				return p
			}
		}
	case map[string]any:
		if p := scalar(o["price"]); p != "" {
			return p
		}
		return scalar(o["lowPrice"])
	}
	return ""
}

func scalar(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	}
	return ""
}
