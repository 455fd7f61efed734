package document

import (
	"errors"
	"fmt"
	"sync"

	"github.com/andybalholm/cascadia"
)

// ErrBadSelector wraps a selector that cascadia could not parse.
var ErrBadSelector = errors.New("document: bad selector")

// compiled caches parsed selectors; the extractor tables reuse a small,
// fixed set of them on every page.
var compiled sync.Map // string -> cascadia.Selector

func compile(selector string) (cascadia.Selector, error) {
	if v, ok := compiled.Load(selector); ok {
		return v.(cascadia.Selector), nil
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrBadSelector, selector, err)
	}
	compiled.Store(selector, sel)
	return sel, nil
}

// ValidSelector reports whether selector parses.
func ValidSelector(selector string) error {
	_, err := compile(selector)
	return err
}
