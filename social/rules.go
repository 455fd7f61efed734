package social

import (
	"fmt"
	"regexp"

	"github.com/use-agent/signalscrape/document"
	"github.com/use-agent/signalscrape/normalize"
)

// Source says where a rule looks for its pattern.
type Source string

const (
	// SourceMeta matches against the content attribute of a <meta> tag.
	SourceMeta Source = "meta"
	// SourceRaw matches against the raw response body, inline scripts
	// included.
	SourceRaw Source = "raw"
)

// Rule is one attempt in a platform's chain.
type Rule struct {
	Source Source
	// Meta is the property (or name) of the <meta> tag for SourceMeta.
	Meta    string
	Pattern *regexp.Regexp
	// Group is the capture group holding the digits.
	Group int
	// SuffixGroup is the capture group holding a magnitude token, or 0.
	SuffixGroup int
}

// Match applies the rule to doc.
func (r Rule) Match(doc *document.Document) (normalize.Spec, bool) {
	var (
		m  []string
		ok bool
	)
	switch r.Source {
	case SourceMeta:
		content, err := doc.Meta(r.Meta)
		if err != nil {
			return normalize.Spec{}, false
		}
		m, ok = document.MatchIn(r.Pattern, content)
	case SourceRaw:
		m, ok = doc.Match(r.Pattern)
	}
	if !ok || r.Group <= 0 || r.Group >= len(m) || m[r.Group] == "" {
		return normalize.Spec{}, false
	}

	spec := normalize.Spec{Digits: m[r.Group]}
	if r.SuffixGroup > 0 && r.SuffixGroup < len(m) {
		spec.Suffix = m[r.SuffixGroup]
	}
	return spec, true
}

// Validate checks that the rule is well-formed.
func (r Rule) Validate() error {
	switch r.Source {
	case SourceMeta:
		if r.Meta == "" {
			return fmt.Errorf("social: meta rule needs a meta property")
		}
	case SourceRaw:
	default:
		return fmt.Errorf("social: unknown source %q", r.Source)
	}
	if r.Pattern == nil {
		return fmt.Errorf("social: rule has no pattern")
	}
	groups := r.Pattern.NumSubexp()
	if r.Group < 1 || r.Group > groups {
		return fmt.Errorf("social: group %d out of range for %q (%d groups)", r.Group, r.Pattern, groups)
	}
	if r.SuffixGroup < 0 || r.SuffixGroup > groups {
		return fmt.Errorf("social: suffix group %d out of range for %q", r.SuffixGroup, r.Pattern)
	}
	return nil
}

func meta(property, pattern string, group, suffix int) Rule {
	return Rule{Source: SourceMeta, Meta: property, Pattern: regexp.MustCompile(pattern), Group: group, SuffixGroup: suffix}
}

func raw(pattern string, group, suffix int) Rule {
	return Rule{Source: SourceRaw, Pattern: regexp.MustCompile(pattern), Group: group, SuffixGroup: suffix}
}
