// Package social extracts follower and subscriber counts from social
// profile pages using a per-platform chain of meta-tag, inline-JSON and text
// patterns.
package social

import (
	"log/slog"
	"strings"

	"github.com/use-agent/signalscrape/document"
	"github.com/use-agent/signalscrape/models"
)

// Extractor runs platform rule chains over parsed documents. It is safe for
// concurrent use.
type Extractor struct {
	table  Table
	logger *slog.Logger
}

// NewExtractor creates an Extractor over table. A nil table means
// DefaultTable.
func NewExtractor(table Table, logger *slog.Logger) *Extractor {
	if table == nil {
		table = DefaultTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{table: table, logger: logger.With("component", "social")}
}

// Lookup resolves a caller-supplied platform name (case-insensitive, "x"
// for Twitter) to a platform the table has rules for.
func (x *Extractor) Lookup(name string) (models.Platform, bool) {
	if p, ok := models.ParsePlatform(name); ok {
		_, has := x.table[p]
		return p, has
	}
	p := models.Platform(strings.ToLower(strings.TrimSpace(name)))
	if p == "" {
		return "", false
	}
	_, ok := x.table[p]
	return p, ok
}

// Platforms lists the platforms this extractor knows.
func (x *Extractor) Platforms() []string {
	return x.table.Platforms()
}

// Extract runs the chain for platform over doc and returns the first count
// found. A panic inside a rule ends the chain with no result.
func (x *Extractor) Extract(doc *document.Document, platform models.Platform) (count int64, ok bool) {
	if doc == nil {
		return 0, false
	}
	defer func() {
		if r := recover(); r != nil {
			x.logger.Warn("extraction panicked", "platform", platform, "url", doc.URL(), "panic", r)
			count, ok = 0, false
		}
	}()

	rules, known := x.table[platform]
	if !known {
		return 0, false
	}
	for i, rule := range rules {
		spec, matched := rule.Match(doc)
		if !matched {
			continue
		}
		count = spec.Value()
		x.logger.Debug("follower count matched",
			"platform", platform,
			"rule", i,
			"source", rule.Source,
			"digits", spec.Digits,
			"suffix", spec.Suffix,
			"count", count,
		)
		return count, true
	}
	return 0, false
}
