// Package scraper is the extraction façade: it fetches a page, parses it and
// runs the product or social extractors over it. None of its operations
// return errors; a failed fetch and a page with nothing to extract both come
// back as absent values.
package scraper

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/signalscrape/document"
	"github.com/use-agent/signalscrape/engine"
	"github.com/use-agent/signalscrape/models"
	"github.com/use-agent/signalscrape/product"
	"github.com/use-agent/signalscrape/social"
	"golang.org/x/sync/errgroup"
)

// Options configures a Scraper.
type Options struct {
	ProductTimeout time.Duration // default: 10s
	SocialTimeout  time.Duration // default: 15s

	// Workers bounds concurrent fetches in ExtractManySocialMedia.
	Workers int // default: 5

	// Rules replaces the built-in platform rule table when non-nil.
	Rules social.Table

	Logger *slog.Logger
}

// Scraper composes a fetch engine with the extractors. It is safe for
// concurrent use.
type Scraper struct {
	engine  engine.Engine
	product *product.Extractor
	social  *social.Extractor
	opts    Options
	logger  *slog.Logger
}

// New creates a Scraper that fetches through eng.
func New(eng engine.Engine, opts Options) *Scraper {
	if opts.ProductTimeout <= 0 {
		opts.ProductTimeout = 10 * time.Second
	}
	if opts.SocialTimeout <= 0 {
		opts.SocialTimeout = 15 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		engine:  eng,
		product: product.NewExtractor(logger),
		social:  social.NewExtractor(opts.Rules, logger),
		opts:    opts,
		logger:  logger.With("component", "scraper"),
	}
}

// Platforms lists the platform names ExtractFollowerCount understands.
func (s *Scraper) Platforms() []string {
	return s.social.Platforms()
}

// ExtractProductSignals fetches url and reads product signals from it. On
// any failure every field is nil.
func (s *Scraper) ExtractProductSignals(ctx context.Context, url string) (signals models.ProductSignals) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("product extraction panicked", "url", url, "panic", r)
			signals = models.ProductSignals{}
		}
	}()

	doc, ok := s.fetch(ctx, url, s.opts.ProductTimeout)
	if !ok {
		return models.ProductSignals{}
	}
	signals = s.product.Extract(doc)
	s.logger.Debug("product signals extracted", "url", url, "empty", signals.IsEmpty())
	return signals
}

// ExtractFollowerCount fetches a profile page and returns its follower (or
// subscriber) count. It returns nil for an unknown platform without
// fetching, and nil when the fetch fails or nothing matches.
func (s *Scraper) ExtractFollowerCount(ctx context.Context, url, platform string) (followers *int64) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("follower extraction panicked", "platform", platform, "url", url, "panic", r)
			followers = nil
		}
	}()

	p, known := s.social.Lookup(platform)
	if !known {
		s.logger.Debug("unsupported platform", "platform", platform, "url", url)
		return nil
	}

	doc, ok := s.fetch(ctx, url, s.opts.SocialTimeout)
	if !ok {
		return nil
	}

	count, found := s.social.Extract(doc, p)
	if !found {
		s.logger.Debug("no follower count found", "platform", p, "url", url)
		return nil
	}
	return &count
}

// ExtractManySocialMedia runs ExtractFollowerCount for every ref
// concurrently and returns results in input order. Refs with an empty
// platform or URL are returned with nil followers and are not fetched.
func (s *Scraper) ExtractManySocialMedia(ctx context.Context, refs []models.SocialMediaRef) []models.FollowerExtractionResult {
	return s.ExtractManySocialMediaProgress(ctx, refs, nil)
}

// ProgressFunc is called once per batch entry as it finishes. It may be
// called from several goroutines at once.
type ProgressFunc func(index int, result models.FollowerExtractionResult)

// ExtractManySocialMediaProgress is ExtractManySocialMedia with a per-entry
// completion callback. progress may be nil.
func (s *Scraper) ExtractManySocialMediaProgress(ctx context.Context, refs []models.SocialMediaRef, progress ProgressFunc) []models.FollowerExtractionResult {
	results := make([]models.FollowerExtractionResult, len(refs))
	report := func(i int) {
		if progress != nil {
			progress(i, results[i])
		}
	}

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	for i, ref := range refs {
		results[i] = models.FollowerExtractionResult{Platform: ref.Platform, URL: ref.URL}
		if strings.TrimSpace(ref.Platform) == "" || strings.TrimSpace(ref.URL) == "" {
			report(i)
			continue
		}
		g.Go(func() error {
			results[i].Followers = s.ExtractFollowerCount(ctx, ref.URL, ref.Platform)
			report(i)
			return nil
		})
	}
	_ = g.Wait()

	found := CountFound(results)
	s.logger.Info("social batch finished", "total", len(refs), "found", found)
	return results
}

// CountFound returns how many results carry a follower count.
func CountFound(results []models.FollowerExtractionResult) int {
	found := 0
	for _, r := range results {
		if r.Followers != nil {
			found++
		}
	}
	return found
}

// fetch retrieves and parses url. It reports false on any fetch failure.
func (s *Scraper) fetch(ctx context.Context, url string, timeout time.Duration) (doc *document.Document, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("fetch panicked", "url", url, "panic", r)
			doc, ok = nil, false
		}
	}()

	start := time.Now()
	res, err := s.engine.Fetch(ctx, &engine.FetchRequest{URL: url, Timeout: timeout})
	if err != nil {
		s.logger.Info("fetch failed",
			"url", url,
			"reason", models.FetchReasonOf(err),
			"error", err,
			"ms", time.Since(start).Milliseconds(),
		)
		return nil, false
	}
	if res == nil {
		return nil, false
	}

	s.logger.Debug("fetched",
		"url", url,
		"final_url", res.FinalURL,
		"status", res.StatusCode,
		"title", res.Title,
		"bytes", len(res.HTML),
		"ms", time.Since(start).Milliseconds(),
	)
	pageURL := res.FinalURL
	if pageURL == "" {
		pageURL = url
	}
	return document.Parse(res.HTML, pageURL), true
}
