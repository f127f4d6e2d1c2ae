package zonaprop

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"rentals-scraper/config"
	"rentals-scraper/utils"
)

// CrawlFetcher downloads raw HTML with a colly collector. It does not run
// scripts, which zonaprop's server-rendered pages do not need.
type CrawlFetcher struct {
	collector *colly.Collector
	logger    *utils.Logger
}

// NewCrawlFetcher creates a CrawlFetcher with the configured request timeout.
func NewCrawlFetcher(cfg *config.Config, logger *utils.Logger) *CrawlFetcher {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(cfg.FetchTimeout)

	return &CrawlFetcher{collector: c, logger: logger}
}

// Fetch downloads url and returns its <html> element.
func (f *CrawlFetcher) Fetch(ctx context.Context, url string) (*goquery.Selection, error) {
	c := f.collector.Clone()
	c.Context = ctx

	var doc *goquery.Selection
	var fetchErr error

	c.OnHTML("html", func(e *colly.HTMLElement) {
		if doc == nil {
			doc = e.DOM
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("crawler: fetch %s: status %d: %w", url, r.StatusCode, err)
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("crawler: visit %s: %w", url, err)
	}
	c.Wait()

	if fetchErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fetchErr
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoDocument, url)
	}

	f.logger.Debug("[crawler] Fetched %s", url)
	return doc, nil
}

// Close is a no-op; the collector holds no long-lived resources.
func (f *CrawlFetcher) Close() error {
	return nil
}
