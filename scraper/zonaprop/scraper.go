package zonaprop

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"rentals-scraper/config"
	"rentals-scraper/models"
	"rentals-scraper/utils"
)

// Scraper walks the zonaprop listing index and extracts single postings
// through whichever Fetcher it was built with.
type Scraper struct {
	fetcher     Fetcher
	baseURL     *url.URL
	listingPath string
	maxPages    int
	logger      *utils.Logger
	retry       *utils.RetryConfig
}

// New creates a Scraper for the site configured in cfg.
func New(cfg *config.Config, fetcher Fetcher, logger *utils.Logger) (*Scraper, error) {
	base, err := url.Parse(cfg.SiteBaseURL)
	if err != nil {
		return nil, fmt.Errorf("zonaprop: parse base url %q: %w", cfg.SiteBaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("zonaprop: base url %q must be absolute", cfg.SiteBaseURL)
	}

	return &Scraper{
		fetcher:     fetcher,
		baseURL:     base,
		listingPath: strings.TrimSuffix(cfg.SiteListingPath, ".html"),
		maxPages:    cfg.MaxPages,
		logger:      logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}, nil
}

// PageURL returns the URL of the given 1-based index page.
func (s *Scraper) PageURL(page int) string {
	u := strings.TrimRight(s.baseURL.String(), "/") + s.listingPath
	if page != 1 {
		u += fmt.Sprintf("-pagina-%d", page)
	}
	return u + ".html"
}

// Links yields posting URLs page by page, starting again from page 1 on
// every call. Pagination stops on the first page without a "next" control.
// A page that cannot be fetched ends the sequence with an error.
func (s *Scraper) Links(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for page := 1; ; page++ {
			pageURL := s.PageURL(page)
			s.logger.Info("[zonaprop] Harvesting page %d: %s", page, pageURL)

			var doc *goquery.Selection
			err := s.retry.Do(ctx, fmt.Sprintf("index-page-%d", page), func() error {
				d, err := s.fetcher.Fetch(ctx, pageURL)
				if err != nil {
					return err
				}
				doc = d
				return nil
			})
			if err != nil {
				yield("", fmt.Errorf("harvest page %d (%s): %w", page, pageURL, err))
				return
			}

			links := s.postingLinks(doc)
			s.logger.Debug("[zonaprop] Page %d: %d posting links", page, len(links))
			for _, link := range links {
				if !yield(link, nil) {
					return
				}
			}

			if doc.Find(NextPageSelector).Length() == 0 {
				return
			}
			if s.maxPages > 0 && page >= s.maxPages {
				s.logger.Warn("[zonaprop] Page limit %d reached, stopping pagination", s.maxPages)
				return
			}
		}
	}
}

// HarvestLinks collects every posting URL of the index in page order.
// Duplicates across pages are kept.
func (s *Scraper) HarvestLinks(ctx context.Context) ([]string, error) {
	var links []string
	for link, err := range s.Links(ctx) {
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	s.logger.Info("[zonaprop] Harvest complete: %d posting links", len(links))
	return links, nil
}

// ExtractPosting fetches a single posting and extracts its fields.
func (s *Scraper) ExtractPosting(ctx context.Context, link string) (models.RawRecord, error) {
	var doc *goquery.Selection
	err := s.retry.Do(ctx, "posting", func() error {
		d, err := s.fetcher.Fetch(ctx, link)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return models.RawRecord{}, fmt.Errorf("fetch posting %s: %w", link, err)
	}
	return Extract(doc, link), nil
}

func (s *Scraper) postingLinks(doc *goquery.Selection) []string {
	var links []string
	doc.Find(PostingLinkSelector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			s.logger.Debug("[zonaprop] Skipping malformed href %q: %v", href, err)
			return
		}
		links = append(links, s.baseURL.ResolveReference(ref).String())
	})
	return links
}
