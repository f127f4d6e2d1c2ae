package zonaprop

import (
	"context"
	"errors"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoDocument is returned when a page was fetched but held no HTML document.
var ErrNoDocument = errors.New("zonaprop: response contained no html document")

// Fetcher loads a page and exposes its markup for selector queries. The
// headless browser and the crawl collector both satisfy it, so extraction
// never depends on how a page was obtained.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Selection, error)
	Close() error
}
