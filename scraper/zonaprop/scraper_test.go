package zonaprop

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"rentals-scraper/config"
	"rentals-scraper/utils"
)

func testLogger() *utils.Logger { return utils.NewLoggerWithLevel(io.Discard, slog.LevelError) }

// fakeFetcher serves canned pages keyed by URL.
type fakeFetcher struct {
	pages   map[string]string
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*goquery.Selection, error) {
	f.fetched = append(f.fetched, url)
	html, ok := f.pages[url]
	if !ok {
		return nil, errors.New("connection reset")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return doc.Selection, nil
}

func (f *fakeFetcher) Close() error { return nil }

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		SiteBaseURL:     baseURL,
		SiteListingPath: "/departamentos-alquiler-nueva-cordoba",
		MaxRetries:      1,
		FetchTimeout:    5 * time.Second,
	}
}

func indexPage(hrefs []string, hasNext bool) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, h := range hrefs {
		b.WriteString(`<a class="posting-card go-to-posting" href="` + h + `">ver</a>`)
	}
	if hasNext {
		b.WriteString(`<a aria-label="Siguiente página" href="#">›</a>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

const testBase = "https://www.zonaprop.com.ar"

func threePageSite() *fakeFetcher {
	return &fakeFetcher{pages: map[string]string{
		testBase + "/departamentos-alquiler-nueva-cordoba.html":          indexPage([]string{"/propiedades/a-1.html", "/propiedades/b-2.html"}, true),
		testBase + "/departamentos-alquiler-nueva-cordoba-pagina-2.html": indexPage([]string{"/propiedades/c-3.html", "/propiedades/a-1.html"}, true),
		testBase + "/departamentos-alquiler-nueva-cordoba-pagina-3.html": indexPage([]string{"https://www.zonaprop.com.ar/propiedades/d-4.html"}, false),
	}}
}

func TestPageURL(t *testing.T) {
	s, err := New(testConfig(testBase), &fakeFetcher{}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		page int
		want string
	}{
		{1, testBase + "/departamentos-alquiler-nueva-cordoba.html"},
		{2, testBase + "/departamentos-alquiler-nueva-cordoba-pagina-2.html"},
		{10, testBase + "/departamentos-alquiler-nueva-cordoba-pagina-10.html"},
	}
	for _, tt := range tests {
		if got := s.PageURL(tt.page); got != tt.want {
			t.Errorf("PageURL(%d) = %q; want %q", tt.page, got, tt.want)
		}
	}
}

func TestHarvestLinksFollowsPagination(t *testing.T) {
	f := threePageSite()
	s, err := New(testConfig(testBase), f, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	links, err := s.HarvestLinks(context.Background())
	if err != nil {
		t.Fatalf("HarvestLinks: %v", err)
	}

	want := []string{
		testBase + "/propiedades/a-1.html",
		testBase + "/propiedades/b-2.html",
		testBase + "/propiedades/c-3.html",
		testBase + "/propiedades/a-1.html",
		testBase + "/propiedades/d-4.html",
	}
	if len(links) != len(want) {
		t.Fatalf("got %d links %q, want %d", len(links), links, len(want))
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("links[%d] = %q; want %q", i, links[i], want[i])
		}
	}
	if len(f.fetched) != 3 {
		t.Errorf("fetched %d pages, want 3", len(f.fetched))
	}
}

func TestHarvestLinksAbortsOnPageFailure(t *testing.T) {
	f := threePageSite()
	delete(f.pages, testBase+"/departamentos-alquiler-nueva-cordoba-pagina-2.html")

	s, err := New(testConfig(testBase), f, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	links, err := s.HarvestLinks(context.Background())
	if err == nil {
		t.Fatal("expected an error when a page cannot be fetched")
	}
	if links != nil {
		t.Errorf("partial result returned: %q", links)
	}
}

func TestHarvestLinksRespectsMaxPages(t *testing.T) {
	cfg := testConfig(testBase)
	cfg.MaxPages = 2
	s, err := New(cfg, threePageSite(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	links, err := s.HarvestLinks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 4 {
		t.Errorf("got %d links, want 4 from the first two pages", len(links))
	}
}

func TestLinksStopsWhenConsumerBreaks(t *testing.T) {
	f := threePageSite()
	s, err := New(testConfig(testBase), f, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	for link, err := range s.Links(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		if link != testBase+"/propiedades/a-1.html" {
			t.Errorf("first link: got %q", link)
		}
		break
	}
	if len(f.fetched) != 1 {
		t.Errorf("fetched %d pages after early break, want 1", len(f.fetched))
	}
}

func TestExtractPostingWrapsFetchError(t *testing.T) {
	s, err := New(testConfig(testBase), &fakeFetcher{pages: map[string]string{}}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ExtractPosting(context.Background(), testBase+"/propiedades/x.html"); err == nil {
		t.Error("expected fetch error")
	}
}

func TestNewRejectsRelativeBase(t *testing.T) {
	if _, err := New(testConfig("/relative"), &fakeFetcher{}, testLogger()); err == nil {
		t.Error("expected error for relative base url")
	}
}

func TestCrawlFetcherEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/departamentos-alquiler-nueva-cordoba.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, indexPage([]string{"/propiedades/depto-1.html"}, false))
	})
	mux.HandleFunc("/propiedades/depto-1.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, postingHTML)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	fetcher := NewCrawlFetcher(cfg, testLogger())
	defer fetcher.Close()

	s, err := New(cfg, fetcher, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	links, err := s.HarvestLinks(context.Background())
	if err != nil {
		t.Fatalf("HarvestLinks: %v", err)
	}
	if len(links) != 1 || links[0] != srv.URL+"/propiedades/depto-1.html" {
		t.Fatalf("links: got %q", links)
	}

	rec, err := s.ExtractPosting(context.Background(), links[0])
	if err != nil {
		t.Fatalf("ExtractPosting: %v", err)
	}
	if rec.Price == nil || *rec.Price != 45000 {
		t.Errorf("Price: got %v, want 45000", rec.Price)
	}
	if rec.Link != links[0] {
		t.Errorf("Link: got %q", rec.Link)
	}

	// Pages must stay fetchable on retry.
	if _, err := fetcher.Fetch(context.Background(), links[0]); err != nil {
		t.Errorf("refetch: %v", err)
	}
}

func TestCrawlFetcherNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	fetcher := NewCrawlFetcher(testConfig(srv.URL), testLogger())
	if _, err := fetcher.Fetch(context.Background(), srv.URL+"/missing.html"); err == nil {
		t.Error("expected error for 404")
	}
}
