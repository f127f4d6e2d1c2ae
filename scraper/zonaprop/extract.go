package zonaprop

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"rentals-scraper/models"
)

var nonDigitRegexp = regexp.MustCompile(`[^0-9]`)

// Extract reads every field of a posting page. Fields that are missing from
// the markup, or that do not parse, are left empty.
func Extract(doc *goquery.Selection, link string) models.RawRecord {
	return models.RawRecord{
		Title:          extractTitle(doc),
		Description:    extractDescription(doc),
		Price:          extractPrice(doc),
		Expenses:       extractExpenses(doc),
		Location:       extractLocation(doc),
		Link:           link,
		TotalSurface:   extractFeature(doc, FeatureTotalSurface),
		CoveredSurface: extractFeature(doc, FeatureCoveredSurface),
		Rooms:          extractFeature(doc, FeatureRooms),
		Extras:         extractExtras(doc),
	}
}

func extractTitle(doc *goquery.Selection) string {
	return strings.TrimSpace(doc.Find(TitleSelector).First().Text())
}

// extractDescription joins the text nodes of the description block in
// document order. Inline markup between them is dropped.
func extractDescription(doc *goquery.Selection) string {
	var b strings.Builder
	doc.Find(DescriptionSelector).Each(func(_ int, div *goquery.Selection) {
		b.WriteString(ownText(div))
	})
	return strings.TrimSpace(b.String())
}

// extractPrice reads the rental price only. Postings listed for both sale
// and rent carry a second price block which is ignored.
func extractPrice(doc *goquery.Selection) *float64 {
	rent := doc.Find(PriceBlockSelector).FilterFunction(func(_ int, block *goquery.Selection) bool {
		return strings.Contains(block.Find(PriceOpSelector).Text(), rentOperation)
	})
	value := rent.Find(PriceValueSelector).First()
	if value.Length() == 0 {
		return nil
	}
	return parseAmount(value.Text())
}

func extractExpenses(doc *goquery.Selection) *float64 {
	value := doc.Find(ExpensesSelector).First()
	if value.Length() == 0 {
		return nil
	}
	return parseAmount(value.Text())
}

// parseAmount parses texts such as "$ 45.000". Amounts in foreign currency
// are not trusted and yield nil, as does anything malformed.
func parseAmount(text string) *float64 {
	text = strings.TrimSpace(text)
	if text == "" || strings.Contains(text, foreignCurrency) {
		return nil
	}

	fields := strings.Fields(strings.ReplaceAll(text, ".", ""))
	if len(fields) < 2 {
		return nil
	}

	v, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func extractLocation(doc *goquery.Selection) string {
	h2 := doc.Find(LocationSelector).First()
	if h2.Length() == 0 {
		return ""
	}
	inner, err := h2.Html()
	if err != nil {
		return ""
	}
	return NormalizeHTMLString(inner)
}

// NormalizeHTMLString removes line breaks, tabs and emphasis tags from a
// fragment of inner HTML and decodes the entities left in its text.
func NormalizeHTMLString(s string) string {
	// goquery renders void elements self-closed.
	s = strings.NewReplacer("<br/>", "", "<br />", "").Replace(s)
	for _, token := range cosmeticTokens {
		s = strings.ReplaceAll(s, token, "")
	}
	return strings.TrimSpace(html.UnescapeString(s))
}

func extractExtras(doc *goquery.Selection) []string {
	items := doc.Find(ExtrasSelector)
	if items.Length() == 0 {
		return nil
	}
	extras := make([]string, 0, items.Length())
	items.Each(func(_ int, h4 *goquery.Selection) {
		extras = append(extras, strings.ToLower(strings.TrimSpace(h4.Text())))
	})
	return extras
}

// extractFeature finds the feature list item whose own text mentions name
// and returns the number it carries, e.g. "120 m² Total" -> 120.
func extractFeature(doc *goquery.Selection, name string) *int {
	item := doc.Find(FeatureItemSelector).FilterFunction(func(_ int, li *goquery.Selection) bool {
		return strings.Contains(ownText(li), name)
	}).First()
	if item.Length() == 0 {
		return nil
	}

	digits := nonDigitRegexp.ReplaceAllString(item.Text(), "")
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

// ownText concatenates the direct text children of s, skipping descendants.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, n *goquery.Selection) {
		if goquery.NodeName(n) == "#text" {
			b.WriteString(n.Text())
		}
	})
	return b.String()
}
