package zonaprop

// CSS selectors for zonaprop markup.
const (
	// Listing index
	PostingLinkSelector = "a.go-to-posting"
	NextPageSelector    = `a[aria-label*="Siguiente página"]`

	// Posting page
	TitleSelector       = "section.article-section-description h1"
	DescriptionSelector = "div#longDescription > div"
	PriceBlockSelector  = "div.block-price"
	PriceOpSelector     = "div.price-operation"
	PriceValueSelector  = `div[class="price-items"] > span > span`
	ExpensesSelector    = "div.block-expensas > span"
	LocationSelector    = "h2.title-location"
	ExtrasSelector      = "div#reactGeneralFeatures ul > li > h4"
	FeatureItemSelector = "ul.section-icon-features > li"
)

// Feature list labels.
const (
	FeatureRooms          = "Ambiente"
	FeatureCoveredSurface = "Cubierta"
	FeatureTotalSurface   = "Total"
)

const (
	// rentOperation marks the price block of the rental offer, as opposed to a sale price.
	rentOperation = "Alquiler"
	// foreignCurrency marks amounts that are not in local currency.
	foreignCurrency = "USD"
)

// cosmeticTokens are stripped from location markup.
var cosmeticTokens = []string{
	"\n", "\t",
	"<b>", "</b>",
	"<span>", "</span>",
	"<h1>", "</h1>",
	"<i>", "</i>",
	"<br>",
}
