package services

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"rentals-scraper/models"
	"rentals-scraper/utils"
)

// Keyword sets searched for each amenity flag.
var (
	BalconyKeywords = []string{"balcón", "balcon", "balcones"}
	TerraceKeywords = []string{"terraza", "terrazas"}
	GarageKeywords  = []string{"cochera", "cocheras"}
	StudioKeywords  = []string{"monoambiente", "monoambientes"}
)

// Row is a record in flight through the pipeline.
type Row struct {
	models.RawRecord
	models.Features
}

// Stage is one batch-wide transform. Stages never modify their input.
type Stage func([]Row) []Row

// DefaultStages is the derivation applied to every scraped batch, in order.
var DefaultStages = []Stage{
	DropMissingPrice,
	DropDuplicateLocations,
	AddBalconyFlag,
	AddTerraceFlag,
	AddGarageFlag,
	AddStudioApartmentFlag,
	CapitalizeLocation,
	CoerceNumbers,
}

// Pipeline turns raw extractor output into rentals.
type Pipeline struct {
	stages []Stage
	logger *utils.Logger
}

// NewPipeline creates a Pipeline running DefaultStages.
func NewPipeline(logger *utils.Logger) *Pipeline {
	return &Pipeline{stages: DefaultStages, logger: logger}
}

// Derive runs every stage over batch and builds the resulting rentals.
func (p *Pipeline) Derive(batch []models.RawRecord) []models.Rental {
	rows := make([]Row, len(batch))
	for i, r := range batch {
		rows[i] = Row{RawRecord: r}
	}

	for _, stage := range p.stages {
		rows = stage(rows)
	}

	rentals := make([]models.Rental, len(rows))
	for i, r := range rows {
		rentals[i] = toRental(r)
	}

	p.logger.Info("[pipeline] Derived %d → %d rentals (dropped %d)",
		len(batch), len(rentals), len(batch)-len(rentals))
	return rentals
}

// DropMissingPrice removes rows without a price.
func DropMissingPrice(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Price != nil {
			out = append(out, r)
		}
	}
	return out
}

// DropDuplicateLocations keeps the first row seen for each location.
// Locations are compared in their capitalized form so that a second pass
// over derived rentals drops nothing.
func DropDuplicateLocations(rows []Row) []Row {
	seen := utils.NewKeySet()
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if seen.Add(Capitalize(r.Location)) {
			out = append(out, r)
		}
	}
	return out
}

func AddBalconyFlag(rows []Row) []Row {
	return withFlag(rows, BalconyKeywords, func(f *models.Features, v bool) { f.HasBalcony = v })
}

func AddTerraceFlag(rows []Row) []Row {
	return withFlag(rows, TerraceKeywords, func(f *models.Features, v bool) { f.HasTerrace = v })
}

func AddGarageFlag(rows []Row) []Row {
	return withFlag(rows, GarageKeywords, func(f *models.Features, v bool) { f.HasGarage = v })
}

func AddStudioApartmentFlag(rows []Row) []Row {
	return withFlag(rows, StudioKeywords, func(f *models.Features, v bool) { f.IsStudioApartment = v })
}

func withFlag(rows []Row, keywords []string, set func(*models.Features, bool)) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		set(&r.Features, HasKeywords(r.RawRecord, keywords))
		out[i] = r
	}
	return out
}

// HasKeywords reports whether any keyword occurs in the record. Title,
// description and location match on substrings; link segments (split on
// "-") and extras must match a keyword exactly. All comparisons ignore case.
func HasKeywords(r models.RawRecord, keywords []string) bool {
	title := strings.ToLower(r.Title)
	description := strings.ToLower(r.Description)
	location := strings.ToLower(r.Location)
	segments := strings.Split(strings.ToLower(r.Link), "-")

	extras := make([]string, len(r.Extras))
	for i, e := range r.Extras {
		extras[i] = strings.ToLower(strings.TrimSpace(e))
	}

	for _, keyword := range keywords {
		keyword = strings.ToLower(keyword)
		if strings.Contains(title, keyword) ||
			strings.Contains(description, keyword) ||
			strings.Contains(location, keyword) ||
			contains(segments, keyword) ||
			contains(extras, keyword) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// CapitalizeLocation folds accents and upper-cases only the first letter,
// so "Nueva Córdoba" becomes "Nueva cordoba".
func CapitalizeLocation(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		r.Location = Capitalize(r.Location)
		out[i] = r
	}
	return out
}

// Capitalize returns s without diacritics, its first rune upper-cased and
// the rest lower-cased.
func Capitalize(s string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	folded = cases.Lower(language.Spanish).String(folded)

	first, size := utf8.DecodeRuneInString(folded)
	if first == utf8.RuneError {
		return folded
	}
	return string(unicode.ToUpper(first)) + folded[size:]
}

// CoerceNumbers copies the numeric fields and turns negative expenses,
// surfaces or room counts into absent values.
func CoerceNumbers(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		r.Expenses = nonNegativeFloat(r.Expenses)
		r.TotalSurface = nonNegativeInt(r.TotalSurface)
		r.CoveredSurface = nonNegativeInt(r.CoveredSurface)
		r.Rooms = nonNegativeInt(r.Rooms)
		out[i] = r
	}
	return out
}

func nonNegativeFloat(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	c := *v
	return &c
}

func nonNegativeInt(v *int) *int {
	if v == nil || *v < 0 {
		return nil
	}
	c := *v
	return &c
}

// EncodeExtras serializes extras to the JSON stored in the extras column.
// A missing list encodes as an empty array.
func EncodeExtras(extras []string) string {
	if extras == nil {
		extras = []string{}
	}
	b, err := json.Marshal(extras)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func toRental(r Row) models.Rental {
	return models.Rental{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Expenses:    r.Expenses,
		Link:        r.Link,
		Apartment: models.Apartment{
			Location:       r.Location,
			TotalSurface:   r.TotalSurface,
			CoveredSurface: r.CoveredSurface,
			Features:       r.Features,
			Rooms:          r.Rooms,
			Extras:         EncodeExtras(r.Extras),
		},
	}
}
