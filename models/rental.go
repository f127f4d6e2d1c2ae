package models

import (
	"encoding/json"
	"fmt"
)

// RawRecord holds the fields extracted from a single posting before any
// batch-level cleaning. Numeric fields are nil when the markup had no value
// or the value could not be parsed.
type RawRecord struct {
	Title          string
	Description    string
	Price          *float64
	Expenses       *float64
	Location       string
	Link           string
	TotalSurface   *int
	CoveredSurface *int
	Rooms          *int
	Extras         []string
}

// Features are the amenity flags derived from a posting's free text.
type Features struct {
	HasBalcony        bool
	HasTerrace        bool
	HasGarage         bool
	IsStudioApartment bool
}

// Apartment describes the physical unit. It is owned by exactly one Rental.
type Apartment struct {
	Location       string
	TotalSurface   *int
	CoveredSurface *int
	Features
	Rooms  *int
	Extras string
}

// Rental is the cleaned, validated record ready for PostgreSQL storage.
// Link is the natural key of a posting.
type Rental struct {
	Title       string
	Description string
	Price       *float64
	Expenses    *float64
	Link        string
	Apartment   Apartment
}

// RawRecord turns a stored rental back into extractor output so it can be
// fed through the derivation pipeline again. A malformed extras column is
// reported rather than read as an empty list.
func (r Rental) RawRecord() (RawRecord, error) {
	var extras []string
	if r.Apartment.Extras != "" {
		if err := json.Unmarshal([]byte(r.Apartment.Extras), &extras); err != nil {
			return RawRecord{}, fmt.Errorf("decode extras of %s: %w", r.Link, err)
		}
	}
	return RawRecord{
		Title:          r.Title,
		Description:    r.Description,
		Price:          r.Price,
		Expenses:       r.Expenses,
		Location:       r.Apartment.Location,
		Link:           r.Link,
		TotalSurface:   r.Apartment.TotalSurface,
		CoveredSurface: r.Apartment.CoveredSurface,
		Rooms:          r.Apartment.Rooms,
		Extras:         extras,
	}, nil
}

// Summary holds the computed statistics over a stored batch of rentals.
type Summary struct {
	TotalRentals     int
	PricedRentals    int
	AveragePrice     float64
	MinPrice         float64
	MaxPrice         float64
	AverageExpenses  float64
	MostExpensive    *Rental
	Cheapest         []Rental
	WithBalcony      int
	WithTerrace      int
	WithGarage       int
	StudioApartments int
	RentalsByRooms   map[int]int
}
