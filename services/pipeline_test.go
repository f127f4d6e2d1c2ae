package services

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"rentals-scraper/models"
	"rentals-scraper/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerWithLevel(io.Discard, slog.LevelError) }

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int { return &v }

func sampleRaw() []models.RawRecord {
	return []models.RawRecord{
		{
			Title:       "Depto 2 ambientes con BALCÓN",
			Description: "Luminoso, a metros del parque.",
			Price:       fptr(45000),
			Expenses:    fptr(8500),
			Location:    "Nueva Córdoba",
			Link:        "https://www.zonaprop.com.ar/propiedades/depto-centrico-1.html",
			Rooms:       iptr(2),
			Extras:      []string{"pileta"},
		},
		{
			Title:    "Otro depto",
			Price:    fptr(50000),
			Location: "Nueva Córdoba",
			Link:     "https://www.zonaprop.com.ar/propiedades/otro-2.html",
		},
		{
			Title:    "Sin precio",
			Location: "Centro",
			Link:     "https://www.zonaprop.com.ar/propiedades/sin-precio-3.html",
		},
		{
			Title:    "Monoambiente",
			Price:    fptr(30000),
			Location: "güemes",
			Link:     "https://www.zonaprop.com.ar/propiedades/con-cochera-4.html",
			Extras:   []string{" Terraza "},
			Rooms:    iptr(-1),
		},
	}
}

func TestDeriveDropsMissingPrice(t *testing.T) {
	rentals := NewPipeline(newTestLogger()).Derive(sampleRaw())
	for _, r := range rentals {
		if r.Price == nil {
			t.Errorf("rental %q has no price", r.Title)
		}
	}
}

func TestDeriveDeduplicatesLocationKeepingFirst(t *testing.T) {
	rentals := NewPipeline(newTestLogger()).Derive(sampleRaw())

	if len(rentals) != 2 {
		t.Fatalf("got %d rentals, want 2", len(rentals))
	}
	if rentals[0].Title != "Depto 2 ambientes con BALCÓN" {
		t.Errorf("first-seen posting should win, got %q", rentals[0].Title)
	}
	if rentals[0].Apartment.Location != "Nueva cordoba" {
		t.Errorf("Location: got %q, want %q", rentals[0].Apartment.Location, "Nueva cordoba")
	}
	if rentals[1].Apartment.Location != "Guemes" {
		t.Errorf("Location: got %q, want %q", rentals[1].Apartment.Location, "Guemes")
	}
}

func TestDeriveFlagsAndCoercion(t *testing.T) {
	rentals := NewPipeline(newTestLogger()).Derive(sampleRaw())
	if len(rentals) != 2 {
		t.Fatalf("got %d rentals, want 2", len(rentals))
	}

	first := rentals[0].Apartment
	want := models.Features{HasBalcony: true}
	if first.Features != want {
		t.Errorf("first features: got %+v, want %+v", first.Features, want)
	}
	if first.Extras != `["pileta"]` {
		t.Errorf("Extras: got %s", first.Extras)
	}
	if first.Rooms == nil || *first.Rooms != 2 {
		t.Errorf("Rooms: got %v, want 2", first.Rooms)
	}

	second := rentals[1].Apartment
	want = models.Features{HasTerrace: true, HasGarage: true, IsStudioApartment: true}
	if second.Features != want {
		t.Errorf("second features: got %+v, want %+v", second.Features, want)
	}
	if second.Rooms != nil {
		t.Errorf("negative rooms should become absent, got %d", *second.Rooms)
	}
	if second.Extras != `[" Terraza "]` {
		t.Errorf("Extras: got %s", second.Extras)
	}
}

func TestDeriveIsIdempotent(t *testing.T) {
	p := NewPipeline(newTestLogger())
	first := p.Derive(sampleRaw())

	again := make([]models.RawRecord, len(first))
	for i, r := range first {
		rec, err := r.RawRecord()
		if err != nil {
			t.Fatalf("RawRecord: %v", err)
		}
		again[i] = rec
	}
	second := p.Derive(again)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("second pass changed the batch:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestDeriveDoesNotMutateInput(t *testing.T) {
	raw := sampleRaw()
	NewPipeline(newTestLogger()).Derive(raw)

	if raw[0].Location != "Nueva Córdoba" {
		t.Errorf("input location mutated to %q", raw[0].Location)
	}
	if raw[3].Rooms == nil || *raw[3].Rooms != -1 {
		t.Error("input rooms mutated")
	}
}

func TestDeriveEmptyBatch(t *testing.T) {
	if got := NewPipeline(newTestLogger()).Derive(nil); len(got) != 0 {
		t.Errorf("got %d rentals from an empty batch", len(got))
	}
}

func TestHasKeywords(t *testing.T) {
	tests := []struct {
		name string
		rec  models.RawRecord
		want bool
	}{
		{"description upper case", models.RawRecord{Description: "Amplio BALCÓN al frente"}, true},
		{"title substring", models.RawRecord{Title: "Con balcones"}, true},
		{"location substring", models.RawRecord{Location: "Edificio Balcon del Parque"}, true},
		{"link segment", models.RawRecord{Link: "https://x.com/depto-con-balcon-1.html"}, true},
		{"link partial segment", models.RawRecord{Link: "https://x.com/depto-balconada-1.html"}, false},
		{"extras exact", models.RawRecord{Extras: []string{" Balcón "}}, true},
		{"extras partial", models.RawRecord{Extras: []string{"balcón francés"}}, false},
		{"absent fields", models.RawRecord{}, false},
		{"no keyword", models.RawRecord{Title: "Casa", Description: "Patio", Location: "Centro"}, false},
	}

	for _, tt := range tests {
		if got := HasKeywords(tt.rec, BalconyKeywords); got != tt.want {
			t.Errorf("%s: HasKeywords = %v; want %v", tt.name, got, tt.want)
		}
	}
}

func TestCapitalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Nueva Córdoba", "Nueva cordoba"},
		{"GÜEMES", "Guemes"},
		{"ñuñoa", "Nunoa"},
		{"alberdi, Córdoba", "Alberdi, cordoba"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Capitalize(tt.raw); got != tt.want {
			t.Errorf("Capitalize(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestEncodeExtras(t *testing.T) {
	tests := []struct {
		extras []string
		want   string
	}{
		{nil, "[]"},
		{[]string{}, "[]"},
		{[]string{"pileta", "balcón"}, `["pileta","balcón"]`},
	}
	for _, tt := range tests {
		if got := EncodeExtras(tt.extras); got != tt.want {
			t.Errorf("EncodeExtras(%q) = %s; want %s", tt.extras, got, tt.want)
		}
	}
}
