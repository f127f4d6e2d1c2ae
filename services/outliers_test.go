package services

import (
	"math"
	"testing"

	"rentals-scraper/models"
)

func TestBoxCox(t *testing.T) {
	tests := []struct {
		x, lambda, want float64
	}{
		{math.E, 0, 1},
		{2, 1, 1},
		{2, -2, (0.25 - 1) / -2},
	}
	for _, tt := range tests {
		if got := BoxCox(tt.x, tt.lambda); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("BoxCox(%v, %v) = %v; want %v", tt.x, tt.lambda, got, tt.want)
		}
	}
}

// repeated returns n copies of v followed by extra.
func repeated(v float64, n int, extra ...float64) []float64 {
	out := make([]float64, 0, n+len(extra))
	for i := 0; i < n; i++ {
		out = append(out, v)
	}
	return append(out, extra...)
}

func TestFilterOutliersDropsExtremeValue(t *testing.T) {
	// One value against thirty identical ones scores sqrt(30) ≈ 5.48.
	values := repeated(45000, 30, 500)

	kept := FilterOutliers(values, PriceLambda)
	if len(kept) != 30 {
		t.Fatalf("kept %d values, want 30", len(kept))
	}
	for _, i := range kept {
		if i == 30 {
			t.Error("the outlier was retained")
		}
	}
}

func TestFilterOutliersKeepsSmallBatches(t *testing.T) {
	// With fewer than 27 values no population z-score can exceed 5.
	values := []float64{100, 200, 300, 1e9}
	if kept := FilterOutliers(values, ExpensesLambda); len(kept) != len(values) {
		t.Errorf("kept %d of %d values", len(kept), len(values))
	}
}

func TestFilterOutliersZeroVariance(t *testing.T) {
	values := repeated(8500, 40)
	kept := FilterOutliers(values, ExpensesLambda)
	if len(kept) != 40 {
		t.Errorf("kept %d values, want all 40", len(kept))
	}
}

func TestFilterOutliersSkipsUntransformable(t *testing.T) {
	values := []float64{0, -10, math.NaN(), 100, 200}
	kept := FilterOutliers(values, ExpensesLambda)
	if len(kept) != 2 || kept[0] != 3 || kept[1] != 4 {
		t.Errorf("kept %v, want [3 4]", kept)
	}
	if got := FilterOutliers(nil, PriceLambda); got != nil {
		t.Errorf("empty input: got %v", got)
	}
}

func TestRemoveExpensesOutliersKeepsUnknownExpenses(t *testing.T) {
	var rentals []models.Rental
	for i := 0; i < 30; i++ {
		rentals = append(rentals, models.Rental{Title: "regular", Price: fptr(45000), Expenses: fptr(8000)})
	}
	rentals = append(rentals,
		models.Rental{Title: "no expenses", Price: fptr(45000)},
		models.Rental{Title: "outlier", Price: fptr(45000), Expenses: fptr(9e6)},
	)

	out := RemoveExpensesOutliers(rentals)
	if len(out) != 31 {
		t.Fatalf("got %d rentals, want 31", len(out))
	}
	for _, r := range out {
		if r.Title == "outlier" {
			t.Error("expenses outlier was retained")
		}
	}
	if out[30].Title != "no expenses" {
		t.Errorf("order not preserved, last is %q", out[30].Title)
	}
}

func TestRemovePriceOutliers(t *testing.T) {
	var rentals []models.Rental
	for i := 0; i < 30; i++ {
		rentals = append(rentals, models.Rental{Title: "regular", Price: fptr(45000)})
	}
	rentals = append(rentals, models.Rental{Title: "typo", Price: fptr(45)})

	out := RemovePriceOutliers(rentals)
	if len(out) != 30 {
		t.Errorf("got %d rentals, want 30", len(out))
	}
}
