package services

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"rentals-scraper/models"
)

// Box-Cox exponents fitted to the price and expenses distributions.
const (
	PriceLambda    = -2.0
	ExpensesLambda = -0.2
)

// zLimit bounds the standardized score of a retained value.
const zLimit = 5.0

// BoxCox applies the Box-Cox power transform to a positive x.
func BoxCox(x, lambda float64) float64 {
	if lambda == 0 {
		return math.Log(x)
	}
	return (math.Pow(x, lambda) - 1) / lambda
}

// FilterOutliers returns, in order, the indices of values whose z-score
// after a Box-Cox transform lies within [-5, 5]. The score needs the whole
// column, so it cannot be decided one value at a time. Values the transform
// is undefined for (zero, negative, NaN, infinite) are never retained. When
// every transformed value is equal the spread is zero and all are retained.
func FilterOutliers(values []float64, lambda float64) []int {
	idx := make([]int, 0, len(values))
	transformed := make([]float64, 0, len(values))
	for i, v := range values {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		t := BoxCox(v, lambda)
		if math.IsNaN(t) || math.IsInf(t, 0) {
			continue
		}
		idx = append(idx, i)
		transformed = append(transformed, t)
	}
	if len(transformed) == 0 {
		return nil
	}

	mean, std := stat.PopMeanStdDev(transformed, nil)

	kept := make([]int, 0, len(idx))
	for j, t := range transformed {
		z := 0.0
		if std > 0 {
			z = (t - mean) / std
		}
		if z >= -zLimit && z <= zLimit {
			kept = append(kept, idx[j])
		}
	}
	return kept
}

// RemovePriceOutliers drops rentals whose price is an outlier of the batch.
// Rentals without a price cannot be scored and are dropped too.
func RemovePriceOutliers(rentals []models.Rental) []models.Rental {
	return removeOutliers(rentals, PriceLambda, func(r models.Rental) *float64 { return r.Price }, false)
}

// RemoveExpensesOutliers drops rentals whose expenses are an outlier of the
// batch. Rentals with unknown expenses are kept and take no part in scoring.
func RemoveExpensesOutliers(rentals []models.Rental) []models.Rental {
	return removeOutliers(rentals, ExpensesLambda, func(r models.Rental) *float64 { return r.Expenses }, true)
}

func removeOutliers(rentals []models.Rental, lambda float64, field func(models.Rental) *float64, keepAbsent bool) []models.Rental {
	positions := make([]int, 0, len(rentals))
	values := make([]float64, 0, len(rentals))
	keep := make([]bool, len(rentals))

	for i, r := range rentals {
		v := field(r)
		if v == nil {
			keep[i] = keepAbsent
			continue
		}
		positions = append(positions, i)
		values = append(values, *v)
	}

	for _, j := range FilterOutliers(values, lambda) {
		keep[positions[j]] = true
	}

	out := make([]models.Rental, 0, len(rentals))
	for i, r := range rentals {
		if keep[i] {
			out = append(out, r)
		}
	}
	return out
}

// OutlierStages are the optional post-derivation filters, in order.
var OutlierStages = []func([]models.Rental) []models.Rental{
	RemoveExpensesOutliers,
	RemovePriceOutliers,
}
