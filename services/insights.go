package services

import (
	"fmt"
	"sort"
	"strings"

	"rentals-scraper/models"
	"rentals-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(rentals []models.Rental) *models.Summary {
	report := &models.Summary{
		RentalsByRooms: make(map[int]int),
	}

	if len(rentals) == 0 {
		return report
	}

	report.TotalRentals = len(rentals)

	var priced []models.Rental
	var expensesTotal float64
	var expensesCount int

	for _, r := range rentals {
		a := r.Apartment
		if a.HasBalcony {
			report.WithBalcony++
		}
		if a.HasTerrace {
			report.WithTerrace++
		}
		if a.HasGarage {
			report.WithGarage++
		}
		if a.IsStudioApartment {
			report.StudioApartments++
		}
		if a.Rooms != nil {
			report.RentalsByRooms[*a.Rooms]++
		}
		if r.Price != nil && *r.Price > 0 {
			priced = append(priced, r)
		}
		if r.Expenses != nil {
			expensesTotal += *r.Expenses
			expensesCount++
		}
	}

	if expensesCount > 0 {
		report.AverageExpenses = round2(expensesTotal / float64(expensesCount))
	}

	// Price stats (only rentals with price > 0)
	report.PricedRentals = len(priced)
	if len(priced) > 0 {
		sort.SliceStable(priced, func(i, j int) bool {
			return *priced[i].Price < *priced[j].Price
		})

		var total float64
		for _, r := range priced {
			total += *r.Price
		}
		report.AveragePrice = round2(total / float64(len(priced)))
		report.MinPrice = round2(*priced[0].Price)
		report.MaxPrice = round2(*priced[len(priced)-1].Price)

		mostExpensive := priced[len(priced)-1]
		report.MostExpensive = &mostExpensive

		if len(priced) > 5 {
			report.Cheapest = priced[:5]
		} else {
			report.Cheapest = priced
		}
	}

	return report
}

func (s *InsightService) Print(r *models.Summary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  RENTALS SUMMARY\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Rentals stored         : \033[1m%d\033[0m\n", r.TotalRentals)
	fmt.Printf("  With balcony           : %d\n", r.WithBalcony)
	fmt.Printf("  With terrace           : %d\n", r.WithTerrace)
	fmt.Printf("  With garage            : %d\n", r.WithGarage)
	fmt.Printf("  Studio apartments      : %d\n", r.StudioApartments)
	fmt.Println()

	fmt.Printf("\033[1;33m  Price Statistics (per month)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.PricedRentals > 0 {
		fmt.Printf("  Average price    : \033[1;32m$%.2f\033[0m\n", r.AveragePrice)
		fmt.Printf("  Minimum price    : \033[1;32m$%.2f\033[0m\n", r.MinPrice)
		fmt.Printf("  Maximum price    : \033[1;32m$%.2f\033[0m\n", r.MaxPrice)
		fmt.Printf("  Average expenses : \033[1;32m$%.2f\033[0m\n", r.AverageExpenses)
	} else {
		fmt.Printf("  No price data available\n")
	}
	fmt.Println()

	if len(r.Cheapest) > 0 {
		fmt.Printf("\033[1;33m  Cheapest Rentals\033[0m\n")
		fmt.Printf("  %s\n", thin)
		for i, l := range r.Cheapest {
			fmt.Printf("  \033[1m%d.\033[0m %-40s \033[1;32m$%.2f\033[0m\n",
				i+1, truncate(l.Title, 38), *l.Price)
		}
		fmt.Println()
	}

	fmt.Printf("\033[1;33m  Rentals by Rooms\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.RentalsByRooms) == 0 {
		fmt.Printf("  No room data\n")
	} else {
		rooms := make([]int, 0, len(r.RentalsByRooms))
		for n := range r.RentalsByRooms {
			rooms = append(rooms, n)
		}
		sort.Ints(rooms)
		for _, n := range rooms {
			cnt := r.RentalsByRooms[n]
			fmt.Printf("  %2d rooms %s (%d)\n", n, strings.Repeat("█", cnt), cnt)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
