package core

// VehicleCostPerKM is the reimbursement per private-vehicle kilometer.
const VehicleCostPerKM = 0.30

// Allowance is the per-diem result consumed by the aggregator.
type Allowance struct {
	Total     float64
	Breakdown []DaySegment
}

// VehicleCosts converts driven kilometers into a reimbursable amount.
func VehicleCosts(kilometers float64) float64 {
	return kilometers * VehicleCostPerKM
}

// SumCategory adds up the effective (converted if known) amounts of items.
func SumCategory(items []LineItem) float64 {
	var total float64
	for _, it := range items {
		total += it.EffectiveAmount()
	}
	return total
}

// TotalKilometers adds up the raw amounts of vehicle items. Distances are
// never converted.
func TotalKilometers(items []LineItem) float64 {
	var km float64
	for _, it := range items {
		km += it.Amount
	}
	return km
}

// HasBreakfast reports whether any hotel cost including breakfast was entered.
// The breakfast deduction of the meal allowance follows from it.
func HasBreakfast(items ExpenseItems) bool {
	return SumCategory(items.HotelWithBreakfast) > 0
}

// Total is the grand total of all summary lines.
func (s ExpenseSummary) Total() float64 {
	return s.PublicTransportTotal +
		s.HotelWithBreakfastTotal +
		s.HotelWithoutBreakfastTotal +
		s.MealAllowance +
		s.VehicleCosts +
		s.OtherCostsTotal
}

// Aggregate builds a new report snapshot. The inputs are not modified; the
// report owns deep copies of the line items with the computed per-diem and
// vehicle fields filled in.
func Aggregate(details TravelDetails, items ExpenseItems, allowance Allowance) ExpenseReport {
	expenses := items.Clone()
	expenses.MealAllowance = allowance.Total
	expenses.MealAllowanceBreakdown = append([]DaySegment{}, allowance.Breakdown...)
	expenses.VehicleCosts = VehicleCosts(TotalKilometers(expenses.VehicleKilometers))

	summary := ExpenseSummary{
		PublicTransportTotal:       SumCategory(expenses.PublicTransport),
		HotelWithBreakfastTotal:    SumCategory(expenses.HotelWithBreakfast),
		HotelWithoutBreakfastTotal: SumCategory(expenses.HotelWithoutBreakfast),
		MealAllowance:              expenses.MealAllowance,
		VehicleCosts:               expenses.VehicleCosts,
		OtherCostsTotal:            SumCategory(expenses.OtherCosts),
	}

	return ExpenseReport{
		TravelDetails: details,
		Expenses:      expenses,
		Summary:       summary,
		Total:         summary.Total(),
	}
}
