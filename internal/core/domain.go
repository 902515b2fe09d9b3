package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SegmentKind classifies one day of a per-diem breakdown.
type SegmentKind string

const (
	KindSameDay   SegmentKind = "arrival_departure_same_day"
	KindDeparture SegmentKind = "departure_day"
	KindFullDay   SegmentKind = "full_day"
	KindReturn    SegmentKind = "return_day"
)

// Label returns the German label printed on reports.
func (k SegmentKind) Label() string {
	switch k {
	case KindSameDay:
		return "An-/Abreisetag"
	case KindDeparture:
		return "Abreisetag"
	case KindFullDay:
		return "Voller Tag"
	case KindReturn:
		return "Rückreisetag"
	default:
		return string(k)
	}
}

// Category names one list of line items in an expense report.
type Category string

const (
	PublicTransport       Category = "publicTransport"
	HotelWithBreakfast    Category = "hotelWithBreakfast"
	HotelWithoutBreakfast Category = "hotelWithoutBreakfast"
	VehicleKilometers     Category = "vehicleKilometers"
	OtherCosts            Category = "otherCosts"
)

// BaseCurrency is the reporting currency all amounts are converted into.
const BaseCurrency = "EUR"

type (
	// DaySegment is one row of the meal allowance breakdown.
	DaySegment struct {
		Date               string      `json:"date"`
		Kind               SegmentKind `json:"type"`
		BaseAmount         float64     `json:"baseAmount"`
		BreakfastDeduction float64     `json:"breakfastDeduction"`
		FinalAmount        float64     `json:"finalAmount"`
	}

	// LineItem is a single cost entry. For vehicle kilometers Amount holds
	// the distance driven. ID and Revision identify the item across
	// asynchronous currency conversions.
	LineItem struct {
		ID           string   `json:"id,omitempty"`
		Revision     int64    `json:"revision,omitempty"`
		Description  string   `json:"description"`
		Amount       float64  `json:"amount"`
		Currency     string   `json:"currency,omitempty"`
		AmountEUR    *float64 `json:"amountEUR,omitempty"`
		ExchangeRate *float64 `json:"exchangeRate,omitempty"`
	}

	ExpenseItems struct {
		PublicTransport        []LineItem   `json:"publicTransport"`
		HotelWithBreakfast     []LineItem   `json:"hotelWithBreakfast"`
		HotelWithoutBreakfast  []LineItem   `json:"hotelWithoutBreakfast"`
		MealAllowance          float64      `json:"mealAllowance"`
		MealAllowanceBreakdown []DaySegment `json:"mealAllowanceBreakdown"`
		VehicleKilometers      []LineItem   `json:"vehicleKilometers"`
		VehicleCosts           float64      `json:"vehicleCosts"`
		OtherCosts             []LineItem   `json:"otherCosts"`
	}

	TravelDetails struct {
		EmployeeName       string `json:"employeeName"`
		StartLocation      string `json:"startLocation"`
		Destination        string `json:"destination"`
		DepartureDate      string `json:"departureDate"`
		DepartureTime      string `json:"departureTime"`
		ReturnDate         string `json:"returnDate"`
		ReturnTime         string `json:"returnTime"`
		DestinationCountry string `json:"destinationCountry"`
		TravelReason       string `json:"travelReason"`
	}

	ExpenseSummary struct {
		PublicTransportTotal       float64 `json:"publicTransportTotal"`
		HotelWithBreakfastTotal    float64 `json:"hotelWithBreakfastTotal"`
		HotelWithoutBreakfastTotal float64 `json:"hotelWithoutBreakfastTotal"`
		MealAllowance              float64 `json:"mealAllowance"`
		VehicleCosts               float64 `json:"vehicleCosts"`
		OtherCostsTotal            float64 `json:"otherCostsTotal"`
	}

	// ExpenseReport is an immutable snapshot handed to rendering and export.
	ExpenseReport struct {
		TravelDetails TravelDetails  `json:"travelDetails"`
		Expenses      ExpenseItems   `json:"expenses"`
		Summary       ExpenseSummary `json:"summary"`
		Total         float64        `json:"total"`
	}

	// Draft is the persisted, editable state of a report form.
	Draft struct {
		ID            string        `json:"id"`
		TravelDetails TravelDetails `json:"travelDetails"`
		Expenses      ExpenseItems  `json:"expenses"`
		CreatedAt     time.Time     `json:"createdAt"`
		UpdatedAt     time.Time     `json:"updatedAt"`
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidTime      = errors.New("invalid time")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrUnknownCategory  = errors.New("unknown expense category")
	ErrItemNotFound     = errors.New("line item not found")
	ErrDescriptionLimit = errors.New("description too long (max 200 characters)")
)

// Categories lists the line item categories in report order.
func Categories() []Category {
	return []Category{PublicTransport, HotelWithBreakfast, HotelWithoutBreakfast, VehicleKilometers, OtherCosts}
}

// ParseCategory accepts the JSON name of a category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// NewLineItem returns an empty item in the base currency.
func NewLineItem() LineItem {
	zero, one := 0.0, 1.0
	return LineItem{
		Currency:     BaseCurrency,
		AmountEUR:    &zero,
		ExchangeRate: &one,
	}
}

// CurrencyCode returns the item's currency, defaulting to the base currency.
func (li LineItem) CurrencyCode() string {
	c := strings.ToUpper(strings.TrimSpace(li.Currency))
	if c == "" {
		return BaseCurrency
	}
	return c
}

// EffectiveAmount is the converted amount when one is known, else the raw amount.
func (li LineItem) EffectiveAmount() float64 {
	if li.AmountEUR != nil {
		return *li.AmountEUR
	}
	return li.Amount
}

// NeedsConversion reports whether a remote exchange rate is required.
func (li LineItem) NeedsConversion() bool {
	return li.Amount > 0 && li.CurrencyCode() != BaseCurrency
}

// WithConversion returns a copy carrying the converted amount and rate.
func (li LineItem) WithConversion(amountEUR, rate float64) LineItem {
	li.AmountEUR = &amountEUR
	li.ExchangeRate = &rate
	return li
}

// WithoutConversion returns a copy with the converted fields unset.
func (li LineItem) WithoutConversion() LineItem {
	li.AmountEUR = nil
	li.ExchangeRate = nil
	return li
}

func (li LineItem) Validate() error {
	if li.Amount < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, li.Amount)
	}
	if len(li.Description) > 200 {
		return ErrDescriptionLimit
	}
	return nil
}

func (li LineItem) clone() LineItem {
	if li.AmountEUR != nil {
		v := *li.AmountEUR
		li.AmountEUR = &v
	}
	if li.ExchangeRate != nil {
		v := *li.ExchangeRate
		li.ExchangeRate = &v
	}
	return li
}

func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return out
}

// Items returns the list for a category. The slice is shared with e.
func (e ExpenseItems) Items(c Category) []LineItem {
	switch c {
	case PublicTransport:
		return e.PublicTransport
	case HotelWithBreakfast:
		return e.HotelWithBreakfast
	case HotelWithoutBreakfast:
		return e.HotelWithoutBreakfast
	case VehicleKilometers:
		return e.VehicleKilometers
	case OtherCosts:
		return e.OtherCosts
	}
	return nil
}

// SetItems replaces the whole list of a category.
func (e *ExpenseItems) SetItems(c Category, items []LineItem) error {
	switch c {
	case PublicTransport:
		e.PublicTransport = items
	case HotelWithBreakfast:
		e.HotelWithBreakfast = items
	case HotelWithoutBreakfast:
		e.HotelWithoutBreakfast = items
	case VehicleKilometers:
		e.VehicleKilometers = items
	case OtherCosts:
		e.OtherCosts = items
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return nil
}

// Clone returns a deep copy.
func (e ExpenseItems) Clone() ExpenseItems {
	out := e
	out.PublicTransport = cloneItems(e.PublicTransport)
	out.HotelWithBreakfast = cloneItems(e.HotelWithBreakfast)
	out.HotelWithoutBreakfast = cloneItems(e.HotelWithoutBreakfast)
	out.VehicleKilometers = cloneItems(e.VehicleKilometers)
	out.OtherCosts = cloneItems(e.OtherCosts)
	if e.MealAllowanceBreakdown != nil {
		out.MealAllowanceBreakdown = append([]DaySegment(nil), e.MealAllowanceBreakdown...)
	}
	return out
}

// FindItem returns the index of the item with the given ID in a category, or -1.
func (e ExpenseItems) FindItem(c Category, id string) int {
	for i, it := range e.Items(c) {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (e ExpenseItems) Validate() error {
	for _, c := range Categories() {
		for i, it := range e.Items(c) {
			if err := it.Validate(); err != nil {
				return fmt.Errorf("%s[%d]: %w", c, i, err)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	d.Expenses = d.Expenses.Clone()
	return d
}

// Departure parses the departure date and time.
func (td TravelDetails) Departure() (TimePoint, error) {
	return ParseTimePoint(td.DepartureDate, td.DepartureTime)
}

// Return parses the return date and time.
func (td TravelDetails) Return() (TimePoint, error) {
	return ParseTimePoint(td.ReturnDate, td.ReturnTime)
}

// Route renders the round trip as "start - destination - start".
func (td TravelDetails) Route() string {
	return fmt.Sprintf("%s - %s - %s", td.StartLocation, td.Destination, td.StartLocation)
}

// NewDraft returns the default form state: today's date, an 08:00 to 18:00
// domestic trip and one empty base-currency item per category.
func NewDraft(id string, now time.Time) Draft {
	today := now.Format(DateLayout)
	items := ExpenseItems{MealAllowanceBreakdown: []DaySegment{}}
	for _, c := range Categories() {
		_ = items.SetItems(c, []LineItem{NewLineItem()})
	}
	return Draft{
		ID: id,
		TravelDetails: TravelDetails{
			DepartureDate:      today,
			DepartureTime:      "08:00",
			ReturnDate:         today,
			ReturnTime:         "18:00",
			DestinationCountry: "Deutschland",
		},
		Expenses:  items,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
