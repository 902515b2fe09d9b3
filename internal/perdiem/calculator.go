// Package perdiem computes meal allowances (Verpflegungsmehraufwand) for a
// business trip.
//
// The day-by-day breakdown is authoritative: the allowance total is the sum
// of its segments. The duration formula is evaluated as well and reported as
// FormulaTotal so that reports can show where the two disagree.
package perdiem

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/log"
	"github.com/raven-rwho/rem-expenses/internal/rates"
)

const (
	// BreakfastDeduction is subtracted per day when lodging included breakfast.
	BreakfastDeduction = 5.60

	FullDayHours = 24.0
	// MinAbsenceHours is the absence needed on a calendar day to earn the
	// partial-day rate.
	MinAbsenceHours = 8.0
)

// ErrInvalidTravelWindow is returned when the return lies before the departure.
var ErrInvalidTravelWindow = errors.New("invalid travel window")

// Trip is the input of a calculation.
type Trip struct {
	Departure         core.TimePoint
	Return            core.TimePoint
	Jurisdiction      string
	BreakfastIncluded bool
}

type Result struct {
	Rate          rates.JurisdictionRate
	DurationHours float64
	Breakdown     []core.DaySegment
	// Total is the sum of the breakdown's final amounts.
	Total float64
	// FormulaTotal is the duration based figure, kept for audit.
	FormulaTotal float64
	// Suggestions lists close jurisdiction names when Rate is a fallback.
	Suggestions []string
}

// Diverges reports whether the duration formula disagrees with the breakdown.
func (r Result) Diverges() bool {
	return math.Abs(r.Total-r.FormulaTotal) > 1e-9
}

// Allowance converts the result into the aggregator's input.
func (r Result) Allowance() core.Allowance {
	return core.Allowance{
		Total:     r.Total,
		Breakdown: append([]core.DaySegment{}, r.Breakdown...),
	}
}

type Calculator struct {
	table     *rates.Table
	loc       *time.Location
	deduction float64
	logger    *log.Logger
}

type Option func(*Calculator)

// WithLocation sets the zone used to measure the travel duration, so that a
// trip across a DST change lasts 23 or 25 hours. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *Calculator) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBreakfastDeduction overrides the per-day breakfast deduction.
func WithBreakfastDeduction(amount float64) Option {
	return func(c *Calculator) {
		c.deduction = amount
	}
}

// New returns a calculator reading rates from table.
func New(table *rates.Table, opts ...Option) *Calculator {
	c := &Calculator{
		table:     table,
		loc:       time.UTC,
		deduction: BreakfastDeduction,
		logger:    log.Default(log.ComponentPerDiem),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rates exposes the injected table.
func (c *Calculator) Rates() *rates.Table {
	return c.table
}

// Duration returns the signed trip duration in hours.
func (c *Calculator) Duration(trip Trip) float64 {
	return core.HoursBetween(trip.Departure, trip.Return, c.loc)
}

// Calculate validates the trip and computes breakdown, total and formula total.
func (c *Calculator) Calculate(ctx context.Context, trip Trip) (Result, error) {
	hours := c.Duration(trip)
	if hours < 0 {
		return Result{}, fmt.Errorf("%w: return %s is before departure %s", ErrInvalidTravelWindow, trip.Return, trip.Departure)
	}

	rate := c.table.Resolve(trip.Jurisdiction)
	res := Result{
		Rate:          rate,
		DurationHours: hours,
		Breakdown:     c.breakdown(trip, hours, rate),
		FormulaTotal:  FormulaTotal(hours, rate, trip.BreakfastIncluded, c.deduction),
	}
	for _, seg := range res.Breakdown {
		res.Total += seg.FinalAmount
	}
	res.Total = math.Max(0, res.Total)

	if rate.Fallback {
		res.Suggestions = c.table.Suggest(trip.Jurisdiction, 3)
		c.logger.InfoContext(ctx, "Unknown jurisdiction, using domestic rates",
			log.FieldJurisdiction, trip.Jurisdiction,
			"suggestions", res.Suggestions)
	}
	if res.Diverges() {
		c.logger.DebugContext(ctx, "Breakdown and duration formula disagree",
			log.NewFields().WithAllowance(rate.Jurisdiction, rate.Fallback, hours, len(res.Breakdown), res.Total, res.FormulaTotal).ToSlice()...)
	}
	return res, nil
}

// breakdown emits the day segments in chronological order.
func (c *Calculator) breakdown(trip Trip, hours float64, rate rates.JurisdictionRate) []core.DaySegment {
	segments := []core.DaySegment{}
	dep, ret := trip.Departure, trip.Return

	if dep.SameDate(ret) {
		if hours >= MinAbsenceHours {
			segments = append(segments, c.segment(dep.DateLabel(), core.KindSameDay, rate.PartialDay, trip.BreakfastIncluded))
		}
		return segments
	}

	if FullDayHours-dep.ClockHours() >= MinAbsenceHours {
		segments = append(segments, c.segment(dep.DateLabel(), core.KindDeparture, rate.PartialDay, trip.BreakfastIncluded))
	}

	last := ret.Midnight()
	for day := dep.Midnight().AddDate(0, 0, 1); day.Before(last); day = day.AddDate(0, 0, 1) {
		segments = append(segments, c.segment(day.Format(core.DateLayout), core.KindFullDay, rate.FullDay, trip.BreakfastIncluded))
	}

	if ret.ClockHours() >= MinAbsenceHours {
		segments = append(segments, c.segment(ret.DateLabel(), core.KindReturn, rate.PartialDay, trip.BreakfastIncluded))
	}
	return segments
}

func (c *Calculator) segment(date string, kind core.SegmentKind, base float64, breakfast bool) core.DaySegment {
	var deduction float64
	if breakfast {
		deduction = c.deduction
	}
	return core.DaySegment{
		Date:               date,
		Kind:               kind,
		BaseAmount:         base,
		BreakfastDeduction: deduction,
		FinalAmount:        math.Max(0, base-deduction),
	}
}

// FormulaTotal is the duration based allowance: one full-day rate per
// completed 24h, a partial-day rate for a remainder of at least 8h, another
// partial-day rate for the departure day once a full day was completed, minus
// the breakfast deduction per counted day, clamped at zero.
func FormulaTotal(durationHours float64, rate rates.JurisdictionRate, breakfast bool, deduction float64) float64 {
	fullDays := math.Floor(durationHours / FullDayHours)
	remainder := math.Mod(durationHours, FullDayHours)

	total := fullDays * rate.FullDay
	if remainder >= MinAbsenceHours {
		total += rate.PartialDay
	}
	if fullDays > 0 {
		total += rate.PartialDay
	}
	if breakfast {
		days := fullDays
		if remainder >= MinAbsenceHours {
			days++
		}
		total -= days * deduction
	}
	return math.Max(0, total)
}
