// Package services holds the application use cases: calculating reports and
// keeping line item conversions consistent with the drafts they belong to.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/log"
	"github.com/raven-rwho/rem-expenses/internal/perdiem"
	"github.com/raven-rwho/rem-expenses/internal/rates"
	"github.com/raven-rwho/rem-expenses/internal/storage"
)

// Calculation is a report plus the per-diem details shown next to it.
type Calculation struct {
	Report        core.ExpenseReport     `json:"report"`
	Rate          rates.JurisdictionRate `json:"rate"`
	DurationHours float64                `json:"durationHours"`
	FormulaTotal  float64                `json:"formulaTotal"`
	Diverges      bool                   `json:"diverges"`
	Suggestions   []string               `json:"suggestions,omitempty"`
}

type ReportService struct {
	calc   *perdiem.Calculator
	drafts storage.DraftStore
	logger *log.Logger
	now    func() time.Time
}

func NewReportService(calc *perdiem.Calculator, drafts storage.DraftStore, logger *log.Logger) *ReportService {
	if logger == nil {
		logger = log.Default(log.ComponentReport)
	}
	return &ReportService{calc: calc, drafts: drafts, logger: logger, now: time.Now}
}

// Calculate validates the inputs, computes the meal allowance and aggregates
// the report. Breakfast is deducted when any hotel with breakfast was entered.
func (s *ReportService) Calculate(ctx context.Context, details core.TravelDetails, items core.ExpenseItems) (Calculation, error) {
	dep, err := details.Departure()
	if err != nil {
		return Calculation{}, fmt.Errorf("departure: %w", err)
	}
	ret, err := details.Return()
	if err != nil {
		return Calculation{}, fmt.Errorf("return: %w", err)
	}
	if err := items.Validate(); err != nil {
		return Calculation{}, err
	}

	res, err := s.calc.Calculate(ctx, perdiem.Trip{
		Departure:         dep,
		Return:            ret,
		Jurisdiction:      details.DestinationCountry,
		BreakfastIncluded: core.HasBreakfast(items),
	})
	if err != nil {
		return Calculation{}, err
	}

	report := core.Aggregate(details, items, res.Allowance())

	s.logger.InfoContext(ctx, "Report calculated",
		log.FieldOperation, log.OpCalculate,
		log.FieldJurisdiction, res.Rate.Jurisdiction,
		log.FieldFallback, res.Rate.Fallback,
		log.FieldDurationHours, res.DurationHours,
		log.FieldSegments, len(res.Breakdown),
		log.FieldAllowance, res.Total,
		log.FieldReportTotal, report.Total)

	return Calculation{
		Report:        report,
		Rate:          res.Rate,
		DurationHours: res.DurationHours,
		FormulaTotal:  res.FormulaTotal,
		Diverges:      res.Diverges(),
		Suggestions:   res.Suggestions,
	}, nil
}

// CalculateDraft calculates the report of a stored draft.
func (s *ReportService) CalculateDraft(ctx context.Context, id string) (Calculation, error) {
	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return Calculation{}, err
	}
	return s.Calculate(ctx, d.TravelDetails, d.Expenses)
}

// LoadOrDefault returns the stored draft, or creates a fresh default draft
// under the same ID when none exists or the stored one is unreadable.
func (s *ReportService) LoadOrDefault(ctx context.Context, id string) (core.Draft, error) {
	if id != "" {
		d, err := s.drafts.Get(ctx, id)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, storage.ErrDraftNotFound) {
			return core.Draft{}, err
		}
		if errors.Is(err, storage.ErrDraftCorrupt) {
			s.logger.WarnContext(ctx, "Replacing unreadable draft with defaults", log.FieldDraftID, id)
			if err := s.drafts.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrDraftNotFound) {
				return core.Draft{}, err
			}
		}
	}
	d := core.NewDraft(id, s.now())
	assignItemIDs(&d.Expenses)
	return s.drafts.Create(ctx, d)
}

// SaveDetails replaces the travel details of a draft. Line items are left
// alone; they change through ConversionService only.
func (s *ReportService) SaveDetails(ctx context.Context, id string, details core.TravelDetails) (core.Draft, error) {
	return s.drafts.Update(ctx, id, func(d *core.Draft) error {
		d.TravelDetails = details
		return nil
	})
}
