package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/currency"
	"github.com/raven-rwho/rem-expenses/internal/log"
	"github.com/raven-rwho/rem-expenses/internal/storage"
)

// Dispatcher hands a conversion request to whoever resolves it: the
// in-process worker pool or the message broker.
type Dispatcher interface {
	Dispatch(ctx context.Context, req core.ConversionRequest) error
}

// ErrStaleConversion is reported by Apply when the item changed or vanished
// after the conversion was requested.
var ErrStaleConversion = errors.New("stale conversion result")

type ConversionService struct {
	drafts     storage.DraftStore
	converter  currency.Converter
	dispatcher Dispatcher
	logger     *log.Logger
	now        func() time.Time
}

func NewConversionService(drafts storage.DraftStore, converter currency.Converter, logger *log.Logger) *ConversionService {
	if logger == nil {
		logger = log.Default(log.ComponentConversion)
	}
	return &ConversionService{
		drafts:    drafts,
		converter: converter,
		logger:    logger,
		now:       time.Now,
	}
}

// SetDispatcher wires the dispatcher. The pool needs the service to exist
// first, so this cannot be a constructor argument.
func (s *ConversionService) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// SetItem inserts or replaces a line item and starts its conversion.
//
// Every call bumps the item's revision. EUR amounts are converted in place
// (rate 1); foreign amounts lose their converted value until the
// asynchronous result for the new revision arrives. Kilometers are never
// converted.
func (s *ConversionService) SetItem(ctx context.Context, draftID string, category core.Category, item core.LineItem) (core.LineItem, error) {
	if err := item.Validate(); err != nil {
		return core.LineItem{}, err
	}
	if _, err := core.ParseCategory(string(category)); err != nil {
		return core.LineItem{}, err
	}
	item.Currency = currency.Normalize(item.Currency)
	if category != core.VehicleKilometers {
		if err := currency.Validate(item.Currency); err != nil {
			return core.LineItem{}, err
		}
	}

	var saved core.LineItem
	_, err := s.drafts.Update(ctx, draftID, func(d *core.Draft) error {
		items := d.Expenses.Items(category)
		idx := -1
		if item.ID != "" {
			idx = d.Expenses.FindItem(category, item.ID)
			if idx < 0 {
				return fmt.Errorf("%w: %s", core.ErrItemNotFound, item.ID)
			}
			item.Revision = items[idx].Revision + 1
		} else {
			item.ID = uuid.NewString()
			item.Revision = 1
		}

		switch {
		case category == core.VehicleKilometers:
			item = item.WithoutConversion()
		case item.Currency == core.BaseCurrency:
			item = item.WithConversion(item.Amount, 1)
		default:
			item = item.WithoutConversion()
		}

		next := append([]core.LineItem(nil), items...)
		if idx < 0 {
			next = append(next, item)
		} else {
			next[idx] = item
		}
		saved = item
		return d.Expenses.SetItems(category, next)
	})
	if err != nil {
		return core.LineItem{}, err
	}

	if category != core.VehicleKilometers && saved.NeedsConversion() {
		s.dispatch(ctx, core.ConversionRequest{
			DraftID:     draftID,
			Category:    category,
			ItemID:      saved.ID,
			Revision:    saved.Revision,
			Amount:      saved.Amount,
			Currency:    saved.Currency,
			RequestedAt: s.now().UTC(),
		})
	}
	return saved, nil
}

func (s *ConversionService) dispatch(ctx context.Context, req core.ConversionRequest) {
	fields := log.NewFields().WithItem(req.DraftID, string(req.Category), req.ItemID, req.Revision)
	if s.dispatcher == nil {
		s.logger.WarnContext(ctx, "No conversion dispatcher configured, item stays unconverted", fields.ToSlice()...)
		return
	}
	if err := s.dispatcher.Dispatch(ctx, req); err != nil {
		// the item keeps its raw amount until it is edited again
		s.logger.ErrorContext(ctx, "Failed to dispatch conversion", fields.WithError(err).ToSlice()...)
		return
	}
	s.logger.DebugContext(ctx, "Conversion dispatched", fields.ToSlice()...)
}

// RemoveItem deletes a line item. Pending conversions for it become stale.
func (s *ConversionService) RemoveItem(ctx context.Context, draftID string, category core.Category, itemID string) error {
	_, err := s.drafts.Update(ctx, draftID, func(d *core.Draft) error {
		idx := d.Expenses.FindItem(category, itemID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", core.ErrItemNotFound, itemID)
		}
		items := d.Expenses.Items(category)
		next := make([]core.LineItem, 0, len(items)-1)
		next = append(next, items[:idx]...)
		next = append(next, items[idx+1:]...)
		return d.Expenses.SetItems(category, next)
	})
	return err
}

// Handle resolves one request and applies the result. Converter failures
// are logged and leave the item unconverted; only storage failures are
// returned.
func (s *ConversionService) Handle(ctx context.Context, req core.ConversionRequest) error {
	fields := log.NewFields().
		WithItem(req.DraftID, string(req.Category), req.ItemID, req.Revision).
		WithOperation(log.OpConvert)
	fields[log.FieldCurrency] = req.Currency
	fields[log.FieldAmount] = req.Amount

	conv, err := s.converter.ConvertToEUR(ctx, req.Amount, req.Currency)
	if err != nil {
		errType := log.ErrorTypeValidation
		if errors.Is(err, currency.ErrUpstream) || ctx.Err() != nil {
			errType = log.ErrorTypeNetwork
		}
		s.logger.WarnContext(ctx, "Currency conversion failed", fields.WithError(err).WithErrorType(errType).ToSlice()...)
		return nil
	}

	applied, err := s.Apply(ctx, core.ConversionResult{
		DraftID:   req.DraftID,
		Category:  req.Category,
		ItemID:    req.ItemID,
		Revision:  req.Revision,
		AmountEUR: conv.Amount,
		Rate:      conv.Rate,
		RateDate:  conv.Date,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDraftNotFound) {
			s.logger.InfoContext(ctx, "Dropping conversion for deleted draft", fields.ToSlice()...)
			return nil
		}
		return err
	}
	if applied {
		fields[log.FieldRate] = conv.Rate
		s.logger.InfoContext(ctx, "Conversion applied", fields.ToSlice()...)
	}
	return nil
}

// Apply writes a result into the latest draft state if the item still
// exists with the requested revision. It reports whether it was applied.
func (s *ConversionService) Apply(ctx context.Context, res core.ConversionResult) (bool, error) {
	_, err := s.drafts.Update(ctx, res.DraftID, func(d *core.Draft) error {
		idx := d.Expenses.FindItem(res.Category, res.ItemID)
		if idx < 0 {
			return fmt.Errorf("%w: item %s removed", ErrStaleConversion, res.ItemID)
		}
		items := d.Expenses.Items(res.Category)
		if items[idx].Revision != res.Revision {
			return fmt.Errorf("%w: item %s at revision %d, result for %d",
				ErrStaleConversion, res.ItemID, items[idx].Revision, res.Revision)
		}
		next := append([]core.LineItem(nil), items...)
		next[idx] = next[idx].WithConversion(res.AmountEUR, res.Rate)
		return d.Expenses.SetItems(res.Category, next)
	})
	if errors.Is(err, ErrStaleConversion) {
		s.logger.DebugContext(ctx, "Dropping stale conversion",
			log.NewFields().WithItem(res.DraftID, string(res.Category), res.ItemID, res.Revision).WithError(err).ToSlice()...)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// assignItemIDs gives every item without an ID a fresh one.
func assignItemIDs(items *core.ExpenseItems) {
	for _, c := range core.Categories() {
		list := items.Items(c)
		for i := range list {
			if list[i].ID == "" {
				list[i].ID = uuid.NewString()
			}
		}
	}
}
