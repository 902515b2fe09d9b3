package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(string(c))
		if err != nil || got != c {
			t.Fatalf("ParseCategory(%q) = %q, %v", c, got, err)
		}
	}
	if got, err := ParseCategory("OTHERCOSTS"); err != nil || got != OtherCosts {
		t.Fatalf("case-insensitive parse failed: %q %v", got, err)
	}
	if _, err := ParseCategory("mealAllowance"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestLineItemEffectiveAmount(t *testing.T) {
	item := LineItem{Amount: 100, Currency: "CHF"}
	if item.EffectiveAmount() != 100 {
		t.Fatalf("without conversion expected raw amount")
	}
	if !item.NeedsConversion() {
		t.Fatalf("CHF item should need conversion")
	}

	converted := item.WithConversion(104.5, 1.045)
	if converted.EffectiveAmount() != 104.5 {
		t.Fatalf("expected converted amount, got %v", converted.EffectiveAmount())
	}
	if item.AmountEUR != nil {
		t.Fatalf("WithConversion must not modify the receiver")
	}
	if converted.WithoutConversion().AmountEUR != nil {
		t.Fatalf("WithoutConversion should clear fields")
	}

	if (LineItem{Amount: 0, Currency: "USD"}).NeedsConversion() {
		t.Fatalf("zero amount never needs conversion")
	}
	if (LineItem{Amount: 5}).NeedsConversion() {
		t.Fatalf("empty currency defaults to EUR")
	}
}

func TestNewLineItemDefaults(t *testing.T) {
	it := NewLineItem()
	if it.Currency != "EUR" || it.AmountEUR == nil || *it.AmountEUR != 0 || it.ExchangeRate == nil || *it.ExchangeRate != 1 {
		t.Fatalf("unexpected defaults %+v", it)
	}
}

func TestExpenseItemsCloneIsDeep(t *testing.T) {
	orig := ExpenseItems{PublicTransport: []LineItem{LineItem{Amount: 10}.WithConversion(10, 1)}}
	cp := orig.Clone()
	*cp.PublicTransport[0].AmountEUR = 99
	cp.PublicTransport[0].Description = "changed"
	if *orig.PublicTransport[0].AmountEUR != 10 || orig.PublicTransport[0].Description != "" {
		t.Fatalf("clone shares memory with original")
	}
}

func TestExpenseItemsSetAndFind(t *testing.T) {
	var e ExpenseItems
	if err := e.SetItems(OtherCosts, []LineItem{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatal(err)
	}
	if e.FindItem(OtherCosts, "b") != 1 || e.FindItem(OtherCosts, "x") != -1 {
		t.Fatalf("FindItem mismatch")
	}
	if err := e.SetItems(Category("nope"), nil); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestExpenseItemsValidate(t *testing.T) {
	e := ExpenseItems{OtherCosts: []LineItem{{Amount: -1}}}
	if err := e.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestNewDraft(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := NewDraft("id-1", now)
	if d.TravelDetails.DepartureDate != "01.03.2026" || d.TravelDetails.ReturnTime != "18:00" {
		t.Fatalf("unexpected travel defaults %+v", d.TravelDetails)
	}
	for _, c := range Categories() {
		if len(d.Expenses.Items(c)) != 1 {
			t.Fatalf("category %s should have one default item", c)
		}
	}
	if _, err := d.TravelDetails.Departure(); err != nil {
		t.Fatalf("default departure should parse: %v", err)
	}
}

func TestRoute(t *testing.T) {
	td := TravelDetails{StartLocation: "Berlin", Destination: "Zürich"}
	if td.Route() != "Berlin - Zürich - Berlin" {
		t.Fatalf("Route() = %q", td.Route())
	}
}
