package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validExpense() Expense {
	return Expense{
		OwnerID:  "owner-1",
		Title:    "Weekly shop",
		Amount:   decimal.RequireFromString("42.50"),
		Category: Groceries,
		Date:     time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

func validIncome() Income {
	return Income{
		OwnerID:   "owner-1",
		Title:     "March salary",
		Amount:    decimal.RequireFromString("3000"),
		Source:    Salary,
		Frequency: Monthly,
		Date:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestExpenseValidate(t *testing.T) {
	if err := validExpense().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"missing owner", func(e *Expense) { e.OwnerID = "" }, ErrEmptyOwner},
		{"blank title", func(e *Expense) { e.Title = "   " }, ErrEmptyTitle},
		{"negative amount", func(e *Expense) { e.Amount = decimal.NewFromInt(-1) }, ErrInvalidAmount},
		{"three decimals", func(e *Expense) { e.Amount = decimal.RequireFromString("1.005") }, ErrInvalidAmount},
		{"unknown category", func(e *Expense) { e.Category = "Gadgets" }, ErrInvalidCategory},
		{"zero date", func(e *Expense) { e.Date = time.Time{} }, ErrZeroDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := validExpense()
			tc.mutate(&e)
			if err := e.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestExpenseZeroAmountIsValid(t *testing.T) {
	e := validExpense()
	e.Amount = decimal.Zero
	if err := e.Validate(); err != nil {
		t.Fatalf("zero amount should be accepted, got %v", err)
	}
}

func TestExpenseNormalize(t *testing.T) {
	e := Expense{
		Title:       "  Bus ticket ",
		Description: " commute ",
		Date:        time.Date(2024, 1, 31, 23, 59, 59, 900_000_000, time.UTC),
	}
	e.Normalize()
	if e.Title != "Bus ticket" || e.Description != "commute" {
		t.Fatalf("text not trimmed: %q %q", e.Title, e.Description)
	}
	if e.Category != OtherCategory {
		t.Fatalf("category default = %q, want %q", e.Category, OtherCategory)
	}
	if e.Date.Nanosecond() != 0 {
		t.Fatalf("date not truncated: %v", e.Date)
	}
}

func TestIncomeValidateAndDefaults(t *testing.T) {
	if err := validIncome().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	i := Income{OwnerID: "o", Title: "gift", Amount: decimal.NewFromInt(10), Date: time.Now()}
	i.Normalize()
	if i.Source != OtherSource || i.Frequency != Monthly {
		t.Fatalf("defaults not applied: source=%q frequency=%q", i.Source, i.Frequency)
	}

	bad := validIncome()
	bad.Frequency = "Hourly"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
	bad = validIncome()
	bad.Source = "Lottery"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidSource) {
		t.Fatalf("expected ErrInvalidSource, got %v", err)
	}
}

func TestBudgetKeyValidate(t *testing.T) {
	cases := []struct {
		key BudgetKey
		ok  bool
	}{
		{BudgetKey{OwnerID: "o", Category: Rent, Month: 1, Year: 2024}, true},
		{BudgetKey{OwnerID: "o", Category: Rent, Month: 12, Year: 2024}, true},
		{BudgetKey{OwnerID: "o", Category: Rent, Month: 0, Year: 2024}, false},
		{BudgetKey{OwnerID: "o", Category: Rent, Month: 13, Year: 2024}, false},
		{BudgetKey{OwnerID: "o", Category: Rent, Month: 5, Year: 20}, false},
		{BudgetKey{OwnerID: "o", Category: "Pets", Month: 5, Year: 2024}, false},
		{BudgetKey{Category: Rent, Month: 5, Year: 2024}, false},
	}
	for i, tc := range cases {
		err := tc.key.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && !IsValidation(err) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestParseEntryType(t *testing.T) {
	for in, want := range map[string]EntryType{"": "", "expense": EntryExpense, " Income ": EntryIncome} {
		got, err := ParseEntryType(in)
		if err != nil || got != want {
			t.Fatalf("ParseEntryType(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseEntryType("transfer"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransactionVariants(t *testing.T) {
	et := ExpenseTransaction(validExpense())
	if et.Type != EntryExpense || et.Category == nil || et.Source != nil || et.IsRecurring != nil {
		t.Fatalf("unexpected expense transaction: %+v", et)
	}
	it := IncomeTransaction(validIncome())
	if it.Type != EntryIncome || it.Category != nil || it.Source == nil || *it.Frequency != Monthly {
		t.Fatalf("unexpected income transaction: %+v", it)
	}
}

func TestErrorKinds(t *testing.T) {
	if !IsNotFound(NotFound("budget", "b1")) {
		t.Fatal("NotFound not detected")
	}
	if !IsConflict(&ConflictError{Resource: "budget", Message: "exists"}) {
		t.Fatal("ConflictError not detected")
	}
	if IsValidation(errors.New("plain")) {
		t.Fatal("plain error detected as validation")
	}
}
