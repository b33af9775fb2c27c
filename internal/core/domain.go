package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Groceries      Category = "Groceries"
	Utilities      Category = "Utilities"
	Entertainment  Category = "Entertainment"
	DiningOut      Category = "Dining Out"
	Transportation Category = "Transportation"
	Healthcare     Category = "Healthcare"
	Clothing       Category = "Clothing"
	Education      Category = "Education"
	Rent           Category = "Rent"
	OtherCategory  Category = "Other"
)

const (
	Salary      Source = "Salary"
	Freelance   Source = "Freelance"
	Bonus       Source = "Bonus"
	Investment  Source = "Investment"
	Rental      Source = "Rental"
	OtherSource Source = "Other"
)

const (
	OneTime Frequency = "One-time"
	Daily   Frequency = "Daily"
	Weekly  Frequency = "Weekly"
	Monthly Frequency = "Monthly"
	Yearly  Frequency = "Yearly"
)

const (
	EntryExpense EntryType = "expense"
	EntryIncome  EntryType = "income"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000
	minYear              = 1900
	maxYear              = 9999
)

var (
	categories  = []Category{Groceries, Utilities, Entertainment, DiningOut, Transportation, Healthcare, Clothing, Education, Rent, OtherCategory}
	sources     = []Source{Salary, Freelance, Bonus, Investment, Rental, OtherSource}
	frequencies = []Frequency{OneTime, Daily, Weekly, Monthly, Yearly}
)

type (
	Category  string
	Source    string
	Frequency string
	EntryType string

	// Entry is the capability shared by both ledger entry variants.
	Entry interface {
		EntryDate() time.Time
		EntryAmount() decimal.Decimal
		EntryTitle() string
	}

	Expense struct {
		ID          string          `json:"id"`
		OwnerID     string          `json:"owner_id"`
		Title       string          `json:"title"`
		Amount      decimal.Decimal `json:"amount"`
		Category    Category        `json:"category"`
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	Income struct {
		ID          string          `json:"id"`
		OwnerID     string          `json:"owner_id"`
		Title       string          `json:"title"`
		Amount      decimal.Decimal `json:"amount"`
		Source      Source          `json:"source"`
		Frequency   Frequency       `json:"frequency"`
		IsRecurring bool            `json:"is_recurring"`
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	// Budget is a spending limit for one category in one calendar month.
	Budget struct {
		ID        string          `json:"id"`
		OwnerID   string          `json:"owner_id"`
		Category  Category        `json:"category"`
		Limit     decimal.Decimal `json:"limit"`
		Month     int             `json:"month"`
		Year      int             `json:"year"`
		CreatedAt time.Time       `json:"created_at"`
		UpdatedAt time.Time       `json:"updated_at"`
	}

	// BudgetKey identifies a budget period. At most one Budget exists per key.
	BudgetKey struct {
		OwnerID  string
		Category Category
		Month    int
		Year     int
	}
)

// Categories returns the fixed set of expense categories in display order.
func Categories() []Category { return append([]Category(nil), categories...) }

// Sources returns the fixed set of income sources.
func Sources() []Source { return append([]Source(nil), sources...) }

// Frequencies returns the fixed set of income frequencies.
func Frequencies() []Frequency { return append([]Frequency(nil), frequencies...) }

func (c Category) Valid() bool {
	for _, v := range categories {
		if c == v {
			return true
		}
	}
	return false
}

func (s Source) Valid() bool {
	for _, v := range sources {
		if s == v {
			return true
		}
	}
	return false
}

func (f Frequency) Valid() bool {
	for _, v := range frequencies {
		if f == v {
			return true
		}
	}
	return false
}

// ParseEntryType accepts "expense" or "income". The empty string means both
// and is returned unchanged.
func ParseEntryType(s string) (EntryType, error) {
	switch t := EntryType(strings.ToLower(strings.TrimSpace(s))); t {
	case "", EntryExpense, EntryIncome:
		return t, nil
	default:
		return "", Invalid("type", "must be %q or %q", EntryExpense, EntryIncome)
	}
}

// ValidatePeriod checks a budget period month and year.
func ValidatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	if year < minYear || year > maxYear {
		return ErrInvalidYear
	}
	return nil
}

// NormalizeDate truncates t to whole seconds. Month bounds end at 23:59:59,
// so sub-second precision would open a gap at the end of every month.
func NormalizeDate(t time.Time) time.Time {
	return t.Truncate(time.Second)
}

func (e Expense) EntryDate() time.Time { return e.Date }
func (e Expense) EntryAmount() decimal.Decimal { return e.Amount }
func (e Expense) EntryTitle() string { return e.Title }
func (i Income) EntryDate() time.Time { return i.Date }
func (i Income) EntryAmount() decimal.Decimal { return i.Amount }
func (i Income) EntryTitle() string { return i.Title }

// Normalize trims text fields, applies the category default and truncates
// the date.
func (e *Expense) Normalize() {
	e.Title = strings.TrimSpace(e.Title)
	e.Description = strings.TrimSpace(e.Description)
	if e.Category == "" {
		e.Category = OtherCategory
	}
	e.Date = NormalizeDate(e.Date)
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if err := validateText(e.Title, e.Description); err != nil {
		return err
	}
	if !ValidAmount(e.Amount) {
		return ErrInvalidAmount
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// Normalize trims text fields, applies source and frequency defaults and
// truncates the date.
func (i *Income) Normalize() {
	i.Title = strings.TrimSpace(i.Title)
	i.Description = strings.TrimSpace(i.Description)
	if i.Source == "" {
		i.Source = OtherSource
	}
	if i.Frequency == "" {
		i.Frequency = Monthly
	}
	i.Date = NormalizeDate(i.Date)
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if err := validateText(i.Title, i.Description); err != nil {
		return err
	}
	if !ValidAmount(i.Amount) {
		return ErrInvalidAmount
	}
	if !i.Source.Valid() {
		return ErrInvalidSource
	}
	if !i.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if i.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (k BudgetKey) Validate() error {
	if strings.TrimSpace(k.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if !k.Category.Valid() {
		return ErrInvalidCategory
	}
	return ValidatePeriod(k.Month, k.Year)
}

// Key returns the budget period key of b.
func (b Budget) Key() BudgetKey {
	return BudgetKey{OwnerID: b.OwnerID, Category: b.Category, Month: b.Month, Year: b.Year}
}

func validateText(title, description string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if len(title) > maxTitleLength {
		return Invalid("title", "too long (max %d characters)", maxTitleLength)
	}
	if len(description) > maxDescriptionLength {
		return Invalid("description", "too long (max %d characters)", maxDescriptionLength)
	}
	return nil
}
