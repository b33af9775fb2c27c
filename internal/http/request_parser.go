package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/period"
	"fintrack/internal/services"

	"github.com/shopspring/decimal"
)

const (
	maxBodyBytes = 1 << 20 // 1MB
	dateOnly     = "2006-01-02"
)

// parseIntParam reads an optional integer query value. Anything other than
// a plain integer is a validation error, never a silent default.
func parseIntParam(q url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.Invalid(name, "must be an integer")
	}
	return n, nil
}

// parseMonthParams reads month and year, defaulting each to the month
// containing now in loc.
func parseMonthParams(q url.Values, now time.Time, loc *time.Location) (month, year int, err error) {
	current := period.MonthOf(now.In(loc))
	if month, err = parseIntParam(q, "month", int(current.Month)); err != nil {
		return 0, 0, err
	}
	if year, err = parseIntParam(q, "year", current.Year); err != nil {
		return 0, 0, err
	}
	if err := core.ValidatePeriod(month, year); err != nil {
		return 0, 0, err
	}
	return month, year, nil
}

// parsePagination reads page and limit. Range checks happen in the service
// against the configured maximum.
func parsePagination(q url.Values, defaultSize int) (page, size int, err error) {
	if page, err = parseIntParam(q, "page", 1); err != nil {
		return 0, 0, err
	}
	if size, err = parseIntParam(q, "limit", defaultSize); err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

// parseDate accepts RFC 3339 timestamps and YYYY-MM-DD dates. A date-only
// value means the start of that day in loc, or its last second when
// endOfDay is set, so that an endDate filter includes the whole day.
func parseDate(field, v string, loc *time.Location, endOfDay bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(dateOnly, v, loc)
	if err != nil {
		return time.Time{}, core.Invalid(field, "must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
	}
	if endOfDay {
		return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, loc), nil
	}
	return d, nil
}

// parseRange reads startDate and endDate. Either bound may be omitted.
func parseRange(q url.Values, loc *time.Location) (period.Range, error) {
	var rng period.Range
	var err error
	if v := q.Get("startDate"); strings.TrimSpace(v) != "" {
		if rng.From, err = parseDate("startDate", v, loc, false); err != nil {
			return period.Range{}, err
		}
	}
	if v := q.Get("endDate"); strings.TrimSpace(v) != "" {
		if rng.To, err = parseDate("endDate", v, loc, true); err != nil {
			return period.Range{}, err
		}
	}
	if !rng.From.IsZero() && !rng.To.IsZero() && rng.From.After(rng.To) {
		return period.Range{}, core.Invalid("startDate", "must not be after endDate")
	}
	return rng, nil
}

// decodeJSON decodes a single JSON object from the request body into dst,
// rejecting unknown fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return core.Invalid("body", "request body is empty")
		case errors.As(err, &maxErr):
			return core.Invalid("body", "request body exceeds %d bytes", maxErr.Limit)
		default:
			return core.Invalid("body", "invalid JSON: %v", err)
		}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return core.Invalid("body", "must contain a single JSON object")
	}
	return nil
}

// parseAmount converts an optional JSON number, answering invalid for
// malformed, negative or over-precise amounts.
func parseAmount(n *json.Number, invalid error) (*decimal.Decimal, error) {
	if n == nil {
		return nil, nil
	}
	d, err := core.ParseAmount(n.String())
	if err != nil {
		return nil, invalid
	}
	return &d, nil
}

func parseOptionalDate(v *string, loc *time.Location) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	t, err := parseDate("date", *v, loc, false)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type expenseRequest struct {
	Title       *string        `json:"title"`
	Amount      *json.Number   `json:"amount"`
	Category    *core.Category `json:"category"`
	Description *string        `json:"description"`
	Date        *string        `json:"date"`
}

func (req expenseRequest) patch(loc *time.Location) (services.ExpensePatch, error) {
	amount, err := parseAmount(req.Amount, core.ErrInvalidAmount)
	if err != nil {
		return services.ExpensePatch{}, err
	}
	date, err := parseOptionalDate(req.Date, loc)
	if err != nil {
		return services.ExpensePatch{}, err
	}
	return services.ExpensePatch{
		Title:       req.Title,
		Amount:      amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        date,
	}, nil
}

type incomeRequest struct {
	Title       *string         `json:"title"`
	Amount      *json.Number    `json:"amount"`
	Source      *core.Source    `json:"source"`
	Frequency   *core.Frequency `json:"frequency"`
	IsRecurring *bool           `json:"is_recurring"`
	Description *string         `json:"description"`
	Date        *string         `json:"date"`
}

func (req incomeRequest) patch(loc *time.Location) (services.IncomePatch, error) {
	amount, err := parseAmount(req.Amount, core.ErrInvalidAmount)
	if err != nil {
		return services.IncomePatch{}, err
	}
	date, err := parseOptionalDate(req.Date, loc)
	if err != nil {
		return services.IncomePatch{}, err
	}
	return services.IncomePatch{
		Title:       req.Title,
		Amount:      amount,
		Source:      req.Source,
		Frequency:   req.Frequency,
		IsRecurring: req.IsRecurring,
		Description: req.Description,
		Date:        date,
	}, nil
}

type budgetRequest struct {
	Category core.Category `json:"category"`
	Limit    *json.Number  `json:"limit"`
	Month    *int          `json:"month"`
	Year     *int          `json:"year"`
}

// key resolves the budget period, defaulting month and year to the month
// containing now in loc.
func (req budgetRequest) key(owner string, now time.Time, loc *time.Location) (core.BudgetKey, decimal.Decimal, error) {
	limit, err := parseAmount(req.Limit, core.ErrInvalidLimit)
	if err != nil {
		return core.BudgetKey{}, decimal.Decimal{}, err
	}
	if limit == nil {
		return core.BudgetKey{}, decimal.Decimal{}, core.Invalid("limit", "limit is required")
	}

	current := period.MonthOf(now.In(loc))
	key := core.BudgetKey{
		OwnerID:  owner,
		Category: req.Category,
		Month:    int(current.Month),
		Year:     current.Year,
	}
	if req.Month != nil {
		key.Month = *req.Month
	}
	if req.Year != nil {
		key.Year = *req.Year
	}
	return key, *limit, nil
}
