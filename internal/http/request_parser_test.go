package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int
		wantErr bool
	}{
		{"absent uses default", "", 7, false},
		{"plain integer", "3", 3, false},
		{"surrounding spaces", " 12 ", 12, false},
		{"negative is parsed, range checked later", "-1", -1, false},
		{"letters rejected", "abc", 0, true},
		{"decimal rejected", "1.5", 0, true},
		{"trailing junk rejected", "2x", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{}
			if tt.value != "" {
				q.Set("page", tt.value)
			}
			got, err := parseIntParam(q, "page", 7)
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("parseIntParam() = %d, %v, want %d", got, err, tt.want)
			}
		})
	}
}

func TestParseMonthParams(t *testing.T) {
	// 23:30 UTC on June 30 is already July in UTC+2.
	now := time.Date(2024, 6, 30, 23, 30, 0, 0, time.UTC)
	plus2 := time.FixedZone("UTC+2", 2*60*60)

	tests := []struct {
		name      string
		query     string
		loc       *time.Location
		wantMonth int
		wantYear  int
		wantErr   bool
	}{
		{"defaults in UTC", "", time.UTC, 6, 2024, false},
		{"defaults follow the ledger zone", "", plus2, 7, 2024, false},
		{"explicit values", "month=2&year=2023", time.UTC, 2, 2023, false},
		{"month only", "month=11", time.UTC, 11, 2024, false},
		{"month out of range", "month=13", time.UTC, 0, 0, true},
		{"month zero", "month=0", time.UTC, 0, 0, true},
		{"month not numeric", "month=june", time.UTC, 0, 0, true},
		{"year not numeric", "year=20x4", time.UTC, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			month, year, err := parseMonthParams(q, now, tt.loc)
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil || month != tt.wantMonth || year != tt.wantYear {
				t.Fatalf("parseMonthParams() = %d/%d, %v, want %d/%d", month, year, err, tt.wantMonth, tt.wantYear)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("time zone database unavailable: %v", err)
	}

	tests := []struct {
		name     string
		value    string
		endOfDay bool
		want     time.Time
		wantErr  bool
	}{
		{"date only start of day", "2024-03-10", false, time.Date(2024, 3, 10, 0, 0, 0, 0, rome), false},
		{"date only end of day", "2024-03-10", true, time.Date(2024, 3, 10, 23, 59, 59, 0, rome), false},
		{"rfc3339 kept as is", "2024-03-10T08:15:00Z", true, time.Date(2024, 3, 10, 8, 15, 0, 0, time.UTC), false},
		{"rfc3339 with offset", "2024-03-10T08:15:00+01:00", false, time.Date(2024, 3, 10, 7, 15, 0, 0, time.UTC), false},
		{"not a date", "yesterday", false, time.Time{}, true},
		{"impossible date", "2024-02-30", false, time.Time{}, true},
		{"us format", "03/10/2024", false, time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDate("endDate", tt.value, rome, tt.endOfDay)
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil || !got.Equal(tt.want) {
				t.Fatalf("parseDate() = %v, %v, want %v", got, err, tt.want)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	t.Run("open bounds", func(t *testing.T) {
		rng, err := parseRange(url.Values{}, time.UTC)
		if err != nil || !rng.IsZero() {
			t.Fatalf("parseRange() = %+v, %v", rng, err)
		}
	})

	t.Run("end date covers the whole day", func(t *testing.T) {
		q := url.Values{"startDate": {"2024-01-01"}, "endDate": {"2024-01-31"}}
		rng, err := parseRange(q, time.UTC)
		if err != nil {
			t.Fatalf("parseRange: %v", err)
		}
		if !rng.Contains(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)) {
			t.Fatal("last second of endDate must be included")
		}
		if rng.Contains(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
			t.Fatal("day after endDate must be excluded")
		}
	})

	t.Run("reversed bounds", func(t *testing.T) {
		q := url.Values{"startDate": {"2024-02-01"}, "endDate": {"2024-01-01"}}
		if _, err := parseRange(q, time.UTC); !core.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("same day", func(t *testing.T) {
		q := url.Values{"startDate": {"2024-02-01"}, "endDate": {"2024-02-01"}}
		if _, err := parseRange(q, time.UTC); err != nil {
			t.Fatalf("a single day range is valid: %v", err)
		}
	})
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"title":"Lunch","amount":12.5}`, ""},
		{"amount as string", `{"title":"Lunch","amount":"12.50"}`, ""},
		{"empty body", ``, "request body is empty"},
		{"malformed", `{"title":`, "invalid JSON"},
		{"unknown field", `{"title":"Lunch","colour":"red"}`, "invalid JSON"},
		{"two objects", `{"title":"a"}{"title":"b"}`, "single JSON object"},
		{"too large", `{"title":"` + strings.Repeat("a", maxBodyBytes) + `"}`, "exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(tt.body))
			var dst expenseRequest
			err := decodeJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("decodeJSON: %v", err)
				}
				if dst.Title == nil || *dst.Title != "Lunch" {
					t.Fatalf("title not decoded: %+v", dst)
				}
				return
			}
			if !core.IsValidation(err) || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want validation error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpenseRequestPatch(t *testing.T) {
	n := func(s string) *json.Number { v := json.Number(s); return &v }

	tests := []struct {
		name    string
		amount  *json.Number
		wantErr bool
	}{
		{"no amount", nil, false},
		{"two decimals", n("19.99"), false},
		{"zero", n("0"), false},
		{"negative", n("-4"), true},
		{"three decimals", n("1.005"), true},
		{"exponent", n("1e3"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch, err := expenseRequest{Amount: tt.amount}.patch(time.UTC)
			if tt.wantErr {
				if err != core.ErrInvalidAmount {
					t.Fatalf("expected ErrInvalidAmount, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("patch: %v", err)
			}
			if (tt.amount == nil) != (patch.Amount == nil) {
				t.Fatalf("amount presence not preserved: %+v", patch)
			}
		})
	}
}

func TestBudgetRequestKey(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	limit := json.Number("150")

	key, got, err := budgetRequest{Category: core.Rent, Limit: &limit}.key("alice", now, time.UTC)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if key.Month != 6 || key.Year != 2024 || key.OwnerID != "alice" || !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected key %+v limit %v", key, got)
	}

	if _, _, err := (budgetRequest{Category: core.Rent}).key("alice", now, time.UTC); !core.IsValidation(err) {
		t.Fatalf("missing limit should be a validation error, got %v", err)
	}
	bad := json.Number("-1")
	if _, _, err := (budgetRequest{Category: core.Rent, Limit: &bad}).key("alice", now, time.UTC); err != core.ErrInvalidLimit {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
}
