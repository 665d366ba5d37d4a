package library

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Library bundles the stores and business rules behind one façade, keeping
// the console code simple. All date arithmetic goes through now so tests can
// pin the clock.
type Library struct {
	db    *DB
	store Store

	loanPeriodDays int
	dailyFineRate  decimal.Decimal
	librarianUser  string
	librarianPass  string

	now func() time.Time
}

// NewLibrary builds the service façade from an open database and config.
func NewLibrary(db *DB, cfg Config) (*Library, error) {
	if cfg.Circulation.LoanPeriodDays <= 0 {
		return nil, fmt.Errorf("loan period must be positive, got %d", cfg.Circulation.LoanPeriodDays)
	}
	rate, err := decimal.NewFromString(cfg.Circulation.DailyFineRate)
	if err != nil {
		return nil, fmt.Errorf("parse daily fine rate %q: %w", cfg.Circulation.DailyFineRate, err)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("daily fine rate must not be negative, got %s", rate)
	}
	return &Library{
		db:             db,
		loanPeriodDays: cfg.Circulation.LoanPeriodDays,
		dailyFineRate:  rate,
		librarianUser:  cfg.Librarian.Username,
		librarianPass:  cfg.Librarian.Password,
		now:            time.Now,
	}, nil
}

// today truncates the clock to a calendar day in UTC; loan and fine dates are
// day-granular.
func (l *Library) today() time.Time {
	t := l.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
