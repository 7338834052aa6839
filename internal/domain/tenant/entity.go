package tenant

import (
	"time"

	"github.com/shopspring/decimal"
)

type Tenant struct {
	ID        string
	Name      string
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Settings is the per-tenant payroll configuration. It is loaded and
// defaulted once by the repository; callers never re-default individual
// fields.
type Settings struct {
	TenantID             string
	Timezone             string
	AverageDaysPerMonth  decimal.Decimal
	BreakTimeHours       decimal.Decimal
	WeeklyPenaltyEnabled bool
	// WeeklyAbsentThreshold is the per-week absence count that triggers a
	// penalty day. The Sunday-bonus present threshold is its complement
	// (7 - threshold).
	WeeklyAbsentThreshold int
}

// DefaultSettings returns the configuration applied to tenants that never
// customized payroll behavior.
func DefaultSettings(tenantID string) Settings {
	return Settings{
		TenantID:              tenantID,
		Timezone:              "UTC",
		AverageDaysPerMonth:   decimal.NewFromFloat(30.4),
		BreakTimeHours:        decimal.NewFromFloat(0.5),
		WeeklyPenaltyEnabled:  false,
		WeeklyAbsentThreshold: 4,
	}
}

// Location resolves the tenant timezone, falling back to UTC for bad data.
func (s Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks settings once at load time.
func (s Settings) Validate() error {
	if s.AverageDaysPerMonth.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidSettings
	}
	if s.BreakTimeHours.IsNegative() {
		return ErrInvalidSettings
	}
	if s.WeeklyAbsentThreshold < 2 || s.WeeklyAbsentThreshold > 7 {
		return ErrInvalidSettings
	}
	return nil
}

// SundayBonusPresentThreshold is the Mon-Sat present-day count that earns
// the Sunday bonus.
func (s Settings) SundayBonusPresentThreshold() int {
	return 7 - s.WeeklyAbsentThreshold
}
