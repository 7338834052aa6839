// Package mocks holds in-memory repository implementations for service
// tests. They keep real state and real locking semantics so concurrency
// behavior can be exercised without a database.
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/staffdesk/payroll-engine-go/internal/domain/advance"
	"github.com/staffdesk/payroll-engine-go/internal/domain/attendance"
	"github.com/staffdesk/payroll-engine-go/internal/domain/employee"
	"github.com/staffdesk/payroll-engine-go/internal/domain/holiday"
	"github.com/staffdesk/payroll-engine-go/internal/domain/payroll"
	"github.com/staffdesk/payroll-engine-go/internal/domain/pending"
	"github.com/staffdesk/payroll-engine-go/internal/domain/summary"
	"github.com/staffdesk/payroll-engine-go/internal/domain/tenant"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/dateutil"
)

// TenantRepo serves one fixed settings value.
type TenantRepo struct {
	Settings tenant.Settings
}

func (r *TenantRepo) GetByID(_ context.Context, id string) (tenant.Tenant, error) {
	return tenant.Tenant{ID: id}, nil
}

func (r *TenantRepo) GetSettings(context.Context, string) (tenant.Settings, error) {
	return r.Settings, nil
}

// EmployeeRepo serves a fixed employee set.
type EmployeeRepo struct {
	Employees []employee.Employee
}

func (r *EmployeeRepo) GetByID(_ context.Context, id string, tenantID string) (employee.Employee, error) {
	for _, e := range r.Employees {
		if e.ID == id && e.TenantID == tenantID {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (r *EmployeeRepo) GetByCode(_ context.Context, code string, tenantID string) (employee.Employee, error) {
	for _, e := range r.Employees {
		if e.EmployeeCode == code && e.TenantID == tenantID {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (r *EmployeeRepo) GetActiveByTenantID(_ context.Context, tenantID string) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, e := range r.Employees {
		if e.TenantID == tenantID && e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

// AttendanceRepo stores day records in memory.
type AttendanceRepo struct {
	mu      sync.Mutex
	seq     int
	Records map[string]attendance.DayRecord
}

func NewAttendanceRepo() *AttendanceRepo {
	return &AttendanceRepo{Records: make(map[string]attendance.DayRecord)}
}

func (r *AttendanceRepo) Create(_ context.Context, rec attendance.DayRecord) (attendance.DayRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == "" {
		r.seq++
		rec.ID = fmt.Sprintf("rec-%d", r.seq)
	}
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	r.Records[rec.ID] = rec
	return rec, nil
}

func (r *AttendanceRepo) GetByID(_ context.Context, id string, tenantID string) (attendance.DayRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.Records[id]
	if !ok || rec.TenantID != tenantID {
		return attendance.DayRecord{}, attendance.ErrRecordNotFound
	}
	return rec, nil
}

func (r *AttendanceRepo) GetByEmployeeAndDate(_ context.Context, employeeID string, date time.Time, tenantID string) (*attendance.DayRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.Records {
		if rec.EmployeeID == employeeID && rec.TenantID == tenantID && dateutil.SameDate(rec.Date, date) {
			out := rec
			return &out, nil
		}
	}
	return nil, nil
}

func (r *AttendanceRepo) Update(_ context.Context, rec attendance.DayRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Records[rec.ID]; !ok {
		return attendance.ErrRecordNotFound
	}
	rec.UpdatedAt = time.Now().UTC()
	r.Records[rec.ID] = rec
	return nil
}

func (r *AttendanceRepo) ListByTenantMonth(_ context.Context, tenantID string, year int, month time.Month) ([]attendance.DayRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []attendance.DayRecord
	for _, rec := range r.Records {
		if rec.TenantID == tenantID && rec.Date.Year() == year && rec.Date.Month() == month {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *AttendanceRepo) ListByEmployeeRange(_ context.Context, employeeID string, from, to time.Time, tenantID string) ([]attendance.DayRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []attendance.DayRecord
	for _, rec := range r.Records {
		if rec.EmployeeID == employeeID && rec.TenantID == tenantID &&
			!rec.Date.Before(from) && !rec.Date.After(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *AttendanceRepo) SetPenaltyIgnored(_ context.Context, id string, tenantID string, ignored bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.Records[id]
	if !ok || rec.TenantID != tenantID {
		return attendance.ErrRecordNotFound
	}
	rec.PenaltyIgnored = ignored
	r.Records[id] = rec
	return nil
}

// SummaryRepo stores monthly summaries in memory.
type SummaryRepo struct {
	mu        sync.Mutex
	seq       int
	Summaries map[string]summary.MonthlySummary
}

func NewSummaryRepo() *SummaryRepo {
	return &SummaryRepo{Summaries: make(map[string]summary.MonthlySummary)}
}

func (r *SummaryRepo) key(s summary.MonthlySummary) string {
	return fmt.Sprintf("%s/%s/%d/%d", s.TenantID, s.EmployeeID, s.Year, s.Month)
}

func (r *SummaryRepo) UpsertBulk(_ context.Context, rows []summary.MonthlySummary) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	created, updated := 0, 0
	for _, row := range rows {
		k := r.key(row)
		if existing, ok := r.Summaries[k]; ok {
			row.ID = existing.ID
			updated++
		} else {
			r.seq++
			row.ID = fmt.Sprintf("sum-%d", r.seq)
			created++
		}
		r.Summaries[k] = row
	}
	return created, updated, nil
}

func (r *SummaryRepo) GetByEmployeeMonth(_ context.Context, employeeID string, year int, month time.Month, tenantID string) (summary.MonthlySummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.Summaries {
		if s.EmployeeID == employeeID && s.Year == year && s.Month == month && s.TenantID == tenantID {
			return s, nil
		}
	}
	return summary.MonthlySummary{}, summary.ErrSummaryNotFound
}

func (r *SummaryRepo) ListByTenantMonth(_ context.Context, tenantID string, year int, month time.Month) ([]summary.MonthlySummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []summary.MonthlySummary
	for _, s := range r.Summaries {
		if s.TenantID == tenantID && s.Year == year && s.Month == month {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *SummaryRepo) UpdateAbsentDays(_ context.Context, id string, tenantID string, absentDays int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, s := range r.Summaries {
		if s.ID == id && s.TenantID == tenantID {
			s.AbsentDays = absentDays
			r.Summaries[k] = s
			return nil
		}
	}
	return summary.ErrSummaryNotFound
}

// PendingRepo mimics the queue table including claim exclusivity: ClaimBatch
// holds one lock for the whole claim, so two concurrent drains can never
// claim the same row.
type PendingRepo struct {
	mu      sync.Mutex
	seq     int
	Updates map[string]*pending.Update
}

func NewPendingRepo() *PendingRepo {
	return &PendingRepo{Updates: make(map[string]*pending.Update)}
}

func (r *PendingRepo) Create(_ context.Context, upd pending.Update) (pending.Update, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	upd.ID = fmt.Sprintf("upd-%d", r.seq)
	if upd.Status == "" {
		upd.Status = pending.StatusPending
	}
	stored := upd
	r.Updates[upd.ID] = &stored
	return upd, nil
}

func (r *PendingRepo) ClaimBatch(_ context.Context, batchSize int, now time.Time) ([]pending.Update, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var claimed []pending.Update
	for _, upd := range r.Updates {
		if len(claimed) >= batchSize {
			break
		}
		if upd.Status != pending.StatusPending || upd.NextRetryAt.After(now) {
			continue
		}
		upd.Status = pending.StatusProcessing
		upd.AttemptCount++
		started := now
		upd.ProcessingStartedAt = &started
		upd.LastError = nil
		claimed = append(claimed, *upd)
	}
	return claimed, nil
}

func (r *PendingRepo) MarkCompleted(_ context.Context, id string) error {
	return r.setStatus(id, pending.StatusCompleted, nil)
}

func (r *PendingRepo) MarkFailed(_ context.Context, id string, lastError string) error {
	return r.setStatus(id, pending.StatusFailed, &lastError)
}

func (r *PendingRepo) setStatus(id string, status pending.Status, lastError *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	upd, ok := r.Updates[id]
	if !ok {
		return pending.ErrUpdateNotFound
	}
	upd.Status = status
	upd.ProcessingStartedAt = nil
	upd.LastError = lastError
	return nil
}

func (r *PendingRepo) Requeue(_ context.Context, id string, nextRetryAt time.Time, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	upd, ok := r.Updates[id]
	if !ok {
		return pending.ErrUpdateNotFound
	}
	upd.Status = pending.StatusPending
	upd.NextRetryAt = nextRetryAt
	upd.ProcessingStartedAt = nil
	upd.LastError = &lastError
	return nil
}

func (r *PendingRepo) ReclaimStale(_ context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, upd := range r.Updates {
		if upd.Status != pending.StatusProcessing || upd.ProcessingStartedAt == nil {
			continue
		}
		if upd.ProcessingStartedAt.Before(olderThan) {
			upd.Status = pending.StatusPending
			upd.AttemptCount--
			upd.ProcessingStartedAt = nil
			n++
		}
	}
	return n, nil
}

// CountByStatus is a test helper.
func (r *PendingRepo) CountByStatus(status pending.Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, upd := range r.Updates {
		if upd.Status == status {
			n++
		}
	}
	return n
}

// AdvanceRepo stores advances in memory, listing outstanding ones
// oldest-issued-first like the real query.
type AdvanceRepo struct {
	mu       sync.Mutex
	Advances []advance.Advance
}

func (r *AdvanceRepo) ListOutstandingByEmployee(_ context.Context, employeeID string, tenantID string) ([]advance.Advance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []advance.Advance
	for _, a := range r.Advances {
		if a.EmployeeID == employeeID && a.TenantID == tenantID && a.Outstanding() {
			out = append(out, a)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].IssuedDate.Before(out[j-1].IssuedDate); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (r *AdvanceRepo) OutstandingTotal(_ context.Context, employeeID string, tenantID string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, a := range r.Advances {
		if a.EmployeeID == employeeID && a.TenantID == tenantID && a.Status != advance.StatusRepaid {
			total = total.Add(a.RemainingBalance)
		}
	}
	return total, nil
}

func (r *AdvanceRepo) UpdateBalance(_ context.Context, id string, tenantID string, remaining decimal.Decimal, status advance.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.Advances {
		if a.ID == id && a.TenantID == tenantID {
			r.Advances[i].RemainingBalance = remaining
			r.Advances[i].Status = status
			return nil
		}
	}
	return advance.ErrAdvanceNotFound
}

// HolidayRepo serves a fixed holiday list.
type HolidayRepo struct {
	Holidays []holiday.Holiday
}

func (r *HolidayRepo) ListByTenantMonth(_ context.Context, tenantID string, year int, month time.Month) ([]holiday.Holiday, error) {
	var out []holiday.Holiday
	for _, h := range r.Holidays {
		if h.TenantID == tenantID && h.Date.Year() == year && h.Date.Month() == month {
			out = append(out, h)
		}
	}
	return out, nil
}

// PayrollRepo stores periods and salary rows in memory.
type PayrollRepo struct {
	mu       sync.Mutex
	seq      int
	Periods  map[string]payroll.Period
	Salaries map[string]payroll.CalculatedSalary

	ReplaceCalls int
}

func NewPayrollRepo() *PayrollRepo {
	return &PayrollRepo{
		Periods:  make(map[string]payroll.Period),
		Salaries: make(map[string]payroll.CalculatedSalary),
	}
}

func (r *PayrollRepo) periodKey(tenantID string, year int, month time.Month) string {
	return fmt.Sprintf("%s/%d/%d", tenantID, year, month)
}

func (r *PayrollRepo) GetOrCreatePeriod(_ context.Context, tenantID string, year int, month time.Month, defaultTDS decimal.Decimal) (payroll.Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := r.periodKey(tenantID, year, month)
	if p, ok := r.Periods[k]; ok {
		return p, nil
	}
	r.seq++
	p := payroll.Period{
		ID:         fmt.Sprintf("period-%d", r.seq),
		TenantID:   tenantID,
		Year:       year,
		Month:      month,
		Source:     payroll.SourceFrontend,
		Status:     payroll.PeriodUncalculated,
		TDSPercent: defaultTDS,
	}
	r.Periods[k] = p
	return p, nil
}

func (r *PayrollRepo) GetPeriod(_ context.Context, tenantID string, year int, month time.Month) (payroll.Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.Periods[r.periodKey(tenantID, year, month)]; ok {
		return p, nil
	}
	return payroll.Period{}, payroll.ErrPeriodNotFound
}

func (r *PayrollRepo) UpdatePeriodStatus(_ context.Context, id string, tenantID string, status payroll.PeriodStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, p := range r.Periods {
		if p.ID == id && p.TenantID == tenantID {
			p.Status = status
			r.Periods[k] = p
			return nil
		}
	}
	return payroll.ErrPeriodNotFound
}

func (r *PayrollRepo) SetUploadedWorkingDays(_ context.Context, id string, tenantID string, workingDays int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, p := range r.Periods {
		if p.ID == id && p.TenantID == tenantID {
			if p.IsLocked() {
				return payroll.ErrPeriodLocked
			}
			wd := workingDays
			p.WorkingDays = &wd
			p.Source = payroll.SourceUploaded
			r.Periods[k] = p
			return nil
		}
	}
	return payroll.ErrPeriodNotFound
}

func (r *PayrollRepo) SetPeriodTDS(_ context.Context, id string, tenantID string, percent decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, p := range r.Periods {
		if p.ID == id && p.TenantID == tenantID {
			if p.IsLocked() {
				return payroll.ErrPeriodLocked
			}
			p.TDSPercent = percent
			r.Periods[k] = p
			return nil
		}
	}
	return payroll.ErrPeriodNotFound
}

func (r *PayrollRepo) ReplaceSalaries(_ context.Context, periodID string, rows []payroll.CalculatedSalary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ReplaceCalls++
	for _, s := range rows {
		k := periodID + "/" + s.EmployeeID
		if existing, ok := r.Salaries[k]; ok {
			s.ID = existing.ID
			s.IsPaid = existing.IsPaid
			s.PaymentDate = existing.PaymentDate
		} else {
			r.seq++
			s.ID = fmt.Sprintf("sal-%d", r.seq)
		}
		s.PeriodID = periodID
		r.Salaries[k] = s
	}
	return nil
}

func (r *PayrollRepo) ListSalariesByPeriod(_ context.Context, periodID string, tenantID string) ([]payroll.CalculatedSalary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []payroll.CalculatedSalary
	for _, s := range r.Salaries {
		if s.PeriodID == periodID && s.TenantID == tenantID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *PayrollRepo) MarkSalariesPaid(_ context.Context, periodID string, tenantID string, employeeIDs []string, paymentDate time.Time) (map[string]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deductions := make(map[string]decimal.Decimal)
	for _, id := range employeeIDs {
		k := periodID + "/" + id
		s, ok := r.Salaries[k]
		if !ok || s.TenantID != tenantID || s.IsPaid {
			continue
		}
		s.IsPaid = true
		pd := paymentDate
		s.PaymentDate = &pd
		r.Salaries[k] = s
		if s.AdvanceDeducted.IsPositive() {
			deductions[id] = s.AdvanceDeducted
		}
	}
	return deductions, nil
}

func (r *PayrollRepo) MarkSalariesUnpaid(_ context.Context, periodID string, tenantID string, employeeIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range employeeIDs {
		k := periodID + "/" + id
		s, ok := r.Salaries[k]
		if !ok || s.TenantID != tenantID {
			continue
		}
		s.IsPaid = false
		s.PaymentDate = nil
		r.Salaries[k] = s
	}
	return nil
}
