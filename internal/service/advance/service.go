package advance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/staffdesk/payroll-engine-go/internal/domain/advance"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/database"
	"github.com/staffdesk/payroll-engine-go/internal/repository/postgresql"
)

type Service struct {
	db          *database.DB
	advanceRepo advance.Repository
	logger      *slog.Logger
}

func NewService(db *database.DB, advanceRepo advance.Repository, logger *slog.Logger) *Service {
	return &Service{db: db, advanceRepo: advanceRepo, logger: logger}
}

// ApplyPayment settles salary-deducted amounts against each employee's
// outstanding advances, oldest issued first. An advance consumed in full
// becomes REPAID with a zero balance; the advance that absorbs the tail of
// the deduction becomes PARTIALLY_PAID and the walk stops there. Each
// employee's walk runs in its own transaction so one bad ledger does not
// roll back the others.
func (s *Service) ApplyPayment(ctx context.Context, tenantID string, deductions map[string]decimal.Decimal) error {
	for employeeID, amount := range deductions {
		if !amount.IsPositive() {
			continue
		}
		err := postgresql.WithTransaction(ctx, s.db, func(ctx context.Context, _ pgx.Tx) error {
			return s.settleEmployee(ctx, tenantID, employeeID, amount)
		})
		if err != nil {
			return fmt.Errorf("failed to settle advances for employee %s: %w", employeeID, err)
		}
	}
	return nil
}

func (s *Service) settleEmployee(ctx context.Context, tenantID string, employeeID string, amount decimal.Decimal) error {
	outstanding, err := s.advanceRepo.ListOutstandingByEmployee(ctx, employeeID, tenantID)
	if err != nil {
		return err
	}

	remaining := amount
	for _, adv := range outstanding {
		if !remaining.IsPositive() {
			break
		}

		if adv.RemainingBalance.LessThanOrEqual(remaining) {
			remaining = remaining.Sub(adv.RemainingBalance)
			if err := s.advanceRepo.UpdateBalance(ctx, adv.ID, tenantID, decimal.Zero, advance.StatusRepaid); err != nil {
				return err
			}
			continue
		}

		newBalance := adv.RemainingBalance.Sub(remaining)
		if err := s.advanceRepo.UpdateBalance(ctx, adv.ID, tenantID, newBalance, advance.StatusPartiallyPaid); err != nil {
			return err
		}
		remaining = decimal.Zero
	}

	if remaining.IsPositive() {
		// More was deducted than the ledger can absorb; flag it rather
		// than invent a negative balance.
		s.logger.Warn("advance deduction exceeds outstanding balance",
			slog.String("tenant_id", tenantID),
			slog.String("employee_id", employeeID),
			slog.String("unapplied", remaining.String()))
	}

	return nil
}

// Outstanding is the total remaining advance balance for an employee.
func (s *Service) Outstanding(ctx context.Context, tenantID string, employeeID string) (decimal.Decimal, error) {
	return s.advanceRepo.OutstandingTotal(ctx, employeeID, tenantID)
}
