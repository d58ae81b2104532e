// Package ledger defines the read-only boundary to the payroll contract's
// read service. The projection treats this service as the source of truth
// for mutable record fields; the event feed only signals which record
// changed, not what it changed to.
package ledger

import (
	"context"

	apperrors "github.com/louisbranch/payrollwatch/internal/platform/errors"
)

// ErrNotFound indicates the requested record does not exist on the ledger.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "ledger record not found")

// ErrNotInitialized indicates the contract instance has not finished
// initializing, so reads would return garbage.
var ErrNotInitialized = apperrors.New(apperrors.CodeNotInitialized, "payroll instance has not been initialized yet")

// EmployeeRecord is the raw employee row as the read service returns it.
// Numeric and date fields arrive as decimal strings in base units and
// epoch seconds; marshalling into exact types happens downstream.
type EmployeeRecord struct {
	ID                   string
	AccountAddress       string
	Name                 string
	Role                 string
	DenominationSalary   string
	AccruedSalary        string
	Bonus                string
	Reimbursements       string
	StartDate            string
	EndDate              string
	LastPayroll          string
	LastAllocationUpdate string
	Terminated           bool
}

// AllocationRecord is one raw salary-allocation split.
type AllocationRecord struct {
	TokenAddress string
	BasisPoints  string
}

// Reader exposes every request/response read the projection performs.
// Every call may fail with a transport error, which implementations must
// surface as a typed failure rather than partial data.
type Reader interface {
	// Initialized reports whether the payroll instance is ready to serve
	// reads. It must be idempotent; the startup supervisor polls it.
	Initialized(ctx context.Context) (bool, error)

	// FinanceAddress returns the finance app address.
	FinanceAddress(ctx context.Context) (string, error)
	// VaultAddress resolves the vault through the finance app.
	VaultAddress(ctx context.Context, financeAddress string) (string, error)
	// DenominationTokenAddress returns the salary denomination token.
	DenominationTokenAddress(ctx context.Context) (string, error)
	// PriceFeedAddress returns the current price feed address.
	PriceFeedAddress(ctx context.Context) (string, error)
	// RateExpiryTime returns the exchange-rate expiry window in seconds.
	RateExpiryTime(ctx context.Context) (string, error)

	// EmployeeByID returns the authoritative record for a numeric id.
	EmployeeByID(ctx context.Context, id string) (EmployeeRecord, error)
	// EmployeeByAddress returns the authoritative record for an account
	// address.
	EmployeeByAddress(ctx context.Context, address string) (EmployeeRecord, error)
	// SalaryAllocation returns the employee's split across the given
	// allowed token addresses.
	SalaryAllocation(ctx context.Context, employeeID string, tokens []string) ([]AllocationRecord, error)

	// TokenDecimals returns the token's decimal precision.
	TokenDecimals(ctx context.Context, address string) (string, error)
	// TokenName returns the token's display name.
	TokenName(ctx context.Context, address string) (string, error)
	// TokenSymbol returns the token's ticker symbol.
	TokenSymbol(ctx context.Context, address string) (string, error)
}
