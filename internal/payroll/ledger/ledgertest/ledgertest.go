// Package ledgertest provides an in-memory scripted ledger.Reader for tests.
package ledgertest

import (
	"context"
	"strings"
	"sync"

	"github.com/louisbranch/payrollwatch/internal/payroll/ledger"
)

// Token holds scripted token metadata.
type Token struct {
	Decimals string
	Name     string
	Symbol   string
}

// Reader is a scripted in-memory ledger read service. Zero value is usable;
// populate fields before handing it to the code under test. Error fields,
// when set, take precedence over scripted data so tests can inject failures
// per call family.
type Reader struct {
	mu sync.Mutex

	Ready    bool
	ReadyErr error

	Finance      string
	Vault        string
	Denomination string
	PriceFeed    string
	RateExpiry   string
	ScalarErr    error

	Employees   map[string]ledger.EmployeeRecord
	EmployeeErr error

	Allocations   map[string][]ledger.AllocationRecord
	AllocationErr error

	Tokens      map[string]Token
	DecimalsErr error
	NameErr     error
	SymbolErr   error

	calls map[string]int
}

// SetEmployee scripts an employee record, indexed by id and address.
func (r *Reader) SetEmployee(rec ledger.EmployeeRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Employees == nil {
		r.Employees = make(map[string]ledger.EmployeeRecord)
	}
	r.Employees[rec.ID] = rec
	if rec.AccountAddress != "" {
		r.Employees[strings.ToLower(rec.AccountAddress)] = rec
	}
}

// SetToken scripts token metadata for an address.
func (r *Reader) SetToken(address string, token Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Tokens == nil {
		r.Tokens = make(map[string]Token)
	}
	r.Tokens[strings.ToLower(address)] = token
}

// Calls reports how many times the named method ran.
func (r *Reader) Calls(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

func (r *Reader) record(method string) {
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[method]++
}

// Initialized implements ledger.Reader.
func (r *Reader) Initialized(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Initialized")
	if r.ReadyErr != nil {
		return false, r.ReadyErr
	}
	return r.Ready, nil
}

// FinanceAddress implements ledger.Reader.
func (r *Reader) FinanceAddress(ctx context.Context) (string, error) {
	return r.scalar("FinanceAddress", r.Finance)
}

// VaultAddress implements ledger.Reader.
func (r *Reader) VaultAddress(ctx context.Context, financeAddress string) (string, error) {
	return r.scalar("VaultAddress", r.Vault)
}

// DenominationTokenAddress implements ledger.Reader.
func (r *Reader) DenominationTokenAddress(ctx context.Context) (string, error) {
	return r.scalar("DenominationTokenAddress", r.Denomination)
}

// PriceFeedAddress implements ledger.Reader.
func (r *Reader) PriceFeedAddress(ctx context.Context) (string, error) {
	return r.scalar("PriceFeedAddress", r.PriceFeed)
}

// RateExpiryTime implements ledger.Reader.
func (r *Reader) RateExpiryTime(ctx context.Context) (string, error) {
	return r.scalar("RateExpiryTime", r.RateExpiry)
}

func (r *Reader) scalar(method, value string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(method)
	if r.ScalarErr != nil {
		return "", r.ScalarErr
	}
	return value, nil
}

// EmployeeByID implements ledger.Reader.
func (r *Reader) EmployeeByID(ctx context.Context, id string) (ledger.EmployeeRecord, error) {
	return r.employee("EmployeeByID", id)
}

// EmployeeByAddress implements ledger.Reader.
func (r *Reader) EmployeeByAddress(ctx context.Context, address string) (ledger.EmployeeRecord, error) {
	return r.employee("EmployeeByAddress", strings.ToLower(address))
}

func (r *Reader) employee(method, key string) (ledger.EmployeeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(method)
	if r.EmployeeErr != nil {
		return ledger.EmployeeRecord{}, r.EmployeeErr
	}
	rec, ok := r.Employees[key]
	if !ok {
		return ledger.EmployeeRecord{}, ledger.ErrNotFound
	}
	return rec, nil
}

// SalaryAllocation implements ledger.Reader.
func (r *Reader) SalaryAllocation(ctx context.Context, employeeID string, tokens []string) ([]ledger.AllocationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("SalaryAllocation")
	if r.AllocationErr != nil {
		return nil, r.AllocationErr
	}
	return r.Allocations[employeeID], nil
}

// TokenDecimals implements ledger.Reader.
func (r *Reader) TokenDecimals(ctx context.Context, address string) (string, error) {
	token, err := r.token("TokenDecimals", address, r.DecimalsErr)
	if err != nil {
		return "", err
	}
	return token.Decimals, nil
}

// TokenName implements ledger.Reader.
func (r *Reader) TokenName(ctx context.Context, address string) (string, error) {
	token, err := r.token("TokenName", address, r.NameErr)
	if err != nil {
		return "", err
	}
	return token.Name, nil
}

// TokenSymbol implements ledger.Reader.
func (r *Reader) TokenSymbol(ctx context.Context, address string) (string, error) {
	token, err := r.token("TokenSymbol", address, r.SymbolErr)
	if err != nil {
		return "", err
	}
	return token.Symbol, nil
}

func (r *Reader) token(method, address string, injected error) (Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(method)
	if injected != nil {
		return Token{}, injected
	}
	token, ok := r.Tokens[strings.ToLower(address)]
	if !ok {
		return Token{}, ledger.ErrNotFound
	}
	return token, nil
}

var _ ledger.Reader = (*Reader)(nil)
