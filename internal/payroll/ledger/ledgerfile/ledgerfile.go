// Package ledgerfile provides a file-backed ledger reader for local runs
// and fixtures. The document mirrors what the on-chain read service would
// answer; it is loaded once and served from memory.
package ledgerfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/louisbranch/payrollwatch/internal/payroll/ledger"
)

type employeeDoc struct {
	ID                   string `json:"id"`
	AccountAddress       string `json:"accountAddress"`
	Name                 string `json:"name"`
	Role                 string `json:"role"`
	DenominationSalary   string `json:"denominationSalary"`
	AccruedSalary        string `json:"accruedSalary"`
	Bonus                string `json:"bonus"`
	Reimbursements       string `json:"reimbursements"`
	StartDate            string `json:"startDate"`
	EndDate              string `json:"endDate"`
	LastPayroll          string `json:"lastPayroll"`
	LastAllocationUpdate string `json:"lastAllocationUpdate"`
	Terminated           bool   `json:"terminated"`
}

type allocationDoc struct {
	TokenAddress string `json:"tokenAddress"`
	BasisPoints  string `json:"basisPoints"`
}

type tokenDoc struct {
	Decimals string `json:"decimals"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
}

type document struct {
	Initialized              bool                       `json:"initialized"`
	FinanceAddress           string                     `json:"financeAddress"`
	VaultAddress             string                     `json:"vaultAddress"`
	DenominationTokenAddress string                     `json:"denominationTokenAddress"`
	PriceFeedAddress         string                     `json:"priceFeedAddress"`
	RateExpiryTime           string                     `json:"rateExpiryTime"`
	Employees                []employeeDoc              `json:"employees"`
	Allocations              map[string][]allocationDoc `json:"allocations"`
	Tokens                   map[string]tokenDoc        `json:"tokens"`
}

// Reader serves ledger reads from a loaded fixture document.
type Reader struct {
	doc document
}

// Open loads a ledger fixture from disk.
func Open(path string) (*Reader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger fixture path is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ledger fixture: %w", err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode ledger fixture: %w", err)
	}
	return &Reader{doc: doc}, nil
}

// Initialized implements ledger.Reader.
func (r *Reader) Initialized(ctx context.Context) (bool, error) {
	return r.doc.Initialized, nil
}

// FinanceAddress implements ledger.Reader.
func (r *Reader) FinanceAddress(ctx context.Context) (string, error) {
	return r.doc.FinanceAddress, nil
}

// VaultAddress implements ledger.Reader.
func (r *Reader) VaultAddress(ctx context.Context, financeAddress string) (string, error) {
	return r.doc.VaultAddress, nil
}

// DenominationTokenAddress implements ledger.Reader.
func (r *Reader) DenominationTokenAddress(ctx context.Context) (string, error) {
	return r.doc.DenominationTokenAddress, nil
}

// PriceFeedAddress implements ledger.Reader.
func (r *Reader) PriceFeedAddress(ctx context.Context) (string, error) {
	return r.doc.PriceFeedAddress, nil
}

// RateExpiryTime implements ledger.Reader.
func (r *Reader) RateExpiryTime(ctx context.Context) (string, error) {
	return r.doc.RateExpiryTime, nil
}

// EmployeeByID implements ledger.Reader.
func (r *Reader) EmployeeByID(ctx context.Context, id string) (ledger.EmployeeRecord, error) {
	for _, emp := range r.doc.Employees {
		if emp.ID == id {
			return toRecord(emp), nil
		}
	}
	return ledger.EmployeeRecord{}, ledger.ErrNotFound
}

// EmployeeByAddress implements ledger.Reader.
func (r *Reader) EmployeeByAddress(ctx context.Context, address string) (ledger.EmployeeRecord, error) {
	for _, emp := range r.doc.Employees {
		if strings.EqualFold(emp.AccountAddress, address) {
			return toRecord(emp), nil
		}
	}
	return ledger.EmployeeRecord{}, ledger.ErrNotFound
}

// SalaryAllocation implements ledger.Reader.
func (r *Reader) SalaryAllocation(ctx context.Context, employeeID string, tokens []string) ([]ledger.AllocationRecord, error) {
	docs := r.doc.Allocations[employeeID]
	records := make([]ledger.AllocationRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, ledger.AllocationRecord{
			TokenAddress: doc.TokenAddress,
			BasisPoints:  doc.BasisPoints,
		})
	}
	return records, nil
}

// TokenDecimals implements ledger.Reader.
func (r *Reader) TokenDecimals(ctx context.Context, address string) (string, error) {
	token, err := r.token(address)
	if err != nil {
		return "", err
	}
	return token.Decimals, nil
}

// TokenName implements ledger.Reader.
func (r *Reader) TokenName(ctx context.Context, address string) (string, error) {
	token, err := r.token(address)
	if err != nil {
		return "", err
	}
	return token.Name, nil
}

// TokenSymbol implements ledger.Reader.
func (r *Reader) TokenSymbol(ctx context.Context, address string) (string, error) {
	token, err := r.token(address)
	if err != nil {
		return "", err
	}
	return token.Symbol, nil
}

func (r *Reader) token(address string) (tokenDoc, error) {
	for key, token := range r.doc.Tokens {
		if strings.EqualFold(key, address) {
			return token, nil
		}
	}
	return tokenDoc{}, ledger.ErrNotFound
}

func toRecord(doc employeeDoc) ledger.EmployeeRecord {
	return ledger.EmployeeRecord{
		ID:                   doc.ID,
		AccountAddress:       doc.AccountAddress,
		Name:                 doc.Name,
		Role:                 doc.Role,
		DenominationSalary:   doc.DenominationSalary,
		AccruedSalary:        doc.AccruedSalary,
		Bonus:                doc.Bonus,
		Reimbursements:       doc.Reimbursements,
		StartDate:            doc.StartDate,
		EndDate:              doc.EndDate,
		LastPayroll:          doc.LastPayroll,
		LastAllocationUpdate: doc.LastAllocationUpdate,
		Terminated:           doc.Terminated,
	}
}

var _ ledger.Reader = (*Reader)(nil)
