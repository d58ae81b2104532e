package state

import (
	"time"

	"github.com/louisbranch/payrollwatch/internal/payroll/ledger"
	"github.com/louisbranch/payrollwatch/internal/payroll/marshal"
)

// Employee is one payroll employee record. Identity key is ID; the account
// address is a secondary lookup key and may change over the employee's
// lifetime.
type Employee struct {
	ID                   string            `json:"id"`
	AccountAddress       string            `json:"accountAddress"`
	Name                 string            `json:"name"`
	Role                 string            `json:"role"`
	StartDate            time.Time         `json:"startDate"`
	EndDate              *time.Time        `json:"endDate,omitempty"`
	Terminated           bool              `json:"terminated"`
	Salary               marshal.Amount    `json:"salary"`
	AccruedSalary        marshal.Amount    `json:"accruedSalary"`
	Bonus                marshal.Amount    `json:"bonus"`
	Reimbursements       marshal.Amount    `json:"reimbursements"`
	LastPayroll          *time.Time        `json:"lastPayroll,omitempty"`
	LastAllocationUpdate *time.Time        `json:"lastAllocationUpdate,omitempty"`
	SalaryAllocation     []AllocationSplit `json:"salaryAllocation,omitempty"`
}

// EmployeeFromRecord marshals one raw ledger record into a domain employee.
// A malformed salary or grant amount fails the whole marshal so a partial
// employee never enters the state.
func EmployeeFromRecord(rec ledger.EmployeeRecord) (Employee, error) {
	salary, err := marshal.ParseAmount(rec.DenominationSalary)
	if err != nil {
		return Employee{}, err
	}
	accrued, err := marshal.ParseAmount(rec.AccruedSalary)
	if err != nil {
		return Employee{}, err
	}
	bonus, err := marshal.ParseAmount(rec.Bonus)
	if err != nil {
		return Employee{}, err
	}
	reimbursements, err := marshal.ParseAmount(rec.Reimbursements)
	if err != nil {
		return Employee{}, err
	}

	employee := Employee{
		ID:                   rec.ID,
		AccountAddress:       rec.AccountAddress,
		Name:                 rec.Name,
		Role:                 rec.Role,
		Terminated:           rec.Terminated,
		Salary:               salary,
		AccruedSalary:        accrued,
		Bonus:                bonus,
		Reimbursements:       reimbursements,
		EndDate:              marshal.ParseEndDate(rec.EndDate),
		LastPayroll:          marshal.ParseEpochSeconds(rec.LastPayroll),
		LastAllocationUpdate: marshal.ParseEpochSeconds(rec.LastAllocationUpdate),
	}
	if start := marshal.ParseEpochSeconds(rec.StartDate); start != nil {
		employee.StartDate = *start
	}
	return employee, nil
}

// MergeEmployee applies the refetch-and-merge upsert policy: the fetched
// record wins for every mutable field, while Name, Role, and StartDate are
// preserved from the prior local record. These three are display metadata
// that may no longer be derivable from the ledger once an employee record
// has been removed on chain.
func MergeEmployee(prior, fetched Employee) Employee {
	merged := fetched
	merged.Name = prior.Name
	merged.Role = prior.Role
	merged.StartDate = prior.StartDate
	if merged.SalaryAllocation == nil {
		merged.SalaryAllocation = prior.SalaryAllocation
	}
	return merged
}

// AllocationFromRecords marshals raw allocation rows into domain splits.
// The allocation is recomputed wholesale, never merged.
func AllocationFromRecords(records []ledger.AllocationRecord) []AllocationSplit {
	splits := make([]AllocationSplit, 0, len(records))
	for _, rec := range records {
		splits = append(splits, AllocationSplit{
			TokenAddress: rec.TokenAddress,
			BasisPoints:  marshal.ParseUint(rec.BasisPoints),
		})
	}
	return splits
}
