// Package normalize converts a raw folded snapshot into the display-ready
// shape consumers read. Normalization is a pure function of the snapshot and
// a reference time; it never mutates its input.
package normalize

import (
	"time"

	"github.com/louisbranch/payrollwatch/internal/payroll/marshal"
	"github.com/louisbranch/payrollwatch/internal/payroll/state"
)

// Employee is a display employee: the domain record plus the derived
// year-to-date paid amount.
type Employee struct {
	state.Employee
	PaidAmountForYear marshal.Amount `json:"paidAmountForYear"`
}

// DisplayState is the consumer-facing snapshot shape. Until the snapshot is
// ready, collections are empty and Ready is false; already-populated scalar
// fields pass through unchanged either way.
type DisplayState struct {
	AllowedTokens     []state.AllowedToken `json:"allowedTokens"`
	DenominationToken *state.TokenRef      `json:"denominationToken,omitempty"`
	Employees         []Employee           `json:"employees"`
	Payments          []state.Payment      `json:"payments"`
	Totals            *state.PaymentTotals `json:"totalPaymentsOverTime"`
	FinanceAddress    string               `json:"financeAddress,omitempty"`
	VaultAddress      string               `json:"vaultAddress,omitempty"`
	PriceFeedAddress  string               `json:"priceFeedAddress,omitempty"`
	RateExpiry        time.Duration        `json:"rateExpiryTimeMs,omitempty"`
	Ready             bool                 `json:"ready"`
}

// Snapshot normalizes one folded snapshot at the given reference time.
//
// When the snapshot is not structurally ready the result keeps every scalar
// already observed but presents empty collections, so consumers never render
// a half-built roster. When ready, each employee gains PaidAmountForYear: the
// exact sum of that employee's payment amounts dated within now's calendar
// year. Amount fields are re-wrapped on the way out, which is idempotent, so
// normalizing an already-normalized snapshot is a no-op.
func Snapshot(st state.AppState, now time.Time) DisplayState {
	display := DisplayState{
		AllowedTokens:     []state.AllowedToken{},
		DenominationToken: st.DenominationToken,
		Employees:         []Employee{},
		Payments:          []state.Payment{},
		Totals:            st.Totals,
		FinanceAddress:    st.FinanceAddress,
		VaultAddress:      st.VaultAddress,
		PriceFeedAddress:  st.PriceFeedAddress,
		RateExpiry:        st.RateExpiry,
		Ready:             st.Ready && st.StructurallyReady(),
	}
	if display.Totals == nil {
		// Consumers always see the defaulted totals shape, even before the
		// first initialization fold lands.
		display.Totals = state.NewPaymentTotals()
	}
	if !display.Ready {
		return display
	}

	display.AllowedTokens = append(display.AllowedTokens, st.AllowedTokens...)

	display.Payments = make([]state.Payment, len(st.Payments))
	for i, payment := range st.Payments {
		payment.Amount = marshal.Wrap(payment.Amount)
		payment.ExchangeRate = marshal.Wrap(payment.ExchangeRate)
		display.Payments[i] = payment
	}

	yearStart := state.StartOfYear(now)
	display.Employees = make([]Employee, len(st.Employees))
	for i, employee := range st.Employees {
		employee.Salary = marshal.Wrap(employee.Salary)
		employee.AccruedSalary = marshal.Wrap(employee.AccruedSalary)
		employee.Bonus = marshal.Wrap(employee.Bonus)
		employee.Reimbursements = marshal.Wrap(employee.Reimbursements)
		display.Employees[i] = Employee{
			Employee:          employee,
			PaidAmountForYear: paidForYear(display.Payments, employee.AccountAddress, yearStart),
		}
	}
	return display
}

// paidForYear sums the payment amounts for one account address dated after
// the start of the current calendar year. The accumulator starts at exactly
// zero and stays arbitrary precision throughout.
func paidForYear(payments []state.Payment, accountAddress string, yearStart time.Time) marshal.Amount {
	total := marshal.NewAmountFromInt64(0)
	for _, payment := range payments {
		if !state.AddressesEqual(payment.AccountAddress, accountAddress) {
			continue
		}
		if !payment.Date.After(yearStart) {
			continue
		}
		total = total.Add(payment.Amount)
	}
	return total
}
