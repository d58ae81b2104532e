package state

import (
	"time"

	"github.com/louisbranch/payrollwatch/internal/payroll/marshal"
)

// AppState is the root snapshot accumulated by the projection. Each fold
// produces a new value via Clone, so concurrent readers never observe a
// partially-updated snapshot. Amount fields share immutable big integers
// across snapshots; every arithmetic operation allocates a fresh value.
type AppState struct {
	AllowedTokens     []AllowedToken `json:"allowedTokens,omitempty"`
	DenominationToken *TokenRef      `json:"denominationToken,omitempty"`
	Employees         []Employee     `json:"employees,omitempty"`
	Payments          []Payment      `json:"payments,omitempty"`
	Totals            *PaymentTotals `json:"totalPaymentsOverTime,omitempty"`
	FinanceAddress    string         `json:"financeAddress,omitempty"`
	VaultAddress      string         `json:"vaultAddress,omitempty"`
	PriceFeedAddress  string         `json:"priceFeedAddress,omitempty"`
	RateExpiry        time.Duration  `json:"rateExpiryTimeMs,omitempty"`

	// Ready is the monotonic readiness flag: once every structural field
	// has been observed it stays true for the process lifetime.
	Ready bool `json:"ready"`
}

// IntervalTotal is one aggregated payment total over a calendar interval.
type IntervalTotal struct {
	Amount marshal.Amount `json:"amount"`
	Start  time.Time      `json:"start"`
	End    time.Time      `json:"end"`
}

// PaymentTotals tracks running payment totals per calendar granularity.
type PaymentTotals struct {
	Monthly   []IntervalTotal `json:"monthly"`
	Quarterly []IntervalTotal `json:"quarterly"`
	Yearly    []IntervalTotal `json:"yearly"`
}

// NewPaymentTotals returns structurally-present empty totals.
func NewPaymentTotals() *PaymentTotals {
	return &PaymentTotals{
		Monthly:   []IntervalTotal{},
		Quarterly: []IntervalTotal{},
		Yearly:    []IntervalTotal{},
	}
}

// Record folds one payment amount into the monthly, quarterly, and yearly
// buckets covering its date.
func (t *PaymentTotals) Record(amount marshal.Amount, date time.Time) {
	monthStart, monthEnd := monthInterval(date)
	quarterStart, quarterEnd := quarterInterval(date)
	yearStart, yearEnd := yearInterval(date)
	t.Monthly = recordInterval(t.Monthly, amount, monthStart, monthEnd)
	t.Quarterly = recordInterval(t.Quarterly, amount, quarterStart, quarterEnd)
	t.Yearly = recordInterval(t.Yearly, amount, yearStart, yearEnd)
}

func recordInterval(totals []IntervalTotal, amount marshal.Amount, start, end time.Time) []IntervalTotal {
	for i := range totals {
		if totals[i].Start.Equal(start) {
			totals[i].Amount = totals[i].Amount.Add(amount)
			return totals
		}
	}
	return append(totals, IntervalTotal{Amount: marshal.Wrap(amount), Start: start, End: end})
}

func monthInterval(date time.Time) (time.Time, time.Time) {
	d := date.UTC()
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

func quarterInterval(date time.Time) (time.Time, time.Time) {
	d := date.UTC()
	quarterMonth := time.Month((int(d.Month())-1)/3*3 + 1)
	start := time.Date(d.Year(), quarterMonth, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 3, 0).Add(-time.Nanosecond)
}

func yearInterval(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0).Add(-time.Nanosecond)
}

// StartOfYear returns midnight UTC on January 1st of now's calendar year.
func StartOfYear(now time.Time) time.Time {
	return time.Date(now.UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

// Clone returns a deep copy the next fold may mutate freely without
// affecting readers of the current snapshot.
func (s AppState) Clone() AppState {
	next := s
	if s.AllowedTokens != nil {
		next.AllowedTokens = append([]AllowedToken(nil), s.AllowedTokens...)
	}
	if s.DenominationToken != nil {
		token := *s.DenominationToken
		next.DenominationToken = &token
	}
	if s.Employees != nil {
		next.Employees = make([]Employee, len(s.Employees))
		for i, employee := range s.Employees {
			next.Employees[i] = cloneEmployee(employee)
		}
	}
	if s.Payments != nil {
		next.Payments = append([]Payment(nil), s.Payments...)
	}
	if s.Totals != nil {
		next.Totals = &PaymentTotals{
			Monthly:   append([]IntervalTotal(nil), s.Totals.Monthly...),
			Quarterly: append([]IntervalTotal(nil), s.Totals.Quarterly...),
			Yearly:    append([]IntervalTotal(nil), s.Totals.Yearly...),
		}
	}
	return next
}

func cloneEmployee(employee Employee) Employee {
	next := employee
	next.EndDate = cloneTime(employee.EndDate)
	next.LastPayroll = cloneTime(employee.LastPayroll)
	next.LastAllocationUpdate = cloneTime(employee.LastAllocationUpdate)
	if employee.SalaryAllocation != nil {
		next.SalaryAllocation = append([]AllocationSplit(nil), employee.SalaryAllocation...)
	}
	return next
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	value := *t
	return &value
}

// EmployeeIndexByID returns the index of the employee with the given id,
// or -1 when absent.
func (s AppState) EmployeeIndexByID(id string) int {
	for i := range s.Employees {
		if s.Employees[i].ID == id {
			return i
		}
	}
	return -1
}

// EmployeeIndexByAddress returns the index of the employee with the given
// account address, or -1 when absent.
func (s AppState) EmployeeIndexByAddress(address string) int {
	for i := range s.Employees {
		if AddressesEqual(s.Employees[i].AccountAddress, address) {
			return i
		}
	}
	return -1
}

// AllowedTokenByAddress resolves an allowed token by case-insensitive
// address.
func (s AppState) AllowedTokenByAddress(address string) (TokenRef, bool) {
	for _, token := range s.AllowedTokens {
		if AddressesEqual(token.Address, address) {
			return token, true
		}
	}
	return TokenRef{}, false
}

// AllowedTokenAddresses lists the allowed token addresses in order.
func (s AppState) AllowedTokenAddresses() []string {
	addresses := make([]string, len(s.AllowedTokens))
	for i, token := range s.AllowedTokens {
		addresses[i] = token.Address
	}
	return addresses
}

// HasPayment reports whether a payment with the given dedup key has
// already been recorded.
func (s AppState) HasPayment(txHash, tokenAddress string) bool {
	for _, payment := range s.Payments {
		if payment.TxHash == txHash && AddressesEqual(payment.Token.Address, tokenAddress) {
			return true
		}
	}
	return false
}

// StructurallyReady reports whether every field the readiness gate needs is
// present. Collections count once observed, not once non-empty.
func (s AppState) StructurallyReady() bool {
	return s.AllowedTokens != nil &&
		s.DenominationToken != nil &&
		s.Employees != nil &&
		s.Totals != nil
}
