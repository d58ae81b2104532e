package projection

import (
	"context"
	"errors"
	"io"
	"log"
	"reflect"
	"testing"
	"time"

	"github.com/louisbranch/payrollwatch/internal/payroll/event"
	"github.com/louisbranch/payrollwatch/internal/payroll/ledger"
	"github.com/louisbranch/payrollwatch/internal/payroll/ledger/ledgertest"
	"github.com/louisbranch/payrollwatch/internal/payroll/state"
	"github.com/louisbranch/payrollwatch/internal/payroll/token"
	apperrors "github.com/louisbranch/payrollwatch/internal/platform/errors"
)

func newTestEngine(reader *ledgertest.Reader) *Engine {
	return New(reader, token.NewDirectory(reader), WithLogger(log.New(io.Discard, "", 0)))
}

func newScriptedReader() *ledgertest.Reader {
	reader := &ledgertest.Reader{
		Ready:        true,
		Finance:      "0xfinance",
		Vault:        "0xvault",
		Denomination: "0xusd",
		PriceFeed:    "0xfeed",
		RateExpiry:   "3600",
	}
	reader.SetToken("0xusd", ledgertest.Token{Decimals: "18", Name: "US Dollar Token", Symbol: "USDT"})
	reader.SetToken("0xtka", ledgertest.Token{Decimals: "18", Name: "Token A", Symbol: "TKA"})
	reader.SetEmployee(ledger.EmployeeRecord{
		ID:                 "1",
		AccountAddress:     "0xemp1",
		Name:               "Dana",
		Role:               "Engineer",
		DenominationSalary: "1000",
		AccruedSalary:      "0",
		Bonus:              "0",
		Reimbursements:     "0",
		StartDate:          "1600000000",
		EndDate:            "18446744073709551615",
	})
	return reader
}

func mustFold(t *testing.T, engine *Engine, st state.AppState, ev event.Event) state.AppState {
	t.Helper()
	next, err := engine.Fold(context.Background(), st, ev)
	if err != nil {
		t.Fatalf("fold %s returned error: %v", ev.Type, err)
	}
	return next
}

func TestFoldInitialization(t *testing.T) {
	reader := newScriptedReader()
	engine := newTestEngine(reader)

	st := mustFold(t, engine, state.AppState{}, event.Event{Type: event.TypeInitialization})

	if st.FinanceAddress != "0xfinance" || st.VaultAddress != "0xvault" {
		t.Fatalf("addresses not populated: %+v", st)
	}
	if st.DenominationToken == nil || st.DenominationToken.Symbol != "USDT" {
		t.Fatalf("denomination token = %+v", st.DenominationToken)
	}
	if st.RateExpiry != time.Hour {
		t.Fatalf("rate expiry = %v, want 1h", st.RateExpiry)
	}
	if st.Totals == nil {
		t.Fatal("totals should be structurally present after init")
	}
	if st.Ready {
		t.Fatal("state should not be ready before token and employee events")
	}
}

func TestFoldUnknownTagIsIdentity(t *testing.T) {
	reader := newScriptedReader()
	engine := newTestEngine(reader)

	st := mustFold(t, engine, state.AppState{}, event.Event{Type: event.TypeInitialization})
	st = mustFold(t, engine, st, event.Event{Type: event.TypeAddAllowedToken, PayloadJSON: []byte(`{"token":"0xtka"}`)})

	next := mustFold(t, engine, st, event.Event{Type: event.Type("SomeFutureEvent"), PayloadJSON: []byte(`{"x":1}`)})
	if !reflect.DeepEqual(st, next) {
		t.Fatalf("unknown tag should be identity:\nbefore %+v\nafter  %+v", st, next)
	}
}

func TestFoldAddAllowedTokenIdempotentReplay(t *testing.T) {
	reader := newScriptedReader()
	engine := newTestEngine(reader)

	ev := event.Event{Type: event.TypeAddAllowedToken, PayloadJSON: []byte(`{"token":"0xTKA"}`)}
	st := mustFold(t, engine, state.AppState{}, ev)
	if len(st.AllowedTokens) != 1 {
		t.Fatalf("allowed tokens = %d, want 1", len(st.AllowedTokens))
	}

	// Replay with a differently-cased address.
	replayed := mustFold(t, engine, st, event.Event{Type: event.TypeAddAllowedToken, PayloadJSON: []byte(`{"token":"0xtka"}`)})
	if len(replayed.AllowedTokens) != 1 {
		t.Fatalf("replay duplicated allowed token: %+v", replayed.AllowedTokens)
	}
	if !reflect.DeepEqual(st.AllowedTokens, replayed.AllowedTokens) {
		t.Fatal("replay should leave allowed tokens identical")
	}
}

func TestFoldEmployeeUpsertPreservesDisplayMetadata(t *testing.T) {
	reader := newScriptedReader()
	engine := newTestEngine(reader)

	st := mustFold(t, engine, state.AppState{}, event.Event{
		Type:        event.TypeAddEmployee,
		PayloadJSON: []byte(`{"employeeId":"1","accountAddress":"0xemp1"}`),
	})
	if len(st.Employees) != 1 {
		t.Fatalf("employees = %d, want 1", len(st.Employees))
	}
	if st.Employees[0].Name != "Dana" {
		t.Fatalf("employee name = %q", st.Employees[0].Name)
	}

	// The ledger now returns a terminated record with cleared metadata,
	// as happens once the on-chain record is removed.
	reader.SetEmployee(ledger.EmployeeRecord{
		ID:                 "1",
		AccountAddress:     "0xemp1",
		Name:               "",
		Role:               "",
		DenominationSalary: "2000",
		AccruedSalary:      "0",
		Bonus:              "0",
		Reimbursements:     "0",
		EndDate:            "1705000000",
		Terminated:         true,
	})

	st = mustFold(t, engine, st, event.Event{
		Type:        event.TypeTerminateEmployee,
		PayloadJSON: []byte(`{"employeeId":"1","endDate":"1705000000"}`),
	})
	employee := st.Employees[0]
	if employee.Name != "Dana" || employee.Role != "Engineer" {
		t.Fatalf("display metadata lost on terminate: %+v", employee)
	}
	if employee.Salary.String() != "2000" {
		t.Fatalf("mutable salary not replaced: %s", employee.Salary)
	}
	if !employee.Terminated || employee.EndDate == nil {
		t.Fatalf("termination fields not applied: %+v", employee)
	}
	if employee.StartDate.IsZero() {
		t.Fatal("start date should be preserved from the prior record")
	}
}

func TestFoldSendPaymentDedup(t *testing.T) {
	reader := newScriptedReader()
	engine := newTestEngine(reader)

	st := mustFold(t, engine, state.AppState{}, event.Event{Type: event.TypeInitialization})
	st = mustFold(t, engine, st, event.Event{Type: event.TypeAddAllowedToken, PayloadJSON: []byte(`{"token":"0xtka"}`)})

	first := event.Event{
		Type:        event.TypeSendPayment,
		TxHash:      "0xhash1",
		PayloadJSON: []byte(`{"employee":"0xemp1","token":"0xtka","amount":"100","exchangeRate":"1","paymentDate":"1700000000"}`),
	}
	st = mustFold(t, engine, st, first)
	if len(st.Payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(st.Payments))
	}

	// Same (transaction, token) pair, different payload fields.
	replay := event.Event{
		Type:        event.TypeSendPayment,
		TxHash:      "0xhash1",
		PayloadJSON: []byte(`{"employee":"0xemp1","token":"0xTKA","amount":"999","exchangeRate":"2","paymentDate":"1700000001"}`),
	}
	st = mustFold(t, engine, st, replay)
	if len(st.Payments) != 1 {
		t.Fatalf("replayed payment duplicated: %d records", len(st.Payments))
	}
	if st.Payments[0].Amount.String() != "100" {
		t.Fatalf("original payment mutated: %s", st.Payments[0].Amount)
	}

	// A different transaction with the same token is a new payment.
	st = mustFold(t, engine, st, event.Event{
		Type:        event.TypeSendPayment,
		TxHash:      "0xhash2",
		PayloadJSON: []byte(`{"employee":"0xemp1","token":"0xtka","amount":"50","exchangeRate":"1","paymentDate":"1700000002"}`),
	})
	if len(st.Payments) != 2 {
		t.Fatalf("payments = %d, want 2", len(st.Payments))
	}
}

func TestFoldSendPaymentUpdatesTotalsAndEmployee(t *testing.T) {
	reader := newScriptedReader()
	engine := newTestEngine(reader)

	st := mustFold(t, engine, state.AppState{}, event.Event{Type: event.TypeInitialization})
	st = mustFold(t, engine, st, event.Event{Type: event.TypeAddAllowedToken, PayloadJSON: []byte(`{"token":"0xtka"}`)})
	st = mustFold(t, engine, st, event.Event{
		Type:        event.TypeSendPayment,
		TxHash:      "0xhash1",
		PayloadJSON: []byte(`{"employee":"0xemp1","token":"0xtka","amount":"100","exchangeRate":"4","paymentDate":"1700000000"}`),
	})

	if len(st.Employees) != 1 || st.Employees[0].ID != "1" {
		t.Fatalf("paying employee not refreshed: %+v", st.Employees)
	}
	if len(st.Totals.Monthly) != 1 || st.Totals.Monthly[0].Amount.String() != "100" {
		t.Fatalf("totals not updated: %+v", st.Totals)
	}
	if st.Payments[0].Exchanged.String() != "25" {
		t.Fatalf("exchanged amount = %s, want 25", st.Payments[0].Exchanged)
	}
}

func TestFoldFailureIsolation(t *testing.T) {
	reader := newScriptedReader()
	engine := newTestEngine(reader)

	st := mustFold(t, engine, state.AppState{}, event.Event{Type: event.TypeInitialization})
	st = mustFold(t, engine, st, event.Event{
		Type:        event.TypeAddEmployee,
		PayloadJSON: []byte(`{"employeeId":"1"}`),
	})

	reader.EmployeeErr = errors.New("rpc unreachable")
	next, err := engine.Fold(context.Background(), st, event.Event{
		Type:        event.TypeAddEmployeeBonus,
		PayloadJSON: []byte(`{"employeeId":"1","amount":"10"}`),
	})
	if err == nil {
		t.Fatal("expected fold error when refetch fails")
	}
	if !apperrors.IsCode(err, apperrors.CodeEmployeeFetchFailed) {
		t.Fatalf("expected EMPLOYEE_FETCH_FAILED, got %v", err)
	}
	if !reflect.DeepEqual(st, next) {
		t.Fatalf("failed fold must return the prior snapshot unchanged:\nbefore %+v\nafter  %+v", st, next)
	}

	// The next event proceeds normally once the fault clears.
	reader.EmployeeErr = nil
	recovered := mustFold(t, engine, next, event.Event{
		Type:        event.TypeAddEmployeeBonus,
		PayloadJSON: []byte(`{"employeeId":"1","amount":"10"}`),
	})
	if len(recovered.Employees) != 1 {
		t.Fatalf("recovery fold did not apply: %+v", recovered.Employees)
	}
}

func TestFoldChangeAddress(t *testing.T) {
	reader := newScriptedReader()
	reader.Allocations = map[string][]ledger.AllocationRecord{
		"1": {{TokenAddress: "0xtka", BasisPoints: "10000"}},
	}
	engine := newTestEngine(reader)

	st := mustFold(t, engine, state.AppState{}, event.Event{
		Type:        event.TypeAddEmployee,
		PayloadJSON: []byte(`{"employeeId":"1"}`),
	})

	st = mustFold(t, engine, st, event.Event{
		Type:        event.TypeChangeAddressByEmployee,
		PayloadJSON: []byte(`{"oldAddress":"0xEMP1","newAddress":"0xemp1b"}`),
	})
	if st.Employees[0].AccountAddress != "0xemp1b" {
		t.Fatalf("address not re-indexed: %+v", st.Employees[0])
	}
	if len(st.Employees[0].SalaryAllocation) != 1 || st.Employees[0].SalaryAllocation[0].BasisPoints != 10000 {
		t.Fatalf("allocation not recomputed: %+v", st.Employees[0].SalaryAllocation)
	}
}

func TestFoldChangeAddressUnknownEmployeeIsNoop(t *testing.T) {
	reader := newScriptedReader()
	engine := newTestEngine(reader)

	st := mustFold(t, engine, state.AppState{}, event.Event{Type: event.TypeInitialization})
	next := mustFold(t, engine, st, event.Event{
		Type:        event.TypeChangeAddressByEmployee,
		PayloadJSON: []byte(`{"oldAddress":"0xnobody","newAddress":"0xstill-nobody"}`),
	})
	if !reflect.DeepEqual(st, next) {
		t.Fatal("unknown employee address change should not alter state")
	}
}

func TestFoldDetermineAllocation(t *testing.T) {
	reader := newScriptedReader()
	reader.Allocations = map[string][]ledger.AllocationRecord{
		"1": {
			{TokenAddress: "0xtka", BasisPoints: "6000"},
			{TokenAddress: "0xusd", BasisPoints: "4000"},
		},
	}
	engine := newTestEngine(reader)

	st := mustFold(t, engine, state.AppState{}, event.Event{
		Type:        event.TypeAddEmployee,
		PayloadJSON: []byte(`{"employeeId":"1"}`),
	})
	st = mustFold(t, engine, st, event.Event{
		Type:        event.TypeDetermineAllocation,
		PayloadJSON: []byte(`{"employeeId":"1"}`),
	})

	allocation := st.Employees[0].SalaryAllocation
	if len(allocation) != 2 {
		t.Fatalf("allocation splits = %d, want 2", len(allocation))
	}
	if allocation[0].BasisPoints != 6000 || allocation[1].BasisPoints != 4000 {
		t.Fatalf("allocation = %+v", allocation)
	}
}

func TestFoldScalarRefetch(t *testing.T) {
	reader := newScriptedReader()
	engine := newTestEngine(reader)

	st := mustFold(t, engine, state.AppState{}, event.Event{Type: event.TypeInitialization})

	reader.PriceFeed = "0xnewfeed"
	reader.RateExpiry = "7200"

	st = mustFold(t, engine, st, event.Event{Type: event.TypeSetPriceFeed, PayloadJSON: []byte(`{"feed":"0xignored"}`)})
	if st.PriceFeedAddress != "0xnewfeed" {
		t.Fatalf("price feed = %q, want refetched value", st.PriceFeedAddress)
	}

	st = mustFold(t, engine, st, event.Event{Type: event.TypeSetRateExpiryTime, PayloadJSON: []byte(`{"time":"1"}`)})
	if st.RateExpiry != 2*time.Hour {
		t.Fatalf("rate expiry = %v, want 2h", st.RateExpiry)
	}
}

func TestFoldReadinessIsMonotonic(t *testing.T) {
	reader := newScriptedReader()
	engine := newTestEngine(reader)

	st := mustFold(t, engine, state.AppState{}, event.Event{Type: event.TypeInitialization})
	if st.Ready {
		t.Fatal("not ready before collections observed")
	}
	st = mustFold(t, engine, st, event.Event{Type: event.TypeAddAllowedToken, PayloadJSON: []byte(`{"token":"0xtka"}`)})
	if st.Ready {
		t.Fatal("not ready before employees observed")
	}
	st = mustFold(t, engine, st, event.Event{Type: event.TypeAddEmployee, PayloadJSON: []byte(`{"employeeId":"1"}`)})
	if !st.Ready {
		t.Fatal("ready once every structural field observed")
	}

	// A later failed fold must not revert readiness.
	reader.EmployeeErr = errors.New("rpc unreachable")
	next, err := engine.Fold(context.Background(), st, event.Event{
		Type:        event.TypeAddEmployeeBonus,
		PayloadJSON: []byte(`{"employeeId":"1","amount":"1"}`),
	})
	if err == nil {
		t.Fatal("expected fold failure")
	}
	if !next.Ready {
		t.Fatal("readiness must stay true after a failed fold")
	}
}
