// Package projection folds ledger events into payroll state snapshots.
//
// The engine owns the upsert, dedup, and allocation semantics; it performs
// external reads through the ledger boundary but never mutates anything
// outside the snapshot it returns.
package projection

import (
	"context"
	"log"
	"os"

	"github.com/louisbranch/payrollwatch/internal/payroll/event"
	"github.com/louisbranch/payrollwatch/internal/payroll/ledger"
	"github.com/louisbranch/payrollwatch/internal/payroll/marshal"
	"github.com/louisbranch/payrollwatch/internal/payroll/state"
	"github.com/louisbranch/payrollwatch/internal/payroll/token"
	apperrors "github.com/louisbranch/payrollwatch/internal/platform/errors"
)

// Engine folds one event at a time into the accumulated state. Callers must
// serialize Fold invocations; the engine itself holds no snapshot.
type Engine struct {
	reader ledger.Reader
	tokens *token.Directory
	logger *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger overrides the engine's fold-failure logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates a projection engine. The token directory is injected so
// independent engines never share cache lifetime.
func New(reader ledger.Reader, tokens *token.Directory, opts ...Option) *Engine {
	engine := &Engine{
		reader: reader,
		tokens: tokens,
		logger: log.New(os.Stderr, "", log.LstdFlags),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}
	return engine
}

// Fold applies one event to the current snapshot and returns the next one.
//
// Events with no registered handler return the snapshot unchanged — an
// explicit identity, never an error, so forward-compatible tags pass
// through silently. A handler failure is logged and returns the prior
// snapshot exactly as it was; the error is reported for dead-lettering but
// must never halt the stream.
func (e *Engine) Fold(ctx context.Context, st state.AppState, ev event.Event) (state.AppState, error) {
	next, err := e.apply(ctx, st.Clone(), ev)
	if err != nil {
		e.logger.Printf("payroll: fold %s failed, keeping prior snapshot: %v", ev.Type, err)
		return st, err
	}
	if !next.Ready && next.StructurallyReady() {
		next.Ready = true
	}
	return next, nil
}

// apply dispatches on the event type. Handlers receive a private clone and
// may mutate it freely; on error the clone is discarded wholesale, which is
// what makes a failed fold side-effect-free.
func (e *Engine) apply(ctx context.Context, st state.AppState, ev event.Event) (state.AppState, error) {
	switch ev.Type {
	case event.TypeInitialization:
		return e.onInit(ctx, st)
	case event.TypeAddEmployee,
		event.TypeTerminateEmployee,
		event.TypeSetEmployeeSalary,
		event.TypeAddEmployeeAccruedSalary,
		event.TypeAddEmployeeBonus,
		event.TypeAddEmployeeReimbursement:
		return e.onEmployeeChanged(ctx, st, ev)
	case event.TypeChangeAddressByEmployee:
		return e.onChangeAddress(ctx, st, ev)
	case event.TypeDetermineAllocation:
		return e.onDetermineAllocation(ctx, st, ev)
	case event.TypeSendPayment:
		return e.onSendPayment(ctx, st, ev)
	case event.TypeAddAllowedToken:
		return e.onAddAllowedToken(ctx, st, ev)
	case event.TypeSetPriceFeed:
		return e.onSetPriceFeed(ctx, st)
	case event.TypeSetRateExpiryTime:
		return e.onSetRateExpiryTime(ctx, st)
	default:
		// Unknown tags are a deliberate no-op identity transform.
		return st, nil
	}
}

// onInit populates the contract-level scalars on the synthetic first event.
// The startup supervisor guarantees the instance is initialized before the
// feed starts, so failures here are transport faults, not ordering bugs.
func (e *Engine) onInit(ctx context.Context, st state.AppState) (state.AppState, error) {
	finance, err := e.reader.FinanceAddress(ctx)
	if err != nil {
		return state.AppState{}, wrapTransport("read finance address", err)
	}
	vault, err := e.reader.VaultAddress(ctx, finance)
	if err != nil {
		return state.AppState{}, wrapTransport("read vault address", err)
	}
	denominationAddress, err := e.reader.DenominationTokenAddress(ctx)
	if err != nil {
		return state.AppState{}, wrapTransport("read denomination token", err)
	}
	denomination, err := e.tokens.Details(ctx, denominationAddress)
	if err != nil {
		return state.AppState{}, err
	}
	feed, err := e.reader.PriceFeedAddress(ctx)
	if err != nil {
		return state.AppState{}, wrapTransport("read price feed", err)
	}
	rateExpiry, err := e.reader.RateExpiryTime(ctx)
	if err != nil {
		return state.AppState{}, wrapTransport("read rate expiry", err)
	}

	st.FinanceAddress = finance
	st.VaultAddress = vault
	st.DenominationToken = &denomination
	st.PriceFeedAddress = feed
	st.RateExpiry = marshal.ParseDurationSeconds(rateExpiry)
	if st.Totals == nil {
		st.Totals = state.NewPaymentTotals()
	}
	return st, nil
}

// onEmployeeChanged handles every event that only signals "this employee
// changed": the authoritative record is refetched by id and merged over the
// local one. The event payload's remaining fields are deliberately ignored.
func (e *Engine) onEmployeeChanged(ctx context.Context, st state.AppState, ev event.Event) (state.AppState, error) {
	var payload event.EmployeeRefPayload
	if err := ev.DecodePayload(&payload); err != nil {
		return state.AppState{}, err
	}
	if payload.EmployeeID == "" {
		return state.AppState{}, apperrors.New(apperrors.CodeEmployeeEmptyID, "event carries no employee id")
	}

	fetched, err := e.fetchEmployeeByID(ctx, payload.EmployeeID)
	if err != nil {
		return state.AppState{}, err
	}
	upsertEmployee(&st, fetched, st.EmployeeIndexByID(payload.EmployeeID))
	return st, nil
}

// onChangeAddress re-indexes an employee under their new account address
// and recomputes their salary allocation. An unknown address is tolerated:
// the event may reference pre-existing data the projection never saw.
func (e *Engine) onChangeAddress(ctx context.Context, st state.AppState, ev event.Event) (state.AppState, error) {
	var payload event.ChangeAddressPayload
	if err := ev.DecodePayload(&payload); err != nil {
		return state.AppState{}, err
	}

	idx := st.EmployeeIndexByAddress(payload.OldAddress)
	if idx == -1 {
		return st, nil
	}
	st.Employees[idx].AccountAddress = payload.NewAddress
	return e.recomputeAllocation(ctx, st, idx)
}

// onDetermineAllocation recomputes one employee's salary allocation
// wholesale. Same tolerance for unknown employees as onChangeAddress.
func (e *Engine) onDetermineAllocation(ctx context.Context, st state.AppState, ev event.Event) (state.AppState, error) {
	var payload event.DetermineAllocationPayload
	if err := ev.DecodePayload(&payload); err != nil {
		return state.AppState{}, err
	}

	idx := st.EmployeeIndexByID(payload.EmployeeID)
	if idx == -1 {
		return st, nil
	}
	return e.recomputeAllocation(ctx, st, idx)
}

func (e *Engine) recomputeAllocation(ctx context.Context, st state.AppState, idx int) (state.AppState, error) {
	records, err := e.reader.SalaryAllocation(ctx, st.Employees[idx].ID, st.AllowedTokenAddresses())
	if err != nil {
		return state.AppState{}, wrapTransport("read salary allocation", err)
	}
	st.Employees[idx].SalaryAllocation = state.AllocationFromRecords(records)
	return st, nil
}

// onSendPayment appends a payment unless its (transaction, token) pair is
// already recorded, refreshes the paying employee, and rolls the amount
// into the running totals. A replayed event is a pure no-op.
func (e *Engine) onSendPayment(ctx context.Context, st state.AppState, ev event.Event) (state.AppState, error) {
	var payload event.SendPaymentPayload
	if err := ev.DecodePayload(&payload); err != nil {
		return state.AppState{}, err
	}

	if st.HasPayment(ev.TxHash, payload.Token) {
		return st, nil
	}

	tokenRef, ok := st.AllowedTokenByAddress(payload.Token)
	if !ok {
		// Payments can reference tokens allowed before this projection
		// started observing; fall back to the directory.
		fetched, err := e.tokens.Details(ctx, payload.Token)
		if err != nil {
			return state.AppState{}, err
		}
		tokenRef = fetched
	}

	payment, err := state.PaymentFromEvent(payload, tokenRef, ev.TxHash)
	if err != nil {
		return state.AppState{}, err
	}

	fetched, err := e.fetchEmployeeByAddress(ctx, payload.Employee)
	if err != nil {
		return state.AppState{}, err
	}

	idx := st.EmployeeIndexByAddress(payload.Employee)
	if idx == -1 {
		idx = st.EmployeeIndexByID(fetched.ID)
	}
	upsertEmployee(&st, fetched, idx)

	st.Payments = append(st.Payments, payment)
	if st.Totals == nil {
		st.Totals = state.NewPaymentTotals()
	}
	st.Totals.Record(payment.Amount, payment.Date)
	return st, nil
}

// onAddAllowedToken appends token metadata for a newly-allowed token.
// Replaying the event is a no-op thanks to the case-insensitive dedup.
func (e *Engine) onAddAllowedToken(ctx context.Context, st state.AppState, ev event.Event) (state.AppState, error) {
	var payload event.AddAllowedTokenPayload
	if err := ev.DecodePayload(&payload); err != nil {
		return state.AppState{}, err
	}

	if st.AllowedTokens == nil {
		st.AllowedTokens = []state.AllowedToken{}
	}
	if _, exists := st.AllowedTokenByAddress(payload.Token); exists {
		return st, nil
	}

	tokenRef, err := e.tokens.Details(ctx, payload.Token)
	if err != nil {
		return state.AppState{}, err
	}
	st.AllowedTokens = append(st.AllowedTokens, tokenRef)
	return st, nil
}

// onSetPriceFeed re-fetches the price feed address. The event only signals
// that the scalar changed; the ledger is the source of truth for its value.
func (e *Engine) onSetPriceFeed(ctx context.Context, st state.AppState) (state.AppState, error) {
	feed, err := e.reader.PriceFeedAddress(ctx)
	if err != nil {
		return state.AppState{}, wrapTransport("read price feed", err)
	}
	st.PriceFeedAddress = feed
	return st, nil
}

// onSetRateExpiryTime re-fetches the rate expiry window.
func (e *Engine) onSetRateExpiryTime(ctx context.Context, st state.AppState) (state.AppState, error) {
	rateExpiry, err := e.reader.RateExpiryTime(ctx)
	if err != nil {
		return state.AppState{}, wrapTransport("read rate expiry", err)
	}
	st.RateExpiry = marshal.ParseDurationSeconds(rateExpiry)
	return st, nil
}

func (e *Engine) fetchEmployeeByID(ctx context.Context, id string) (state.Employee, error) {
	rec, err := e.reader.EmployeeByID(ctx, id)
	if err != nil {
		return state.Employee{}, apperrors.WrapWithMetadata(
			apperrors.CodeEmployeeFetchFailed,
			"employee refetch by id failed",
			map[string]string{"employeeId": id},
			err,
		)
	}
	return state.EmployeeFromRecord(rec)
}

func (e *Engine) fetchEmployeeByAddress(ctx context.Context, address string) (state.Employee, error) {
	rec, err := e.reader.EmployeeByAddress(ctx, address)
	if err != nil {
		return state.Employee{}, apperrors.WrapWithMetadata(
			apperrors.CodeEmployeeFetchFailed,
			"employee refetch by address failed",
			map[string]string{"address": address},
			err,
		)
	}
	return state.EmployeeFromRecord(rec)
}

// upsertEmployee applies the refetch-and-merge policy at the given index,
// appending when the employee is new. It also makes the employees
// collection structurally present, which feeds the readiness gate.
func upsertEmployee(st *state.AppState, fetched state.Employee, idx int) {
	if st.Employees == nil {
		st.Employees = []state.Employee{}
	}
	if idx == -1 {
		st.Employees = append(st.Employees, fetched)
		return
	}
	st.Employees[idx] = state.MergeEmployee(st.Employees[idx], fetched)
}

func wrapTransport(operation string, err error) error {
	return apperrors.Wrap(apperrors.CodeTransportError, operation+" failed", err)
}
