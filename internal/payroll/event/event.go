// Package event defines the ledger event envelope and the closed set of
// event types the projection understands.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type identifies the type of a ledger event. Values match the event names
// emitted by the payroll contract, so the feed can be wired straight through.
type Type string

// TypeInitialization is the synthetic event prepended to the feed before any
// ledger-origin event. It never appears on chain.
const TypeInitialization Type = "Initialization"

// Employee lifecycle events.
const (
	// TypeAddEmployee records a new employee registration.
	TypeAddEmployee Type = "AddEmployee"
	// TypeTerminateEmployee records an employee termination.
	TypeTerminateEmployee Type = "TerminateEmployee"
	// TypeSetEmployeeSalary records a salary change.
	TypeSetEmployeeSalary Type = "SetEmployeeSalary"
	// TypeAddEmployeeAccruedSalary records accrued salary being added.
	TypeAddEmployeeAccruedSalary Type = "AddEmployeeAccruedSalary"
	// TypeAddEmployeeBonus records a bonus grant.
	TypeAddEmployeeBonus Type = "AddEmployeeBonus"
	// TypeAddEmployeeReimbursement records a reimbursement grant.
	TypeAddEmployeeReimbursement Type = "AddEmployeeReimbursement"
	// TypeChangeAddressByEmployee records an employee rotating their own
	// account address.
	TypeChangeAddressByEmployee Type = "ChangeAddressByEmployee"
	// TypeDetermineAllocation records an employee choosing how their salary
	// splits across allowed tokens.
	TypeDetermineAllocation Type = "DetermineAllocation"
)

// Payment and treasury events.
const (
	// TypeSendPayment records a payroll payment leaving the vault.
	TypeSendPayment Type = "SendPayment"
	// TypeAddAllowedToken records a token being allowed for salary payment.
	TypeAddAllowedToken Type = "AddAllowedToken"
	// TypeSetPriceFeed records the price feed address changing.
	TypeSetPriceFeed Type = "SetPriceFeed"
	// TypeSetRateExpiryTime records the exchange-rate expiry window changing.
	TypeSetRateExpiryTime Type = "SetRateExpiryTime"
)

// Event represents one immutable entry in the ordered ledger feed.
type Event struct {
	// Type identifies the kind of event and selects the fold handler.
	Type Type
	// TxHash is the originating transaction hash (empty for the synthetic
	// initialization event).
	TxHash string
	// PayloadJSON holds the event-specific return values as JSON.
	PayloadJSON []byte
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// DecodePayload unmarshals the event payload into the provided target.
// An empty payload decodes as an empty object.
func (e Event) DecodePayload(target any) error {
	raw := e.PayloadJSON
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
