// Package state holds the payroll read-model records and the accumulated
// application state produced by the projection fold.
package state

import "strings"

// TokenRef is immutable token metadata fetched once per address.
type TokenRef struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint   `json:"decimals"`
}

// AllowedToken is a token the vault may pay salaries in. The allowed set is
// append-only and deduplicated by case-insensitive address.
type AllowedToken = TokenRef

// AllocationSplit is one entry of an employee's salary allocation, in basis
// points of their total salary.
type AllocationSplit struct {
	TokenAddress string `json:"tokenAddress"`
	BasisPoints  uint   `json:"allocationBasisPoints"`
}

// AddressesEqual compares two ledger addresses ignoring case, since mixed
// checksum casings of the same address appear across events and reads.
func AddressesEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
