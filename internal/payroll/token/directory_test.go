package token

import (
	"context"
	"errors"
	"testing"

	"github.com/louisbranch/payrollwatch/internal/payroll/ledger/ledgertest"
	apperrors "github.com/louisbranch/payrollwatch/internal/platform/errors"
)

func TestDetailsFetchesAndCaches(t *testing.T) {
	reader := &ledgertest.Reader{}
	reader.SetToken("0xtoken", ledgertest.Token{Decimals: "18", Name: "Test Token", Symbol: "TKA"})
	directory := NewDirectory(reader)

	first, err := directory.Details(context.Background(), "0xtoken")
	if err != nil {
		t.Fatalf("Details returned error: %v", err)
	}
	if first.Symbol != "TKA" || first.Name != "Test Token" || first.Decimals != 18 {
		t.Fatalf("unexpected metadata: %+v", first)
	}

	second, err := directory.Details(context.Background(), "0xTOKEN")
	if err != nil {
		t.Fatalf("cached Details returned error: %v", err)
	}
	if second != first {
		t.Fatalf("cached value differs: %+v vs %+v", second, first)
	}
	if got := reader.Calls("TokenDecimals"); got != 1 {
		t.Fatalf("decimals read %d times, want 1", got)
	}
	if got := reader.Calls("TokenSymbol"); got != 1 {
		t.Fatalf("symbol read %d times, want 1", got)
	}
}

func TestDetailsPartialFailureDoesNotPoisonCache(t *testing.T) {
	reader := &ledgertest.Reader{}
	reader.SetToken("0xtoken", ledgertest.Token{Decimals: "18", Name: "Test Token", Symbol: "TKA"})
	reader.SymbolErr = errors.New("rpc timeout")
	directory := NewDirectory(reader)

	_, err := directory.Details(context.Background(), "0xtoken")
	if err == nil {
		t.Fatal("expected lookup failure")
	}
	if !apperrors.IsCode(err, apperrors.CodeTokenLookupFailed) {
		t.Fatalf("expected TOKEN_LOOKUP_FAILED, got %v", err)
	}

	// Clear the fault; the retry must hit the ledger again and succeed.
	reader.SymbolErr = nil
	token, err := directory.Details(context.Background(), "0xtoken")
	if err != nil {
		t.Fatalf("retry after failure returned error: %v", err)
	}
	if token.Symbol != "TKA" {
		t.Fatalf("retry metadata = %+v", token)
	}
}

func TestDetailsIndependentDirectoriesDoNotShareCache(t *testing.T) {
	readerA := &ledgertest.Reader{}
	readerA.SetToken("0xtoken", ledgertest.Token{Decimals: "6", Name: "A", Symbol: "AAA"})
	readerB := &ledgertest.Reader{}
	readerB.SetToken("0xtoken", ledgertest.Token{Decimals: "8", Name: "B", Symbol: "BBB"})

	tokenA, err := NewDirectory(readerA).Details(context.Background(), "0xtoken")
	if err != nil {
		t.Fatalf("directory A: %v", err)
	}
	tokenB, err := NewDirectory(readerB).Details(context.Background(), "0xtoken")
	if err != nil {
		t.Fatalf("directory B: %v", err)
	}
	if tokenA.Symbol == tokenB.Symbol {
		t.Fatal("directories should not share cache state")
	}
}
