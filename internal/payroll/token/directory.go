// Package token resolves token metadata through the ledger and memoizes it
// for the process lifetime. Token decimals, name, and symbol never change
// once deployed, so the cache is unbounded and entries are never evicted.
package token

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/payrollwatch/internal/payroll/marshal"
	"github.com/louisbranch/payrollwatch/internal/payroll/state"
	apperrors "github.com/louisbranch/payrollwatch/internal/platform/errors"
)

// MetadataReader is the slice of the ledger boundary the directory needs.
type MetadataReader interface {
	TokenDecimals(ctx context.Context, address string) (string, error)
	TokenName(ctx context.Context, address string) (string, error)
	TokenSymbol(ctx context.Context, address string) (string, error)
}

// Directory memoizes token metadata per address. It is owned by whoever
// constructs it; independent engines get independent cache lifetimes.
type Directory struct {
	reader MetadataReader

	mu    sync.Mutex
	cache map[string]state.TokenRef
}

// NewDirectory creates a directory backed by the given reader.
func NewDirectory(reader MetadataReader) *Directory {
	return &Directory{
		reader: reader,
		cache:  make(map[string]state.TokenRef),
	}
}

// Details returns the metadata for a token address. The first call for an
// address issues the three metadata reads concurrently; any failure fails
// the whole lookup and leaves the cache unpopulated so a later retry can
// succeed. Repeated calls return the cached value without touching the
// ledger.
func (d *Directory) Details(ctx context.Context, address string) (state.TokenRef, error) {
	key := strings.ToLower(strings.TrimSpace(address))

	d.mu.Lock()
	if cached, ok := d.cache[key]; ok {
		d.mu.Unlock()
		return cached, nil
	}
	d.mu.Unlock()

	var decimals, name, symbol string
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		value, err := d.reader.TokenDecimals(groupCtx, address)
		decimals = value
		return err
	})
	group.Go(func() error {
		value, err := d.reader.TokenName(groupCtx, address)
		name = value
		return err
	})
	group.Go(func() error {
		value, err := d.reader.TokenSymbol(groupCtx, address)
		symbol = value
		return err
	})
	if err := group.Wait(); err != nil {
		return state.TokenRef{}, apperrors.WrapWithMetadata(
			apperrors.CodeTokenLookupFailed,
			"token metadata lookup failed",
			map[string]string{"address": address},
			err,
		)
	}

	token := state.TokenRef{
		Address:  address,
		Symbol:   symbol,
		Name:     name,
		Decimals: marshal.ParseUint(decimals),
	}

	d.mu.Lock()
	// First writer wins; a concurrent lookup resolved the same immutable
	// metadata.
	if cached, ok := d.cache[key]; ok {
		d.mu.Unlock()
		return cached, nil
	}
	d.cache[key] = token
	d.mu.Unlock()
	return token, nil
}
