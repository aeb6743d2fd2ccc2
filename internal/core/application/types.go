package application

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/coinjoin-tools/cjwallet/internal/core/ports"
)

// Result is the outcome of a best-effort read. A failed result carries the
// zero value so that callers that only care about the value can keep
// going, while others can tell "nothing" from "unavailable".
type Result[T any] struct {
	Value T
	Err   error
}

func (r Result[T]) Failed() bool {
	return r.Err != nil
}

func succeeded[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func failed[T any](err error) Result[T] {
	var zero T
	return Result[T]{Value: zero, Err: err}
}

// Dependencies are the services shared by all store wallets.
type Dependencies struct {
	Ledger     ports.Ledger
	KeyDeriver ports.KeyDeriver
	Labels     ports.LabelStore
	Payouts    ports.PayoutService
	Stores     ports.StoreDirectory
	Locker     ports.UtxoLocker
	Analyzer   ports.BlockchainAnalyzer
	Settings   domain.SettingsRepository
	Network    *chaincfg.Params
}

func (d Dependencies) validate() error {
	if d.Ledger == nil {
		return fmt.Errorf("missing ledger")
	}
	if d.KeyDeriver == nil {
		return fmt.Errorf("missing key deriver")
	}
	if d.Labels == nil {
		return fmt.Errorf("missing label store")
	}
	if d.Payouts == nil {
		return fmt.Errorf("missing payout service")
	}
	if d.Stores == nil {
		return fmt.Errorf("missing store directory")
	}
	if d.Locker == nil {
		return fmt.Errorf("missing utxo locker")
	}
	if d.Analyzer == nil {
		return fmt.Errorf("missing blockchain analyzer")
	}
	if d.Settings == nil {
		return fmt.Errorf("missing settings repository")
	}
	if d.Network == nil {
		return fmt.Errorf("missing network")
	}
	return nil
}

type errWalletUnavailable struct {
	storeId    string
	cryptoCode string
}

func (e errWalletUnavailable) Error() string {
	return fmt.Sprintf("store %s has no enabled %s wallet", e.storeId, e.cryptoCode)
}
