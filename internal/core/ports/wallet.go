package ports

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
)

// Ledger gives access to the UTXO set and address pool of a derivation
// scheme.
type Ledger interface {
	GetUnspentCoins(
		ctx context.Context, scheme domain.DerivationScheme, includeUnconfirmed bool,
	) ([]domain.Coin, error)
	// ReserveAddress reserves an unused address of the scheme and labels it
	// in the wallet of the given store.
	ReserveAddress(
		ctx context.Context, storeId string, scheme domain.DerivationScheme, label string,
	) (btcutil.Address, error)
}

type KeyDeriver interface {
	// GetKeyInformation returns nil if the script doesn't belong to the scheme.
	GetKeyInformation(
		ctx context.Context, scheme domain.DerivationScheme, script []byte,
	) (*domain.KeyPathInfo, error)
}

type StoreDirectory interface {
	// PaymentMethod returns nil if the store has no on-chain wallet for the
	// given crypto code.
	PaymentMethod(
		ctx context.Context, storeId, cryptoCode string,
	) (*domain.PaymentMethod, error)
}
