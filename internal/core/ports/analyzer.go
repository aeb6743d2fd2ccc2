package ports

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
)

type BlockchainAnalyzer interface {
	// Analyze updates in place the anonymity sets of the wallet outputs of
	// the view.
	Analyze(view *domain.TransactionView) error
	IsStandardDenomination(amount btcutil.Amount) bool
	StandardDenominations() []btcutil.Amount
}
