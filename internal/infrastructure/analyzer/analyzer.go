package analyzer

import (
	"fmt"
	"math"
	"slices"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/coinjoin-tools/cjwallet/internal/core/ports"
)

type analyzer struct {
	denominations []btcutil.Amount
	standard      map[btcutil.Amount]struct{}
}

func NewAnalyzer() ports.BlockchainAnalyzer {
	denoms := standardDenominations()
	standard := make(map[btcutil.Amount]struct{}, len(denoms))
	for _, d := range denoms {
		standard[d] = struct{}{}
	}
	return &analyzer{denoms, standard}
}

// Analyze gives every wallet output the smallest anonymity set among the
// wallet inputs, increased by the number of foreign outputs of the same
// value. The increase can't exceed the number of foreign inputs, since
// each of them can own at most one of those outputs.
func (a *analyzer) Analyze(view *domain.TransactionView) error {
	if view == nil || view.Tx == nil {
		return fmt.Errorf("missing transaction")
	}
	tx := view.Tx
	for _, out := range view.WalletOutputs {
		if int(out.Outpoint.Index) >= len(tx.TxOut) {
			return fmt.Errorf("wallet output %d out of range", out.Outpoint.Index)
		}
	}

	walletInputs := make(map[wire.OutPoint]struct{}, len(view.WalletInputs))
	inherited := math.Inf(1)
	for _, in := range view.WalletInputs {
		walletInputs[in.Outpoint] = struct{}{}
		inherited = math.Min(inherited, in.AnonymitySet)
	}
	if math.IsInf(inherited, 1) || inherited < 1 {
		inherited = 1
	}

	foreignInputs := 0
	for _, in := range tx.TxIn {
		if _, ok := walletInputs[in.PreviousOutPoint]; !ok {
			foreignInputs++
		}
	}

	foreignOutputs := make(map[btcutil.Amount]int)
	for i, out := range tx.TxOut {
		if view.IsWalletOutput(uint32(i)) {
			continue
		}
		foreignOutputs[btcutil.Amount(out.Value)]++
	}

	for _, out := range view.WalletOutputs {
		peers := min(foreignOutputs[out.Value], foreignInputs)
		out.AnonymitySet = inherited + float64(peers)
	}
	return nil
}

func (a *analyzer) IsStandardDenomination(amount btcutil.Amount) bool {
	_, ok := a.standard[amount]
	return ok
}

func (a *analyzer) StandardDenominations() []btcutil.Amount {
	return slices.Clone(a.denominations)
}
