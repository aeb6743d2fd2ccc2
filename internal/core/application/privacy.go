package application

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

// PrivacyPercentage returns the share of the value of the coins whose
// anonymity set reaches the threshold. No funds count as fully private.
func PrivacyPercentage(coins []domain.Coin, threshold int) float64 {
	var private, other btcutil.Amount
	for _, c := range coins {
		if c.AnonymitySet >= float64(threshold) {
			private += c.Value
		} else {
			other += c.Value
		}
	}

	total := private + other
	if total <= 0 {
		return 1
	}
	return float64(private) / float64(total)
}

func (w *Wallet) PrivacyPercentage(ctx context.Context) Result[float64] {
	coins, err := w.loadCoins(ctx)
	if err != nil {
		log.WithError(err).WithField("store", w.storeId).Warn("failed to compute privacy percentage")
		return failed[float64](err)
	}
	return succeeded(PrivacyPercentage(coins, w.AnonymitySetTarget()))
}

// IsWalletPrivate holds only when batching is off and every coin reached
// the anonymity set target.
func (w *Wallet) IsWalletPrivate(ctx context.Context) Result[bool] {
	if w.BatchPayments() {
		return succeeded(false)
	}
	res := w.PrivacyPercentage(ctx)
	if res.Failed() {
		return failed[bool](res.Err)
	}
	return succeeded(res.Value >= 1)
}
