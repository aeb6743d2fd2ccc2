package application

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

// PendingPayments returns the payouts awaiting payment that an output of
// a round with the given parameters can settle. Any failure yields an
// empty result carrying the cause.
func (w *Wallet) PendingPayments(
	ctx context.Context, params domain.RoundParameters,
) Result[[]*domain.PendingPayment] {
	payouts, err := w.payouts.GetPayouts(ctx, domain.PayoutQuery{
		States:         []domain.PayoutState{domain.PayoutAwaitingPayment},
		StoreIds:       []string{w.storeId},
		PaymentMethods: []string{w.cryptoCode},
	})
	if err != nil {
		log.WithError(err).WithField("store", w.storeId).Warn("failed to fetch pending payouts")
		return failed[[]*domain.PendingPayment](err)
	}

	payments := make([]*domain.PendingPayment, 0, len(payouts))
	for _, payout := range payouts {
		addr, err := parseDestination(payout.Destination, w.network)
		if err != nil {
			log.WithError(err).Debugf("skipping payout %s with invalid destination", payout.Id)
			continue
		}
		value := payout.Value()
		if !params.AllowsAmount(value) {
			continue
		}
		payment, err := domain.NewPendingPayment(
			payout.Id, addr, value, w.paymentCallbacks(payout.Id),
		)
		if err != nil {
			log.WithError(err).Debugf("skipping payout %s", payout.Id)
			continue
		}
		if payment.ScriptType == txscript.NonStandardTy ||
			!params.AllowsScriptType(payment.ScriptType) {
			continue
		}
		payments = append(payments, payment)
	}
	return succeeded(payments)
}

func (w *Wallet) paymentCallbacks(payoutId string) domain.PaymentCallbacks {
	logger := log.WithFields(log.Fields{"store": w.storeId, "payout": payoutId})
	return domain.PaymentCallbacks{
		Started: func(ctx context.Context) bool {
			if err := w.payouts.MarkPaid(ctx, w.storeId, payoutId, domain.MarkPayoutRequest{
				State:        domain.PayoutInProgress,
				PaymentProof: domain.NewRoundPaymentProof(),
			}); err != nil {
				logger.WithError(err).Warn("failed to mark payout as in progress")
				return false
			}
			return true
		},
		Failed: func(ctx context.Context) {
			if err := w.payouts.MarkPaid(ctx, w.storeId, payoutId, domain.MarkPayoutRequest{
				State: domain.PayoutAwaitingPayment,
			}); err != nil {
				logger.WithError(err).Warn("failed to revert payout to awaiting payment")
			}
		},
		Succeeded: func(ctx context.Context, roundId, txid chainhash.Hash, outputIndex uint32) {
			if err := w.payouts.MarkPaid(ctx, w.storeId, payoutId, domain.MarkPayoutRequest{
				State:        domain.PayoutInProgress,
				PaymentProof: domain.NewOnChainPaymentProof(txid),
			}); err != nil {
				logger.WithError(err).Warn("failed to attach transaction to payout")
				return
			}
			logger.Infof("payout settled in round %s by output %s:%d", roundId, txid, outputIndex)
		},
	}
}
