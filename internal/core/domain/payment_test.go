package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPayout(t *testing.T) {
	t.Run("value", func(t *testing.T) {
		payout := domain.Payout{Amount: decimal.RequireFromString("0.02")}
		require.Equal(t, btcutil.Amount(2_000_000), payout.Value())
	})

	t.Run("query", func(t *testing.T) {
		payout := domain.Payout{StoreId: "store", PaymentMethod: "BTC", State: domain.PayoutAwaitingPayment}

		require.True(t, domain.PayoutQuery{}.Matches(payout))
		require.True(t, domain.PayoutQuery{
			States:         []domain.PayoutState{domain.PayoutAwaitingPayment},
			StoreIds:       []string{"store"},
			PaymentMethods: []string{"BTC"},
		}.Matches(payout))
		require.False(t, domain.PayoutQuery{
			States: []domain.PayoutState{domain.PayoutInProgress},
		}.Matches(payout))
		require.False(t, domain.PayoutQuery{StoreIds: []string{"other"}}.Matches(payout))
	})

	t.Run("proofs", func(t *testing.T) {
		require.JSONEq(t, `{"proofType":"Wabisabi"}`, string(domain.NewRoundPaymentProof()))

		hash := chainhash.Hash{0xab}
		require.JSONEq(
			t,
			`{"candidates":["`+hash.String()+`"],"transactionId":"`+hash.String()+`"}`,
			string(domain.NewOnChainPaymentProof(hash)),
		)
	})
}

func TestPendingPayment(t *testing.T) {
	addr, err := btcutil.DecodeAddress("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", &chaincfg.MainNetParams)
	require.NoError(t, err)

	t.Run("script", func(t *testing.T) {
		payment, err := domain.NewPendingPayment("payout", addr, 1000, domain.PaymentCallbacks{})
		require.NoError(t, err)
		require.Equal(t, txscript.WitnessV0PubKeyHashTy, payment.ScriptType)
		require.NotEmpty(t, payment.ScriptPubKey)

		// Missing callbacks are no-ops.
		require.True(t, payment.PaymentStarted(context.Background()))
		payment.PaymentFailed(context.Background())
		payment.PaymentSucceeded(context.Background(), chainhash.Hash{}, chainhash.Hash{}, 0)
	})

	t.Run("callbacks", func(t *testing.T) {
		var started, failed, succeeded bool
		payment, err := domain.NewPendingPayment("payout", addr, 1000, domain.PaymentCallbacks{
			Started: func(context.Context) bool {
				started = true
				return false
			},
			Failed: func(context.Context) { failed = true },
			Succeeded: func(context.Context, chainhash.Hash, chainhash.Hash, uint32) {
				succeeded = true
			},
		})
		require.NoError(t, err)

		require.False(t, payment.PaymentStarted(context.Background()))
		payment.PaymentFailed(context.Background())
		payment.PaymentSucceeded(context.Background(), chainhash.Hash{}, chainhash.Hash{}, 1)
		require.True(t, started)
		require.True(t, failed)
		require.True(t, succeeded)
	})
}

func TestCoinjoinRecord(t *testing.T) {
	payoutId := "payout"
	out := domain.NewCoinjoinCoin("txid-1", 2_000_000, 1)
	out.PayoutId = &payoutId

	record := domain.CoinjoinRecord{
		Round:           "round",
		CoordinatorName: "kruw",
		Transaction:     "txid",
		Timestamp:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		CoinsIn:         []domain.CoinjoinCoin{domain.NewCoinjoinCoin("prev-0", 5_000_000, 3)},
		CoinsOut:        []domain.CoinjoinCoin{out},
	}

	buf, err := record.Serialize()
	require.NoError(t, err)
	require.Contains(t, string(buf), `"coordinatorName":"kruw"`)
	require.Contains(t, string(buf), `"payoutId":"payout"`)
	require.Contains(t, string(buf), `"amount":"0.05"`)

	parsed, err := domain.ParseCoinjoinRecord(buf)
	require.NoError(t, err)
	require.Equal(t, record.CoordinatorName, parsed.CoordinatorName)
	require.True(t, record.Timestamp.Equal(parsed.Timestamp))
	require.Nil(t, parsed.CoinsIn[0].PayoutId)
	require.True(t, decimal.RequireFromString("0.02").Equal(parsed.CoinsOut[0].Amount))
}
