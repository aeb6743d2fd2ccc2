package application

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testStore     = "store"
	testAltStore  = "alt-store"
	testCrypto    = "BTC"
	testScheme    = domain.DerivationScheme("tpubown")
	testAltScheme = domain.DerivationScheme("tpubalt")
)

var testNetwork = &chaincfg.RegressionNetParams

type testDeps struct {
	ledger   *mockedLedger
	keys     *mockedKeyDeriver
	payouts  *mockedPayoutService
	stores   *mockedStoreDirectory
	locker   *mockedLocker
	settings *mockedSettingsRepo
	labels   *recordingLabelStore
	analyzer *fakeAnalyzer
}

func newTestDeps() *testDeps {
	return &testDeps{
		ledger:   &mockedLedger{},
		keys:     &mockedKeyDeriver{},
		payouts:  &mockedPayoutService{},
		stores:   &mockedStoreDirectory{},
		locker:   &mockedLocker{},
		settings: &mockedSettingsRepo{},
		labels:   newRecordingLabelStore(),
		analyzer: &fakeAnalyzer{anonset: 1},
	}
}

func (d *testDeps) deps() Dependencies {
	return Dependencies{
		Ledger:     d.ledger,
		KeyDeriver: d.keys,
		Labels:     d.labels,
		Payouts:    d.payouts,
		Stores:     d.stores,
		Locker:     d.locker,
		Analyzer:   d.analyzer,
		Settings:   d.settings,
		Network:    testNetwork,
	}
}

func newTestWallet(t *testing.T, d *testDeps, settings domain.WalletSettings) *Wallet {
	t.Helper()
	if len(settings.StoreId) <= 0 {
		settings.StoreId = testStore
	}
	w, err := NewWallet(d.deps(), settings, testCrypto, testScheme, NewBannedCoinRegistry())
	require.NoError(t, err)
	return w
}

func testOutpoint(b byte, index uint32) wire.OutPoint {
	return wire.OutPoint{Hash: chainhash.Hash{b}, Index: index}
}

func testCoin(b byte, index uint32, value btcutil.Amount, confs int64, anonset float64) domain.Coin {
	coin := domain.NewCoin(testOutpoint(b, index), value, confs, "", nil, "")
	coin.AnonymitySet = anonset
	return coin
}

func TestNewWallet(t *testing.T) {
	d := newTestDeps()

	fixtures := []struct {
		name        string
		deps        Dependencies
		settings    domain.WalletSettings
		scheme      domain.DerivationScheme
		expectedErr string
	}{
		{
			name:        "missing ledger",
			deps:        Dependencies{},
			settings:    domain.WalletSettings{StoreId: testStore},
			scheme:      testScheme,
			expectedErr: "missing ledger",
		},
		{
			name:        "missing store id",
			deps:        d.deps(),
			scheme:      testScheme,
			expectedErr: "missing store id",
		},
		{
			name:        "missing scheme",
			deps:        d.deps(),
			settings:    domain.WalletSettings{StoreId: testStore},
			expectedErr: "missing derivation scheme",
		},
	}

	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			w, err := NewWallet(f.deps, f.settings, testCrypto, f.scheme, NewBannedCoinRegistry())
			require.EqualError(t, err, f.expectedErr)
			require.Nil(t, w)
		})
	}
}

func TestUnlockUtxos(t *testing.T) {
	ctx := context.Background()

	t.Run("continues past failures", func(t *testing.T) {
		d := newTestDeps()
		coins := []domain.Coin{
			testCoin(1, 0, 1000, 1, 1),
			testCoin(2, 0, 1000, 1, 1),
			testCoin(3, 0, 1000, 0, 1),
		}
		d.ledger.On("GetUnspentCoins", mock.Anything, testScheme, true).Return(coins, nil)
		d.locker.On("TryUnlock", mock.Anything, coins[0].Outpoint).Return(false, fmt.Errorf("unreachable"))
		d.locker.On("TryUnlock", mock.Anything, coins[1].Outpoint).Return(true, nil)
		d.locker.On("TryUnlock", mock.Anything, coins[2].Outpoint).Return(false, nil)

		w := newTestWallet(t, d, domain.NewWalletSettings(testStore))
		require.NoError(t, w.UnlockUtxos(ctx))
		d.locker.AssertNumberOfCalls(t, "TryUnlock", 3)
	})

	t.Run("ledger failure", func(t *testing.T) {
		d := newTestDeps()
		d.ledger.On("GetUnspentCoins", mock.Anything, testScheme, true).Return(nil, fmt.Errorf("unreachable"))

		w := newTestWallet(t, d, domain.NewWalletSettings(testStore))
		require.Error(t, w.UnlockUtxos(ctx))
		d.locker.AssertNotCalled(t, "TryUnlock", mock.Anything, mock.Anything)
	})
}

func TestCoinjoinHistory(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps()
	w := newTestWallet(t, d, domain.NewWalletSettings(testStore))
	wallet := w.walletId(testStore)

	now := time.Now().UTC()
	for i, ts := range []time.Time{now.Add(-time.Hour), now, now.Add(-2 * time.Hour)} {
		record := domain.CoinjoinRecord{
			Round:     fmt.Sprintf("round-%d", i),
			Timestamp: ts,
		}
		data, err := record.Serialize()
		require.NoError(t, err)
		require.NoError(t, d.labels.AddOrUpdateObject(ctx, wallet, domain.WalletObject{
			ObjectId: domain.NewObjectId(domain.CoinjoinType, record.Round),
			Data:     data,
		}))
	}
	// Objects without data and with malformed data are skipped.
	require.NoError(t, d.labels.AddOrUpdateObject(ctx, wallet, domain.WalletObject{
		ObjectId: domain.NewObjectId(domain.CoinjoinType, "empty"),
	}))
	require.NoError(t, d.labels.AddOrUpdateObject(ctx, wallet, domain.WalletObject{
		ObjectId: domain.NewObjectId(domain.CoinjoinType, "malformed"),
		Data:     json.RawMessage(`"not a record"`),
	}))

	res := w.CoinjoinHistory(ctx)
	require.False(t, res.Failed())
	require.Len(t, res.Value, 3)
	require.Equal(t, "round-1", res.Value[0].Round)
	require.Equal(t, "round-0", res.Value[1].Round)
	require.Equal(t, "round-2", res.Value[2].Round)
}

func TestIsMixable(t *testing.T) {
	ctx := context.Background()
	settings := domain.NewWalletSettings(testStore)
	settings.Coordinators = []domain.CoordinatorSettings{
		{Name: "kruw", Enabled: true},
		{Name: "zksnacks", Enabled: false},
	}

	d := newTestDeps()
	d.stores.On("PaymentMethod", mock.Anything, testStore, testCrypto).Return(
		&domain.PaymentMethod{CryptoCode: testCrypto, Enabled: true, DerivationScheme: testScheme}, nil,
	)
	w := newTestWallet(t, d, settings)

	ok, err := w.IsMixable(ctx, "kruw")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = w.IsMixable(ctx, "zksnacks")
	require.NoError(t, err)
	require.False(t, ok)
}
