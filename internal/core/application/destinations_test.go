package application

import (
	"context"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNextDestinations(t *testing.T) {
	ctx := context.Background()
	segwit, _, _ := testAddresses(t)
	addr, err := btcutil.DecodeAddress(segwit, testNetwork)
	require.NoError(t, err)

	withAlternate := domain.WalletSettings{StoreId: testStore, MixToOtherWallet: testAltStore}
	altWallet := func(scheme domain.DerivationScheme) *domain.PaymentMethod {
		return &domain.PaymentMethod{CryptoCode: testCrypto, Enabled: true, DerivationScheme: scheme}
	}

	t.Run("own_wallet", func(t *testing.T) {
		d := newTestDeps()
		d.ledger.On("ReserveAddress", mock.Anything, testStore, testScheme, domain.CoinjoinLabel).Return(addr, nil)
		w := newTestWallet(t, d, domain.WalletSettings{StoreId: testStore})

		addrs, err := w.NextDestinations(ctx, 3, false, true)
		require.NoError(t, err)
		require.Len(t, addrs, 3)
		d.ledger.AssertNumberOfCalls(t, "ReserveAddress", 3)
		d.stores.AssertNotCalled(t, "PaymentMethod", mock.Anything, mock.Anything, mock.Anything)

		addrs, err = w.NextDestinations(ctx, 0, false, true)
		require.NoError(t, err)
		require.Empty(t, addrs)
	})

	t.Run("alternate_wallet", func(t *testing.T) {
		d := newTestDeps()
		d.stores.On("PaymentMethod", mock.Anything, testAltStore, testCrypto).Return(altWallet(testAltScheme), nil)
		d.ledger.On("ReserveAddress", mock.Anything, testAltStore, testAltScheme, domain.CoinjoinLabel).Return(addr, nil)
		d.ledger.On("ReserveAddress", mock.Anything, testStore, testScheme, domain.CoinjoinLabel).Return(addr, nil)
		w := newTestWallet(t, d, withAlternate)

		addrs, err := w.NextDestinations(ctx, 2, false, true)
		require.NoError(t, err)
		require.Len(t, addrs, 2)
		d.ledger.AssertNumberOfCalls(t, "ReserveAddress", 2)
		d.ledger.AssertNotCalled(t, "ReserveAddress", mock.Anything, testStore, testScheme, domain.CoinjoinLabel)

		// Change outputs always go to the own wallet.
		addrs, err = w.NextDestinations(ctx, 1, false, false)
		require.NoError(t, err)
		require.Len(t, addrs, 1)
		d.ledger.AssertCalled(t, "ReserveAddress", mock.Anything, testStore, testScheme, domain.CoinjoinLabel)
	})

	t.Run("script_type_mismatch", func(t *testing.T) {
		d := newTestDeps()
		d.stores.On("PaymentMethod", mock.Anything, testAltStore, testCrypto).Return(
			altWallet(domain.DerivationScheme("tpubalt-[taproot]")), nil,
		)
		d.ledger.On("ReserveAddress", mock.Anything, testStore, testScheme, domain.CoinjoinLabel).Return(addr, nil)
		w := newTestWallet(t, d, withAlternate)

		addrs, err := w.NextDestinations(ctx, 2, true, true)
		require.NoError(t, err)
		require.Len(t, addrs, 2)
		require.Equal(t, testAltStore, w.Settings().MixToOtherWallet)
		d.settings.AssertNotCalled(t, "UpsertSettings", mock.Anything, mock.Anything)
	})

	t.Run("alternate_wallet_failure", func(t *testing.T) {
		fixtures := []struct {
			name string
			pm   *domain.PaymentMethod
			err  error
		}{
			{"lookup error", nil, fmt.Errorf("unreachable")},
			{"no wallet", nil, nil},
			{"disabled wallet", &domain.PaymentMethod{CryptoCode: testCrypto, DerivationScheme: testAltScheme}, nil},
		}

		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				d := newTestDeps()
				d.stores.On("PaymentMethod", mock.Anything, testAltStore, testCrypto).Return(f.pm, f.err)
				d.ledger.On("ReserveAddress", mock.Anything, testStore, testScheme, domain.CoinjoinLabel).Return(addr, nil)

				cleared := withAlternate
				cleared.MixToOtherWallet = ""
				d.settings.On("UpsertSettings", mock.Anything, cleared).Return(nil)
				w := newTestWallet(t, d, withAlternate)

				addrs, err := w.NextDestinations(ctx, 1, false, true)
				require.NoError(t, err)
				require.Len(t, addrs, 1)
				require.Empty(t, w.Settings().MixToOtherWallet)
				d.settings.AssertExpectations(t)

				// The alternate store is not tried again.
				_, err = w.NextDestinations(ctx, 1, false, true)
				require.NoError(t, err)
				d.stores.AssertNumberOfCalls(t, "PaymentMethod", 1)
			})
		}
	})

	t.Run("pleb_mode_ignores_alternate", func(t *testing.T) {
		d := newTestDeps()
		d.ledger.On("ReserveAddress", mock.Anything, testStore, testScheme, domain.CoinjoinLabel).Return(addr, nil)
		settings := withAlternate
		settings.PlebMode = true
		w := newTestWallet(t, d, settings)

		addrs, err := w.NextDestinations(ctx, 1, false, true)
		require.NoError(t, err)
		require.Len(t, addrs, 1)
		d.stores.AssertNotCalled(t, "PaymentMethod", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reservation_failure", func(t *testing.T) {
		d := newTestDeps()
		d.ledger.On("ReserveAddress", mock.Anything, testStore, testScheme, domain.CoinjoinLabel).Return(nil, fmt.Errorf("unreachable"))
		w := newTestWallet(t, d, domain.WalletSettings{StoreId: testStore})

		addrs, err := w.NextDestinations(ctx, 2, false, true)
		require.Error(t, err)
		require.Nil(t, addrs)
	})
}
