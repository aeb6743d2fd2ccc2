package application

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// NextDestinations reserves count fresh addresses labeled as coinjoin
// outputs. Mixed outputs go to the alternate store when one is configured
// and its scripts are of the same type as ours; the taproot preference is
// not taken into account, addresses always follow the derivation scheme.
func (w *Wallet) NextDestinations(
	ctx context.Context, count int, preferTaproot, mixedOutputs bool,
) ([]btcutil.Address, error) {
	if count <= 0 {
		return nil, nil
	}

	if store := w.Settings().AlternateStore(); mixedOutputs && len(store) > 0 {
		addrs, err := w.reserveFromAlternateStore(ctx, store, count)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"store":     w.storeId,
				"alternate": store,
			}).Warn("failed to reserve addresses in alternate store, falling back to own wallet")
			w.clearAlternateStore(ctx, store)
		} else if addrs != nil {
			return addrs, nil
		}
	}

	return w.reserveAddresses(ctx, w.storeId, w.scheme, count)
}

// reserveFromAlternateStore returns no addresses and no error when the
// alternate wallet derives scripts of another type.
func (w *Wallet) reserveFromAlternateStore(
	ctx context.Context, store string, count int,
) ([]btcutil.Address, error) {
	pm, err := w.stores.PaymentMethod(ctx, store, w.cryptoCode)
	if err != nil {
		return nil, err
	}
	if pm == nil || !pm.Enabled {
		return nil, errWalletUnavailable{store, w.cryptoCode}
	}
	if pm.DerivationScheme.ScriptType() != w.scheme.ScriptType() {
		log.WithField("alternate", store).Debug("alternate wallet script type mismatch")
		return nil, nil
	}
	return w.reserveAddresses(ctx, store, pm.DerivationScheme, count)
}

func (w *Wallet) reserveAddresses(
	ctx context.Context, store string, scheme domain.DerivationScheme, count int,
) ([]btcutil.Address, error) {
	addrs := make([]btcutil.Address, count)
	g, gctx := errgroup.WithContext(ctx)
	for i := range addrs {
		g.Go(func() error {
			addr, err := w.ledger.ReserveAddress(gctx, store, scheme, domain.CoinjoinLabel)
			if err != nil {
				return err
			}
			addrs[i] = addr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return addrs, nil
}
