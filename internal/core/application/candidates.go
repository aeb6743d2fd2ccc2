package application

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SelectCandidates narrows the coins of a wallet down to those that can be
// registered as inputs of a round of the given coordinator. Each stage
// filters the result of the previous one.
func SelectCandidates(
	coins []domain.Coin, settings domain.WalletSettings, coordinator string,
	locked map[wire.OutPoint]struct{}, bannedCoins *BannedCoinRegistry, now time.Time,
) []domain.Coin {
	candidates := coins

	if allowed := settings.AllowedLabels(); len(allowed) > 0 {
		candidates = filterCoins(candidates, func(c domain.Coin) bool {
			return c.HasAnyLabel(allowed)
		})
	}
	if excluded := settings.ExcludedLabels(); len(excluded) > 0 {
		candidates = filterCoins(candidates, func(c domain.Coin) bool {
			return !c.HasAnyLabel(excluded)
		})
	}
	if settings.RestrictToCoordinator() {
		candidates = filterCoins(candidates, func(c domain.Coin) bool {
			return !c.MixedAtOtherCoordinator(coordinator)
		})
	}
	if len(locked) > 0 {
		candidates = filterCoins(candidates, func(c domain.Coin) bool {
			_, ok := locked[c.Outpoint]
			return !ok
		})
	}
	candidates = filterCoins(candidates, domain.Coin.Confirmed)
	if bannedCoins != nil {
		candidates = filterCoins(candidates, func(c domain.Coin) bool {
			return !bannedCoins.IsBanned(coordinator, c.Outpoint, now)
		})
	}

	return candidates
}

// CoinCandidates returns the coins the wallet can offer to a round of the
// given coordinator. Any failure yields an empty result carrying the cause.
func (w *Wallet) CoinCandidates(ctx context.Context, coordinator string) Result[[]domain.Coin] {
	// Labels written by an in-flight registration must be visible.
	if err := w.registrations.wait(ctx); err != nil {
		return failed[[]domain.Coin](err)
	}

	coins, err := w.loadCoins(ctx)
	if err != nil {
		log.WithError(err).WithField("store", w.storeId).Warn("failed to load coin candidates")
		return failed[[]domain.Coin](err)
	}
	if len(coins) <= 0 {
		return succeeded(coins)
	}

	locked, err := w.locker.FindLocks(ctx, outpointsOf(coins))
	if err != nil {
		log.WithError(err).WithField("store", w.storeId).Warn("failed to fetch utxo locks")
		return failed[[]domain.Coin](err)
	}

	candidates := SelectCandidates(
		coins, w.Settings(), coordinator, outpointSet(locked), w.bannedCoins, time.Now(),
	)
	log.WithFields(log.Fields{
		"store":       w.storeId,
		"coordinator": coordinator,
	}).Debugf("%d/%d coins eligible", len(candidates), len(coins))
	return succeeded(candidates)
}

// loadCoins fetches all the utxos of the wallet, unconfirmed included,
// and attaches their labels and anonymity sets.
func (w *Wallet) loadCoins(ctx context.Context) ([]domain.Coin, error) {
	coins, err := w.ledger.GetUnspentCoins(ctx, w.scheme, true)
	if err != nil {
		return nil, err
	}
	if len(coins) <= 0 {
		return coins, nil
	}
	if err := w.attachLabels(ctx, coins); err != nil {
		return nil, err
	}
	return coins, nil
}

// attachLabels merges the neighbours of the tx, address and utxo objects of
// every coin into its label attachments.
func (w *Wallet) attachLabels(ctx context.Context, coins []domain.Coin) error {
	txids := make([]string, 0, len(coins))
	addresses := make([]string, 0, len(coins))
	utxos := make([]string, 0, len(coins))
	seen := make(map[string]struct{})
	for _, c := range coins {
		txid := c.Outpoint.Hash.String()
		if _, ok := seen[txid]; !ok {
			seen[txid] = struct{}{}
			txids = append(txids, txid)
		}
		if len(c.Address) > 0 {
			addresses = append(addresses, c.Address)
		}
		utxos = append(utxos, c.Id())
	}

	wallet := w.walletId(w.storeId)
	queries := []domain.ObjectQuery{
		{Type: domain.TxType, Ids: txids, IncludeNeighbourData: true},
		{Type: domain.AddressType, Ids: addresses, IncludeNeighbourData: true},
		{Type: domain.UtxoType, Ids: utxos, IncludeNeighbourData: true},
	}
	results := make([]map[string]domain.ObjectInfo, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		if len(query.Ids) <= 0 {
			results[i] = map[string]domain.ObjectInfo{}
			continue
		}
		g.Go(func() error {
			objects, err := w.labels.GetObjects(gctx, wallet, query)
			if err != nil {
				return err
			}
			byId := make(map[string]domain.ObjectInfo, len(objects))
			for _, obj := range objects {
				byId[obj.Id] = obj
			}
			results[i] = byId
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	txs, addrs, utxoObjects := results[0], results[1], results[2]
	for i := range coins {
		c := &coins[i]
		labels := make([]domain.LabelAttachment, 0)
		if obj, ok := txs[c.Outpoint.Hash.String()]; ok {
			labels = append(labels, obj.Attachments()...)
		}
		if obj, ok := addrs[c.Address]; ok && len(c.Address) > 0 {
			labels = append(labels, obj.Attachments()...)
		}
		if obj, ok := utxoObjects[c.Id()]; ok {
			labels = append(labels, obj.Attachments()...)
			if anonset, ok := domain.ParseUtxoObjectData(obj.Data); ok {
				c.AnonymitySet = anonset
			}
		}
		c.Labels = labels
	}
	return nil
}
