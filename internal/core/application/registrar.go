package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/coinjoin-tools/cjwallet/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentKeyLookups = 8

// RegisterCoinjoin records the labels and the coinjoin record of a signed
// round transaction. Registrations of the same wallet run one after the
// other in submission order and the call returns once this one is done.
// Bookkeeping is best effort: the returned error lists the writes that
// failed, while every other step has been carried out.
func (w *Wallet) RegisterCoinjoin(
	ctx context.Context, result domain.CoinjoinResult, coordinator string,
) error {
	if result.Tx == nil {
		return fmt.Errorf("missing coinjoin transaction")
	}

	var err error
	done := w.registrations.submit(func() {
		err = w.registerCoinjoin(context.WithoutCancel(ctx), result, coordinator)
	})

	select {
	case <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Wallet) registerCoinjoin(
	ctx context.Context, result domain.CoinjoinResult, coordinator string,
) error {
	txid := result.Tx.TxHash()
	logger := log.WithFields(log.Fields{
		"store": w.storeId,
		"round": result.RoundId.String(),
		"txid":  txid.String(),
	})
	bk := &bookkeeper{labels: w.labels, logger: logger}

	own := w.walletId(w.storeId)
	altStore, altScheme := w.alternateScheme(ctx, bk)

	wallets := []domain.WalletId{own}
	if len(altStore) > 0 {
		wallets = append(wallets, w.walletId(altStore))
	}

	txObject := domain.NewObjectId(domain.TxType, txid.String())
	for _, wallet := range wallets {
		bk.addObject(ctx, wallet, domain.WalletObject{ObjectId: txObject})
		bk.addLabels(ctx, wallet, txObject, domain.CoinjoinLabel, coordinator)
	}

	if len(result.HandledPayments) > 0 {
		payoutLabel := domain.LabelObject(domain.PayoutLabel)
		bk.addObject(ctx, own, domain.WalletObject{ObjectId: payoutLabel})
		for _, p := range result.HandledPayments {
			payoutObject := domain.NewObjectId(domain.PayoutType, p.PayoutId)
			bk.addObject(ctx, own, domain.WalletObject{ObjectId: payoutObject})
			bk.link(ctx, own, txObject, payoutObject)
			bk.link(ctx, own, payoutObject, payoutLabel)
		}
	}

	view, paymentOutputs := w.buildTransactionView(ctx, result, altStore, altScheme, bk)

	if err := w.analyzer.Analyze(view); err != nil {
		logger.WithError(err).Warn("failed to analyze coinjoin transaction")
	}

	for _, out := range view.WalletOutputs {
		if !w.analyzer.IsStandardDenomination(out.Value) || out.AnonymitySet == 1 {
			continue
		}
		wallet := w.walletId(out.StoreId)
		utxoObject := domain.NewObjectId(domain.UtxoType, domain.OutpointId(out.Outpoint))
		data, err := domain.UtxoObjectData(out.AnonymitySet)
		if err != nil {
			bk.fail(err)
			continue
		}
		bk.addObject(ctx, wallet, domain.WalletObject{ObjectId: utxoObject, Data: data})
		bk.addLabels(ctx, wallet, utxoObject, domain.AnonymitySetLabel(out.AnonymitySet))
	}

	// The first record of a round wins, a later registration only restores
	// the link to the transaction.
	record := coinjoinRecord(result, coordinator, view, paymentOutputs)
	coinjoinObject := domain.NewObjectId(domain.CoinjoinType, result.RoundId.String())
	if recorded, err := bk.hasData(ctx, own, coinjoinObject); err != nil {
		bk.fail(fmt.Errorf("failed to look up coinjoin record: %w", err))
	} else if recorded {
		logger.Debug("coinjoin already recorded, keeping existing record")
		bk.link(ctx, own, txObject, coinjoinObject)
	} else if data, err := record.Serialize(); err != nil {
		bk.fail(fmt.Errorf("failed to serialize coinjoin record: %w", err))
	} else {
		bk.addObject(ctx, own, domain.WalletObject{ObjectId: coinjoinObject, Data: data})
		bk.link(ctx, own, txObject, coinjoinObject)
	}

	if err := bk.err(); err != nil {
		logger.Warn("coinjoin bookkeeping incomplete")
		return err
	}
	logger.Infof(
		"registered coinjoin with %d inputs and %d outputs",
		len(record.CoinsIn), len(record.CoinsOut),
	)
	return nil
}

// alternateScheme returns the store receiving mixed outputs along with its
// derivation scheme, or empty values if outputs stay in this store.
func (w *Wallet) alternateScheme(
	ctx context.Context, bk *bookkeeper,
) (string, domain.DerivationScheme) {
	store := w.Settings().AlternateStore()
	if len(store) <= 0 {
		return "", ""
	}
	pm, err := w.stores.PaymentMethod(ctx, store, w.cryptoCode)
	if err != nil {
		bk.fail(fmt.Errorf("failed to fetch wallet of store %s: %w", store, err))
		return "", ""
	}
	if pm == nil || !pm.Enabled {
		return "", ""
	}
	return store, pm.DerivationScheme
}

// buildTransactionView splits the outputs of the round transaction into
// payments, matched by script and value against the handled payments, and
// wallet outputs, resolved through the key deriver. It returns the view
// along with the payout ids of the payment outputs by index.
func (w *Wallet) buildTransactionView(
	ctx context.Context, result domain.CoinjoinResult,
	altStore string, altScheme domain.DerivationScheme, bk *bookkeeper,
) (*domain.TransactionView, map[uint32]string) {
	txid := result.Tx.TxHash()
	view := &domain.TransactionView{Tx: result.Tx}
	for _, c := range result.RegisteredCoins {
		view.WalletInputs = append(view.WalletInputs, &domain.ViewCoin{
			Outpoint:     c.Outpoint,
			Value:        c.Value,
			ScriptPubKey: c.ScriptPubKey,
			StoreId:      w.storeId,
			AnonymitySet: c.AnonymitySet,
		})
	}

	pending := slices.Clone(result.HandledPayments)
	paymentOutputs := make(map[uint32]string)
	lookups := make([]uint32, 0, len(result.Tx.TxOut))
	for i, out := range result.Tx.TxOut {
		index := uint32(i)
		if j := slices.IndexFunc(pending, func(p domain.HandledPayment) bool {
			return p.Matches(out)
		}); j >= 0 {
			paymentOutputs[index] = pending[j].PayoutId
			pending = slices.Delete(pending, j, j+1)
			continue
		}
		if result.IsRegisteredOutput(out.PkScript) {
			lookups = append(lookups, index)
		}
	}

	found := make([]*domain.ViewCoin, len(lookups))
	errs := make([]error, len(lookups))
	g := &errgroup.Group{}
	g.SetLimit(maxConcurrentKeyLookups)
	for k, index := range lookups {
		g.Go(func() error {
			outpoint := wire.OutPoint{Hash: txid, Index: index}
			found[k], errs[k] = w.lookupOutput(
				ctx, outpoint, result.Tx.TxOut[index], altStore, altScheme,
			)
			return nil
		})
	}
	// lookup errors are kept per output in errs so that one failure does not
	// cancel the others, Wait always returns nil.
	//nolint:errcheck
	g.Wait()

	for k, coin := range found {
		if errs[k] != nil {
			bk.fail(fmt.Errorf("failed to resolve output %d: %w", lookups[k], errs[k]))
			continue
		}
		if coin != nil {
			view.WalletOutputs = append(view.WalletOutputs, coin)
		}
	}
	return view, paymentOutputs
}

// lookupOutput resolves the key of a wallet output. Standard denominations
// are looked up in the alternate wallet first when mixed outputs go there.
func (w *Wallet) lookupOutput(
	ctx context.Context, outpoint wire.OutPoint, out *wire.TxOut,
	altStore string, altScheme domain.DerivationScheme,
) (*domain.ViewCoin, error) {
	value := btcutil.Amount(out.Value)
	newCoin := func(info *domain.KeyPathInfo, store string) *domain.ViewCoin {
		return &domain.ViewCoin{
			Outpoint:     outpoint,
			Value:        value,
			ScriptPubKey: out.PkScript,
			KeyPath:      info,
			StoreId:      store,
			AnonymitySet: 1,
		}
	}

	if len(altScheme) > 0 && w.analyzer.IsStandardDenomination(value) {
		info, err := w.keys.GetKeyInformation(ctx, altScheme, out.PkScript)
		if err != nil {
			return nil, err
		}
		if info != nil {
			return newCoin(info, altStore), nil
		}
	}

	info, err := w.keys.GetKeyInformation(ctx, w.scheme, out.PkScript)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, nil
	}
	return newCoin(info, w.storeId), nil
}

func coinjoinRecord(
	result domain.CoinjoinResult, coordinator string,
	view *domain.TransactionView, paymentOutputs map[uint32]string,
) domain.CoinjoinRecord {
	txid := result.Tx.TxHash()

	coinsIn := make([]domain.CoinjoinCoin, 0, len(view.WalletInputs))
	for _, in := range view.WalletInputs {
		coinsIn = append(coinsIn, domain.NewCoinjoinCoin(
			domain.OutpointId(in.Outpoint), in.Value, in.AnonymitySet,
		))
	}

	type indexedCoin struct {
		index uint32
		coin  domain.CoinjoinCoin
	}
	outs := make([]indexedCoin, 0, len(view.WalletOutputs)+len(paymentOutputs))
	for _, out := range view.WalletOutputs {
		outs = append(outs, indexedCoin{out.Outpoint.Index, domain.NewCoinjoinCoin(
			domain.OutpointId(out.Outpoint), out.Value, out.AnonymitySet,
		)})
	}
	for index, payoutId := range paymentOutputs {
		outpoint := wire.OutPoint{Hash: txid, Index: index}
		coin := domain.NewCoinjoinCoin(
			domain.OutpointId(outpoint), btcutil.Amount(result.Tx.TxOut[index].Value), 1,
		)
		coin.PayoutId = &payoutId
		outs = append(outs, indexedCoin{index, coin})
	}
	slices.SortFunc(outs, func(a, b indexedCoin) int {
		return int(a.index) - int(b.index)
	})

	coinsOut := make([]domain.CoinjoinCoin, 0, len(outs))
	for _, o := range outs {
		coinsOut = append(coinsOut, o.coin)
	}

	return domain.CoinjoinRecord{
		Round:           result.RoundId.String(),
		CoordinatorName: coordinator,
		Transaction:     txid.String(),
		Timestamp:       time.Now().UTC(),
		CoinsIn:         coinsIn,
		CoinsOut:        coinsOut,
	}
}

// bookkeeper performs label store writes, logging and collecting failures
// so that a failed write never stops the following ones.
type bookkeeper struct {
	labels ports.LabelStore
	logger *log.Entry
	errs   []error
}

func (b *bookkeeper) addObject(ctx context.Context, wallet domain.WalletId, obj domain.WalletObject) {
	if err := b.labels.AddOrUpdateObject(ctx, wallet, obj); err != nil {
		b.fail(fmt.Errorf("failed to add object %s to wallet %s: %w", obj.ObjectId, wallet, err))
	}
}

func (b *bookkeeper) link(ctx context.Context, wallet domain.WalletId, a, c domain.ObjectId) {
	if err := b.labels.AddOrUpdateLink(ctx, wallet, a, c); err != nil {
		b.fail(fmt.Errorf("failed to link %s to %s in wallet %s: %w", a, c, wallet, err))
	}
}

func (b *bookkeeper) addLabels(
	ctx context.Context, wallet domain.WalletId, obj domain.ObjectId, labels ...string,
) {
	for _, l := range labels {
		if len(l) <= 0 {
			continue
		}
		label := domain.LabelObject(l)
		b.addObject(ctx, wallet, domain.WalletObject{ObjectId: label})
		b.link(ctx, wallet, obj, label)
	}
}

// hasData tells whether the object is already stored with data.
func (b *bookkeeper) hasData(
	ctx context.Context, wallet domain.WalletId, obj domain.ObjectId,
) (bool, error) {
	objects, err := b.labels.GetObjects(ctx, wallet, domain.ObjectQuery{
		Type: obj.Type,
		Ids:  []string{obj.Id},
	})
	if err != nil {
		return false, err
	}
	for _, o := range objects {
		if o.ObjectId == obj && len(o.Data) > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (b *bookkeeper) fail(err error) {
	b.logger.WithError(err).Warn("coinjoin bookkeeping step failed")
	b.errs = append(b.errs, err)
}

func (b *bookkeeper) err() error {
	return errors.Join(b.errs...)
}
