package application

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/coinjoin-tools/cjwallet/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// Wallet is the coinjoin engine of the on-chain wallet of a single store.
type Wallet struct {
	storeId    string
	cryptoCode string
	scheme     domain.DerivationScheme
	network    *chaincfg.Params

	settings     domain.WalletSettings
	settingsLock *sync.RWMutex

	ledger       ports.Ledger
	keys         ports.KeyDeriver
	labels       ports.LabelStore
	payouts      ports.PayoutService
	stores       ports.StoreDirectory
	locker       ports.UtxoLocker
	analyzer     ports.BlockchainAnalyzer
	settingsRepo domain.SettingsRepository

	bannedCoins   *BannedCoinRegistry
	registrations *taskQueue
}

func NewWallet(
	deps Dependencies, settings domain.WalletSettings, cryptoCode string,
	scheme domain.DerivationScheme, bannedCoins *BannedCoinRegistry,
) (*Wallet, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if len(settings.StoreId) <= 0 {
		return nil, fmt.Errorf("missing store id")
	}
	if len(cryptoCode) <= 0 {
		return nil, fmt.Errorf("missing crypto code")
	}
	if len(scheme) <= 0 {
		return nil, fmt.Errorf("missing derivation scheme")
	}
	if bannedCoins == nil {
		return nil, fmt.Errorf("missing banned coin registry")
	}

	return &Wallet{
		storeId:       settings.StoreId,
		cryptoCode:    cryptoCode,
		scheme:        scheme,
		network:       deps.Network,
		settings:      settings,
		settingsLock:  &sync.RWMutex{},
		ledger:        deps.Ledger,
		keys:          deps.KeyDeriver,
		labels:        deps.Labels,
		payouts:       deps.Payouts,
		stores:        deps.Stores,
		locker:        deps.Locker,
		analyzer:      deps.Analyzer,
		settingsRepo:  deps.Settings,
		bannedCoins:   bannedCoins,
		registrations: newTaskQueue(),
	}, nil
}

func (w *Wallet) StoreId() string {
	return w.storeId
}

func (w *Wallet) Settings() domain.WalletSettings {
	w.settingsLock.RLock()
	defer w.settingsLock.RUnlock()

	return w.settings
}

func (w *Wallet) AnonymitySetTarget() int {
	return w.Settings().AnonymitySetTarget()
}

func (w *Wallet) ConsolidationMode() bool {
	return w.Settings().ConsolidationMode()
}

func (w *Wallet) RedCoinIsolation() bool {
	return w.Settings().RedCoinIsolationEnabled()
}

func (w *Wallet) BatchPayments() bool {
	return w.Settings().BatchPayments()
}

// IsMixable reports whether the wallet can take part in rounds of the
// given coordinator.
func (w *Wallet) IsMixable(ctx context.Context, coordinator string) (bool, error) {
	if !w.Settings().CoordinatorEnabled(coordinator) {
		return false, nil
	}
	pm, err := w.stores.PaymentMethod(ctx, w.storeId, w.cryptoCode)
	if err != nil {
		return false, err
	}
	return pm != nil && pm.Enabled, nil
}

// UnlockUtxos asks the lock service to release every utxo of the wallet.
// Failures are logged and don't stop the sweep.
func (w *Wallet) UnlockUtxos(ctx context.Context) error {
	coins, err := w.ledger.GetUnspentCoins(ctx, w.scheme, true)
	if err != nil {
		return fmt.Errorf("failed to list utxos: %w", err)
	}

	unlocked := make([]string, 0, len(coins))
	for _, c := range coins {
		ok, err := w.locker.TryUnlock(ctx, c.Outpoint)
		if err != nil {
			log.WithError(err).Warnf("failed to unlock utxo %s", c.Id())
			continue
		}
		if ok {
			unlocked = append(unlocked, c.Id())
		}
	}

	if len(unlocked) > 0 {
		log.WithField("store", w.storeId).Infof("unlocked utxos: %v", unlocked)
	}
	return nil
}

// CoinjoinHistory returns the recorded coinjoins of the wallet, most recent
// first.
func (w *Wallet) CoinjoinHistory(ctx context.Context) Result[[]domain.CoinjoinRecord] {
	objects, err := w.labels.GetObjects(ctx, w.walletId(w.storeId), domain.ObjectQuery{
		Type: domain.CoinjoinType,
	})
	if err != nil {
		log.WithError(err).WithField("store", w.storeId).Warn("failed to fetch coinjoin history")
		return failed[[]domain.CoinjoinRecord](err)
	}

	records := make([]domain.CoinjoinRecord, 0, len(objects))
	for _, obj := range objects {
		if len(obj.Data) <= 0 {
			continue
		}
		record, err := domain.ParseCoinjoinRecord(obj.Data)
		if err != nil {
			log.WithError(err).Debugf("skipping malformed coinjoin record %s", obj.Id)
			continue
		}
		records = append(records, *record)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return succeeded(records)
}

func (w *Wallet) walletId(storeId string) domain.WalletId {
	return domain.WalletId{StoreId: storeId, CryptoCode: w.cryptoCode}
}

func (w *Wallet) updateSettings(settings domain.WalletSettings) {
	w.settingsLock.Lock()
	defer w.settingsLock.Unlock()

	w.settings = settings
}

func (w *Wallet) clearAlternateStore(ctx context.Context, store string) {
	w.settingsLock.Lock()
	if w.settings.MixToOtherWallet != store {
		w.settingsLock.Unlock()
		return
	}
	w.settings.MixToOtherWallet = ""
	settings := w.settings
	w.settingsLock.Unlock()

	if err := w.settingsRepo.UpsertSettings(ctx, settings); err != nil {
		log.WithError(err).WithField("store", w.storeId).Warn("failed to persist wallet settings")
	}
}
