package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/coinjoin-tools/cjwallet/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// Service owns the wallets of the configured stores and the banned coin
// registry they share.
type Service struct {
	cryptoCode     string
	statusInterval time.Duration
	coordinators   []string

	deps        Dependencies
	scheduler   ports.SchedulerService
	bannedCoins *BannedCoinRegistry

	lock    *sync.RWMutex
	wallets map[string]*Wallet
}

// NewService returns a service for the wallets of the given crypto. The
// known coordinators, if any, are the ones listed in the store settings.
func NewService(
	deps Dependencies, scheduler ports.SchedulerService,
	cryptoCode string, statusInterval time.Duration, coordinators []string,
) (*Service, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if scheduler == nil {
		return nil, fmt.Errorf("missing scheduler")
	}
	if len(cryptoCode) <= 0 {
		return nil, fmt.Errorf("missing crypto code")
	}

	return &Service{
		cryptoCode:     cryptoCode,
		statusInterval: statusInterval,
		coordinators:   coordinators,
		deps:           deps,
		scheduler:      scheduler,
		bannedCoins:    NewBannedCoinRegistry(),
		lock:           &sync.RWMutex{},
		wallets:        make(map[string]*Wallet),
	}, nil
}

func (s *Service) Start() error {
	if s.statusInterval > 0 {
		if err := s.scheduler.ScheduleTask(s.statusInterval, true, s.reportStatus); err != nil {
			return fmt.Errorf("failed to schedule status report: %w", err)
		}
	}
	s.scheduler.Start()
	return nil
}

// Stop releases the utxo locks of every wallet before stopping the
// scheduler.
func (s *Service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range s.loadedWallets() {
		if err := w.UnlockUtxos(ctx); err != nil {
			log.WithError(err).WithField("store", w.StoreId()).Warn("failed to unlock utxos")
		}
	}
	s.scheduler.Stop()
}

func (s *Service) BannedCoins() *BannedCoinRegistry {
	return s.bannedCoins
}

// BanCoin keeps the outpoint out of the rounds of the coordinator until
// the given time, when the entry gets pruned.
func (s *Service) BanCoin(coordinator string, outpoint wire.OutPoint, until time.Time) error {
	s.bannedCoins.Ban(coordinator, outpoint, until)
	return s.scheduler.ScheduleTaskOnce(until, func() {
		if n := s.bannedCoins.Prune(time.Now()); n > 0 {
			log.Debugf("pruned %d expired coin bans", n)
		}
	})
}

// Wallet returns the wallet of the store, loading it on first access.
func (s *Service) Wallet(ctx context.Context, storeId string) (*Wallet, error) {
	s.lock.RLock()
	w, ok := s.wallets[storeId]
	s.lock.RUnlock()
	if ok {
		return w, nil
	}

	settings, err := s.deps.Settings.GetSettings(ctx, storeId)
	if err != nil {
		return nil, err
	}
	pm, err := s.deps.Stores.PaymentMethod(ctx, storeId, s.cryptoCode)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wallet of store %s: %w", storeId, err)
	}
	if pm == nil || !pm.Enabled {
		return nil, errWalletUnavailable{storeId, s.cryptoCode}
	}

	w, err = NewWallet(s.deps, *settings, s.cryptoCode, pm.DerivationScheme, s.bannedCoins)
	if err != nil {
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if existing, ok := s.wallets[storeId]; ok {
		return existing, nil
	}
	s.wallets[storeId] = w
	return w, nil
}

// Wallets loads the wallets of all the stores with settings. Stores whose
// wallet can't be loaded are skipped.
func (s *Service) Wallets(ctx context.Context) ([]*Wallet, error) {
	list, err := s.deps.Settings.ListSettings(ctx)
	if err != nil {
		return nil, err
	}

	wallets := make([]*Wallet, 0, len(list))
	for _, settings := range list {
		w, err := s.Wallet(ctx, settings.StoreId)
		if err != nil {
			log.WithError(err).WithField("store", settings.StoreId).Warn("skipping store")
			continue
		}
		wallets = append(wallets, w)
	}
	return wallets, nil
}

// SeedSettings stores the given settings for the stores that have none
// yet. Settings already stored are left untouched.
func (s *Service) SeedSettings(ctx context.Context, list []domain.WalletSettings) error {
	for _, settings := range list {
		_, err := s.deps.Settings.GetSettings(ctx, settings.StoreId)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrSettingsNotFound) {
			return err
		}
		if err := s.deps.Settings.UpsertSettings(ctx, settings); err != nil {
			return fmt.Errorf("failed to store settings of %s: %w", settings.StoreId, err)
		}
	}
	return nil
}

// GetSettings returns the settings of the store, or the defaults if it has
// none, listing every known coordinator.
func (s *Service) GetSettings(ctx context.Context, storeId string) (domain.WalletSettings, error) {
	settings, err := s.deps.Settings.GetSettings(ctx, storeId)
	if errors.Is(err, domain.ErrSettingsNotFound) {
		return domain.NewWalletSettings(storeId).WithKnownCoordinators(s.coordinators), nil
	}
	if err != nil {
		return domain.WalletSettings{}, err
	}
	return settings.WithKnownCoordinators(s.coordinators), nil
}

// UpdateSettings stores the settings of the store, or deletes them if no
// coordinator is enabled. A loaded wallet picks up the new settings right
// away, or is unloaded with its utxos unlocked if they got deleted.
func (s *Service) UpdateSettings(ctx context.Context, settings domain.WalletSettings) error {
	if len(settings.StoreId) <= 0 {
		return fmt.Errorf("missing store id")
	}
	if settings.AnonScoreTarget <= 0 {
		settings.AnonScoreTarget = domain.DefaultAnonymitySetTarget
	}
	settings = settings.WithKnownCoordinators(s.coordinators)
	logger := log.WithField("store", settings.StoreId)

	if !settings.AnyCoordinatorEnabled() {
		if err := s.deps.Settings.DeleteSettings(ctx, settings.StoreId); err != nil {
			return fmt.Errorf("failed to delete settings of %s: %w", settings.StoreId, err)
		}

		s.lock.Lock()
		w, ok := s.wallets[settings.StoreId]
		delete(s.wallets, settings.StoreId)
		s.lock.Unlock()

		if ok {
			if err := w.UnlockUtxos(ctx); err != nil {
				logger.WithError(err).Warn("failed to unlock utxos")
			}
		}
		logger.Info("coinjoin disabled")
		return nil
	}

	if err := s.deps.Settings.UpsertSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to store settings of %s: %w", settings.StoreId, err)
	}

	s.lock.RLock()
	w, ok := s.wallets[settings.StoreId]
	s.lock.RUnlock()
	if ok {
		w.updateSettings(settings)
	}
	logger.Info("settings updated")
	return nil
}

func (s *Service) loadedWallets() []*Wallet {
	s.lock.RLock()
	defer s.lock.RUnlock()

	wallets := make([]*Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		wallets = append(wallets, w)
	}
	return wallets
}

func (s *Service) reportStatus() {
	if n := s.bannedCoins.Prune(time.Now()); n > 0 {
		log.Debugf("pruned %d expired coin bans", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.statusInterval)
	defer cancel()

	wallets, err := s.Wallets(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to list wallets")
		return
	}
	for _, w := range wallets {
		res := w.PrivacyPercentage(ctx)
		if res.Failed() {
			continue
		}
		log.WithFields(log.Fields{
			"store":   w.StoreId(),
			"privacy": fmt.Sprintf("%.2f%%", res.Value*100),
			"target":  w.AnonymitySetTarget(),
		}).Info("wallet status")
	}
}
