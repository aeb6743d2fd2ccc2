package inmemorydb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
)

type settingsRepository struct {
	lock     *sync.RWMutex
	settings map[string]domain.WalletSettings
}

func NewSettingsRepository(_ ...interface{}) (domain.SettingsRepository, error) {
	return &settingsRepository{
		lock:     &sync.RWMutex{},
		settings: make(map[string]domain.WalletSettings),
	}, nil
}

func (r *settingsRepository) GetSettings(
	_ context.Context, storeId string,
) (*domain.WalletSettings, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	settings, ok := r.settings[storeId]
	if !ok {
		return nil, domain.ErrSettingsNotFound
	}
	return &settings, nil
}

func (r *settingsRepository) ListSettings(_ context.Context) ([]domain.WalletSettings, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]domain.WalletSettings, 0, len(r.settings))
	for _, s := range r.settings {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].StoreId < list[j].StoreId
	})
	return list, nil
}

func (r *settingsRepository) UpsertSettings(_ context.Context, settings domain.WalletSettings) error {
	if len(settings.StoreId) <= 0 {
		return fmt.Errorf("missing store id")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	r.settings[settings.StoreId] = settings
	return nil
}

func (r *settingsRepository) DeleteSettings(_ context.Context, storeId string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.settings, storeId)
	return nil
}

func (r *settingsRepository) Close() {}
