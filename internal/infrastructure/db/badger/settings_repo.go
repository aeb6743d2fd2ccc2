package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const settingsStoreDir = "settings"

type settingsRepository struct {
	store *badgerhold.Store
}

func NewSettingsRepository(config ...interface{}) (domain.SettingsRepository, error) {
	store, err := openStore(settingsStoreDir, config...)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %s", err)
	}
	return &settingsRepository{store}, nil
}

func (r *settingsRepository) GetSettings(
	ctx context.Context, storeId string,
) (*domain.WalletSettings, error) {
	var settings domain.WalletSettings
	err := r.store.Get(storeId, &settings)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, domain.ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings of %s: %w", storeId, err)
	}
	return &settings, nil
}

func (r *settingsRepository) ListSettings(ctx context.Context) ([]domain.WalletSettings, error) {
	list := make([]domain.WalletSettings, 0)
	if err := r.store.Find(&list, nil); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].StoreId < list[j].StoreId
	})
	return list, nil
}

func (r *settingsRepository) UpsertSettings(ctx context.Context, settings domain.WalletSettings) error {
	if len(settings.StoreId) <= 0 {
		return fmt.Errorf("missing store id")
	}
	return withRetry(func() error {
		return r.store.Upsert(settings.StoreId, settings)
	})
}

func (r *settingsRepository) DeleteSettings(ctx context.Context, storeId string) error {
	err := withRetry(func() error {
		return r.store.Delete(storeId, domain.WalletSettings{})
	})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil
	}
	return err
}

func (r *settingsRepository) Close() {
	r.store.Close()
}
