package domain

import (
	"context"
	"errors"
)

var ErrSettingsNotFound = errors.New("wallet settings not found")

type SettingsRepository interface {
	GetSettings(ctx context.Context, storeId string) (*WalletSettings, error)
	ListSettings(ctx context.Context) ([]WalletSettings, error)
	UpsertSettings(ctx context.Context, settings WalletSettings) error
	// DeleteSettings is a no-op if the store has no settings.
	DeleteSettings(ctx context.Context, storeId string) error
	Close()
}
