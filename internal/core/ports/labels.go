package ports

import (
	"context"

	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
)

type LabelStore interface {
	AddOrUpdateObject(ctx context.Context, wallet domain.WalletId, object domain.WalletObject) error
	// AddOrUpdateLink links two objects of the same wallet. Links are not
	// directional.
	AddOrUpdateLink(ctx context.Context, wallet domain.WalletId, a, b domain.ObjectId) error
	GetObjects(ctx context.Context, wallet domain.WalletId, query domain.ObjectQuery) ([]domain.ObjectInfo, error)
}
