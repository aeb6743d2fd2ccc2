package ports

import (
	"context"

	"github.com/btcsuite/btcd/wire"
)

type UtxoLocker interface {
	// FindLocks returns the subset of the given outpoints that is locked.
	FindLocks(ctx context.Context, outpoints []wire.OutPoint) ([]wire.OutPoint, error)
	TryLock(ctx context.Context, outpoint wire.OutPoint) (bool, error)
	TryUnlock(ctx context.Context, outpoint wire.OutPoint) (bool, error)
}
