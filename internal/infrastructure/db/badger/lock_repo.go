package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/coinjoin-tools/cjwallet/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

const lockStoreDir = "locks"

type utxoLock struct {
	Txid     string
	Index    uint32
	LockedAt int64
}

// lockRepository persists utxo locks so that they outlive the process that
// took them, until released by the wallet or by the unlock command.
type lockRepository struct {
	store *badgerhold.Store
}

func NewLockRepository(config ...interface{}) (ports.LockRepository, error) {
	store, err := openStore(lockStoreDir, config...)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock store: %s", err)
	}
	return &lockRepository{store}, nil
}

func (r *lockRepository) FindLocks(
	_ context.Context, outpoints []wire.OutPoint,
) ([]wire.OutPoint, error) {
	locked := make([]wire.OutPoint, 0)
	for _, o := range outpoints {
		var lock utxoLock
		err := r.store.Get(domain.OutpointId(o), &lock)
		if errors.Is(err, badgerhold.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get lock of %s: %w", domain.OutpointId(o), err)
		}
		locked = append(locked, o)
	}
	return locked, nil
}

// TryLock returns false if the outpoint is already locked.
func (r *lockRepository) TryLock(_ context.Context, outpoint wire.OutPoint) (bool, error) {
	lock := utxoLock{
		Txid:     outpoint.Hash.String(),
		Index:    outpoint.Index,
		LockedAt: time.Now().Unix(),
	}
	err := withRetry(func() error {
		return r.store.Insert(domain.OutpointId(outpoint), lock)
	})
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// TryUnlock returns false if the outpoint wasn't locked.
func (r *lockRepository) TryUnlock(_ context.Context, outpoint wire.OutPoint) (bool, error) {
	err := withRetry(func() error {
		return r.store.Delete(domain.OutpointId(outpoint), utxoLock{})
	})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *lockRepository) Close() {
	r.store.Close()
}
