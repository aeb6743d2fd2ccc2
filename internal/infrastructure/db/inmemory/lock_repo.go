package inmemorydb

import (
	"context"
	"sync"

	"github.com/btcsuite/btcd/wire"
	"github.com/coinjoin-tools/cjwallet/internal/core/ports"
)

// lockRepository keeps utxo locks in memory, they are lost on restart.
type lockRepository struct {
	lock  *sync.Mutex
	locks map[wire.OutPoint]struct{}
}

func NewLockRepository(_ ...interface{}) (ports.LockRepository, error) {
	return &lockRepository{
		lock:  &sync.Mutex{},
		locks: make(map[wire.OutPoint]struct{}),
	}, nil
}

func (r *lockRepository) FindLocks(_ context.Context, outpoints []wire.OutPoint) ([]wire.OutPoint, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	locked := make([]wire.OutPoint, 0)
	for _, o := range outpoints {
		if _, ok := r.locks[o]; ok {
			locked = append(locked, o)
		}
	}
	return locked, nil
}

// TryLock returns false if the outpoint is already locked.
func (r *lockRepository) TryLock(_ context.Context, outpoint wire.OutPoint) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.locks[outpoint]; ok {
		return false, nil
	}
	r.locks[outpoint] = struct{}{}
	return true, nil
}

// TryUnlock returns false if the outpoint wasn't locked.
func (r *lockRepository) TryUnlock(_ context.Context, outpoint wire.OutPoint) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.locks[outpoint]; !ok {
		return false, nil
	}
	delete(r.locks, outpoint)
	return true, nil
}

func (r *lockRepository) Close() {}
