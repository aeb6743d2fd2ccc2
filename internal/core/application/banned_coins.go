package application

import (
	"sync"
	"time"

	"github.com/btcsuite/btcd/wire"
)

// BannedCoinRegistry keeps, per coordinator, the outpoints that must not be
// offered to it until their ban expires. A single registry is shared by all
// the wallets of the process.
type BannedCoinRegistry struct {
	lock *sync.Mutex
	bans map[string]map[wire.OutPoint]time.Time
}

func NewBannedCoinRegistry() *BannedCoinRegistry {
	return &BannedCoinRegistry{
		lock: &sync.Mutex{},
		bans: make(map[string]map[wire.OutPoint]time.Time),
	}
}

func (r *BannedCoinRegistry) Ban(coordinator string, outpoint wire.OutPoint, until time.Time) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.bans[coordinator]; !ok {
		r.bans[coordinator] = make(map[wire.OutPoint]time.Time)
	}
	r.bans[coordinator][outpoint] = until
}

// IsBanned drops the expired entries of the coordinator before checking
// whether the outpoint is still banned at the given time.
func (r *BannedCoinRegistry) IsBanned(coordinator string, outpoint wire.OutPoint, now time.Time) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.pruneCoordinator(coordinator, now)
	_, ok := r.bans[coordinator][outpoint]
	return ok
}

// Prune drops the expired entries of all coordinators and returns how many
// were removed.
func (r *BannedCoinRegistry) Prune(now time.Time) int {
	r.lock.Lock()
	defer r.lock.Unlock()

	count := 0
	for coordinator := range r.bans {
		count += r.pruneCoordinator(coordinator, now)
	}
	return count
}

func (r *BannedCoinRegistry) Len(coordinator string) int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.bans[coordinator])
}

func (r *BannedCoinRegistry) pruneCoordinator(coordinator string, now time.Time) int {
	entries, ok := r.bans[coordinator]
	if !ok {
		return 0
	}
	count := 0
	for outpoint, expiry := range entries {
		if !now.Before(expiry) {
			delete(entries, outpoint)
			count++
		}
	}
	if len(entries) <= 0 {
		delete(r.bans, coordinator)
	}
	return count
}
