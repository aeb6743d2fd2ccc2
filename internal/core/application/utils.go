package application

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
)

const bip21Scheme = "bitcoin:"

// taskQueue runs submitted tasks one at a time in submission order. Every
// task waits for the previous one to complete before starting.
type taskQueue struct {
	lock *sync.Mutex
	last chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{lock: &sync.Mutex{}}
}

func (q *taskQueue) submit(task func()) <-chan struct{} {
	q.lock.Lock()
	prev := q.last
	done := make(chan struct{})
	q.last = done
	q.lock.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		task()
	}()
	return done
}

// wait blocks until the last submitted task has completed.
func (q *taskQueue) wait(ctx context.Context) error {
	q.lock.Lock()
	last := q.last
	q.lock.Unlock()

	if last == nil {
		return nil
	}
	select {
	case <-last:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseDestination accepts either a plain address or a BIP21 URI.
func parseDestination(dest string, net *chaincfg.Params) (btcutil.Address, error) {
	dest = strings.TrimSpace(dest)
	if len(dest) >= len(bip21Scheme) && strings.EqualFold(dest[:len(bip21Scheme)], bip21Scheme) {
		dest = dest[len(bip21Scheme):]
		if i := strings.IndexByte(dest, '?'); i >= 0 {
			dest = dest[:i]
		}
	}
	if len(dest) <= 0 {
		return nil, fmt.Errorf("empty destination")
	}

	addr, err := btcutil.DecodeAddress(dest, net)
	if err != nil {
		return nil, err
	}
	if !addr.IsForNet(net) {
		return nil, fmt.Errorf("address %s is not for network %s", dest, net.Name)
	}
	return addr, nil
}

func outpointsOf(coins []domain.Coin) []wire.OutPoint {
	outpoints := make([]wire.OutPoint, 0, len(coins))
	for _, c := range coins {
		outpoints = append(outpoints, c.Outpoint)
	}
	return outpoints
}

func outpointSet(outpoints []wire.OutPoint) map[wire.OutPoint]struct{} {
	set := make(map[wire.OutPoint]struct{}, len(outpoints))
	for _, o := range outpoints {
		set[o] = struct{}{}
	}
	return set
}

func filterCoins(coins []domain.Coin, keep func(domain.Coin) bool) []domain.Coin {
	filtered := make([]domain.Coin, 0, len(coins))
	for _, c := range coins {
		if keep(c) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
