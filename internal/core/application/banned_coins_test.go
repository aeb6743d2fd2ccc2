package application

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBannedCoinRegistry(t *testing.T) {
	now := time.Now()
	outpoint := testOutpoint(1, 0)

	t.Run("ban_until_expiry", func(t *testing.T) {
		registry := NewBannedCoinRegistry()
		registry.Ban("kruw", outpoint, now.Add(time.Minute))

		require.True(t, registry.IsBanned("kruw", outpoint, now))
		require.True(t, registry.IsBanned("kruw", outpoint, now.Add(59*time.Second)))
		require.False(t, registry.IsBanned("zksnacks", outpoint, now))
		require.False(t, registry.IsBanned("kruw", testOutpoint(1, 1), now))
	})

	t.Run("expired_entries_are_removed", func(t *testing.T) {
		registry := NewBannedCoinRegistry()
		expiry := now.Add(time.Minute)
		registry.Ban("kruw", outpoint, expiry)
		registry.Ban("kruw", testOutpoint(2, 0), now.Add(time.Hour))
		require.Equal(t, 2, registry.Len("kruw"))

		// An entry expiring exactly now is not enforced.
		require.False(t, registry.IsBanned("kruw", outpoint, expiry))
		require.Equal(t, 1, registry.Len("kruw"))

		// Checking again at the same time gives the same answer and
		// removes nothing more.
		require.False(t, registry.IsBanned("kruw", outpoint, expiry))
		require.Equal(t, 1, registry.Len("kruw"))
	})

	t.Run("lookup_prunes_the_whole_coordinator", func(t *testing.T) {
		registry := NewBannedCoinRegistry()
		registry.Ban("kruw", outpoint, now.Add(time.Second))
		registry.Ban("kruw", testOutpoint(2, 0), now.Add(time.Second))
		registry.Ban("zksnacks", outpoint, now.Add(time.Second))

		require.False(t, registry.IsBanned("kruw", testOutpoint(3, 0), now.Add(time.Minute)))
		require.Zero(t, registry.Len("kruw"))
		require.Equal(t, 1, registry.Len("zksnacks"))
	})

	t.Run("prune", func(t *testing.T) {
		registry := NewBannedCoinRegistry()
		registry.Ban("kruw", outpoint, now.Add(time.Second))
		registry.Ban("zksnacks", outpoint, now.Add(time.Second))
		registry.Ban("zksnacks", testOutpoint(2, 0), now.Add(time.Hour))

		require.Equal(t, 2, registry.Prune(now.Add(time.Minute)))
		require.Zero(t, registry.Prune(now.Add(time.Minute)))
		require.True(t, registry.IsBanned("zksnacks", testOutpoint(2, 0), now.Add(time.Minute)))
	})

	t.Run("rebanning_replaces_expiry", func(t *testing.T) {
		registry := NewBannedCoinRegistry()
		registry.Ban("kruw", outpoint, now.Add(time.Hour))
		registry.Ban("kruw", outpoint, now.Add(time.Second))

		require.False(t, registry.IsBanned("kruw", outpoint, now.Add(time.Minute)))
	})

	t.Run("concurrent_access", func(t *testing.T) {
		registry := NewBannedCoinRegistry()
		wg := &sync.WaitGroup{}
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				registry.Ban("kruw", testOutpoint(byte(i), 0), now.Add(time.Duration(i)*time.Second))
			}(i)
			go func(i int) {
				defer wg.Done()
				registry.IsBanned("kruw", testOutpoint(byte(i), 0), now.Add(25*time.Second))
			}(i)
		}
		wg.Wait()

		registry.Prune(now.Add(25 * time.Second))
		require.Equal(t, 24, registry.Len("kruw"))
	})
}
