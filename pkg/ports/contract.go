package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunLockerContract runs a suite of tests to verify that a DistributedLocker
// implementation adheres to the defined interface contract.
func RunLockerContract(t *testing.T, locker DistributedLocker) {
	ctx := context.Background()
	key := "contract-lock-" + time.Now().Format("20060102150405.000")

	t.Run("Acquire and Release", func(t *testing.T) {
		unlock, err := locker.TryLock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		require.NotNil(t, unlock)
		require.NoError(t, unlock(ctx))
	})

	t.Run("Contention", func(t *testing.T) {
		unlock, err := locker.TryLock(ctx, key, 5*time.Second)
		require.NoError(t, err)

		_, err = locker.TryLock(ctx, key, 5*time.Second)
		assert.ErrorIs(t, err, domain.ErrLockHeld, "second holder must be rejected")

		require.NoError(t, unlock(ctx))

		unlock, err = locker.TryLock(ctx, key, 5*time.Second)
		require.NoError(t, err, "lock must be free again after release")
		require.NoError(t, unlock(ctx))
	})

	t.Run("Independent Keys", func(t *testing.T) {
		unlockA, err := locker.TryLock(ctx, key+"-a", 5*time.Second)
		require.NoError(t, err)
		unlockB, err := locker.TryLock(ctx, key+"-b", 5*time.Second)
		require.NoError(t, err)
		assert.NoError(t, unlockA(ctx))
		assert.NoError(t, unlockB(ctx))
	})

	t.Run("Double Release", func(t *testing.T) {
		unlock, err := locker.TryLock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
		assert.NoError(t, unlock(ctx), "releasing twice must be harmless")
	})
}
