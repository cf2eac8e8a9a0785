package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func openIdempotencyStoreForIntegrationTest(t *testing.T) domain.IdempotencyRepository {
	t.Helper()

	store := openPostgresStoreForIntegrationTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := store.DB().ExecContext(ctx, `TRUNCATE TABLE idempotency_keys`)
	require.NoError(t, err)

	return NewIdempotencyRepository(store)
}

func TestIdempotencyRepository_PostgresPurchaseResponseIsReplayable(t *testing.T) {
	repo := openIdempotencyStoreForIntegrationTest(t)

	ttl := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	record, err := repo.CreateProcessing("purchase/customer-1/order-1", "fingerprint-1", ttl)
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusProcessing, record.Status)

	// Повтор во время выполнения видит тот же processing-ключ.
	busy, err := repo.CreateProcessing("purchase/customer-1/order-1", "fingerprint-1", ttl)
	require.True(t, errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists), "got %v", err)
	require.Equal(t, domain.IdempotencyStatusProcessing, busy.Status)

	response, err := json.Marshal(map[string]any{"order_id": "order-1", "total": "730.00"})
	require.NoError(t, err)
	require.NoError(t, repo.MarkDone("purchase/customer-1/order-1", response, 0))

	stored, err := repo.Get("purchase/customer-1/order-1")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusDone, stored.Status)
	require.JSONEq(t, string(response), string(stored.ResponseBody))
	require.True(t, stored.TTLAt.Equal(ttl), "ttl %s != %s", stored.TTLAt, ttl)

	require.True(t, errors.Is(repo.Release("purchase/customer-1/order-1"), domain.ErrIdempotencyKeyNotFound),
		"completed purchase must not be released")

	_, err = repo.CreateProcessing("purchase/customer-1/order-1", "fingerprint-2", ttl)
	require.True(t, errors.Is(err, domain.ErrIdempotencyHashMismatch), "got %v", err)
}

func TestIdempotencyRepository_PostgresReleaseAfterTransientFailure(t *testing.T) {
	repo := openIdempotencyStoreForIntegrationTest(t)

	ttl := time.Now().UTC().Add(time.Hour)
	_, err := repo.CreateProcessing("seats/customer-1/sub-1", "fingerprint", ttl)
	require.NoError(t, err)
	require.NoError(t, repo.Release("seats/customer-1/sub-1"))

	_, err = repo.Get("seats/customer-1/sub-1")
	require.True(t, errors.Is(err, domain.ErrIdempotencyKeyNotFound), "got %v", err)

	_, err = repo.CreateProcessing("seats/customer-1/sub-1", "fingerprint", ttl)
	require.NoError(t, err, "released key must accept the retry")

	require.NoError(t, repo.MarkFailed("seats/customer-1/sub-1", []byte(`{"code":9,"message":"subscription_expired"}`), 9))
	failed, err := repo.Get("seats/customer-1/sub-1")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusFailed, failed.Status)
	require.Equal(t, 9, failed.StatusCode)
}

func TestIdempotencyRepository_PostgresCleanupOldestFirst(t *testing.T) {
	repo := openIdempotencyStoreForIntegrationTest(t)

	now := time.Now().UTC()
	for i, key := range []string{"renew-1", "renew-2", "renew-3"} {
		_, err := repo.CreateProcessing(key, "fingerprint", now.Add(-time.Duration(10-i)*time.Minute))
		require.NoError(t, err)
	}
	_, err := repo.CreateProcessing("renew-live", "fingerprint", now.Add(time.Hour))
	require.NoError(t, err)

	removed, err := repo.DeleteExpired(now, 2)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	_, err = repo.Get("renew-3")
	require.NoError(t, err, "youngest expired key is left for the next batch")

	removed, err = repo.DeleteExpired(now, 0)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = repo.Get("renew-live")
	require.NoError(t, err)
}
