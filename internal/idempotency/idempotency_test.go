package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore on it
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testReceipt() *domain.CheckoutReceipt {
	return &domain.CheckoutReceipt{
		PaymentIntentID:  "pi_123",
		ClientSecret:     "pi_123_secret_abc",
		AmountMinor:      2900,
		Currency:         "USD",
		PricingValidated: true,
		FallbackLines:    1,
	}
}

func testRecord() *Record {
	return &Record{Fingerprint: "fp-1", Receipt: testReceipt()}
}

func TestRedisStore_SetThenGet(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "tok-1", testRecord()))

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, testRecord(), got)

	assert.True(t, mr.Exists("checkout:idem:tok-1"))
	ttl := mr.TTL("checkout:idem:tok-1")
	assert.GreaterOrEqual(t, ttl, time.Hour)
	assert.Less(t, ttl, time.Hour+5*time.Minute)
}

func TestRedisStore_Miss(t *testing.T) {
	store, _ := setupTestRedis(t)

	_, err := store.Get(context.Background(), "unknown")

	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisStore_CorruptRecord(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("checkout:idem:bad", "{not json"))

	_, err := store.Get(context.Background(), "bad")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)

	require.NoError(t, mr.Set("checkout:idem:empty", `{"fingerprint":"fp-1"}`))
	_, err = store.Get(context.Background(), "empty")
	assert.Error(t, err)
}

func TestRedisStore_ExpiresAfterTTL(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "tok", testRecord()))

	mr.FastForward(2 * time.Hour)

	_, err := store.Get(ctx, "tok")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestGuard_ReplaysStoredReceipt(t *testing.T) {
	store, _ := setupTestRedis(t)
	guard := NewGuard(store, time.Second, discardLogger())
	ctx := context.Background()

	var runs int
	run := func(context.Context) (*domain.CheckoutReceipt, error) {
		runs++
		return testReceipt(), nil
	}

	first, replayed, err := guard.Do(ctx, "tok", "fp-1", run)
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := guard.Do(ctx, "tok", "fp-1", run)
	require.NoError(t, err)
	assert.True(t, replayed)

	assert.Equal(t, 1, runs)
	assert.Equal(t, first, second)
}

func TestGuard_FailuresAreNotRemembered(t *testing.T) {
	store, _ := setupTestRedis(t)
	guard := NewGuard(store, time.Second, discardLogger())
	ctx := context.Background()
	boom := errors.New("card declined")

	_, _, err := guard.Do(ctx, "tok", "fp-1", func(context.Context) (*domain.CheckoutReceipt, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	receipt, replayed, err := guard.Do(ctx, "tok", "fp-1", func(context.Context) (*domain.CheckoutReceipt, error) {
		return testReceipt(), nil
	})
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "pi_123", receipt.PaymentIntentID)
}

func TestGuard_EmptyTokenAlwaysRuns(t *testing.T) {
	guard := NewGuard(NoopStore{}, time.Second, discardLogger())
	var runs int

	for i := 0; i < 3; i++ {
		_, replayed, err := guard.Do(context.Background(), "", "", func(context.Context) (*domain.CheckoutReceipt, error) {
			runs++
			return testReceipt(), nil
		})
		require.NoError(t, err)
		assert.False(t, replayed)
	}

	assert.Equal(t, 3, runs)
}

func TestGuard_ConcurrentDuplicatesRunOnce(t *testing.T) {
	store, _ := setupTestRedis(t)
	guard := NewGuard(store, time.Second, discardLogger())

	var runs atomic.Int32
	release := make(chan struct{})
	run := func(context.Context) (*domain.CheckoutReceipt, error) {
		runs.Add(1)
		<-release
		return testReceipt(), nil
	}

	var wg sync.WaitGroup
	results := make([]*domain.CheckoutReceipt, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, _, err := guard.Do(context.Background(), "double-click", "fp-1", run)
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), runs.Load())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "pi_123", r.PaymentIntentID)
	}
}

func TestGuard_StoreOutageStillRuns(t *testing.T) {
	store, mr := setupTestRedis(t)
	guard := NewGuard(store, time.Second, discardLogger())
	mr.Close()

	receipt, replayed, err := guard.Do(context.Background(), "tok", "fp-1", func(context.Context) (*domain.CheckoutReceipt, error) {
		return testReceipt(), nil
	})

	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "pi_123", receipt.PaymentIntentID)
}

func TestGuard_ReusedTokenWithDifferentRequestConflicts(t *testing.T) {
	store, _ := setupTestRedis(t)
	guard := NewGuard(store, time.Second, discardLogger())
	ctx := context.Background()

	var runs int
	run := func(context.Context) (*domain.CheckoutReceipt, error) {
		runs++
		return testReceipt(), nil
	}

	_, _, err := guard.Do(ctx, "tok", "fp-1", run)
	require.NoError(t, err)

	receipt, _, err := guard.Do(ctx, "tok", "fp-2", run)

	assert.ErrorIs(t, err, ErrConflict)
	assert.Nil(t, receipt)
	assert.Equal(t, 1, runs)
}

func TestGuard_InFlightDuplicateWithDifferentRequestConflicts(t *testing.T) {
	guard := NewGuard(NoopStore{}, time.Second, discardLogger())
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, _, err := guard.Do(context.Background(), "tok", "fp-1", func(context.Context) (*domain.CheckoutReceipt, error) {
			close(started)
			<-release
			return testReceipt(), nil
		})
		done <- err
	}()
	<-started

	second := make(chan error, 1)
	go func() {
		_, _, err := guard.Do(context.Background(), "tok", "fp-2", func(context.Context) (*domain.CheckoutReceipt, error) {
			return testReceipt(), nil
		})
		second <- err
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)

	require.NoError(t, <-done)
	assert.ErrorIs(t, <-second, ErrConflict)
}

func TestGuard_FirstCallerCancelDoesNotFailDuplicates(t *testing.T) {
	guard := NewGuard(NoopStore{}, time.Second, discardLogger())
	started := make(chan struct{})
	release := make(chan struct{})
	var runCtxErr atomic.Value

	run := func(ctx context.Context) (*domain.CheckoutReceipt, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			runCtxErr.Store(err)
			return nil, err
		}
		return testReceipt(), nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, _, err := guard.Do(firstCtx, "tok", "fp-1", run)
		first <- err
	}()
	<-started

	type outcome struct {
		receipt *domain.CheckoutReceipt
		err     error
	}
	second := make(chan outcome, 1)
	go func() {
		r, _, err := guard.Do(context.Background(), "tok", "fp-1", run)
		second <- outcome{r, err}
	}()

	time.Sleep(50 * time.Millisecond)
	cancelFirst()
	assert.ErrorIs(t, <-first, context.Canceled)
	close(release)

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "pi_123", got.receipt.PaymentIntentID)
	assert.Nil(t, runCtxErr.Load())
}

func TestGuard_SharedRunHasItsOwnDeadline(t *testing.T) {
	guard := NewGuard(NoopStore{}, 20*time.Millisecond, discardLogger())

	_, _, err := guard.Do(context.Background(), "tok", "fp-1", func(ctx context.Context) (*domain.CheckoutReceipt, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
