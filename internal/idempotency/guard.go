package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"golang.org/x/sync/singleflight"
)

const DefaultRunTimeout = 45 * time.Second

// Guard runs a checkout at most once per token: a stored receipt is replayed,
// and concurrent calls with the same token in this process share one run.
// A token presented with a different request fingerprint is a conflict.
type Guard struct {
	store      Store
	sfg        singleflight.Group
	runTimeout time.Duration
	logger     *slog.Logger
}

// NewGuard builds a guard. runTimeout bounds a shared run, which is detached
// from the cancellation of whichever caller started it.
func NewGuard(store Store, runTimeout time.Duration, logger *slog.Logger) *Guard {
	if store == nil {
		store = NoopStore{}
	}
	if runTimeout <= 0 {
		runTimeout = DefaultRunTimeout
	}
	return &Guard{store: store, runTimeout: runTimeout, logger: logger}
}

type result struct {
	record   *Record
	replayed bool
}

// Do returns the receipt for token, running fn only when none is stored. The
// bool reports whether the receipt was replayed rather than produced by fn.
// An empty token runs fn directly.
func (g *Guard) Do(ctx context.Context, token, fingerprint string, fn func(context.Context) (*domain.CheckoutReceipt, error)) (*domain.CheckoutReceipt, bool, error) {
	if token == "" {
		receipt, err := fn(ctx)
		return receipt, false, err
	}

	ch := g.sfg.DoChan(token, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.runTimeout)
		defer cancel()
		return g.run(runCtx, token, fingerprint, fn)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, false, res.Err
	}

	out := res.Val.(result)
	if out.record.Fingerprint != fingerprint {
		g.logger.WarnContext(ctx, "idempotency key reused with a different request",
			"payment_intent_id", out.record.Receipt.PaymentIntentID)
		return nil, false, ErrConflict
	}
	return out.record.Receipt, out.replayed, nil
}

func (g *Guard) run(ctx context.Context, token, fingerprint string, fn func(context.Context) (*domain.CheckoutReceipt, error)) (result, error) {
	record, err := g.store.Get(ctx, token)
	if err == nil {
		return result{record: record, replayed: true}, nil
	}
	if !errors.Is(err, ErrMiss) {
		g.logger.WarnContext(ctx, "idempotency lookup failed", "error", err)
	}

	receipt, err := fn(ctx)
	if err != nil {
		return result{}, err
	}

	record = &Record{Fingerprint: fingerprint, Receipt: receipt}
	if err := g.store.Set(ctx, token, record); err != nil {
		g.logger.WarnContext(ctx, "idempotency store failed", "error", err)
	}
	return result{record: record}, nil
}
