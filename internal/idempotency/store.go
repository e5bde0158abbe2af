package idempotency

import (
	"context"
	"errors"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
)

// Record is what is remembered for a checkout token: the receipt and the
// fingerprint of the request that produced it.
type Record struct {
	Fingerprint string                  `json:"fingerprint"`
	Receipt     *domain.CheckoutReceipt `json:"receipt"`
}

// Store remembers the record issued for a checkout token.
type Store interface {
	Get(ctx context.Context, token string) (*Record, error)
	Set(ctx context.Context, token string, record *Record) error
}

var (
	ErrMiss = errors.New("idempotency record not found")
	// ErrConflict means a token was reused for a different request.
	ErrConflict = errors.New("idempotency key reused with a different request")
)

// NoopStore never remembers anything. It is used when Redis is not configured.
type NoopStore struct{}

func (NoopStore) Get(context.Context, string) (*Record, error) {
	return nil, ErrMiss
}

func (NoopStore) Set(context.Context, string, *Record) error {
	return nil
}
