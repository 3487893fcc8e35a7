package backend

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/log"
)

// WithRetry wraps a Backend so that operations failing with
// errs.BackendUnavailable are retried with bounded exponential backoff
// (one attempt plus up to 5 retries) before being surfaced (spec §7).
// Crypto and hash-mismatch failures
// (CorruptRepository) are never retried.
func WithRetry(b Backend) Backend {
	return &retrying{inner: b}
}

type retrying struct {
	inner Backend
}

func (r *retrying) String() string { return r.inner.String() }
func (r *retrying) Close() error   { return r.inner.Close() }

func newPolicy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(b, 5), ctx)
}

func retry[T any](ctx context.Context, op func() (T, error)) (T, error) {
	var zero T
	var result T
	err := backoff.Retry(func() error {
		v, err := op()
		if err == nil {
			result = v
			return nil
		}
		if !errs.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		log.Logger.Warn().Err(err).Msg("backend: retrying after transient failure")
		return err
	}, newPolicy(ctx))
	if err != nil {
		return zero, err
	}
	return result, nil
}

func (r *retrying) Put(ctx context.Context, kind ids.Kind, id ids.ID, data []byte) error {
	_, err := retry(ctx, func() (struct{}, error) {
		return struct{}{}, r.inner.Put(ctx, kind, id, data)
	})
	return err
}

func (r *retrying) Get(ctx context.Context, kind ids.Kind, id ids.ID, offset, length int64) ([]byte, error) {
	return retry(ctx, func() ([]byte, error) {
		return r.inner.Get(ctx, kind, id, offset, length)
	})
}

func (r *retrying) List(ctx context.Context, kind ids.Kind) ([]ids.ID, error) {
	return retry(ctx, func() ([]ids.ID, error) {
		return r.inner.List(ctx, kind)
	})
}

func (r *retrying) Stat(ctx context.Context, kind ids.Kind, id ids.ID) (int64, error) {
	return retry(ctx, func() (int64, error) {
		return r.inner.Stat(ctx, kind, id)
	})
}

func (r *retrying) Remove(ctx context.Context, kind ids.Kind, id ids.ID) error {
	_, err := retry(ctx, func() (struct{}, error) {
		return struct{}{}, r.inner.Remove(ctx, kind, id)
	})
	return err
}

func (r *retrying) AcquireLock(ctx context.Context, holder string, ttl time.Duration) (Lock, error) {
	// Lock contention (RepositoryLocked) is not retried here; the caller
	// decides whether to wait and re-attempt.
	return r.inner.AcquireLock(ctx, holder, ttl)
}

func (r *retrying) ReleaseLock(ctx context.Context, lock Lock) error {
	return r.inner.ReleaseLock(ctx, lock)
}
