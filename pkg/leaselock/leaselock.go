// Package leaselock hands out expiring, renewable leases stored in the
// app_locks table. The worker takes the "detect" lease before recomputing
// red flags so that only one recompute runs at a time.
package leaselock

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
)

// DetectKey guards the red-flag recompute.
const DetectKey = "detect"

var (
	ErrBusy = errors.New("lease is held by another owner")
	ErrLost = errors.New("lease expired or was taken over")
)

// DB is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Locker struct {
	db DB
}

func New(db DB) *Locker {
	return &Locker{db: db}
}

// Options controls lease timing. TTL defaults to five minutes and leases are
// renewed every TTL/2. With Wait set, Acquire polls until the lease frees up
// or ctx ends; otherwise a held lease yields ErrBusy.
type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration

	Wait         bool
	WaitInterval time.Duration
	WaitJitter   time.Duration

	// OwnerPrefix is prepended to the random owner token, e.g. "worker/".
	OwnerPrefix string
}

func (o Options) withDefaults() Options {
	if o.TTL < time.Second {
		o.TTL = 5 * time.Minute
	}
	if o.RenewEvery <= 0 || o.RenewEvery >= o.TTL {
		o.RenewEvery = max(o.TTL/2, time.Second)
	}
	if o.WaitInterval <= 0 {
		o.WaitInterval = 250 * time.Millisecond
	}
	if o.WaitJitter < 0 {
		o.WaitJitter = 0
	}
	return o
}

// Lease is a held lock. Its Context is cancelled when the lease is released
// or lost; the cause is ErrLost in the latter case.
type Lease struct {
	Key   string
	Owner string

	ctx    context.Context
	cancel context.CancelCauseFunc
	locker *Locker

	once sync.Once
	stop chan struct{}
}

func (l *Lease) Context() context.Context {
	return l.ctx
}

// Do runs fn while holding key. fn receives the lease context and should
// stop when it is cancelled.
func (k *Locker) Do(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error {
	lease, err := k.Acquire(ctx, key, opts)
	if err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			logger.Warn("[Lease] Release failed", "key", key, "err", err)
		}
	}()

	err = fn(lease.ctx)
	if cause := context.Cause(lease.ctx); errors.Is(cause, ErrLost) && err != nil {
		return fmt.Errorf("%w: %w", ErrLost, err)
	}
	return err
}

func (k *Locker) Acquire(ctx context.Context, key string, opts Options) (*Lease, error) {
	if key == "" {
		return nil, errors.New("lease key is empty")
	}
	opts = opts.withDefaults()

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	owner := opts.OwnerPrefix + id
	ttlMs := opts.TTL.Milliseconds()

	for {
		ok, err := k.try(ctx, acquireSQL, key, owner, ttlMs)
		if err != nil {
			return nil, fmt.Errorf("acquire lease %q: %w", key, err)
		}
		if ok {
			break
		}
		if !opts.Wait {
			return nil, ErrBusy
		}
		if err := sleep(ctx, opts.WaitInterval, opts.WaitJitter); err != nil {
			return nil, err
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	l := &Lease{
		Key:    key,
		Owner:  owner,
		ctx:    leaseCtx,
		cancel: cancel,
		locker: k,
		stop:   make(chan struct{}),
	}
	go l.keepAlive(opts.RenewEvery, ttlMs)
	logger.Debug("[Lease] Acquired", "key", key, "owner", owner)
	return l, nil
}

// try runs a statement that returns the key when the caller holds the lease.
func (k *Locker) try(ctx context.Context, sql, key, owner string, ttlMs int64) (bool, error) {
	var got string
	err := k.db.QueryRow(ctx, sql, key, owner, ttlMs).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return got == key, nil
}

func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		close(l.stop)
		l.cancel(context.Canceled)
	})
	_, err := l.locker.db.Exec(ctx, releaseSQL, l.Key, l.Owner)
	return err
}

func (l *Lease) keepAlive(every time.Duration, ttlMs int64) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-l.ctx.Done():
			return
		case <-t.C:
			if err := l.renew(ttlMs); err != nil {
				logger.Error("[Lease] Renewal failed", "key", l.Key, "err", err)
				l.cancel(ErrLost)
				return
			}
		}
	}
}

func (l *Lease) renew(ttlMs int64) error {
	var lastErr error
	for range 3 {
		ctx, cancel := context.WithTimeout(l.ctx, 15*time.Second)
		ok, err := l.locker.try(ctx, renewSQL, l.Key, l.Owner, ttlMs)
		cancel()
		switch {
		case err == nil && ok:
			return nil
		case err == nil:
			return ErrLost
		}
		lastErr = err
		if err := sleep(l.ctx, 200*time.Millisecond, 0); err != nil {
			return err
		}
	}
	return lastErr
}

func sleep(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(jitter) + 1))
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const acquireSQL = `
INSERT INTO app_locks (lock_key, locked_by, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (lock_key) DO UPDATE
SET locked_by = EXCLUDED.locked_by,
    expires_at = EXCLUDED.expires_at
WHERE app_locks.expires_at < now()
   OR app_locks.locked_by = EXCLUDED.locked_by
RETURNING lock_key`

const renewSQL = `
UPDATE app_locks
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE lock_key = $1 AND locked_by = $2
RETURNING lock_key`

const releaseSQL = `DELETE FROM app_locks WHERE lock_key = $1 AND locked_by = $2`
