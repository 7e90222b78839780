// Package lock provides the single-writer lock taken around a dataset import.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned by Acquire when another holder owns the lock.
var ErrHeld = errors.New("lock already held")

// Locker hands out at most one Lease at a time.
type Locker interface {
	Acquire(ctx context.Context) (Lease, error)
}

type Lease interface {
	Release(ctx context.Context) error
}

// Local is an in-process lock for single-instance deployments.
type Local struct{ held atomic.Bool }

func NewLocal() *Local { return &Local{} }

func (l *Local) Acquire(context.Context) (Lease, error) {
	if !l.held.CompareAndSwap(false, true) {
		return nil, ErrHeld
	}
	return &localLease{l: l}, nil
}

type localLease struct {
	l    *Local
	done atomic.Bool
}

func (ll *localLease) Release(context.Context) error {
	if ll.done.CompareAndSwap(false, true) {
		ll.l.held.Store(false)
	}
	return nil
}

// Redis locks across instances with SET NX and a TTL so a crashed holder
// cannot wedge imports forever. Each lease carries its own token and only
// deletes the key while it still owns it.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, key string, ttl time.Duration) *Redis {
	return &Redis{client: client, key: "lock:" + key, ttl: ttl}
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

func (r *Redis) Acquire(ctx context.Context) (Lease, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", r.key, err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return &redisLease{client: r.client, key: r.key, token: token}, nil
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
}

func (rl *redisLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, rl.client, []string{rl.key}, rl.token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", rl.key, err)
	}
	return nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
