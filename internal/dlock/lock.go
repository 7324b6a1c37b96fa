// Package dlock provides a quorum mutual-exclusion lease over independent
// Redis nodes. A lock is held only once a strict majority of nodes accept the
// same token; release and extend succeed only for the token that set the key,
// so a process can never free a lease it no longer owns.
package dlock

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cardroom/platform/internal/domain"
)

// Node is the slice of the Redis API the lock needs. *redis.Client satisfies it.
type Node interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

const (
	keyPrefix = "lock:table:"

	// compare-and-delete / compare-and-expire scripts: no blind deletes.
	releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
	extendScript  = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("pexpire", KEYS[1], ARGV[2]) else return 0 end`
)

// Lease is an acquired table lock. The critical section must complete before
// Validity elapses; ExpiresAt already has the clock-drift margin subtracted.
type Lease struct {
	TableID   string
	Token     string
	ExpiresAt time.Time
}

// Lock acquires leases across a set of independent Redis nodes.
type Lock struct {
	nodes       []Node
	quorum      int
	nodeTimeout time.Duration
	retries     int
	retryDelay  time.Duration
	logger      *slog.Logger
}

// New creates a quorum lock over the given nodes. The per-node timeout is kept
// well under the lease TTL so a full round of attempts cannot consume the lease.
func New(nodes []Node, logger *slog.Logger) *Lock {
	return &Lock{
		nodes:       nodes,
		quorum:      len(nodes)/2 + 1,
		nodeTimeout: 50 * time.Millisecond,
		retries:     3,
		retryDelay:  50 * time.Millisecond,
		logger:      logger,
	}
}

// Acquire obtains the table lock or fails with ErrTableBusy after bounded
// jittered retries. It never degrades to a minority lock: a failed quorum
// releases any partial acquisitions before retrying.
func (l *Lock) Acquire(ctx context.Context, tableID string, lease time.Duration) (*Lease, error) {
	var lastErr error
	for attempt := 0; attempt < l.retries; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Int63n(int64(l.retryDelay)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.retryDelay + jitter):
			}
		}

		acquired, err := l.tryAcquire(ctx, tableID, lease)
		if err == nil {
			return acquired, nil
		}
		lastErr = err
	}

	l.logger.Debug("lock acquisition exhausted retries",
		"table_id", tableID, "attempts", l.retries, "error", lastErr)
	return nil, domain.ErrTableBusy(tableID)
}

func (l *Lock) tryAcquire(ctx context.Context, tableID string, lease time.Duration) (*Lease, error) {
	token := uuid.NewString()
	key := keyPrefix + tableID
	start := time.Now()

	var oks int
	for _, node := range l.nodes {
		nodeCtx, cancel := context.WithTimeout(ctx, l.nodeTimeout)
		ok, err := node.SetNX(nodeCtx, key, token, lease).Result()
		cancel()
		if err == nil && ok {
			oks++
		}
	}

	elapsed := time.Since(start)
	validity := lease - elapsed - driftMargin(lease)

	if oks < l.quorum || validity <= 0 {
		l.releaseAll(ctx, key, token)
		return nil, fmt.Errorf("quorum not reached: %d/%d nodes, validity %s", oks, l.quorum, validity)
	}

	return &Lease{
		TableID:   tableID,
		Token:     token,
		ExpiresAt: start.Add(validity),
	}, nil
}

// Release frees the lease on every node. Only keys still holding this lease's
// token are deleted; a lease that expired and was reacquired elsewhere is left
// alone. Succeeds if a quorum of nodes confirmed the delete or had already
// expired the key.
func (l *Lock) Release(ctx context.Context, lease *Lease) error {
	oks := l.releaseAll(ctx, keyPrefix+lease.TableID, lease.Token)
	if oks < l.quorum {
		return fmt.Errorf("release confirmed on %d/%d nodes", oks, l.quorum)
	}
	return nil
}

// Extend pushes the lease expiry out by another TTL if this caller still owns
// it on a quorum of nodes.
func (l *Lock) Extend(ctx context.Context, lease *Lease, ttl time.Duration) error {
	key := keyPrefix + lease.TableID
	start := time.Now()

	var oks int
	for _, node := range l.nodes {
		nodeCtx, cancel := context.WithTimeout(ctx, l.nodeTimeout)
		res, err := node.Eval(nodeCtx, extendScript, []string{key}, lease.Token, ttl.Milliseconds()).Int64()
		cancel()
		if err == nil && res == 1 {
			oks++
		}
	}

	if oks < l.quorum {
		return fmt.Errorf("extend confirmed on %d/%d nodes", oks, l.quorum)
	}
	lease.ExpiresAt = start.Add(ttl - driftMargin(ttl))
	return nil
}

func (l *Lock) releaseAll(ctx context.Context, key, token string) int {
	var oks int
	for _, node := range l.nodes {
		nodeCtx, cancel := context.WithTimeout(ctx, l.nodeTimeout)
		res, err := node.Eval(nodeCtx, releaseScript, []string{key}, token).Int64()
		cancel()
		if err == nil {
			// 0 means the key expired or belongs to someone else now;
			// either way this node no longer counts us as the holder.
			_ = res
			oks++
		}
	}
	return oks
}

// driftMargin is the clock-drift safety margin subtracted from the usable
// lease time: 1% of the TTL plus a small fixed floor.
func driftMargin(lease time.Duration) time.Duration {
	return lease/100 + 2*time.Millisecond
}
