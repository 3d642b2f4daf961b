package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
)

// ErrLockLost is returned by Refresh once the lease no longer owns the key.
var ErrLockLost = errors.New("turn lock is no longer held")

// releaseScript deletes the lock only if it still holds our token, so an
// expired holder cannot release a lock that was re-acquired by someone else.
var releaseScript = redisv9.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var refreshScript = redisv9.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// TurnLock allows at most one in-flight turn per session across all
// instances sharing the redis.
type TurnLock struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewTurnLock(client *redisv9.Client, ttl time.Duration) *TurnLock {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &TurnLock{client: client, ttl: ttl}
}

// TurnLease is one held turn lock.
type TurnLease struct {
	client *redisv9.Client
	key    string
	token  string
	ttl    time.Duration
}

// Acquire returns a lease when the lock was taken, or ok=false when another
// turn already holds it.
func (l *TurnLock) Acquire(ctx context.Context, sessionID uint) (*TurnLease, bool, error) {
	key := l.key(sessionID)
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis acquire turn lock failed: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return &TurnLease{client: l.client, key: key, token: token, ttl: l.ttl}, true, nil
}

// Refresh pushes the expiry a full TTL ahead of now.
func (l *TurnLease) Refresh(ctx context.Context) error {
	if l == nil {
		return nil
	}
	n, err := refreshScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("redis refresh turn lock failed: %w", err)
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}

func (l *TurnLease) Release() {
	if l == nil {
		return
	}
	// the turn's own context may already be done
	releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseScript.Run(releaseCtx, l.client, []string{l.key}, l.token).Err()
}

func (l *TurnLock) key(sessionID uint) string {
	return fmt.Sprintf("chat:turn:lock:%d", sessionID)
}
