package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// leaseTTL bounds how long a held lease survives without renewal. renewEvery
// must stay comfortably below leaseTTL so a slow renewal round-trip never
// lets the lease expire out from under an active primary.
const (
	leaseTTL   = 15 * time.Second
	renewEvery = 5 * time.Second
)

const (
	leaseKeyPrefix     = "watchdog:leader:lease:"
	roleChannelPrefix  = "watchdog:leader:role:"
	roleChangedPayload = "1"
	roleLostPayload    = "0"
)

// Elector is a Redis-backed distributed leader lease: Service Fabric's
// primary/secondary replica roles have no local equivalent in a standalone
// Go process, so exactly one watchdog instance per group holds write
// status at a time, acquired with SET NX PX and renewed on a ticker. It
// implements storekv.RoleSource and storekv.RoleChangeSource so a
// DurableStore can gate access on the same role transitions spec.md §4.1
// assumes a replicated stateful service delivers via onRoleChange.
type Elector struct {
	rdb        *redis.Client
	logger     *slog.Logger
	group      string
	instanceID string

	mu        sync.RWMutex
	isPrimary bool
	settling  bool

	subscribers []chan bool
}

// NewElector constructs an Elector for the named group (e.g. the watchdog
// deployment name) and instance identity (e.g. hostname+pid).
func NewElector(rdb *redis.Client, logger *slog.Logger, group, instanceID string) *Elector {
	return &Elector{rdb: rdb, logger: logger, group: group, instanceID: instanceID}
}

// IsPrimary implements storekv.RoleSource.
func (el *Elector) IsPrimary() bool {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.isPrimary
}

// Settling implements storekv.RoleSource.
func (el *Elector) Settling() bool {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.settling
}

// Subscribe implements storekv.RoleChangeSource: each call returns a fresh
// channel that receives the new IsPrimary value on every transition.
func (el *Elector) Subscribe() <-chan bool {
	ch := make(chan bool, 1)
	el.mu.Lock()
	el.subscribers = append(el.subscribers, ch)
	el.mu.Unlock()
	return ch
}

func (el *Elector) leaseKey() string    { return leaseKeyPrefix + el.group }
func (el *Elector) roleChannel() string { return roleChannelPrefix + el.group }

// Run acquires and renews the leader lease until ctx is cancelled. A
// single-process deployment always wins the lease on its first attempt; a
// multi-instance deployment has exactly one winner at a time, and losers
// keep retrying in case the current leader disappears.
func (el *Elector) Run(ctx context.Context) error {
	sub := el.rdb.Subscribe(ctx, el.roleChannel())
	defer sub.Close()
	roleCh := sub.Channel()

	ticker := time.NewTicker(renewEvery)
	defer ticker.Stop()

	el.tryAcquireOrRenew(ctx)

	for {
		select {
		case <-ctx.Done():
			el.release(context.Background())
			return nil
		case msg := <-roleCh:
			if msg.Payload == roleLostPayload {
				el.settle(false)
			}
		case <-ticker.C:
			el.tryAcquireOrRenew(ctx)
		}
	}
}

func (el *Elector) tryAcquireOrRenew(ctx context.Context) {
	ok, err := el.rdb.SetNX(ctx, el.leaseKey(), el.instanceID, leaseTTL).Result()
	if err != nil {
		el.logger.Error("coordinator: lease acquire failed", "error", err)
		return
	}
	if ok {
		el.promote(ctx)
		return
	}

	holder, err := el.rdb.Get(ctx, el.leaseKey()).Result()
	if err != nil && err != redis.Nil {
		el.logger.Error("coordinator: lease lookup failed", "error", err)
		return
	}
	if holder == el.instanceID {
		el.rdb.Expire(ctx, el.leaseKey(), leaseTTL)
		el.promote(ctx)
		return
	}

	el.settle(false)
}

func (el *Elector) promote(ctx context.Context) {
	el.mu.Lock()
	wasPrimary := el.isPrimary
	el.isPrimary = true
	el.settling = false
	el.mu.Unlock()

	if !wasPrimary {
		el.logger.Info("coordinator: promoted to primary", "group", el.group)
		el.broadcast(ctx, true)
	}
}

func (el *Elector) settle(isPrimary bool) {
	el.mu.Lock()
	wasPrimary := el.isPrimary
	el.isPrimary = isPrimary
	el.settling = wasPrimary != isPrimary
	el.mu.Unlock()

	if wasPrimary && !isPrimary {
		el.logger.Warn("coordinator: demoted from primary", "group", el.group)
		el.notifySubscribers(isPrimary)
	}
}

func (el *Elector) broadcast(ctx context.Context, isPrimary bool) {
	payload := roleLostPayload
	if isPrimary {
		payload = roleChangedPayload
	}
	if err := el.rdb.Publish(ctx, el.roleChannel(), payload).Err(); err != nil {
		el.logger.Error("coordinator: publishing role change failed", "error", err)
	}
	el.notifySubscribers(isPrimary)
}

func (el *Elector) notifySubscribers(isPrimary bool) {
	el.mu.RLock()
	defer el.mu.RUnlock()
	for _, ch := range el.subscribers {
		select {
		case ch <- isPrimary:
		default:
		}
	}
}

func (el *Elector) release(ctx context.Context) {
	el.mu.Lock()
	wasPrimary := el.isPrimary
	el.isPrimary = false
	el.mu.Unlock()

	if wasPrimary {
		el.rdb.Del(ctx, el.leaseKey())
		el.broadcast(ctx, false)
	}
}
