// Package lock provides the per-project exclusive lock held for the
// duration of a deploy/destroy run, so two operations against
// the same twin never race against each other's IaC state.
//
// Grounded on the teacher's internal/concurrency (the in-process
// primitives: a keyed mutex here plays the same role as its Semaphore)
// and, for the optional multi-instance backend, its
// internal/state/distributed.go DistributedStateManager, which wraps
// go.etcd.io/etcd/client/v3's concurrency.Mutex/Session in exactly the
// shape reused here. A single deployer process only ever needs the
// in-memory keyed mutex; the etcd backend exists for the case where
// more than one orchestrator instance shares a twin directory (e.g. a
// horizontally scaled API server), and is used only when ETCD_ENDPOINTS
// is set.
package lock

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

// Locker acquires and releases the exclusive per-project lock.
type Locker interface {
	// Acquire blocks until the lock for name is held or ctx is done.
	// The returned Unlock must be called exactly once.
	Acquire(ctx context.Context, name string) (Unlock, error)
}

// Unlock releases a previously acquired lock.
type Unlock func()

// processLocker is the single-instance backend: one capacity-1
// permit channel per twin name, created on first use and kept for the
// process lifetime (the same channel-as-semaphore idiom as the
// teacher's concurrency.Semaphore, sized to one holder).
type processLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewProcessLocker returns the in-memory Locker used when no etcd
// endpoint is configured. Safe for concurrent use by multiple twins;
// each twin name gets its own independent permit channel.
func NewProcessLocker() Locker {
	return &processLocker{locks: make(map[string]chan struct{})}
}

func (p *processLocker) permit(name string) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	sem, ok := p.locks[name]
	if !ok {
		sem = make(chan struct{}, 1)
		p.locks[name] = sem
	}
	return sem
}

func (p *processLocker) Acquire(ctx context.Context, name string) (Unlock, error) {
	sem := p.permit(name)
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, twinerrors.Deployment("lock", "", fmt.Sprintf("acquiring lock %q", name)).Wrap(ctx.Err())
	}
}

// etcdLocker is the multi-instance backend, used when ETCD_ENDPOINTS
// is set. Each Acquire opens its own session/mutex pair so lock TTLs
// are independent per caller, matching the teacher's AcquireLock.
type etcdLocker struct {
	client    *clientv3.Client
	namespace string
	ttl       time.Duration
}

// NewEtcdLocker dials the given endpoints and returns a Locker backed
// by etcd's lease-based distributed mutex.
func NewEtcdLocker(endpoints []string, namespace string, ttl time.Duration) (Locker, error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, twinerrors.Deployment("lock", "", "dialing etcd").Wrap(err)
	}
	return &etcdLocker{client: client, namespace: namespace, ttl: ttl}, nil
}

func (e *etcdLocker) Acquire(ctx context.Context, name string) (Unlock, error) {
	session, err := concurrency.NewSession(e.client, concurrency.WithTTL(int(e.ttl.Seconds())))
	if err != nil {
		return nil, twinerrors.Deployment("lock", "", "opening etcd session").Wrap(err)
	}

	key := path.Join("/", e.namespace, "locks", name)
	mutex := concurrency.NewMutex(session, key)

	if err := mutex.Lock(ctx); err != nil {
		session.Close()
		return nil, twinerrors.Deployment("lock", "", fmt.Sprintf("acquiring etcd lock %q", name)).Wrap(err)
	}

	return func() {
		mutex.Unlock(context.Background())
		session.Close()
	}, nil
}

// Close releases the underlying etcd client connection.
func (e *etcdLocker) Close() error {
	return e.client.Close()
}

// FromEnv builds the appropriate Locker for the current environment:
// an etcdLocker when ETCD_ENDPOINTS is set (comma-separated host:port
// list), otherwise the in-process Locker.
func FromEnv(namespace string) (Locker, error) {
	raw := os.Getenv("ETCD_ENDPOINTS")
	if raw == "" {
		return NewProcessLocker(), nil
	}
	endpoints := strings.Split(raw, ",")
	for i := range endpoints {
		endpoints[i] = strings.TrimSpace(endpoints[i])
	}
	return NewEtcdLocker(endpoints, namespace, 30*time.Second)
}
