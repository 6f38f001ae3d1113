package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Key constrains cache keys: immutable comparable value types that render
// a human-readable, secret-free identifier.
type Key interface {
	comparable
	fmt.Stringer
}

// Factory constructs a new client instance for a key. It may block on
// network I/O (connection handshakes, auth); the cache invokes it at most
// once concurrently per key and at most once successfully over the
// registry's lifetime.
type Factory[V any] func(ctx context.Context) (V, error)

// creation tracks one in-flight factory call. done is closed when the
// attempt finishes, successfully or not.
type creation[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// cache is the keyed singleton core shared by all categories.
//
// ready holds successfully created instances; inflight holds per-key
// creation guards so callers for different keys never block each other.
// An entry moves to ready only after its factory fully succeeds, which is
// what makes snapshots consistent.
type cache[K Key, V any] struct {
	category Category
	logger   *zap.Logger
	metrics  *Metrics

	// closeInstance releases the underlying resource of one instance.
	closeInstance func(context.Context, V) error

	mu       sync.RWMutex
	ready    map[K]V
	inflight map[K]*creation[V]
	closed   bool
}

func newCache[K Key, V any](category Category, logger *zap.Logger, metrics *Metrics, closeInstance func(context.Context, V) error) *cache[K, V] {
	return &cache[K, V]{
		category:      category,
		logger:        logger.With(zap.String("category", string(category))),
		metrics:       metrics,
		closeInstance: closeInstance,
		ready:         make(map[K]V),
		inflight:      make(map[K]*creation[V]),
	}
}

// getOrCreate returns the cached instance for key, creating it via factory
// on first request. Concurrent first-access for the same key results in a
// single factory invocation; losers wait for the winner and receive the
// same instance. A waiting caller is released when its context is
// cancelled without aborting the in-flight creation for other waiters.
func (c *cache[K, V]) getOrCreate(ctx context.Context, key K, factory Factory[V]) (V, error) {
	var zero V

	// Fast path: already created.
	c.mu.RLock()
	if v, ok := c.ready[key]; ok {
		c.mu.RUnlock()
		c.metrics.recordHit(ctx, c.category)
		return v, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, fmt.Errorf("%s %s: %w", c.category, key, ErrClosed)
	}
	// Re-check under the write lock; another caller may have won the race.
	if v, ok := c.ready[key]; ok {
		c.mu.Unlock()
		c.metrics.recordHit(ctx, c.category)
		return v, nil
	}

	call, inFlight := c.inflight[key]
	if !inFlight {
		call = &creation[V]{done: make(chan struct{})}
		c.inflight[key] = call
		// Creation is not owned by any single caller: run it detached
		// from the initiating context so one cancelled waiter cannot
		// abort it for the others.
		go c.construct(context.WithoutCancel(ctx), key, factory, call)
	}
	c.mu.Unlock()

	select {
	case <-call.done:
		if call.err != nil {
			return zero, call.err
		}
		return call.val, nil
	case <-ctx.Done():
		return zero, fmt.Errorf("waiting for %s instance %s: %w", c.category, key, ctx.Err())
	}
}

// construct runs the factory for key and publishes the result.
func (c *cache[K, V]) construct(ctx context.Context, key K, factory Factory[V], call *creation[V]) {
	start := time.Now()
	v, err := factory(ctx)
	elapsed := time.Since(start)

	c.mu.Lock()
	delete(c.inflight, key)
	closedUnderneath := c.closed
	if err != nil {
		call.err = fmt.Errorf("%s %s: %w: %w", c.category, key, ErrCreationFailed, err)
	} else if closedUnderneath {
		call.err = fmt.Errorf("%s %s: %w", c.category, key, ErrClosed)
	} else {
		call.val = v
		c.ready[key] = v
	}
	c.mu.Unlock()
	close(call.done)

	if err != nil {
		c.metrics.recordCreationFailure(ctx, c.category)
		c.logger.Warn("instance creation failed",
			zap.String("key", key.String()),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return
	}

	if closedUnderneath {
		// The registry shut down while the factory was running; release
		// the fresh instance instead of leaking it.
		if cerr := c.closeInstance(ctx, v); cerr != nil {
			c.logger.Warn("closing instance created during shutdown",
				zap.String("key", key.String()),
				zap.Error(cerr))
		}
		return
	}

	c.metrics.recordCreation(ctx, c.category, elapsed)
	c.logger.Info("instance created",
		zap.String("key", key.String()),
		zap.Duration("duration", elapsed))
}

// snapshot returns a point-in-time view of the cache. In-flight creations
// are invisible until their factory succeeds.
func (c *cache[K, V]) snapshot() CategorySnapshot {
	c.mu.RLock()
	identifiers := make([]string, 0, len(c.ready))
	for key := range c.ready {
		identifiers = append(identifiers, key.String())
	}
	c.mu.RUnlock()

	sort.Strings(identifiers)
	return CategorySnapshot{
		Category:             c.category,
		TotalCachedInstances: len(identifiers),
		CachedIdentifiers:    identifiers,
		Summary:              fmt.Sprintf("%d %s instances cached", len(identifiers), c.category),
	}
}

// purge releases every cached instance but keeps the cache usable: the
// next request for a purged key runs its factory again. A creation in
// flight during the purge publishes afterward and is not affected.
func (c *cache[K, V]) purge(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	instances := make(map[K]V, len(c.ready))
	for k, v := range c.ready {
		instances[k] = v
	}
	c.ready = make(map[K]V)
	c.mu.Unlock()

	var errs []error
	for key, v := range instances {
		if err := c.closeInstance(ctx, v); err != nil {
			errs = append(errs, fmt.Errorf("purging %s %s: %w", c.category, key, err))
		}
		c.metrics.recordRelease(ctx, c.category)
	}

	if len(instances) > 0 {
		c.logger.Info("purged cached instances", zap.Int("count", len(instances)))
	}
	return errors.Join(errs...)
}

// close releases every cached instance and rejects subsequent requests.
// Waiters on in-flight creations are resolved by construct, which closes
// any instance finished after shutdown began.
func (c *cache[K, V]) close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	instances := make(map[K]V, len(c.ready))
	for k, v := range c.ready {
		instances[k] = v
	}
	c.ready = make(map[K]V)
	c.mu.Unlock()

	var errs []error
	for key, v := range instances {
		if err := c.closeInstance(ctx, v); err != nil {
			errs = append(errs, fmt.Errorf("closing %s %s: %w", c.category, key, err))
		}
		c.metrics.recordRelease(ctx, c.category)
	}
	return errors.Join(errs...)
}
