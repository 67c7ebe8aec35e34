package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"voip-routing/internal/metrics"
)

const loadTimeout = 10 * time.Second

// Refresher reloads the dataset into a Holder on a timer and whenever the
// CRUD layer publishes on the invalidation channel.
type Refresher struct {
	Loader   Loader
	Holder   *Holder
	Interval time.Duration
	// Redis and Channel are optional; without them only the timer runs.
	Redis   *redis.Client
	Channel string
	Logger  *slog.Logger
}

// Reload loads a fresh dataset and publishes it. A failed load or build
// leaves the current snapshot in place.
func (r *Refresher) Reload(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	start := time.Now()
	ds, err := r.Loader.Load(ctx)
	if err != nil {
		metrics.SnapshotReloads.WithLabelValues("error").Inc()
		return fmt.Errorf("load dataset: %w", err)
	}

	gen, err := r.Holder.Publish(ds)
	if err != nil {
		metrics.SnapshotReloads.WithLabelValues("error").Inc()
		return fmt.Errorf("publish snapshot: %w", err)
	}

	metrics.SnapshotReloads.WithLabelValues("ok").Inc()
	metrics.SnapshotGeneration.Set(float64(gen))
	r.logger().Info("directory snapshot published",
		"generation", gen,
		"tenants", len(ds.Tenants),
		"extensions", len(ds.Extensions),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Run blocks until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if r.Interval > 0 {
		t := time.NewTicker(r.Interval)
		defer t.Stop()
		tick = t.C
	}

	var invalidate <-chan *redis.Message
	if r.Redis != nil && r.Channel != "" {
		sub := r.Redis.Subscribe(ctx, r.Channel)
		defer sub.Close()
		invalidate = sub.Channel()
		r.logger().Info("listening for snapshot invalidations", "channel", r.Channel)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			r.reloadAndLog(ctx, "timer")
		case msg, ok := <-invalidate:
			if !ok {
				r.logger().Warn("invalidation channel closed")
				invalidate = nil
				continue
			}
			r.reloadAndLog(ctx, "invalidate:"+msg.Payload)
		}
	}
}

func (r *Refresher) reloadAndLog(ctx context.Context, trigger string) {
	if err := r.Reload(ctx); err != nil {
		r.logger().Error("snapshot reload failed, keeping previous snapshot",
			"trigger", trigger,
			"generation", r.Holder.Snapshot().Generation(),
			"error", err,
		)
	}
}

func (r *Refresher) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
