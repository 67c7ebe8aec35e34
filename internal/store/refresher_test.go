package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voip-routing/internal/models"
)

type stubLoader struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (l *stubLoader) Load(ctx context.Context) (*Dataset, error) {
	n := l.calls.Add(1)
	if l.fail.Load() {
		return nil, errors.New("db down")
	}
	return &Dataset{Tenants: []models.Tenant{
		{ID: "t1", Domain: "t1.local", MaxExtensions: int(n)},
	}}, nil
}

func TestRefresherReload(t *testing.T) {
	t.Parallel()

	loader := &stubLoader{}
	r := &Refresher{Loader: loader, Holder: NewHolder()}

	require.NoError(t, r.Reload(context.Background()))
	assert.Equal(t, uint64(1), r.Holder.Snapshot().Generation())

	loader.fail.Store(true)
	require.Error(t, r.Reload(context.Background()))

	tenant, ok := r.Holder.Snapshot().TenantByID("t1")
	require.True(t, ok, "previous snapshot must survive a failed reload")
	assert.Equal(t, 1, tenant.MaxExtensions)
}

func TestRefresherRunReloadsOnTimer(t *testing.T) {
	t.Parallel()

	loader := &stubLoader{}
	r := &Refresher{Loader: loader, Holder: NewHolder(), Interval: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return r.Holder.Snapshot().Generation() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
