package connectivity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonitorEmitsOnlyTransitions(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)

	var transitions int32
	m := New(func(ctx context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("down")
	}, 10*time.Millisecond, func(online bool) {
		atomic.AddInt32(&transitions, 1)
	})

	m.Start()
	defer m.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&transitions), int32(1))

	healthy.Store(false)
	time.Sleep(50 * time.Millisecond)
	assert.True(t, atomic.LoadInt32(&transitions) >= 1)

	status := m.Status()
	assert.False(t, status.IsOnline)
}

func TestSetOnlineOverridesProbe(t *testing.T) {
	m := New(func(ctx context.Context) error { return nil }, time.Hour, nil)
	m.SetOnline(false)
	assert.False(t, m.Status().IsOnline)

	m.ClearOverride()
	m.probeOnce()
	assert.True(t, m.Status().IsOnline)
}
