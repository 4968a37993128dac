package db

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func newTestGuard(now *time.Time) *Guard {
	g := NewGuard()
	g.now = func() time.Time { return *now }
	return g
}

func TestGuard_OpensAfterFiveConsecutiveFailures(t *testing.T) {
	now := time.Now()
	g := newTestGuard(&now)

	calls := 0
	fail := func() error { calls++; return errBoom }

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, g.Call(fail), errBoom)
	}
	require.Equal(t, 5, calls)

	// circuito aberto: a sexta chamada não toca a função
	err := g.Call(fail)
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 5, calls)
}

func TestGuard_HalfOpenProbeAfterCooldown(t *testing.T) {
	now := time.Now()
	g := newTestGuard(&now)

	fail := func() error { return errBoom }
	for i := 0; i < 5; i++ {
		_ = g.Call(fail)
	}
	assert.ErrorIs(t, g.Call(fail), ErrBreakerOpen)

	// passado o cooldown, uma chamada de teste é liberada
	now = now.Add(61 * time.Second)
	calls := 0
	err := g.Call(func() error { calls++; return nil })
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)

	// sucesso fecha o circuito e zera o contador
	assert.NoError(t, g.Call(func() error { return nil }))
}

func TestGuard_ReopensOnFailedProbe(t *testing.T) {
	now := time.Now()
	g := newTestGuard(&now)

	for i := 0; i < 5; i++ {
		_ = g.Call(func() error { return errBoom })
	}

	now = now.Add(61 * time.Second)
	assert.ErrorIs(t, g.Call(func() error { return errBoom }), errBoom)

	// a falha do probe reabre imediatamente
	assert.ErrorIs(t, g.Call(func() error { return nil }), ErrBreakerOpen)
}

func TestGuard_SuccessResetsFailureCount(t *testing.T) {
	now := time.Now()
	g := newTestGuard(&now)

	for i := 0; i < 4; i++ {
		_ = g.Call(func() error { return errBoom })
	}
	assert.NoError(t, g.Call(func() error { return nil }))

	// falhas não são mais consecutivas: o circuito segue fechado
	for i := 0; i < 4; i++ {
		assert.ErrorIs(t, g.Call(func() error { return errBoom }), errBoom)
	}
	assert.NoError(t, g.Call(func() error { return nil }))
}

func TestGuard_OnOpenFiresOnce(t *testing.T) {
	now := time.Now()
	g := newTestGuard(&now)

	opened := 0
	g.OnOpen(func() { opened++ })

	for i := 0; i < 5; i++ {
		_ = g.Call(func() error { return errBoom })
	}
	assert.Equal(t, 1, opened)
}
