package db

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen é retornado sem tocar o banco enquanto o circuito
// está aberto.
var ErrBreakerOpen = errors.New("banco de dados indisponível: circuito aberto")

const (
	stateClosed = iota
	stateOpen
	stateHalfOpen
)

// Guard é um circuit breaker para chamadas ao banco: depois de
// failureThreshold falhas consecutivas o circuito abre e toda chamada
// falha imediatamente durante cooldown; passado o cooldown uma única
// chamada de teste é liberada (half-open). Não há retry automático.
type Guard struct {
	mu       sync.Mutex
	state    int
	failures int
	openedAt time.Time

	threshold int
	cooldown  time.Duration
	now       func() time.Time
	onOpen    func()
}

// NewGuard cria um Guard com os limites padrão (5 falhas, 60s).
func NewGuard() *Guard {
	return &Guard{
		threshold: 5,
		cooldown:  60 * time.Second,
		now:       time.Now,
	}
}

// OnOpen registra um callback disparado quando o circuito abre.
func (g *Guard) OnOpen(fn func()) {
	g.mu.Lock()
	g.onOpen = fn
	g.mu.Unlock()
}

// Call executa fn se o circuito permitir. Enquanto a chamada de teste
// do estado half-open está em voo, chamadas concorrentes falham com
// ErrBreakerOpen.
func (g *Guard) Call(fn func() error) error {
	g.mu.Lock()
	switch g.state {
	case stateOpen:
		if g.now().Sub(g.openedAt) < g.cooldown {
			g.mu.Unlock()
			return ErrBreakerOpen
		}
		g.state = stateHalfOpen
	case stateHalfOpen:
		g.mu.Unlock()
		return ErrBreakerOpen
	}
	g.mu.Unlock()

	err := fn()

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.failures++
		if g.state == stateHalfOpen || g.failures >= g.threshold {
			g.trip()
		}
		return err
	}
	g.state = stateClosed
	g.failures = 0
	return nil
}

// trip abre o circuito. Deve ser chamado com o mutex preso.
func (g *Guard) trip() {
	wasOpen := g.state == stateOpen
	g.state = stateOpen
	g.openedAt = g.now()
	if !wasOpen && g.onOpen != nil {
		g.onOpen()
	}
}
