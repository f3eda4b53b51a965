package transport

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/tcrlabs/curate/arbitrator"
	"github.com/tcrlabs/curate/ledger"
	"github.com/tcrlabs/curate/logging"
	"github.com/tcrlabs/curate/registry"
)

var ErrClosed = errors.New("transport is closed")

type transport interface {
	arbitrator.RulingSink
	registry.RulingSource
	Close() error
}

// InMemory binds an arbitrator to a registry in a standalone mode by an
// in-memory channel. Rulings are queued and applied by the registry's Run
// loop, so an arbitrator never calls into the registry directly.
type InMemory struct {
	mu      sync.RWMutex
	closed  bool
	rulings chan arbitrator.Decision
}

var _ transport = (*InMemory)(nil)

func NewInMemory(buffer int) *InMemory {
	if buffer < 1 {
		buffer = 1
	}
	return &InMemory{
		rulings: make(chan arbitrator.Decision, buffer),
	}
}

// Rule implements arbitrator.RulingSink. It blocks while the queue is full.
func (m *InMemory) Rule(ctx context.Context, from ledger.Account, disputeID uint64, ruling arbitrator.Ruling) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	select {
	case m.rulings <- arbitrator.Decision{From: from, DisputeID: disputeID, Ruling: ruling}:
		logging.FromContext(ctx).Debug("queued ruling",
			zap.Stringer("arbitrator", from),
			zap.Uint64("dispute", disputeID),
			zap.Uint64("ruling", uint64(ruling)),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterForRulings implements registry.RulingSource.
func (m *InMemory) RegisterForRulings(ctx context.Context) <-chan arbitrator.Decision {
	return m.rulings
}

// Close stops accepting rulings. Queued rulings are still delivered.
func (m *InMemory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.rulings)
	}
	return nil
}
