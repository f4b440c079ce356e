package ocr

import (
	"context"
	"fmt"
	"sync"

	"github.com/extractext/extractext/internal/logging"
)

// EngineFactory creates the shared engine instance on first use.
type EngineFactory func() (Engine, error)

// Manager owns the process-wide engine handle. At most one handle exists at a
// time, and the single-flight token orders all recognition use of it: a second
// concurrent caller is rejected, never queued.
//
// Acquisition is idempotent under concurrent first use - callers that race the
// initial creation await it instead of creating a duplicate handle.
type Manager struct {
	factory EngineFactory
	log     *logging.Logger

	flight chan struct{} // capacity 1; held while a recognition is in flight

	mu       sync.Mutex
	handle   Engine
	creating chan struct{} // non-nil while a factory call is in progress
}

// NewManager creates a manager around the given factory.
func NewManager(factory EngineFactory) *Manager {
	return &Manager{
		factory: factory,
		log:     logging.NewLogger("engine"),
		flight:  make(chan struct{}, 1),
	}
}

// TryLock attempts to take the single-flight token without blocking.
func (m *Manager) TryLock() bool {
	select {
	case m.flight <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock releases the single-flight token. Safe to call when not held.
func (m *Manager) Unlock() {
	select {
	case <-m.flight:
	default:
	}
}

// Acquire returns the shared engine handle, creating it lazily. Concurrent
// first acquires share one factory call; if that call fails, the next waiter
// retries creation.
func (m *Manager) Acquire(ctx context.Context) (Engine, error) {
	for {
		m.mu.Lock()
		if m.handle != nil {
			h := m.handle
			m.mu.Unlock()
			return h, nil
		}
		if m.creating != nil {
			done := m.creating
			m.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		m.creating = done
		m.mu.Unlock()

		m.log.Info("creating OCR engine handle")
		handle, err := m.factory()

		m.mu.Lock()
		m.creating = nil
		close(done)
		if err != nil {
			m.mu.Unlock()
			return nil, fmt.Errorf("engine factory: %w", err)
		}
		m.handle = handle
		m.mu.Unlock()
		return handle, nil
	}
}

// Terminate closes the engine handle if present and clears the reference.
// Close failures are logged, not propagated.
func (m *Manager) Terminate() {
	m.mu.Lock()
	handle := m.handle
	m.handle = nil
	m.mu.Unlock()

	if handle == nil {
		return
	}

	if err := handle.Close(); err != nil {
		m.log.Warn("engine termination failed", "error", err)
	} else {
		m.log.Info("engine handle terminated")
	}
}
