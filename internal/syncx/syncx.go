// Package syncx provides locks that survive panics. A panic inside a critical
// section is recovered, the lock is released and marked poisoned, and later
// holders proceed on the poisoned state instead of propagating the panic.
package syncx

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// PanicError is a recovered panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func run(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	fn()
	return nil
}

// Mutex is a poison-aware sync.Mutex.
type Mutex struct {
	mu       sync.Mutex
	poisoned atomic.Bool
}

// Do runs fn with the lock held. adopted reports that the lock was poisoned
// when acquired; err is a *PanicError if fn panicked.
func (m *Mutex) Do(fn func()) (adopted bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	adopted = m.poisoned.Load()
	if err = run(fn); err != nil {
		m.poisoned.Store(true)
	}
	return adopted, err
}

func (m *Mutex) Poisoned() bool { return m.poisoned.Load() }

// ClearPoison marks the lock healthy again.
func (m *Mutex) ClearPoison() { m.poisoned.Store(false) }

// RWMutex is a poison-aware sync.RWMutex. Only panics under the write lock
// poison it.
type RWMutex struct {
	mu       sync.RWMutex
	poisoned atomic.Bool
}

func (m *RWMutex) Do(fn func()) (adopted bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	adopted = m.poisoned.Load()
	if err = run(fn); err != nil {
		m.poisoned.Store(true)
	}
	return adopted, err
}

func (m *RWMutex) DoRead(fn func()) (adopted bool, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.poisoned.Load(), run(fn)
}

func (m *RWMutex) Poisoned() bool { return m.poisoned.Load() }

func (m *RWMutex) ClearPoison() { m.poisoned.Store(false) }
