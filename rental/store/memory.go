// Package store provides Store implementations.
package store

import (
	"context"
	"strconv"
	"sync"

	"github.com/warp/rental-ledger/rental"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	table   *rental.Table
	version int
	writes  int
}

func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryWith returns a store already holding t.
func NewMemoryWith(t rental.Table) *Memory {
	m := &Memory{}
	m.setLocked(t)
	return m
}

// Read returns a copy of the stored table.
func (m *Memory) Read(_ context.Context) (rental.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.table == nil {
		return rental.Table{}, rental.ErrNoLedger
	}
	t := m.table.Clone()
	t.Version = m.currentLocked()
	return t, nil
}

// Write replaces the table if expect matches. Atomic under the lock.
func (m *Memory) Write(_ context.Context, t rental.Table, expect rental.Version) (rental.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := rental.CheckVersion(expect, m.currentLocked()); err != nil {
		return "", err
	}
	m.setLocked(t)
	m.writes++
	return m.currentLocked(), nil
}

// Writes reports how many writes have landed.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *Memory) setLocked(t rental.Table) {
	c := t.Clone()
	c.Version = ""
	m.table = &c
	m.version++
}

func (m *Memory) currentLocked() rental.Version {
	if m.table == nil {
		return rental.VersionNone
	}
	return rental.Version("mem-" + strconv.Itoa(m.version))
}
