package offset

import (
	"sync"

	"github.com/downfa11-org/sharefetch/pkg/types"
)

// Manager holds acknowledgements per partition until they are taken to be
// sent to the broker. It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	pending map[types.TopicIDPartition]*Acknowledgements
}

func NewManager() *Manager {
	return &Manager{
		pending: make(map[types.TopicIDPartition]*Acknowledgements),
	}
}

// Add merges acks into the partition's pending acknowledgements.
func (m *Manager) Add(tp types.TopicIDPartition, acks *Acknowledgements) {
	if acks == nil || acks.IsEmpty() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.pending[tp]
	if !ok {
		existing = NewAcknowledgements()
		m.pending[tp] = existing
	}
	existing.AddAll(acks)
}

// Take removes and returns the partition's pending acknowledgements.
func (m *Manager) Take(tp types.TopicIDPartition) (*Acknowledgements, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acks, ok := m.pending[tp]
	if ok {
		delete(m.pending, tp)
	}
	return acks, ok
}

// TakeAll removes and returns every partition's pending acknowledgements.
func (m *Manager) TakeAll() map[types.TopicIDPartition]*Acknowledgements {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.pending
	m.pending = make(map[types.TopicIDPartition]*Acknowledgements)
	return out
}

// Pending returns how many offsets of tp await sending.
func (m *Manager) Pending(tp types.TopicIDPartition) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if acks, ok := m.pending[tp]; ok {
		return acks.Size()
	}
	return 0
}
