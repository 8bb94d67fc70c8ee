package store

import (
	"context"
	"sync"

	"visitor-desk/internal/models"
)

// Memory holds the serialized list in process memory. The payload goes
// through the same JSON encoding as Bolt so a Load never aliases saved
// records.
type Memory struct {
	mu      sync.Mutex
	payload []byte
	saveErr error
	loadErr error
}

func NewMemory() *Memory {
	return &Memory{}
}

// FailSaves makes every following Save return err (nil clears it).
func (m *Memory) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// FailLoads makes every following Load return err (nil clears it).
func (m *Memory) FailLoads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// SetRaw replaces the stored payload without validation.
func (m *Memory) SetRaw(payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = append([]byte(nil), payload...)
}

func (m *Memory) Load(ctx context.Context) ([]models.Registration, error) {
	if err := ctx.Err(); err != nil {
		return []models.Registration{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return []models.Registration{}, m.loadErr
	}
	return decode(m.payload)
}

func (m *Memory) Save(ctx context.Context, regs []models.Registration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	payload, err := encode(regs)
	if err != nil {
		return err
	}
	m.payload = payload
	return nil
}
