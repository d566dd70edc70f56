package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryDirectory is an in-memory Directory for development and tests.
type MemoryDirectory struct {
	mu      sync.RWMutex
	byHandle map[string]Patient
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byHandle: make(map[string]Patient),
	}
}

// Get retrieves the patient registered under handle.
func (d *MemoryDirectory) Get(ctx context.Context, handle string) (*Patient, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.byHandle[handle]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := p
	return &cp, nil
}

// Upsert creates or replaces the record under handle. An existing record
// keeps its patient id; a new record without one gets a generated id.
func (d *MemoryDirectory) Upsert(ctx context.Context, handle string, p Patient) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p.Handle = handle
	if existing, ok := d.byHandle[handle]; ok {
		p.PatientID = existing.PatientID
	} else if p.PatientID == "" {
		p.PatientID = uuid.New().String()
	}

	d.byHandle[handle] = p
	return p.PatientID, nil
}
