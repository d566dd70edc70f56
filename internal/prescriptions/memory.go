package prescriptions

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryIndex implements Index with brute-force token-overlap scoring.
// It is suitable for development and tests, not for large datasets.
type MemoryIndex struct {
	mu    sync.RWMutex
	items []Prescription
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add stores a prescription, generating an id if absent.
func (m *MemoryIndex) Add(ctx context.Context, p Prescription) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	m.items = append(m.items, p)
	return p.ID, nil
}

type scored struct {
	p     Prescription
	score int
}

// Search filters by patient id, scores each candidate by query-token
// overlap with its text fields, and returns the top matches. With no
// scoring signal (empty query) the patient's items come back newest
// first.
func (m *MemoryIndex) Search(ctx context.Context, query, patientID string, limit int) ([]Prescription, error) {
	if limit <= 0 {
		limit = 3
	}

	tokens := strings.Fields(strings.ToLower(query))

	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidates []scored
	for _, p := range m.items {
		if p.PatientID != patientID {
			continue
		}
		candidates = append(candidates, scored{p: p, score: overlap(p, tokens)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].p.IssuedAt.After(candidates[j].p.IssuedAt)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]Prescription, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.p)
	}
	return out, nil
}

func overlap(p Prescription, tokens []string) int {
	haystack := strings.ToLower(p.Medication + " " + p.Dosage + " " + p.Instructions)
	score := 0
	for _, t := range tokens {
		if strings.Contains(haystack, t) {
			score++
		}
	}
	return score
}
