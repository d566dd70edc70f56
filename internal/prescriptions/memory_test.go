package prescriptions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex()
	ctx := context.Background()

	items := []Prescription{
		{PatientID: "PAT_1", Medication: "Nitrofurantoin", Dosage: "100mg", Instructions: "twice daily for 3 days", IssuedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
		{PatientID: "PAT_1", Medication: "Ibuprofen", Dosage: "400mg", Instructions: "with food as needed", IssuedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{PatientID: "PAT_2", Medication: "Ibuprofen", Dosage: "200mg", Instructions: "as needed", IssuedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, p := range items {
		_, err := idx.Add(ctx, p)
		require.NoError(t, err)
	}
	return idx
}

func TestMemoryIndexSearchScopedToPatient(t *testing.T) {
	idx := seedIndex(t)

	results, err := idx.Search(context.Background(), "ibuprofen", "PAT_1", 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Ibuprofen", results[0].Medication)
	assert.Equal(t, "400mg", results[0].Dosage, "must never return another patient's item")
}

func TestMemoryIndexSearchRanksByOverlap(t *testing.T) {
	idx := seedIndex(t)

	results, err := idx.Search(context.Background(), "nitrofurantoin 100mg", "PAT_1", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "Nitrofurantoin", results[0].Medication)
}

func TestMemoryIndexSearchLimit(t *testing.T) {
	idx := seedIndex(t)

	results, err := idx.Search(context.Background(), "", "PAT_1", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	// Newest first when there is no scoring signal.
	assert.Equal(t, "Ibuprofen", results[0].Medication)
}

func TestMemoryIndexSearchUnknownPatient(t *testing.T) {
	idx := seedIndex(t)

	results, err := idx.Search(context.Background(), "ibuprofen", "PAT_404", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryIndexAddGeneratesID(t *testing.T) {
	idx := NewMemoryIndex()

	id, err := idx.Add(context.Background(), Prescription{PatientID: "PAT_1", Medication: "Trimethoprim"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}
