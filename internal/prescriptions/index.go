// Package prescriptions provides prescription lookup scoped to a
// patient. Search is relevance-ranked; results are ordered best first.
package prescriptions

import (
	"context"
	"time"
)

// Prescription is one dispensed item on a patient's record.
type Prescription struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patientId"`
	Medication   string    `json:"medication"`
	Dosage       string    `json:"dosage"`
	Instructions string    `json:"instructions"`
	IssuedAt     time.Time `json:"issuedAt"`
}

// Index searches and stores prescriptions.
// Implementations must be safe for concurrent use.
type Index interface {
	// Search returns up to limit prescriptions for patientID ranked by
	// relevance to query. An empty result is not an error.
	Search(ctx context.Context, query, patientID string, limit int) ([]Prescription, error)

	// Add stores a prescription and returns its id.
	Add(ctx context.Context, p Prescription) (string, error)
}
