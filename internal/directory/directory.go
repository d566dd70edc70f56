// Package directory stores patient records keyed by contact handle
// (phone number or call identifier).
package directory

import (
	"context"
	"errors"
)

// ErrPatientNotFound is returned when no record exists for a handle.
var ErrPatientNotFound = errors.New("patient not found")

// Patient is the stored record for one person.
type Patient struct {
	PatientID         string `json:"patientId"`
	Name              string `json:"name"`
	DateOfBirth       string `json:"dateOfBirth"`
	Handle            string `json:"handle"`
	PreferredLanguage string `json:"preferredLanguage,omitempty"`
	MedicalHistory    string `json:"medicalHistory,omitempty"`
}

// Directory resolves and registers patients by handle.
// Implementations must be safe for concurrent use.
type Directory interface {
	// Get retrieves the patient registered under handle.
	// Returns ErrPatientNotFound if no record exists.
	Get(ctx context.Context, handle string) (*Patient, error)

	// Upsert creates or replaces the record under handle and returns the
	// stored patient id. An existing record keeps its id.
	Upsert(ctx context.Context, handle string, p Patient) (string, error)
}
