package directory

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryDirectoryGetNotFound(t *testing.T) {
	d := NewMemoryDirectory()

	_, err := d.Get(context.Background(), "+447700900000")
	if !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("Get() error = %v, want %v", err, ErrPatientNotFound)
	}
}

func TestMemoryDirectoryUpsertAndGet(t *testing.T) {
	d := NewMemoryDirectory()
	ctx := context.Background()

	id, err := d.Upsert(ctx, "+447700900123", Patient{
		PatientID:   "PAT_900123",
		Name:        "John Smith",
		DateOfBirth: "1990-01-01",
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if id != "PAT_900123" {
		t.Errorf("Upsert() id = %v, want PAT_900123", id)
	}

	p, err := d.Get(ctx, "+447700900123")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Name != "John Smith" {
		t.Errorf("Name = %v, want John Smith", p.Name)
	}
	if p.Handle != "+447700900123" {
		t.Errorf("Handle = %v, want the upsert key", p.Handle)
	}
}

func TestMemoryDirectoryUpsertKeepsID(t *testing.T) {
	d := NewMemoryDirectory()
	ctx := context.Background()

	first, err := d.Upsert(ctx, "+447700900123", Patient{Name: "John Smith"})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if first == "" {
		t.Fatal("Upsert() should generate an id when none is supplied")
	}

	// Replacing the record must not mint a new identity.
	second, err := d.Upsert(ctx, "+447700900123", Patient{PatientID: "PAT_other", Name: "John A Smith"})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if second != first {
		t.Errorf("Upsert() changed patient id: %v -> %v", first, second)
	}
}
