package session

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreGetOrCreate(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	st, err := store.GetOrCreate(ctx, "sess-1", ChannelMessaging, "+447700900123")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	if st.Stage != StageGreeting {
		t.Errorf("new session stage = %v, want %v", st.Stage, StageGreeting)
	}
	if st.Identity.Handle != "+447700900123" {
		t.Errorf("handle = %v, want +447700900123", st.Identity.Handle)
	}
	if len(st.Symptoms) != 0 || len(st.MessageLog) != 0 {
		t.Error("new session should have empty symptom set and message log")
	}
}

func TestMemoryStoreGetOrCreateKeepsAccumulatedFields(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	st, err := store.GetOrCreate(ctx, "sess-1", ChannelMessaging, "+447700900123")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	st.Stage = StageTriageAssessment
	st.AddSymptom("burning")
	st.AppendMessage(RoleUser, "it burns")
	if err := store.Persist(ctx, "sess-1", st); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	again, err := store.GetOrCreate(ctx, "sess-1", ChannelMessaging, "+447700900123")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	if again.Stage != StageTriageAssessment {
		t.Errorf("stage reset by GetOrCreate: got %v, want %v", again.Stage, StageTriageAssessment)
	}
	if len(again.Symptoms) != 1 || again.Symptoms[0] != "burning" {
		t.Errorf("symptoms reset by GetOrCreate: got %v", again.Symptoms)
	}
	if len(again.MessageLog) != 1 {
		t.Errorf("message log reset by GetOrCreate: got %d entries", len(again.MessageLog))
	}
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want %v", err, ErrSessionNotFound)
	}
}

func TestMemoryStorePersistWithoutCreate(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()

	st := NewState("orphan", ChannelVoice, "+447700900999")
	err := store.Persist(context.Background(), "orphan", st)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Persist() error = %v, want %v", err, ErrSessionNotFound)
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	st, err := store.GetOrCreate(ctx, "sess-1", ChannelMessaging, "+447700900123")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	// Mutating the returned copy must not leak into the store.
	st.AddSymptom("fever")

	stored, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(stored.Symptoms) != 0 {
		t.Errorf("store leaked caller mutation: symptoms = %v", stored.Symptoms)
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Close()

	if _, err := store.Get(context.Background(), "x"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Get() after Close error = %v, want %v", err, ErrStoreClosed)
	}
}
