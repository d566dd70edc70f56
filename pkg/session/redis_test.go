package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStoreFromClient(client, "test:", 0)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return mr, store
}

func TestRedisStore_GetOrCreateAndGet(t *testing.T) {
	_, store := setupMiniredis(t)
	ctx := context.Background()

	st, err := store.GetOrCreate(ctx, "sess-123", ChannelVoice, "CA0001")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if st.Stage != StageGreeting {
		t.Errorf("stage = %v, want %v", st.Stage, StageGreeting)
	}

	loaded, err := store.Get(ctx, "sess-123")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded.SessionID != "sess-123" {
		t.Errorf("SessionID mismatch: got %s", loaded.SessionID)
	}
	if loaded.Channel != ChannelVoice {
		t.Errorf("Channel mismatch: got %s", loaded.Channel)
	}
	if loaded.Identity.Handle != "CA0001" {
		t.Errorf("Handle mismatch: got %s", loaded.Identity.Handle)
	}
}

func TestRedisStore_Get_NotFound(t *testing.T) {
	_, store := setupMiniredis(t)

	_, err := store.Get(context.Background(), "nonexistent")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRedisStore_GetOrCreate_DoesNotReset(t *testing.T) {
	_, store := setupMiniredis(t)
	ctx := context.Background()

	st, err := store.GetOrCreate(ctx, "sess-1", ChannelMessaging, "+447700900123")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	st.Stage = StageBookingGuidance
	st.AddSymptom("frequent")
	st.Urgent = true
	if err := store.Persist(ctx, "sess-1", st); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	again, err := store.GetOrCreate(ctx, "sess-1", ChannelMessaging, "+447700900123")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if again.Stage != StageBookingGuidance {
		t.Errorf("stage reset: got %v", again.Stage)
	}
	if !again.Urgent {
		t.Error("urgent flag lost across GetOrCreate")
	}
	if len(again.Symptoms) != 1 {
		t.Errorf("symptoms lost: got %v", again.Symptoms)
	}
}

func TestRedisStore_PersistWithoutCreate(t *testing.T) {
	_, store := setupMiniredis(t)

	st := NewState("orphan", ChannelMessaging, "+447700900123")
	err := store.Persist(context.Background(), "orphan", st)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRedisStore_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, "test:", time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	if _, err := store.GetOrCreate(ctx, "sess-ttl", ChannelMessaging, "+447700900123"); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "sess-ttl")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after TTL expiry, got %v", err)
	}
}

func TestRedisStore_Closed(t *testing.T) {
	_, store := setupMiniredis(t)
	_ = store.Close()

	if _, err := store.Get(context.Background(), "x"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
}
