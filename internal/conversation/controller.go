package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pharmafirst/careline/internal/observability"
	pkgobs "github.com/pharmafirst/careline/pkg/observability"
	"github.com/pharmafirst/careline/pkg/session"
)

// Controller is the entry point for inbound turns. Turns for different
// sessions run concurrently; turns for the same session are serialized
// by a lock keyed on session id, so the get-modify-persist cycle never
// interleaves.
type Controller struct {
	store session.Store
	table map[session.Stage]Handler

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewController builds a controller and verifies that the dispatch table
// covers the whole stage enumeration.
func NewController(store session.Store, handlers *Handlers) (*Controller, error) {
	table := handlers.Table()
	for _, s := range session.Stages() {
		if table[s] == nil {
			return nil, fmt.Errorf("no handler registered for stage %q", s)
		}
	}
	return &Controller{
		store: store,
		table: table,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (c *Controller) sessionLock(sessionID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[sessionID] = l
	}
	return l
}

// ProcessTurn handles one inbound utterance: obtain state, route, run
// the stage handler, persist, and return the reply plus the new stage.
// The handle is the caller's contact identity (phone number for
// messaging; the From number on voice calls, where the session id is the
// call id).
func (c *Controller) ProcessTurn(ctx context.Context, sessionID string, channel session.Channel, handle, input string) (string, session.Stage, error) {
	lock := c.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ctx, span := observability.StartSpanWithContext(ctx, "conversation.turn", map[string]any{
		"session.id":      sessionID,
		"session.channel": string(channel),
	})
	defer span.End()
	start := time.Now()

	st, err := c.store.GetOrCreate(ctx, sessionID, channel, handle)
	if err != nil {
		span.SetError(err)
		return "", "", fmt.Errorf("get or create session: %w", err)
	}

	st.TurnInput = input
	st.AppendMessage(session.RoleUser, input)

	target := Route(st.Stage, input)
	if st.Urgent {
		// Once urgent, the only reachable stage is end.
		target = session.StageEnd
	}

	handler, ok := c.table[target]
	if !ok {
		// Unmapped targets degrade to the greeting handler rather than
		// failing the turn.
		handler = c.table[session.StageGreeting]
	}
	span.SetAttribute("turn.stage", string(target))

	if err := handler(ctx, st, input); err != nil {
		span.SetError(err)
		return "", "", fmt.Errorf("stage %s: %w", target, err)
	}

	st.UpdatedAt = time.Now().UTC()
	reply, stage := st.TurnReply, st.Stage
	st.TurnInput, st.TurnReply = "", ""

	if err := c.store.Persist(ctx, sessionID, st); err != nil {
		span.SetError(err)
		return "", "", fmt.Errorf("persist session: %w", err)
	}

	pkgobs.RecordTurn(string(channel), string(stage), time.Since(start))
	return reply, stage, nil
}
