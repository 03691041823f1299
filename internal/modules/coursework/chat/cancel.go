package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/realtime/bus"
)

// Key identifies one chat session.
type Key struct {
	AssignmentID uuid.UUID
	UserID       uuid.UUID
}

func (k Key) String() string { return k.AssignmentID.String() + ":" + k.UserID.String() }

// CancelRegistry tracks the in-flight stream of each session on this instance.
// With a bus, a cancel issued on any instance reaches the one streaming.
type CancelRegistry struct {
	log *logger.Logger
	bus bus.CancelBus

	mu     sync.Mutex
	seq    uint64
	active map[string]activeStream
}

type activeStream struct {
	id     uint64
	cancel context.CancelFunc
}

func NewCancelRegistry(log *logger.Logger, b bus.CancelBus) *CancelRegistry {
	return &CancelRegistry{
		log:    log.With("component", "ChatCancelRegistry"),
		bus:    b,
		active: map[string]activeStream{},
	}
}

// Start subscribes to remote cancels. It is a no-op without a bus.
func (r *CancelRegistry) Start(ctx context.Context) error {
	if r.bus == nil {
		return nil
	}
	return r.bus.StartForwarder(ctx, func(key string) { r.cancelLocal(key) })
}

// Register makes cancel reachable under k. A newer stream for the same
// session cancels the older one. The returned release must be called when the
// stream ends.
func (r *CancelRegistry) Register(k Key, cancel context.CancelFunc) (release func()) {
	key := k.String()
	r.mu.Lock()
	r.seq++
	id := r.seq
	prev, hadPrev := r.active[key]
	r.active[key] = activeStream{id: id, cancel: cancel}
	r.mu.Unlock()
	if hadPrev {
		prev.cancel()
	}
	return func() {
		r.mu.Lock()
		if cur, ok := r.active[key]; ok && cur.id == id {
			delete(r.active, key)
		}
		r.mu.Unlock()
	}
}

// Cancel stops the session's stream here and, when a bus is configured,
// everywhere else. It reports whether a stream was found locally.
func (r *CancelRegistry) Cancel(ctx context.Context, k Key) (bool, error) {
	found := r.cancelLocal(k.String())
	if r.bus != nil {
		if err := r.bus.Publish(ctx, k.String()); err != nil {
			r.log.Warn("Publishing chat cancel failed", "error", err)
			return found, err
		}
	}
	return found, nil
}

func (r *CancelRegistry) cancelLocal(key string) bool {
	r.mu.Lock()
	cur, ok := r.active[key]
	r.mu.Unlock()
	if ok {
		cur.cancel()
	}
	return ok
}
