package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/liut/campus-assistant/pkg/models/chat"
	"github.com/liut/campus-assistant/pkg/services/amap"
	"github.com/liut/campus-assistant/pkg/services/assistant"
	"github.com/liut/campus-assistant/pkg/services/markup"
	"github.com/liut/campus-assistant/pkg/services/stores"
	"github.com/liut/campus-assistant/pkg/settings"
)

var errInvalidCID = errors.New("invalid conversation id")

const sessionIdle = 30 * time.Minute

// chatSession is a session and the map overlay it draws on
type chatSession struct {
	*assistant.Session
	overlay *amap.Overlay

	mu     sync.Mutex
	used   time.Time
	leases int // open connections
}

func (cs *chatSession) touch(now time.Time) {
	cs.mu.Lock()
	cs.used = now
	cs.mu.Unlock()
}

// acquire pins the session while a connection holds it
func (cs *chatSession) acquire() {
	cs.mu.Lock()
	cs.leases++
	cs.mu.Unlock()
}

func (cs *chatSession) release(now time.Time) {
	cs.mu.Lock()
	if cs.leases > 0 {
		cs.leases--
	}
	cs.used = now
	cs.mu.Unlock()
}

// idleFor reports whether nobody held or used the session for longer than ttl
func (cs *chatSession) idleFor(now time.Time, ttl time.Duration) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.leases == 0 && now.Sub(cs.used) > ttl
}

// registry holds the live sessions by conversation id
type registry struct {
	mu    sync.Mutex
	items map[string]*chatSession

	kv        stores.KV
	predictor assistant.Predictor
	renderer  markup.Renderer
	preset    *chat.Preset
}

func newRegistry(kv stores.KV, p assistant.Predictor, r markup.Renderer, preset *chat.Preset) *registry {
	return &registry{
		items:     make(map[string]*chatSession),
		kv:        kv,
		predictor: p,
		renderer:  r,
		preset:    preset,
	}
}

// get returns the session of cid, restoring it from the history on first use.
func (rg *registry) get(ctx context.Context, cid string) (*chatSession, error) {
	id, ok := stores.CastConversationID(cid)
	if !ok {
		return nil, errInvalidCID
	}
	now := time.Now()

	if cs, ok := rg.lookup(id, now); ok {
		return cs, nil
	}

	// restoring reads the store, keep it out of the lock
	overlay := amap.NewOverlay()
	sess := assistant.NewSession(assistant.Config{
		Predictor:    rg.predictor,
		Renderer:     rg.renderer,
		View:         overlay,
		Conversation: stores.NewConversation(rg.kv, id),
		Preset:       rg.preset,
		HistoryLimit: settings.Current.HistoryLimit,
		PersistDelay: settings.Current.PersistDelay,
	})
	sess.Restore(ctx)
	cs := &chatSession{Session: sess, overlay: overlay, used: now}

	rg.mu.Lock()
	if cur, ok := rg.items[id]; ok {
		rg.mu.Unlock()
		// lost the race, the history is the same
		_ = sess.Close(ctx)
		cur.touch(now)
		return cur, nil
	}
	rg.items[id] = cs
	live := len(rg.items)
	rg.mu.Unlock()
	logger().Debugw("session created", "cid", id, "live", live)
	return cs, nil
}

func (rg *registry) lookup(id string, now time.Time) (*chatSession, bool) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	cs, ok := rg.items[id]
	if ok {
		cs.touch(now)
	}
	return cs, ok
}

func (rg *registry) size() int {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	return len(rg.items)
}

// sweep closes the sessions idle longer than ttl, busy or connected ones are kept.
func (rg *registry) sweep(ctx context.Context, ttl time.Duration) int {
	now := time.Now()
	var stale []*chatSession
	rg.mu.Lock()
	for id, cs := range rg.items {
		if cs.State() == assistant.StateIdle && cs.idleFor(now, ttl) {
			stale = append(stale, cs)
			delete(rg.items, id)
		}
	}
	rg.mu.Unlock()

	for _, cs := range stale {
		if err := cs.Close(ctx); err != nil {
			logger().Infow("close session fail", "cid", cs.ID(), "err", err)
		}
	}
	if len(stale) > 0 {
		logger().Infow("swept sessions", "count", len(stale))
	}
	return len(stale)
}

// closeAll flushes every session, used on shutdown
func (rg *registry) closeAll(ctx context.Context) {
	rg.mu.Lock()
	items := rg.items
	rg.items = make(map[string]*chatSession)
	rg.mu.Unlock()

	for _, cs := range items {
		if err := cs.Close(ctx); err != nil {
			logger().Infow("close session fail", "cid", cs.ID(), "err", err)
		}
	}
}
