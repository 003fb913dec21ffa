package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/liut/campus-assistant/pkg/models/chat"
	"github.com/liut/campus-assistant/pkg/services/stores"
)

const (
	DefaultHistoryLimit = 20
	DefaultPersistDelay = 500 * time.Millisecond

	persistTimeout = 5 * time.Second
)

// Sink receives the messages of a reply in order
type Sink interface {
	Append(msg chat.Message)
}

// Transcript is the message store behind the visible chat. It is append-only,
// mirrored to the conversation storage a short while after each change.
type Transcript struct {
	mu      sync.Mutex
	msgs    chat.Messages
	timer   *time.Timer
	closed  bool
	dirty   bool
	welcome chat.Message

	saveMu sync.Mutex // serializes writes
	cs     stores.Conversation
	delay  time.Duration
}

var _ Sink = (*Transcript)(nil)

func NewTranscript(cs stores.Conversation, welcome chat.Message, delay time.Duration) *Transcript {
	if delay <= 0 {
		delay = DefaultPersistDelay
	}
	return &Transcript{cs: cs, welcome: welcome, delay: delay}
}

// Append never blocks on storage. Writes scheduled within the delay coalesce.
func (t *Transcript) Append(msg chat.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = append(t.msgs, msg)
	t.dirty = true
	if t.closed {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		_ = t.persist(ctx)
	})
}

// Messages returns a copy in insertion order
func (t *Transcript) Messages() chat.Messages {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(chat.Messages, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.msgs)
}

// LoadRecent replaces the messages with the last limit saved ones. Absent or
// broken data gives the welcome message alone, errors are only logged.
func (t *Transcript) LoadRecent(ctx context.Context, limit int) chat.Messages {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var msgs chat.Messages
	recs, err := t.cs.LoadRecords(ctx)
	if err != nil {
		logger().Infow("load history fail", "key", t.cs.GetKey(), "err", err)
	} else {
		msgs = recs.Recent(limit).Messages()
	}
	if len(msgs) == 0 {
		msgs = chat.Messages{t.welcome}
	}

	t.mu.Lock()
	t.stopLocked()
	t.msgs = msgs
	t.dirty = false
	t.mu.Unlock()
	return t.Messages()
}

// Clear drops every message and the saved history, then shows the welcome again.
func (t *Transcript) Clear(ctx context.Context) error {
	t.mu.Lock()
	t.stopLocked()
	t.msgs = chat.Messages{t.welcome}
	t.dirty = false
	t.mu.Unlock()

	t.saveMu.Lock()
	defer t.saveMu.Unlock()
	if err := t.cs.ClearRecords(ctx); err != nil {
		logger().Infow("clear history fail", "key", t.cs.GetKey(), "err", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// Flush writes pending changes at once, cancelling a scheduled write
func (t *Transcript) Flush(ctx context.Context) error {
	t.mu.Lock()
	t.stopLocked()
	t.mu.Unlock()
	return t.persist(ctx)
}

// Close stops scheduling writes, call Flush first to keep the last changes.
func (t *Transcript) Close() {
	t.mu.Lock()
	t.stopLocked()
	t.closed = true
	t.mu.Unlock()
}

func (t *Transcript) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Transcript) persist(ctx context.Context) error {
	t.saveMu.Lock()
	defer t.saveMu.Unlock()
	t.mu.Lock()
	if !t.dirty {
		t.mu.Unlock()
		return nil
	}
	recs := t.msgs.Records()
	t.dirty = false
	t.mu.Unlock()

	if err := t.cs.SaveRecords(ctx, recs); err != nil {
		logger().Infow("persist transcript fail", "key", t.cs.GetKey(), "err", err)
		t.mu.Lock()
		t.dirty = true
		t.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}
