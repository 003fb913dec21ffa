package assistant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liut/campus-assistant/pkg/models/chat"
	"github.com/liut/campus-assistant/pkg/services/markup"
	"github.com/liut/campus-assistant/pkg/services/predict"
	"github.com/liut/campus-assistant/pkg/services/stores"
)

func newTestSession(p Predictor, kv stores.KV, view MapView) *Session {
	s := NewSession(Config{
		Predictor:    p,
		Renderer:     markup.New(),
		View:         view,
		Conversation: stores.NewConversation(kv, "test"),
		PersistDelay: time.Hour,
	})
	s.Restore(context.Background())
	return s
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) observe(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []EventType
	for _, ev := range l.events {
		out = append(out, ev.Type)
	}
	return out
}

func TestSubmitBlankIsNoop(t *testing.T) {
	var called bool
	p := predictFunc(func(context.Context, string) (chat.Payload, error) {
		called = true
		return nil, nil
	})
	s := newTestSession(p, stores.NewMemoryKV(), &fakeView{})
	defer s.Close(context.Background())

	for _, text := range []string{"", "   ", "\t\n"} {
		entries, err := s.Submit(context.Background(), text, nil)
		assert.NoError(t, err)
		assert.Nil(t, entries)
	}
	assert.False(t, called)
	assert.Equal(t, 1, s.Transcript().Len())
	assert.Equal(t, StateIdle, s.State())
}

func TestSubmitUserMessageBeforeRequest(t *testing.T) {
	var s *Session
	p := predictFunc(func(_ context.Context, q string) (chat.Payload, error) {
		assert.Equal(t, "去图书馆", q)
		msgs := s.Transcript().Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, chat.Message{Role: chat.RoleUser, Content: "去图书馆"}, msgs[1])
		assert.Equal(t, StateAwaiting, s.State())
		_, ok := s.Loader()
		assert.True(t, ok)
		return chat.Payload{"response": "好的"}, nil
	})
	s = newTestSession(p, stores.NewMemoryKV(), &fakeView{})
	defer s.Close(context.Background())

	entries, err := s.Submit(context.Background(), "  去图书馆 ", nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, chat.RoleUser, entries[0].Role)
	assert.Equal(t, chat.EntryMarkup, entries[1].Kind)
	assert.Equal(t, 3, s.Transcript().Len())
}

func TestSubmitLoaderLifecycle(t *testing.T) {
	cases := []struct {
		name string
		p    Predictor
	}{
		{"success", replyWith(chat.Payload{"answer": "ok"})},
		{"failure", predictFunc(func(context.Context, string) (chat.Payload, error) {
			return nil, predict.ErrNetwork
		})},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := newTestSession(c.p, stores.NewMemoryKV(), &fakeView{})
			defer s.Close(context.Background())

			log := &eventLog{}
			_, err := s.Submit(context.Background(), "hi", log.observe)
			require.NoError(t, err)

			assert.Equal(t, []EventType{EventEntry, EventLoader, EventEntry, EventLoaderDone}, log.types())
			assert.Equal(t, log.events[1].Entry.ID, log.events[3].Entry.ID)
			assert.Equal(t, chat.EntryLoader, log.events[1].Entry.Kind)

			_, ok := s.Loader()
			assert.False(t, ok)
			assert.Equal(t, StateIdle, s.State())
			for _, e := range s.Entries() {
				assert.NotEqual(t, chat.EntryLoader, e.Kind)
			}
		})
	}
}

func TestSubmitRequestFailure(t *testing.T) {
	view := &fakeView{}
	p := predictFunc(func(context.Context, string) (chat.Payload, error) {
		return nil, &predict.StatusError{Code: 500}
	})
	s := newTestSession(p, stores.NewMemoryKV(), view)
	defer s.Close(context.Background())

	entries, err := s.Submit(context.Background(), "hi", nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "message error-message", entries[1].Class)
	assert.Equal(t, "请求失败: API请求失败: 500", entries[1].Body)
	assert.Empty(t, view.calls)
}

func TestSubmitBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	p := predictFunc(func(context.Context, string) (chat.Payload, error) {
		close(started)
		<-release
		return chat.Payload{"response": "done"}, nil
	})
	s := newTestSession(p, stores.NewMemoryKV(), &fakeView{})
	defer s.Close(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "first", nil)
		done <- err
	}()
	<-started

	entries, err := s.Submit(context.Background(), "second", nil)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Nil(t, entries)

	close(release)
	require.NoError(t, <-done)

	var users int
	for _, m := range s.Transcript().Messages() {
		if m.Role == chat.RoleUser {
			users++
			assert.Equal(t, "first", m.Content)
		}
	}
	assert.Equal(t, 1, users)
	assert.Equal(t, StateIdle, s.State())
}

func TestSubmitNavigation(t *testing.T) {
	view := &fakeView{}
	s := newTestSession(replyWith(navPayload()), stores.NewMemoryKV(), view)
	defer s.Close(context.Background())

	entries, err := s.Submit(context.Background(), "怎么去西区", nil)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Contains(t, entries[2].Class, chat.ClassRouteInfo)
	assert.Equal(t, []string{"route"}, view.ops())

	require.NoError(t, s.SwitchTravelMode(context.Background(), "driving"))
	assert.Equal(t, []string{"route", "switch"}, view.ops())
	assert.Equal(t, chat.TravelDriving, view.calls[1].mode)
}

func TestSessionRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := stores.NewMemoryKV()
	s := newTestSession(replyWith(chat.Payload{"response": "**好**"}), kv, &fakeView{})
	_, err := s.Submit(ctx, "q1", nil)
	require.NoError(t, err)
	_, err = s.Submit(ctx, "<b>q2</b>", nil)
	require.NoError(t, err)
	want := s.Entries()
	require.NoError(t, s.Close(ctx))

	s2 := newTestSession(nil, kv, &fakeView{})
	defer s2.Close(ctx)
	if diff := cmp.Diff(want, s2.Entries()); diff != "" {
		t.Errorf("restored entries mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "<b>q2</b>", s2.Entries()[3].Body)
	assert.Equal(t, chat.EntryText, s2.Entries()[3].Kind)
}

func TestSessionClear(t *testing.T) {
	ctx := context.Background()
	kv := stores.NewMemoryKV()
	view := &fakeView{}
	s := newTestSession(replyWith(chat.Payload{"response": "ok"}), kv, view)
	defer s.Close(ctx)
	_, err := s.Submit(ctx, "q", nil)
	require.NoError(t, err)
	require.NoError(t, s.Transcript().Flush(ctx))

	entries, err := s.Clear(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Body, chat.DefaultWelcome)
	assert.Equal(t, []string{"clear"}, view.ops())

	_, err = kv.GetItem(ctx, s.Transcript().cs.GetKey())
	assert.ErrorIs(t, err, stores.ErrNoItem)
}
