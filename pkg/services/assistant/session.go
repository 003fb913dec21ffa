package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liut/campus-assistant/pkg/models/chat"
	"github.com/liut/campus-assistant/pkg/services/markup"
	"github.com/liut/campus-assistant/pkg/services/stores"
)

type State string

const (
	StateIdle     State = "idle"
	StateAwaiting State = "awaiting-response"
)

// Predictor asks the backend
type Predictor interface {
	Predict(ctx context.Context, question string) (chat.Payload, error)
}

type EventType string

const (
	EventLoader     EventType = "loader"
	EventEntry      EventType = "entry"
	EventLoaderDone EventType = "loader-done"
)

// Event is a change of the visible transcript
type Event struct {
	Type  EventType  `json:"type"`
	Entry chat.Entry `json:"entry"`
}

// Observer sees the events of one submission in causal order
type Observer func(Event)

type Config struct {
	Predictor    Predictor
	Renderer     markup.Renderer
	View         MapView
	Conversation stores.Conversation
	Preset       *chat.Preset
	HistoryLimit int
	PersistDelay time.Duration
}

// Session is one chat: its transcript, map view and request state.
type Session struct {
	mu     sync.Mutex
	state  State
	loader string

	predictor  Predictor
	view       MapView
	limit      int
	transcript *Transcript
	dispatcher *Dispatcher
	cs         stores.Conversation
}

func NewSession(cfg Config) *Session {
	if cfg.Renderer == nil {
		cfg.Renderer = markup.New()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	welcome := MarkdownMessage(cfg.Renderer, cfg.Preset.WelcomeText(), "")
	return &Session{
		state:      StateIdle,
		predictor:  cfg.Predictor,
		view:       cfg.View,
		limit:      cfg.HistoryLimit,
		transcript: NewTranscript(cfg.Conversation, welcome, cfg.PersistDelay),
		dispatcher: NewDispatcher(cfg.Renderer),
		cs:         cfg.Conversation,
	}
}

func (s *Session) ID() string { return s.cs.GetID() }

func (s *Session) Transcript() *Transcript { return s.transcript }

func (s *Session) View() MapView { return s.view }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loader returns the id of the shown loader entry
func (s *Session) Loader() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loader, len(s.loader) > 0
}

// Entries renders the whole transcript
func (s *Session) Entries() chat.Entries {
	return RenderEntries(s.transcript.Messages())
}

// Restore loads the recent saved messages
func (s *Session) Restore(ctx context.Context) chat.Entries {
	return RenderEntries(s.transcript.LoadRecent(ctx, s.limit))
}

// Clear removes the history and the map route, the welcome message is shown again.
func (s *Session) Clear(ctx context.Context) (chat.Entries, error) {
	err := s.transcript.Clear(ctx)
	if s.view != nil {
		if verr := s.view.ClearMap(ctx); verr != nil {
			logger().Infow("clear map fail", "err", verr)
		}
	}
	return s.Entries(), err
}

func (s *Session) SwitchTravelMode(ctx context.Context, mode chat.TravelMode) error {
	if s.view == nil {
		return nil
	}
	return callView(func() error {
		return s.view.SwitchTravelMode(ctx, chat.ParseTravelMode(string(mode)))
	})
}

// Submit sends the text and shows the reply. Blank text does nothing. Failures
// become error entries, only a submission during another one is refused with ErrBusy.
// The entries added by this submission are returned, the loader excluded.
func (s *Session) Submit(ctx context.Context, text string, obs Observer) (chat.Entries, error) {
	question := strings.TrimSpace(text)
	if len(question) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	if s.state == StateAwaiting {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.state = StateAwaiting
	loaderID := "loader-" + uuid.NewString()
	s.loader = loaderID
	s.mu.Unlock()

	rec := &recorder{t: s.transcript, obs: obs}
	rec.Append(chat.Message{Role: chat.RoleUser, Content: question})
	rec.emit(Event{Type: EventLoader, Entry: LoaderEntry(loaderID)})

	defer func() {
		s.mu.Lock()
		s.loader = ""
		s.state = StateIdle
		s.mu.Unlock()
		rec.emit(Event{Type: EventLoaderDone, Entry: LoaderEntry(loaderID)})
	}()

	payload, err := s.predictor.Predict(ctx, question)
	if err != nil {
		logger().Infow("predict fail", "csid", s.ID(), "kind", errorKind(err), "err", err)
		rec.Append(ErrorMessage(msgRequestFailed + err.Error()))
		return rec.entries, nil
	}

	if err = s.dispatch(ctx, payload, rec); err != nil {
		logger().Infow("dispatch fail", "csid", s.ID(), "err", err)
		rec.Append(ErrorMessage(msgRequestFailed + err.Error()))
	}
	return rec.entries, nil
}

func (s *Session) dispatch(ctx context.Context, p chat.Payload, out Sink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRender, r)
		}
	}()
	kind := s.dispatcher.Dispatch(ctx, p, out, s.view)
	logger().Debugw("dispatched", "csid", s.ID(), "kind", kind)
	return
}

// Close writes the pending changes and stops the transcript timer
func (s *Session) Close(ctx context.Context) error {
	err := s.transcript.Flush(ctx)
	s.transcript.Close()
	return err
}

type recorder struct {
	t       *Transcript
	obs     Observer
	entries chat.Entries
}

func (r *recorder) Append(msg chat.Message) {
	r.t.Append(msg)
	e := RenderEntry(msg)
	r.entries = append(r.entries, e)
	r.emit(Event{Type: EventEntry, Entry: e})
}

func (r *recorder) emit(ev Event) {
	if r.obs != nil {
		r.obs(ev)
	}
}
