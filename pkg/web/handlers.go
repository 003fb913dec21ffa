package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jpillora/eventsource"
	"github.com/marcsv/go-binder/binder"

	"github.com/liut/campus-assistant/pkg/models/chat"
	"github.com/liut/campus-assistant/pkg/services/assistant"
	"github.com/liut/campus-assistant/pkg/services/stores"
	"github.com/liut/campus-assistant/pkg/settings"
)

const esDone = "[DONE]"

type ChatRequest struct {
	ConversationID string `json:"cid" form:"cid"`
	Prompt         string `json:"prompt" form:"prompt"`
}

type TravelModeRequest struct {
	Mode string `json:"mode" form:"mode"`
}

// ChatResult is the reply of the chat and history apis
type ChatResult struct {
	ConversationID string           `json:"cid"`
	Entries        chat.Entries     `json:"entries"`
	Map            chat.MapCommands `json:"map,omitempty"`
	MapShown       bool             `json:"mapShown"`
}

// result drains the map commands of the session along with its entries
func result(sess *chatSession, entries chat.Entries) *ChatResult {
	if entries == nil {
		entries = chat.Entries{}
	}
	return &ChatResult{
		ConversationID: sess.ID(),
		Entries:        entries,
		Map:            sess.overlay.Drain(),
		MapShown:       !sess.overlay.Hidden(),
	}
}

// Frame is one message of the sse and websocket streams
type Frame struct {
	Type    string           `json:"type"`
	Entry   *chat.Entry      `json:"entry,omitempty"`
	Map     chat.MapCommands `json:"map,omitempty"`
	Message string           `json:"message,omitempty"`
}

const (
	frameMap   = "map"
	frameError = "error"
	frameDone  = "done"
	frameReset = "reset"
)

func eventFrame(ev assistant.Event) *Frame {
	e := ev.Entry
	return &Frame{Type: string(ev.Type), Entry: &e}
}

type AMapConfig struct {
	Key     string    `json:"key"`
	Version string    `json:"version"`
	Center  []float64 `json:"center"` // [lng, lat]
}

type WidgetConfig struct {
	Title       string     `json:"title"`
	Welcome     string     `json:"welcome"`
	Placeholder string     `json:"placeholder"`
	AMap        AMapConfig `json:"amap"`
}

func (s *server) getConfig(w http.ResponseWriter, r *http.Request) {
	apiOk(w, r, &WidgetConfig{
		Title:       s.preset.Title,
		Welcome:     s.preset.WelcomeText(),
		Placeholder: s.preset.Placeholder,
		AMap: AMapConfig{
			Key:     settings.Current.AMapKey,
			Version: settings.Current.AMapVersion,
			Center:  s.preset.MapCenter().LngLat(),
		},
	})
}

func (s *server) getWelcome(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(r.Context(), stores.NewConversationID())
	if err != nil {
		apiFail(w, r, 500, err)
		return
	}
	apiOk(w, r, result(sess, sess.Entries()))
}

func (s *server) getHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(r.Context(), chi.URLParam(r, "cid"))
	if err != nil {
		apiFail(w, r, 400, err)
		return
	}
	entries := sess.Entries()
	if sess.State() == assistant.StateIdle {
		// a reload shows the recent messages only, like a fresh page
		if err = sess.Transcript().Flush(r.Context()); err != nil {
			logger().Infow("flush before restore fail", "cid", sess.ID(), "err", err)
		} else {
			entries = sess.Restore(r.Context())
		}
	}
	apiOk(w, r, result(sess, entries), len(entries))
}

func (s *server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(r.Context(), chi.URLParam(r, "cid"))
	if err != nil {
		apiFail(w, r, 400, err)
		return
	}
	entries, err := sess.Clear(r.Context())
	if err != nil {
		apiFail(w, r, 503, err)
		return
	}
	logger().Infow("history cleared", "cid", sess.ID())
	apiOk(w, r, result(sess, entries))
}

func (s *server) postTravelMode(w http.ResponseWriter, r *http.Request) {
	var param TravelModeRequest
	if err := binder.BindBody(r, &param); err != nil {
		apiFail(w, r, 400, err)
		return
	}
	sess, err := s.sessions.get(r.Context(), chi.URLParam(r, "cid"))
	if err != nil {
		apiFail(w, r, 400, err)
		return
	}
	if err = sess.SwitchTravelMode(r.Context(), chat.TravelMode(param.Mode)); err != nil {
		apiFail(w, r, 400, err)
		return
	}
	mode, _ := sess.overlay.CurrentMode()
	apiOk(w, r, M{"cid": sess.ID(), "mode": mode, "map": sess.overlay.Drain()})
}

// deleteMap closes the map panel of the session, the route stays for a later travel mode switch
func (s *server) deleteMap(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(r.Context(), chi.URLParam(r, "cid"))
	if err != nil {
		apiFail(w, r, 400, err)
		return
	}
	sess.overlay.Hide()
	apiOk(w, r, result(sess, nil))
}

// bindChat reads the request and finds its session, a new one without cid.
func (s *server) bindChat(w http.ResponseWriter, r *http.Request) (*chatSession, string, bool) {
	var param ChatRequest
	if err := binder.BindBody(r, &param); err != nil {
		apiFail(w, r, 400, err)
		return nil, "", false
	}
	cid := param.ConversationID
	if len(cid) == 0 {
		cid = stores.NewConversationID()
	}
	sess, err := s.sessions.get(r.Context(), cid)
	if err != nil {
		apiFail(w, r, 400, err)
		return nil, "", false
	}
	logger().Infow("chat", "cid", sess.ID(), "prompt", param.Prompt, "ip", r.RemoteAddr)
	return sess, param.Prompt, true
}

// submitContext keeps the request going after the client left, the reply still lands in the history.
func submitContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *server) postChat(w http.ResponseWriter, r *http.Request) {
	sess, prompt, ok := s.bindChat(w, r)
	if !ok {
		return
	}
	entries, err := sess.Submit(submitContext(r), prompt, nil)
	if errors.Is(err, assistant.ErrBusy) {
		apiFail(w, r, http.StatusConflict, err)
		return
	}
	apiOk(w, r, result(sess, entries))
}

func (s *server) postChatSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}
	sess, prompt, ok := s.bindChat(w, r)
	if !ok {
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Add("Conversation-ID", sess.ID())

	var idx int
	send := func(m any) {
		idx++
		if writeEvent(w, strconv.Itoa(idx), m) {
			flusher.Flush()
		}
	}

	_, err := sess.Submit(submitContext(r), prompt, func(ev assistant.Event) {
		send(eventFrame(ev))
	})
	if err != nil {
		send(&Frame{Type: frameError, Message: err.Error()})
	} else if cmds := sess.overlay.Drain(); len(cmds) > 0 {
		send(&Frame{Type: frameMap, Map: cmds})
	}
	send(esDone)
}

// writeEvent writes m as one sse event, strings are sent as is
func writeEvent(w io.Writer, id string, m any) bool {
	var b []byte
	var err error
	if s, ok := m.(string); ok {
		b = []byte(s)
	} else {
		b, err = json.Marshal(m)
		if err != nil {
			logger().Infow("json marshal fail", "m", m, "err", err)
			return false
		}
	}

	if err = eventsource.WriteEvent(w, eventsource.Event{
		ID:   id,
		Data: b,
	}); err != nil {
		logger().Infow("eventsource write fail", "err", err)
		return false
	}

	return true
}
