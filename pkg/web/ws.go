package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/liut/campus-assistant/pkg/models/chat"
	"github.com/liut/campus-assistant/pkg/services/assistant"
	"github.com/liut/campus-assistant/pkg/settings"
)

const (
	wsReadLimit = 64 << 10
	wsWriteWait = 10 * time.Second
)

// wsPongWait bounds the silence of a client between frames and pongs
var wsPongWait = 60 * time.Second

// WSRequest is a client frame of the websocket chat
type WSRequest struct {
	Type   string `json:"type"` // prompt, mode, clear, hide
	Prompt string `json:"prompt,omitempty"`
	Mode   string `json:"mode,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		if settings.InDevelop() {
			return true
		}
		origin := r.Header.Get("Origin")
		return len(origin) == 0 || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

func (s *server) serveWS(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(r.Context(), chi.URLParam(r, "cid"))
	if err != nil {
		apiFail(w, r, 400, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger().Infow("ws upgrade fail", "cid", sess.ID(), "err", err)
		return
	}
	defer conn.Close()
	sess.acquire()
	defer func() { sess.release(time.Now()) }()
	logger().Infow("ws connected", "cid", sess.ID(), "ip", r.RemoteAddr)

	conn.SetReadLimit(wsReadLimit)
	pongWait := wsPongWait
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	out := make(chan *Frame, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		wsWriteLoop(conn, out, pongWait*9/10)
	}()
	defer func() {
		close(out)
		<-done
	}()

	ctx := submitContext(r)
	for {
		var req WSRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger().Infow("ws read fail", "cid", sess.ID(), "err", err)
			}
			return
		}
		sess.touch(time.Now())

		err = nil
		switch req.Type {
		case "prompt", "":
			_, err = sess.Submit(ctx, req.Prompt, func(ev assistant.Event) {
				out <- eventFrame(ev)
			})
		case "mode":
			err = sess.SwitchTravelMode(ctx, chat.TravelMode(req.Mode))
		case "clear":
			var entries chat.Entries
			entries, err = sess.Clear(ctx)
			out <- &Frame{Type: frameReset}
			for i := range entries {
				out <- &Frame{Type: string(assistant.EventEntry), Entry: &entries[i]}
			}
		case "hide":
			sess.overlay.Hide()
		default:
			err = errors.New("unknown frame type " + req.Type)
		}
		if err != nil {
			out <- &Frame{Type: frameError, Message: err.Error()}
		}
		if cmds := sess.overlay.Drain(); len(cmds) > 0 {
			out <- &Frame{Type: frameMap, Map: cmds}
		}
		out <- &Frame{Type: frameDone}
		// a reply may outlast the deadline set before it
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func wsWriteLoop(conn *websocket.Conn, out <-chan *Frame, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	var broken bool
	for {
		select {
		case f, ok := <-out:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
				return
			}
			if broken {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(f); err != nil {
				logger().Infow("ws write fail", "err", err)
				broken = true
			}
		case <-ticker.C:
			if broken {
				continue
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				broken = true
			}
		}
	}
}
