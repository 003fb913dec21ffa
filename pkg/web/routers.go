package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	staffio "github.com/liut/staffio-client"

	"github.com/liut/campus-assistant/pkg/settings"
)

type M = render.M

// User online user
type User = staffio.User

// vars from staffio
var (
	UserFromContext = staffio.UserFromContext
)

func (s *server) authMw(redir bool) func(next http.Handler) http.Handler {
	if settings.Current.AuthRequired {
		return s.authzr.MiddlewareWordy(redir)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(rw, req)
		})
	}
}

func (s *server) strapRouter() {

	s.ar.Get("/ping", handlerPing)

	s.ar.Route("/auth", func(r chi.Router) {
		r.Get("/login", staffio.LoginHandler)
		r.Get("/logout", staffio.LogoutHandler)
		r.Method(http.MethodGet, "/callback", staffio.AuthCodeCallback())
	})

	s.ar.Route("/api", func(r chi.Router) {
		r.Use(s.authMw(false))
		r.Get("/me", handleMe)
		r.Get("/config", s.getConfig)
		r.Get("/history/{cid}", s.getHistory)
		r.Delete("/history/{cid}", s.deleteHistory)
		r.Post("/travel-mode/{cid}", s.postTravelMode)
		r.Delete("/map/{cid}", s.deleteMap)

		r.Group(func(r chi.Router) {
			r.Use(chatLimiter(settings.Current.ChatRateLimit))
			r.Get("/welcome", s.getWelcome)
			r.Post("/chat", s.postChat)
			r.Post("/chat-sse", s.postChatSSE)
			r.Get("/ws/{cid}", s.serveWS)
		})
	})

	staffio.SetAdminPath("/")
	s.ar.Group(func(r chi.Router) {
		r.Use(s.authMw(true))
		if s.cfg.DocHandler != nil {
			r.Get("/", s.cfg.DocHandler.ServeHTTP)
		}
	})
	if s.cfg.DocHandler != nil {
		s.ar.NotFound(s.cfg.DocHandler.ServeHTTP)
	}
}

func handlerPing(w http.ResponseWriter, r *http.Request) {
	render.Data(w, r, []byte("Pong\n"))
}

func handleMe(w http.ResponseWriter, r *http.Request) {
	if !settings.Current.AuthRequired {
		apiOk(w, r, &User{})
		return
	}
	if user, ok := UserFromContext(r.Context()); ok {
		apiOk(w, r, user)
	} else {
		apiFail(w, r, 401, "not login")
	}
}

func apiFail(w http.ResponseWriter, r *http.Request, status int, err interface{}) {
	res := render.M{
		"status": status,
		"error":  err,
	}
	switch ret := err.(type) {
	case error:
		res["message"] = ret.Error()
		res["error"] = ret.Error()
	case fmt.Stringer:
		res["message"] = ret.String()
	case string, *string, []byte:
		res["message"] = ret
	}
	render.Status(r, status)
	render.JSON(w, r, res)
}

type RespDone struct {
	Status int `json:"status"`
	Data   any `json:"data,omitempty"`
	Count  int `json:"count,omitempty"`
}

func apiOk(w http.ResponseWriter, r *http.Request, args ...any) {
	res := &RespDone{}
	if len(args) > 0 && args[0] != nil {
		res.Data = args[0]
		if len(args) > 1 {
			if c, ok := args[1].(int); ok {
				res.Count = c
			}
		}
	}

	render.JSON(w, r, res)
}
