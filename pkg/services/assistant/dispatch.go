package assistant

import (
	"context"

	"github.com/liut/campus-assistant/pkg/models/chat"
	"github.com/liut/campus-assistant/pkg/services/markup"
)

// Dispatcher decides how a backend reply is shown, exactly one branch runs per reply.
type Dispatcher struct {
	renderer  markup.Renderer
	presenter *Presenter
}

func NewDispatcher(r markup.Renderer) *Dispatcher {
	return &Dispatcher{renderer: r, presenter: NewPresenter(r)}
}

func (d *Dispatcher) Dispatch(ctx context.Context, p chat.Payload, out Sink, view MapView) chat.Kind {
	r := chat.ParseReply(p)
	switch r.Kind {
	case chat.KindNavigation:
		d.dispatchNavigation(ctx, r, out, view)
	case chat.KindPlain:
		out.Append(MarkdownMessage(d.renderer, r.Body, ""))
	default:
		logger().Infow("unknown reply", "keys", payloadKeys(p))
		out.Append(ErrorMessage(msgUnknownReply))
	}
	return r.Kind
}

func (d *Dispatcher) dispatchNavigation(ctx context.Context, r chat.Reply, out Sink, view MapView) {
	out.Append(MarkdownMessage(d.renderer, r.Body, ""))

	if r.IsError() {
		out.Append(ErrorMessage(msgNavError + r.Message))
		return
	}
	if r.Navigation != nil {
		d.presenter.Present(ctx, r.Navigation, out, view)
	}
}

func payloadKeys(p chat.Payload) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	return keys
}
