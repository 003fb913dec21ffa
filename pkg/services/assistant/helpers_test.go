package assistant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/liut/campus-assistant/pkg/models/chat"
	"github.com/liut/campus-assistant/pkg/services/markup"
	"github.com/liut/campus-assistant/pkg/services/stores"
)

type predictFunc func(ctx context.Context, q string) (chat.Payload, error)

func (f predictFunc) Predict(ctx context.Context, q string) (chat.Payload, error) {
	return f(ctx, q)
}

func replyWith(p chat.Payload) predictFunc {
	return func(context.Context, string) (chat.Payload, error) { return p, nil }
}

type viewCall struct {
	op    string
	start chat.LatLng
	end   chat.LatLng
	mode  chat.TravelMode
}

type fakeView struct {
	mu    sync.Mutex
	calls []viewCall
	err   error
}

func (v *fakeView) record(c viewCall) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, c)
	return v.err
}

func (v *fakeView) ShowRoute(_ context.Context, start, end chat.LatLng, mode chat.TravelMode) error {
	return v.record(viewCall{op: "route", start: start, end: end, mode: mode})
}

func (v *fakeView) ShowLocation(_ context.Context, at chat.LatLng) error {
	return v.record(viewCall{op: "location", end: at})
}

func (v *fakeView) ClearMap(context.Context) error {
	return v.record(viewCall{op: "clear"})
}

func (v *fakeView) SwitchTravelMode(_ context.Context, mode chat.TravelMode) error {
	return v.record(viewCall{op: "switch", mode: mode})
}

func (v *fakeView) ops() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []string
	for _, c := range v.calls {
		out = append(out, c.op)
	}
	return out
}

type countingRenderer struct {
	markup.Renderer
	calls atomic.Int32
}

func (r *countingRenderer) Render(text string) (string, error) {
	r.calls.Add(1)
	return r.Renderer.Render(text)
}

type brokenRenderer struct{}

func (brokenRenderer) Render(string) (string, error) {
	return "", errors.New("bad markdown")
}

type countingKV struct {
	stores.KV
	sets atomic.Int32
	err  error
}

func (c *countingKV) SetItem(ctx context.Context, key, value string) error {
	c.sets.Add(1)
	if c.err != nil {
		return c.err
	}
	return c.KV.SetItem(ctx, key, value)
}

// sliceSink collects messages
type sliceSink struct {
	msgs chat.Messages
}

func (s *sliceSink) Append(m chat.Message) {
	s.msgs = append(s.msgs, m)
}
