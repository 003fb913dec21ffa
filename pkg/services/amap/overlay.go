package amap

import (
	"context"
	"sync"

	"github.com/liut/campus-assistant/pkg/models/chat"
)

// Overlay records map commands of one session for the browser to replay with the AMap SDK.
type Overlay struct {
	mu      sync.Mutex
	pending chat.MapCommands
	current *route
	hidden  bool
}

func NewOverlay() *Overlay {
	return &Overlay{hidden: true}
}

func (o *Overlay) ShowRoute(_ context.Context, start, end chat.LatLng, mode chat.TravelMode) error {
	if err := checkCoords(start, end); err != nil {
		return err
	}
	mode = chat.ParseTravelMode(string(mode))
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clearLocked()
	o.current = &route{start: start, end: end, mode: mode}
	o.hidden = false
	o.pending = append(o.pending, chat.MapCommand{
		Op:     chat.MapRoute,
		Start:  start.LngLat(),
		End:    end.LngLat(),
		Mode:   mode,
		Policy: policyOf(mode),
	})
	return nil
}

func (o *Overlay) ShowLocation(_ context.Context, at chat.LatLng) error {
	if err := checkCoords(at); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clearLocked()
	o.hidden = false
	o.pending = append(o.pending, chat.MapCommand{
		Op:   chat.MapLocation,
		At:   at.LngLat(),
		Zoom: locationZoom,
	})
	return nil
}

func (o *Overlay) ClearMap(_ context.Context) error {
	o.mu.Lock()
	o.clearLocked()
	o.mu.Unlock()
	return nil
}

func (o *Overlay) clearLocked() {
	o.current = nil
	o.pending = append(o.pending, chat.MapCommand{Op: chat.MapClear})
}

// SwitchTravelMode shows the current route again in another mode, nothing without a route.
func (o *Overlay) SwitchTravelMode(ctx context.Context, mode chat.TravelMode) error {
	o.mu.Lock()
	cur := o.current
	o.mu.Unlock()
	if cur == nil {
		return nil
	}
	return o.ShowRoute(ctx, cur.start, cur.end, mode)
}

// Drain hands out the commands recorded since the last call
func (o *Overlay) Drain() chat.MapCommands {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.pending
	o.pending = nil
	return out
}

// Hide marks the overlay closed. Pending work is not cancelled.
func (o *Overlay) Hide() {
	o.mu.Lock()
	o.hidden = true
	o.mu.Unlock()
}

func (o *Overlay) Hidden() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hidden
}

// CurrentMode returns the mode of the shown route
func (o *Overlay) CurrentMode() (chat.TravelMode, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return "", false
	}
	return o.current.mode, true
}
