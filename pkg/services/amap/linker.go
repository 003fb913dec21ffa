package amap

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync"

	"github.com/liut/campus-assistant/pkg/models/chat"
)

const uriBase = "https://uri.amap.com"

// Linker prints AMap web links for terminals.
type Linker struct {
	mu      sync.Mutex
	w       io.Writer
	src     string
	current *route
}

func NewLinker(w io.Writer, src string) *Linker {
	return &Linker{w: w, src: src}
}

func lngLat(ll chat.LatLng) string {
	return strconv.FormatFloat(ll.Lng(), 'f', -1, 64) + "," + strconv.FormatFloat(ll.Lat(), 'f', -1, 64)
}

// RouteURL returns the navigation link between two points
func RouteURL(start, end chat.LatLng, mode chat.TravelMode, src string) string {
	m := "car"
	if mode == chat.TravelWalking {
		m = "walk"
	}
	return fmt.Sprintf("%s/navigation?from=%s,%s&to=%s,%s&mode=%s&coordinate=gaode&callnative=0&src=%s",
		uriBase, lngLat(start), url.QueryEscape("起点"), lngLat(end), url.QueryEscape("终点"), m, url.QueryEscape(src))
}

// MarkerURL returns the link of a single location
func MarkerURL(at chat.LatLng, src string) string {
	return fmt.Sprintf("%s/marker?position=%s&name=%s&coordinate=gaode&callnative=0&src=%s",
		uriBase, lngLat(at), url.QueryEscape("目的地"), url.QueryEscape(src))
}

func (l *Linker) ShowRoute(_ context.Context, start, end chat.LatLng, mode chat.TravelMode) error {
	if err := checkCoords(start, end); err != nil {
		return err
	}
	mode = chat.ParseTravelMode(string(mode))
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = &route{start: start, end: end, mode: mode}
	_, err := fmt.Fprintf(l.w, "🗺  %s路线: %s\n", mode.Label(), RouteURL(start, end, mode, l.src))
	return err
}

func (l *Linker) ShowLocation(_ context.Context, at chat.LatLng) error {
	if err := checkCoords(at); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = nil
	_, err := fmt.Fprintf(l.w, "📍 目的地: %s\n", MarkerURL(at, l.src))
	return err
}

func (l *Linker) ClearMap(_ context.Context) error {
	l.mu.Lock()
	l.current = nil
	l.mu.Unlock()
	return nil
}

func (l *Linker) SwitchTravelMode(ctx context.Context, mode chat.TravelMode) error {
	l.mu.Lock()
	cur := l.current
	l.mu.Unlock()
	if cur == nil {
		return nil
	}
	return l.ShowRoute(ctx, cur.start, cur.end, mode)
}
