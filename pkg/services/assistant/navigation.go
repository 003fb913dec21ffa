package assistant

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/liut/campus-assistant/pkg/models/chat"
	"github.com/liut/campus-assistant/pkg/services/markup"
)

// MapView is the map collaborator, coordinates are given in [lat, lon] order.
type MapView interface {
	ShowRoute(ctx context.Context, start, end chat.LatLng, mode chat.TravelMode) error
	ShowLocation(ctx context.Context, at chat.LatLng) error
	ClearMap(ctx context.Context) error
	SwitchTravelMode(ctx context.Context, mode chat.TravelMode) error
}

// Presenter shows navigation data on the map and as a text summary
type Presenter struct {
	renderer markup.Renderer
}

func NewPresenter(r markup.Renderer) *Presenter {
	return &Presenter{renderer: r}
}

// Present asks the view for a route when both ends are known, a single location
// with only the end. The summary is emitted whatever the view does.
func (p *Presenter) Present(ctx context.Context, nd *chat.NavigationData, out Sink, view MapView) {
	if nd == nil {
		return
	}
	var mapErr error
	if view != nil {
		switch {
		case nd.Start != nil && nd.End != nil:
			mapErr = callView(func() error {
				return view.ShowRoute(ctx, nd.Start.Coords, nd.End.Coords, nd.Mode())
			})
		case nd.End != nil:
			mapErr = callView(func() error {
				return view.ShowLocation(ctx, nd.End.Coords)
			})
		}
	}

	out.Append(MarkdownMessage(p.renderer, Summary(nd), chat.ClassRouteInfo))
	if mapErr != nil {
		logger().Infow("map view fail", "err", mapErr)
		out.Append(ErrorMessage(msgMapFailed + mapErr.Error()))
	}
}

func callView(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrRender, p)
		}
	}()
	return fn()
}

// Summary is the Markdown text of the coordinates, mode, distance and duration.
func Summary(nd *chat.NavigationData) string {
	var sb strings.Builder
	sb.WriteString("**导航坐标信息**\n\n")
	if nd.Start != nil {
		fmt.Fprintf(&sb, "**起点:** %s (%s)\n\n", nd.Start.Name, nd.Start.Coords)
	}
	if nd.End != nil {
		fmt.Fprintf(&sb, "**终点:** %s (%s)", nd.End.Name, nd.End.Coords)
	}
	if len(nd.TravelMode) > 0 {
		sb.WriteString("\n\n**导航模式:** " + nd.Mode().Label())
	}
	if nd.Distance > 0 {
		sb.WriteString("\n\n**距离:** " + FormatDistance(nd.Distance))
	}
	if nd.Duration > 0 {
		sb.WriteString("\n\n**预计时间:** " + FormatDuration(nd.Duration))
	}
	return sb.String()
}

// FormatDistance gives kilometers with one decimal from 1000 meters up, whole meters below.
func FormatDistance(meters float64) string {
	if meters >= 1000 {
		return strconv.FormatFloat(meters/1000, 'f', 1, 64) + " 公里"
	}
	return strconv.FormatFloat(math.Round(meters), 'f', 0, 64) + " 米"
}

// FormatDuration gives minutes, rounded up
func FormatDuration(seconds float64) string {
	return strconv.FormatFloat(math.Ceil(seconds/60), 'f', 0, 64) + " 分钟"
}
