package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liut/campus-assistant/pkg/models/chat"
	"github.com/liut/campus-assistant/pkg/services/markup"
)

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "1.5 公里", FormatDistance(1500))
	assert.Equal(t, "1.0 公里", FormatDistance(1000))
	assert.Equal(t, "500 米", FormatDistance(500))
	assert.Equal(t, "13 米", FormatDistance(12.6))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "3 分钟", FormatDuration(125))
	assert.Equal(t, "2 分钟", FormatDuration(120))
	assert.Equal(t, "1 分钟", FormatDuration(1))
}

func TestSummary(t *testing.T) {
	nd := &chat.NavigationData{
		Start:      &chat.Place{Name: "东区图书馆", Coords: chat.LatLng{31.8427, 117.2544}},
		End:        &chat.Place{Name: "西区食堂", Coords: chat.LatLng{31.838, 117.2496}},
		TravelMode: chat.TravelWalking,
		Distance:   1500,
		Duration:   125,
	}
	s := Summary(nd)
	assert.Contains(t, s, "**导航坐标信息**")
	assert.Contains(t, s, "**起点:** 东区图书馆 (31.8427, 117.2544)")
	assert.Contains(t, s, "**终点:** 西区食堂 (31.838, 117.2496)")
	assert.Contains(t, s, "**导航模式:** 步行")
	assert.Contains(t, s, "**距离:** 1.5 公里")
	assert.Contains(t, s, "**预计时间:** 3 分钟")

	s = Summary(&chat.NavigationData{End: nd.End, Distance: 500})
	assert.NotContains(t, s, "起点")
	assert.NotContains(t, s, "导航模式")
	assert.NotContains(t, s, "预计时间")
	assert.Contains(t, s, "500 米")
}

func TestPresentPolicy(t *testing.T) {
	east := &chat.Place{Name: "东区", Coords: chat.LatLng{31.8427, 117.2544}}
	west := &chat.Place{Name: "西区", Coords: chat.LatLng{31.838, 117.2496}}
	cases := []struct {
		name string
		nd   chat.NavigationData
		ops  []string
	}{
		{"both", chat.NavigationData{Start: east, End: west}, []string{"route"}},
		{"end only", chat.NavigationData{End: west}, []string{"location"}},
		{"start only", chat.NavigationData{Start: east}, nil},
		{"neither", chat.NavigationData{}, nil},
	}
	p := NewPresenter(markup.New())
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			view := &fakeView{}
			sink := &sliceSink{}
			p.Present(context.Background(), &c.nd, sink, view)
			assert.Equal(t, c.ops, view.ops())
			require.Len(t, sink.msgs, 1)
			assert.Equal(t, chat.ClassRouteInfo, sink.msgs[0].Class)
			assert.True(t, sink.msgs[0].IsMarkup)
		})
	}
}

func TestPresentRouteDefaultsToDriving(t *testing.T) {
	view := &fakeView{}
	nd := &chat.NavigationData{
		Start: &chat.Place{Coords: chat.LatLng{31.84, 117.25}},
		End:   &chat.Place{Coords: chat.LatLng{31.83, 117.24}},
	}
	NewPresenter(markup.New()).Present(context.Background(), nd, &sliceSink{}, view)
	require.Len(t, view.calls, 1)
	assert.Equal(t, chat.TravelDriving, view.calls[0].mode)
	assert.Equal(t, chat.LatLng{31.84, 117.25}, view.calls[0].start)
}

func TestPresentMapFailureKeepsSummary(t *testing.T) {
	view := &fakeView{err: errors.New("sdk not loaded")}
	sink := &sliceSink{}
	nd := &chat.NavigationData{End: &chat.Place{Name: "西区", Coords: chat.LatLng{31.83, 117.24}}}
	NewPresenter(markup.New()).Present(context.Background(), nd, sink, view)

	require.Len(t, sink.msgs, 2)
	assert.Equal(t, chat.ClassRouteInfo, sink.msgs[0].Class)
	assert.True(t, sink.msgs[1].IsError())
	assert.Equal(t, "地图加载失败: sdk not loaded", sink.msgs[1].Content)
}

type panicView struct{ fakeView }

func (*panicView) ShowLocation(context.Context, chat.LatLng) error { panic("boom") }

func TestPresentRecoversViewPanic(t *testing.T) {
	sink := &sliceSink{}
	nd := &chat.NavigationData{End: &chat.Place{Coords: chat.LatLng{31.83, 117.24}}}
	NewPresenter(markup.New()).Present(context.Background(), nd, sink, &panicView{})
	require.Len(t, sink.msgs, 2)
	assert.Contains(t, sink.msgs[1].Content, "boom")
}
