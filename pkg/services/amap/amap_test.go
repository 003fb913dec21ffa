package amap

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liut/campus-assistant/pkg/models/chat"
)

var (
	east = chat.LatLng{31.8427, 117.2544}
	west = chat.LatLng{31.8380, 117.2496}
)

func TestOverlayRoute(t *testing.T) {
	ctx := context.Background()
	o := NewOverlay()
	assert.True(t, o.Hidden())

	require.NoError(t, o.ShowRoute(ctx, east, west, ""))
	cmds := o.Drain()
	require.Len(t, cmds, 2)
	assert.Equal(t, chat.MapClear, cmds[0].Op)
	assert.Equal(t, chat.MapCommand{
		Op:     chat.MapRoute,
		Start:  []float64{117.2544, 31.8427},
		End:    []float64{117.2496, 31.838},
		Mode:   chat.TravelDriving,
		Policy: "LEAST_TIME",
	}, cmds[1])
	assert.False(t, o.Hidden())
	assert.Empty(t, o.Drain())

	mode, ok := o.CurrentMode()
	assert.True(t, ok)
	assert.Equal(t, chat.TravelDriving, mode)

	require.NoError(t, o.SwitchTravelMode(ctx, chat.TravelWalking))
	cmds = o.Drain()
	require.Len(t, cmds, 2)
	assert.Equal(t, chat.TravelWalking, cmds[1].Mode)
	assert.Empty(t, cmds[1].Policy)

	o.Hide()
	assert.True(t, o.Hidden())
	// hiding keeps the route
	_, ok = o.CurrentMode()
	assert.True(t, ok)
}

func TestOverlayLocation(t *testing.T) {
	ctx := context.Background()
	o := NewOverlay()
	require.NoError(t, o.ShowLocation(ctx, chat.LatLng{31.8, 117.2}))
	cmds := o.Drain()
	require.Len(t, cmds, 2)
	assert.Equal(t, chat.MapCommand{Op: chat.MapLocation, At: []float64{117.2, 31.8}, Zoom: 17}, cmds[1])

	// no route to switch
	require.NoError(t, o.SwitchTravelMode(ctx, chat.TravelWalking))
	assert.Empty(t, o.Drain())

	require.NoError(t, o.ClearMap(ctx))
	assert.Equal(t, chat.MapCommands{{Op: chat.MapClear}}, o.Drain())
}

func TestOverlayInvalid(t *testing.T) {
	o := NewOverlay()
	err := o.ShowRoute(context.Background(), east, chat.LatLng{117.2, 31.8}, chat.TravelDriving)
	assert.ErrorIs(t, err, ErrInvalidCoords)
	assert.Empty(t, o.Drain())
}

func TestLinker(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	l := NewLinker(&buf, "campus")

	require.NoError(t, l.ShowRoute(ctx, east, west, chat.TravelWalking))
	assert.Contains(t, buf.String(), "步行路线")
	assert.Contains(t, buf.String(), "from=117.2544,31.8427,")
	assert.Contains(t, buf.String(), "to=117.2496,31.838,")
	assert.Contains(t, buf.String(), "mode=walk")

	buf.Reset()
	require.NoError(t, l.SwitchTravelMode(ctx, chat.TravelDriving))
	assert.Contains(t, buf.String(), "mode=car")

	buf.Reset()
	require.NoError(t, l.ShowLocation(ctx, west))
	assert.Contains(t, buf.String(), "marker?position=117.2496,31.838")

	buf.Reset()
	require.NoError(t, l.SwitchTravelMode(ctx, chat.TravelWalking))
	assert.Empty(t, buf.String())

	assert.ErrorIs(t, l.ShowLocation(ctx, chat.LatLng{91, 0}), ErrInvalidCoords)
}
