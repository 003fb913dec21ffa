// Package amap holds the map collaborators, each one owns its current route.
package amap

import (
	"errors"
	"fmt"

	"github.com/liut/campus-assistant/pkg/models/chat"
)

const (
	locationZoom  = 17
	drivingPolicy = "LEAST_TIME" // 最快路线
)

var ErrInvalidCoords = errors.New("invalid coordinates")

type route struct {
	start chat.LatLng
	end   chat.LatLng
	mode  chat.TravelMode
}

func checkCoords(lls ...chat.LatLng) error {
	for _, ll := range lls {
		if !ll.Valid() {
			return fmt.Errorf("%w: %s", ErrInvalidCoords, ll)
		}
	}
	return nil
}

func policyOf(mode chat.TravelMode) string {
	if mode == chat.TravelWalking {
		return ""
	}
	return drivingPolicy
}
