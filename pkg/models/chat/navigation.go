package chat

import (
	"math"
	"strconv"
)

type TravelMode string

const (
	TravelDriving TravelMode = "driving"
	TravelWalking TravelMode = "walking"
)

// ParseTravelMode 未知的出行方式按驾车处理
func ParseTravelMode(s string) TravelMode {
	if TravelMode(s) == TravelWalking {
		return TravelWalking
	}
	return TravelDriving
}

// Label is the display name of the mode
func (m TravelMode) Label() string {
	if m == TravelWalking {
		return "步行"
	}
	return "驾车"
}

// LatLng is a coordinate pair in [latitude, longitude] order.
type LatLng [2]float64

func (ll LatLng) Lat() float64 { return ll[0] }
func (ll LatLng) Lng() float64 { return ll[1] }

// LngLat returns the axis order used by AMap.
func (ll LatLng) LngLat() []float64 {
	return []float64{ll[1], ll[0]}
}

func (ll LatLng) Valid() bool {
	lat, lng := ll[0], ll[1]
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func (ll LatLng) String() string {
	return strconv.FormatFloat(ll[0], 'f', -1, 64) + ", " + strconv.FormatFloat(ll[1], 'f', -1, 64)
}

// Place is a named navigation endpoint
type Place struct {
	Name   string `json:"name"`
	Coords LatLng `json:"coords"`
}

// NavigationData 后端返回的导航数据，只读一次，不做结构化保存
type NavigationData struct {
	Start *Place `json:"start,omitempty"`
	End   *Place `json:"end,omitempty"`
	// empty when the backend did not say
	TravelMode TravelMode `json:"travel_mode,omitempty"`
	// meters
	Distance float64 `json:"distance,omitempty"`
	// seconds
	Duration float64 `json:"duration,omitempty"`
}

// Mode returns the travel mode, driving by default
func (nd *NavigationData) Mode() TravelMode {
	return ParseTravelMode(string(nd.TravelMode))
}
