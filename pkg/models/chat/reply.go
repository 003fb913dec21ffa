package chat

import (
	"github.com/spf13/cast"
)

// IntentNavigation marks a navigation reply
const IntentNavigation = "campus_navigation"

// StatusError is the reply status of a failed navigation
const StatusError = "error"

// Payload is a decoded JSON object returned by the predict endpoint
type Payload map[string]any

// Kind discriminates the reply shapes
type Kind string

const (
	KindNavigation Kind = IntentNavigation
	KindPlain      Kind = "plain"
	KindUnknown    Kind = "unknown"
)

// Reply is a typed view of a Payload
type Reply struct {
	Kind   Kind
	Intent string

	// Body is the value of response or answer for a plain reply,
	// the answer for a navigation reply. Not always a string.
	Body any

	Status  string
	Message string

	Navigation *NavigationData
}

func (r Reply) IsError() bool {
	return r.Status == StatusError
}

// ParseReply classifies a payload, values are coerced loosely since the backend
// is not strict about number and string types.
func ParseReply(p Payload) Reply {
	r := Reply{
		Intent:  cast.ToString(p["intent"]),
		Status:  cast.ToString(p["status"]),
		Message: cast.ToString(p["message"]),
	}
	nav, hasNav := p["navigation_data"]
	hasNav = hasNav && nav != nil

	switch {
	case r.Intent == IntentNavigation, len(r.Intent) == 0 && hasNav:
		r.Kind = KindNavigation
		r.Body = p["answer"]
		if hasNav {
			r.Navigation = ParseNavigation(nav)
		}
	case truthy(p["response"]):
		r.Kind = KindPlain
		r.Body = p["response"]
	case truthy(p["answer"]):
		r.Kind = KindPlain
		r.Body = p["answer"]
	default:
		r.Kind = KindUnknown
	}
	return r
}

// ParseNavigation returns nil when v is not an object
func ParseNavigation(v any) *NavigationData {
	m, err := cast.ToStringMapE(v)
	if err != nil || m == nil {
		return nil
	}
	nd := &NavigationData{
		Start:    parsePlace(m["start"]),
		End:      parsePlace(m["end"]),
		Distance: cast.ToFloat64(m["distance"]),
		Duration: cast.ToFloat64(m["duration"]),
	}
	if s := cast.ToString(m["travel_mode"]); len(s) > 0 {
		nd.TravelMode = ParseTravelMode(s)
	}
	return nd
}

// parsePlace returns nil unless the place carries usable coordinates
func parsePlace(v any) *Place {
	m, err := cast.ToStringMapE(v)
	if err != nil || len(m) == 0 {
		return nil
	}
	ll, ok := ParseLatLng(m["coords"])
	if !ok {
		return nil
	}
	return &Place{Name: cast.ToString(m["name"]), Coords: ll}
}

// ParseLatLng reads a [lat, lon] array
func ParseLatLng(v any) (ll LatLng, ok bool) {
	switch vv := v.(type) {
	case LatLng:
		return vv, true
	case []float64:
		if len(vv) < 2 {
			return
		}
		return LatLng{vv[0], vv[1]}, true
	}
	arr, err := cast.ToSliceE(v)
	if err != nil || len(arr) < 2 {
		return
	}
	for i := 0; i < 2; i++ {
		f, err := cast.ToFloat64E(arr[i])
		if err != nil {
			return ll, false
		}
		ll[i] = f
	}
	return ll, true
}

func truthy(v any) bool {
	switch vv := v.(type) {
	case nil:
		return false
	case string:
		return len(vv) > 0
	case bool:
		return vv
	case float64:
		return vv != 0
	}
	return true
}
