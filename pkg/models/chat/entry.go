package chat

// EntryKind tells the adapter how to put Body on screen
type EntryKind string

const (
	EntryText   EntryKind = "text"
	EntryMarkup EntryKind = "markup"
	EntryLoader EntryKind = "loader"
)

// Entry is a render instruction for one visible transcript row.
type Entry struct {
	ID    string    `json:"id,omitempty"`
	Role  Role      `json:"role"`
	Kind  EntryKind `json:"kind"`
	Class string    `json:"class"` // css classes
	Body  string    `json:"body"`
}

type Entries []Entry

// MapOp is an operation of the map overlay
type MapOp string

const (
	MapClear    MapOp = "clear"
	MapRoute    MapOp = "route"
	MapLocation MapOp = "location"
)

// MapCommand is a map instruction for the browser, coordinates are in [lng, lat] order.
type MapCommand struct {
	Op     MapOp      `json:"op"`
	Start  []float64  `json:"start,omitempty"`
	End    []float64  `json:"end,omitempty"`
	At     []float64  `json:"at,omitempty"`
	Mode   TravelMode `json:"mode,omitempty"`
	Policy string     `json:"policy,omitempty"`
	Zoom   int        `json:"zoom,omitempty"`
}

type MapCommands []MapCommand
