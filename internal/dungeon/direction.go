package dungeon

import "strings"

// Direction is a doorway slot code. Codes 0-5 double as the room/chunk
// adjacency directions (N, E, S, W, U, D); 6-13 are the off-center
// doorway positions on the four sides.
type Direction byte

const (
	N Direction = iota
	E
	S
	W
	U
	D
	NNE
	ENE
	ESE
	SSE
	SSW
	WSW
	WNW
	NNW
)

// Invalid is returned for names and codes outside the slot set.
const Invalid Direction = 0xFF

const (
	// DoorwaySlots is the number of doorway positions on a room boundary.
	DoorwaySlots = 14
	// RoomDirections is the number of room/chunk adjacency directions.
	RoomDirections = 6
)

// UP and DOWN alias the vertical directions.
const (
	UP   = U
	DOWN = D
)

var directionNames = [DoorwaySlots]string{
	N:   "N",
	E:   "E",
	S:   "S",
	W:   "W",
	U:   "U",
	D:   "D",
	NNE: "NNE",
	ENE: "ENE",
	ESE: "ESE",
	SSE: "SSE",
	SSW: "SSW",
	WSW: "WSW",
	WNW: "WNW",
	NNW: "NNW",
}

var directionAliases = map[string]Direction{
	"UP":   U,
	"DOWN": D,
}

// Doorway slots on each side, ordered left, center, right when facing the side.
var (
	SideNorth = []Direction{NNW, N, NNE}
	SideEast  = []Direction{ENE, E, ESE}
	SideSouth = []Direction{SSE, S, SSW}
	SideWest  = []Direction{WSW, W, WNW}
	SideUp    = []Direction{U}
	SideDown  = []Direction{D}
)

// DirectionFromName returns the code for a slot name (case-insensitive).
func DirectionFromName(name string) (Direction, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range directionNames {
		if n == name {
			return Direction(i), true
		}
	}
	if d, ok := directionAliases[name]; ok {
		return d, true
	}
	return Invalid, false
}

// DirectionName returns the slot name for a code.
func DirectionName(d Direction) (string, bool) {
	if !IsValidDoorwaySlot(d) {
		return "INVALID", false
	}
	return directionNames[d], true
}

func (d Direction) String() string {
	name, _ := DirectionName(d)
	return name
}

// IsValidRoomDirection reports whether d is one of N, E, S, W, U, D.
func IsValidRoomDirection(d Direction) bool {
	return d < RoomDirections
}

// IsValidChunkDirection reports whether d is one of N, E, S, W.
func IsValidChunkDirection(d Direction) bool {
	return d <= W
}

// IsValidDoorwaySlot reports whether d addresses one of the 14 slots.
func IsValidDoorwaySlot(d Direction) bool {
	return d < DoorwaySlots
}

// Opposite returns the facing direction for a room direction, or Invalid.
func Opposite(d Direction) Direction {
	switch d {
	case N:
		return S
	case S:
		return N
	case E:
		return W
	case W:
		return E
	case U:
		return D
	case D:
		return U
	}
	return Invalid
}

// Side returns the doorway slots that lie on the boundary facing d.
func Side(d Direction) []Direction {
	switch d {
	case N:
		return SideNorth
	case E:
		return SideEast
	case S:
		return SideSouth
	case W:
		return SideWest
	case U:
		return SideUp
	case D:
		return SideDown
	}
	return nil
}

// Doorway marks a traversable slot on a room boundary.
type Doorway struct {
	Direction Direction
}
