package vastu

type LocatedRoom struct {
	MatchedRoom `yaml:",inline"`
	Zone        Zone `json:"location" yaml:"location"`
}

type cell struct{ row, col byte }

var gridZones = map[cell]Zone{
	{'N', 'W'}: NorthWest, {'N', 'C'}: North, {'N', 'E'}: NorthEast,
	{'C', 'W'}: West, {'C', 'C'}: Center, {'C', 'E'}: East,
	{'S', 'W'}: SouthWest, {'S', 'C'}: South, {'S', 'E'}: SouthEast,
}

// Locate places the box center on a 3x3 grid over a width x height image.
// Lower bounds of the middle and last thirds are inclusive.
func Locate(b Box, width, height int) Zone {
	cx, cy := b.Center()
	w, h := float64(width), float64(height)

	var col byte
	switch {
	case cx < w/3:
		col = 'W'
	case cx < 2*w/3:
		col = 'C'
	default:
		col = 'E'
	}
	var row byte
	switch {
	case cy < h/3:
		row = 'N'
	case cy < 2*h/3:
		row = 'C'
	default:
		row = 'S'
	}
	if z, ok := gridZones[cell{row, col}]; ok {
		return z
	}
	return Unknown
}

func LocateRooms(rooms []MatchedRoom, width, height int) []LocatedRoom {
	out := make([]LocatedRoom, len(rooms))
	for i, r := range rooms {
		out[i] = LocatedRoom{MatchedRoom: r, Zone: Locate(r.Box, width, height)}
	}
	return out
}
