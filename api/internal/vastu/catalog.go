package vastu

import (
	"errors"
	"fmt"
	"strings"
)

type Zone string

const (
	North     Zone = "N"
	NorthEast Zone = "NE"
	East      Zone = "E"
	SouthEast Zone = "SE"
	South     Zone = "S"
	SouthWest Zone = "SW"
	West      Zone = "W"
	NorthWest Zone = "NW"
	Center    Zone = "Center"
	Unknown   Zone = "Unknown"
)

// compass zones a rule may name; Center and Unknown are classifier outputs only
var ruleZones = map[Zone]bool{
	North: true, NorthEast: true, East: true, SouthEast: true,
	South: true, SouthWest: true, West: true, NorthWest: true,
}

// Rule binds a canonical room label to its ideal compass zones.
type Rule struct {
	Label string `json:"label" yaml:"label"`
	Zones []Zone `json:"zones" yaml:"zones"`
}

func (r Rule) Allows(z Zone) bool {
	for _, v := range r.Zones {
		if v == z {
			return true
		}
	}
	return false
}

func (r Rule) ZoneList() string {
	parts := make([]string, len(r.Zones))
	for i, z := range r.Zones {
		parts[i] = string(z)
	}
	return strings.Join(parts, ", ")
}

var ErrInvalidRule = errors.New("invalid rule")

// Catalog is an ordered, read-only rule table. Declaration order is
// significant: fallback label matching walks the rules in this order.
type Catalog struct {
	rules []Rule
	index map[string]int
}

func NewCatalog(rules []Rule) (*Catalog, error) {
	c := &Catalog{
		rules: make([]Rule, 0, len(rules)),
		index: make(map[string]int, len(rules)),
	}
	for _, r := range rules {
		label := strings.TrimSpace(r.Label)
		if label == "" || label != strings.ToLower(label) {
			return nil, fmt.Errorf("%w: label %q must be non-empty lower-case", ErrInvalidRule, r.Label)
		}
		if _, dup := c.index[label]; dup {
			return nil, fmt.Errorf("%w: duplicate label %q", ErrInvalidRule, label)
		}
		if len(r.Zones) == 0 {
			return nil, fmt.Errorf("%w: %q has no zones", ErrInvalidRule, label)
		}
		for _, z := range r.Zones {
			if !ruleZones[z] {
				return nil, fmt.Errorf("%w: %q has bad zone %q", ErrInvalidRule, label, z)
			}
		}
		c.index[label] = len(c.rules)
		c.rules = append(c.rules, Rule{Label: label, Zones: append([]Zone(nil), r.Zones...)})
	}
	return c, nil
}

func MustCatalog(rules []Rule) *Catalog {
	c, err := NewCatalog(rules)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup is an exact-match lookup; all fuzziness lives in Match.
func (c *Catalog) Lookup(label string) (Rule, bool) {
	i, ok := c.index[label]
	if !ok {
		return Rule{}, false
	}
	return c.rules[i], true
}

func (c *Catalog) Len() int { return len(c.rules) }

// Rules returns a copy of the table in declaration order.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = Rule{Label: r.Label, Zones: append([]Zone(nil), r.Zones...)}
	}
	return out
}

// Default is the built-in placement table, grouped by element.
var Default = MustCatalog([]Rule{
	// North-East (water): sacred spaces, openings
	{"pooja room", []Zone{NorthEast}},
	{"temple", []Zone{NorthEast}},
	{"entrance", []Zone{NorthEast, East, North}},
	{"main entry", []Zone{NorthEast, East, North}},
	{"living room", []Zone{NorthEast, East, North, NorthWest}},
	{"balcony", []Zone{NorthEast}},
	{"verandah", []Zone{NorthEast}},
	{"front porch", []Zone{North, East, NorthEast}},
	{"back porch", []Zone{North, East, NorthEast}},
	{"underground water tank", []Zone{NorthEast}},

	// South-East (fire): heat and electricals
	{"kitchen", []Zone{SouthEast}},
	{"kitchen verandah", []Zone{NorthEast}},
	{"kitchen store", []Zone{SouthEast, South}},
	{"pantry", []Zone{SouthEast, South}},
	{"electric meter", []Zone{SouthEast}},
	{"generator", []Zone{SouthEast}},
	{"laundry", []Zone{NorthWest, SouthEast}},

	// South (earth)
	{"bedroom", []Zone{South, West}},
	{"store room", []Zone{SouthEast, South}},

	// South-West (earth): heavy items
	{"master bedroom", []Zone{SouthWest}},
	{"wardrobe", []Zone{SouthWest}},
	{"closet", []Zone{SouthWest}},
	{"cash cupboard", []Zone{SouthWest, North}},
	{"heavy items", []Zone{SouthWest}},
	{"overhead water tank", []Zone{SouthWest, South, West}},
	{"staircase", []Zone{South, SouthWest}},

	// West (Varuna): dining, studies
	{"dining room", []Zone{West, SouthEast}},
	{"dining", []Zone{West, SouthEast}},
	{"study room", []Zone{West, East}},
	{"children bedroom", []Zone{West, NorthWest}},

	// North-West (air): movement, guests, outlets
	{"guest room", []Zone{NorthWest, East}},
	{"parking", []Zone{West, NorthWest}},
	{"garage", []Zone{West, NorthWest}},
	{"toilet", []Zone{West, NorthWest}},
	{"septic tank", []Zone{West, NorthWest}},

	// North (wealth)
	{"bathroom", []Zone{East, NorthWest, North}},
	{"bath", []Zone{East, NorthWest, North}},
})
