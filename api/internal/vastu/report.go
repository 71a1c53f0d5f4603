package vastu

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Status string

const (
	StatusVerified    Status = "VERIFIED"
	StatusNotVerified Status = "NOT_VERIFIED"
	StatusUnknown     Status = "UNKNOWN"
)

const noRule = "N/A"

type Summary struct {
	TotalRoomsAnalyzed    int `json:"total_rooms_analyzed" yaml:"total_rooms_analyzed"`
	VerifiedPlacements    int `json:"verified_placements" yaml:"verified_placements"`
	NotVerifiedPlacements int `json:"not_verified_placements" yaml:"not_verified_placements"`
}

type Detail struct {
	RoomName         string `json:"room_name" yaml:"room_name"`
	DetectedLocation Zone   `json:"detected_location" yaml:"detected_location"`
	Status           Status `json:"status" yaml:"status"`
	IdealLocations   string `json:"ideal_locations" yaml:"ideal_locations"`
	IdealZones       []Zone `json:"ideal_zones" yaml:"ideal_zones"`
	Message          string `json:"message" yaml:"message"`
}

type Report struct {
	Summary Summary  `json:"summary" yaml:"summary"`
	Details []Detail `json:"details" yaml:"details"`
}

// TitleCase is presentation only; matching always works on lower-case labels.
func TitleCase(label string) string {
	return cases.Title(language.English).String(label)
}

// BuildReport checks every located room against the catalog. Rooms whose
// label has no rule are reported as UNKNOWN and counted only in the total.
func BuildReport(c *Catalog, rooms []LocatedRoom) Report {
	rep := Report{Details: make([]Detail, 0, len(rooms))}
	for _, room := range rooms {
		name := TitleCase(room.Label)
		d := Detail{
			RoomName:         name,
			DetectedLocation: room.Zone,
			Status:           StatusUnknown,
			IdealLocations:   noRule,
			IdealZones:       []Zone{},
			Message:          fmt.Sprintf("No specific rule found for '%s'", name),
		}
		if rule, ok := c.Lookup(room.Label); ok {
			d.IdealZones = append(d.IdealZones, rule.Zones...)
			d.IdealLocations = rule.ZoneList()
			if rule.Allows(room.Zone) {
				d.Status = StatusVerified
				d.Message = fmt.Sprintf("Correctly placed in %s.", room.Zone)
				rep.Summary.VerifiedPlacements++
			} else {
				d.Status = StatusNotVerified
				d.Message = fmt.Sprintf("Found in %s, but ideal location(s) are: %s.", room.Zone, d.IdealLocations)
				rep.Summary.NotVerifiedPlacements++
			}
		}
		rep.Details = append(rep.Details, d)
	}
	rep.Summary.TotalRoomsAnalyzed = len(rooms)
	return rep
}
