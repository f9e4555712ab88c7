package event

import (
	"strconv"
	"time"
)

// Entity type tokens that a destruction notification can report.
// Anything else in the message text means the message format is
// unknown and the record is dropped rather than guessed at.
const (
	TypeResonator = "resonator"
	TypeMod       = "mod"
	TypeLink      = "link"
)

// KnownType reports whether t is one of the recognized entity types.
func KnownType(t string) bool {
	switch t {
	case TypeResonator, TypeMod, TypeLink:
		return true
	}
	return false
}

// Destruction is a single destruction event recovered from a
// notification email. It is constructed once by the parser and never
// mutated afterwards.
type Destruction struct {
	// Owner is the agent that owned the destroyed entity.
	Owner string

	// Destroyer is the agent that performed the destruction.
	Destroyer string

	// Type is one of the Type* constants.
	Type string

	// Time combines the email's calendar date with the HH:MM quoted
	// in the message text. Seconds are always zero; the location is
	// whatever the mail Date header carried.
	Time time.Time

	// Lat and Lng are the portal coordinates in decimal degrees.
	// They are always populated together before a record is emitted.
	Lat float64
	Lng float64

	// Count is the number of entities destroyed in the message
	// sub-block. It is stored but not part of the CSV projection.
	Count int
}

// timeLayout is the serialization format for the time column.
const timeLayout = "2006-01-02 15:04:05"

// Columns is the fixed CSV column order.
var Columns = []string{"owner", "destroyer", "type", "time", "lat", "lng"}

// Record projects the event into its CSV row, in Columns order.
func (d Destruction) Record() []string {
	return []string{
		d.Owner,
		d.Destroyer,
		d.Type,
		d.Time.Format(timeLayout),
		formatCoord(d.Lat),
		formatCoord(d.Lng),
	}
}

// formatCoord renders a coordinate with the shortest representation
// that round-trips, so 37.5765 stays "37.5765" rather than gaining
// trailing zeros.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
