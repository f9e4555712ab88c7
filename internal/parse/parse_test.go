package parse

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/splee/ribbit/internal/event"
)

var emailDate = time.Date(2015, 3, 1, 9, 15, 0, 0, time.UTC)

const intelLink = `<a href="https://www.ingress.com/intel?latE6=37576500&amp;lngE6=-122419500">location</a>`

func collectWarnings() (WarnFunc, *[]string) {
	var warnings []string
	return func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}, &warnings
}

func TestEventsSingleResonator(t *testing.T) {
	body := "AgentOwner:<br>" +
		"3 Resonators were destroyed by AgentX at 14:32 hrs. - " +
		intelLink

	events, err := Events(body, emailDate, nil)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	want := event.Destruction{
		Owner:     "AgentOwner",
		Destroyer: "AgentX",
		Type:      event.TypeResonator,
		Count:     3,
		Time:      time.Date(2015, 3, 1, 14, 32, 0, 0, time.UTC),
		Lat:       37.5765,
		Lng:       -122.4195,
	}
	if events[0] != want {
		t.Errorf("got %+v, want %+v", events[0], want)
	}
}

func TestEventsLinkDestruction(t *testing.T) {
	body := "AgentOwner:<br>" +
		"Your Link has been destroyed by AgentY at 09:05 hrs. - " +
		intelLink

	events, err := Events(body, emailDate, nil)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	e := events[0]
	if e.Type != event.TypeLink {
		t.Errorf("Type = %q, want %q", e.Type, event.TypeLink)
	}
	if e.Count != 1 {
		t.Errorf("Count = %d, want 1", e.Count)
	}
	if e.Destroyer != "AgentY" {
		t.Errorf("Destroyer = %q, want AgentY", e.Destroyer)
	}
	if e.Time.Hour() != 9 || e.Time.Minute() != 5 {
		t.Errorf("Time = %v, want 09:05", e.Time)
	}
}

func TestEventsEntityTypes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "bare plural", text: "3 Resonators were destroyed by AgentX at 14:32 hrs. - ", want: "resonator"},
		{name: "parenthesized plural", text: "1 Resonator(s) were destroyed by AgentX at 14:32 hrs. - ", want: "resonator"},
		{name: "mods", text: "2 Mods were destroyed by AgentX at 14:32 hrs. - ", want: "mod"},
		{name: "mod parenthesized", text: "1 Mod(s) were destroyed by AgentX at 14:32 hrs. - ", want: "mod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := "AgentOwner:<br>" + tt.text + intelLink
			events, err := Events(body, emailDate, nil)
			if err != nil {
				t.Fatalf("Events: %v", err)
			}
			if len(events) != 1 {
				t.Fatalf("got %d events, want 1", len(events))
			}
			if events[0].Type != tt.want {
				t.Errorf("Type = %q, want %q", events[0].Type, tt.want)
			}
		})
	}
}

func TestEventsMultipleBlocks(t *testing.T) {
	body := "AgentOwner:<br>" +
		"3 Resonators were destroyed by AgentX at 14:32 hrs. - " + intelLink +
		"Your Link has been destroyed by AgentY at 15:01 hrs. - " + intelLink

	events, err := Events(body, emailDate, nil)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Destroyer != "AgentX" || events[1].Destroyer != "AgentY" {
		t.Errorf("events out of document order: %+v", events)
	}
}

// Unrecognized message text is reported and skipped without breaking
// subsequent blocks in the same email.
func TestEventsUnknownMessageFormat(t *testing.T) {
	body := "AgentOwner:<br>" +
		"Your Portal is under attack, something was destroyed by somebody!<br>" +
		"3 Resonators were destroyed by AgentX at 14:32 hrs. - " + intelLink

	warnf, warnings := collectWarnings()
	events, err := Events(body, emailDate, warnf)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if len(*warnings) != 1 || !strings.Contains((*warnings)[0], "unknown destruction message") {
		t.Errorf("warnings = %v, want one unknown-message report", *warnings)
	}
}

func TestEventsUnknownEntityType(t *testing.T) {
	body := "AgentOwner:<br>" +
		"3 Widgets were destroyed by AgentX at 14:32 hrs. - " + intelLink

	warnf, warnings := collectWarnings()
	events, err := Events(body, emailDate, warnf)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
	if len(*warnings) == 0 {
		t.Error("expected a warning for unknown entity type")
	}
}

// A destruction message not followed by a link drops only the pending
// record; the node that appeared instead is reconsidered from scratch.
func TestEventsMissingLink(t *testing.T) {
	body := "AgentOwner:<br>" +
		"3 Resonators were destroyed by AgentX at 14:32 hrs. - <br>" +
		"Your Link has been destroyed by AgentY at 15:01 hrs. - " + intelLink

	warnf, warnings := collectWarnings()
	events, err := Events(body, emailDate, warnf)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Destroyer != "AgentY" {
		t.Errorf("Destroyer = %q, want AgentY", events[0].Destroyer)
	}
	if len(*warnings) == 0 {
		t.Error("expected a warning for the dropped record")
	}
}

func TestEventsTrailingPendingRecord(t *testing.T) {
	body := "AgentOwner:<br>" +
		"3 Resonators were destroyed by AgentX at 14:32 hrs. - "

	warnf, warnings := collectWarnings()
	events, err := Events(body, emailDate, warnf)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
	if len(*warnings) == 0 {
		t.Error("expected a warning for the unterminated record")
	}
}

// A location link with no usable coordinates drops that record only.
func TestEventsLinkWithoutCoordinates(t *testing.T) {
	body := "AgentOwner:<br>" +
		`3 Resonators were destroyed by AgentX at 14:32 hrs. - <a href="https://www.ingress.com/intel?z=17">location</a>` +
		"1 Mod(s) were destroyed by AgentZ at 16:00 hrs. - " + intelLink

	warnf, warnings := collectWarnings()
	events, err := Events(body, emailDate, warnf)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Destroyer != "AgentZ" {
		t.Errorf("Destroyer = %q, want AgentZ", events[0].Destroyer)
	}
	if len(*warnings) == 0 {
		t.Error("expected a warning for the dropped record")
	}
}

func TestEventsLLFallbackLink(t *testing.T) {
	body := "AgentOwner:<br>" +
		"3 Resonators were destroyed by AgentX at 14:32 hrs. - " +
		`<a href="https://www.ingress.com/intel?ll=37.5765,-122.4195">location</a>`

	events, err := Events(body, emailDate, nil)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Lat != 37.5765 || events[0].Lng != -122.4195 {
		t.Errorf("coordinates = %v, %v, want 37.5765, -122.4195",
			events[0].Lat, events[0].Lng)
	}
}

// The calendar date comes from the email; only HH:MM comes from the
// message text. The mail date's location is preserved.
func TestEventsTimeFromEmailDate(t *testing.T) {
	loc := time.FixedZone("PST", -8*60*60)
	date := time.Date(2014, 12, 31, 23, 59, 0, 0, loc)

	body := "AgentOwner:<br>" +
		"3 Resonators were destroyed by AgentX at 07:45 hrs. - " + intelLink

	events, err := Events(body, date, nil)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	want := time.Date(2014, 12, 31, 7, 45, 0, 0, loc)
	if !events[0].Time.Equal(want) {
		t.Errorf("Time = %v, want %v", events[0].Time, want)
	}
}

func TestEventsImplausibleTime(t *testing.T) {
	body := "AgentOwner:<br>" +
		"3 Resonators were destroyed by AgentX at 29:99 hrs. - " + intelLink

	warnf, warnings := collectWarnings()
	events, err := Events(body, emailDate, warnf)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
	if len(*warnings) == 0 {
		t.Error("expected a warning for the out-of-range time")
	}
}

func TestEventsEmptyBody(t *testing.T) {
	if _, err := Events("", emailDate, nil); err == nil {
		t.Error("expected an error for an empty body")
	}
}

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Resonators", "resonator"},
		{"Resonator(s)", "resonator"},
		{"Mods", "mod"},
		{"Mod(s)", "mod"},
		{"MOD(S)", "mod"},
	}

	for _, tt := range tests {
		if got := normalizeType(tt.in); got != tt.want {
			t.Errorf("normalizeType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
