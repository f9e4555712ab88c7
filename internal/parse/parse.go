// Package parse recovers destruction events from the HTML body of a
// notification email.
//
// The body is a flat sequence of nodes alternating between plain text
// ("3 Resonators were destroyed by ... at 14:32 hrs. - ") and an
// anchor whose href is an intel-map link carrying the portal
// coordinates. The first node names the portal owner.
package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/splee/ribbit/internal/event"
	"github.com/splee/ribbit/internal/geo"
)

var (
	detailRe = regexp.MustCompile(`^(\d+) (.+?) were destroyed by (.+?) at (\d{1,2}):(\d{2}) hrs\. - `)
	linkRe   = regexp.MustCompile(`^Your Link has been destroyed by (.+?) at (\d{1,2}):(\d{2}) hrs\. - `)
)

// state is the parser's position in the text/anchor node pairing.
type state int

const (
	// stateScanning looks for a destruction message in text nodes.
	stateScanning state = iota
	// stateAwaitingLink expects the anchor that locates the pending
	// record's portal.
	stateAwaitingLink
)

// WarnFunc receives diagnostics for skipped message text. It must not
// write to stdout, which is reserved for CSV output.
type WarnFunc func(format string, args ...any)

// Events walks the email body and returns the destruction events it
// describes, in document order. emailDate supplies the calendar date;
// the message text only quotes an HH:MM. Unrecognized message text is
// reported through warnf and skipped without aborting the walk.
func Events(body string, emailDate time.Time, warnf WarnFunc) ([]event.Destruction, error) {
	if warnf == nil {
		warnf = func(string, ...any) {}
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing email HTML: %w", err)
	}

	nodes := topLevelNodes(doc)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("email body has no content nodes")
	}

	// The header line holds the portal owner's agent name.
	owner := strings.TrimSuffix(strings.TrimSpace(nodeText(nodes[0])), ":")

	var (
		events  []event.Destruction
		pending event.Destruction
		st      = stateScanning
	)

	for _, n := range nodes[1:] {
		if st == stateAwaitingLink {
			if n.Type == html.ElementNode && n.Data == "a" {
				lat, lng, err := geo.ExtractCoordinates(attr(n, "href"))
				if err != nil {
					warnf("skipping event for %s: %v", pending.Destroyer, err)
					st = stateScanning
					continue
				}
				pending.Lat = lat
				pending.Lng = lng
				events = append(events, pending)
				st = stateScanning
				continue
			}

			// The expected anchor never arrived. Drop the pending
			// record and reconsider this node from scratch.
			warnf("no location link followed destruction message for %s", pending.Destroyer)
			st = stateScanning
		}

		if n.Type != html.TextNode {
			continue
		}
		text := n.Data
		if !strings.Contains(text, "destroyed by") {
			continue
		}

		d, ok := matchDestruction(text, owner, emailDate, warnf)
		if !ok {
			continue
		}
		pending = d
		st = stateAwaitingLink
	}

	if st == stateAwaitingLink {
		warnf("email ended before location link for %s", pending.Destroyer)
	}

	return events, nil
}

// matchDestruction parses one destruction message line into a record
// without coordinates. It reports unknown formats through warnf and
// returns ok=false for them.
func matchDestruction(text, owner string, emailDate time.Time, warnf WarnFunc) (event.Destruction, bool) {
	var (
		count     int
		entity    string
		destroyer string
		hh, mm    string
	)

	if strings.Contains(text, "Link") {
		m := linkRe.FindStringSubmatch(text)
		if m == nil {
			warnf("unknown destruction message: %s", text)
			return event.Destruction{}, false
		}
		count = 1
		entity = event.TypeLink
		destroyer, hh, mm = m[1], m[2], m[3]
	} else {
		m := detailRe.FindStringSubmatch(text)
		if m == nil {
			warnf("unknown destruction message: %s", text)
			return event.Destruction{}, false
		}
		count, _ = strconv.Atoi(m[1])
		entity = normalizeType(m[2])
		destroyer, hh, mm = m[3], m[4], m[5]
	}

	if !event.KnownType(entity) {
		warnf("unknown entity type in message: %s", text)
		return event.Destruction{}, false
	}

	hour, _ := strconv.Atoi(hh)
	minute, _ := strconv.Atoi(mm)
	if hour > 23 || minute > 59 {
		warnf("implausible time %s:%s in message: %s", hh, mm, text)
		return event.Destruction{}, false
	}

	return event.Destruction{
		Owner:     owner,
		Destroyer: destroyer,
		Type:      entity,
		Count:     count,
		Time: time.Date(
			emailDate.Year(), emailDate.Month(), emailDate.Day(),
			hour, minute, 0, 0, emailDate.Location(),
		),
	}, true
}

// normalizeType lowercases an entity token and strips the "(s)"
// plural marker, or a bare trailing "s" ("Resonators" and
// "Resonator(s)" both become "resonator").
func normalizeType(entity string) string {
	t := strings.ToLower(strings.TrimSpace(entity))
	if s, ok := strings.CutSuffix(t, "(s)"); ok {
		return s
	}
	return strings.TrimSuffix(t, "s")
}

// topLevelNodes returns the direct children of the document body,
// skipping whitespace-only text nodes.
func topLevelNodes(doc *html.Node) []*html.Node {
	body := findBody(doc)
	if body == nil {
		return nil
	}

	var nodes []*html.Node
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
			continue
		}
		nodes = append(nodes, c)
	}
	return nodes
}

// findBody locates the <body> element html.Parse always synthesizes.
func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}

// nodeText returns the concatenated text content of a node.
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
