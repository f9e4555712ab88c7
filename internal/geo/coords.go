// Package geo decodes the coordinate encodings used in intel-map URLs
// and provides a small amount of planar geometry.
package geo

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DecodeE6 converts a fixed-point E6 coordinate string (the value
// multiplied by 1e6 and truncated to an integer, e.g. "37576500") to
// decimal degrees. The implicit decimal point sits exactly six digits
// from the end; a leading sign is carried into the integer part, so
// "-1224195" decodes to -1.224195.
func DecodeE6(coord string) (float64, error) {
	if len(coord) < 7 {
		return 0, fmt.Errorf("E6 coordinate %q too short", coord)
	}

	split := len(coord) - 6
	v, err := strconv.ParseFloat(coord[:split]+"."+coord[split:], 64)
	if err != nil {
		return 0, fmt.Errorf("parsing E6 coordinate %q: %w", coord, err)
	}

	return v, nil
}

// ExtractCoordinates recovers the latitude and longitude from an
// intel-map link URL. The primary encoding is a pair of latE6/lngE6
// query parameters; older links instead carry a single
// ll=<lat>,<lng> parameter with plain decimal values. A URL with
// neither encoding is an error, never a synthesized position.
func ExtractCoordinates(rawURL string) (lat, lng float64, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing location URL: %w", err)
	}
	query := u.Query()

	latE6 := query.Get("latE6")
	lngE6 := query.Get("lngE6")
	if latE6 != "" && lngE6 != "" {
		lat, err = DecodeE6(latE6)
		if err != nil {
			return 0, 0, err
		}
		lng, err = DecodeE6(lngE6)
		if err != nil {
			return 0, 0, err
		}
		return lat, lng, nil
	}

	// Fallback for the newer notification format.
	ll := query.Get("ll")
	if ll == "" {
		return 0, 0, fmt.Errorf("URL %q has no latE6/lngE6 or ll parameters", rawURL)
	}

	parts := strings.SplitN(ll, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed ll parameter %q", ll)
	}

	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing ll latitude %q: %w", parts[0], err)
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing ll longitude %q: %w", parts[1], err)
	}

	return lat, lng, nil
}
