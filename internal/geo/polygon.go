package geo

// Point is a planar coordinate pair. For geographic use, X is
// longitude and Y is latitude.
type Point struct {
	X float64
	Y float64
}

// PointInPolygon reports whether (x, y) lies inside the polygon given
// by poly's vertices, using ray casting. Points on an edge may fall on
// either side. Intended for alerting on events inside an area of
// interest; nothing in the fetch pipeline calls it.
func PointInPolygon(x, y float64, poly []Point) bool {
	if len(poly) < 3 {
		return false
	}

	inside := false
	p1 := poly[0]
	for i := 1; i <= len(poly); i++ {
		p2 := poly[i%len(poly)]
		if y > min(p1.Y, p2.Y) && y <= max(p1.Y, p2.Y) && x <= max(p1.X, p2.X) {
			var xIntersect float64
			if p1.Y != p2.Y {
				xIntersect = (y-p1.Y)*(p2.X-p1.X)/(p2.Y-p1.Y) + p1.X
			}
			if p1.X == p2.X || x <= xIntersect {
				inside = !inside
			}
		}
		p1 = p2
	}

	return inside
}
