package geom

import "math"

// Point represents a 2D position in world space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns the point translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Scale returns the point with both coordinates multiplied by f.
func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// Distance returns the planar distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rect is an axis-aligned rectangle: top-left corner plus size.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// RectAround builds a rectangle of the given size centered on c.
func RectAround(c Point, w, h float64) Rect {
	return Rect{X: c.X - w/2, Y: c.Y - h/2, W: w, H: h}
}

// Right returns the x-coordinate of the right edge.
func (r Rect) Right() float64 {
	return r.X + r.W
}

// Bottom returns the y-coordinate of the bottom edge.
func (r Rect) Bottom() float64 {
	return r.Y + r.H
}

// Area returns the rectangle's area.
func (r Rect) Area() float64 {
	return r.W * r.H
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Intersects reports whether the two rectangles overlap.
func (r Rect) Intersects(other Rect) bool {
	if r.X >= other.Right() || other.X >= r.Right() {
		return false
	}
	if r.Y >= other.Bottom() || other.Y >= r.Bottom() {
		return false
	}
	return true
}

// OverlapFraction returns how much of the smaller of the two rectangles is
// covered by the other, in [0,1]. Disjoint rectangles yield 0; a rectangle
// fully inside a larger one yields 1. If the smaller rectangle has no area
// the result is 0.
func OverlapFraction(a, b Rect) float64 {
	iw := math.Min(a.Right(), b.Right()) - math.Max(a.X, b.X)
	if iw <= 0 {
		return 0
	}
	ih := math.Min(a.Bottom(), b.Bottom()) - math.Max(a.Y, b.Y)
	if ih <= 0 {
		return 0
	}

	smaller := math.Min(a.Area(), b.Area())
	if smaller <= 0 {
		return 0
	}

	return iw * ih / smaller
}
