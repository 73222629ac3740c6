package geometry

import (
	m "github.com/Faultbox/brushmap/pkg/math"
)

// Polygon is an ordered ring of coplanar points. Ring order is the winding.
type Polygon struct {
	Points []m.Vec3
}

// NewPolygon copies points into a polygon. At least three are required.
func NewPolygon(points []m.Vec3) (*Polygon, error) {
	if len(points) < 3 {
		return nil, ErrTooFewPoints
	}
	p := &Polygon{Points: make([]m.Vec3, len(points))}
	copy(p.Points, points)
	return p, nil
}

// Plane derives the polygon's plane from the first three non-collinear
// points of the ring.
func (p *Polygon) Plane() (Plane, error) {
	return PlaneOfRing(p.Points)
}

// Flip reverses the winding in place.
func (p *Polygon) Flip() {
	Reverse(p.Points)
}

// Center returns the average of the ring's points.
func (p *Polygon) Center() m.Vec3 {
	return Centroid(p.Points)
}

// PlaneOfRing derives the plane of a vertex ring. The first point is kept
// as the anchor and the search walks forward for a non-collinear pair.
func PlaneOfRing(points []m.Vec3) (Plane, error) {
	if len(points) < 3 {
		return Plane{}, ErrTooFewPoints
	}
	p1 := points[0]
	for i := 1; i < len(points)-1; i++ {
		for j := i + 1; j < len(points); j++ {
			if pl, err := PlaneFromPoints(p1, points[i], points[j]); err == nil {
				return pl, nil
			}
		}
	}
	return Plane{}, ErrDegenerate
}

// Reverse reverses a point ring in place.
func Reverse(points []m.Vec3) {
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
}

// Centroid returns the average of points, or the zero vector for none.
func Centroid(points []m.Vec3) m.Vec3 {
	if len(points) == 0 {
		return m.Vec3{}
	}
	var sum m.Vec3
	for _, pt := range points {
		sum = sum.Add(pt)
	}
	return sum.Scale(1 / float64(len(points)))
}
