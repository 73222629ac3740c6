// Package geometry builds planes, polygons and bounding boxes from the
// vertex rings stored in brush-based map files.
package geometry

import (
	"errors"
	"math"

	m "github.com/Faultbox/brushmap/pkg/math"
)

// Geometry errors.
var (
	ErrTooFewPoints = errors.New("polygon needs at least 3 points")
	ErrDegenerate   = errors.New("points are collinear")
)

// Epsilon is the tolerance used for on-plane tests.
const Epsilon = 1e-4

// Plane is a normal and its distance from the origin along that normal.
// Points p with Normal.Dot(p) == Dist lie on the plane.
type Plane struct {
	Normal m.Vec3
	Dist   float64
}

// PlaneFromPoints builds the plane through three points. The normal is
// (p3-p1) x (p2-p1), so a ring wound clockwise when seen from the front
// faces the viewer.
func PlaneFromPoints(p1, p2, p3 m.Vec3) (Plane, error) {
	ab := p2.Sub(p1)
	ac := p3.Sub(p1)
	n := ac.Cross(ab)
	if n.Length() < 1e-9 {
		return Plane{}, ErrDegenerate
	}
	n = n.Normalize()
	return Plane{Normal: n, Dist: n.Dot(p1)}, nil
}

// SignedDistance returns the distance of p in front of (positive) or
// behind (negative) the plane.
func (p Plane) SignedDistance(pt m.Vec3) float64 {
	return p.Normal.Dot(pt) - p.Dist
}

// OnPlane classifies pt: 1 in front, -1 behind, 0 within Epsilon.
func (p Plane) OnPlane(pt m.Vec3) int {
	d := p.SignedDistance(pt)
	if math.Abs(d) < Epsilon {
		return 0
	}
	if d < 0 {
		return -1
	}
	return 1
}

// Flip returns the same plane facing the other way.
func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Neg(), Dist: -p.Dist}
}
