package geometry

import (
	m "github.com/Faultbox/brushmap/pkg/math"
)

// Box is an axis-aligned bounding box. The zero value is empty.
type Box struct {
	Min, Max m.Vec3
	valid    bool
}

// BoxOf returns the bounding box of points.
func BoxOf(points ...m.Vec3) Box {
	var b Box
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}

// IsEmpty reports whether the box contains no points.
func (b Box) IsEmpty() bool {
	return !b.valid
}

// Extend returns the box grown to include p.
func (b Box) Extend(p m.Vec3) Box {
	if !b.valid {
		return Box{Min: p, Max: p, valid: true}
	}
	return Box{Min: b.Min.Min(p), Max: b.Max.Max(p), valid: true}
}

// Union returns the smallest box containing both boxes.
func (b Box) Union(other Box) Box {
	if !other.valid {
		return b
	}
	if !b.valid {
		return other
	}
	return Box{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max), valid: true}
}

// Center returns the midpoint of the box.
func (b Box) Center() m.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the box extents.
func (b Box) Size() m.Vec3 {
	return b.Max.Sub(b.Min)
}
