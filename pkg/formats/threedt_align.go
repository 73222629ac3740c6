package formats

import (
	"github.com/Faultbox/brushmap/pkg/geometry"
	"github.com/Faultbox/brushmap/pkg/mapdoc"
	m "github.com/Faultbox/brushmap/pkg/math"
)

// ToInternal converts a point from the file's axis order to the editor's:
// the file's Y axis is the editor's Z axis and the file's Z axis points
// along the editor's -Y.
func ToInternal(v m.Vec3) m.Vec3 {
	return m.Vec3{X: v.X, Y: -v.Z, Z: v.Y}
}

// ToExternal is the inverse of ToInternal.
func ToExternal(v m.Vec3) m.Vec3 {
	return m.Vec3{X: v.X, Y: v.Z, Z: -v.Y}
}

// ClosestAxis returns the unit axis most aligned with normal. Ties go to
// Z, then X, then Y.
func ClosestAxis(normal m.Vec3) m.Vec3 {
	n := normal.Abs()
	if n.Z >= n.X && n.Z >= n.Y {
		return m.UnitZ
	}
	if n.X >= n.Y {
		return m.UnitX
	}
	return m.UnitY
}

// DefaultTextureAxes derives the U and V texture axes for a face from its
// normal alone. V always points along a negative axis.
func DefaultTextureAxes(normal m.Vec3) (u, v m.Vec3) {
	axis := ClosestAxis(normal)
	u = m.UnitX
	if axis == m.UnitX {
		u = m.UnitY
	}
	v = m.UnitZ.Neg()
	if axis == m.UnitZ {
		v = m.UnitY.Neg()
	}
	return u, v
}

// alignTextureToWorld resets the face's texture axes to the defaults for
// its plane.
func alignTextureToWorld(f *mapdoc.Face, pl geometry.Plane) {
	f.Texture.UAxis, f.Texture.VAxis = DefaultTextureAxes(pl.Normal)
}
