package mapdoc

import (
	"github.com/Faultbox/brushmap/pkg/geometry"
	m "github.com/Faultbox/brushmap/pkg/math"
)

// Texture is the texture mapping of a face.
type Texture struct {
	Name     string
	UAxis    m.Vec3
	VAxis    m.Vec3
	XShift   float64
	YShift   float64
	XScale   float64
	YScale   float64
	Rotation float64
}

// SetRotation rotates both axes around the texture normal (V x U) so the
// mapping moves from the current rotation to deg degrees.
func (t *Texture) SetRotation(deg float64) {
	axis := t.VAxis.Cross(t.UAxis).Normalize()
	q := m.QuatFromAxisAngle(axis, m.DegToRad(t.Rotation-deg))
	t.UAxis = q.Rotate(t.UAxis)
	t.VAxis = q.Rotate(t.VAxis)
	t.Rotation = deg
}

// Vertex is one corner of a face.
type Vertex struct {
	Location m.Vec3
	FaceID   int64
}

// Face is one planar side of a solid.
type Face struct {
	ID      int64
	SolidID int64
	// Vertices is the ring; its order defines the winding.
	Vertices []Vertex
	Texture  Texture

	Flags        int
	Light        int
	Translucency float64
	MipMapBias   float64
	Reflectivity float64
	LightScale   *m.Vec2
}

// NewFace returns a face with the given ring. The vertices are bound to
// the face's ID.
func NewFace(id int64, points []m.Vec3) *Face {
	f := &Face{ID: id, MipMapBias: 1, Reflectivity: 1}
	f.SetPoints(points)
	return f
}

// SetPoints replaces the vertex ring.
func (f *Face) SetPoints(points []m.Vec3) {
	f.Vertices = make([]Vertex, len(points))
	for i, p := range points {
		f.Vertices[i] = Vertex{Location: p, FaceID: f.ID}
	}
}

// Points returns the vertex locations in ring order.
func (f *Face) Points() []m.Vec3 {
	pts := make([]m.Vec3, len(f.Vertices))
	for i, v := range f.Vertices {
		pts[i] = v.Location
	}
	return pts
}

// Plane derives the face plane from the current vertex ring.
func (f *Face) Plane() (geometry.Plane, error) {
	return geometry.PlaneOfRing(f.Points())
}

// BoundingBox returns the box around the vertex ring.
func (f *Face) BoundingBox() geometry.Box {
	return geometry.BoxOf(f.Points()...)
}

// Flip reverses the winding.
func (f *Face) Flip() {
	for i, j := 0, len(f.Vertices)-1; i < j; i, j = i+1, j-1 {
		f.Vertices[i], f.Vertices[j] = f.Vertices[j], f.Vertices[i]
	}
}
