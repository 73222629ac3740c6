package mapdoc

import (
	"image/color"

	"github.com/Faultbox/brushmap/pkg/geometry"
	m "github.com/Faultbox/brushmap/pkg/math"
)

// Solid is a brush: a convex volume bounded by faces.
type Solid struct {
	ID        int64
	ClassName string
	Colour    color.RGBA
	// MetaData holds format fields that are not modelled structurally,
	// such as hull size and model id.
	MetaData  *Properties
	Visgroups []int
	Faces     []*Face
}

// NewSolid returns a solid with empty metadata.
func NewSolid(id int64, className string) *Solid {
	return &Solid{ID: id, ClassName: className, MetaData: NewProperties()}
}

// ObjectID implements Object.
func (s *Solid) ObjectID() int64 { return s.ID }

// AddFace takes ownership of f.
func (s *Solid) AddFace(f *Face) {
	f.SolidID = s.ID
	s.Faces = append(s.Faces, f)
}

// BoundingBox is the union of the face boxes, computed on each call.
func (s *Solid) BoundingBox() geometry.Box {
	var b geometry.Box
	for _, f := range s.Faces {
		b = b.Union(f.BoundingBox())
	}
	return b
}

// Origin is the centroid of every vertex of every face.
func (s *Solid) Origin() m.Vec3 {
	var pts []m.Vec3
	for _, f := range s.Faces {
		pts = append(pts, f.Points()...)
	}
	return geometry.Centroid(pts)
}

// OrientFaces flips every face whose plane does not point away from the
// solid's origin. It returns the number of faces flipped.
func (s *Solid) OrientFaces() (int, error) {
	origin := s.Origin()
	flipped := 0
	for _, f := range s.Faces {
		pl, err := f.Plane()
		if err != nil {
			return flipped, err
		}
		if pl.OnPlane(origin) >= 0 {
			f.Flip()
			flipped++
		}
	}
	return flipped, nil
}
