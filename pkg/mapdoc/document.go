// Package mapdoc is the in-memory form of a brush-based level map.
//
// Ownership flows Document -> Entity -> Solid -> Face -> Vertex. Back
// references (Face to Solid, Vertex to Face) are stored as IDs, never as
// pointers.
package mapdoc

import (
	"image/color"

	"github.com/Faultbox/brushmap/pkg/geometry"
	m "github.com/Faultbox/brushmap/pkg/math"
)

// WorldClassName is the class name of the world entity.
const WorldClassName = "worldspawn"

// Object is anything that can hang off an entity or group in the world tree.
type Object interface {
	ObjectID() int64
}

// Document is one decoded map file.
type Document struct {
	World     *Entity
	Entities  []*Entity
	Motions   []*Motion
	Visgroups []*Visgroup

	// Version is the format-version tag as read from the file.
	Version string
	// Stats is the header statistics block, carried through untouched.
	Stats *Properties
	// Tail holds the bytes after the last known section, verbatim.
	Tail []byte
}

// NewDocument returns a document with an empty world entity.
func NewDocument(ids IDGenerator) *Document {
	return &Document{
		World: NewEntity(ids.NextObjectID(), WorldClassName),
		Stats: NewProperties(),
	}
}

// Solids returns every solid in the world tree, depth first.
func (d *Document) Solids() []*Solid {
	solids, _, _ := Flatten(d)
	return solids
}

// Visgroup returns the visgroup with the given ID, or nil.
func (d *Document) Visgroup(id int) *Visgroup {
	for _, v := range d.Visgroups {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// BoundingBox returns the union of all solid boxes in the world.
func (d *Document) BoundingBox() geometry.Box {
	var b geometry.Box
	for _, s := range d.Solids() {
		b = b.Union(s.BoundingBox())
	}
	return b
}

// Entity is a point or brush entity with key/value data.
type Entity struct {
	ID         int64
	ClassName  string
	Name       string
	Origin     m.Vec3
	Flags      int
	Properties *Properties
	Colour     *color.RGBA
	Children   []Object
}

// NewEntity returns an entity with an empty property map.
func NewEntity(id int64, className string) *Entity {
	return &Entity{ID: id, ClassName: className, Properties: NewProperties()}
}

// ObjectID implements Object.
func (e *Entity) ObjectID() int64 { return e.ID }

// AddChild appends a child object.
func (e *Entity) AddChild(o Object) {
	e.Children = append(e.Children, o)
}

// Group is an organisational node inside the world tree. It is not part of
// the file format and is flattened away on encode.
type Group struct {
	ID       int64
	Children []Object
}

// ObjectID implements Object.
func (g *Group) ObjectID() int64 { return g.ID }

// Motion is an opaque model/motion block kept as raw lines.
type Motion struct {
	Lines []string
}

// Visgroup is a named visibility group.
type Visgroup struct {
	ID      int
	Name    string
	Visible bool
	Locked  bool
	Colour  color.RGBA
	// Auto marks a group the editor created on its own. Auto groups are
	// never written.
	Auto bool
}

// Flatten walks the world tree and collects solids, entities and groups.
// Entities found in the tree come before the document's loose entities.
func Flatten(d *Document) (solids []*Solid, entities []*Entity, groups []*Group) {
	var walk func(children []Object)
	walk = func(children []Object) {
		for _, c := range children {
			switch o := c.(type) {
			case *Solid:
				solids = append(solids, o)
			case *Entity:
				entities = append(entities, o)
			case *Group:
				groups = append(groups, o)
				walk(o.Children)
			}
		}
	}
	if d.World != nil {
		walk(d.World.Children)
	}
	entities = append(entities, d.Entities...)
	return solids, entities, groups
}
