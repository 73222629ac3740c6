package mapdoc

import "sync/atomic"

// IDGenerator hands out identifiers for objects built during decoding.
// The codec calls it once per new object.
type IDGenerator interface {
	NextObjectID() int64
	NextFaceID() int64
}

// SequentialIDs is a monotonic IDGenerator starting at 1. It is safe for
// concurrent use.
type SequentialIDs struct {
	objects atomic.Int64
	faces   atomic.Int64
}

// NewSequentialIDs returns a generator whose first IDs are 1.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// NextObjectID returns the next entity, solid or group ID.
func (g *SequentialIDs) NextObjectID() int64 {
	return g.objects.Add(1)
}

// NextFaceID returns the next face ID.
func (g *SequentialIDs) NextFaceID() int64 {
	return g.faces.Add(1)
}
