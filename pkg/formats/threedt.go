// Package formats provides parsers for level map file formats.
package formats

import (
	"errors"
	"fmt"
	"strings"
)

// 3DT format errors.
var (
	ErrMalformedDocument = errors.New("malformed 3DT document")
	ErrMissingPayload    = errors.New("missing 3DT payload")
)

// MalformedError describes where a 3DT document stopped following the
// grammar. It unwraps to ErrMalformedDocument.
type MalformedError struct {
	Line     int // 1-based line number, 0 if unknown
	Offset   int // byte offset of the line start
	Expected string
	Actual   string
	Msg      string
}

func (e *MalformedError) Error() string {
	var b strings.Builder
	b.WriteString(ErrMalformedDocument.Error())
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Expected != "" || e.Actual != "" {
		fmt.Fprintf(&b, " (expected %q, got %q)", e.Expected, e.Actual)
	}
	return b.String()
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformedDocument
}

// Version written by the encoder. The consuming editor reads this version
// with the 6-field header and no per-face trailer.
const EncodeVersion = "1.35"

// Grammar markers.
const (
	brushMarker      = "Brush"
	motionMarker     = `Model "`
	groupMarker      = `Group "`
	defaultBrushName = "NoName"
)

// Fixed property sequences per record type.
var (
	faceProperties       = []string{"NumPoints", "Flags", "Light", "MipMapBias", "Translucency", "Reflectivity"}
	solidProperties      = []string{"Flags", "ModelId", "GroupId", "HullSize", "Type", "BrushFaces"}
	entityProperties     = []string{"eStyle", "eOrigin", "eFlags", "eGroup", "ePairCount"}
	entityListProperties = []string{"EntCount", "CurEnt"}
)

// Grammar holds the version-dependent parts of the 3DT record grammar.
type Grammar struct {
	Version float32 // after alias coercion
	// StatCount is the number of header statistics after 3dtVersion.
	StatCount int
	// FaceTrailer is the number of extra lines after every face record.
	FaceTrailer int
}

// versionAliases maps on-disk versions to the version whose field counts
// they actually use.
var versionAliases = map[float32]float32{
	1.35: 1.31,
}

type versionRule struct {
	threshold float64
	inclusive bool
	apply     func(*Grammar)
}

// versionRules are applied in order to every version above their
// threshold. Thresholds compare at float32 precision widened to float64,
// which is how the editor compares them.
var versionRules = []versionRule{
	{threshold: 1.31, apply: func(g *Grammar) { g.FaceTrailer = 2 }},
	{threshold: 1.34, inclusive: true, apply: func(g *Grammar) { g.StatCount = 8 }},
}

// GrammarFor returns the grammar used for a given on-disk version.
func GrammarFor(version float32) Grammar {
	if alias, ok := versionAliases[version]; ok {
		version = alias
	}
	g := Grammar{Version: version, StatCount: 6}
	v := float64(version)
	for _, r := range versionRules {
		if v > r.threshold || (r.inclusive && v == r.threshold) {
			r.apply(&g)
		}
	}
	return g
}
