package formats

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/brushmap/pkg/mapdoc"
)

// lowerOriginClasses write their origin under the lowercase "origin" key;
// every other class uses "Origin".
var lowerOriginClasses = map[string]bool{
	"AmbientSound":     true,
	"light":            true,
	"StaticSound":      true,
	"Corona":           true,
	"DynamicLight":     true,
	"directionallight": true,
	"spotlight":        true,
}

// Defaults for brush fields the document does not carry.
const (
	defaultBrushFlags = "1"
	defaultModelID    = "0"
	defaultHullSize   = "1.000000"
	defaultBrushType  = "2"
	// defaultFaceFlags replaces a zero face flag word.
	defaultFaceFlags = 512
)

var (
	styleQuoted = PropertyStyle{Quote: true}
	stylePlain  = PropertyStyle{}
	styleBrush  = PropertyStyle{Indent: 1}
	styleFace   = PropertyStyle{Indent: 2}
	styleVertex = PropertyStyle{Indent: 3}
)

// encoder writes one document. The first write error sticks and every
// later write is skipped.
type encoder struct {
	w   *bufio.Writer
	eol string
	log *zap.Logger
	err error
}

func newEncoder(w io.Writer, eol string, log *zap.Logger) *encoder {
	return &encoder{w: bufio.NewWriter(w), eol: eol, log: log}
}

func (e *encoder) line(s string) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.WriteString(s + e.eol)
}

func (e *encoder) property(name, value string, style PropertyStyle) {
	if e.err != nil {
		return
	}
	e.err = WriteProperty(e.w, name, value, style, e.eol)
}

func (e *encoder) flush() error {
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

// validatePayload checks what the encoder needs but cannot derive.
func validatePayload(doc *mapdoc.Document, solids []*mapdoc.Solid) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrMissingPayload)
	}
	if doc.Stats == nil {
		return fmt.Errorf("%w: header statistics", ErrMissingPayload)
	}
	for _, key := range []string{"TextureLib", "HeadersDir"} {
		if _, ok := doc.Stats.Get(key); !ok {
			return fmt.Errorf("%w: header statistic %s", ErrMissingPayload, key)
		}
	}
	for _, s := range solids {
		for _, f := range s.Faces {
			if len(f.Vertices) < 3 {
				return &MalformedError{
					Msg:      fmt.Sprintf("brush %q face %d has too few vertices", s.ClassName, f.ID),
					Expected: "3",
					Actual:   strconv.Itoa(len(f.Vertices)),
				}
			}
		}
	}
	return nil
}

func (e *encoder) encode(doc *mapdoc.Document) error {
	var solids []*mapdoc.Solid
	var entities []*mapdoc.Entity
	if doc != nil {
		solids, entities, _ = mapdoc.Flatten(doc)
	}
	if err := validatePayload(doc, solids); err != nil {
		return err
	}

	groups := 0
	for _, v := range doc.Visgroups {
		if !v.Auto {
			groups++
		}
	}

	e.writeHeader(doc, len(solids), len(entities), groups)
	for _, s := range solids {
		e.writeSolid(s)
	}

	e.property("Class", "CEntList", stylePlain)
	e.property("EntCount", strconv.Itoa(len(entities)), stylePlain)
	e.property("CurEnt", "0", stylePlain)
	for _, ent := range entities {
		e.writeEntity(ent)
	}

	for _, mo := range doc.Motions {
		for _, l := range mo.Lines {
			e.line(l)
		}
	}

	for _, v := range doc.Visgroups {
		if v.Auto {
			continue
		}
		e.property("Group", v.Name, styleQuoted)
		e.property("GroupId", strconv.Itoa(v.ID), styleBrush)
		e.property("Visible", boolFlag(v.Visible), styleBrush)
		e.property("Locked", boolFlag(v.Locked), styleBrush)
		e.property("Color", formatColour(v.Colour), stylePlain)
	}

	if e.err == nil && len(doc.Tail) > 0 {
		_, e.err = e.w.Write(doc.Tail)
	}
	if err := e.flush(); err != nil {
		return fmt.Errorf("writing 3DT document: %w", err)
	}

	e.log.Debug("encoded 3DT document",
		zap.Int("brushes", len(solids)),
		zap.Int("entities", len(entities)),
		zap.Int("motions", len(doc.Motions)),
		zap.Int("groups", groups),
	)
	return nil
}

func (e *encoder) writeHeader(doc *mapdoc.Document, solids, entities, groups int) {
	textureLib, _ := doc.Stats.Get("TextureLib")
	headersDir, _ := doc.Stats.Get("HeadersDir")

	e.property("3dtVersion", EncodeVersion, stylePlain)
	e.property("TextureLib", textureLib, styleQuoted)
	e.property("HeadersDir", headersDir, styleQuoted)
	e.property("NumEntities", strconv.Itoa(entities), stylePlain)
	e.property("NumModels", strconv.Itoa(len(doc.Motions)), stylePlain)
	e.property("NumGroups", strconv.Itoa(groups), stylePlain)
	e.property("Brushlist", strconv.Itoa(solids), stylePlain)
}

func (e *encoder) writeSolid(s *mapdoc.Solid) {
	name := s.ClassName
	if name == "" {
		name = defaultBrushName
	}
	flags := s.MetaData.GetOr("Flags", "")
	if strings.TrimSpace(flags) == "" {
		flags = defaultBrushFlags
	}
	group := 0
	if len(s.Visgroups) > 0 && s.Visgroups[0] > 0 {
		group = s.Visgroups[0]
	}

	e.property("Brush", name, styleQuoted)
	e.property("Flags", flags, styleBrush)
	e.property("ModelId", s.MetaData.GetOr("ModelId", defaultModelID), styleBrush)
	e.property("GroupId", strconv.Itoa(group), styleBrush)
	e.property("HullSize", s.MetaData.GetOr("HullSize", defaultHullSize), styleBrush)
	e.property("Type", s.MetaData.GetOr("Type", defaultBrushType), styleBrush)
	e.property("BrushFaces", strconv.Itoa(len(s.Faces)), styleBrush)
	for _, f := range s.Faces {
		e.writeFace(f)
	}
}

func (e *encoder) writeFace(f *mapdoc.Face) {
	flags := f.Flags
	if flags == 0 {
		flags = defaultFaceFlags
	}
	e.property("NumPoints", strconv.Itoa(len(f.Vertices)), styleFace)
	e.property("Flags", strconv.Itoa(flags), styleFace)
	e.property("Light", strconv.Itoa(f.Light), styleFace)
	e.property("MipMapBias", formatFloat(f.MipMapBias), styleFace)
	e.property("Translucency", formatShort(f.Translucency), styleFace)
	e.property("Reflectivity", formatFloat(f.Reflectivity), styleFace)

	for _, v := range f.Vertices {
		e.property("Vec3d", formatCoordinate(v.Location), styleVertex)
	}

	t := f.Texture
	texInfo := fmt.Sprintf(`Rotate %s Shift %s %s Scale %s %s Name "%s"`,
		formatFloat(t.Rotation),
		formatRounded(t.XShift), formatRounded(t.YShift),
		formatFloat(t.XScale), formatFloat(t.YScale),
		t.Name)
	e.property("TexInfo", texInfo, styleVertex)

	scale := "1.000000 1.000000"
	if f.LightScale != nil {
		scale = formatFloat(f.LightScale.X) + " " + formatFloat(f.LightScale.Y)
	}
	e.property("LightScale", scale, styleFace)
}

type keyValue struct {
	key, value string
}

// entityPairs lists the key/value pairs of an entity in output order:
// classname, origin, then the stored properties. Name and colour are
// added when they are set on the entity but missing from its properties.
func entityPairs(ent *mapdoc.Entity) []keyValue {
	originKey := "Origin"
	if lowerOriginClasses[ent.ClassName] {
		originKey = "origin"
	}
	pairs := []keyValue{
		{"classname", ent.ClassName},
		{originKey, formatIntCoordinate(ent.Origin)},
	}
	ent.Properties.Each(func(k, v string) {
		if k == "classname" || strings.EqualFold(k, "origin") {
			return
		}
		pairs = append(pairs, keyValue{k, v})
	})
	if _, ok := ent.Properties.Get("%name%"); !ok && ent.Name != "" {
		pairs = append(pairs, keyValue{"%name%", ent.Name})
	}
	if _, ok := ent.Properties.Get("color"); !ok && ent.Colour != nil {
		pairs = append(pairs, keyValue{"color", formatColour(*ent.Colour)})
	}
	return pairs
}

func (e *encoder) writeEntity(ent *mapdoc.Entity) {
	pairs := entityPairs(ent)

	e.property("CEntity", "", stylePlain)
	e.property("eStyle", "0", stylePlain)
	e.property("eOrigin", formatIntCoordinate(ent.Origin)+" 0", stylePlain)
	e.property("eFlags", strconv.Itoa(ent.Flags), stylePlain)
	e.property("eGroup", "0", stylePlain)
	e.property("ePairCount", strconv.Itoa(len(pairs)), stylePlain)
	for _, p := range pairs {
		e.line(fmt.Sprintf(`Key %s Value "%s"`, p.key, p.value))
	}
	e.property("End", "CEntity", stylePlain)
}

func formatColour(c color.RGBA) string {
	return fmt.Sprintf("%d %d %d", c.R, c.G, c.B)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
