package formats

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/brushmap/pkg/geometry"
	"github.com/Faultbox/brushmap/pkg/mapdoc"
	m "github.com/Faultbox/brushmap/pkg/math"
)

// tintedBrushFlags marks brushes the editor draws in a fixed orchid tint.
const tintedBrushFlags = 72

var tintedBrushColour = color.RGBA{R: 186, G: 85, B: 211, A: 255}

// brushPalette supplies display colours for ordinary brushes. The colour
// is picked by solid ID so decoding the same file twice gives the same
// colours.
var brushPalette = []color.RGBA{
	{R: 0, G: 100, B: 220, A: 255},
	{R: 0, G: 180, B: 80, A: 255},
	{R: 220, G: 160, B: 0, A: 255},
	{R: 0, G: 200, B: 200, A: 255},
	{R: 200, G: 60, B: 60, A: 255},
	{R: 140, G: 100, B: 220, A: 255},
	{R: 120, G: 200, B: 40, A: 255},
	{R: 220, G: 100, B: 160, A: 255},
}

func brushColour(id int64, flags int) color.RGBA {
	if flags == tintedBrushFlags {
		return tintedBrushColour
	}
	n := int64(len(brushPalette))
	return brushPalette[((id%n)+n)%n]
}

// decoder holds the state of one decode call.
type decoder struct {
	lr      *lineReader
	ids     mapdoc.IDGenerator
	log     *zap.Logger
	grammar Grammar

	// statLines records where each header statistic was read.
	statLines map[string]linePosition
}

type linePosition struct {
	line, offset int
}

func (d *decoder) malformed(msg, expected, actual string) error {
	return &MalformedError{
		Line:     d.lr.Line(),
		Offset:   d.lr.LineOffset(),
		Expected: expected,
		Actual:   actual,
		Msg:      msg,
	}
}

// readLine returns the next line; running out of input is a grammar error.
func (d *decoder) readLine(expected string) (string, error) {
	line, err := d.lr.ReadLine()
	if errors.Is(err, io.EOF) {
		return "", &MalformedError{
			Line:     d.lr.Line() + 1,
			Offset:   len(d.lr.data),
			Expected: expected,
			Msg:      "unexpected end of document",
		}
	}
	return line, err
}

// readProperty reads one property line and checks its name.
func (d *decoder) readProperty(expected string) (string, error) {
	line, err := d.readLine(expected)
	if err != nil {
		return "", err
	}
	name, value := ReadProperty(line)
	if name != expected {
		return "", d.malformed("unexpected property", expected, name)
	}
	return value, nil
}

// readProperties reads a fixed sequence of properties.
func (d *decoder) readProperties(names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		value, err := d.readProperty(name)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

func (d *decoder) intValue(props map[string]string, name string) (int, error) {
	v, err := parseInt(props[name])
	if err != nil {
		return 0, d.malformed(name+" is not an integer", "integer", props[name])
	}
	return v, nil
}

func (d *decoder) floatValue(props map[string]string, name string) (float64, error) {
	v, err := parseFloat(props[name])
	if err != nil {
		return 0, d.malformed(name+" is not a number", "number", props[name])
	}
	return v, nil
}

func (d *decoder) decode() (*mapdoc.Document, error) {
	doc := mapdoc.NewDocument(d.ids)

	if err := d.readHeader(doc); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := d.readWorld(doc); err != nil {
		return nil, fmt.Errorf("reading world brushes: %w", err)
	}
	if err := d.readEntityList(doc); err != nil {
		return nil, fmt.Errorf("reading entities: %w", err)
	}

	numMotions, err := d.statCount(doc, "NumModels")
	if err != nil {
		return nil, err
	}
	if doc.Motions, err = d.readMotions(numMotions); err != nil {
		return nil, fmt.Errorf("reading motions: %w", err)
	}

	numGroups, err := d.statCount(doc, "NumGroups")
	if err != nil {
		return nil, err
	}
	if doc.Visgroups, err = d.readVisgroups(numGroups); err != nil {
		return nil, fmt.Errorf("reading groups: %w", err)
	}

	doc.Tail = d.lr.Rest()

	d.log.Debug("decoded 3DT document",
		zap.String("version", doc.Version),
		zap.Int("brushes", len(doc.World.Children)),
		zap.Int("entities", len(doc.Entities)),
		zap.Int("motions", len(doc.Motions)),
		zap.Int("groups", len(doc.Visgroups)),
		zap.Int("tail_bytes", len(doc.Tail)),
	)
	return doc, nil
}

func (d *decoder) statCount(doc *mapdoc.Document, name string) (int, error) {
	raw, ok := doc.Stats.Get(name)
	if !ok {
		at := d.statLines["3dtVersion"]
		return 0, &MalformedError{Line: at.line, Offset: at.offset, Msg: "header statistic missing", Expected: name}
	}
	n, err := parseInt(raw)
	if err != nil || n < 0 {
		at := d.statLines[name]
		return 0, &MalformedError{Line: at.line, Offset: at.offset, Msg: name + " is not a count", Expected: "integer", Actual: raw}
	}
	return n, nil
}

func (d *decoder) readHeader(doc *mapdoc.Document) error {
	value, err := d.readProperty("3dtVersion")
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return d.malformed("version is not a number", "number", value)
	}
	d.grammar = GrammarFor(float32(v))
	doc.Version = value
	d.statLines = map[string]linePosition{"3dtVersion": {d.lr.Line(), d.lr.LineOffset()}}

	for i := 0; i < d.grammar.StatCount; i++ {
		line, err := d.readLine("header statistic")
		if err != nil {
			return err
		}
		name, value := ReadProperty(line)
		doc.Stats.Set(name, value)
		d.statLines[name] = linePosition{d.lr.Line(), d.lr.LineOffset()}
	}

	d.log.Debug("read 3DT header",
		zap.String("version", value),
		zap.Int("stats", d.grammar.StatCount),
		zap.Int("face_trailer", d.grammar.FaceTrailer),
	)
	return nil
}

// readWorld reads brush records until the next line is not a brush. That
// line is left unread for the entity list.
func (d *decoder) readWorld(doc *mapdoc.Document) error {
	for {
		at := d.lr.Position()
		line, err := d.readLine("Class CEntList")
		if err != nil {
			return err
		}
		if !strings.HasPrefix(line, brushMarker) {
			d.lr.SetPosition(at)
			return nil
		}
		solid, err := d.readSolid(brushName(line))
		if err != nil {
			return err
		}
		doc.World.AddChild(solid)
	}
}

// brushName extracts the quoted name of a brush record line.
func brushName(line string) string {
	open := strings.IndexByte(line, '"')
	end := strings.LastIndexByte(line, '"')
	if open < 0 || end <= open {
		return defaultBrushName
	}
	return line[open+1 : end]
}

func (d *decoder) readSolid(name string) (*mapdoc.Solid, error) {
	props, err := d.readProperties(solidProperties)
	if err != nil {
		return nil, err
	}
	numFaces, err := d.intValue(props, "BrushFaces")
	if err != nil {
		return nil, err
	}
	flags, err := d.intValue(props, "Flags")
	if err != nil {
		return nil, err
	}
	group, err := d.intValue(props, "GroupId")
	if err != nil {
		return nil, err
	}

	solid := mapdoc.NewSolid(d.ids.NextObjectID(), name)
	for i := 0; i < numFaces; i++ {
		face, err := d.readFace()
		if err != nil {
			return nil, fmt.Errorf("brush %q face %d: %w", name, i, err)
		}
		solid.AddFace(face)
	}

	// The file does not guarantee outward winding.
	if _, err := solid.OrientFaces(); err != nil {
		return nil, d.malformed(fmt.Sprintf("brush %q has a degenerate face", name), "", "")
	}

	solid.Colour = brushColour(solid.ID, flags)
	solid.MetaData.Set("Flags", props["Flags"])
	solid.MetaData.Set("ModelId", props["ModelId"])
	solid.MetaData.Set("HullSize", props["HullSize"])
	solid.MetaData.Set("Type", props["Type"])
	if group > 0 {
		solid.Visgroups = append(solid.Visgroups, group)
	}
	return solid, nil
}

func (d *decoder) readFace() (*mapdoc.Face, error) {
	props, err := d.readProperties(faceProperties)
	if err != nil {
		return nil, err
	}
	numPoints, err := d.intValue(props, "NumPoints")
	if err != nil {
		return nil, err
	}
	if numPoints < 3 {
		return nil, d.malformed("face needs at least 3 vertices", "3", props["NumPoints"])
	}

	// numPoints is unchecked input; only the hint is capped.
	points := make([]m.Vec3, 0, min(numPoints, 64))
	for i := 0; i < numPoints; i++ {
		line, err := d.readLine("Vec3d")
		if err != nil {
			return nil, err
		}
		fields := strings.Split(strings.TrimSpace(line), " ")
		if fields[0] != "Vec3d" {
			return nil, d.malformed(fmt.Sprintf("face declares %d vertices, found %d", numPoints, i), "Vec3d", fields[0])
		}
		if len(fields) != 4 {
			return nil, d.malformed("vertex needs 3 coordinates", "Vec3d x y z", line)
		}
		p, ok := parseVec3(fields[1:])
		if !ok {
			return nil, d.malformed("vertex coordinate is not a number", "Vec3d x y z", line)
		}
		points = append(points, ToInternal(p))
	}

	line, err := d.readLine("TexInfo")
	if err != nil {
		return nil, err
	}
	tex := strings.Split(strings.TrimSpace(line), " ")
	if tex[0] != "TexInfo" {
		return nil, d.malformed("unexpected property", "TexInfo", tex[0])
	}
	if len(tex) != 11 {
		return nil, d.malformed("texture info needs 11 fields", "11", strconv.Itoa(len(tex)))
	}

	poly, err := geometry.NewPolygon(points)
	if err != nil {
		return nil, d.malformed(err.Error(), "3", strconv.Itoa(len(points)))
	}
	plane, err := poly.Plane()
	if err != nil {
		return nil, d.malformed("face vertices are collinear", "", "")
	}
	face := mapdoc.NewFace(d.ids.NextFaceID(), poly.Points)

	if face.Flags, err = d.intValue(props, "Flags"); err != nil {
		return nil, err
	}
	if face.Light, err = d.intValue(props, "Light"); err != nil {
		return nil, err
	}
	if face.Translucency, err = d.floatValue(props, "Translucency"); err != nil {
		return nil, err
	}
	if face.MipMapBias, err = d.floatValue(props, "MipMapBias"); err != nil {
		return nil, err
	}
	if face.Reflectivity, err = d.floatValue(props, "Reflectivity"); err != nil {
		return nil, err
	}

	face.Texture.Name = strings.Trim(tex[10], `"`)
	alignTextureToWorld(face, plane)

	var texValues [5]float64
	for i, idx := range []int{4, 5, 2, 7, 8} {
		v, err := parseFloat(tex[idx])
		if err != nil {
			return nil, d.malformed("texture info value is not a number", "number", tex[idx])
		}
		texValues[i] = v
	}
	face.Texture.XShift = texValues[0]
	face.Texture.YShift = texValues[1]
	face.Texture.SetRotation(texValues[2])
	face.Texture.XScale = texValues[3]
	face.Texture.YScale = texValues[4]

	scale, err := d.readProperty("LightScale")
	if err != nil {
		return nil, err
	}
	parts := strings.Split(scale, " ")
	if len(parts) < 2 {
		return nil, d.malformed("light scale needs 2 values", "LightScale x y", scale)
	}
	sx, errX := parseFloat(parts[0])
	sy, errY := parseFloat(parts[1])
	if errX != nil || errY != nil {
		return nil, d.malformed("light scale is not a number", "LightScale x y", scale)
	}
	face.LightScale = &m.Vec2{X: sx, Y: sy}

	// Transform and Pos trail faces in some versions; their meaning is
	// unknown and they are skipped.
	for i := 0; i < d.grammar.FaceTrailer; i++ {
		if _, err := d.readLine("face trailer"); err != nil {
			return nil, err
		}
	}
	return face, nil
}

func (d *decoder) readEntityList(doc *mapdoc.Document) error {
	class, err := d.readProperty("Class")
	if err != nil {
		return err
	}
	if class != "CEntList" {
		return d.malformed("unexpected entity list class", "CEntList", class)
	}
	props, err := d.readProperties(entityListProperties)
	if err != nil {
		return err
	}
	count, err := d.intValue(props, "EntCount")
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		ent, err := d.readEntity()
		if err != nil {
			return fmt.Errorf("entity %d of %d: %w", i+1, count, err)
		}
		doc.Entities = append(doc.Entities, ent)
	}
	return nil
}

func (d *decoder) readEntity() (*mapdoc.Entity, error) {
	line, err := d.readLine("CEntity")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(line) != "CEntity" {
		return nil, d.malformed("unexpected record", "CEntity", line)
	}
	props, err := d.readProperties(entityProperties)
	if err != nil {
		return nil, err
	}

	ent := mapdoc.NewEntity(d.ids.NextObjectID(), "")
	if ent.Flags, err = d.intValue(props, "eFlags"); err != nil {
		return nil, err
	}
	pairs, err := d.intValue(props, "ePairCount")
	if err != nil {
		return nil, err
	}
	for i := 0; i < pairs; i++ {
		line, err := d.readLine("Key")
		if err != nil {
			return nil, err
		}
		if err := d.readKeyValue(ent, line); err != nil {
			return nil, err
		}
	}

	line, err = d.readLine("End CEntity")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(line) != "End CEntity" {
		return nil, d.malformed("unterminated entity", "End CEntity", line)
	}
	return ent, nil
}

// readKeyValue parses a `Key <key> Value "<value>"` line into ent.
func (d *decoder) readKeyValue(ent *mapdoc.Entity, line string) error {
	fields := strings.Split(strings.TrimLeft(line, "\t"), " ")
	if len(fields) < 4 || fields[0] != "Key" || fields[2] != "Value" {
		return d.malformed("bad key/value pair", `Key <key> Value "<value>"`, line)
	}
	key := strings.TrimSpace(fields[1])
	value := strings.Trim(strings.Join(fields[3:], " "), `"`)

	switch {
	case key == "classname":
		ent.ClassName = value
	case strings.EqualFold(key, "origin"):
		p, ok := parseVec3(strings.Split(value, " "))
		if !ok {
			return d.malformed("origin is not a point", "x y z", value)
		}
		ent.Origin = ToInternal(p)
	case key == "%name%":
		ent.Name = value
		ent.Properties.Set(key, value)
	default:
		if key == "color" {
			c, err := parseColour(value)
			if err != nil {
				return d.malformed("color is not r g b", "r g b", value)
			}
			ent.Colour = &c
		}
		ent.Properties.Set(key, value)
	}
	return nil
}

// readMotions reads count opaque motion blocks. A block runs until the next
// model start, a group record, or the end of input.
func (d *decoder) readMotions(count int) ([]*mapdoc.Motion, error) {
	var motions []*mapdoc.Motion
	for i := 0; i < count; i++ {
		motion := &mapdoc.Motion{}
		for {
			at := d.lr.Position()
			line, err := d.lr.ReadLine()
			if errors.Is(err, io.EOF) {
				break
			}
			if len(motion.Lines) > 0 && strings.HasPrefix(line, motionMarker) {
				d.lr.SetPosition(at)
				break
			}
			if strings.HasPrefix(line, groupMarker) {
				d.lr.SetPosition(at)
				break
			}
			motion.Lines = append(motion.Lines, line)
		}
		if len(motion.Lines) == 0 {
			return nil, &MalformedError{
				Line:     d.lr.Line() + 1,
				Msg:      fmt.Sprintf("expected %d motion blocks, found %d", count, i),
				Expected: motionMarker,
			}
		}
		motions = append(motions, motion)
	}
	d.log.Debug("read motion blocks", zap.Int("count", len(motions)))
	return motions, nil
}

func (d *decoder) readVisgroups(count int) ([]*mapdoc.Visgroup, error) {
	var groups []*mapdoc.Visgroup
	for i := 0; i < count; i++ {
		name, err := d.readProperty("Group")
		if err != nil {
			return nil, err
		}
		props, err := d.readProperties([]string{"GroupId", "Visible", "Locked", "Color"})
		if err != nil {
			return nil, err
		}
		id, err := d.intValue(props, "GroupId")
		if err != nil {
			return nil, err
		}
		colour, err := parseColour(props["Color"])
		if err != nil {
			return nil, d.malformed("group colour is not r g b", "r g b", props["Color"])
		}
		groups = append(groups, &mapdoc.Visgroup{
			ID:      id,
			Name:    name,
			Visible: strings.TrimSpace(props["Visible"]) == "1",
			Locked:  strings.TrimSpace(props["Locked"]) == "1",
			Colour:  colour,
		})
	}
	return groups, nil
}

// parseColour reads "r g b". Components may be written as decimals but
// must be whole numbers in 0..255.
func parseColour(s string) (color.RGBA, error) {
	fields := strings.Fields(s)
	if len(fields) < 3 {
		return color.RGBA{}, fmt.Errorf("want 3 components, got %d", len(fields))
	}
	var c [3]uint8
	for i := range c {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return color.RGBA{}, err
		}
		if v != math.Trunc(v) || v < 0 || v > 255 {
			return color.RGBA{}, fmt.Errorf("component %q out of range", fields[i])
		}
		c[i] = uint8(v)
	}
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: 255}, nil
}
