package formats

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/brushmap/pkg/geometry"
	"github.com/Faultbox/brushmap/pkg/mapdoc"
	m "github.com/Faultbox/brushmap/pkg/math"
)

// testBrush is a brush with face rings in editor coordinates.
type testBrush struct {
	name  string
	group int
	faces [][]m.Vec3
}

// testMap describes a 3DT document for createTest3DT.
type testMap struct {
	version  string
	extra    []string // stats after the six standard ones
	brushes  []testBrush
	entities [][]string
	motions  [][]string
	groups   []string
	tail     string
	trailer  bool
}

func createTest3DT(tm testMap) []byte {
	version := tm.version
	if version == "" {
		version = "1.35"
	}
	lines := []string{
		"3dtVersion " + version,
		`TextureLib "x"`,
		`HeadersDir "y"`,
		fmt.Sprintf("NumEntities %d", len(tm.entities)),
		fmt.Sprintf("NumModels %d", len(tm.motions)),
		fmt.Sprintf("NumGroups %d", len(tm.groups)/5),
		fmt.Sprintf("Brushlist %d", len(tm.brushes)),
	}
	lines = append(lines, tm.extra...)

	for _, b := range tm.brushes {
		lines = append(lines,
			fmt.Sprintf("Brush %q", b.name),
			"\tFlags 1",
			"\tModelId 0",
			fmt.Sprintf("\tGroupId %d", b.group),
			"\tHullSize 1.000000",
			"\tType 2",
			fmt.Sprintf("\tBrushFaces %d", len(b.faces)),
		)
		for _, ring := range b.faces {
			lines = append(lines,
				fmt.Sprintf("\t\tNumPoints %d", len(ring)),
				"\t\tFlags 512",
				"\t\tLight 300",
				"\t\tMipMapBias 1.000000",
				"\t\tTranslucency 255",
				"\t\tReflectivity 1.000000",
			)
			for _, p := range ring {
				lines = append(lines, "\t\t\tVec3d "+formatCoordinate(p))
			}
			lines = append(lines,
				`			TexInfo Rotate 0.000000 Shift 0 0 Scale 1.000000 1.000000 Name "stone"`,
				"\t\tLightScale 1.000000 1.000000",
			)
			if tm.trailer {
				lines = append(lines, "\tTransform\t1 0 0 0 1 0 0 0 1 0 0 0", "\tPos 0 0 0")
			}
		}
	}

	lines = append(lines, "Class CEntList", fmt.Sprintf("EntCount %d", len(tm.entities)), "CurEnt 0")
	for _, e := range tm.entities {
		lines = append(lines, e...)
	}
	for _, mo := range tm.motions {
		lines = append(lines, mo...)
	}
	lines = append(lines, tm.groups...)

	return []byte(strings.Join(lines, "\r\n") + "\r\n" + tm.tail)
}

// cubeFaces returns the six faces of the cube [min, min+size]^3 with
// mixed winding.
func cubeFaces(min, size float64) [][]m.Vec3 {
	a, b := min, min+size
	return [][]m.Vec3{
		{{X: a, Y: a, Z: a}, {X: b, Y: a, Z: a}, {X: b, Y: b, Z: a}, {X: a, Y: b, Z: a}},
		{{X: a, Y: a, Z: b}, {X: b, Y: a, Z: b}, {X: b, Y: b, Z: b}, {X: a, Y: b, Z: b}},
		{{X: a, Y: a, Z: a}, {X: b, Y: a, Z: a}, {X: b, Y: a, Z: b}, {X: a, Y: a, Z: b}},
		{{X: a, Y: b, Z: b}, {X: b, Y: b, Z: b}, {X: b, Y: b, Z: a}, {X: a, Y: b, Z: a}},
		{{X: a, Y: a, Z: a}, {X: a, Y: b, Z: a}, {X: a, Y: b, Z: b}, {X: a, Y: a, Z: b}},
		{{X: b, Y: a, Z: b}, {X: b, Y: b, Z: b}, {X: b, Y: b, Z: a}, {X: b, Y: a, Z: a}},
	}
}

func lightEntity() []string {
	return []string{
		"CEntity ",
		"eStyle 0",
		"eOrigin 32 64 -16 0",
		"eFlags 0",
		"eGroup 0",
		"ePairCount 5",
		`Key classname Value "light"`,
		`Key origin Value "32 64 -16"`,
		`Key %name% Value "lamp"`,
		`Key color Value "255 128 0"`,
		`Key light Value "200"`,
		"End CEntity",
	}
}

func doorMotion() []string {
	return []string{
		`Model "door"`,
		"\tModelId 1",
		"\tCurrentKeyTime 0.000000",
		"\tTransform",
		"1 0 0 0 1 0 0 0 1 0 0 0",
		"\tMotion 1",
		"KeyframeCount 2",
	}
}

func visgroup(name string, id int) []string {
	return []string{
		fmt.Sprintf("Group %q", name),
		fmt.Sprintf("\tGroupId %d", id),
		"\tVisible 1",
		"\tLocked 0",
		"Color 255 255 255",
	}
}

func fullTestMap() testMap {
	groups := append(visgroup("walls", 1), visgroup("floor", 2)...)
	return testMap{
		brushes: []testBrush{
			{name: "wall", group: 1, faces: cubeFaces(0, 64)},
			{name: "crate", group: 0, faces: cubeFaces(128, 32)},
		},
		entities: [][]string{lightEntity()},
		motions:  [][]string{doorMotion(), {`Model "lift"`, "\tModelId 2"}},
		groups:   groups,
		tail:     "Extra trailing data\r\nthat nobody parses\r\n",
	}
}

func TestDecode3DT_MinimalScenario(t *testing.T) {
	quad := []m.Vec3{{}, {X: 64}, {X: 64, Y: 64}, {Y: 64}}
	data := createTest3DT(testMap{
		brushes: []testBrush{{name: "floor", faces: [][]m.Vec3{quad}}},
		groups:  visgroup("Auto", 0),
	})

	doc, err := Parse3DT(data)
	if err != nil {
		t.Fatalf("Parse3DT failed: %v", err)
	}

	if doc.Version != "1.35" {
		t.Errorf("expected version 1.35, got %q", doc.Version)
	}
	solids := doc.Solids()
	if len(solids) != 1 {
		t.Fatalf("expected 1 solid, got %d", len(solids))
	}
	if len(solids[0].Faces) != 1 {
		t.Fatalf("expected 1 face, got %d", len(solids[0].Faces))
	}
	face := solids[0].Faces[0]
	if len(face.Vertices) != 4 {
		t.Errorf("expected 4 vertices, got %d", len(face.Vertices))
	}
	pl, err := face.Plane()
	if err != nil {
		t.Fatalf("face plane: %v", err)
	}
	if math.Abs(pl.Normal.X) > 1e-9 || math.Abs(pl.Normal.Y) > 1e-9 || math.Abs(math.Abs(pl.Normal.Z)-1) > 1e-9 {
		t.Errorf("expected normal (0,0,+-1), got %v", pl.Normal)
	}
	if len(doc.Visgroups) != 1 || doc.Visgroups[0].Name != "Auto" || doc.Visgroups[0].ID != 0 {
		t.Errorf("unexpected visgroups: %+v", doc.Visgroups)
	}
	if len(doc.Motions) != 0 {
		t.Errorf("expected no motions, got %d", len(doc.Motions))
	}

	out, err := New3DTCodec().Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	text := string(out)
	for _, want := range []string{
		"3dtVersion 1.35\r\n",
		"TextureLib \"x\"\r\nHeadersDir \"y\"\r\n",
		"NumModels 0\r\n",
		"NumGroups 1\r\n",
		"Brushlist 1\r\n",
		"Group \"Auto\"\r\n\tGroupId 0\r\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("encoded output missing %q", want)
		}
	}

	again, err := Parse3DT(out)
	if err != nil {
		t.Fatalf("re-decode failed: %v", err)
	}
	if len(again.Solids()) != 1 || len(again.Visgroups) != 1 {
		t.Errorf("re-decoded %d solids and %d visgroups", len(again.Solids()), len(again.Visgroups))
	}
	for _, key := range []string{"TextureLib", "HeadersDir", "NumModels", "NumGroups", "Brushlist"} {
		a, _ := doc.Stats.Get(key)
		b, _ := again.Stats.Get(key)
		if a != b {
			t.Errorf("stat %s: %q then %q", key, a, b)
		}
	}
}

func TestDecode3DT_WindingPointsOutward(t *testing.T) {
	doc, err := Parse3DT(createTest3DT(fullTestMap()))
	if err != nil {
		t.Fatalf("Parse3DT failed: %v", err)
	}

	for _, s := range doc.Solids() {
		ref := s.Origin()
		for _, f := range s.Faces {
			pl, err := f.Plane()
			if err != nil {
				t.Fatalf("solid %q face %d: %v", s.ClassName, f.ID, err)
			}
			if d := pl.SignedDistance(ref); d >= 0 {
				t.Errorf("solid %q face %d: reference point at distance %v, want < 0", s.ClassName, f.ID, d)
			}
		}
	}
}

func TestDecode3DT_Structure(t *testing.T) {
	doc, err := Parse3DT(createTest3DT(fullTestMap()))
	if err != nil {
		t.Fatalf("Parse3DT failed: %v", err)
	}

	solids := doc.Solids()
	if len(solids) != 2 {
		t.Fatalf("expected 2 solids, got %d", len(solids))
	}
	wall := solids[0]
	if wall.ClassName != "wall" {
		t.Errorf("expected brush name wall, got %q", wall.ClassName)
	}
	if len(wall.Visgroups) != 1 || wall.Visgroups[0] != 1 {
		t.Errorf("expected wall in visgroup 1, got %v", wall.Visgroups)
	}
	if len(solids[1].Visgroups) != 0 {
		t.Errorf("GroupId 0 should not create a membership, got %v", solids[1].Visgroups)
	}
	if got := wall.MetaData.GetOr("HullSize", ""); got != "1.000000" {
		t.Errorf("HullSize metadata = %q", got)
	}
	for _, f := range wall.Faces {
		if f.SolidID != wall.ID {
			t.Errorf("face %d SolidID = %d, want %d", f.ID, f.SolidID, wall.ID)
		}
		for _, v := range f.Vertices {
			if v.FaceID != f.ID {
				t.Errorf("vertex FaceID = %d, want %d", v.FaceID, f.ID)
			}
		}
		if f.Texture.Name != "stone" || f.Light != 300 || f.Flags != 512 || f.Translucency != 255 {
			t.Errorf("face fields not decoded: %+v", f)
		}
		if f.LightScale == nil || *f.LightScale != (m.Vec2{X: 1, Y: 1}) {
			t.Errorf("LightScale = %v", f.LightScale)
		}
	}
	box := wall.BoundingBox()
	if box.Min != (m.Vec3{}) || box.Max != (m.Vec3{X: 64, Y: 64, Z: 64}) {
		t.Errorf("wall box = %v..%v", box.Min, box.Max)
	}

	if len(doc.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(doc.Entities))
	}
	ent := doc.Entities[0]
	if ent.ClassName != "light" || ent.Name != "lamp" {
		t.Errorf("entity class/name = %q/%q", ent.ClassName, ent.Name)
	}
	if ent.Origin != (m.Vec3{X: 32, Y: 16, Z: 64}) {
		t.Errorf("entity origin = %v, want (32,16,64)", ent.Origin)
	}
	if ent.Colour == nil || *ent.Colour != (color.RGBA{R: 255, G: 128, A: 255}) {
		t.Errorf("entity colour = %v", ent.Colour)
	}
	if _, ok := ent.Properties.Get("%name%"); !ok {
		t.Error("%name% should stay in the properties")
	}
	if _, ok := ent.Properties.Get("origin"); ok {
		t.Error("origin should not be kept as a property")
	}
	if v, _ := ent.Properties.Get("light"); v != "200" {
		t.Errorf("light property = %q", v)
	}

	if len(doc.Motions) != 2 {
		t.Fatalf("expected 2 motions, got %d", len(doc.Motions))
	}
	if got := doc.Motions[0].Lines; strings.Join(got, "\n") != strings.Join(doorMotion(), "\n") {
		t.Errorf("motion lines = %q", got)
	}
	if len(doc.Visgroups) != 2 || doc.Visgroups[1].Name != "floor" || !doc.Visgroups[1].Visible {
		t.Errorf("visgroups = %+v", doc.Visgroups)
	}
	if string(doc.Tail) != "Extra trailing data\r\nthat nobody parses\r\n" {
		t.Errorf("tail = %q", doc.Tail)
	}
}

func TestDecode3DT_EntityListFollowsBrushes(t *testing.T) {
	// The line that ends the brush section must be read again as the
	// first line of the entity list.
	data := createTest3DT(testMap{
		brushes:  []testBrush{{name: "b", faces: cubeFaces(0, 16)}},
		entities: [][]string{lightEntity()},
	})
	doc, err := Parse3DT(data)
	if err != nil {
		t.Fatalf("Parse3DT failed: %v", err)
	}
	if len(doc.Solids()) != 1 || len(doc.Entities) != 1 {
		t.Errorf("got %d solids, %d entities", len(doc.Solids()), len(doc.Entities))
	}
	if len(doc.Tail) != 0 {
		t.Errorf("expected empty tail, got %q", doc.Tail)
	}
}

func TestDecode3DT_VersionWithTrailer(t *testing.T) {
	tm := fullTestMap()
	tm.version = "1.36"
	tm.extra = []string{`ActorsDir "actors"`, `PawnIni "pawn.ini"`}
	tm.trailer = true

	doc, err := Parse3DT(createTest3DT(tm))
	if err != nil {
		t.Fatalf("Parse3DT failed: %v", err)
	}
	if doc.Stats.Len() != 8 {
		t.Errorf("expected 8 stats, got %d", doc.Stats.Len())
	}
	if v, _ := doc.Stats.Get("PawnIni"); v != "pawn.ini" {
		t.Errorf("PawnIni = %q", v)
	}
	if len(doc.Solids()) != 2 || len(doc.Entities) != 1 || len(doc.Motions) != 2 {
		t.Errorf("got %d solids, %d entities, %d motions", len(doc.Solids()), len(doc.Entities), len(doc.Motions))
	}
}

func TestDecode3DT_MotionEndsAtEOF(t *testing.T) {
	data := createTest3DT(testMap{motions: [][]string{doorMotion()}})
	doc, err := Parse3DT(data)
	if err != nil {
		t.Fatalf("Parse3DT failed: %v", err)
	}
	if len(doc.Motions) != 1 || len(doc.Motions[0].Lines) != len(doorMotion()) {
		t.Errorf("motions = %+v", doc.Motions)
	}
}

func TestDecode3DT_Malformed(t *testing.T) {
	valid := string(createTest3DT(fullTestMap()))

	tests := []struct {
		name     string
		data     string
		expected string
	}{
		{
			name:     "vertex count mismatch",
			data:     strings.Replace(valid, "\t\tNumPoints 4", "\t\tNumPoints 5", 1),
			expected: "Vec3d",
		},
		{
			name:     "wrong property name",
			data:     strings.Replace(valid, "\tModelId 0", "\tModelID 0", 1),
			expected: "ModelId",
		},
		{
			name:     "too few points",
			data:     strings.Replace(valid, "\t\tNumPoints 4", "\t\tNumPoints 2", 1),
			expected: "3",
		},
		{
			name:     "non-numeric count",
			data:     strings.Replace(valid, "\tBrushFaces 6", "\tBrushFaces six", 1),
			expected: "integer",
		},
		{
			name:     "short texture info",
			data:     strings.Replace(valid, `Scale 1.000000 1.000000 Name "stone"`, `Name "stone"`, 1),
			expected: "11",
		},
		{
			name:     "bad entity list",
			data:     strings.Replace(valid, "Class CEntList", "Class CList", 1),
			expected: "CEntList",
		},
		{
			name:     "unterminated entity",
			data:     strings.Replace(valid, "End CEntity", "End Something", 1),
			expected: "End CEntity",
		},
		{
			name:     "bad key value",
			data:     strings.Replace(valid, `Key light Value "200"`, `Key light Val "200"`, 1),
			expected: `Key <key> Value "<value>"`,
		},
		{
			name:     "bad version",
			data:     strings.Replace(valid, "3dtVersion 1.35", "3dtVersion one", 1),
			expected: "number",
		},
		{
			name:     "huge vertex count",
			data:     strings.Replace(valid, "\t\tNumPoints 4", "\t\tNumPoints 99999999999999", 1),
			expected: "Vec3d",
		},
		{
			name:     "vertex count beyond memory",
			data:     strings.Replace(valid, "\t\tNumPoints 4", "\t\tNumPoints 1000000000000", 1),
			expected: "Vec3d",
		},
		{
			name:     "truncated in brushes",
			data:     valid[:strings.Index(valid, "Class CEntList")],
			expected: "Class CEntList",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse3DT([]byte(tt.data))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, ErrMalformedDocument) {
				t.Fatalf("expected ErrMalformedDocument, got %v", err)
			}
			var me *MalformedError
			if !errors.As(err, &me) {
				t.Fatalf("expected *MalformedError, got %T", err)
			}
			if me.Expected != tt.expected {
				t.Errorf("Expected = %q, want %q (%v)", me.Expected, tt.expected, err)
			}
		})
	}
}

func TestDecode3DT_MissingMotion(t *testing.T) {
	data := createTest3DT(testMap{groups: visgroup("walls", 1)})
	text := strings.Replace(string(data), "NumModels 0", "NumModels 1", 1)

	_, err := Parse3DT([]byte(text))
	if !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("expected ErrMalformedDocument when a group replaces a motion, got %v", err)
	}
}

func TestDecode3DT_CollinearFace(t *testing.T) {
	line := []m.Vec3{{}, {X: 1}, {X: 2}, {X: 3}}
	data := createTest3DT(testMap{brushes: []testBrush{{name: "flat", faces: [][]m.Vec3{line}}}})

	_, err := Parse3DT(data)
	if !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("expected ErrMalformedDocument, got %v", err)
	}
}

func TestCodec3DT_RoundTrip(t *testing.T) {
	codec := New3DTCodec()
	first, err := codec.DecodeBytes(createTest3DT(fullTestMap()))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	encoded, err := codec.Marshal(first)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	second, err := codec.Decode(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("re-decode failed: %v", err)
	}

	assertSameDocument(t, first, second)

	again, err := codec.Marshal(second)
	if err != nil {
		t.Fatalf("second encode failed: %v", err)
	}
	if !bytes.Equal(encoded, again) {
		t.Error("encoding is not stable across a decode/encode cycle")
	}
}

func assertSameDocument(t *testing.T, a, b *mapdoc.Document) {
	t.Helper()

	as, bs := a.Solids(), b.Solids()
	if len(as) != len(bs) {
		t.Fatalf("solid count %d vs %d", len(as), len(bs))
	}
	for i := range as {
		if as[i].ClassName != bs[i].ClassName || !as[i].MetaData.Equal(bs[i].MetaData) {
			t.Errorf("solid %d header differs", i)
		}
		if fmt.Sprint(as[i].Visgroups) != fmt.Sprint(bs[i].Visgroups) {
			t.Errorf("solid %d visgroups %v vs %v", i, as[i].Visgroups, bs[i].Visgroups)
		}
		if len(as[i].Faces) != len(bs[i].Faces) {
			t.Fatalf("solid %d face count %d vs %d", i, len(as[i].Faces), len(bs[i].Faces))
		}
		for j, fa := range as[i].Faces {
			fb := bs[i].Faces[j]
			if len(fa.Vertices) != len(fb.Vertices) {
				t.Fatalf("solid %d face %d vertex count differs", i, j)
			}
			for k := range fa.Vertices {
				if !fa.Vertices[k].Location.ApproxEqual(fb.Vertices[k].Location, 1e-6) {
					t.Errorf("solid %d face %d vertex %d: %v vs %v", i, j, k, fa.Vertices[k].Location, fb.Vertices[k].Location)
				}
			}
			ta, tb := fa.Texture, fb.Texture
			if ta.Name != tb.Name || ta.Rotation != tb.Rotation || ta.XScale != tb.XScale ||
				!ta.UAxis.ApproxEqual(tb.UAxis, 1e-6) || !ta.VAxis.ApproxEqual(tb.VAxis, 1e-6) {
				t.Errorf("solid %d face %d texture %+v vs %+v", i, j, ta, tb)
			}
			if fa.Flags != fb.Flags || fa.Light != fb.Light || fa.Translucency != fb.Translucency {
				t.Errorf("solid %d face %d attributes differ", i, j)
			}
		}
	}

	if len(a.Entities) != len(b.Entities) {
		t.Fatalf("entity count %d vs %d", len(a.Entities), len(b.Entities))
	}
	for i, ea := range a.Entities {
		eb := b.Entities[i]
		if ea.ClassName != eb.ClassName || ea.Name != eb.Name || ea.Flags != eb.Flags {
			t.Errorf("entity %d header differs", i)
		}
		if !ea.Origin.ApproxEqual(eb.Origin, 1e-6) {
			t.Errorf("entity %d origin %v vs %v", i, ea.Origin, eb.Origin)
		}
		if !ea.Properties.Equal(eb.Properties) {
			t.Errorf("entity %d properties %v vs %v", i, ea.Properties.Keys(), eb.Properties.Keys())
		}
	}

	if len(a.Motions) != len(b.Motions) {
		t.Fatalf("motion count %d vs %d", len(a.Motions), len(b.Motions))
	}
	for i := range a.Motions {
		if strings.Join(a.Motions[i].Lines, "\n") != strings.Join(b.Motions[i].Lines, "\n") {
			t.Errorf("motion %d differs", i)
		}
	}

	if len(a.Visgroups) != len(b.Visgroups) {
		t.Fatalf("visgroup count %d vs %d", len(a.Visgroups), len(b.Visgroups))
	}
	for i := range a.Visgroups {
		if *a.Visgroups[i] != *b.Visgroups[i] {
			t.Errorf("visgroup %d: %+v vs %+v", i, a.Visgroups[i], b.Visgroups[i])
		}
	}

	if !bytes.Equal(a.Tail, b.Tail) {
		t.Errorf("tail %q vs %q", a.Tail, b.Tail)
	}
}

func newEncodeDoc() *mapdoc.Document {
	doc := mapdoc.NewDocument(mapdoc.NewSequentialIDs())
	doc.Stats.Set("TextureLib", "tex.txl")
	doc.Stats.Set("HeadersDir", "headers")
	return doc
}

func TestEncode3DT_Output(t *testing.T) {
	doc := newEncodeDoc()

	solid := mapdoc.NewSolid(10, "")
	solid.Visgroups = []int{3}
	face := mapdoc.NewFace(20, []m.Vec3{{}, {X: 64}, {X: 64, Y: 64}})
	face.Texture.Name = "rock"
	face.Texture.XShift = 2.5
	face.Texture.XScale = 1
	face.Texture.YScale = 1
	solid.AddFace(face)
	doc.World.AddChild(solid)

	light := mapdoc.NewEntity(30, "light")
	light.Origin = m.Vec3{X: 1.4, Y: -2.5, Z: 3}
	light.Name = "lamp"
	light.Properties.Set("light", "200")
	doc.World.AddChild(light)

	start := mapdoc.NewEntity(31, "PlayerStart")
	doc.Entities = append(doc.Entities, start)

	doc.Visgroups = []*mapdoc.Visgroup{
		{ID: 0, Name: "Auto", Auto: true},
		{ID: 3, Name: "walls", Visible: true, Locked: true, Colour: color.RGBA{R: 1, G: 2, B: 3, A: 255}},
	}

	out, err := New3DTCodec(WithLineEnding(LineEndingLF)).Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	text := string(out)

	if strings.Contains(text, "\r") {
		t.Error("LF codec wrote a carriage return")
	}
	for _, want := range []string{
		"3dtVersion 1.35\nTextureLib \"tex.txl\"\nHeadersDir \"headers\"\nNumEntities 2\nNumModels 0\nNumGroups 1\nBrushlist 1\n",
		"Brush \"NoName\"\n\tFlags 1\n\tModelId 0\n\tGroupId 3\n\tHullSize 1.000000\n\tType 2\n\tBrushFaces 1\n",
		"\t\tNumPoints 3\n\t\tFlags 512\n\t\tLight 0\n\t\tMipMapBias 1.000000\n\t\tTranslucency 0\n\t\tReflectivity 1.000000\n",
		"\t\t\tVec3d 64.000000 0.000000 0.000000\n",
		"\t\t\tTexInfo Rotate 0.000000 Shift 3 0 Scale 1.000000 1.000000 Name \"rock\"\n",
		"\t\tLightScale 1.000000 1.000000\n",
		"Class CEntList\nEntCount 2\nCurEnt 0\n",
		"CEntity \neStyle 0\neOrigin 1 3 3 0\neFlags 0\neGroup 0\nePairCount 4\n",
		"Key classname Value \"light\"\nKey origin Value \"1 3 3\"\nKey light Value \"200\"\nKey %name% Value \"lamp\"\nEnd CEntity\n",
		"Key classname Value \"PlayerStart\"\nKey Origin Value \"0 0 0\"\nEnd CEntity\n",
		"Group \"walls\"\n\tGroupId 3\n\tVisible 1\n\tLocked 1\nColor 1 2 3\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing:\n%s\n--- got ---\n%s", want, text)
		}
	}
	if strings.Contains(text, `Group "Auto"`) {
		t.Error("auto visgroup should not be written")
	}
}

func TestEncode3DT_Errors(t *testing.T) {
	noTextureLib := mapdoc.NewDocument(mapdoc.NewSequentialIDs())
	noTextureLib.Stats.Set("HeadersDir", "h")

	noStats := newEncodeDoc()
	noStats.Stats = nil

	thinFace := newEncodeDoc()
	solid := mapdoc.NewSolid(2, "thin")
	solid.AddFace(mapdoc.NewFace(3, []m.Vec3{{}, {X: 1}}))
	thinFace.World.AddChild(solid)

	tests := []struct {
		name string
		doc  *mapdoc.Document
		want error
	}{
		{"nil document", nil, ErrMissingPayload},
		{"nil stats", noStats, ErrMissingPayload},
		{"missing TextureLib", noTextureLib, ErrMissingPayload},
		{"face with two vertices", thinFace, ErrMalformedDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := New3DTCodec().Encode(&buf, tt.doc)
			if !errors.Is(err, tt.want) {
				t.Errorf("Encode() error = %v, want %v", err, tt.want)
			}
			if buf.Len() != 0 {
				t.Errorf("Encode wrote %d bytes on error", buf.Len())
			}
		})
	}
}

func TestCodec3DT_SharedIDGenerator(t *testing.T) {
	ids := mapdoc.NewSequentialIDs()
	codec := New3DTCodec(WithIDGenerator(ids))
	data := createTest3DT(fullTestMap())

	a, err := codec.DecodeBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	b, err := codec.DecodeBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	if a.World.ID == b.World.ID {
		t.Error("a shared generator should not hand out the same ID twice")
	}

	fresh, err := Parse3DT(data)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.World.ID != 1 {
		t.Errorf("default decode should start IDs at 1, got %d", fresh.World.ID)
	}
}

func TestLoadSave3DT(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.3dt")
	out := filepath.Join(dir, "out.3dt")
	if err := os.WriteFile(in, createTest3DT(fullTestMap()), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load3DT(in)
	if err != nil {
		t.Fatalf("Load3DT failed: %v", err)
	}
	if err := Save3DT(out, doc); err != nil {
		t.Fatalf("Save3DT failed: %v", err)
	}
	back, err := Load3DT(out)
	if err != nil {
		t.Fatalf("Load3DT(saved) failed: %v", err)
	}
	assertSameDocument(t, doc, back)

	if _, err := Load3DT(filepath.Join(dir, "missing.3dt")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestDecode3DT_StatCountPosition(t *testing.T) {
	valid := string(createTest3DT(testMap{}))

	tests := []struct {
		name   string
		data   string
		line   int
		offset int
	}{
		{
			name:   "count is not a number",
			data:   strings.Replace(valid, "NumModels 0", "NumModels many", 1),
			line:   5,
			offset: strings.Index(valid, "NumModels"),
		},
		{
			name:   "count missing from header",
			data:   strings.Replace(valid, "NumGroups 0", "NumGroupz 0", 1),
			line:   1,
			offset: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse3DT([]byte(tt.data))
			var me *MalformedError
			if !errors.As(err, &me) {
				t.Fatalf("expected *MalformedError, got %v", err)
			}
			if me.Line != tt.line || me.Offset != tt.offset {
				t.Errorf("position = line %d offset %d, want line %d offset %d", me.Line, me.Offset, tt.line, tt.offset)
			}
		})
	}
}

// Origins and texture shifts are written as integers, so fractions do not
// survive an encode.
func TestEncode3DT_RoundsOriginsAndShifts(t *testing.T) {
	doc := newEncodeDoc()
	solid := mapdoc.NewSolid(2, "crate")
	for i, ring := range cubeFaces(0, 64) {
		f := mapdoc.NewFace(int64(10+i), ring)
		f.Texture = mapdoc.Texture{Name: "wood", XScale: 1, YScale: 1}
		solid.AddFace(f)
	}
	solid.Faces[0].Texture.XShift = 2.25
	solid.Faces[0].Texture.YShift = -2.5
	doc.World.AddChild(solid)

	start := mapdoc.NewEntity(3, "PlayerStart")
	start.Origin = m.Vec3{X: 10.4, Y: -3.3, Z: 7.6}
	doc.Entities = append(doc.Entities, start)

	data, err := New3DTCodec().Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	back, err := Parse3DT(data)
	if err != nil {
		t.Fatalf("Parse3DT failed: %v", err)
	}

	if got, want := back.Entities[0].Origin, (m.Vec3{X: 10, Y: -3, Z: 8}); !got.ApproxEqual(want, 1e-9) {
		t.Errorf("origin = %v, want %v", got, want)
	}
	tex := back.Solids()[0].Faces[0].Texture
	if tex.XShift != 2 || tex.YShift != -3 {
		t.Errorf("shift = (%v, %v), want (2, -3)", tex.XShift, tex.YShift)
	}
}

// sameRing reports whether b is a rotation of a.
func sameRing(a, b []m.Vec3) bool {
	if len(a) != len(b) {
		return false
	}
	n := len(a)
	for shift := 0; shift < n; shift++ {
		ok := true
		for i := 0; i < n && ok; i++ {
			ok = a[(i+shift)%n].ApproxEqual(b[i], 1e-6)
		}
		if ok {
			return true
		}
	}
	return false
}

func reversed(points []m.Vec3) []m.Vec3 {
	out := make([]m.Vec3, len(points))
	for i, p := range points {
		out[len(points)-1-i] = p
	}
	return out
}

func TestCodec3DT_RoundTripBuiltDocument(t *testing.T) {
	doc := newEncodeDoc()
	solid := mapdoc.NewSolid(2, "crate")
	rings := cubeFaces(-32, 96)
	for i, ring := range rings {
		f := mapdoc.NewFace(int64(10+i), ring)
		f.Texture = mapdoc.Texture{Name: "wood", XScale: 1, YScale: 1}
		solid.AddFace(f)
	}
	doc.World.AddChild(solid)

	lamp := mapdoc.NewEntity(3, "light")
	lamp.Origin = m.Vec3{X: 16, Y: -8, Z: 4}
	lamp.Name = "lamp"
	lamp.Properties.Set("light", "250")
	doc.Entities = append(doc.Entities, lamp)

	doc.Motions = []*mapdoc.Motion{{Lines: []string{`Model "lift"`, "\tModelId 1", "KeyCount 0"}}}
	doc.Visgroups = []*mapdoc.Visgroup{{ID: 1, Name: "crates", Visible: true, Colour: color.RGBA{R: 9, G: 8, B: 7, A: 255}}}
	solid.Visgroups = []int{1}

	data, err := New3DTCodec().Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	back, err := Parse3DT(data)
	if err != nil {
		t.Fatalf("Parse3DT failed: %v", err)
	}

	solids := back.Solids()
	if len(solids) != 1 || len(solids[0].Faces) != len(rings) {
		t.Fatalf("decoded %d solids", len(solids))
	}
	centre := m.Vec3{X: 16, Y: 16, Z: 16}
	for i, ring := range rings {
		got := solids[0].Faces[i].Points()

		pl, err := geometry.PlaneOfRing(ring)
		if err != nil {
			t.Fatal(err)
		}
		inward := pl.SignedDistance(centre) > 0
		want := ring
		if inward {
			want = reversed(ring)
		}
		if !sameRing(want, got) {
			t.Errorf("face %d (inward=%v): ring %v, want rotation of %v", i, inward, got, want)
		}

		out, err := solids[0].Faces[i].Plane()
		if err != nil {
			t.Fatal(err)
		}
		if out.SignedDistance(centre) >= 0 {
			t.Errorf("face %d normal %v points inward", i, out.Normal)
		}
	}
	if fmt.Sprint(solids[0].Visgroups) != "[1]" {
		t.Errorf("visgroups = %v", solids[0].Visgroups)
	}

	if len(back.Entities) != 1 {
		t.Fatalf("decoded %d entities", len(back.Entities))
	}
	e := back.Entities[0]
	if e.ClassName != "light" || e.Name != "lamp" || !e.Origin.ApproxEqual(lamp.Origin, 1e-9) {
		t.Errorf("entity = %s %q %v", e.ClassName, e.Name, e.Origin)
	}
	if v, _ := e.Properties.Get("light"); v != "250" {
		t.Errorf("light property = %q", v)
	}
	if len(back.Motions) != 1 || strings.Join(back.Motions[0].Lines, "|") != strings.Join(doc.Motions[0].Lines, "|") {
		t.Errorf("motions = %+v", back.Motions)
	}
	if len(back.Visgroups) != 1 || *back.Visgroups[0] != *doc.Visgroups[0] {
		t.Errorf("visgroups = %+v", back.Visgroups)
	}
}
