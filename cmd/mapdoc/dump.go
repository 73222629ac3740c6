package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/brushmap/pkg/formats"
	"github.com/Faultbox/brushmap/pkg/mapdoc"
	m "github.com/Faultbox/brushmap/pkg/math"
)

// YAML export model. Coordinates are in file axis order.
type dumpDocument struct {
	Version   string         `yaml:"version"`
	Stats     *yaml.Node     `yaml:"stats"`
	Brushes   []dumpBrush    `yaml:"brushes"`
	Entities  []dumpEntity   `yaml:"entities,omitempty"`
	Motions   []dumpMotion   `yaml:"motions,omitempty"`
	Visgroups []dumpVisgroup `yaml:"visgroups,omitempty"`
	TailBytes int            `yaml:"tail_bytes"`
}

type dumpBrush struct {
	ID        int64      `yaml:"id"`
	Name      string     `yaml:"name"`
	Visgroups []int      `yaml:"visgroups,flow,omitempty"`
	Colour    string     `yaml:"colour"`
	Meta      *yaml.Node `yaml:"meta"`
	Min       [3]float64 `yaml:"min,flow"`
	Max       [3]float64 `yaml:"max,flow"`
	FaceCount int        `yaml:"face_count"`
	Faces     []dumpFace `yaml:"faces,omitempty"`
}

type dumpFace struct {
	Texture  string       `yaml:"texture"`
	Normal   [3]float64   `yaml:"normal,flow"`
	Vertices [][3]float64 `yaml:"vertices,flow"`
	Flags    int          `yaml:"flags"`
	Light    int          `yaml:"light"`
	Rotation float64      `yaml:"rotation,omitempty"`
	Shift    [2]float64   `yaml:"shift,flow"`
	Scale    [2]float64   `yaml:"scale,flow"`
}

type dumpEntity struct {
	Class      string     `yaml:"class"`
	Name       string     `yaml:"name,omitempty"`
	Origin     [3]float64 `yaml:"origin,flow"`
	Properties *yaml.Node `yaml:"properties"`
}

type dumpMotion struct {
	Name  string `yaml:"name"`
	Lines int    `yaml:"lines"`
}

type dumpVisgroup struct {
	ID      int    `yaml:"id"`
	Name    string `yaml:"name"`
	Visible bool   `yaml:"visible"`
	Locked  bool   `yaml:"locked"`
	Colour  string `yaml:"colour"`
}

func dumpFlags(fs *pflag.FlagSet) func(*app, []string) error {
	geometry := fs.BoolP("geometry", "g", false, "Include face vertices and texture mapping")
	return func(a *app, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("usage: mapdoc dump <file.3dt>")
		}
		doc, _, err := a.load(args[0])
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(a.dump(doc, *geometry)); err != nil {
			return fmt.Errorf("writing YAML: %w", err)
		}
		return enc.Close()
	}
}

func (a *app) dump(doc *mapdoc.Document, geometry bool) dumpDocument {
	solids, entities, _ := mapdoc.Flatten(doc)
	out := dumpDocument{
		Version:   doc.Version,
		Stats:     a.propertyNode(doc.Stats),
		TailBytes: len(doc.Tail),
	}

	for _, s := range solids {
		box := s.BoundingBox()
		lo, hi := formats.ToExternal(box.Min), formats.ToExternal(box.Max)
		b := dumpBrush{
			ID:        s.ID,
			Name:      a.text.ToUTF8(s.ClassName),
			Visgroups: s.Visgroups,
			Colour:    fmt.Sprintf("#%02x%02x%02x", s.Colour.R, s.Colour.G, s.Colour.B),
			Meta:      a.propertyNode(s.MetaData),
			Min:       external(lo.Min(hi)),
			Max:       external(lo.Max(hi)),
			FaceCount: len(s.Faces),
		}
		if geometry {
			for _, f := range s.Faces {
				b.Faces = append(b.Faces, a.dumpFace(f))
			}
		}
		out.Brushes = append(out.Brushes, b)
	}

	for _, e := range entities {
		out.Entities = append(out.Entities, dumpEntity{
			Class:      a.text.ToUTF8(e.ClassName),
			Name:       a.text.ToUTF8(e.Name),
			Origin:     external(formats.ToExternal(e.Origin)),
			Properties: a.propertyNode(e.Properties),
		})
	}

	for _, mo := range doc.Motions {
		name := ""
		if len(mo.Lines) > 0 {
			_, name = formats.ReadProperty(mo.Lines[0])
		}
		out.Motions = append(out.Motions, dumpMotion{Name: a.text.ToUTF8(name), Lines: len(mo.Lines)})
	}

	for _, v := range doc.Visgroups {
		out.Visgroups = append(out.Visgroups, dumpVisgroup{
			ID:      v.ID,
			Name:    a.text.ToUTF8(v.Name),
			Visible: v.Visible,
			Locked:  v.Locked,
			Colour:  fmt.Sprintf("#%02x%02x%02x", v.Colour.R, v.Colour.G, v.Colour.B),
		})
	}
	return out
}

func (a *app) dumpFace(f *mapdoc.Face) dumpFace {
	df := dumpFace{
		Texture:  a.text.ToUTF8(f.Texture.Name),
		Flags:    f.Flags,
		Light:    f.Light,
		Rotation: f.Texture.Rotation,
		Shift:    [2]float64{f.Texture.XShift, f.Texture.YShift},
		Scale:    [2]float64{f.Texture.XScale, f.Texture.YScale},
	}
	if pl, err := f.Plane(); err == nil {
		df.Normal = external(formats.ToExternal(pl.Normal))
	}
	for _, v := range f.Vertices {
		df.Vertices = append(df.Vertices, external(formats.ToExternal(v.Location)))
	}
	return df
}

// propertyNode renders an ordered property map as a YAML mapping that
// keeps the insertion order.
func (a *app) propertyNode(p *mapdoc.Properties) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	p.Each(func(k, v string) {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: a.text.ToUTF8(k)},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: a.text.ToUTF8(v)},
		)
	})
	return node
}

// external rounds away float noise so the export stays readable.
func external(v m.Vec3) [3]float64 {
	return [3]float64{round6(v.X), round6(v.Y), round6(v.Z)}
}

func round6(f float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 6, 64), 64)
	if r == 0 {
		return 0
	}
	return r
}

func formatPoint(v m.Vec3) string {
	p := external(v)
	return fmt.Sprintf("(%g, %g, %g)", p[0], p[1], p[2])
}
