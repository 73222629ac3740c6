package formats

import (
	"io"
	"math"
	"strconv"
	"strings"

	m "github.com/Faultbox/brushmap/pkg/math"
)

// ReadProperty splits a "name value..." line. The name is the first
// space-separated token with surrounding whitespace removed; the value is
// the remaining tokens joined by single spaces with surrounding quotes
// removed.
func ReadProperty(line string) (name, value string) {
	fields := strings.Split(line, " ")
	name = strings.TrimSpace(fields[0])
	value = strings.Trim(strings.Join(fields[1:], " "), `"`)
	return name, value
}

// PropertyStyle controls how FormatProperty lays out a line.
type PropertyStyle struct {
	Quote  bool // wrap the value in double quotes
	Indent int  // leading tabs
	// NewlineValue puts the value after a carriage return instead of a
	// space. Only the raw motion transform block uses it.
	NewlineValue bool
}

// FormatProperty is the inverse of ReadProperty. The result carries no
// line terminator.
func FormatProperty(name, value string, style PropertyStyle) string {
	var b strings.Builder
	for i := 0; i < style.Indent; i++ {
		b.WriteByte('\t')
	}
	b.WriteString(name)
	switch {
	case style.Quote:
		b.WriteString(` "`)
		b.WriteString(value)
		b.WriteByte('"')
	case style.NewlineValue:
		b.WriteByte('\r')
		b.WriteString(value)
	default:
		b.WriteByte(' ')
		b.WriteString(value)
	}
	return b.String()
}

// WriteProperty writes one formatted property line terminated by eol.
func WriteProperty(w io.Writer, name, value string, style PropertyStyle, eol string) error {
	_, err := io.WriteString(w, FormatProperty(name, value, style)+eol)
	return err
}

// formatFloat writes v with six decimals and never emits a negative zero.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	if s == "-0.000000" {
		return "0.000000"
	}
	return s
}

// formatRounded writes v rounded half away from zero as an integer.
func formatRounded(v float64) string {
	r := math.Round(v)
	if r == 0 {
		r = 0
	}
	return strconv.FormatFloat(r, 'f', 0, 64)
}

// formatShort writes v with the fewest digits that read back exactly.
func formatShort(v float64) string {
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatCoordinate writes an internal point in the external axis order.
func formatCoordinate(v m.Vec3) string {
	e := ToExternal(v)
	return formatFloat(e.X) + " " + formatFloat(e.Y) + " " + formatFloat(e.Z)
}

// formatIntCoordinate is formatCoordinate with integer rounding, used for
// entity origins.
func formatIntCoordinate(v m.Vec3) string {
	e := ToExternal(v)
	return formatRounded(e.X) + " " + formatRounded(e.Y) + " " + formatRounded(e.Z)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

// parseVec3 reads the first three numbers in fields.
func parseVec3(fields []string) (m.Vec3, bool) {
	if len(fields) < 3 {
		return m.Vec3{}, false
	}
	var out [3]float64
	for i := range out {
		f, err := parseFloat(fields[i])
		if err != nil {
			return m.Vec3{}, false
		}
		out[i] = f
	}
	return m.Vec3{X: out[0], Y: out[1], Z: out[2]}, true
}
