// Package encoding provides text encoding utilities for map file strings.
//
// 3DT files are written by Windows tools and carry texture names, entity
// values and group names in a legacy code page. The codec keeps those bytes
// untouched; this package converts them for display and back.
package encoding

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnknownCharset is returned by Lookup for names it does not know.
var ErrUnknownCharset = errors.New("unknown charset")

// DefaultCharset is the code page map editors write.
const DefaultCharset = "windows-1252"

var charsets = map[string]encoding.Encoding{
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"euc-kr":       korean.EUCKR,
	"utf-8":        unicode.UTF8,
	"utf8":         unicode.UTF8,
}

// Lookup returns the encoding registered under name. Names are
// case-insensitive.
func Lookup(name string) (encoding.Encoding, error) {
	enc, ok := charsets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharset, name)
	}
	return enc, nil
}

// Charsets lists the accepted charset names.
func Charsets() []string {
	names := make([]string, 0, len(charsets))
	for name := range charsets {
		names = append(names, name)
	}
	return names
}

// Text converts strings between a file charset and UTF-8.
type Text struct {
	enc encoding.Encoding
}

// NewText returns a converter for the named charset.
func NewText(charset string) (*Text, error) {
	enc, err := Lookup(charset)
	if err != nil {
		return nil, err
	}
	return &Text{enc: enc}, nil
}

// ToUTF8 decodes s from the file charset.
// Returns the original string if conversion fails.
func (t *Text) ToUTF8(s string) string {
	result, _, err := transform.String(t.enc.NewDecoder(), s)
	if err != nil {
		return s
	}
	return result
}

// FromUTF8 encodes s into the file charset.
// Returns the original string if conversion fails.
func (t *Text) FromUTF8(s string) string {
	result, _, err := transform.String(t.enc.NewEncoder(), s)
	if err != nil {
		return s
	}
	return result
}

// NormalizeTexturePath normalizes a texture or library path for
// case-insensitive lookup.
func NormalizeTexturePath(path string) string {
	// Convert backslashes to forward slashes
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.ToLower(path)
}
