package formats

import (
	"bytes"
	"io"
)

// lineCursor is a saved lineReader position.
type lineCursor struct {
	pos  int
	line int
}

// lineReader splits an in-memory document into lines. Lines end at
// "\r\n", "\n" or a lone "\r". The position can be saved and restored so
// a line can be put back after a lookahead.
type lineReader struct {
	data []byte
	pos  int
	line int
	// start of the most recently read line
	last int
}

func newLineReader(data []byte) *lineReader {
	return &lineReader{data: data}
}

// Position returns the current cursor.
func (r *lineReader) Position() lineCursor {
	return lineCursor{pos: r.pos, line: r.line}
}

// SetPosition rewinds (or advances) to a saved cursor.
func (r *lineReader) SetPosition(c lineCursor) {
	r.pos = c.pos
	r.line = c.line
}

// ReadLine returns the next line without its terminator, or io.EOF.
func (r *lineReader) ReadLine() (string, error) {
	if r.pos >= len(r.data) {
		return "", io.EOF
	}
	r.last = r.pos
	rest := r.data[r.pos:]
	i := bytes.IndexAny(rest, "\r\n")
	if i < 0 {
		r.pos = len(r.data)
		r.line++
		return string(rest), nil
	}
	advance := i + 1
	if rest[i] == '\r' && i+1 < len(rest) && rest[i+1] == '\n' {
		advance++
	}
	r.pos += advance
	r.line++
	return string(rest[:i]), nil
}

// PeekLine returns the next line and leaves the cursor where it was.
func (r *lineReader) PeekLine() (string, error) {
	at := r.Position()
	s, err := r.ReadLine()
	r.SetPosition(at)
	return s, err
}

// Rest consumes and returns a copy of every remaining byte.
func (r *lineReader) Rest() []byte {
	rest := bytes.Clone(r.data[r.pos:])
	r.pos = len(r.data)
	return rest
}

// Line is the 1-based number of the most recently read line.
func (r *lineReader) Line() int {
	return r.line
}

// LineOffset is the byte offset where the most recently read line starts.
func (r *lineReader) LineOffset() int {
	return r.last
}
