package formats

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/brushmap/pkg/mapdoc"
)

// Line endings accepted by WithLineEnding.
const (
	LineEndingCRLF = "\r\n"
	LineEndingLF   = "\n"
)

// Codec3DT decodes and encodes 3DT map documents. It holds only
// configuration and is safe for concurrent use.
type Codec3DT struct {
	ids        mapdoc.IDGenerator
	log        *zap.Logger
	lineEnding string
}

// Option configures a Codec3DT.
type Option func(*Codec3DT)

// WithIDGenerator makes every decode draw IDs from g. Without it each
// decode starts a fresh sequence at 1.
func WithIDGenerator(g mapdoc.IDGenerator) Option {
	return func(c *Codec3DT) { c.ids = g }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Codec3DT) {
		if l != nil {
			c.log = l
		}
	}
}

// WithLineEnding sets the line terminator the encoder writes.
func WithLineEnding(eol string) Option {
	return func(c *Codec3DT) {
		if eol != "" {
			c.lineEnding = eol
		}
	}
}

// New3DTCodec returns a codec writing CRLF lines and logging nothing.
func New3DTCodec(opts ...Option) *Codec3DT {
	c := &Codec3DT{
		log:        zap.NewNop(),
		lineEnding: LineEndingCRLF,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decode reads a whole document from r.
func (c *Codec3DT) Decode(r io.Reader) (*mapdoc.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading 3DT data: %w", err)
	}
	return c.DecodeBytes(data)
}

// DecodeBytes decodes an in-memory document.
func (c *Codec3DT) DecodeBytes(data []byte) (*mapdoc.Document, error) {
	ids := c.ids
	if ids == nil {
		ids = mapdoc.NewSequentialIDs()
	}
	d := &decoder{
		lr:  newLineReader(data),
		ids: ids,
		log: c.log,
	}
	return d.decode()
}

// Encode writes doc to w.
func (c *Codec3DT) Encode(w io.Writer, doc *mapdoc.Document) error {
	return newEncoder(w, c.lineEnding, c.log).encode(doc)
}

// Marshal encodes doc into a new byte slice.
func (c *Codec3DT) Marshal(doc *mapdoc.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Parse3DT decodes a 3DT document with the default codec.
func Parse3DT(data []byte) (*mapdoc.Document, error) {
	return New3DTCodec().DecodeBytes(data)
}

// Load3DT reads and decodes a 3DT file.
func Load3DT(path string) (*mapdoc.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading 3DT file: %w", err)
	}
	return Parse3DT(data)
}

// Save3DT encodes doc with the default codec and writes it to path.
func Save3DT(path string, doc *mapdoc.Document) error {
	data, err := New3DTCodec().Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing 3DT file: %w", err)
	}
	return nil
}
