// Package config handles mapdoc configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/brushmap/internal/mapio"
	"github.com/Faultbox/brushmap/pkg/encoding"
	"github.com/Faultbox/brushmap/pkg/formats"
)

// Config holds all tool settings.
type Config struct {
	Codec   CodecConfig   `yaml:"codec"`
	Output  OutputConfig  `yaml:"output"`
	Text    TextConfig    `yaml:"text"`
	Logging LoggingConfig `yaml:"logging"`
}

// CodecConfig holds 3DT encoder settings.
type CodecConfig struct {
	LineEnding string `yaml:"line_ending"` // "crlf" or "lf"
}

// OutputConfig holds settings for written map files.
type OutputConfig struct {
	// Compression is "auto" (pick by file extension), "none", "gzip" or "zstd".
	Compression string `yaml:"compression"`
}

// TextConfig holds the charset of strings inside map files.
type TextConfig struct {
	Charset string `yaml:"charset"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Codec: CodecConfig{
			LineEnding: "crlf",
		},
		Output: OutputConfig{
			Compression: "auto",
		},
		Text: TextConfig{
			Charset: encoding.DefaultCharset,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks that every setting names something the tool supports.
func (c *Config) Validate() error {
	if _, err := c.LineEnding(); err != nil {
		return err
	}
	if c.Output.Compression != "auto" {
		if _, err := mapio.ParseCompression(c.Output.Compression); err != nil {
			return fmt.Errorf("output.compression: %w", err)
		}
	}
	if _, err := encoding.Lookup(c.Text.Charset); err != nil {
		return fmt.Errorf("text.charset: %w", err)
	}
	return nil
}

// LineEnding returns the terminator the encoder should write.
func (c *Config) LineEnding() (string, error) {
	switch c.Codec.LineEnding {
	case "crlf", "":
		return formats.LineEndingCRLF, nil
	case "lf":
		return formats.LineEndingLF, nil
	default:
		return "", fmt.Errorf("codec.line_ending: unknown value %q", c.Codec.LineEnding)
	}
}

// CompressionFor returns the compression to use when writing path.
func (c *Config) CompressionFor(path string) (mapio.Compression, error) {
	if c.Output.Compression == "auto" || c.Output.Compression == "" {
		return mapio.ForPath(path), nil
	}
	return mapio.ParseCompression(c.Output.Compression)
}
