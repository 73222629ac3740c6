package config

import "github.com/spf13/pflag"

// Flags are the command-line overrides shared by every mapdoc command.
type Flags struct {
	fs         *pflag.FlagSet
	config     *string
	debug      *bool
	lineEnding *string
	compress   *string
	charset    *string
	logFile    *string
}

// RegisterFlags adds the shared flags to fs.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	return &Flags{
		fs:         fs,
		config:     fs.String("config", "", "Path to config file"),
		debug:      fs.Bool("debug", false, "Enable debug logging"),
		lineEnding: fs.String("line-ending", "", "Line ending for written maps (crlf or lf)"),
		compress:   fs.String("compress", "", "Output compression (auto, none, gzip, zstd)"),
		charset:    fs.String("charset", "", "Charset of strings inside map files"),
		logFile:    fs.String("log-file", "", "Also write logs to this file"),
	}
}

// ConfigPath returns the explicit config path if provided via --config flag.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// apply applies CLI flag overrides to the config. Only flags given on the
// command line take effect.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if f.fs.Changed("line-ending") {
		cfg.Codec.LineEnding = *f.lineEnding
	}
	if f.fs.Changed("compress") {
		cfg.Output.Compression = *f.compress
	}
	if f.fs.Changed("charset") {
		cfg.Text.Charset = *f.charset
	}
	if f.fs.Changed("log-file") {
		cfg.Logging.LogFile = *f.logFile
	}
}
