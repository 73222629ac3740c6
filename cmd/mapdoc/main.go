// mapdoc is a CLI utility for inspecting and converting 3DT brush maps.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Faultbox/brushmap/internal/config"
	"github.com/Faultbox/brushmap/internal/logger"
	"github.com/Faultbox/brushmap/internal/mapio"
	"github.com/Faultbox/brushmap/pkg/encoding"
	"github.com/Faultbox/brushmap/pkg/formats"
	"github.com/Faultbox/brushmap/pkg/mapdoc"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// command is one mapdoc subcommand. It registers its own flags on fs and
// returns the function that runs once flags are parsed.
type command struct {
	usage string
	flags func(fs *pflag.FlagSet) func(a *app, args []string) error
}

var commands = map[string]command{
	"info":    {usage: "info <file.3dt>", flags: infoFlags},
	"dump":    {usage: "dump <file.3dt>", flags: dumpFlags},
	"verify":  {usage: "verify <file.3dt>...", flags: verifyFlags},
	"convert": {usage: "convert <in.3dt> <out.3dt>", flags: convertFlags},
}

// errVerifyFailed marks a verify run that found a difference. The details
// are already printed.
var errVerifyFailed = errors.New("verification failed")

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	name, rest := args[0], args[1:]
	switch name {
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	case "cv":
		name = "convert"
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", name)
		printUsage(stderr)
		return 1
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: mapdoc %s [options]\n", cmd.usage)
		fs.PrintDefaults()
	}
	shared := config.RegisterFlags(fs)
	exec := cmd.flags(fs)
	if err := fs.Parse(rest); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := config.Load(shared)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	a, err := newApp(cfg, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := exec(a, fs.Args()); err != nil {
		if !errors.Is(err, errVerifyFailed) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		a.log.Debug("command failed", zap.String("command", name), zap.Error(err))
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `mapdoc - 3DT brush map utility

Usage:
  mapdoc <command> [options]

Commands:
  info <file.3dt>              Show map statistics and content digest
  dump <file.3dt>              Export the decoded map as YAML
  verify <file.3dt>...         Check that maps survive a decode/encode cycle
  convert <in.3dt> <out.3dt>   Re-encode a map (line ending, compression)

Options (all commands):
  --config <path>       Config file (default ./mapdoc.yaml)
  --line-ending crlf|lf
  --compress auto|none|gzip|zstd
  --charset <name>      Charset of map strings (default windows-1252)
  --debug               Enable debug logging
  --log-file <path>     Also write logs to a rotating file

Examples:
  mapdoc info level1.3dt
  mapdoc dump --geometry level1.3dt > level1.yaml
  mapdoc verify maps/*.3dt
  mapdoc convert --line-ending lf level1.3dt level1.3dt.zst`)
}

// app carries what every command needs once configuration is loaded.
type app struct {
	cfg   *config.Config
	codec *formats.Codec3DT
	text  *encoding.Text
	log   *zap.Logger
	out   io.Writer
}

func newApp(cfg *config.Config, out io.Writer) (*app, error) {
	eol, err := cfg.LineEnding()
	if err != nil {
		return nil, err
	}
	text, err := encoding.NewText(cfg.Text.Charset)
	if err != nil {
		return nil, err
	}
	log := logger.Named("mapdoc")
	return &app{
		cfg: cfg,
		codec: formats.New3DTCodec(
			formats.WithLineEnding(eol),
			formats.WithLogger(logger.Named("3dt")),
		),
		text: text,
		log:  log,
		out:  out,
	}, nil
}

// load reads and decodes a map file. It also returns the raw file bytes
// after decompression.
func (a *app) load(path string) (*mapdoc.Document, []byte, error) {
	data, err := mapio.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	doc, err := a.codec.DecodeBytes(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	a.log.Debug("loaded map", zap.String("path", path), zap.Int("bytes", len(data)))
	return doc, data, nil
}
