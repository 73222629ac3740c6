package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Faultbox/brushmap/internal/mapio"
	"github.com/Faultbox/brushmap/pkg/formats"
	"github.com/Faultbox/brushmap/pkg/mapdoc"
)

func infoFlags(fs *pflag.FlagSet) func(*app, []string) error {
	return func(a *app, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("usage: mapdoc info <file.3dt>")
		}
		return a.info(args[0])
	}
}

func (a *app) info(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading map file: %w", err)
	}
	doc, data, err := a.load(path)
	if err != nil {
		return err
	}

	solids, entities, _ := mapdoc.Flatten(doc)
	faces := 0
	for _, s := range solids {
		faces += len(s.Faces)
	}

	w := a.out
	fmt.Fprintf(w, "File:      %s\n", path)
	if c := mapio.Detect(raw); c != mapio.CompressionNone {
		fmt.Fprintf(w, "Size:      %s (%s, %s on disk)\n", humanize.Bytes(uint64(len(data))), c, humanize.Bytes(uint64(len(raw))))
	} else {
		fmt.Fprintf(w, "Size:      %s\n", humanize.Bytes(uint64(len(data))))
	}
	fmt.Fprintf(w, "Digest:    %s\n", mapio.Digest(data))
	fmt.Fprintf(w, "Version:   %s\n", doc.Version)
	fmt.Fprintf(w, "Brushes:   %s (%s faces)\n", humanize.Comma(int64(len(solids))), humanize.Comma(int64(faces)))
	fmt.Fprintf(w, "Entities:  %s\n", humanize.Comma(int64(len(entities))))
	fmt.Fprintf(w, "Motions:   %d\n", len(doc.Motions))
	fmt.Fprintf(w, "Visgroups: %d\n", len(doc.Visgroups))
	if box := doc.BoundingBox(); !box.IsEmpty() {
		lo, hi := formats.ToExternal(box.Min), formats.ToExternal(box.Max)
		fmt.Fprintf(w, "Bounds:    %s - %s\n", formatPoint(lo.Min(hi)), formatPoint(lo.Max(hi)))
	}
	if len(doc.Tail) > 0 {
		fmt.Fprintf(w, "Tail:      %s\n", humanize.Bytes(uint64(len(doc.Tail))))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Stats:")
	doc.Stats.Each(func(k, v string) {
		fmt.Fprintf(w, "  %-12s %s\n", k, a.text.ToUTF8(v))
	})

	// Sort by count
	classCount := make(map[string]int)
	for _, e := range entities {
		classCount[e.ClassName]++
	}
	type classStat struct {
		class string
		count int
	}
	var stats []classStat
	for class, count := range classCount {
		stats = append(stats, classStat{class, count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].class < stats[j].class
	})
	if len(stats) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Entities by class:")
		for _, s := range stats {
			fmt.Fprintf(w, "  %-20s %d\n", a.text.ToUTF8(s.class), s.count)
		}
	}
	return nil
}

func verifyFlags(fs *pflag.FlagSet) func(*app, []string) error {
	quiet := fs.BoolP("quiet", "q", false, "Only report failures")
	return func(a *app, args []string) error {
		if len(args) < 1 {
			return fmt.Errorf("usage: mapdoc verify <file.3dt>...")
		}
		failed := 0
		for _, path := range args {
			if err := a.verify(path, *quiet); err != nil {
				fmt.Fprintf(a.out, "FAIL  %s: %v\n", path, err)
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%w: %d of %d maps", errVerifyFailed, failed, len(args))
		}
		return nil
	}
}

// verify decodes and encodes a map twice. The two encodings must be
// byte-identical and decode to the same structure.
func (a *app) verify(path string, quiet bool) error {
	first, _, err := a.load(path)
	if err != nil {
		return err
	}
	encoded, err := a.codec.Marshal(first)
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	second, err := a.codec.DecodeBytes(encoded)
	if err != nil {
		return fmt.Errorf("decoding re-encoded map: %w", err)
	}
	again, err := a.codec.Marshal(second)
	if err != nil {
		return fmt.Errorf("encoding again: %w", err)
	}

	if got, want := summarize(second), summarize(first); got != want {
		return fmt.Errorf("structure changed: %s became %s", want, got)
	}
	d1, d2 := mapio.Digest(encoded), mapio.Digest(again)
	if !bytes.Equal(encoded, again) {
		return fmt.Errorf("encoding not stable: %s then %s", d1[:16], d2[:16])
	}

	a.log.Info("verified map", zap.String("path", path), zap.String("digest", d1))
	if !quiet {
		fmt.Fprintf(a.out, "OK    %s  %s  %s\n", path, d1[:16], summarize(first))
	}
	return nil
}

// summarize renders the record counts of a document.
func summarize(doc *mapdoc.Document) string {
	solids, entities, _ := mapdoc.Flatten(doc)
	faces, vertices := 0, 0
	for _, s := range solids {
		faces += len(s.Faces)
		for _, f := range s.Faces {
			vertices += len(f.Vertices)
		}
	}
	return fmt.Sprintf("brushes=%d faces=%d vertices=%d entities=%d motions=%d groups=%d tail=%d",
		len(solids), faces, vertices, len(entities), len(doc.Motions), len(doc.Visgroups), len(doc.Tail))
}

func convertFlags(fs *pflag.FlagSet) func(*app, []string) error {
	force := fs.BoolP("force", "f", false, "Overwrite the output file if it exists")
	return func(a *app, args []string) error {
		if len(args) != 2 {
			return fmt.Errorf("usage: mapdoc convert <in.3dt> <out.3dt>")
		}
		if !*force {
			if _, err := os.Stat(args[1]); err == nil {
				return fmt.Errorf("%s exists (use --force to overwrite)", args[1])
			}
		}
		return a.convert(args[0], args[1])
	}
}

func (a *app) convert(in, out string) error {
	doc, _, err := a.load(in)
	if err != nil {
		return err
	}
	data, err := a.codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", in, err)
	}
	c, err := a.cfg.CompressionFor(out)
	if err != nil {
		return err
	}
	if err := mapio.WriteFile(out, data, c); err != nil {
		return err
	}

	a.log.Info("converted map",
		zap.String("in", in),
		zap.String("out", out),
		zap.Stringer("compression", c),
	)
	fmt.Fprintf(a.out, "Wrote %s (%s, %s)\n", out, humanize.Bytes(uint64(len(data))), c)
	return nil
}
