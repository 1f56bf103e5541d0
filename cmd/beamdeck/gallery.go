package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/gallery"
)

type galleryCmd struct {
	*root
	fs     *flag.FlagSet
	output string
}

func (c *galleryCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseGalleryCmd(args []string, r *root) (*galleryCmd, error) {
	fs := flag.NewFlagSet("gallery", flag.ExitOnError)
	c := &galleryCmd{root: r.subcommand("gallery"), fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.output, "o", "", "gallery file written by save")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 2 {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *galleryCmd) Run() error {
	target := c.fs.Arg(1)
	switch sub := c.fs.Arg(0); sub {
	case "list":
		return c.runList(target)
	case "save":
		if c.output == "" {
			return &UsageError{of: c}
		}
		return c.runSave(target)
	default:
		return fmt.Errorf("unknown gallery command: %s", sub)
	}
}

// runList prints a gallery file, or the images a folder would present.
func (c *galleryCmd) runList(target string) error {
	recs, err := readRecords(target)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(c.stdout, "no images")
		return nil
	}
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tROTATION\tMAGNIFIER\tSTROKES\tPATH")
	for i, r := range recs {
		mag := "off"
		if r.State.ROIEnabled {
			mag = fmt.Sprintf("%d%%", r.State.Magnifier)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%s\n", i+1, r.Name, int(r.State.Rotation), mag, len(r.State.Strokes), r.Path)
	}
	return tw.Flush()
}

// runSave writes a fresh gallery file for the images in a folder.
func (c *galleryCmd) runSave(dir string) error {
	recs, err := folderRecords(dir)
	if err != nil {
		return err
	}
	f, err := os.Create(c.output)
	if err != nil {
		return err
	}
	if err := gallery.Encode(f, recs); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", c.output, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	c.log.Info("gallery saved", "path", c.output, "entries", len(recs))
	c.notifier.Save(c.output)
	return nil
}

func readRecords(target string) ([]gallery.Record, error) {
	fi, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return folderRecords(target)
	}
	f, err := os.Open(target)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := gallery.DecodeRecords(f)
	if errors.Is(err, gallery.ErrPartial) {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		err = nil
	}
	return recs, err
}

func folderRecords(dir string) ([]gallery.Record, error) {
	paths, err := gallery.Scan(dir)
	if err != nil {
		return nil, err
	}
	recs := make([]gallery.Record, 0, len(paths))
	for _, p := range paths {
		base := filepath.Base(p)
		recs = append(recs, gallery.Record{
			Path:  p,
			Name:  strings.TrimSuffix(base, filepath.Ext(base)),
			State: canvas.DefaultState(),
		})
	}
	return recs, nil
}
