package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/compose"
	"github.com/example/beamdeck/internal/gallery"
	"github.com/example/beamdeck/internal/render"
)

var decodeImageFn = gallery.Decode

type renderCmd struct {
	*root
	fs         *flag.FlagSet
	input      string
	output     string
	gallery    string
	rotate     int
	magnifier  int
	brightness float64
	contrast   bool
	shadow     bool
}

func (c *renderCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseRenderCmd(args []string, r *root) (*renderCmd, error) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	c := &renderCmd{root: r.subcommand("render"), fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.output, "o", "", "output PNG file, - for stdout")
	fs.StringVar(&c.gallery, "gallery", "", "take the image state from this gallery file")
	fs.IntVar(&c.rotate, "rotate", 0, "image rotation in degrees, a multiple of 90")
	fs.IntVar(&c.magnifier, "magnifier", 0, "project the magnifier at this size in percent, 0 for the whole image")
	fs.Float64Var(&c.brightness, "brightness", 1, "brightness factor")
	fs.BoolVar(&c.contrast, "contrast", false, "apply auto-contrast")
	fs.BoolVar(&c.shadow, "shadow", false, "draw a drop shadow behind the frame")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 || c.output == "" {
		return nil, &UsageError{of: c}
	}
	c.input = fs.Arg(0)
	return c, nil
}

func (c *renderCmd) Run() error {
	src, err := decodeImageFn(c.input)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", c.input, err)
	}
	st := canvas.DefaultState()
	if c.gallery != "" {
		rec, err := findRecord(c.gallery, c.input)
		if err != nil {
			return err
		}
		st = rec.State
	}
	store := canvas.NewStore(canvas.WithState(st), canvas.WithLogger(c.log))
	var flagErr error
	c.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rotate":
			flagErr = errors.Join(flagErr, store.SetRotation(c.rotate))
		case "magnifier":
			store.SetROIEnabled(c.magnifier > 0)
			if c.magnifier > 0 {
				store.SetMagnifierSize(c.magnifier)
			}
		case "brightness":
			store.SetBrightness(c.brightness)
		case "contrast":
			store.SetAutoContrast(c.contrast)
		}
	})
	if flagErr != nil {
		return flagErr
	}

	res, err := compose.Render(src, store.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", c.input, err)
	}
	var out image.Image = res.Image
	if c.shadow {
		out, _ = render.DefaultShadow().Apply(res.Image)
	}
	if err := c.write(out); err != nil {
		return err
	}
	c.log.Debug("rendered", "input", c.input, "output", c.output, "size", out.Bounds().Size())
	return nil
}

func (c *renderCmd) write(img image.Image) error {
	if c.output == "-" {
		return png.Encode(c.stdout, img)
	}
	f, err := os.Create(c.output)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", c.output, err)
	}
	return f.Close()
}

// findRecord looks up image in a gallery file, by path and then by file name.
func findRecord(path, img string) (gallery.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return gallery.Record{}, err
	}
	defer f.Close()
	return lookupRecord(f, filepath.Dir(path), img)
}

func lookupRecord(r io.Reader, base, img string) (gallery.Record, error) {
	recs, err := gallery.DecodeRecords(r)
	if err != nil && !errors.Is(err, gallery.ErrPartial) {
		return gallery.Record{}, err
	}
	want, _ := filepath.Abs(img)
	for _, rec := range recs {
		p := rec.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		if abs, _ := filepath.Abs(p); abs == want {
			return rec, nil
		}
	}
	for _, rec := range recs {
		if filepath.Base(rec.Path) == filepath.Base(img) {
			return rec, nil
		}
	}
	return gallery.Record{}, fmt.Errorf("%s is not in the gallery", img)
}
