package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/example/beamdeck/internal/config"
	"github.com/example/beamdeck/internal/console"
	"github.com/example/beamdeck/internal/gallery"
	"github.com/example/beamdeck/internal/monitor"
	"github.com/example/beamdeck/internal/panel"
)

var listMonitorsFn = monitor.List

type presentCmd struct {
	*root
	fs      *flag.FlagSet
	monitor string
	save    string
	panel   bool
	watch   bool
	aspect  string
}

func (c *presentCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parsePresentCmd(args []string, r *root) (*presentCmd, error) {
	fs := flag.NewFlagSet("present", flag.ExitOnError)
	c := &presentCmd{root: r.subcommand("present"), fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.monitor, "monitor", "", "projector monitor: index, primary or part of its name")
	fs.StringVar(&c.save, "gallery", "", "gallery file written by save when presenting a folder")
	fs.BoolVar(&c.panel, "panel", false, "run the control panel in this terminal")
	fs.BoolVar(&c.watch, "watch", false, "follow images added to or removed from the folder")
	fs.StringVar(&c.aspect, "aspect", "", "projector aspect such as 16:9, overriding the monitor")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 1 {
		return nil, &UsageError{of: c}
	}
	if fs.NArg() == 0 && c.config.GalleryDir == "" {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *presentCmd) Run() error {
	log := c.log
	if c.panel && c.logFile == "" {
		l, closeLog, err := c.openLogger(panelLogPath())
		if err != nil {
			return err
		}
		defer closeLog()
		log = l
		slog.SetDefault(l)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings := console.SettingsFrom(c.config)
	projector, err := c.projector(log, &settings)
	if err != nil {
		return err
	}

	g := gallery.New(gallery.WithLogger(log), gallery.WithWorkers(settings.Workers))
	target := c.fs.Arg(0)
	if target == "" {
		target = c.config.GalleryDir
	}
	dir, err := openTarget(ctx, g, target, &settings)
	if err != nil {
		return err
	}
	if c.save != "" {
		settings.GalleryPath = c.save
	}

	opts := []console.Option{console.WithLogger(log), console.WithNotifier(c.notifier)}
	if c.watch {
		if dir == "" {
			return errors.New("-watch needs a folder")
		}
		w, err := gallery.Watch(ctx, dir, log)
		if err != nil {
			return err
		}
		defer w.Close()
		opts = append(opts, console.WithChanges(w.Changes()))
	}

	var pnl *panel.Panel
	if c.panel {
		opts = append(opts, console.WithStatus(func(st console.Status) { pnl.Status(st) }))
	}
	ctl, err := console.New(g, settings, opts...)
	if err != nil {
		return err
	}

	panelDone := make(chan struct{})
	if c.panel {
		pnl = panel.New(ctl.Send, c.activeTheme)
		go func() {
			defer close(panelDone)
			if err := pnl.Run(); err != nil {
				log.Error("panel", "err", err)
			}
			ctl.Send(console.Action{Op: console.OpQuit})
		}()
		go func() {
			<-ctl.Done()
			pnl.Quit()
		}()
	} else {
		close(panelDone)
	}

	log.Info("presenting", "target", target, "images", g.Len(), "aspect", settings.Aspect)
	err = console.Present(ctx, ctl, console.WindowOptions{
		Projector: projector,
		Theme:     c.activeTheme,
		Logger:    log,
	})
	<-panelDone
	return err
}

// projector picks the projector size and aspect. An explicit -aspect wins
// over the monitor; an unknown display layout keeps the configured aspect.
func (c *presentCmd) projector(log *slog.Logger, s *console.Settings) (image.Point, error) {
	var size image.Point
	mons, err := listMonitorsFn()
	if err != nil {
		if c.monitor != "" {
			return size, fmt.Errorf("list monitors: %w", err)
		}
		log.Warn("cannot list monitors", "err", err)
	} else if mon, err := monitor.Projector(mons, c.monitor); err != nil {
		if c.monitor != "" {
			return size, err
		}
		log.Warn("no projector monitor", "err", err)
	} else {
		log.Info("projector monitor", "monitor", mon.String())
		size = mon.Rect.Size()
		if a := mon.Aspect(); a > 0 {
			s.Aspect = a
		}
	}
	if c.aspect != "" {
		a, err := config.ParseAspect(c.aspect)
		if err != nil {
			return size, err
		}
		s.Aspect = a
		// The projector window reports its shape back, so size it to match.
		if size.Y <= 0 {
			size.Y = 720
		}
		size.X = int(float64(size.Y)*a + 0.5)
	}
	return size, nil
}

// openTarget fills g from a gallery file, a folder or a single image. It
// returns the folder being presented, if any.
func openTarget(ctx context.Context, g *gallery.Gallery, target string, s *console.Settings) (string, error) {
	if strings.EqualFold(filepath.Ext(target), ".json") {
		err := g.Load(ctx, target)
		switch {
		case errors.Is(err, gallery.ErrPartial):
			slog.Warn("gallery loaded with problems", "path", target, "err", err)
		case err != nil:
			return "", fmt.Errorf("open gallery %s: %w", target, err)
		}
		s.GalleryPath = target
		return "", nil
	}
	fi, err := os.Stat(target)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		if err := g.OpenFolder(ctx, target); err != nil {
			return "", err
		}
		return target, nil
	}
	if !gallery.Supported(target) {
		return "", fmt.Errorf("%s: unsupported image type", target)
	}
	return "", g.Add(ctx, target)
}
