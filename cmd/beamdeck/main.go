package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/example/beamdeck/internal/config"
	"github.com/example/beamdeck/internal/notify"
	"github.com/example/beamdeck/internal/theme"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs           *flag.FlagSet
	program      string
	notifier     *notify.Notifier
	config       *config.Config
	log          *slog.Logger
	saveAlerts   bool
	exportAlerts bool
	copyAlerts   bool
	themeName    string
	logLevel     string
	logFormat    string
	logFile      string
	verbose      bool
	activeTheme  *theme.Theme
	stdout       io.Writer
}

func (r *root) Program() string {
	return r.program
}

func (r *root) subcommand(name string) *root {
	program := strings.TrimSpace(strings.Join([]string{r.program, name}, " "))
	return &root{
		program:      program,
		notifier:     r.notifier,
		config:       r.config,
		log:          r.log,
		saveAlerts:   r.saveAlerts,
		exportAlerts: r.exportAlerts,
		copyAlerts:   r.copyAlerts,
		themeName:    r.themeName,
		logLevel:     r.logLevel,
		logFormat:    r.logFormat,
		logFile:      r.logFile,
		verbose:      r.verbose,
		activeTheme:  r.activeTheme,
		stdout:       r.stdout,
	}
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func newRoot() *root {
	path := configPathOverride
	if env := os.Getenv("BEAMDECK_CONFIG"); env != "" {
		path = env
	}
	loader := config.NewLoader(version, path)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.New()
	}

	r := &root{
		fs:      flag.NewFlagSet("beamdeck", flag.ExitOnError),
		program: "beamdeck",
		config:  cfg,
		log:     slog.Default(),
		stdout:  os.Stdout,
	}
	r.fs.BoolVar(&r.saveAlerts, "notify-save", cfg.Notify.Save, "show a desktop notification after saving a gallery")
	r.fs.BoolVar(&r.exportAlerts, "notify-export", cfg.Notify.Export, "show a desktop notification after exporting a frame")
	r.fs.BoolVar(&r.copyAlerts, "notify-copy", cfg.Notify.Copy, "show a desktop notification after copying a frame")
	r.fs.StringVar(&r.themeName, "theme", "", "color theme to use (default, light, high_contrast or a file)")
	r.fs.StringVar(&r.logLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	r.fs.StringVar(&r.logFormat, "log-format", cfg.LogFormat, "log format: text or json")
	r.fs.StringVar(&r.logFile, "log-file", "", "write logs to this file instead of stderr")
	r.fs.BoolVar(&r.verbose, "v", false, "verbose logging, same as -log-level debug")
	r.fs.Usage = usageFunc(r)
	return r
}

func (r *root) Run(args []string) error {
	if err := r.fs.Parse(args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}

	logger, closeLog, err := r.openLogger(r.logFile)
	if err != nil {
		return err
	}
	defer closeLog()
	r.log = logger
	slog.SetDefault(logger)

	r.notifier = notify.New(notify.LoadPreferences(), logger)
	r.notifier.Enable(notify.EventSave, r.saveAlerts)
	r.notifier.Enable(notify.EventExport, r.exportAlerts)
	r.notifier.Enable(notify.EventCopy, r.copyAlerts)

	// Precedence: CLI > Env > Config > Default
	themeName := r.themeName
	if themeName == "" {
		themeName = os.Getenv("BEAMDECK_THEME")
	}
	t, err := r.config.ResolveTheme(themeName)
	if err != nil {
		logger.Warn("failed to load theme, using default", "theme", themeName, "err", err)
		t = theme.Default()
	}
	r.activeTheme = t

	cmdName := r.fs.Arg(0)
	subArgs := r.fs.Args()[1:]

	var cmd runnable
	switch cmdName {
	case "present":
		cmd, err = parsePresentCmd(subArgs, r)
	case "render":
		cmd, err = parseRenderCmd(subArgs, r)
	case "gallery":
		cmd, err = parseGalleryCmd(subArgs, r)
	case "monitors":
		cmd, err = parseMonitorsCmd(subArgs, r)
	case "config":
		cmd, err = parseConfigCmd(subArgs, r)
	case "version":
		cmd = &versionCmd{root: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	return cmd.Run()
}

func main() {
	r := newRoot()
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		if errors.As(err, &uerr) {
			fmt.Fprint(os.Stderr, uerr.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
