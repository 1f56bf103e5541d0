// Package console runs the presentation: a single control goroutine owns
// the gallery, turns operator actions into store mutations, dispatches
// composites and tells the preview and projector windows when to repaint.
package console

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/beamdeck/internal/config"
)

// Op names an operator action.
type Op string

const (
	OpNext           Op = "next"
	OpPrev           Op = "prev"
	OpSelect         Op = "select"
	OpRotate         Op = "rotate"
	OpToggleROI      Op = "roi"
	OpRotateROI      Op = "roi-rotate"
	OpMagnifier      Op = "magnifier"
	OpMagnifierStep  Op = "magnifier-step"
	OpBrightness     Op = "brightness"
	OpBrightnessStep Op = "brightness-step"
	OpAutoContrast   Op = "contrast"
	OpClearStrokes   Op = "clear"
	OpTool           Op = "tool"
	OpDisplayMode    Op = "mode"
	OpPointerStyle   Op = "pointer"
	OpBackground     Op = "background"
	OpAspect         Op = "aspect"
	OpSort           Op = "sort"
	OpRename         Op = "rename"
	OpSaveGallery    Op = "save"
	OpOpen           Op = "open"
	OpExport         Op = "export"
	OpCopy           Op = "copy"
	OpQuit           Op = "quit"
)

// Action is one request to the control goroutine. Which of Arg, Value and
// Index are read depends on Op.
type Action struct {
	Op    Op
	Arg   string
	Value float64
	Index int
}

func (a Action) String() string {
	switch {
	case a.Arg != "":
		return fmt.Sprintf("%s %s", a.Op, a.Arg)
	case a.Value != 0:
		return fmt.Sprintf("%s %g", a.Op, a.Value)
	}
	return string(a.Op)
}

// ParseAction reads the textual form used by the panel command line:
// an op followed by an optional argument, e.g. "tool pen" or "select 3".
func ParseAction(s string) (Action, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Action{}, fmt.Errorf("empty command")
	}
	a := Action{Op: Op(strings.ToLower(fields[0]))}
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), fields[0]))
	switch a.Op {
	case OpNext, OpPrev, OpRotate, OpToggleROI, OpRotateROI, OpAutoContrast,
		OpClearStrokes, OpExport, OpCopy, OpQuit:
	case OpDisplayMode, OpPointerStyle, OpSaveGallery:
		a.Arg = arg
	case OpTool, OpBackground, OpSort, OpOpen:
		if arg == "" {
			return Action{}, fmt.Errorf("%s: missing argument", a.Op)
		}
		a.Arg = arg
	case OpSelect:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return Action{}, fmt.Errorf("select: %w", err)
		}
		a.Index = n - 1
	case OpRename:
		if arg == "" {
			return Action{}, fmt.Errorf("rename: missing name")
		}
		a.Arg = arg
		a.Index = -1
	case OpAspect:
		v, err := config.ParseAspect(arg)
		if err != nil {
			return Action{}, fmt.Errorf("aspect: %w", err)
		}
		a.Value = v
	case OpMagnifier, OpMagnifierStep, OpBrightness, OpBrightnessStep:
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return Action{}, fmt.Errorf("%s: %w", a.Op, err)
		}
		a.Value = v
	default:
		return Action{}, fmt.Errorf("unknown command %q", fields[0])
	}
	return a, nil
}
