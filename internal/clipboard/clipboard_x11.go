//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && !cgo

package clipboard

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// Without cgo the frame is served over the X protocol directly: the process
// owns CLIPBOARD and answers TARGETS and image/png from memory until another
// client takes the selection.

var (
	initOnce     sync.Once
	initErr      error
	errNoDisplay = errors.New("clipboard needs an X display (DISPLAY is unset)")
	owner        *selectionOwner
)

func ensureInit() error {
	initOnce.Do(func() {
		if os.Getenv("DISPLAY") == "" {
			initErr = errNoDisplay
			return
		}
		owner, initErr = openOwner()
	})
	return initErr
}

func writeImage(data []byte) error {
	if err := ensureInit(); err != nil {
		return err
	}
	return owner.publish(data)
}

type selectionOwner struct {
	conn    *xgb.Conn
	win     xproto.Window
	sel     xproto.Atom
	targets xproto.Atom
	png     xproto.Atom

	mu    sync.Mutex
	frame []byte
}

func openOwner() (*selectionOwner, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("clipboard: connect to X: %w", err)
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	win, err := xproto.NewWindowId(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("clipboard: window id: %w", err)
	}
	// Never mapped; it only has to exist to own the selection.
	err = xproto.CreateWindowChecked(conn, screen.RootDepth, win, screen.Root,
		0, 0, 1, 1, 0, xproto.WindowClassInputOutput, screen.RootVisual, 0, nil).Check()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("clipboard: create window: %w", err)
	}
	o := &selectionOwner{conn: conn, win: win}
	for name, dst := range map[string]*xproto.Atom{
		"CLIPBOARD": &o.sel,
		"TARGETS":   &o.targets,
		"image/png": &o.png,
	} {
		r, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("clipboard: intern %s: %w", name, err)
		}
		*dst = r.Atom
	}
	go o.serve()
	return o, nil
}

func (o *selectionOwner) publish(frame []byte) error {
	o.mu.Lock()
	o.frame = bytes.Clone(frame)
	o.mu.Unlock()
	return xproto.SetSelectionOwnerChecked(o.conn, o.win, o.sel, xproto.TimeCurrentTime).Check()
}

func (o *selectionOwner) serve() {
	for {
		ev, err := o.conn.WaitForEvent()
		if ev == nil {
			if err == nil {
				return
			}
			continue
		}
		switch e := ev.(type) {
		case xproto.SelectionRequestEvent:
			o.answer(e)
		case xproto.SelectionClearEvent:
			o.mu.Lock()
			o.frame = nil
			o.mu.Unlock()
		}
	}
}

// answer converts the selection for a requestor. A refused conversion is
// reported with property None.
// TODO: frames above the server's maximum request length need the INCR
// transfer; today they are refused by the server.
func (o *selectionOwner) answer(e xproto.SelectionRequestEvent) {
	prop := e.Property
	if prop == xproto.AtomNone {
		prop = e.Target
	}
	o.mu.Lock()
	frame := o.frame
	o.mu.Unlock()

	switch {
	case e.Target == o.targets:
		list := make([]byte, 8)
		xgb.Put32(list, uint32(o.targets))
		xgb.Put32(list[4:], uint32(o.png))
		xproto.ChangeProperty(o.conn, xproto.PropModeReplace, e.Requestor, prop, xproto.AtomAtom, 32, 2, list)
	case e.Target == o.png && len(frame) > 0:
		xproto.ChangeProperty(o.conn, xproto.PropModeReplace, e.Requestor, prop, o.png, 8, uint32(len(frame)), frame)
	default:
		prop = xproto.AtomNone
	}

	done := xproto.SelectionNotifyEvent{
		Time:      e.Time,
		Requestor: e.Requestor,
		Selection: e.Selection,
		Target:    e.Target,
		Property:  prop,
	}
	xproto.SendEvent(o.conn, false, e.Requestor, xproto.EventMaskNoEvent, string(done.Bytes()))
}
