// Package panel is the operator's terminal control panel. It shows what the
// console is presenting and turns key presses and typed commands into
// console actions.
package panel

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/example/beamdeck/internal/console"
	"github.com/example/beamdeck/internal/theme"
)

// StatusMsg carries a console status into the panel.
type StatusMsg console.Status

// SendFunc delivers an action to the console.
type SendFunc func(console.Action) bool

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	current lipgloss.Style
	muted   lipgloss.Style
	message lipgloss.Style
	frame   lipgloss.Style
}

func newStyles(th *theme.Theme) styles {
	if th == nil {
		th = theme.Default()
	}
	accent := lipColor(th.PanelAccent)
	text := lipColor(th.PanelText)
	muted := lipColor(th.PanelMuted)
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		label:   lipgloss.NewStyle().Foreground(muted).Width(12),
		value:   lipgloss.NewStyle().Foreground(text),
		current: lipgloss.NewStyle().Bold(true).Foreground(accent),
		muted:   lipgloss.NewStyle().Foreground(muted),
		message: lipgloss.NewStyle().Italic(true).Foreground(accent),
		frame:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1),
	}
}

func lipColor(c color.NRGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

// keys maps panel key strings to console actions.
var keys = map[string]console.Action{
	"right":  {Op: console.OpNext},
	"pgdown": {Op: console.OpNext},
	" ":      {Op: console.OpNext},
	"left":   {Op: console.OpPrev},
	"pgup":   {Op: console.OpPrev},
	"r":      {Op: console.OpRotate},
	"z":      {Op: console.OpToggleROI},
	"o":      {Op: console.OpRotateROI},
	"+":      {Op: console.OpMagnifierStep, Value: 10},
	"=":      {Op: console.OpMagnifierStep, Value: 10},
	"-":      {Op: console.OpMagnifierStep, Value: -10},
	"]":      {Op: console.OpBrightnessStep, Value: 0.1},
	"[":      {Op: console.OpBrightnessStep, Value: -0.1},
	"0":      {Op: console.OpBrightness, Value: 1},
	"a":      {Op: console.OpAutoContrast},
	"p":      {Op: console.OpTool, Arg: "pen"},
	"h":      {Op: console.OpTool, Arg: "highlighter"},
	"l":      {Op: console.OpTool, Arg: "laser"},
	"esc":    {Op: console.OpTool, Arg: "none"},
	"k":      {Op: console.OpPointerStyle},
	"c":      {Op: console.OpClearStrokes},
	"m":      {Op: console.OpDisplayMode},
	"ctrl+s": {Op: console.OpSaveGallery},
	"ctrl+e": {Op: console.OpExport},
	"y":      {Op: console.OpCopy},
}

const helpLine = "←/→ image  r rotate  z magnifier  o turn  +/- size  [/] brightness  a contrast  p/h/l tools  m mode  : command  q quit"

// listRows is how many gallery entries are shown around the current one.
const listRows = 7

// Model is the bubbletea model of the panel.
type Model struct {
	send   SendFunc
	status console.Status
	seen   bool
	styles styles
	width  int

	command bool
	input   string
	err     string
}

// NewModel creates a panel model sending actions with send.
func NewModel(send SendFunc, th *theme.Theme) Model {
	return Model{send: send, styles: newStyles(th), status: console.Status{Index: -1}}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case StatusMsg:
		m.status = console.Status(msg)
		m.seen = true
		return m, nil
	case tea.KeyMsg:
		if m.command {
			return m.updateCommand(msg)
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = ""
	switch k := msg.String(); k {
	case "q", "ctrl+c":
		m.send(console.Action{Op: console.OpQuit})
		return m, tea.Quit
	case ":":
		m.command = true
		m.input = ""
		return m, nil
	default:
		if a, ok := keys[k]; ok {
			m.send(a)
		}
	}
	return m, nil
}

func (m Model) updateCommand(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.command = false
		m.input = ""
	case tea.KeyEnter:
		m.command = false
		a, err := console.ParseAction(m.input)
		m.input = ""
		if err != nil {
			m.err = err.Error()
			return m, nil
		}
		m.send(a)
		if a.Op == console.OpQuit {
			return m, tea.Quit
		}
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m Model) View() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.title.Render("BeamDeck"))
	b.WriteString("\n\n")

	st := m.status
	if !m.seen || st.Index < 0 {
		b.WriteString(s.muted.Render("No image loaded"))
		b.WriteString("\n")
	} else {
		row := func(label, value string) {
			b.WriteString(s.label.Render(label))
			b.WriteString(s.value.Render(value))
			b.WriteString("\n")
		}
		c := st.State
		row("Image", fmt.Sprintf("%d/%d  %s", st.Index+1, st.Count, st.Name))
		if !st.Loaded {
			row("", "cannot decode "+st.Path)
		}
		row("Rotation", fmt.Sprintf("%d°", int(c.Rotation)))
		magnifier := "off"
		if c.ROIEnabled {
			magnifier = fmt.Sprintf("%d%%  turned %d°", c.Magnifier, int(c.ROIRotation))
		}
		row("Magnifier", magnifier)
		row("Brightness", fmt.Sprintf("%.1f", c.Brightness))
		row("Contrast", onOff(c.AutoContrast))
		row("Tool", c.Tool.String())
		row("Mode", c.DisplayMode.String())
		row("Pointer", c.PointerStyle.String())
		row("Strokes", fmt.Sprintf("%d", len(c.Strokes)))
		row("Projector", fmt.Sprintf("%.3f  %s", st.Aspect, theme.Hex(st.Background)))
		b.WriteString("\n")
		if th := halfBlocks(st.Thumbnail); th != "" {
			b.WriteString(th)
			b.WriteString("\n")
		}
		b.WriteString(m.list())
	}

	b.WriteString("\n")
	switch {
	case m.command:
		b.WriteString(":" + m.input + "█")
	case m.err != "":
		b.WriteString(s.message.Render(m.err))
	case st.Message != "":
		b.WriteString(s.message.Render(st.Message))
	}
	b.WriteString("\n")
	b.WriteString(s.muted.Render(helpLine))

	frame := s.frame
	if m.width > 4 {
		frame = frame.Width(m.width - 4)
	}
	return frame.Render(b.String())
}

// list renders the gallery entries around the current one.
func (m Model) list() string {
	names := m.status.Names
	if len(names) == 0 {
		return ""
	}
	cur := m.status.Index
	lo := max(0, min(cur-listRows/2, len(names)-listRows))
	hi := min(len(names), lo+listRows)
	var b strings.Builder
	for i := lo; i < hi; i++ {
		line := fmt.Sprintf("%3d  %s", i+1, names[i])
		if i == cur {
			b.WriteString(m.styles.current.Render("▶" + line))
		} else {
			b.WriteString(m.styles.muted.Render(" " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// halfBlocks draws img with one "▀" per two pixel rows: the upper pixel is
// the foreground, the lower one the background.
func halfBlocks(img *image.NRGBA) string {
	if img == nil || img.Rect.Empty() {
		return ""
	}
	r := img.Rect
	var b strings.Builder
	for y := r.Min.Y; y < r.Max.Y; y += 2 {
		for x := r.Min.X; x < r.Max.X; x++ {
			cell := lipgloss.NewStyle().Foreground(lipColor(img.NRGBAAt(x, y)))
			if y+1 < r.Max.Y {
				cell = cell.Background(lipColor(img.NRGBAAt(x, y+1)))
			}
			b.WriteString(cell.Render("▀"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// Panel runs the model as a terminal program.
type Panel struct {
	prog *tea.Program
}

// New creates a panel. Extra program options are passed to bubbletea.
func New(send SendFunc, th *theme.Theme, opts ...tea.ProgramOption) *Panel {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return &Panel{prog: tea.NewProgram(NewModel(send, th), opts...)}
}

// Status forwards a console status. It is safe to call on a nil panel.
func (p *Panel) Status(st console.Status) {
	if p == nil {
		return
	}
	p.prog.Send(StatusMsg(st))
}

// Run blocks until the operator leaves the panel or Quit is called.
func (p *Panel) Run() error {
	_, err := p.prog.Run()
	return err
}

// Quit stops the panel.
func (p *Panel) Quit() {
	p.prog.Quit()
}
