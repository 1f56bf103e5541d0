package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/beamdeck/internal/geom"
)

func pending(ch <-chan Event) (Event, bool) {
	select {
	case ev := <-ch:
		return ev, true
	default:
		return Event{}, false
	}
}

func TestDefaults(t *testing.T) {
	st := NewStore().Snapshot()
	assert.Equal(t, NormalizedRect{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}, st.ROI)
	assert.Equal(t, 1.0, st.Brightness)
	assert.Equal(t, DisplayFit, st.DisplayMode)
	assert.InDelta(t, 16.0/9.0, st.Aspect, 1e-12)
	assert.Equal(t, DefaultPen, st.Pen)
	assert.Equal(t, DefaultHighlighter, st.Highlighter)
	assert.Equal(t, uint64(0), st.Revision)
}

func TestUnchangedValueIsSilent(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe()
	defer sub.Close()

	s.SetBrightness(1)
	s.SetROIEnabled(false)
	s.SetTool(ToolNone)
	s.ClearStrokes()
	require.NoError(t, s.SetRotation(0))

	_, got := pending(sub.Heavy)
	assert.False(t, got, "no heavy event expected")
	assert.Equal(t, uint64(0), s.Revision())
}

func TestHeavyBumpsRevision(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe()
	defer sub.Close()

	require.NoError(t, s.SetRotation(90))
	ev, ok := pending(sub.Heavy)
	require.True(t, ok)
	assert.Equal(t, Heavy, ev.Class)
	assert.Equal(t, FieldRotation, ev.Field)
	assert.Equal(t, uint64(1), ev.Revision)
	assert.Equal(t, geom.Rot90, s.Snapshot().Rotation)
}

func TestLightKeepsRevision(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe()
	defer sub.Close()

	s.SetPointer(geom.Pt(0.5, 0.5))
	s.SetPointerStyle(PointerSpot)
	ev, ok := pending(sub.Light)
	require.True(t, ok)
	assert.Equal(t, FieldPointerStyle, ev.Field)
	_, heavy := pending(sub.Heavy)
	assert.False(t, heavy)
	assert.Equal(t, uint64(0), s.Revision())
}

func TestCoalescingKeepsNewest(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe()
	defer sub.Close()

	for i := 0; i < 20; i++ {
		s.SetBrightness(0.5 + float64(i)*0.05)
	}
	ev, ok := pending(sub.Heavy)
	require.True(t, ok)
	assert.Equal(t, uint64(20), ev.Revision)
	_, more := pending(sub.Heavy)
	assert.False(t, more)
}

func TestRotationRejectsOddAngles(t *testing.T) {
	s := NewStore()
	assert.ErrorIs(t, s.SetRotation(45), geom.ErrNotQuarterTurn)
	require.NoError(t, s.SetRotation(-90))
	assert.Equal(t, geom.Rot270, s.Snapshot().Rotation)
	s.RotateClockwise()
	assert.Equal(t, geom.Rot0, s.Snapshot().Rotation)
}

func TestBrightnessClamped(t *testing.T) {
	s := NewStore()
	s.SetBrightness(5)
	assert.Equal(t, MaxBrightness, s.Snapshot().Brightness)
	s.SetBrightness(0)
	assert.Equal(t, MinBrightness, s.Snapshot().Brightness)
}

func TestAddStrokeNeedsDrawingTool(t *testing.T) {
	s := NewStore()
	path := []geom.Point{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.2}}

	assert.False(t, s.AddStroke(path))
	s.SetTool(ToolLaser)
	assert.False(t, s.AddStroke(path))

	s.SetTool(ToolHighlighter)
	require.True(t, s.AddStroke(path))
	st := s.Snapshot()
	require.Len(t, st.Strokes, 1)
	assert.Equal(t, DefaultHighlighter.Color, st.Strokes[0].Color)
	assert.Equal(t, 25.0, st.Strokes[0].Thickness)
	assert.Equal(t, ToolHighlighter, st.Strokes[0].Tool)

	assert.False(t, s.AddStroke(path[:1]), "single point leaves no mark")
}

func TestSnapshotIsImmutable(t *testing.T) {
	s := NewStore()
	s.SetTool(ToolPen)
	s.AddStroke([]geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}})
	snap := s.Snapshot()
	s.AddStroke([]geom.Point{{X: 0, Y: 1}, {X: 1, Y: 0}})
	s.ClearStrokes()
	assert.Len(t, snap.Strokes, 1)
	assert.Empty(t, s.Snapshot().Strokes)
}

func TestClearStrokesEmitsOnlyWhenNonEmpty(t *testing.T) {
	s := NewStore()
	s.SetTool(ToolPen)
	sub := s.Subscribe()
	defer sub.Close()

	s.ClearStrokes()
	_, ok := pending(sub.Heavy)
	assert.False(t, ok)

	s.AddStroke([]geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}})
	pending(sub.Heavy)
	s.ClearStrokes()
	ev, ok := pending(sub.Heavy)
	require.True(t, ok)
	assert.Equal(t, FieldStrokes, ev.Field)
}

func TestTickOnlyNotifiesWithLaser(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe()
	defer sub.Close()

	s.Tick()
	_, ok := pending(sub.Light)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), s.Snapshot().Frame)

	s.SetTool(ToolLaser)
	pending(sub.Heavy)
	s.Tick()
	ev, ok := pending(sub.Light)
	require.True(t, ok)
	assert.Equal(t, FieldFrame, ev.Field)
	assert.Equal(t, uint64(2), s.Snapshot().Frame)
}

func TestMagnifierRecentresAndClamps(t *testing.T) {
	s := NewStore()
	s.SetMagnifierSize(20)
	roi := s.Snapshot().ROI
	assert.InDelta(t, 0.4, roi.X, 1e-9)
	assert.InDelta(t, 0.2, roi.W, 1e-9)
	assert.Equal(t, roi.W, roi.H)

	s.MoveROI(0.9, 0.9)
	s.SetMagnifierSize(60)
	roi = s.Snapshot().ROI
	assert.InDelta(t, 0.4, roi.X, 1e-9)
	assert.InDelta(t, 0.4, roi.Y, 1e-9)
	assert.InDelta(t, 0.6, roi.W, 1e-9)

	s.SetMagnifierSize(500)
	roi = s.Snapshot().ROI
	assert.Equal(t, NormalizedRect{X: 0, Y: 0, W: 1, H: 1}, roi)
}

func TestToggleROIRotation(t *testing.T) {
	s := NewStore()
	s.ToggleROIRotation()
	assert.Equal(t, geom.Rot90, s.Snapshot().ROIRotation)
	s.ToggleROIRotation()
	assert.Equal(t, geom.Rot0, s.Snapshot().ROIRotation)
	require.NoError(t, s.SetROIRotation(270))
	assert.Equal(t, geom.Rot90, s.Snapshot().ROIRotation)
}

func TestMoveROIClamps(t *testing.T) {
	s := NewStore()
	s.MoveROI(-1, 2)
	roi := s.Snapshot().ROI
	assert.Equal(t, 0.0, roi.X)
	assert.Equal(t, 0.5, roi.Y)
}

func TestWithStateNormalizes(t *testing.T) {
	st := DefaultState()
	st.ROI = NormalizedRect{X: 0.9, Y: 0.9, W: 0.5, H: 0.28125}
	st.Brightness = 9
	st.Strokes = []Stroke{
		{Points: []geom.Point{{X: 0, Y: 0}}, Thickness: 5},
		{Points: []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}, Thickness: 5},
	}
	s := NewStore(WithState(st))
	got := s.Snapshot()
	assert.Equal(t, NormalizedRect{X: 0.5, Y: 0.5, W: 0.5, H: 0.5}, got.ROI)
	assert.Equal(t, MaxBrightness, got.Brightness)
	assert.Len(t, got.Strokes, 1)
}

func TestSubscriptionClose(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe()
	sub.Close()
	sub.Close()
	_, open := <-sub.Heavy
	assert.False(t, open)
	s.SetBrightness(1.5)
}

func TestParseDisplayMode(t *testing.T) {
	for in, want := range map[string]DisplayMode{
		"fit": DisplayFit, "Preencher (Fill)": DisplayFill, "TILE": DisplayTile, "Centralizar (Center)": DisplayCenter,
	} {
		got, err := ParseDisplayMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDisplayMode("zoom")
	assert.Error(t, err)
}
