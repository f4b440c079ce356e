package overlay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	xerrors "github.com/extractext/extractext/internal/errors"
	"github.com/extractext/extractext/internal/ocr"
)

type fakeClipboard struct {
	text   string
	writes int
	err    error
}

func (c *fakeClipboard) Write(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	c.writes++
	return nil
}

func sampleResult() *ocr.Result {
	return &ocr.Result{
		Text:       "alpha beta gamma delta",
		Confidence: 91,
		Words: []ocr.WordBox{
			{Text: "alpha", X0: 0, Y0: 0, X1: 100, Y1: 40},
			{Text: "beta", X0: 120, Y0: 0, X1: 200, Y1: 40},
			{Text: "gamma", X0: 0, Y0: 60, X1: 110, Y1: 100},
			{Text: "delta", X0: 130, Y0: 60, X1: 220, Y1: 100},
		},
		ImageWidth:  400,
		ImageHeight: 200,
	}
}

func openOverlay(t *testing.T, clip *fakeClipboard) *Overlay {
	t.Helper()
	o, err := Open(sampleResult(), 400, 200, clip, nil)
	require.NoError(t, err)
	return o
}

func TestOpenRequiresWords(t *testing.T) {
	clip := &fakeClipboard{}

	_, err := Open(&ocr.Result{Text: "x", ImageWidth: 10, ImageHeight: 10}, 10, 10, clip, nil)
	require.Error(t, err)

	_, err = Open(nil, 10, 10, clip, nil)
	require.Error(t, err)

	o := openOverlay(t, clip)
	require.Equal(t, StateNoSelection, o.State())
}

func TestGeometryRoundTrip(t *testing.T) {
	tests := []struct {
		name                   string
		recW, recH             int
		dispW, dispH           float64
	}{
		{name: "identity", recW: 400, recH: 200, dispW: 400, dispH: 200},
		{name: "downscaled display", recW: 800, recH: 400, dispW: 400, dispH: 200},
		{name: "upscaled display", recW: 400, recH: 200, dispW: 1000, dispH: 600},
		{name: "non-uniform", recW: 640, recH: 480, dispW: 320, dispH: 600},
	}

	word := ocr.WordBox{Text: "w", X0: 37, Y0: 11, X1: 143, Y1: 53}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := &ocr.Result{
				Text:        "w",
				Words:       []ocr.WordBox{word},
				ImageWidth:  tt.recW,
				ImageHeight: tt.recH,
			}
			o, err := Open(result, tt.dispW, tt.dispH, &fakeClipboard{}, nil)
			require.NoError(t, err)

			scaleX := tt.dispW / float64(tt.recW)
			scaleY := tt.dispH / float64(tt.recH)
			got := o.Regions()[0]

			require.InDelta(t, word.X0*scaleX, got.X, 1e-9)
			require.InDelta(t, word.Y0*scaleY, got.Y, 1e-9)
			require.InDelta(t, (word.X1-word.X0)*scaleX, got.Width, 1e-9)
			require.InDelta(t, (word.Y1-word.Y0)*scaleY, got.Height, 1e-9)
		})
	}
}

func TestResizeRecomputesRegions(t *testing.T) {
	o := openOverlay(t, &fakeClipboard{})
	before := o.Regions()[1]

	o.Resize(800, 400)
	after := o.Regions()[1]

	require.InDelta(t, before.X*2, after.X, 1e-9)
	require.InDelta(t, before.Width*2, after.Width, 1e-9)
}

func TestDragSelectionFlow(t *testing.T) {
	o := openOverlay(t, &fakeClipboard{})

	o.PointerDown(1)
	require.Equal(t, StateSelecting, o.State())
	require.True(t, o.IsDragging())
	require.Equal(t, []int{1}, o.SelectedIndices())

	o.PointerEnter(3)
	o.PointerEnter(3) // re-enter is a no-op
	require.Equal(t, []int{1, 3}, o.SelectedIndices())

	o.PointerUp()
	require.Equal(t, StateHasSelection, o.State())
	require.False(t, o.IsDragging())
}

func TestPointerDownClearsPriorSelection(t *testing.T) {
	o := openOverlay(t, &fakeClipboard{})

	o.PointerDown(0)
	o.PointerEnter(1)
	o.PointerUp()
	require.Equal(t, 2, o.SelectionCount())

	o.PointerDown(2)
	require.Equal(t, []int{2}, o.SelectedIndices())
	require.Equal(t, StateSelecting, o.State())
}

func TestPointerEnterIgnoredOutsideDrag(t *testing.T) {
	o := openOverlay(t, &fakeClipboard{})

	o.PointerEnter(0)
	require.Equal(t, 0, o.SelectionCount())
	require.Equal(t, StateNoSelection, o.State())
}

func TestCopySelectionJoinsInIndexOrder(t *testing.T) {
	clip := &fakeClipboard{}
	o := openOverlay(t, clip)

	// Select in click order 3, 1, 2.
	o.PointerDown(3)
	o.PointerEnter(1)
	o.PointerEnter(2)
	o.PointerUp()

	text, err := o.CopySelection()
	require.NoError(t, err)
	require.Equal(t, "beta gamma delta", text)
	require.Equal(t, "beta gamma delta", clip.text)
	require.Equal(t, StateClosed, o.State())
	require.Equal(t, 0, o.SelectionCount())
}

func TestCopySelectionRequiresSelection(t *testing.T) {
	o := openOverlay(t, &fakeClipboard{})

	_, err := o.CopySelection()
	require.Error(t, err)
	require.NotEqual(t, StateClosed, o.State())
}

func TestCopySelectionClipboardFailureKeepsOverlayOpen(t *testing.T) {
	clip := &fakeClipboard{err: errors.New("denied")}
	o := openOverlay(t, clip)

	o.SelectAll()
	_, err := o.CopySelection()
	require.Equal(t, xerrors.ErrorClipboard, xerrors.CodeOf(err))
	require.Equal(t, StateHasSelection, o.State())
}

func TestCopyAllUsesFullTextVerbatim(t *testing.T) {
	clip := &fakeClipboard{}
	o := openOverlay(t, clip)

	text, err := o.CopyAll()
	require.NoError(t, err)
	require.Equal(t, "alpha beta gamma delta", text)
	require.Equal(t, StateClosed, o.State())
}

func TestSelectAllAndClear(t *testing.T) {
	o := openOverlay(t, &fakeClipboard{})

	o.SelectAll()
	require.Equal(t, StateHasSelection, o.State())
	require.Equal(t, []int{0, 1, 2, 3}, o.SelectedIndices())

	o.ClearSelection()
	require.Equal(t, StateNoSelection, o.State())
	require.Equal(t, 0, o.SelectionCount())

	// Both also work mid-drag.
	o.PointerDown(0)
	o.SelectAll()
	require.Equal(t, 4, o.SelectionCount())
}

func TestPointerUpWithEmptySelectionReturnsToNoSelection(t *testing.T) {
	o := openOverlay(t, &fakeClipboard{})

	o.PointerDown(0)
	o.ClearSelection()
	require.Equal(t, StateNoSelection, o.State())

	o.PointerUp()
	require.Equal(t, StateNoSelection, o.State())
}

func TestCloseDiscardsSelectionUnconditionally(t *testing.T) {
	o := openOverlay(t, &fakeClipboard{})

	o.PointerDown(0)
	o.PointerEnter(1)
	o.Close()

	require.Equal(t, StateClosed, o.State())
	require.Equal(t, 0, o.SelectionCount())

	// Interaction after close is inert.
	o.PointerDown(2)
	require.Equal(t, StateClosed, o.State())
	_, err := o.CopyAll()
	require.Error(t, err)
}

func TestPresenterNotifications(t *testing.T) {
	p := &recordingPresenter{}
	o, err := Open(sampleResult(), 400, 200, &fakeClipboard{}, p)
	require.NoError(t, err)

	o.PointerDown(0)
	o.PointerEnter(2)
	o.Close()

	require.Equal(t, 4, p.openedWords)
	require.Equal(t, []int{1, 2}, p.counts)
	require.True(t, p.closed)
}

type recordingPresenter struct {
	openedWords int
	counts      []int
	closed      bool
}

func (p *recordingPresenter) Opened(n int)           { p.openedWords = n }
func (p *recordingPresenter) SelectionChanged(n int) { p.counts = append(p.counts, n) }
func (p *recordingPresenter) Closed()                { p.closed = true }
