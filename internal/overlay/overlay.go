/**
 * Text selection overlay
 *
 * Consumes an OCR result with word bounding boxes, maps word geometry from the
 * recognized image's coordinate space onto the displayed image, and drives the
 * selection state machine ending in a copy action. Rendering is the embedder's
 * job; this module owns state and geometry only.
 */

package overlay

import (
	"fmt"
	"sort"
	"strings"

	xerrors "github.com/extractext/extractext/internal/errors"
	"github.com/extractext/extractext/internal/ocr"
)

// State enumerates the overlay lifecycle.
type State int

const (
	StateClosed State = iota
	StateNoSelection
	StateSelecting
	StateHasSelection
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateNoSelection:
		return "open(no-selection)"
	case StateSelecting:
		return "open(selecting)"
	case StateHasSelection:
		return "open(has-selection)"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Region is one word's selectable rectangle in display-space pixels.
type Region struct {
	X, Y          float64
	Width, Height float64
}

// Clipboard is the collaborator that receives copied text.
type Clipboard interface {
	Write(text string) error
}

// Presenter receives state changes for rendering. All methods are optional
// notifications; the overlay never depends on their effects.
type Presenter interface {
	Opened(wordCount int)
	SelectionChanged(count int)
	Closed()
}

// NopPresenter is a Presenter that does nothing.
type NopPresenter struct{}

func (NopPresenter) Opened(int)           {}
func (NopPresenter) SelectionChanged(int) {}
func (NopPresenter) Closed()              {}

// Overlay is one open selection session over a single image. Selection state
// lives exactly as long as the overlay; closing discards it unconditionally.
type Overlay struct {
	result    *ocr.Result
	regions   []Region
	state     State
	selected  map[int]struct{}
	clipboard Clipboard
	presenter Presenter
}

// Open enters open(no-selection) for an OCR result with non-empty words,
// computing each word's display-space region for the given displayed size.
func Open(result *ocr.Result, displayWidth, displayHeight float64, clipboard Clipboard, presenter Presenter) (*Overlay, error) {
	if result == nil || len(result.Words) == 0 {
		return nil, fmt.Errorf("overlay requires word bounding boxes")
	}
	if result.ImageWidth <= 0 || result.ImageHeight <= 0 {
		return nil, fmt.Errorf("recognized image size unknown: %dx%d", result.ImageWidth, result.ImageHeight)
	}
	if displayWidth <= 0 || displayHeight <= 0 {
		return nil, fmt.Errorf("invalid display size: %gx%g", displayWidth, displayHeight)
	}
	if presenter == nil {
		presenter = NopPresenter{}
	}

	o := &Overlay{
		result:    result,
		state:     StateNoSelection,
		selected:  make(map[int]struct{}),
		clipboard: clipboard,
		presenter: presenter,
	}
	o.regions = mapRegions(result, displayWidth, displayHeight)
	o.presenter.Opened(len(result.Words))
	return o, nil
}

// mapRegions scales word boxes from recognized-image space to display space.
func mapRegions(result *ocr.Result, displayWidth, displayHeight float64) []Region {
	scaleX := displayWidth / float64(result.ImageWidth)
	scaleY := displayHeight / float64(result.ImageHeight)

	regions := make([]Region, len(result.Words))
	for i, w := range result.Words {
		regions[i] = Region{
			X:      w.X0 * scaleX,
			Y:      w.Y0 * scaleY,
			Width:  (w.X1 - w.X0) * scaleX,
			Height: (w.Y1 - w.Y0) * scaleY,
		}
	}
	return regions
}

// State returns the current lifecycle state.
func (o *Overlay) State() State { return o.state }

// Regions returns the display-space region per word index.
func (o *Overlay) Regions() []Region { return o.regions }

// IsDragging reports whether a drag selection is in progress.
func (o *Overlay) IsDragging() bool { return o.state == StateSelecting }

// SelectionCount returns the number of selected words.
func (o *Overlay) SelectionCount() int { return len(o.selected) }

// SelectedIndices returns the selected word indices in ascending order.
func (o *Overlay) SelectedIndices() []int {
	indices := make([]int, 0, len(o.selected))
	for i := range o.selected {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// Resize recomputes region geometry for a new displayed size while open.
func (o *Overlay) Resize(displayWidth, displayHeight float64) {
	if o.state == StateClosed || displayWidth <= 0 || displayHeight <= 0 {
		return
	}
	o.regions = mapRegions(o.result, displayWidth, displayHeight)
}

// PointerDown starts a fresh selection on the given word: prior selection is
// cleared, the word selected, and the overlay enters selecting.
func (o *Overlay) PointerDown(index int) {
	if o.state == StateClosed || index < 0 || index >= len(o.result.Words) {
		return
	}
	o.selected = map[int]struct{}{index: {}}
	o.state = StateSelecting
	o.presenter.SelectionChanged(1)
}

// PointerEnter adds the word to the selection while dragging. Addition order
// never affects the copied text; output always follows word index order.
func (o *Overlay) PointerEnter(index int) {
	if o.state != StateSelecting || index < 0 || index >= len(o.result.Words) {
		return
	}
	if _, ok := o.selected[index]; ok {
		return
	}
	o.selected[index] = struct{}{}
	o.presenter.SelectionChanged(len(o.selected))
}

// PointerUp ends the drag.
func (o *Overlay) PointerUp() {
	if o.state != StateSelecting {
		return
	}
	if len(o.selected) == 0 {
		o.state = StateNoSelection
	} else {
		o.state = StateHasSelection
	}
}

// SelectAll selects every word. Available in any open state.
func (o *Overlay) SelectAll() {
	if o.state == StateClosed {
		return
	}
	o.selected = make(map[int]struct{}, len(o.result.Words))
	for i := range o.result.Words {
		o.selected[i] = struct{}{}
	}
	o.state = StateHasSelection
	o.presenter.SelectionChanged(len(o.selected))
}

// ClearSelection empties the selection. Available in any open state.
func (o *Overlay) ClearSelection() {
	if o.state == StateClosed {
		return
	}
	o.selected = make(map[int]struct{})
	o.state = StateNoSelection
	o.presenter.SelectionChanged(0)
}

// SelectedText concatenates the selected words' original text in ascending
// index order, space-joined.
func (o *Overlay) SelectedText() string {
	parts := make([]string, 0, len(o.selected))
	for _, i := range o.SelectedIndices() {
		if text := strings.TrimSpace(o.result.Words[i].Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// CopySelection hands the selected text to the clipboard and closes on
// success. Disabled while the selection is empty; a clipboard failure
// surfaces CLIPBOARD and keeps the overlay open.
func (o *Overlay) CopySelection() (string, error) {
	if o.state == StateClosed {
		return "", fmt.Errorf("overlay is closed")
	}
	if len(o.selected) == 0 {
		return "", fmt.Errorf("nothing selected")
	}

	text := o.SelectedText()
	if err := o.clipboard.Write(text); err != nil {
		return "", xerrors.NewClipboardError(err)
	}
	o.Close()
	return text, nil
}

// CopyAll hands the full result text to the clipboard verbatim and closes on
// success.
func (o *Overlay) CopyAll() (string, error) {
	if o.state == StateClosed {
		return "", fmt.Errorf("overlay is closed")
	}

	text := o.result.Text
	if err := o.clipboard.Write(text); err != nil {
		return "", xerrors.NewClipboardError(err)
	}
	o.Close()
	return text, nil
}

// Close reaches the terminal state and discards selection state
// unconditionally. Outside clicks and the escape key land here too.
func (o *Overlay) Close() {
	if o.state == StateClosed {
		return
	}
	o.state = StateClosed
	o.selected = make(map[int]struct{})
	o.presenter.Closed()
}
