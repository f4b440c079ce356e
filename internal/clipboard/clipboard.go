package clipboard

import (
	"strings"
	"sync"

	"github.com/atotto/clipboard"

	perrors "github.com/extractext/extractext/internal/errors"
)

// Writer places text onto a clipboard.
type Writer interface {
	Write(text string) error
}

// System writes to the host clipboard.
type System struct{}

func (System) Write(text string) error {
	if strings.TrimSpace(text) == "" {
		return perrors.NewClipboardError(nil)
	}
	if err := clipboard.WriteAll(text); err != nil {
		return perrors.NewClipboardError(err)
	}
	return nil
}

// Memory captures writes in process. Used when no host clipboard is
// available and by tests.
type Memory struct {
	mu   sync.Mutex
	text string
	set  bool
}

func (m *Memory) Write(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	m.set = true
	return nil
}

// Read returns the last written text and whether anything was written.
func (m *Memory) Read() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, m.set
}
