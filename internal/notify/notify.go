package notify

import "github.com/extractext/extractext/internal/logging"

// Kind classifies a notification for presentation.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Presenter shows a user-facing notification. Presentation is a collaborator
// capability; pipeline logic only decides when to call it.
type Presenter interface {
	Show(message string, kind Kind)
}

// LogPresenter renders notifications onto the structured log, for headless
// runs and as the default when no host presenter is wired in.
type LogPresenter struct {
	log *logging.Logger
}

func NewLogPresenter() *LogPresenter {
	return &LogPresenter{log: logging.NewLogger("notify")}
}

func (p *LogPresenter) Show(message string, kind Kind) {
	switch kind {
	case KindError:
		p.log.Error(message)
	default:
		p.log.Info(message, "kind", kind)
	}
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) Show(string, Kind) {}
