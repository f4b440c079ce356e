/**
 * Page context service
 *
 * The page context finds candidate images, drives extractions and presents
 * results. It holds no privileged capability itself: recognition, settings
 * and the clipboard all live in the agent context and are reached over the
 * protocol.
 */

package page

import (
	"context"
	"encoding/json"
	"fmt"

	xerrors "github.com/extractext/extractext/internal/errors"
	"github.com/extractext/extractext/internal/logging"
	"github.com/extractext/extractext/internal/notify"
	"github.com/extractext/extractext/internal/ocr"
	"github.com/extractext/extractext/internal/overlay"
	"github.com/extractext/extractext/internal/protocol"
)

// Options collects the page service's collaborators. Conn and Agent are
// required; Loader and Notifier default to working implementations.
type Options struct {
	Conn     *protocol.Conn
	Agent    *AgentClient
	Loader   ImageLoader
	Notifier notify.Presenter
}

// Service is the page-context endpoint of the pipeline.
type Service struct {
	conn     *protocol.Conn
	agent    *AgentClient
	loader   ImageLoader
	notifier notify.Presenter
	log      *logging.Logger
}

func New(opts Options) (*Service, error) {
	if opts.Conn == nil {
		return nil, fmt.Errorf("page service requires a protocol connection")
	}
	if opts.Agent == nil {
		return nil, fmt.Errorf("page service requires an agent client")
	}
	if opts.Loader == nil {
		opts.Loader = NewHTTPImageLoader()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	s := &Service{
		conn:     opts.Conn,
		agent:    opts.Agent,
		loader:   opts.Loader,
		notifier: opts.Notifier,
		log:      logging.NewLogger("page"),
	}
	s.register()
	return s, nil
}

// Start attaches the service to its channel.
func (s *Service) Start(ctx context.Context) error {
	return s.conn.Listen(ctx)
}

// Shutdown detaches from the transport.
func (s *Service) Shutdown() {
	s.conn.Close()
}

func (s *Service) register() {
	s.conn.Handle(protocol.ActionGetImageData, s.handleGetImageData)
	s.conn.Handle(protocol.ActionExtractText, s.handleExtractText)
}

func (s *Service) handleGetImageData(ctx context.Context, payload json.RawMessage, respond protocol.Responder) protocol.Disposition {
	var req protocol.GetImageDataRequest
	if err := protocol.DecodePayload(payload, &req); err != nil {
		respond(protocol.GetImageDataResponse{Success: false, Error: err.Error()})
		return protocol.Answered
	}
	img, err := s.loader.Load(ctx, req.ImageURL)
	if err != nil {
		msg, code := protocol.FailureOf(err)
		respond(protocol.GetImageDataResponse{Success: false, Error: msg, Code: code})
		return protocol.Answered
	}
	respond(protocol.GetImageDataResponse{
		Success:   true,
		ImageData: img.Payload,
		Width:     img.Width,
		Height:    img.Height,
	})
	return protocol.Answered
}

// handleExtractText runs the full non-interactive flow: load the image, have
// the agent recognize it, copy the cleaned text. Slow by nature, so it keeps
// the responder and answers from its own goroutine.
func (s *Service) handleExtractText(ctx context.Context, payload json.RawMessage, respond protocol.Responder) protocol.Disposition {
	var req protocol.ExtractTextRequest
	if err := protocol.DecodePayload(payload, &req); err != nil {
		respond(protocol.ExtractTextResponse{Success: false, Error: err.Error()})
		return protocol.Answered
	}

	go func() {
		text, err := s.ExtractAndCopy(ctx, req.ImageURL)
		if err != nil {
			msg, code := protocol.FailureOf(err)
			respond(protocol.ExtractTextResponse{Success: false, Error: msg, Code: code})
			return
		}
		respond(protocol.ExtractTextResponse{Success: true, Text: text})
	}()
	return protocol.WillAnswer
}

// ExtractAndCopy recognizes the image and copies the full cleaned text to the
// clipboard. Used by the extractText handler and by batch callers that do not
// want interactive selection.
func (s *Service) ExtractAndCopy(ctx context.Context, imageURL string) (string, error) {
	result, _, err := s.recognize(ctx, imageURL)
	if err != nil {
		s.notifyError(ctx, err)
		return "", err
	}
	if err := s.agent.CopyToClipboard(ctx, result.Text); err != nil {
		s.notifyError(ctx, err)
		return "", err
	}
	s.notifySuccess(ctx, fmt.Sprintf("Copied %d characters to clipboard", len(result.Text)))
	return result.Text, nil
}

// ExtractWithOverlay recognizes the image and opens the selection overlay
// over its displayed footprint. The caller owns the returned overlay and
// drives it with pointer events; copies go through the agent clipboard.
func (s *Service) ExtractWithOverlay(ctx context.Context, imageURL string, displayWidth, displayHeight float64) (*overlay.Overlay, error) {
	result, img, err := s.recognize(ctx, imageURL)
	if err != nil {
		s.notifyError(ctx, err)
		return nil, err
	}
	if displayWidth <= 0 || displayHeight <= 0 {
		displayWidth = float64(img.Width)
		displayHeight = float64(img.Height)
	}
	ov, err := overlay.Open(result, displayWidth, displayHeight, &remoteClipboard{ctx: ctx, agent: s.agent}, overlay.NopPresenter{})
	if err != nil {
		// No word geometry to select over; degrade to a plain copy.
		if copyErr := s.agent.CopyToClipboard(ctx, result.Text); copyErr != nil {
			s.notifyError(ctx, copyErr)
			return nil, copyErr
		}
		s.notifySuccess(ctx, fmt.Sprintf("Copied %d characters to clipboard", len(result.Text)))
		return nil, nil
	}
	return ov, nil
}

func (s *Service) recognize(ctx context.Context, imageURL string) (*ocr.Result, *ImageData, error) {
	settings := s.agent.GetSettings(ctx)
	img, err := s.loader.Load(ctx, imageURL)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.agent.ProcessImage(ctx, img.Payload, settings.OCR())
	if err != nil {
		return nil, nil, err
	}
	return result, img, nil
}

func (s *Service) notifySuccess(ctx context.Context, message string) {
	if s.agent.GetSettings(ctx).ShowNotifications {
		s.notifier.Show(message, notify.KindSuccess)
	}
}

func (s *Service) notifyError(ctx context.Context, err error) {
	if !s.agent.GetSettings(ctx).ShowNotifications {
		return
	}
	switch {
	case xerrors.IsEngineBusy(err):
		s.notifier.Show("An extraction is already running, try again shortly", notify.KindError)
	case xerrors.IsNoTextFound(err):
		s.notifier.Show("No readable text found in this image", notify.KindInfo)
	default:
		s.notifier.Show("Text extraction failed: "+err.Error(), notify.KindError)
	}
}

// remoteClipboard satisfies the overlay's clipboard over the agent protocol.
type remoteClipboard struct {
	ctx   context.Context
	agent *AgentClient
}

func (r *remoteClipboard) Write(text string) error {
	return r.agent.CopyToClipboard(r.ctx, text)
}
