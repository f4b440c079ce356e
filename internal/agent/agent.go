/**
 * Agent context service
 *
 * The agent owns the privileged capabilities: the OCR engine, the system
 * clipboard and the settings store. It serves the page context over the
 * cross-context protocol and records an outcome statistic per extraction.
 */

package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/extractext/extractext/internal/clipboard"
	"github.com/extractext/extractext/internal/logging"
	"github.com/extractext/extractext/internal/notify"
	"github.com/extractext/extractext/internal/ocr"
	"github.com/extractext/extractext/internal/protocol"
	"github.com/extractext/extractext/internal/store"
)

// SettingsSource yields the current user settings. Implementations must not
// fail; missing or unreachable storage falls back to defaults.
type SettingsSource interface {
	Get(ctx context.Context) store.Settings
}

// StatsRecorder records one processed/succeeded outcome pair.
type StatsRecorder interface {
	Increment(ctx context.Context, success bool) error
}

type noStats struct{}

func (noStats) Increment(context.Context, bool) error { return nil }

// Options collects the agent's collaborators. Conn and Orchestrator are
// required; the rest default to inert implementations.
type Options struct {
	Conn         *protocol.Conn
	Orchestrator *ocr.Orchestrator
	Clipboard    clipboard.Writer
	Settings     SettingsSource
	Stats        StatsRecorder
	Notifier     notify.Presenter
}

type staticSettings struct{}

func (staticSettings) Get(context.Context) store.Settings { return store.DefaultSettings() }

// Service is the agent-context endpoint of the pipeline.
type Service struct {
	conn         *protocol.Conn
	orchestrator *ocr.Orchestrator
	clipboard    clipboard.Writer
	settings     SettingsSource
	stats        StatsRecorder
	notifier     notify.Presenter
	log          *logging.Logger
}

func New(opts Options) (*Service, error) {
	if opts.Conn == nil {
		return nil, fmt.Errorf("agent requires a protocol connection")
	}
	if opts.Orchestrator == nil {
		return nil, fmt.Errorf("agent requires an orchestrator")
	}
	if opts.Clipboard == nil {
		opts.Clipboard = &clipboard.Memory{}
	}
	if opts.Settings == nil {
		opts.Settings = staticSettings{}
	}
	if opts.Stats == nil {
		opts.Stats = noStats{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	s := &Service{
		conn:         opts.Conn,
		orchestrator: opts.Orchestrator,
		clipboard:    opts.Clipboard,
		settings:     opts.Settings,
		stats:        opts.Stats,
		notifier:     opts.Notifier,
		log:          logging.NewLogger("agent"),
	}
	s.register()
	return s, nil
}

// Start attaches the service to its channel.
func (s *Service) Start(ctx context.Context) error {
	return s.conn.Listen(ctx)
}

// Shutdown detaches from the transport and terminates the engine. Safe to
// call more than once.
func (s *Service) Shutdown() {
	s.conn.Close()
	s.orchestrator.Shutdown()
}

func (s *Service) register() {
	s.conn.Handle(protocol.ActionPing, s.handlePing)
	s.conn.Handle(protocol.ActionProcessImage, s.handleProcessImage)
	s.conn.Handle(protocol.ActionCopyToClipboard, s.handleCopyToClipboard)
	s.conn.Handle(protocol.ActionGetSettings, s.handleGetSettings)
}

func (s *Service) handlePing(ctx context.Context, _ json.RawMessage, respond protocol.Responder) protocol.Disposition {
	respond(protocol.PingResponse{Ready: true})
	return protocol.Answered
}

// handleProcessImage runs recognition off the dispatch path so a slow
// extraction never blocks other exchanges on the channel.
func (s *Service) handleProcessImage(ctx context.Context, payload json.RawMessage, respond protocol.Responder) protocol.Disposition {
	var req protocol.ProcessImageRequest
	if err := protocol.DecodePayload(payload, &req); err != nil {
		respond(protocol.ProcessImageResponse{Success: false, Error: err.Error()})
		return protocol.Answered
	}

	go func() {
		result, err := s.orchestrator.Process(ctx, req.ImageData, req.Settings)
		s.recordOutcome(ctx, err == nil)
		if err != nil {
			msg, code := protocol.FailureOf(err)
			s.log.Warn("extraction failed", "code", code, "error", msg)
			s.notifier.Show("Text extraction failed: "+msg, notify.KindError)
			respond(protocol.ProcessImageResponse{Success: false, Error: msg, Code: code})
			return
		}
		s.notifier.Show(fmt.Sprintf("Extracted %d characters", len(result.Text)), notify.KindSuccess)
		respond(protocol.ProcessImageResponse{
			Success:     true,
			Text:        result.Text,
			Confidence:  result.Confidence,
			Words:       result.Words,
			ImageWidth:  result.ImageWidth,
			ImageHeight: result.ImageHeight,
		})
	}()
	return protocol.WillAnswer
}

func (s *Service) handleCopyToClipboard(ctx context.Context, payload json.RawMessage, respond protocol.Responder) protocol.Disposition {
	var req protocol.CopyToClipboardRequest
	if err := protocol.DecodePayload(payload, &req); err != nil {
		respond(protocol.CopyToClipboardResponse{Success: false, Error: err.Error()})
		return protocol.Answered
	}
	if err := s.clipboard.Write(req.Text); err != nil {
		msg, code := protocol.FailureOf(err)
		respond(protocol.CopyToClipboardResponse{Success: false, Error: msg, Code: code})
		return protocol.Answered
	}
	respond(protocol.CopyToClipboardResponse{Success: true})
	return protocol.Answered
}

// handleGetSettings never fails: the source already falls back to defaults.
func (s *Service) handleGetSettings(ctx context.Context, _ json.RawMessage, respond protocol.Responder) protocol.Disposition {
	settings := s.settings.Get(ctx)
	respond(protocol.GetSettingsResponse{
		AutoEnhance:       settings.AutoEnhance,
		MultiLanguage:     settings.MultiLanguage,
		ShowNotifications: settings.ShowNotifications,
	})
	return protocol.Answered
}

func (s *Service) recordOutcome(ctx context.Context, success bool) {
	if err := s.stats.Increment(ctx, success); err != nil {
		// Statistics are best effort; a storage hiccup must not surface to
		// the caller.
		s.log.Warn("failed to record extraction outcome", "error", err)
	}
}
