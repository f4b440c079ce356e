/**
 * OCR Orchestrator
 *
 * Composes Preprocessing -> Engine Adapter -> Cleanup under the single-flight
 * lock. A concurrent call is rejected with ENGINE_BUSY; it is never queued.
 */

package ocr

import (
	"context"
	"strings"
	"time"

	xerrors "github.com/extractext/extractext/internal/errors"
	"github.com/extractext/extractext/internal/logging"
)

// multiLanguageSet is the language set used when multiLanguage is enabled.
var multiLanguageSet = []string{"eng", "deu", "fra", "spa"}

// OrchestratorConfig holds orchestrator configuration
type OrchestratorConfig struct {
	// Languages is the base tesseract language list (default: eng).
	Languages []string
	// EnhanceTargetEdge is the preprocessing upscale target (default: 800).
	EnhanceTargetEdge int
}

// Orchestrator runs the recognition pipeline against the shared engine.
type Orchestrator struct {
	engines *Manager
	config  OrchestratorConfig
	log     *logging.Logger
}

// NewOrchestrator creates an orchestrator over the given engine manager.
func NewOrchestrator(engines *Manager, cfg OrchestratorConfig) *Orchestrator {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	if cfg.EnhanceTargetEdge <= 0 {
		cfg.EnhanceTargetEdge = DefaultTargetEdge
	}
	return &Orchestrator{
		engines: engines,
		config:  cfg,
		log:     logging.NewLogger("orchestrator"),
	}
}

// Process runs one orchestration call: lock, acquire engine, optionally
// enhance, recognize, clean. The lock is released on every exit path.
//
// The recognition call itself has no internal timeout; an unresponsive engine
// holds the lock until it returns. Callers bound the whole exchange with the
// protocol-level timeout instead.
func (o *Orchestrator) Process(ctx context.Context, image []byte, settings Settings) (*Result, error) {
	if !o.engines.TryLock() {
		return nil, xerrors.NewEngineBusyError()
	}
	defer o.engines.Unlock()

	start := time.Now()

	engine, err := o.engines.Acquire(ctx)
	if err != nil {
		return nil, xerrors.NewEngineInitError(err)
	}

	payload := image
	if settings.AutoEnhance {
		enhanced, err := EnhanceImage(image, o.config.EnhanceTargetEdge)
		if err != nil {
			// Recognition still has a chance on the original payload.
			o.log.Warn("preprocessing failed, using original image", "error", err)
		} else {
			payload = enhanced
		}
	}

	raw, err := engine.Recognize(ctx, Request{
		Image:     payload,
		Languages: o.languages(settings),
	})
	if err != nil {
		return nil, xerrors.NewRecognitionError(err)
	}

	text := CleanText(raw.Text)
	if strings.TrimSpace(text) == "" {
		return nil, xerrors.NewNoTextFoundError()
	}

	duration := time.Since(start)
	o.log.Info("recognition completed",
		"chars", len(text),
		"words", len(raw.Words),
		"confidence", raw.Confidence,
		"enhanced", settings.AutoEnhance,
		"duration", duration)

	return &Result{
		Text:        text,
		Confidence:  raw.Confidence,
		Words:       raw.Words,
		ImageWidth:  raw.ImageWidth,
		ImageHeight: raw.ImageHeight,
		Duration:    duration,
	}, nil
}

// Shutdown terminates the shared engine handle if present.
func (o *Orchestrator) Shutdown() {
	o.engines.Terminate()
}

func (o *Orchestrator) languages(settings Settings) []string {
	if settings.MultiLanguage {
		return multiLanguageSet
	}
	return o.config.Languages
}
