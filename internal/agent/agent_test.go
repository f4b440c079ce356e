package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extractext/extractext/internal/clipboard"
	xerrors "github.com/extractext/extractext/internal/errors"
	"github.com/extractext/extractext/internal/notify"
	"github.com/extractext/extractext/internal/ocr"
	"github.com/extractext/extractext/internal/protocol"
	"github.com/extractext/extractext/internal/store"
)

const testTimeout = 2 * time.Second

type fakeEngine struct {
	mu      sync.Mutex
	result  *ocr.RawResult
	err     error
	block   chan struct{}
	started chan struct{}
	once    sync.Once
}

func (f *fakeEngine) Recognize(ctx context.Context, req ocr.Request) (*ocr.RawResult, error) {
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeEngine) Close() error { return nil }

type fakeSettings struct {
	settings store.Settings
}

func (f *fakeSettings) Get(context.Context) store.Settings { return f.settings }

type fakeStats struct {
	mu        sync.Mutex
	processed int
	succeeded int
}

func (f *fakeStats) Increment(_ context.Context, success bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed++
	if success {
		f.succeeded++
	}
	return nil
}

func (f *fakeStats) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processed, f.succeeded
}

type recordingNotifier struct {
	mu    sync.Mutex
	shown []string
}

func (r *recordingNotifier) Show(message string, _ notify.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, message)
}

type harness struct {
	service *Service
	caller  *protocol.Conn
	clip    *clipboard.Memory
	stats   *fakeStats
}

func newHarness(t *testing.T, engine ocr.Engine, opts Options) *harness {
	t.Helper()
	ctx := context.Background()
	bus := protocol.NewBus()

	opts.Conn = protocol.NewConn("agent", bus)
	opts.Orchestrator = ocr.NewOrchestrator(
		ocr.NewManager(func() (ocr.Engine, error) { return engine, nil }),
		ocr.OrchestratorConfig{Languages: []string{"eng"}},
	)
	clip := &clipboard.Memory{}
	if opts.Clipboard == nil {
		opts.Clipboard = clip
	}
	stats := &fakeStats{}
	if opts.Stats == nil {
		opts.Stats = stats
	}

	service, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, service.Start(ctx))
	t.Cleanup(service.Shutdown)

	caller := protocol.NewConn("page", bus)
	require.NoError(t, caller.Listen(ctx))
	t.Cleanup(caller.Close)

	return &harness{service: service, caller: caller, clip: clip, stats: stats}
}

func TestAgentAnswersPing(t *testing.T) {
	h := newHarness(t, &fakeEngine{result: &ocr.RawResult{Text: "x"}}, Options{})
	require.NoError(t, h.caller.Ping(context.Background(), "agent", testTimeout))
}

func TestProcessImageReturnsRecognizedText(t *testing.T) {
	engine := &fakeEngine{result: &ocr.RawResult{
		Text:        "hello   world",
		Confidence:  91,
		Words:       []ocr.WordBox{{Text: "hello", X0: 1, Y0: 2, X1: 40, Y1: 20}},
		ImageWidth:  640,
		ImageHeight: 480,
	}}
	h := newHarness(t, engine, Options{})

	raw, err := h.caller.Send(context.Background(), "agent", protocol.ActionProcessImage, protocol.ProcessImageRequest{
		ImageData: []byte("png-bytes"),
		Settings:  ocr.Settings{AutoEnhance: false},
	}, testTimeout)
	require.NoError(t, err)

	var resp protocol.ProcessImageResponse
	require.NoError(t, protocol.DecodePayload(raw, &resp))
	require.True(t, resp.Success)
	assert.Equal(t, "hello world", resp.Text)
	assert.Equal(t, 91.0, resp.Confidence)
	assert.Equal(t, 640, resp.ImageWidth)
	assert.Equal(t, 480, resp.ImageHeight)
	require.Len(t, resp.Words, 1)
	assert.Equal(t, "hello", resp.Words[0].Text)

	processed, succeeded := h.stats.counts()
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, succeeded)
}

func TestProcessImageFailureCarriesCode(t *testing.T) {
	engine := &fakeEngine{result: &ocr.RawResult{Text: "   "}}
	notifier := &recordingNotifier{}
	h := newHarness(t, engine, Options{Notifier: notifier})

	raw, err := h.caller.Send(context.Background(), "agent", protocol.ActionProcessImage, protocol.ProcessImageRequest{
		ImageData: []byte("png-bytes"),
	}, testTimeout)
	require.NoError(t, err)

	var resp protocol.ProcessImageResponse
	require.NoError(t, protocol.DecodePayload(raw, &resp))
	require.False(t, resp.Success)
	assert.Equal(t, string(xerrors.ErrorNoTextFound), resp.Code)

	processed, succeeded := h.stats.counts()
	assert.Equal(t, 1, processed)
	assert.Equal(t, 0, succeeded)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.NotEmpty(t, notifier.shown)
}

func TestProcessImageRejectsConcurrentRequest(t *testing.T) {
	engine := &fakeEngine{
		result:  &ocr.RawResult{Text: "slow"},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	h := newHarness(t, engine, Options{})
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() {
		_, err := h.caller.Send(ctx, "agent", protocol.ActionProcessImage, protocol.ProcessImageRequest{
			ImageData: []byte("a"),
		}, testTimeout)
		firstDone <- err
	}()

	// The first request is inside the engine, so it holds the lock.
	select {
	case <-engine.started:
	case <-time.After(testTimeout):
		t.Fatal("first request never reached the engine")
	}

	raw, err := h.caller.Send(ctx, "agent", protocol.ActionProcessImage, protocol.ProcessImageRequest{
		ImageData: []byte("b"),
	}, testTimeout)
	require.NoError(t, err)
	var resp protocol.ProcessImageResponse
	require.NoError(t, protocol.DecodePayload(raw, &resp))
	require.False(t, resp.Success)
	assert.Equal(t, string(xerrors.ErrorEngineBusy), resp.Code)

	close(engine.block)
	require.NoError(t, <-firstDone)
}

func TestCopyToClipboard(t *testing.T) {
	h := newHarness(t, &fakeEngine{result: &ocr.RawResult{Text: "x"}}, Options{})

	raw, err := h.caller.Send(context.Background(), "agent", protocol.ActionCopyToClipboard, protocol.CopyToClipboardRequest{
		Text: "copied text",
	}, testTimeout)
	require.NoError(t, err)

	var resp protocol.CopyToClipboardResponse
	require.NoError(t, protocol.DecodePayload(raw, &resp))
	require.True(t, resp.Success)

	got, ok := h.clip.Read()
	require.True(t, ok)
	assert.Equal(t, "copied text", got)
}

func TestGetSettingsReflectsSource(t *testing.T) {
	h := newHarness(t, &fakeEngine{result: &ocr.RawResult{Text: "x"}}, Options{
		Settings: &fakeSettings{settings: store.Settings{
			AutoEnhance:       false,
			MultiLanguage:     true,
			ShowNotifications: false,
		}},
	})

	raw, err := h.caller.Send(context.Background(), "agent", protocol.ActionGetSettings, nil, testTimeout)
	require.NoError(t, err)

	var resp protocol.GetSettingsResponse
	require.NoError(t, protocol.DecodePayload(raw, &resp))
	assert.False(t, resp.AutoEnhance)
	assert.True(t, resp.MultiLanguage)
	assert.False(t, resp.ShowNotifications)
}

func TestGetSettingsDefaultsWithoutSource(t *testing.T) {
	h := newHarness(t, &fakeEngine{result: &ocr.RawResult{Text: "x"}}, Options{})

	raw, err := h.caller.Send(context.Background(), "agent", protocol.ActionGetSettings, nil, testTimeout)
	require.NoError(t, err)

	var resp protocol.GetSettingsResponse
	require.NoError(t, protocol.DecodePayload(raw, &resp))
	defaults := store.DefaultSettings()
	assert.Equal(t, defaults.AutoEnhance, resp.AutoEnhance)
	assert.Equal(t, defaults.MultiLanguage, resp.MultiLanguage)
	assert.Equal(t, defaults.ShowNotifications, resp.ShowNotifications)
}
