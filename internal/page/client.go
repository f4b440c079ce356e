package page

import (
	"context"
	"time"

	xerrors "github.com/extractext/extractext/internal/errors"
	"github.com/extractext/extractext/internal/ocr"
	"github.com/extractext/extractext/internal/protocol"
	"github.com/extractext/extractext/internal/store"
)

// AgentClient is the page context's typed view of the agent. Every call is
// one request/response exchange; failures come back as coded errors.
type AgentClient struct {
	conn    *protocol.Conn
	channel string
	timeout time.Duration
}

func NewAgentClient(conn *protocol.Conn, agentChannel string, timeout time.Duration) *AgentClient {
	return &AgentClient{conn: conn, channel: agentChannel, timeout: timeout}
}

// Ping reports whether the agent is reachable and ready.
func (c *AgentClient) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx, c.channel, c.timeout)
}

// GetSettings fetches the user settings. Any failure falls back to defaults;
// settings retrieval must never block an extraction.
func (c *AgentClient) GetSettings(ctx context.Context) store.Settings {
	raw, err := c.conn.Send(ctx, c.channel, protocol.ActionGetSettings, nil, c.timeout)
	if err != nil {
		return store.DefaultSettings()
	}
	var resp protocol.GetSettingsResponse
	if err := protocol.DecodePayload(raw, &resp); err != nil {
		return store.DefaultSettings()
	}
	return store.Settings{
		AutoEnhance:       resp.AutoEnhance,
		MultiLanguage:     resp.MultiLanguage,
		ShowNotifications: resp.ShowNotifications,
	}
}

// ProcessImage submits one image for recognition.
func (c *AgentClient) ProcessImage(ctx context.Context, imageData []byte, settings ocr.Settings) (*ocr.Result, error) {
	raw, err := c.conn.Send(ctx, c.channel, protocol.ActionProcessImage, protocol.ProcessImageRequest{
		ImageData: imageData,
		Settings:  settings,
	}, c.timeout)
	if err != nil {
		return nil, err
	}
	var resp protocol.ProcessImageResponse
	if err := protocol.DecodePayload(raw, &resp); err != nil {
		return nil, xerrors.NewTransportError(c.channel, err)
	}
	if !resp.Success {
		return nil, protocol.ResponseError(resp.Error, resp.Code)
	}
	return &ocr.Result{
		Text:        resp.Text,
		Confidence:  resp.Confidence,
		Words:       resp.Words,
		ImageWidth:  resp.ImageWidth,
		ImageHeight: resp.ImageHeight,
	}, nil
}

// CopyToClipboard writes text to the system clipboard in the agent context.
func (c *AgentClient) CopyToClipboard(ctx context.Context, text string) error {
	raw, err := c.conn.Send(ctx, c.channel, protocol.ActionCopyToClipboard, protocol.CopyToClipboardRequest{
		Text: text,
	}, c.timeout)
	if err != nil {
		return err
	}
	var resp protocol.CopyToClipboardResponse
	if err := protocol.DecodePayload(raw, &resp); err != nil {
		return xerrors.NewTransportError(c.channel, err)
	}
	if !resp.Success {
		return protocol.ResponseError(resp.Error, resp.Code)
	}
	return nil
}
