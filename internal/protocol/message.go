/**
 * Cross-context wire contract
 *
 * Every exchange between the page context and the agent context is a typed
 * request/response pair identified by an action discriminator. The boundary
 * carries only data: failures travel as {success:false, error, code}, never
 * as Go error values.
 */

package protocol

import (
	"encoding/json"
	"fmt"

	xerrors "github.com/extractext/extractext/internal/errors"
	"github.com/extractext/extractext/internal/ocr"
)

// Action discriminates request payloads. The set is closed; dispatch matches
// it exhaustively and unknown actions are answered with a failure.
type Action string

const (
	ActionPing            Action = "ping"
	ActionGetImageData    Action = "getImageData"
	ActionExtractText     Action = "extractText"
	ActionProcessImage    Action = "processImage"
	ActionCopyToClipboard Action = "copyToClipboard"
	ActionGetSettings     Action = "getSettings"
)

// KnownActions lists every action of the closed set.
var KnownActions = []Action{
	ActionPing,
	ActionGetImageData,
	ActionExtractText,
	ActionProcessImage,
	ActionCopyToClipboard,
	ActionGetSettings,
}

// Envelope kinds: a request expecting a reply, or the reply itself.
const (
	kindRequest = "request"
	kindReply   = "reply"
)

// Envelope is the single frame type moved by transports.
type Envelope struct {
	Kind    string          `json:"kind"`
	ID      string          `json:"id"`
	ReplyTo string          `json:"replyTo,omitempty"`
	Action  Action          `json:"action,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Request payloads

type GetImageDataRequest struct {
	ImageURL string `json:"imageUrl"`
}

type ExtractTextRequest struct {
	ImageURL string `json:"imageUrl"`
	FrameURL string `json:"frameUrl,omitempty"`
}

type ProcessImageRequest struct {
	ImageData []byte       `json:"imageData"`
	Settings  ocr.Settings `json:"settings"`
}

type CopyToClipboardRequest struct {
	Text string `json:"text"`
}

// Response payloads

type PingResponse struct {
	Ready bool `json:"ready"`
}

type GetImageDataResponse struct {
	Success   bool   `json:"success"`
	ImageData []byte `json:"imageData,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
}

type ExtractTextResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

type ProcessImageResponse struct {
	Success     bool          `json:"success"`
	Text        string        `json:"text,omitempty"`
	Confidence  float64       `json:"confidence,omitempty"`
	Words       []ocr.WordBox `json:"words,omitempty"`
	ImageWidth  int           `json:"imageWidth,omitempty"`
	ImageHeight int           `json:"imageHeight,omitempty"`
	Error       string        `json:"error,omitempty"`
	Code        string        `json:"code,omitempty"`
}

type CopyToClipboardResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

type GetSettingsResponse struct {
	AutoEnhance       bool `json:"autoEnhance"`
	MultiLanguage     bool `json:"multiLanguage"`
	ShowNotifications bool `json:"showNotifications"`
}

// FailureOf reduces a pipeline error to its wire form.
func FailureOf(err error) (message, code string) {
	if c := xerrors.CodeOf(err); c != "" {
		return err.Error(), string(c)
	}
	return err.Error(), ""
}

// ResponseError rebuilds a coded error from a wire failure on the caller side.
func ResponseError(message, code string) error {
	if code != "" {
		return xerrors.FromCode(xerrors.ErrorCode(code), message)
	}
	return fmt.Errorf("%s", message)
}

// DecodePayload unmarshals a payload into the typed request/response shape.
func DecodePayload(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
