package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Frame type discriminators that route a frame to the action log.
const (
	FrameTypeExecutionUpdate = "execution_update"
	FrameTypeActions         = "actions"
)

// Frame is one decoded subscriber payload. Exactly one of ContentFrame,
// ActionFrame or UnknownFrame.
type Frame interface{ isFrame() }

type baseFrame struct{}

func (baseFrame) isFrame() {}

// ContentFrame carries chat text for the transcript. A payload that also
// carries an action discriminator sets Action, and feeds the action log too.
type ContentFrame struct {
	baseFrame
	Text   string
	Action *ActionFrame
}

// ActionFrame reports agent-side activity for the action log. Raw keeps the
// whole payload so the log can render it later.
type ActionFrame struct {
	baseFrame
	Type string
	Raw  json.RawMessage
}

// UnknownFrame is valid JSON that matches neither known shape.
type UnknownFrame struct {
	baseFrame
	Raw json.RawMessage
}

// DecodeFrame classifies a raw payload. Content takes priority over the type
// discriminator, so a payload with both is a ContentFrame with Action set.
// Invalid JSON returns ErrMalformedFrame.
func DecodeFrame(raw []byte) (Frame, error) {
	raw = bytes.TrimSpace(raw)
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: %d bytes of invalid JSON", ErrMalformedFrame, len(raw))
	}

	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)

	root := gjson.ParseBytes(cp)
	if !root.IsObject() {
		return UnknownFrame{Raw: cp}, nil
	}

	action := decodeAction(root, cp)

	if content := root.Get("content"); truthy(content) {
		return ContentFrame{Text: content.String(), Action: action}, nil
	}
	if action != nil {
		return *action, nil
	}
	return UnknownFrame{Raw: cp}, nil
}

func decodeAction(root gjson.Result, raw json.RawMessage) *ActionFrame {
	t := root.Get("type")
	if t.Type != gjson.String {
		return nil
	}
	switch t.Str {
	case FrameTypeExecutionUpdate, FrameTypeActions:
		return &ActionFrame{Type: t.Str, Raw: raw}
	}
	return nil
}

// truthy follows JSON-in-JavaScript truthiness: empty strings, zero, false
// and null are absent content; objects and arrays are present.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	case gjson.True:
		return true
	case gjson.JSON:
		return true
	default:
		return false
	}
}
