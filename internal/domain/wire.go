package domain

import "encoding/json"

// SubmitAck is the fixed status string returned by the submission endpoint.
const SubmitAck = "Message received and broadcasted"

// SubmitRequest is the body of POST /api/receive-message. Message is opaque
// to the relay.
type SubmitRequest struct {
	Message json.RawMessage `json:"message"`
}

type SubmitResponse struct {
	Status string `json:"status"`
}

// ChatRequest is the body of POST /chat/ on the chat backend.
type ChatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

type ChatResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id"`
	Error   string `json:"error,omitempty"`
}
