package apiclient

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
)

// Decode maps a response body into dst. Bodies wrapped in the backend's
// {success, data, message} envelope are unwrapped first; bare bodies are
// decoded as they are. An envelope with success=false is a rejection.
func Decode(status int, body []byte, dst any) error {
	payload, err := Unwrap(status, body)
	if err != nil {
		return err
	}
	if dst == nil {
		return nil
	}
	if len(bytes.TrimSpace(payload)) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return Malformed("empty response body")
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return Malformed("decode: %v", err)
	}
	return nil
}

// Unwrap returns the data portion of an enveloped body, or body itself
func Unwrap(status int, body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		return nil, Malformed("response is not JSON")
	}
	if trimmed[0] != '{' {
		return trimmed, nil
	}

	var env struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, Malformed("decode envelope: %v", err)
	}
	if env.Success == nil {
		return trimmed, nil
	}
	if !*env.Success {
		return nil, &ServerRejectedError{Status: status, Message: env.Message}
	}
	if env.Data == nil {
		return trimmed, nil
	}
	return env.Data, nil
}

// rejectionMessage digs a human message out of an error body. The backend
// uses "message", "error" as a string, or "error": {"message": ...}.
func rejectionMessage(body []byte) string {
	var shape struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		text := strings.TrimSpace(string(body))
		if text == "" || len(text) > 200 || strings.HasPrefix(text, "<") {
			return ""
		}
		return text
	}
	if shape.Message != "" {
		return shape.Message
	}
	if len(shape.Error) > 0 {
		var s string
		if json.Unmarshal(shape.Error, &s) == nil {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(shape.Error, &obj) == nil {
			return obj.Message
		}
	}
	return ""
}

func classify(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return &ServerRejectedError{Status: status, Message: rejectionMessage(body)}
	}
}
